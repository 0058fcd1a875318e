// This file is part of Spipanel.
//
// Spipanel is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Spipanel is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Spipanel.  If not, see <https://www.gnu.org/licenses/>.

// Package blit copies rectangles of a source frame to the panel, scaling
// with a nearest neighbour digital differential analyser.
//
// The scale is expressed as a pair of increments. For every destination
// column the horizontal accumulator is increased by XInc and the source
// column advances once for every panel width the accumulator passes. The
// same is true vertically with YInc and the panel height. Increments equal to
// the panel dimensions are a one-to-one copy.
package blit

import (
	"fmt"

	"github.com/jetsetilly/spipanel/panel"
)

// Scale is the mapping from source frame to panel.
type Scale struct {
	XInc int
	YInc int

	// top left of the source frame on the panel. can be negative if the
	// frame is larger than the panel
	XOrigin int
	YOrigin int

	XScale float64
	YScale float64
}

func (s Scale) String() string {
	return fmt.Sprintf("inc %dx%d scale %.3fx%.3f origin %d,%d", s.XInc, s.YInc, s.XScale, s.YScale, s.XOrigin, s.YOrigin)
}

// Reset returns a one-to-one scale with the frame centred on the panel.
func Reset(geom panel.Geometry, width, height int) Scale {
	return Scale{
		XInc:    geom.Width,
		YInc:    geom.Height,
		XOrigin: (geom.Width - width) / 2,
		YOrigin: (geom.Height - height) / 2,
		XScale:  1.0,
		YScale:  1.0,
	}
}

// Fit returns the largest scale that fits the frame on the panel. The aspect
// argument is the shape of a source pixel (width/height) and is preserved by
// the scale. The frame is centred on the axis that does not fill the panel.
func Fit(geom panel.Geometry, width, height int, aspect float64) Scale {
	W := float64(geom.Width)
	H := float64(geom.Height)

	var s Scale

	bufferAspect := float64(width) * aspect / float64(height)
	if bufferAspect < geom.Aspect() {
		s.YScale = H / float64(height)
		s.XScale = s.YScale * aspect
	} else {
		s.XScale = W / float64(width)
		s.YScale = s.XScale / aspect
	}

	s.XInc = int(W / s.XScale)
	s.YInc = int(H / s.YScale)
	s.XOrigin = int((W - float64(width)*s.XScale) / 2)
	s.YOrigin = int((H - float64(height)*s.YScale) / 2)

	return s
}

// Valid returns false if either increment is not positive.
func (s Scale) Valid() bool {
	return s.XInc > 0 && s.YInc > 0
}

// Pixels returns the approximate number of panel pixels covered by a source
// area of the specified size.
func (s Scale) Pixels(width, height int) int {
	return int((s.XScale * float64(width)) * (s.YScale * float64(height)))
}
