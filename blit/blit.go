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

package blit

import (
	"fmt"

	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/framebuffer"
	"github.com/jetsetilly/spipanel/linebuf"
	"github.com/jetsetilly/spipanel/panel"
)

// Sentinal error patterns.
const (
	ContractError = "blit: %v"
)

// Rect is an area of the source frame.
type Rect struct {
	Left   int
	Top    int
	Width  int
	Height int
}

func (r Rect) String() string {
	return fmt.Sprintf("%d,%d %dx%d", r.Left, r.Top, r.Width, r.Height)
}

// Sink receives the output of Blit().
type Sink interface {
	// set the panel window for the pixels that follow
	Window(left, top, width, height int) error

	// get a line buffer to fill
	Acquire() (*linebuf.Buffer, error)

	// send the first n pixels of a line buffer. ownership of the buffer
	// passes to the sink
	Flush(buf *linebuf.Buffer, n int) error
}

// the destination of a rectangle, with the offset of the first destination
// column and row relative to the scale origin.
type plan struct {
	// panel coordinates
	left   int
	top    int
	width  int
	height int

	// destination coordinates relative to the scale origin
	actualLeft int
	actualTop  int
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func makePlan(r Rect, s Scale, geom panel.Geometry) plan {
	var p plan

	p.actualLeft = ceilDiv(geom.Width*r.Left, s.XInc)
	p.actualTop = ceilDiv(geom.Height*r.Top, s.YInc)
	right := ceilDiv(geom.Width*(r.Left+r.Width), s.XInc)
	bottom := ceilDiv(geom.Height*(r.Top+r.Height), s.YInc)

	p.left = s.XOrigin + p.actualLeft
	p.top = s.YOrigin + p.actualTop
	p.width = right - p.actualLeft
	p.height = bottom - p.actualTop

	// clip to the panel. the destination can exceed the panel by a pixel
	// because of increment truncation, or by a lot if the frame is larger
	// than the panel
	if p.left < 0 {
		p.actualLeft -= p.left
		p.width += p.left
		p.left = 0
	}
	if p.top < 0 {
		p.actualTop -= p.top
		p.height += p.top
		p.top = 0
	}
	if p.left+p.width > geom.Width {
		p.width = geom.Width - p.left
	}
	if p.top+p.height > geom.Height {
		p.height = geom.Height - p.top
	}

	return p
}

// Destination returns the panel rectangle that a source rectangle is written
// to. The width or height is zero or less if nothing would be written.
func Destination(r Rect, s Scale, geom panel.Geometry) (left, top, width, height int) {
	p := makePlan(r, s, geom)
	return p.left, p.top, p.width, p.height
}

// Blit writes the source rectangle to the sink. Destination lines are packed
// into line buffers, as many whole lines as will fit, and flushed from top to
// bottom.
//
// A rectangle that maps to no panel pixels is not an error and nothing is
// written.
func Blit(sink Sink, frame *framebuffer.Frame, r Rect, s Scale, geom panel.Geometry) error {
	if !s.Valid() {
		return curated.Errorf(ContractError, fmt.Sprintf("invalid scale (%s)", s))
	}
	if r.Left < 0 || r.Top < 0 || r.Left+r.Width > frame.Width || r.Top+r.Height > frame.Height {
		return curated.Errorf(ContractError, fmt.Sprintf("rectangle %s outside of %dx%d frame", r, frame.Width, frame.Height))
	}

	p := makePlan(r, s, geom)
	if p.width <= 0 || p.height <= 0 {
		return nil
	}

	if err := sink.Window(p.left, p.top, p.width, p.height); err != nil {
		return err
	}

	W := geom.Width
	H := geom.Height

	// the accumulators start at the position of the first destination pixel
	// and the source position is whatever that corresponds to. for
	// magnification this is always the first pixel of the rectangle
	sx0 := (s.XInc * p.actualLeft) / W
	ixAcc := (s.XInc * p.actualLeft) % W
	sy := (s.YInc * p.actualTop) / H
	yAcc := (s.YInc * p.actualTop) % H

	rows := 0
	for rows < p.height {
		buf, err := sink.Acquire()
		if err != nil {
			return err
		}

		lineCount := buf.Cap() / p.width
		if lineCount == 0 {
			// an empty flush returns the buffer to its owner
			_ = sink.Flush(buf, 0)
			return curated.Errorf(ContractError, fmt.Sprintf("line of %d pixels does not fit in a buffer of %d", p.width, buf.Cap()))
		}

		idx := 0
		for l := 0; l < lineCount && rows < p.height; l++ {
			sx := sx0
			xAcc := ixAcc
			for range p.width {
				buf.Pix[idx] = frame.Sample(sx, sy)
				idx++

				xAcc += s.XInc
				for xAcc >= W {
					sx++
					xAcc -= W
				}
			}

			rows++

			yAcc += s.YInc
			for yAcc >= H {
				sy++
				yAcc -= H
			}
		}

		if err := sink.Flush(buf, idx); err != nil {
			return err
		}
	}

	return nil
}
