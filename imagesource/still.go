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

package imagesource

import (
	"github.com/jetsetilly/spipanel/framebuffer"
)

// StillRefreshRate is the rate at which a still image is presented. Presenting
// an unchanged image costs only the comparison with the previous frame.
const StillRefreshRate = 30

// Still is a frame source that shows a single image. If the image is being
// watched then it is replaced when the file changes.
type Still struct {
	frame *framebuffer.Frame
	w     *Watcher
}

// NewStill loads the image at path. If watch is true the file is watched for
// changes.
func NewStill(path string, watch bool) (*Still, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}

	s := &Still{frame: f}

	if watch {
		s.w, err = Watch(path)
		if err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Size returns the dimensions of the most recent image.
func (s *Still) Size() (int, int) {
	return s.frame.Width, s.frame.Height
}

// Aspect returns the shape of the image's pixels.
func (s *Still) Aspect() float64 {
	return 1.0
}

// RefreshRate returns the rate at which frames should be presented.
func (s *Still) RefreshRate() int {
	return StillRefreshRate
}

// NewFrame allocates a frame suitable for Draw().
func (s *Still) NewFrame() *framebuffer.Frame {
	return s.frame.Clone()
}

// Draw the most recent image into f. The frame may change size if the image
// has been reloaded.
func (s *Still) Draw(f *framebuffer.Frame) {
	if s.w != nil {
		select {
		case nf := <-s.w.Frames():
			s.frame = nf
		default:
		}
	}
	f.CopyFrom(s.frame)
}

// Close stops watching the file.
func (s *Still) Close() error {
	if s.w == nil {
		return nil
	}
	return s.w.Close()
}
