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

package presenter

import "github.com/jetsetilly/spipanel/framebuffer"

// Double is a pair of frames used alternately by a producer. The producer
// draws into Current() and presents it along with Previous(). Swap() is then
// called and the producer draws the next frame into what was the previous
// frame.
type Double struct {
	frames [2]*framebuffer.Frame
	cur    int

	// false until the first Swap(). the previous frame has no meaningful
	// content until then
	primed bool
}

// NewDouble is the preferred method of initialisation for the Double type.
// Both frames must have the same dimensions.
func NewDouble(a, b *framebuffer.Frame) *Double {
	return &Double{frames: [2]*framebuffer.Frame{a, b}}
}

// Current returns the frame being drawn.
func (d *Double) Current() *framebuffer.Frame {
	return d.frames[d.cur]
}

// Previous returns the most recently completed frame. Returns nil until
// Swap() has been called at least once.
func (d *Double) Previous() *framebuffer.Frame {
	if !d.primed {
		return nil
	}
	return d.frames[d.cur^1]
}

// Swap the current and previous frames.
func (d *Double) Swap() {
	d.cur ^= 1
	d.primed = true
}

// Invalidate causes the next Previous() to return nil, forcing a full update
// on the next frame.
func (d *Double) Invalidate() {
	d.primed = false
}
