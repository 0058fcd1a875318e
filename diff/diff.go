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

package diff

import (
	"encoding/binary"

	"github.com/jetsetilly/spipanel/framebuffer"
	"github.com/jetsetilly/spipanel/panel"
)

// Config controls when the diff gives up on partial updates and how
// aggressively runs are merged.
type Config struct {
	// fraction of the frame's pixels that may change before a full update is
	// preferred. a value of zero or less always results in a full update
	FullUpdateThreshold float64

	// runs on adjacent scanlines are merged when both their left and right
	// edges are within this many pixels of each other. a negative value
	// prevents merging
	Tolerance int
}

// DefaultConfig is the configuration used when nothing else is specified.
var DefaultConfig = Config{
	FullUpdateThreshold: panel.FullUpdateThreshold,
	Tolerance:           panel.CoalesceTolerance,
}

// Diff compares the current frame with the previous frame. The out slice is
// reused if it is large enough and the result is returned. The returned slice
// always has one entry per scanline of the current frame.
//
// A nil previous frame, or one with different dimensions, results in a full
// update.
func Diff(cur, prev *framebuffer.Frame, cfg Config, out []Run) []Run {
	w := cur.Width
	h := cur.Height

	if h <= 0 {
		return out[:0]
	}

	if cap(out) < h {
		out = make([]Run, h)
	}
	out = out[:h]

	if prev == nil || prev.Width != w || prev.Height != h {
		return full(out, w, h)
	}

	remaining := int(float64(w*h) * cfg.FullUpdateThreshold)

	var span func(y int) (int, int)

	if framebuffer.SamePalette(cur, prev) {
		// when the palettes are the same, any difference in the masked raw
		// bytes is a difference in colour
		m := uint8(0xff)
		if cur.Indexed() {
			m = cur.PixelMask | cur.PaletteShiftMask
		}
		m32 := uint32(m) * 0x01010101
		pw := cur.PixelWidth

		span = func(y int) (int, int) {
			a := cur.Row(y)
			b := prev.Row(y)
			first := firstDifference(a, b, m, m32)
			if first < 0 {
				return w, 0
			}
			last := lastDifference(a, b, m, m32)
			left := first / pw
			return left, last/pw - left + 1
		}
	} else {
		span = func(y int) (int, int) {
			left := -1
			for x := range w {
				if cur.Sample(x, y) != prev.Sample(x, y) {
					left = x
					break
				}
			}
			if left < 0 {
				return w, 0
			}
			right := left
			for x := w - 1; x > left; x-- {
				if cur.Sample(x, y) != prev.Sample(x, y) {
					right = x
					break
				}
			}
			return left, right - left + 1
		}
	}

	for y := range h {
		left, width := span(y)
		out[y] = Run{Top: y, Left: left, Width: width, Repeat: 1}

		remaining -= width
		if remaining <= 0 {
			return full(out, w, h)
		}
	}

	coalesce(out, cfg.Tolerance)

	return out
}

func full(out []Run, w, h int) []Run {
	out[0] = Full(w, h)
	for y := 1; y < h; y++ {
		out[y] = Run{Top: y, Left: w, Width: 0, Repeat: 1}
	}
	return out
}

// coalesce merges runs on adjacent scanlines, working from the bottom of the
// frame upwards so that a run can absorb a chain of runs below it.
func coalesce(out []Run, tolerance int) {
	if tolerance < 0 {
		return
	}

	for y := len(out) - 1; y > 0; y-- {
		cur := &out[y]
		above := &out[y-1]

		if abs(cur.Left-above.Left) > tolerance {
			continue
		}

		right := cur.End()
		rightAbove := above.End()
		if abs(right-rightAbove) > tolerance {
			continue
		}

		above.Left = min(above.Left, cur.Left)
		above.Width = max(right, rightAbove) - above.Left
		above.Repeat = cur.Repeat + 1
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// firstDifference returns the index of the first byte that differs under the
// mask. four bytes are compared at once until a difference is found. returns
// -1 if there is no difference.
func firstDifference(a, b []byte, m uint8, m32 uint32) int {
	n := len(a)
	g := n &^ 3

	for i := 0; i < g; i += 4 {
		if (binary.LittleEndian.Uint32(a[i:])^binary.LittleEndian.Uint32(b[i:]))&m32 != 0 {
			for j := i; j < i+4; j++ {
				if (a[j]^b[j])&m != 0 {
					return j
				}
			}
		}
	}

	for i := g; i < n; i++ {
		if (a[i]^b[i])&m != 0 {
			return i
		}
	}

	return -1
}

// lastDifference returns the index of the last byte that differs under the
// mask. returns -1 if there is no difference.
func lastDifference(a, b []byte, m uint8, m32 uint32) int {
	n := len(a)
	g := n &^ 3

	for i := n - 1; i >= g; i-- {
		if (a[i]^b[i])&m != 0 {
			return i
		}
	}

	for i := g - 4; i >= 0; i -= 4 {
		if (binary.LittleEndian.Uint32(a[i:])^binary.LittleEndian.Uint32(b[i:]))&m32 != 0 {
			for j := i + 3; j >= i; j-- {
				if (a[j]^b[j])&m != 0 {
					return j
				}
			}
		}
	}

	return -1
}
