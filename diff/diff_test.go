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

package diff_test

import (
	"math/rand/v2"
	"testing"

	"github.com/jetsetilly/spipanel/diff"
	"github.com/jetsetilly/spipanel/framebuffer"
	"github.com/jetsetilly/spipanel/panel"
	"github.com/jetsetilly/spipanel/test"
)

func palette(n int) []panel.Native {
	p := make([]panel.Native, n)
	for i := range p {
		p[i] = panel.RGB(uint8(i*7), uint8(i*13), uint8(i*29))
	}
	return p
}

// exact is a configuration that never merges runs and never gives up
var exact = diff.Config{FullUpdateThreshold: 1.1, Tolerance: -1}

func TestNoPrevious(t *testing.T) {
	cur := framebuffer.NewIndexed(256, 192, 0xff, palette(256))
	runs := diff.Diff(cur, nil, diff.DefaultConfig, nil)
	test.DemandEquality(t, len(runs), 192)
	test.ExpectEquality(t, runs[0], diff.Run{Top: 0, Left: 0, Width: 256, Repeat: 192})
	test.ExpectSuccess(t, diff.IsFull(runs, 256, 192))

	// full update is visited exactly once
	n := 0
	diff.Visit(runs, func(r diff.Run) error {
		n++
		return nil
	})
	test.ExpectEquality(t, n, 1)
}

func TestUnchanged(t *testing.T) {
	pal := palette(64)
	cur := framebuffer.NewIndexed(37, 20, 0x3f, pal)
	for i := range cur.Pix {
		cur.Pix[i] = uint8(i)
	}
	prev := cur.Clone()

	runs := diff.Diff(cur, prev, diff.DefaultConfig, nil)
	test.DemandEquality(t, len(runs), 20)
	test.ExpectFailure(t, diff.IsFull(runs, 37, 20))
	test.ExpectEquality(t, diff.Changed(runs), 0)
	for _, r := range runs {
		test.ExpectSuccess(t, r.Empty())
	}

	// bits outside of the pixel mask are not a change
	for i := range cur.Pix {
		cur.Pix[i] |= 0x80
	}
	runs = diff.Diff(cur, prev, diff.DefaultConfig, runs)
	test.ExpectEquality(t, diff.Changed(runs), 0)
}

func TestExactBounds(t *testing.T) {
	pal := palette(256)

	// widths that are not a multiple of four exercise the tail bytes
	for _, w := range []int{16, 17, 18, 19, 3} {
		cur := framebuffer.NewIndexed(w, 4, 0xff, pal)
		prev := cur.Clone()

		cur.Set(1, 0, 9)
		cur.Set(w-1, 1, 9)
		cur.Set(0, 2, 9)
		cur.Set(w-1, 2, 9)

		runs := diff.Diff(cur, prev, exact, nil)
		test.ExpectEquality(t, runs[0], diff.Run{Top: 0, Left: 1, Width: 1, Repeat: 1}, w)
		test.ExpectEquality(t, runs[1], diff.Run{Top: 1, Left: w - 1, Width: 1, Repeat: 1}, w)
		test.ExpectEquality(t, runs[2], diff.Run{Top: 2, Left: 0, Width: w, Repeat: 1}, w)
		test.ExpectEquality(t, runs[3], diff.Run{Top: 3, Left: w, Width: 0, Repeat: 1}, w)
	}
}

func TestRGB565(t *testing.T) {
	cur := framebuffer.NewRGB565(10, 3)
	prev := cur.Clone()

	// a change to the high byte only
	cur.SetRGB565(3, 1, 0x0100)
	cur.SetRGB565(6, 1, 0x0001)

	runs := diff.Diff(cur, prev, exact, nil)
	test.ExpectEquality(t, runs[1], diff.Run{Top: 1, Left: 3, Width: 4, Repeat: 1})
	test.ExpectSuccess(t, runs[0].Empty())
	test.ExpectSuccess(t, runs[2].Empty())
}

func TestPaletteChange(t *testing.T) {
	pal := palette(16)
	cur := framebuffer.NewIndexed(8, 2, 0x0f, pal)
	for i := range cur.Pix {
		cur.Pix[i] = uint8(i % 8)
	}
	prev := cur.Clone()

	// same raw pixels but one palette entry has changed
	prev.Palette = palette(16)
	prev.Palette[5] = panel.Red
	runs := diff.Diff(cur, prev, exact, nil)
	test.ExpectEquality(t, runs[0], diff.Run{Top: 0, Left: 5, Width: 1, Repeat: 1})
	test.ExpectEquality(t, runs[1], diff.Run{Top: 1, Left: 5, Width: 1, Repeat: 1})

	// different raw pixels that resolve to the same colour are not a change
	prev.Palette = palette(16)
	prev.Palette[9] = pal[1]
	prev.Set(1, 0, 9)
	runs = diff.Diff(cur, prev, exact, nil)
	test.ExpectEquality(t, diff.Changed(runs), 0)
}

func TestShiftMask(t *testing.T) {
	pal := palette(128)
	cur := framebuffer.NewIndexed(8, 1, 0x3f, pal)
	cur.PaletteShiftMask = 0x40
	prev := cur.Clone()

	// same palette: the shift bit is a change
	cur.Set(4, 0, 0x45)
	prev.Set(4, 0, 0x05)
	runs := diff.Diff(cur, prev, exact, nil)
	test.ExpectEquality(t, runs[0], diff.Run{Top: 0, Left: 4, Width: 1, Repeat: 1})

	// different palettes: the shift bit selects the upper half. the upper
	// half of prev's palette is the same colour as the lower half of cur
	prev.Palette = palette(128)
	prev.Palette[0x45] = pal[0x05]
	prev.Palette[0x7f] = panel.Red
	cur.Set(4, 0, 0x05)
	prev.Set(4, 0, 0x45)
	runs = diff.Diff(cur, prev, exact, nil)
	test.ExpectEquality(t, diff.Changed(runs), 0)
}

func TestFullUpdateThreshold(t *testing.T) {
	pal := palette(256)
	cur := framebuffer.NewIndexed(100, 100, 0xff, pal)
	prev := cur.Clone()

	// 39 complete lines is below 40% of the frame
	for y := range 39 {
		for x := range 100 {
			cur.Set(x, y*2, 1)
		}
	}
	runs := diff.Diff(cur, prev, diff.DefaultConfig, nil)
	test.ExpectFailure(t, diff.IsFull(runs, 100, 100))

	// 40 complete lines reaches the threshold
	for x := range 100 {
		cur.Set(x, 99, 1)
	}
	runs = diff.Diff(cur, prev, diff.DefaultConfig, nil)
	test.ExpectSuccess(t, diff.IsFull(runs, 100, 100))

	// a threshold of zero always gives a full update
	runs = diff.Diff(prev, prev.Clone(), diff.Config{}, nil)
	test.ExpectSuccess(t, diff.IsFull(runs, 100, 100))
}

func TestCoalesce(t *testing.T) {
	pal := palette(256)

	change := func(f *framebuffer.Frame, y, left, right int) {
		for x := left; x <= right; x++ {
			f.Set(x, y, 1)
		}
	}

	// left edges 8 pixels apart are merged
	cur := framebuffer.NewIndexed(100, 4, 0xff, pal)
	prev := cur.Clone()
	change(cur, 1, 10, 50)
	change(cur, 2, 18, 50)
	runs := diff.Diff(cur, prev, diff.DefaultConfig, nil)
	test.ExpectEquality(t, runs[1], diff.Run{Top: 1, Left: 10, Width: 41, Repeat: 2})

	var visited []diff.Run
	diff.Visit(runs, func(r diff.Run) error {
		visited = append(visited, r)
		return nil
	})
	test.DemandEquality(t, len(visited), 1)
	test.ExpectEquality(t, visited[0], runs[1])

	// 9 pixels apart are not
	cur = framebuffer.NewIndexed(100, 4, 0xff, pal)
	change(cur, 1, 10, 50)
	change(cur, 2, 19, 50)
	runs = diff.Diff(cur, prev, diff.DefaultConfig, nil)
	test.ExpectEquality(t, runs[1], diff.Run{Top: 1, Left: 10, Width: 41, Repeat: 1})
	test.ExpectEquality(t, runs[2], diff.Run{Top: 2, Left: 19, Width: 32, Repeat: 1})

	// the same is true of the right edge
	cur = framebuffer.NewIndexed(100, 4, 0xff, pal)
	change(cur, 1, 10, 50)
	change(cur, 2, 10, 59)
	runs = diff.Diff(cur, prev, diff.DefaultConfig, nil)
	test.ExpectEquality(t, runs[1], diff.Run{Top: 1, Left: 10, Width: 41, Repeat: 1})
	test.ExpectEquality(t, runs[2], diff.Run{Top: 2, Left: 10, Width: 50, Repeat: 1})

	cur = framebuffer.NewIndexed(100, 4, 0xff, pal)
	change(cur, 1, 10, 50)
	change(cur, 2, 10, 58)
	runs = diff.Diff(cur, prev, diff.DefaultConfig, nil)
	test.ExpectEquality(t, runs[1], diff.Run{Top: 1, Left: 10, Width: 49, Repeat: 2})

	// a chain of three runs merges into the top run
	cur = framebuffer.NewIndexed(100, 4, 0xff, pal)
	change(cur, 0, 16, 30)
	change(cur, 1, 12, 30)
	change(cur, 2, 8, 36)
	runs = diff.Diff(cur, prev, diff.DefaultConfig, nil)
	test.ExpectEquality(t, runs[0], diff.Run{Top: 0, Left: 8, Width: 29, Repeat: 3})
}

// every changed pixel is covered by a visited run, whatever the config
func TestCoverage(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	pal := palette(64)

	for trial := range 50 {
		w := 8 + rnd.IntN(60)
		h := 4 + rnd.IntN(40)
		cur := framebuffer.NewIndexed(w, h, 0x3f, pal)
		for i := range cur.Pix {
			cur.Pix[i] = uint8(rnd.IntN(64))
		}
		prev := cur.Clone()

		changes := rnd.IntN(w * h / 8)
		for range changes {
			x := rnd.IntN(w)
			y := rnd.IntN(h)
			cur.Set(x, y, uint8(rnd.IntN(64)))
		}

		for _, cfg := range []diff.Config{exact, diff.DefaultConfig} {
			covered := make([]bool, w*h)
			runs := diff.Diff(cur, prev, cfg, nil)
			diff.Visit(runs, func(r diff.Run) error {
				for y := r.Top; y < r.Top+r.Repeat; y++ {
					for x := r.Left; x < r.End(); x++ {
						covered[y*w+x] = true
					}
				}
				return nil
			})

			for y := range h {
				for x := range w {
					if cur.Sample(x, y) != prev.Sample(x, y) && !covered[y*w+x] {
						t.Fatalf("trial %d: changed pixel %d,%d not covered", trial, x, y)
					}
				}
			}

			// without merging the runs are exact
			if cfg == exact {
				for y := range h {
					left, right := -1, -1
					for x := range w {
						if cur.Sample(x, y) != prev.Sample(x, y) {
							if left < 0 {
								left = x
							}
							right = x
						}
					}
					if left < 0 {
						test.ExpectSuccess(t, runs[y].Empty(), trial, y)
					} else {
						test.ExpectEquality(t, runs[y].Left, left, trial, y)
						test.ExpectEquality(t, runs[y].End(), right+1, trial, y)
					}
				}
			}
		}
	}
}

func TestMismatchedFrames(t *testing.T) {
	pal := palette(256)
	cur := framebuffer.NewIndexed(10, 10, 0xff, pal)
	prev := framebuffer.NewIndexed(10, 9, 0xff, pal)
	runs := diff.Diff(cur, prev, diff.DefaultConfig, nil)
	test.ExpectSuccess(t, diff.IsFull(runs, 10, 10))

	// an indexed frame compared with an rgb565 frame is compared by colour
	a := framebuffer.NewIndexed(4, 1, 0xff, pal)
	a.Set(2, 0, 3)
	b := framebuffer.NewRGB565(4, 1)
	for x := range 4 {
		b.SetRGB565(x, 0, a.Sample(x, 0).RGB565())
	}
	b.SetRGB565(1, 0, 0xffff)
	runs = diff.Diff(a, b, exact, nil)
	test.ExpectEquality(t, runs[0], diff.Run{Top: 0, Left: 1, Width: 1, Repeat: 1})
}
