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

package testcard_test

import (
	"testing"

	"github.com/jetsetilly/spipanel/diff"
	"github.com/jetsetilly/spipanel/test"
	"github.com/jetsetilly/spipanel/testcard"
)

func TestDraw(t *testing.T) {
	c := testcard.New(160, 120)

	a := c.NewFrame()
	b := c.NewFrame()
	test.DemandSuccess(t, a.Validate())

	c.Draw(a)
	c.Draw(b)
	test.ExpectEquality(t, c.FrameNum(), 2)

	// the sprite uses the upper half of the palette
	test.ExpectEquality(t, a.Sample(8, 8), a.Palette[testcard.PixelMask+1+4])
	test.ExpectEquality(t, a.Sample(150, 10), a.Palette[7])

	// only the area around the sprite has changed
	runs := diff.Diff(b, a, diff.DefaultConfig, nil)
	test.ExpectEquality(t, diff.IsFull(runs, 160, 120), false)
	test.ExpectEquality(t, runs[50].Empty(), true)
	test.ExpectEquality(t, runs[100].Empty(), true)
	test.ExpectInequality(t, diff.Changed(runs), 0)
}

func TestCycling(t *testing.T) {
	c := testcard.New(160, 120)
	c.SetCycling(true)

	a := c.NewFrame()
	b := c.NewFrame()
	c.Draw(a)
	c.Draw(b)

	test.ExpectInequality(t, a.Palette[0], b.Palette[0])

	// every pixel changes colour
	runs := diff.Diff(b, a, diff.DefaultConfig, nil)
	test.ExpectEquality(t, diff.IsFull(runs, 160, 120), true)
}

func TestBounce(t *testing.T) {
	c := testcard.New(32, 24)
	f := c.NewFrame()
	for range 200 {
		c.Draw(f)
		test.DemandSuccess(t, f.Validate())
	}
}

func TestCaption(t *testing.T) {
	c := testcard.New(160, 120)
	c.SetCaption(true)

	a := c.NewFrame()
	b := c.NewFrame()
	c.Draw(a)
	c.Draw(b)

	// the frame counter is drawn in the brightest grey
	var ink int
	for y := 100; y < 120; y++ {
		for x := range 40 {
			if a.Row(y)[x] == 15 {
				ink++
			}
		}
	}
	test.ExpectInequality(t, ink, 0)

	// the counter changes between frames
	runs := diff.Diff(b, a, diff.DefaultConfig, nil)
	var changed int
	for _, r := range runs[100:] {
		changed += r.Width
	}
	test.ExpectInequality(t, changed, 0)
	test.ExpectEquality(t, c.RefreshRate(), testcard.RefreshRate)
}
