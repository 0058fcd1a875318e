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

package blit_test

import (
	"testing"
	"time"

	"github.com/jetsetilly/spipanel/blit"
	"github.com/jetsetilly/spipanel/framebuffer"
	"github.com/jetsetilly/spipanel/linebuf"
	"github.com/jetsetilly/spipanel/panel"
	"github.com/jetsetilly/spipanel/test"
)

// gram is a minimal sink that writes pixels into a panel sized array in the
// same order as the controller would
type gram struct {
	geom panel.Geometry
	pool *linebuf.Pool
	pix  []panel.Native

	left, top, width, height int
	cursor                   int

	windows int
	flushes int
}

func newGram(geom panel.Geometry) *gram {
	return &gram{
		geom: geom,
		pool: linebuf.NewPool(2, geom.Width*panel.LineCount, time.Second),
		pix:  make([]panel.Native, geom.Pixels()),
	}
}

func (g *gram) Window(left, top, width, height int) error {
	g.left, g.top, g.width, g.height = left, top, width, height
	g.cursor = 0
	g.windows++
	return nil
}

func (g *gram) Acquire() (*linebuf.Buffer, error) {
	return g.pool.Acquire()
}

func (g *gram) Flush(buf *linebuf.Buffer, n int) error {
	g.flushes++
	for _, p := range buf.Pix[:n] {
		x := g.left + g.cursor%g.width
		y := g.top + g.cursor/g.width
		g.pix[y*g.geom.Width+x] = p
		g.cursor++
	}
	return g.pool.Release(buf)
}

func (g *gram) at(x, y int) panel.Native {
	return g.pix[y*g.geom.Width+x]
}

func pattern(w, h int) *framebuffer.Frame {
	pal := make([]panel.Native, 256)
	for i := range pal {
		pal[i] = panel.Native(i*257 + 1)
	}
	f := framebuffer.NewIndexed(w, h, 0xff, pal)
	for y := range h {
		for x := range w {
			f.Set(x, y, uint8(x*7+y*13))
		}
	}
	return f
}

func TestResetScale(t *testing.T) {
	s := blit.Reset(panel.ILI9341, 160, 120)
	test.ExpectEquality(t, s.XInc, 320)
	test.ExpectEquality(t, s.YInc, 240)
	test.ExpectEquality(t, s.XOrigin, 80)
	test.ExpectEquality(t, s.YOrigin, 60)
	test.ExpectEquality(t, s.Pixels(10, 10), 100)
}

func TestFitThenReset(t *testing.T) {
	geom := panel.ILI9341
	want := blit.Reset(geom, 160, 100)

	s := blit.Fit(geom, 160, 100, 1.0)
	test.ExpectApproximate(t, s.XScale, 2.0, 0.0001)
	test.ExpectInequality(t, s.XInc, geom.Width)

	// returning to unity ignores the earlier fit
	s = blit.Reset(geom, 160, 100)
	test.ExpectEquality(t, s, want)
	test.ExpectEquality(t, s.XInc, geom.Width)
	test.ExpectEquality(t, s.YInc, geom.Height)
	test.ExpectEquality(t, s.XOrigin, 80)
	test.ExpectEquality(t, s.YOrigin, 70)
	test.ExpectApproximate(t, s.XScale, 1.0, 0.0001)
	test.ExpectApproximate(t, s.YScale, 1.0, 0.0001)

	// a blit at unity copies the frame to the centre of the panel
	f := framebuffer.NewIndexed(160, 100, 0x03, []panel.Native{panel.Black, panel.White, panel.Red, panel.Green})
	f.Set(0, 0, 2)
	f.Set(159, 99, 3)
	g := newGram(geom)
	test.ExpectSuccess(t, blit.Blit(g, f, blit.Rect{Width: 160, Height: 100}, s, geom))
	test.ExpectEquality(t, g.at(80, 70), panel.Red)
	test.ExpectEquality(t, g.at(80+159, 70+99), panel.Green)
}

func TestFitScale(t *testing.T) {
	s := blit.Fit(panel.ILI9341, 256, 192, 1.0)
	test.ExpectApproximate(t, s.XScale, 1.25, 0.0001)
	test.ExpectApproximate(t, s.YScale, 1.25, 0.0001)
	test.ExpectEquality(t, s.XInc, 256)
	test.ExpectEquality(t, s.YInc, 192)
	test.ExpectEquality(t, s.XOrigin, 0)
	test.ExpectEquality(t, s.YOrigin, 0)

	// tall frame is limited by the panel height and centred horizontally
	s = blit.Fit(panel.ILI9341, 120, 240, 1.0)
	test.ExpectApproximate(t, s.XScale, 1.0, 0.0001)
	test.ExpectApproximate(t, s.YScale, 1.0, 0.0001)
	test.ExpectEquality(t, s.XOrigin, 100)
	test.ExpectEquality(t, s.YOrigin, 0)

	// wide pixels
	s = blit.Fit(panel.ILI9341, 160, 240, 2.0)
	test.ExpectApproximate(t, s.XScale, 2.0, 0.0001)
	test.ExpectApproximate(t, s.YScale, 1.0, 0.0001)
	test.ExpectEquality(t, s.XInc, 160)
	test.ExpectEquality(t, s.YInc, 240)
}

func TestUnity(t *testing.T) {
	geom := panel.ILI9341
	f := pattern(geom.Width, geom.Height)
	g := newGram(geom)

	s := blit.Reset(geom, f.Width, f.Height)
	err := blit.Blit(g, f, blit.Rect{Width: f.Width, Height: f.Height}, s, geom)
	test.ExpectSuccess(t, err)

	test.ExpectEquality(t, g.windows, 1)
	test.ExpectEquality(t, g.flushes, geom.Height/panel.LineCount)

	for y := range geom.Height {
		for x := range geom.Width {
			if g.at(x, y) != f.Sample(x, y) {
				t.Fatalf("pixel %d,%d: got %s want %s", x, y, g.at(x, y), f.Sample(x, y))
			}
		}
	}
}

func TestCentred(t *testing.T) {
	geom := panel.ILI9341
	f := pattern(100, 50)
	g := newGram(geom)

	s := blit.Reset(geom, f.Width, f.Height)
	err := blit.Blit(g, f, blit.Rect{Left: 10, Top: 5, Width: 20, Height: 3}, s, geom)
	test.ExpectSuccess(t, err)

	l, tp, w, h := blit.Destination(blit.Rect{Left: 10, Top: 5, Width: 20, Height: 3}, s, geom)
	test.ExpectEquality(t, l, 120)
	test.ExpectEquality(t, tp, 100)
	test.ExpectEquality(t, w, 20)
	test.ExpectEquality(t, h, 3)

	test.ExpectEquality(t, g.at(120, 100), f.Sample(10, 5))
	test.ExpectEquality(t, g.at(139, 102), f.Sample(29, 7))
}

func TestMagnified(t *testing.T) {
	geom := panel.ILI9341
	f := pattern(256, 192)
	g := newGram(geom)

	s := blit.Fit(geom, f.Width, f.Height, 1.0)
	err := blit.Blit(g, f, blit.Rect{Width: f.Width, Height: f.Height}, s, geom)
	test.ExpectSuccess(t, err)

	// every panel pixel is the nearest source pixel
	for y := range geom.Height {
		for x := range geom.Width {
			sx := x * 256 / 320
			sy := y * 192 / 240
			if g.at(x, y) != f.Sample(sx, sy) {
				t.Fatalf("pixel %d,%d: got %s want %s", x, y, g.at(x, y), f.Sample(sx, sy))
			}
		}
	}
}

// writing a frame piece by piece must produce the same result as writing the
// whole frame in one go
func TestPartialMatchesWhole(t *testing.T) {
	geom := panel.ILI9341
	f := pattern(256, 192)
	s := blit.Fit(geom, f.Width, f.Height, 1.0)

	whole := newGram(geom)
	test.ExpectSuccess(t, blit.Blit(whole, f, blit.Rect{Width: f.Width, Height: f.Height}, s, geom))

	parts := newGram(geom)
	for y := 0; y < f.Height; y += 7 {
		h := min(7, f.Height-y)
		for x := 0; x < f.Width; x += 33 {
			w := min(33, f.Width-x)
			test.ExpectSuccess(t, blit.Blit(parts, f, blit.Rect{Left: x, Top: y, Width: w, Height: h}, s, geom))
		}
	}

	for i := range whole.pix {
		if whole.pix[i] != parts.pix[i] {
			t.Fatalf("pixel %d,%d differs", i%geom.Width, i/geom.Width)
		}
	}
}

func TestClipping(t *testing.T) {
	geom := panel.ILI9341

	// a frame larger than the panel is clipped on all sides
	f := pattern(400, 300)
	g := newGram(geom)
	s := blit.Reset(geom, f.Width, f.Height)
	test.ExpectEquality(t, s.XOrigin, -40)
	test.ExpectEquality(t, s.YOrigin, -30)

	err := blit.Blit(g, f, blit.Rect{Width: f.Width, Height: f.Height}, s, geom)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, g.at(0, 0), f.Sample(40, 30))
	test.ExpectEquality(t, g.at(319, 239), f.Sample(359, 269))

	// entirely outside the panel writes nothing
	g = newGram(geom)
	err = blit.Blit(g, f, blit.Rect{Left: 0, Top: 0, Width: 10, Height: 10}, s, geom)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, g.windows, 0)

	// increment truncation can overshoot the bottom of the panel
	f = pattern(160, 144)
	g = newGram(geom)
	s = blit.Fit(geom, f.Width, f.Height, 1.0)
	err = blit.Blit(g, f, blit.Rect{Width: f.Width, Height: f.Height}, s, geom)
	test.ExpectSuccess(t, err)
	_, top, _, h := blit.Destination(blit.Rect{Width: f.Width, Height: f.Height}, s, geom)
	test.ExpectInequality(t, top+h > geom.Height, true)
}

func TestContract(t *testing.T) {
	geom := panel.ILI9341
	f := pattern(100, 100)
	g := newGram(geom)
	s := blit.Reset(geom, f.Width, f.Height)

	err := blit.Blit(g, f, blit.Rect{Left: 90, Width: 20, Height: 1}, s, geom)
	test.ExpectFailure(t, err)

	err = blit.Blit(g, f, blit.Rect{Width: 1, Height: 1}, blit.Scale{}, geom)
	test.ExpectFailure(t, err)
}
