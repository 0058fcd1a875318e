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

package presenter_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/diff"
	"github.com/jetsetilly/spipanel/display"
	"github.com/jetsetilly/spipanel/framebuffer"
	"github.com/jetsetilly/spipanel/framestats"
	"github.com/jetsetilly/spipanel/panel"
	"github.com/jetsetilly/spipanel/presenter"
	"github.com/jetsetilly/spipanel/simpanel"
	"github.com/jetsetilly/spipanel/test"
)

type call struct {
	frame *framebuffer.Frame
	runs  []diff.Run
}

type writer struct {
	crit  sync.Mutex
	calls []call
	gate  chan struct{}
	err   error
}

func (w *writer) WriteFrameScaled(frame *framebuffer.Frame, runs []diff.Run) error {
	if w.gate != nil {
		<-w.gate
	}
	w.crit.Lock()
	defer w.crit.Unlock()
	w.calls = append(w.calls, call{frame: frame, runs: append([]diff.Run(nil), runs...)})
	return w.err
}

func (w *writer) count() int {
	w.crit.Lock()
	defer w.crit.Unlock()
	return len(w.calls)
}

type recorder struct {
	crit    sync.Mutex
	samples []framestats.Sample
}

func (r *recorder) Record(s framestats.Sample) {
	r.crit.Lock()
	defer r.crit.Unlock()
	r.samples = append(r.samples, s)
}

func frame() *framebuffer.Frame {
	return framebuffer.NewIndexed(32, 16, 0x03, []panel.Native{panel.Black, panel.White, panel.Red, panel.Green})
}

func TestPresent(t *testing.T) {
	w := &writer{}
	rec := &recorder{}
	p := presenter.New(w, presenter.Config{Diff: diff.DefaultConfig, Recorder: rec})

	a := frame()
	test.ExpectSuccess(t, p.Present(a, nil))

	b := a.Clone()
	b.Set(3, 4, 2)
	test.ExpectSuccess(t, p.Present(b, a))

	// nothing changed
	test.ExpectSuccess(t, p.Present(b, b))
	test.ExpectSuccess(t, p.Wait())

	test.DemandEquality(t, w.count(), 2)
	test.ExpectEquality(t, diff.IsFull(w.calls[0].runs, 32, 16), true)
	test.ExpectEquality(t, w.calls[1].frame, b)
	test.ExpectEquality(t, w.calls[1].runs[4], diff.Run{Top: 4, Left: 3, Width: 1, Repeat: 1})

	p.Skip()

	st := p.Stats()
	test.ExpectEquality(t, st.Frames, int64(3))
	test.ExpectEquality(t, st.Full, int64(1))
	test.ExpectEquality(t, st.Unchanged, int64(1))
	test.ExpectEquality(t, st.Skipped, int64(1))

	test.ExpectSuccess(t, p.Close())

	rec.crit.Lock()
	defer rec.crit.Unlock()
	test.DemandEquality(t, len(rec.samples), 3)
	test.ExpectEquality(t, rec.samples[0].Full, true)
	test.ExpectEquality(t, rec.samples[1].Changed, 1)
	test.ExpectEquality(t, rec.samples[1].Runs, 1)
}

func TestStall(t *testing.T) {
	w := &writer{gate: make(chan struct{})}
	p := presenter.New(w, presenter.Config{Diff: diff.DefaultConfig, Timeout: 20 * time.Millisecond})

	test.ExpectSuccess(t, p.Present(frame(), nil))

	err := p.Present(frame(), nil)
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, curated.Is(err, presenter.StallError), true)

	close(w.gate)

	// the error is latched
	err = p.Close()
	test.ExpectEquality(t, curated.Is(err, presenter.StallError), true)
}

func TestWriterError(t *testing.T) {
	w := &writer{err: errors.New("broken")}
	p := presenter.New(w, presenter.Config{Diff: diff.DefaultConfig})
	defer p.Close()

	test.ExpectSuccess(t, p.Present(frame(), nil))
	test.ExpectFailure(t, p.Wait())
	test.ExpectFailure(t, p.Present(frame(), nil))
	test.ExpectEquality(t, w.count(), 1)
}

func TestDouble(t *testing.T) {
	a := frame()
	b := frame()
	d := presenter.NewDouble(a, b)

	test.ExpectEquality(t, d.Current(), a)
	test.ExpectEquality(t, d.Previous(), (*framebuffer.Frame)(nil))

	d.Swap()
	test.ExpectEquality(t, d.Current(), b)
	test.ExpectEquality(t, d.Previous(), a)

	d.Swap()
	test.ExpectEquality(t, d.Current(), a)
	test.ExpectEquality(t, d.Previous(), b)

	d.Invalidate()
	test.ExpectEquality(t, d.Previous(), (*framebuffer.Frame)(nil))
}

// a producer drawing into a double buffer, presenting through the display
// pipeline to the simulated panel
func TestEndToEnd(t *testing.T) {
	geom := panel.Geometry{Width: 64, Height: 32}
	sim := simpanel.NewPanel(geom)
	pl, err := display.NewPipeline(sim, sim.Hook, display.DefaultConfig(geom), display.Collaborators{})
	test.DemandSuccess(t, err)
	defer pl.Close()

	pl.SetScale(32, 16, 1.0)

	p := presenter.New(pl, presenter.Config{Diff: diff.DefaultConfig})
	d := presenter.NewDouble(frame(), frame())

	for i := range 10 {
		cur := d.Current()
		for y := range cur.Height {
			for x := range cur.Width {
				cur.Set(x, y, 0)
			}
		}
		cur.Set(i, i%16, 2)
		cur.Set(31-i, 15-i%16, 3)

		test.ExpectSuccess(t, p.Present(cur, d.Previous()))
		d.Swap()
	}
	test.ExpectSuccess(t, p.Close())

	last := d.Previous()
	for y := range geom.Height {
		for x := range geom.Width {
			want := last.Sample(x/2, y/2)
			if sim.Pixel(x, y) != want {
				t.Fatalf("pixel %d,%d: got %s want %s", x, y, sim.Pixel(x, y), want)
			}
		}
	}
}

func TestAbsentFrame(t *testing.T) {
	geom := panel.Geometry{Width: 32, Height: 16}
	sim := simpanel.NewPanel(geom)
	pl, err := display.NewPipeline(sim, sim.Hook, display.DefaultConfig(geom), display.Collaborators{})
	test.DemandSuccess(t, err)
	defer pl.Close()

	p := presenter.New(pl, presenter.Config{Diff: diff.DefaultConfig})
	defer p.Close()

	// paint the panel red
	cur := frame()
	for y := range cur.Height {
		for x := range cur.Width {
			cur.Set(x, y, 2)
		}
	}
	test.ExpectSuccess(t, p.Present(cur, nil))
	test.ExpectSuccess(t, p.Wait())
	test.ExpectEquality(t, sim.Pixel(5, 5), panel.Red)

	// a frame with no pixels blanks the panel
	absent := frame()
	absent.Pix = nil
	test.ExpectSuccess(t, p.Present(absent, cur))
	test.ExpectSuccess(t, p.Wait())
	test.ExpectEquality(t, sim.Pixel(5, 5), panel.Black)
	test.ExpectEquality(t, sim.Pixel(31, 15), panel.Black)

	// as does a nil frame
	test.ExpectSuccess(t, p.Present(nil, nil))
	test.ExpectSuccess(t, p.Wait())
	test.ExpectEquality(t, p.Stats().Frames, int64(3))
}

func TestInvalidFrame(t *testing.T) {
	w := &writer{}
	p := presenter.New(w, presenter.Config{Diff: diff.DefaultConfig})

	// a buffer too short for the frame is never compared or written
	short := frame()
	short.Pix = short.Pix[:20]
	err := p.Present(short, nil)
	test.ExpectFailure(t, err)
	test.ExpectSuccess(t, curated.Is(err, framebuffer.InvalidFrame))
	test.ExpectSuccess(t, display.IsFatal(err))

	// the error is latched
	test.ExpectFailure(t, p.Present(frame(), nil))
	test.ExpectFailure(t, p.Close())
	test.ExpectEquality(t, w.count(), 0)
}

func TestInvalidPrevious(t *testing.T) {
	w := &writer{}
	p := presenter.New(w, presenter.Config{Diff: diff.DefaultConfig})
	defer p.Close()

	prev := frame()
	prev.Palette = prev.Palette[:2]
	err := p.Present(frame(), prev)
	test.ExpectSuccess(t, curated.Is(err, framebuffer.InvalidFrame))
	test.ExpectEquality(t, w.count(), 0)
}
