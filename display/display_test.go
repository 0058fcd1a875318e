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

package display_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/display"
	"github.com/jetsetilly/spipanel/framebuffer"
	"github.com/jetsetilly/spipanel/panel"
	"github.com/jetsetilly/spipanel/simpanel"
	"github.com/jetsetilly/spipanel/test"
)

func newPipeline(t *testing.T, cfg display.Config) (*display.Pipeline, *simpanel.Panel) {
	t.Helper()

	sim := simpanel.NewPanel(cfg.Geometry)
	pl, err := display.NewPipeline(sim, sim.Hook, cfg, display.Collaborators{
		Backlight: sim,
		Power:     sim,
	})
	test.DemandSuccess(t, err)
	t.Cleanup(func() { _ = pl.Close() })

	return pl, sim
}

func indexedFrame(w, h int) *framebuffer.Frame {
	pal := []panel.Native{
		panel.Black, panel.White, panel.Red, panel.Green,
		panel.Blue, panel.RGB(0xff, 0xff, 0), panel.RGB(0, 0xff, 0xff), panel.RGB(0xff, 0, 0xff),
	}
	f := framebuffer.NewIndexed(w, h, 0x07, pal)
	for y := range h {
		for x := range w {
			f.Set(x, y, uint8((x/8+y/8)%8))
		}
	}
	return f
}

// compare every panel pixel with the nearest source pixel under the scale
func expectScaled(t *testing.T, sim *simpanel.Panel, f *framebuffer.Frame) {
	t.Helper()

	geom := sim.Geometry()
	gram, _ := sim.Snapshot()
	for y := range geom.Height {
		for x := range geom.Width {
			sx := x * f.Width / geom.Width
			sy := y * f.Height / geom.Height
			if gram[y*geom.Width+x] != f.Sample(sx, sy) {
				t.Fatalf("pixel %d,%d: got %s want %s", x, y, gram[y*geom.Width+x], f.Sample(sx, sy))
			}
		}
	}
}

func TestWriteFullFrame(t *testing.T) {
	pl, sim := newPipeline(t, display.DefaultConfig(panel.ILI9341))
	geom := pl.Geometry()

	pix := make([]uint16, geom.Pixels())
	for i := range pix {
		pix[i] = uint16(i * 31)
	}
	test.ExpectSuccess(t, pl.WriteFullFrame(pix))

	gram, _ := sim.Snapshot()
	for i := range pix {
		if gram[i] != panel.FromRGB565(pix[i]) {
			t.Fatalf("pixel %d: got %s want %s", i, gram[i], panel.FromRGB565(pix[i]))
		}
	}

	test.ExpectEquality(t, sim.Acquired(), false)
}

func TestScaledEndToEnd(t *testing.T) {
	pl, sim := newPipeline(t, display.DefaultConfig(panel.ILI9341))

	cur := indexedFrame(256, 192)
	pl.SetScale(cur.Width, cur.Height, 1.0)

	s := pl.Scale()
	test.ExpectApproximate(t, s.XScale, 1.25, 0.0001)
	test.ExpectApproximate(t, s.YScale, 1.25, 0.0001)
	test.ExpectEquality(t, s.XOrigin, 0)
	test.ExpectEquality(t, s.YOrigin, 0)

	written, err := pl.WriteFrameAdaptive(cur, nil)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, written, true)
	expectScaled(t, sim, cur)
	test.ExpectEquality(t, sim.Stats().Acquisitions, 1)

	// a small change is sent in polling mode
	prev := cur
	cur = prev.Clone()
	cur.Set(100, 100, 5)
	written, err = pl.WriteFrameAdaptive(cur, prev)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, written, true)
	expectScaled(t, sim, cur)

	st := pl.Stats()
	test.ExpectEquality(t, st.Frames, int64(2))
	test.ExpectEquality(t, st.FullFrames, int64(1))
	test.ExpectEquality(t, st.PolledRuns, int64(1))
	test.ExpectEquality(t, st.QueuedRuns, int64(1))

	// a band of large changes is sent in queued mode
	prev = cur
	cur = prev.Clone()
	for y := 20; y < 40; y++ {
		for x := range cur.Width {
			cur.Set(x, y, 6)
		}
	}
	_, err = pl.WriteFrameAdaptive(cur, prev)
	test.ExpectSuccess(t, err)
	expectScaled(t, sim, cur)
	test.ExpectEquality(t, pl.Stats().QueuedRuns, int64(2))
}

func TestUnchanged(t *testing.T) {
	pl, sim := newPipeline(t, display.DefaultConfig(panel.ILI9341))

	f := indexedFrame(panel.ILI9341.Width, panel.ILI9341.Height)
	_, err := pl.WriteFrameAdaptive(f, nil)
	test.ExpectSuccess(t, err)
	gen := sim.Generation()
	transfers := sim.Stats().Transfers

	written, err := pl.WriteFrameAdaptive(f, f)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, written, false)
	test.ExpectEquality(t, sim.Generation(), gen)
	test.ExpectEquality(t, sim.Stats().Transfers, transfers)
	test.ExpectEquality(t, pl.Stats().Unchanged, int64(1))
}

// when a write returns every byte has been transferred
func TestDrainOrdering(t *testing.T) {
	cfg := display.DefaultConfig(panel.Geometry{Width: 64, Height: 48})
	pl, sim := newPipeline(t, cfg)
	sim.SetLatency(time.Microsecond)

	f := framebuffer.NewRGB565(64, 48)
	for y := range 48 {
		for x := range 64 {
			f.SetRGB565(x, y, uint16(x*y+1))
		}
	}

	for range 3 {
		_, err := pl.WriteFrameAdaptive(f, nil)
		test.ExpectSuccess(t, err)
		test.ExpectEquality(t, sim.InFlight(), 0)
		test.ExpectEquality(t, sim.Pixel(63, 47), f.Sample(63, 47))
	}
}

func TestNilMeansBlank(t *testing.T) {
	pl, sim := newPipeline(t, display.DefaultConfig(panel.Geometry{Width: 32, Height: 20}))

	test.ExpectSuccess(t, pl.Fill(panel.White))
	test.ExpectEquality(t, sim.Pixel(31, 19), panel.White)

	test.ExpectSuccess(t, pl.WriteFrameScaled(nil, nil))
	test.ExpectEquality(t, sim.Pixel(31, 19), panel.Black)

	test.ExpectSuccess(t, pl.Fill(panel.White))
	written, err := pl.WriteFrameAdaptive(nil, nil)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, written, true)
	test.ExpectEquality(t, sim.Pixel(0, 0), panel.Black)

	test.ExpectSuccess(t, pl.Fill(panel.White))
	test.ExpectSuccess(t, pl.WriteRegion(4, 4, 2, 2, nil))
	test.ExpectEquality(t, sim.Pixel(10, 10), panel.Black)
}

func TestWriteRegion(t *testing.T) {
	pl, sim := newPipeline(t, display.DefaultConfig(panel.ILI9341))

	pix := []uint16{
		0x1111, 0x2222, 0x3333,
		0x4444, 0x5555, 0x6666,
	}
	test.ExpectSuccess(t, pl.WriteRegion(10, 20, 3, 2, pix))
	test.ExpectEquality(t, sim.Pixel(10, 20), panel.FromRGB565(0x1111))
	test.ExpectEquality(t, sim.Pixel(12, 20), panel.FromRGB565(0x3333))
	test.ExpectEquality(t, sim.Pixel(10, 21), panel.FromRGB565(0x4444))
	test.ExpectEquality(t, sim.Pixel(12, 21), panel.FromRGB565(0x6666))
	test.ExpectEquality(t, sim.Pixel(13, 20), panel.Black)

	// a single row reuses the wider window
	test.ExpectSuccess(t, pl.WriteRegion(10, 30, 2, 1, []uint16{0x7777, 0x8888}))
	test.ExpectEquality(t, sim.Pixel(10, 30), panel.FromRGB565(0x7777))
	test.ExpectEquality(t, sim.Pixel(11, 30), panel.FromRGB565(0x8888))
	test.ExpectEquality(t, sim.Pixel(12, 30), panel.Black)
}

func TestWindowCommands(t *testing.T) {
	pl, sim := newPipeline(t, display.DefaultConfig(panel.ILI9341))

	test.ExpectSuccess(t, pl.Fill(panel.Red))
	test.ExpectSuccess(t, pl.Fill(panel.Blue))

	cmds := sim.Stats().Commands
	test.ExpectEquality(t, cmds[panel.ColumnAddressSet], 1)
	test.ExpectEquality(t, cmds[panel.PageAddressSet], 1)
	test.ExpectEquality(t, cmds[panel.MemoryWrite], 2)
	test.ExpectEquality(t, cmds[panel.MemoryWriteContinue], 2)
	test.ExpectEquality(t, sim.Pixel(319, 239), panel.Blue)
}

func TestContractErrorIsSticky(t *testing.T) {
	pl, _ := newPipeline(t, display.DefaultConfig(panel.ILI9341))

	err := pl.WriteRegion(-1, 0, 10, 10, []uint16{})
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, curated.Is(err, display.ContractError), true)
	test.ExpectEquality(t, display.IsFatal(err), true)

	err = pl.WriteRegion(0, 0, 0, 10, nil)
	test.ExpectFailure(t, err)

	err = pl.Fill(panel.Red)
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, curated.Is(err, display.FaultError), true)
	test.ExpectEquality(t, curated.Has(err, display.ContractError), true)
	test.ExpectEquality(t, display.IsFatal(err), true)
}

func TestRegionLargerThanPanel(t *testing.T) {
	pl, _ := newPipeline(t, display.DefaultConfig(panel.Geometry{Width: 16, Height: 16}))
	err := pl.WriteRegion(10, 0, 10, 1, make([]uint16, 10))
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, curated.Is(err, display.ContractError), true)
}

func TestBusFault(t *testing.T) {
	pl, sim := newPipeline(t, display.DefaultConfig(panel.Geometry{Width: 32, Height: 20}))

	sim.FailAfter(3)
	err := pl.Fill(panel.Green)
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, display.IsFatal(err), true)

	err = pl.Fill(panel.Green)
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, curated.Is(err, display.FaultError), true)
}

func TestLockTimeout(t *testing.T) {
	cfg := display.DefaultConfig(panel.Geometry{Width: 32, Height: 20})
	cfg.Timeout = 20 * time.Millisecond
	pl, _ := newPipeline(t, cfg)

	s, err := pl.Lock()
	test.DemandSuccess(t, err)

	err = pl.Fill(panel.Red)
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, curated.Is(err, display.LockError), true)
	test.ExpectEquality(t, display.IsFatal(err), true)

	err = s.Unlock()
	test.ExpectEquality(t, curated.Is(err, display.FaultError), true)

	// a session can only be unlocked once
	test.ExpectFailure(t, s.Unlock())
}

func TestSession(t *testing.T) {
	pl, sim := newPipeline(t, display.DefaultConfig(panel.ILI9341))

	s, err := pl.Lock()
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, s.Fill(panel.White))
	test.ExpectSuccess(t, s.WriteCentered(2, 2, []uint16{0xf800, 0xf800, 0xf800, 0xf800}))
	test.ExpectSuccess(t, s.Unlock())

	test.ExpectEquality(t, sim.Pixel(159, 119), panel.Red)
	test.ExpectEquality(t, sim.Pixel(160, 120), panel.Red)
	test.ExpectEquality(t, sim.Pixel(158, 119), panel.White)

	test.ExpectFailure(t, s.Fill(panel.Black))
}

func TestErrorScreens(t *testing.T) {
	pl, sim := newPipeline(t, display.DefaultConfig(panel.ILI9341))

	test.ExpectSuccess(t, pl.ShowError(display.GeneralError))
	test.ExpectEquality(t, sim.Pixel(0, 0), panel.Red)
	test.ExpectEquality(t, sim.Pixel(160, 120), panel.Red)

	test.ExpectSuccess(t, pl.ShowError(display.StorageError))
	test.ExpectEquality(t, sim.Pixel(0, 0), panel.White)
	test.ExpectEquality(t, sim.Pixel(136+20, 96+30), panel.Red)

	test.ExpectSuccess(t, pl.Blank())
	test.ExpectSuccess(t, pl.ShowHourglass())
	test.ExpectEquality(t, sim.Pixel(0, 0), panel.Black)
	test.ExpectEquality(t, sim.Pixel(136+24, 96+6), panel.Black)
	test.ExpectEquality(t, sim.Pixel(136+24, 96+12), panel.White)
}

func TestClose(t *testing.T) {
	pl, sim := newPipeline(t, display.DefaultConfig(panel.ILI9341))

	test.ExpectSuccess(t, pl.Close())
	test.ExpectSuccess(t, pl.Close())

	test.ExpectEquality(t, sim.DisplayOff(), true)
	test.ExpectEquality(t, sim.Asleep(), true)
	test.ExpectEquality(t, sim.Backlight(), 0)
	test.ExpectEquality(t, sim.Powered(), false)

	err := pl.Fill(panel.Red)
	test.ExpectEquality(t, curated.Is(err, display.ClosedError), true)
}

func TestBacklight(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "prefs")
	p, err := display.NewPreferences(fn)
	test.DemandSuccess(t, err)

	sim := simpanel.NewPanel(panel.ILI9341)
	pl, err := display.NewPipeline(sim, sim.Hook, p.Config(panel.ILI9341), display.Collaborators{
		Backlight:   sim,
		Preferences: p,
	})
	test.DemandSuccess(t, err)
	defer pl.Close()

	test.ExpectEquality(t, pl.Backlight(), panel.DefaultBacklight)
	test.ExpectEquality(t, sim.Backlight(), panel.BacklightLevels[panel.DefaultBacklight])

	test.ExpectSuccess(t, pl.SetBacklight(99))
	test.ExpectEquality(t, pl.Backlight(), len(panel.BacklightLevels)-1)
	test.ExpectEquality(t, sim.Backlight(), 100)

	test.ExpectSuccess(t, pl.SetBacklight(-3))
	test.ExpectEquality(t, pl.Backlight(), 0)
	test.ExpectEquality(t, sim.Backlight(), 10)

	// the level was saved
	q, err := display.NewPreferences(fn)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, q.Backlight.Get().(int), 0)
}

func TestPreferences(t *testing.T) {
	p, err := display.NewPreferences(filepath.Join(t.TempDir(), "prefs"))
	test.DemandSuccess(t, err)

	cfg := p.Config(panel.ILI9341)
	def := display.DefaultConfig(panel.ILI9341)
	test.ExpectEquality(t, cfg, def)

	test.ExpectSuccess(t, p.LineCount.Set(0))
	_, err = display.NewPipeline(simpanel.NewPanel(panel.ILI9341), nil, p.Config(panel.ILI9341), display.Collaborators{})
	test.ExpectFailure(t, err)
}
