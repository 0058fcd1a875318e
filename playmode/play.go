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

package playmode

import (
	"os"
	"os/signal"
	"time"

	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/gui"
	"github.com/jetsetilly/spipanel/logger"
	"github.com/jetsetilly/spipanel/performance/limiter"
	"github.com/jetsetilly/spipanel/presenter"
)

// PlayError is the pattern for errors returned by Play().
const PlayError = "playmode: %v"

// how often events are checked when paused and uncapped
const pausedInterval = 10 * time.Millisecond

type playmode struct {
	src  Source
	disp Display
	cfg  Config

	pres *presenter.Presenter
	lmtr *limiter.FpsLimiter
	dbl  *presenter.Double

	events  <-chan gui.Event
	intChan chan os.Signal

	// dimensions of the frame the scale was set for
	frameW, frameH int

	fit    bool
	paused bool

	// presenting was skipped for the most recent frame
	skipped bool

	// time spent in the most recent call to Present()
	elapsed time.Duration

	presented  int
	lastReport time.Time
}

// Play runs the source until a quit event is received, the process is
// interrupted or the requested number of frames have been presented. Events
// can be nil.
func Play(src Source, disp Display, events <-chan gui.Event, cfg Config) (rerr error) {
	pl := &playmode{
		src:        src,
		disp:       disp,
		cfg:        cfg,
		events:     events,
		fit:        cfg.Fit,
		lastReport: time.Now(),
	}

	pl.pres = presenter.New(disp, presenter.Config{
		Diff:     cfg.Diff,
		Timeout:  cfg.Timeout,
		Recorder: cfg.Recorder,
	})
	defer func() {
		err := pl.pres.Close()
		if rerr == nil && err != nil {
			rerr = curated.Errorf(PlayError, err)
		}
		logger.Logf(logger.Allow, "playmode", "%s", pl.pres.Stats())
		logger.Logf(logger.Allow, "playmode", "%s", pl.disp.Stats())
	}()

	if !cfg.Uncapped {
		var err error
		pl.lmtr, err = limiter.NewFPSLimiter(src.RefreshRate())
		if err != nil {
			return curated.Errorf(PlayError, err)
		}
		defer pl.lmtr.Close()
	}

	pl.dbl = presenter.NewDouble(src.NewFrame(), src.NewFrame())

	// ctrl-c ends the loop cleanly so that the presenter and the recorder are
	// closed properly
	pl.intChan = make(chan os.Signal, 1)
	signal.Notify(pl.intChan, os.Interrupt)
	defer signal.Stop(pl.intChan)

	for pl.cfg.Frames == 0 || pl.presented < pl.cfg.Frames {
		if err := pl.eventHandler(); err != nil {
			if curated.Is(err, quitEvent) {
				return nil
			}
			return curated.Errorf(PlayError, err)
		}

		if pl.lmtr != nil {
			pl.lmtr.Wait()
		}

		if pl.paused {
			if pl.lmtr == nil {
				time.Sleep(pausedInterval)
			}
			continue
		}

		if err := pl.frame(); err != nil {
			return curated.Errorf(PlayError, err)
		}

		pl.report()
	}

	return nil
}

// draw and present one frame
func (pl *playmode) frame() error {
	cur := pl.dbl.Current()
	pl.src.Draw(cur)

	if cur.Width != pl.frameW || cur.Height != pl.frameH {
		if err := pl.rescale(cur.Width, cur.Height); err != nil {
			return err
		}
	}

	// the previous present took longer than a frame. skip this one unless
	// the previous frame was also skipped
	if pl.lmtr != nil && !pl.skipped && pl.elapsed > pl.lmtr.FrameTime() {
		pl.skipped = true
		pl.elapsed = 0
		pl.pres.Skip()
		return nil
	}
	pl.skipped = false

	start := time.Now()
	if err := pl.pres.Present(cur, pl.dbl.Previous()); err != nil {
		return err
	}
	pl.elapsed = time.Since(start)

	pl.dbl.Swap()
	pl.presented++

	if pl.cfg.Sync {
		if err := pl.pres.Wait(); err != nil {
			return err
		}
		if pl.cfg.OnFrame != nil {
			pl.cfg.OnFrame(pl.presented)
		}
	}

	return nil
}

// set the scale for the frame size. the panel is blanked because the new
// scale may not cover the area of the old one
func (pl *playmode) rescale(width, height int) error {
	if err := pl.pres.Wait(); err != nil {
		return err
	}

	if pl.fit {
		pl.disp.SetScale(width, height, pl.src.Aspect())
	} else {
		pl.disp.ResetScale(width, height)
	}
	pl.frameW = width
	pl.frameH = height

	if err := pl.disp.Blank(); err != nil {
		return err
	}
	pl.dbl.Invalidate()

	return nil
}

func (pl *playmode) report() {
	if pl.cfg.Report <= 0 || time.Since(pl.lastReport) < pl.cfg.Report {
		return
	}
	pl.lastReport = time.Now()
	logger.Logf(logger.Allow, "playmode", "%s", pl.pres.Stats())
}
