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

// Package display is the frame update pipeline for the panel. It combines the
// line buffer pool, the transport, the window tracker, the diff engine and
// the scaled blit into a single object through which all writes to the panel
// are made.
//
// Writes happen inside a Session, which is obtained with Lock(). Most callers
// will use the convenience methods on Pipeline, which lock and unlock around
// a single write.
//
// Every error is fatal. Once an error has occurred it is latched and every
// subsequent call returns the FaultError.
package display

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jetsetilly/spipanel/blit"
	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/diff"
	"github.com/jetsetilly/spipanel/linebuf"
	"github.com/jetsetilly/spipanel/logger"
	"github.com/jetsetilly/spipanel/panel"
	"github.com/jetsetilly/spipanel/transport"
	"github.com/jetsetilly/spipanel/window"
)

// Backlight controls the brightness of the panel.
type Backlight interface {
	SetBacklight(percent int) error
}

// Power controls the supply to the panel.
type Power interface {
	PowerOff() error
}

// Collaborators are the optional services used by the Pipeline. Any field can
// be nil.
type Collaborators struct {
	Backlight Backlight
	Power     Power

	// the backlight level is saved to the preferences when it changes
	Preferences *Preferences
}

// Stats are cumulative counts for the life of the Pipeline.
type Stats struct {
	// frames written with WriteFrameScaled() or WriteFrameAdaptive()
	Frames int64

	// frames written in full
	FullFrames int64

	// frames from WriteFrameAdaptive() that had no changes
	Unchanged int64

	// runs sent in polling mode and queued mode
	PolledRuns int64
	QueuedRuns int64

	// panel pixels written by any method
	Pixels int64

	Transport transport.Stats
}

func (s Stats) String() string {
	return fmt.Sprintf("frames=%d full=%d unchanged=%d polled=%d queued=%d pixels=%d",
		s.Frames, s.FullFrames, s.Unchanged, s.PolledRuns, s.QueuedRuns, s.Pixels)
}

// Pipeline is the display pipeline for a single panel.
type Pipeline struct {
	cfg  Config
	geom panel.Geometry
	col  Collaborators

	pool *linebuf.Pool
	tx   *transport.Pipeline

	// the display lock. a token in the channel means the lock is held
	lock chan struct{}

	// the following fields are only accessed while the lock is held
	win      *window.Tracker
	runs     []diff.Run
	deferred []diff.Run

	scale atomic.Pointer[blit.Scale]

	backlight atomic.Int32

	// latched error
	crit  sync.Mutex
	fault error

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	frames     atomic.Int64
	fullFrames atomic.Int64
	unchanged  atomic.Int64
	polledRuns atomic.Int64
	queuedRuns atomic.Int64
	pixels     atomic.Int64
}

// NewPipeline is the preferred method of initialisation for the Pipeline
// type. The hook is called before every transfer to set the panel's D/C line
// and can be nil. If the bus implements transport.BusAcquirer then the bus is
// acquired for the duration of every frame.
//
// The initial scale is one-to-one for a frame the size of the panel.
func NewPipeline(bus transport.Bus, hook transport.PreTransfer, cfg Config, col Collaborators) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	pl := &Pipeline{
		cfg:  cfg,
		geom: cfg.Geometry,
		col:  col,
		lock: make(chan struct{}, 1),
		win:  window.NewTracker(cfg.Geometry),
	}

	pl.pool = linebuf.NewPool(cfg.LineBuffers, cfg.capacity(), cfg.Timeout)
	pl.tx = transport.NewPipeline(bus, hook, pl.pool, transport.Config{
		Slots:   cfg.Transactions,
		Timeout: cfg.Timeout,
	})

	pl.ResetScale(cfg.Geometry.Width, cfg.Geometry.Height)

	level := cfg.Backlight
	if col.Preferences != nil {
		level = col.Preferences.Backlight.Get().(int)
	}
	if err := pl.SetBacklight(level); err != nil {
		logger.Log(logger.Allow, "display", err)
	}

	logger.Logf(logger.Allow, "display", "pipeline: %s", cfg)

	return pl, nil
}

func (pl *Pipeline) String() string {
	return fmt.Sprintf("%s; %s; %s", pl.cfg, pl.pool, pl.tx)
}

// Geometry returns the size of the panel.
func (pl *Pipeline) Geometry() panel.Geometry {
	return pl.geom
}

// Err returns the latched fault, if any.
func (pl *Pipeline) Err() error {
	pl.crit.Lock()
	defer pl.crit.Unlock()
	if pl.fault == nil {
		return nil
	}
	return curated.Errorf(FaultError, pl.fault)
}

// fail latches the error and returns it. the first error is the one that is
// latched. a nil error is returned as nil
func (pl *Pipeline) fail(err error) error {
	if err == nil {
		return nil
	}
	pl.crit.Lock()
	defer pl.crit.Unlock()
	if pl.fault == nil {
		pl.fault = err
		logger.Log(logger.Allow, "display", err)
	}
	return err
}

// SetScale fits a frame of the specified size to the panel, preserving the
// aspect ratio of the frame's pixels.
func (pl *Pipeline) SetScale(width, height int, aspect float64) {
	s := blit.Fit(pl.geom, width, height, aspect)
	pl.scale.Store(&s)
	logger.Logf(logger.Allow, "display", "scale: %dx%d: %s", width, height, s)
}

// ResetScale centres a frame of the specified size on the panel without
// scaling.
func (pl *Pipeline) ResetScale(width, height int) {
	s := blit.Reset(pl.geom, width, height)
	pl.scale.Store(&s)
	logger.Logf(logger.Allow, "display", "scale: %dx%d: %s", width, height, s)
}

// Scale returns the current scale.
func (pl *Pipeline) Scale() blit.Scale {
	return *pl.scale.Load()
}

// SetBacklight sets the backlight to one of the levels in
// panel.BacklightLevels. An out of range level is clamped. The level is saved
// to the preferences if it has changed.
func (pl *Pipeline) SetBacklight(level int) error {
	if level < 0 {
		logger.Logf(logger.Allow, "display", "backlight level out of range (%d)", level)
		level = 0
	} else if level >= len(panel.BacklightLevels) {
		logger.Logf(logger.Allow, "display", "backlight level out of range (%d)", level)
		level = len(panel.BacklightLevels) - 1
	}

	pl.backlight.Store(int32(level))

	if p := pl.col.Preferences; p != nil && p.Backlight.Get().(int) != level {
		if err := p.Backlight.Set(level); err != nil {
			return curated.Errorf(BacklightError, err)
		}
		if err := p.Save(); err != nil {
			return curated.Errorf(BacklightError, err)
		}
	}

	if pl.col.Backlight != nil {
		if err := pl.col.Backlight.SetBacklight(panel.BacklightLevels[level]); err != nil {
			return curated.Errorf(BacklightError, err)
		}
	}

	return nil
}

// Backlight returns the current backlight level.
func (pl *Pipeline) Backlight() int {
	return int(pl.backlight.Load())
}

// Stats returns the cumulative counts.
func (pl *Pipeline) Stats() Stats {
	return Stats{
		Frames:     pl.frames.Load(),
		FullFrames: pl.fullFrames.Load(),
		Unchanged:  pl.unchanged.Load(),
		PolledRuns: pl.polledRuns.Load(),
		QueuedRuns: pl.queuedRuns.Load(),
		Pixels:     pl.pixels.Load(),
		Transport:  pl.tx.Stats(),
	}
}

// Close waits for any outstanding transfers, puts the panel to sleep, turns
// off the backlight and the power, and stops the transport. It is safe to
// call more than once.
//
// The panel commands are not sent if the pipeline has faulted.
func (pl *Pipeline) Close() error {
	pl.closeOnce.Do(func() {
		var errs []error

		s, err := pl.Lock()
		if err == nil {
			if err := s.sleep(); err != nil {
				errs = append(errs, err)
			}
			if err := s.Unlock(); err != nil {
				errs = append(errs, err)
			}
		}
		pl.closed.Store(true)

		if pl.col.Backlight != nil {
			if err := pl.col.Backlight.SetBacklight(0); err != nil {
				errs = append(errs, curated.Errorf(BacklightError, err))
			}
		}

		if pl.col.Power != nil {
			if err := pl.col.Power.PowerOff(); err != nil {
				errs = append(errs, curated.Errorf(PowerError, err))
			}
		}

		if err := pl.tx.Close(); err != nil {
			errs = append(errs, err)
		}

		if len(errs) > 0 {
			pl.closeErr = errs[0]
		}

		logger.Logf(logger.Allow, "display", "closed: %s", pl.Stats())
	})
	return pl.closeErr
}
