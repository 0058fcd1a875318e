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

// Package presenter hands frames from a producer, such as an emulator, to the
// display pipeline. The frame is compared with the previous frame in the
// producer's goroutine and the changes are written to the panel by a
// background goroutine, so that the producer can start work on the next
// frame while the current frame is being sent.
//
// Only one frame is in progress at any time. Present() blocks until the
// previous frame has reached the panel.
package presenter

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/diff"
	"github.com/jetsetilly/spipanel/framebuffer"
	"github.com/jetsetilly/spipanel/framestats"
	"github.com/jetsetilly/spipanel/logger"
)

// Sentinal error patterns.
const (
	StallError  = "presenter: previous frame not complete after %v"
	ClosedError = "presenter: closed"
)

// Writer is the destination for frames. Implemented by display.Pipeline.
type Writer interface {
	WriteFrameScaled(frame *framebuffer.Frame, runs []diff.Run) error
}

// Recorder receives a sample for every presented frame. Implemented by
// framestats.Recorder.
type Recorder interface {
	Record(s framestats.Sample)
}

// Config for a new Presenter.
type Config struct {
	Diff diff.Config

	// how long Present() waits for the previous frame
	Timeout time.Duration

	// can be nil
	Recorder Recorder
}

// Stats for the life of the presenter.
type Stats struct {
	// frames passed to Present()
	Frames int64

	// frames written in full
	Full int64

	// frames that had no changes
	Unchanged int64

	// frames skipped by the producer
	Skipped int64

	// frames per second measured over the most recent second
	FPS float64
}

func (s Stats) String() string {
	return fmt.Sprintf("%.1f fps (frames=%d full=%d unchanged=%d skipped=%d)", s.FPS, s.Frames, s.Full, s.Unchanged, s.Skipped)
}

type update struct {
	frame  *framebuffer.Frame
	runs   []diff.Run
	sample framestats.Sample
}

// Presenter is the hand-over point between the producer and the display.
type Presenter struct {
	w   Writer
	cfg Config

	// a token in busy means a frame is in progress
	busy  chan struct{}
	queue chan update

	// the runs slice is only touched while holding the busy token
	runs []diff.Run

	crit sync.Mutex
	err  error

	frames    atomic.Int64
	full      atomic.Int64
	unchanged atomic.Int64
	skipped   atomic.Int64

	// fps measurement
	measureCrit   sync.Mutex
	measureStart  time.Time
	measureFrames int
	fps           float64

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New is the preferred method of initialisation for the Presenter type. The
// background goroutine is started immediately.
func New(w Writer, cfg Config) *Presenter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}

	p := &Presenter{
		w:            w,
		cfg:          cfg,
		busy:         make(chan struct{}, 1),
		queue:        make(chan update, 1),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		measureStart: time.Now(),
	}

	go p.run()

	return p
}

// Err returns the latched error.
func (p *Presenter) Err() error {
	p.crit.Lock()
	defer p.crit.Unlock()
	return p.err
}

func (p *Presenter) latch(err error) error {
	p.crit.Lock()
	defer p.crit.Unlock()
	if p.err == nil {
		p.err = err
		logger.Log(logger.Allow, "presenter", err)
	}
	return err
}

// take the busy token. fails if the previous frame is not complete within the
// timeout
func (p *Presenter) take() error {
	select {
	case <-p.done:
		return curated.Errorf(ClosedError)
	case p.busy <- struct{}{}:
		return nil
	default:
	}

	t := time.NewTimer(p.cfg.Timeout)
	defer t.Stop()

	select {
	case <-p.done:
		return curated.Errorf(ClosedError)
	case p.busy <- struct{}{}:
		return nil
	case <-t.C:
		return p.latch(curated.Errorf(StallError, p.cfg.Timeout))
	}
}

// Present compares the frame with the previous frame and queues the changes
// for writing. A nil previous frame causes the entire frame to be written.
//
// The previous frame is not referenced once Present() returns. The current
// frame must not be changed until the next call to Present() or Wait().
//
// A nil frame, or a frame with nil pixels, blanks the panel. An invalid frame
// is a fatal error and nothing is queued.
func (p *Presenter) Present(cur, prev *framebuffer.Frame) error {
	if err := p.Err(); err != nil {
		return err
	}

	// an absent buffer blanks the panel. anything else must be a valid frame
	// before it can be compared
	absent := cur == nil || cur.Pix == nil
	if !absent {
		if err := cur.Validate(); err != nil {
			return p.latch(err)
		}
		if prev != nil {
			if err := prev.Validate(); err != nil {
				return p.latch(err)
			}
		}
	}

	if err := p.take(); err != nil {
		return err
	}

	p.frames.Add(1)

	s := framestats.Sample{
		Frame: p.frames.Load(),
		Time:  time.Now(),
	}

	var runs []diff.Run
	if !absent {
		p.runs = diff.Diff(cur, prev, p.cfg.Diff, p.runs)
		runs = p.runs
		s.Changed = diff.Changed(runs)
		_ = diff.Visit(runs, func(_ diff.Run) error {
			s.Runs++
			return nil
		})
		s.Full = diff.IsFull(runs, cur.Width, cur.Height)
		s.Unchanged = s.Changed == 0
	}

	if s.Full {
		p.full.Add(1)
	}

	if s.Unchanged {
		p.unchanged.Add(1)
		p.measure()
		p.record(s)
		<-p.busy
		return nil
	}

	p.queue <- update{frame: cur, runs: runs, sample: s}

	return nil
}

// Skip counts a frame that the producer decided not to present.
func (p *Presenter) Skip() {
	p.skipped.Add(1)
}

// Wait blocks until the most recently presented frame has reached the panel.
func (p *Presenter) Wait() error {
	if err := p.take(); err != nil {
		return err
	}
	<-p.busy
	return p.Err()
}

func (p *Presenter) record(s framestats.Sample) {
	if p.cfg.Recorder != nil {
		p.cfg.Recorder.Record(s)
	}
}

func (p *Presenter) measure() {
	p.measureCrit.Lock()
	defer p.measureCrit.Unlock()

	p.measureFrames++
	if el := time.Since(p.measureStart); el >= time.Second {
		p.fps = float64(p.measureFrames) / el.Seconds()
		p.measureFrames = 0
		p.measureStart = time.Now()
	}
}

// Stats returns the presenter statistics.
func (p *Presenter) Stats() Stats {
	p.measureCrit.Lock()
	fps := p.fps
	p.measureCrit.Unlock()

	return Stats{
		Frames:    p.frames.Load(),
		Full:      p.full.Load(),
		Unchanged: p.unchanged.Load(),
		Skipped:   p.skipped.Load(),
		FPS:       fps,
	}
}

func (p *Presenter) run() {
	defer close(p.done)

	for {
		select {
		case u := <-p.queue:
			// a write is not attempted once an error has occurred but the
			// busy token must still be returned
			if p.Err() == nil {
				err := p.w.WriteFrameScaled(u.frame, u.runs)
				if err != nil {
					p.latch(err)
				}
			}
			u.sample.Write = time.Since(u.sample.Time)
			p.measure()
			p.record(u.sample)
			<-p.busy

		case <-p.quit:
			return
		}
	}
}

// Close waits for the frame in progress and stops the background goroutine.
// Returns the latched error if any.
func (p *Presenter) Close() error {
	p.closeOnce.Do(func() {
		_ = p.Wait()
		close(p.quit)
		<-p.done
	})
	return p.Err()
}
