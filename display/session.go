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

package display

import (
	"fmt"
	"time"

	"github.com/jetsetilly/spipanel/blit"
	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/diff"
	"github.com/jetsetilly/spipanel/framebuffer"
	"github.com/jetsetilly/spipanel/linebuf"
	"github.com/jetsetilly/spipanel/panel"
)

// Session is the holder of the display lock. Only one session exists at a
// time. A Session must not be used after Unlock() and must not be shared
// between goroutines.
type Session struct {
	pl       *Pipeline
	unlocked bool
}

// Lock the display. Blocks until the lock is free or the timeout in the
// configuration has elapsed. Failing to acquire the lock is a fatal error.
func (pl *Pipeline) Lock() (*Session, error) {
	if pl.closed.Load() {
		return nil, curated.Errorf(ClosedError)
	}
	if err := pl.Err(); err != nil {
		return nil, err
	}

	select {
	case pl.lock <- struct{}{}:
	default:
		t := time.NewTimer(pl.cfg.Timeout)
		defer t.Stop()
		select {
		case pl.lock <- struct{}{}:
		case <-t.C:
			return nil, pl.fail(curated.Errorf(LockError, pl.cfg.Timeout))
		}
	}

	return &Session{pl: pl}, nil
}

// Unlock waits for every transfer made during the session to complete and
// then releases the display lock. When Unlock() returns every pixel written
// in the session has been sent to the panel.
func (s *Session) Unlock() error {
	if s.unlocked {
		return s.pl.fail(curated.Errorf(ContractError, "session unlocked twice"))
	}
	s.unlocked = true

	err := s.pl.fail(s.pl.tx.Drain())
	<-s.pl.lock

	if err != nil {
		return err
	}
	return s.pl.Err()
}

// check that the session can be used
func (s *Session) check() error {
	if s.unlocked {
		return s.pl.fail(curated.Errorf(ContractError, "session used after unlock"))
	}
	return s.pl.Err()
}

// Window implements the blit.Sink interface. It sets the panel window and
// starts a memory write. The addressing commands are only sent if the window
// has changed.
func (s *Session) Window(left, top, width, height int) error {
	pl := s.pl

	col, page := pl.win.Update(left, top, width, height)

	if col.Needed {
		if err := pl.tx.Command(panel.ColumnAddressSet); err != nil {
			return err
		}
		if err := pl.tx.Data(col.Args()); err != nil {
			return err
		}
	}

	if page.Needed {
		if err := pl.tx.Command(panel.PageAddressSet); err != nil {
			return err
		}
		if err := pl.tx.Data(page.Args()); err != nil {
			return err
		}
	}

	if err := pl.tx.Command(panel.MemoryWrite); err != nil {
		return err
	}
	if height > 1 {
		if err := pl.tx.Command(panel.MemoryWriteContinue); err != nil {
			return err
		}
	}

	return nil
}

// Acquire implements the blit.Sink interface.
func (s *Session) Acquire() (*linebuf.Buffer, error) {
	return s.pl.pool.Acquire()
}

// Flush implements the blit.Sink interface.
func (s *Session) Flush(buf *linebuf.Buffer, n int) error {
	s.pl.pixels.Add(int64(n))
	return s.pl.tx.Pixels(buf, n)
}

// WriteFrameScaled writes the runs of the frame to the panel using the
// current scale. Small runs are sent first, in polling mode. Large runs are
// then sent in queued mode.
//
// A nil runs slice means the entire frame. A nil frame blanks the panel.
func (s *Session) WriteFrameScaled(frame *framebuffer.Frame, runs []diff.Run) error {
	if err := s.check(); err != nil {
		return err
	}

	if frame == nil || frame.Pix == nil {
		return s.Blank()
	}

	pl := s.pl

	if err := frame.Validate(); err != nil {
		return pl.fail(err)
	}
	if runs != nil && len(runs) != frame.Height {
		return pl.fail(curated.Errorf(ContractError, fmt.Sprintf("%d runs for a frame of height %d", len(runs), frame.Height)))
	}

	pl.frames.Add(1)
	if runs == nil || diff.IsFull(runs, frame.Width, frame.Height) {
		pl.fullFrames.Add(1)
	}

	if err := pl.tx.AcquireBus(); err != nil {
		return pl.fail(err)
	}

	err := s.writeRuns(frame, runs)

	if rerr := pl.tx.ReleaseBus(); err == nil {
		err = rerr
	}

	return pl.fail(err)
}

func (s *Session) writeRuns(frame *framebuffer.Frame, runs []diff.Run) error {
	pl := s.pl
	scale := pl.Scale()
	threshold := pl.cfg.pollingThreshold()

	pl.deferred = pl.deferred[:0]

	if runs == nil {
		pl.deferred = append(pl.deferred, diff.Full(frame.Width, frame.Height))
	} else {
		if err := pl.tx.SetPolling(true); err != nil {
			return err
		}

		err := diff.Visit(runs, func(r diff.Run) error {
			if scale.Pixels(r.Width, r.Repeat) >= threshold {
				pl.deferred = append(pl.deferred, r)
				return nil
			}
			pl.polledRuns.Add(1)
			return s.blit(frame, r, scale)
		})

		// always leave polling mode. the pipeline rests in queued mode
		if perr := pl.tx.SetPolling(false); err == nil {
			err = perr
		}
		if err != nil {
			return err
		}
	}

	for _, r := range pl.deferred {
		pl.queuedRuns.Add(1)
		if err := s.blit(frame, r, scale); err != nil {
			return err
		}
	}

	return nil
}

func (s *Session) blit(frame *framebuffer.Frame, r diff.Run, scale blit.Scale) error {
	return blit.Blit(s, frame, blit.Rect{Left: r.Left, Top: r.Top, Width: r.Width, Height: r.Repeat}, scale, s.pl.geom)
}

// WriteRegion writes 16-bit RGB565 pixels to a rectangle of the panel without
// scaling. The pixel slice holds the rectangle's rows one after another. A nil
// slice blanks the entire panel.
//
// A rectangle that does not fit on the panel is a contract error.
func (s *Session) WriteRegion(left, top, width, height int, pix []uint16) error {
	if err := s.check(); err != nil {
		return err
	}

	pl := s.pl

	if left < 0 || top < 0 || width < 1 || height < 1 {
		return pl.fail(curated.Errorf(ContractError, fmt.Sprintf("region %d,%d %dx%d", left, top, width, height)))
	}
	if left+width > pl.geom.Width || top+height > pl.geom.Height {
		return pl.fail(curated.Errorf(ContractError, fmt.Sprintf("region %d,%d %dx%d is larger than the panel", left, top, width, height)))
	}

	if pix == nil {
		return s.Blank()
	}

	if len(pix) < width*height {
		return pl.fail(curated.Errorf(ContractError, fmt.Sprintf("%d pixels for a region of %dx%d", len(pix), width, height)))
	}

	if err := s.Window(left, top, width, height); err != nil {
		return pl.fail(err)
	}

	lineCount := max(1, pl.cfg.capacity()/width)

	for y := 0; y < height; y += lineCount {
		buf, err := pl.pool.Acquire()
		if err != nil {
			return pl.fail(err)
		}

		n := min(lineCount, height-y) * width
		src := pix[y*width : y*width+n]
		for i, p := range src {
			buf.Pix[i] = panel.FromRGB565(p)
		}

		if err := s.Flush(buf, n); err != nil {
			return pl.fail(err)
		}
	}

	return nil
}

// WriteCentered writes RGB565 pixels to a rectangle in the centre of the
// panel.
func (s *Session) WriteCentered(width, height int, pix []uint16) error {
	return s.WriteRegion((s.pl.geom.Width-width)/2, (s.pl.geom.Height-height)/2, width, height, pix)
}

// Fill the entire panel with a single colour.
func (s *Session) Fill(colour panel.Native) error {
	if err := s.check(); err != nil {
		return err
	}

	pl := s.pl

	if err := s.Window(0, 0, pl.geom.Width, pl.geom.Height); err != nil {
		return pl.fail(err)
	}

	for y := 0; y < pl.geom.Height; y += pl.cfg.LineCount {
		buf, err := pl.pool.Acquire()
		if err != nil {
			return pl.fail(err)
		}

		n := min(pl.cfg.LineCount, pl.geom.Height-y) * pl.geom.Width
		for i := range n {
			buf.Pix[i] = colour
		}

		if err := s.Flush(buf, n); err != nil {
			return pl.fail(err)
		}
	}

	return nil
}

// Blank fills the panel with black.
func (s *Session) Blank() error {
	return s.Fill(panel.Black)
}

// send the commands that prepare the panel for power off
func (s *Session) sleep() error {
	pl := s.pl
	if err := pl.tx.Command(panel.DisplayOff); err != nil {
		return pl.fail(err)
	}
	if err := pl.tx.Command(panel.SleepIn); err != nil {
		return pl.fail(err)
	}

	// the controller forgets the window on wake
	pl.win.Reset()

	return nil
}
