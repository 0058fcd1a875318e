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

// Package easyterm is a wrapper for "github.com/pkg/term". It puts the
// terminal into cbreak mode and turns key presses into gui events, so that a
// headless program can be controlled in the same way as one with a window.
package easyterm

import (
	"errors"
	"io"
	"time"

	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/gui"
	"github.com/jetsetilly/spipanel/logger"
	"github.com/pkg/term"
)

// TerminalError is the pattern for errors from the terminal.
const TerminalError = "easyterm: %v"

// DefaultDevice is the controlling terminal of the process.
const DefaultDevice = "/dev/tty"

// how often the input loop checks whether it should stop
const pollInterval = 100 * time.Millisecond

// Terminal is a terminal in cbreak mode.
type Terminal struct {
	t *term.Term

	quit chan struct{}
	done chan struct{}
}

// Open the terminal device and put it into cbreak mode. The empty string
// opens DefaultDevice.
func Open(device string) (*Terminal, error) {
	if device == "" {
		device = DefaultDevice
	}

	t, err := term.Open(device, term.CBreakMode)
	if err != nil {
		return nil, curated.Errorf(TerminalError, err)
	}

	// reads return periodically so that the input loop can be stopped
	if err := t.SetReadTimeout(pollInterval); err != nil {
		t.Restore()
		t.Close()
		return nil, curated.Errorf(TerminalError, err)
	}

	return &Terminal{
		t:    t,
		quit: make(chan struct{}),
	}, nil
}

// Listen starts a goroutine that sends an EventKeyboard for every key pressed.
// It should be called only once.
func (et *Terminal) Listen(events chan<- gui.Event) {
	et.done = make(chan struct{})

	go func() {
		defer close(et.done)

		b := make([]byte, 16)
		for {
			select {
			case <-et.quit:
				return
			default:
			}

			n, err := et.t.Read(b)
			if n == 0 {
				// a read timeout returns nothing or io.EOF
				if err != nil && !errors.Is(err, io.EOF) {
					time.Sleep(pollInterval)
				}
				continue
			}

			for _, k := range DecodeKeys(b[:n]) {
				gui.Send(events, gui.EventKeyboard{Key: k})
			}
		}
	}()
}

// Close restores the terminal to the mode it was in when it was opened.
func (et *Terminal) Close() error {
	close(et.quit)
	if et.done != nil {
		<-et.done
	}

	if err := et.t.Restore(); err != nil {
		logger.Log(logger.Allow, "easyterm", err)
	}
	if err := et.t.Close(); err != nil {
		return curated.Errorf(TerminalError, err)
	}
	return nil
}
