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

// Package limiter provides a rough and ready way of limiting events to a fixed
// rate.
//
// A new FpsLimiter can be created with (error handling removed for clarity):
//
//	fps, _ := limiter.NewFPSLimiter(60)
//	defer fps.Close()
//
// Operations can then be stalled with the Wait() function. For example:
//
//	for {
//		fps.Wait()
//		presentFrame()
//	}
//
// A producer that wants to skip work when it is running late can use
// HasWaited() instead of Wait().
package limiter

import (
	"sync/atomic"
	"time"

	"github.com/jetsetilly/spipanel/curated"
)

// LimitError is returned when the requested rate is not usable.
const LimitError = "limiter: %v"

// this is a really rough attempt at frame rate limiting. probably only any
// good if base performance of the machine is well above the required rate.

// FpsLimiter will trigger every frames per second.
type FpsLimiter struct {
	// time.Duration
	secondsPerFrame atomic.Int64

	tick chan bool
	quit chan struct{}
}

// NewFPSLimiter is the preferred method of initialisation for FpsLimiter type.
func NewFPSLimiter(framesPerSecond int) (*FpsLimiter, error) {
	lim := &FpsLimiter{
		tick: make(chan bool),
		quit: make(chan struct{}),
	}

	if err := lim.SetLimit(framesPerSecond); err != nil {
		return nil, err
	}

	// run ticker concurrently
	go func() {
		adjusted := lim.FrameTime()
		t := time.Now()
		for {
			select {
			case lim.tick <- true:
			case <-lim.quit:
				return
			}

			time.Sleep(adjusted)

			// correct the next sleep by the amount this sleep overran
			nt := time.Now()
			spf := lim.FrameTime()
			adjusted -= nt.Sub(t) - spf
			adjusted = max(0, min(adjusted, spf))
			t = nt
		}
	}()

	return lim, nil
}

// SetLimit changes the limit at which the FpsLimiter waits.
func (lim *FpsLimiter) SetLimit(framesPerSecond int) error {
	if framesPerSecond <= 0 {
		return curated.Errorf(LimitError, "frames per second must be positive")
	}
	lim.secondsPerFrame.Store(int64(time.Second / time.Duration(framesPerSecond)))
	return nil
}

// FrameTime returns the time between triggers.
func (lim *FpsLimiter) FrameTime() time.Duration {
	return time.Duration(lim.secondsPerFrame.Load())
}

// Wait will block until trigger.
func (lim *FpsLimiter) Wait() {
	select {
	case <-lim.tick:
	case <-lim.quit:
	}
}

// HasWaited will return true if time has already elapsed and false it it is
// still yet to happen.
func (lim *FpsLimiter) HasWaited() bool {
	select {
	case <-lim.tick:
		return true
	default:
		// default case means that the channel receiving case doesn't block
		return false
	}
}

// Close stops the limiter. Wait() no longer blocks once the limiter has been
// closed.
func (lim *FpsLimiter) Close() {
	close(lim.quit)
}
