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

package limiter_test

import (
	"testing"
	"time"

	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/performance/limiter"
	"github.com/jetsetilly/spipanel/test"
)

func TestLimiter(t *testing.T) {
	lim, err := limiter.NewFPSLimiter(100)
	test.DemandSuccess(t, err)
	defer lim.Close()

	test.ExpectEquality(t, lim.FrameTime(), 10*time.Millisecond)

	start := time.Now()
	for range 10 {
		lim.Wait()
	}
	el := time.Since(start)

	// the first tick is immediate
	test.ExpectSuccess(t, el >= 80*time.Millisecond, el)
	test.ExpectSuccess(t, el < time.Second, el)
}

func TestSetLimit(t *testing.T) {
	lim, err := limiter.NewFPSLimiter(60)
	test.DemandSuccess(t, err)
	defer lim.Close()

	test.DemandSuccess(t, lim.SetLimit(50))
	test.ExpectEquality(t, lim.FrameTime(), 20*time.Millisecond)

	err = lim.SetLimit(0)
	test.ExpectSuccess(t, curated.Is(err, limiter.LimitError))
	test.ExpectEquality(t, lim.FrameTime(), 20*time.Millisecond)

	_, err = limiter.NewFPSLimiter(-1)
	test.ExpectFailure(t, err)
}

func TestHasWaited(t *testing.T) {
	lim, err := limiter.NewFPSLimiter(10)
	test.DemandSuccess(t, err)
	defer lim.Close()

	// consume the immediate tick
	lim.Wait()
	test.ExpectFailure(t, lim.HasWaited())

	time.Sleep(150 * time.Millisecond)
	test.ExpectSuccess(t, lim.HasWaited())
}

func TestClose(t *testing.T) {
	lim, err := limiter.NewFPSLimiter(1)
	test.DemandSuccess(t, err)
	lim.Wait()
	lim.Close()

	// does not block
	done := make(chan bool)
	go func() {
		lim.Wait()
		done <- true
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait() blocked after Close()")
	}
}
