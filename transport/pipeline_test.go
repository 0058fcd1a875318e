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

package transport_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/linebuf"
	"github.com/jetsetilly/spipanel/panel"
	"github.com/jetsetilly/spipanel/test"
	"github.com/jetsetilly/spipanel/transport"
)

type transfer struct {
	kind transport.Kind
	data string
}

// recordingBus records every transfer along with the kind set by the most
// recent call to the hook. a transfer can be held up by setting gate.
type recordingBus struct {
	crit      sync.Mutex
	kind      transport.Kind
	transfers []transfer
	failAt    int
	gate      chan struct{}
}

func (b *recordingBus) hook(kind transport.Kind) error {
	b.crit.Lock()
	defer b.crit.Unlock()
	b.kind = kind
	return nil
}

func (b *recordingBus) Transfer(p []byte) error {
	if b.gate != nil {
		<-b.gate
	}

	b.crit.Lock()
	defer b.crit.Unlock()
	b.transfers = append(b.transfers, transfer{kind: b.kind, data: string(p)})
	if b.failAt > 0 && len(b.transfers) == b.failAt {
		return errors.New("bus fault")
	}
	return nil
}

func (b *recordingBus) recorded() []transfer {
	b.crit.Lock()
	defer b.crit.Unlock()
	return append([]transfer{}, b.transfers...)
}

func newPipeline(bus *recordingBus, slots int, timeout time.Duration) (*transport.Pipeline, *linebuf.Pool) {
	pool := linebuf.NewPool(2, 4, timeout)
	pl := transport.NewPipeline(bus, bus.hook, pool, transport.Config{Slots: slots, Timeout: timeout})
	return pl, pool
}

func TestPolling(t *testing.T) {
	bus := &recordingBus{}
	pl, pool := newPipeline(bus, 4, time.Second)
	defer pl.Close()

	test.DemandSuccess(t, pl.SetPolling(true))
	test.ExpectSuccess(t, pool.Direct())

	test.ExpectSuccess(t, pl.Command(panel.ColumnAddressSet))
	test.ExpectSuccess(t, pl.Data([]byte{0, 1, 0, 2}))

	buf, err := pool.Acquire()
	test.DemandSuccess(t, err)
	buf.Pix[0] = panel.Red
	test.ExpectSuccess(t, pl.Pixels(buf, 1))

	// polled transfers are complete when the submission returns
	r := bus.recorded()
	test.DemandEquality(t, len(r), 3)
	test.ExpectEquality(t, r[0], transfer{kind: transport.Command, data: "\x2a"})
	test.ExpectEquality(t, r[1], transfer{kind: transport.Data, data: "\x00\x01\x00\x02"})
	test.ExpectEquality(t, r[2], transfer{kind: transport.Data, data: "\xf8\x00"})

	test.ExpectEquality(t, buf.Owner(), linebuf.Free)
	test.ExpectEquality(t, pl.Outstanding(), 0)
	test.ExpectEquality(t, pl.Stats().Polled, int64(3))
}

func TestQueuedOrder(t *testing.T) {
	bus := &recordingBus{gate: make(chan struct{})}
	pl, pool := newPipeline(bus, 4, time.Second)
	defer pl.Close()

	test.ExpectSuccess(t, pl.Command(panel.MemoryWrite))

	buf, err := pool.Acquire()
	test.DemandSuccess(t, err)
	buf.Pix[0] = panel.White
	test.ExpectSuccess(t, pl.Pixels(buf, 1))
	test.ExpectEquality(t, buf.Owner(), linebuf.InFlight)

	test.ExpectSuccess(t, pl.Command(panel.MemoryWriteContinue))

	// the bus is held up so nothing has been transferred but the
	// submissions have all returned
	test.ExpectEquality(t, len(bus.recorded()), 0)
	test.ExpectEquality(t, pl.Outstanding(), 3)

	close(bus.gate)
	test.DemandSuccess(t, pl.Drain())

	r := bus.recorded()
	test.DemandEquality(t, len(r), 3)
	test.ExpectEquality(t, r[0], transfer{kind: transport.Command, data: "\x2c"})
	test.ExpectEquality(t, r[1], transfer{kind: transport.Data, data: "\xff\xff"})
	test.ExpectEquality(t, r[2], transfer{kind: transport.Command, data: "\x3c"})

	// line buffer has been returned to the pool
	test.ExpectEquality(t, buf.Owner(), linebuf.Free)
	test.ExpectEquality(t, pool.Free(), 2)
	test.ExpectEquality(t, pl.Outstanding(), 0)
}

func TestSlotExhaustion(t *testing.T) {
	bus := &recordingBus{gate: make(chan struct{})}
	pl, _ := newPipeline(bus, 2, 20*time.Millisecond)

	// the first transaction is taken by the completion goroutine and is
	// stuck in the bus. the queue holds one more before the slots run out
	test.ExpectSuccess(t, pl.Command(1))
	test.ExpectSuccess(t, pl.Command(2))

	err := pl.Command(3)
	test.ExpectSuccess(t, curated.Is(err, transport.StallError))

	// the stall is latched
	test.ExpectSuccess(t, curated.Is(pl.Command(4), transport.StallError))

	close(bus.gate)
	test.ExpectSuccess(t, curated.Is(pl.Close(), transport.StallError))
}

func TestLatchedBusError(t *testing.T) {
	bus := &recordingBus{failAt: 2}
	pl, pool := newPipeline(bus, 4, time.Second)
	defer pl.Close()

	test.ExpectSuccess(t, pl.Command(1))
	test.ExpectSuccess(t, pl.Command(2))
	err := pl.Drain()
	test.ExpectSuccess(t, curated.Is(err, transport.BusError))

	// a line buffer submitted after the error still goes back to the pool
	buf, err := pool.Acquire()
	test.DemandSuccess(t, err)
	err = pl.Pixels(buf, 1)
	test.ExpectSuccess(t, curated.Is(err, transport.BusError))
	test.ExpectEquality(t, buf.Owner(), linebuf.Free)
	test.ExpectEquality(t, pool.Free(), 2)

	// nothing is transferred after the error
	test.ExpectEquality(t, len(bus.recorded()), 2)
}

func TestDataCopy(t *testing.T) {
	bus := &recordingBus{gate: make(chan struct{})}
	pl, _ := newPipeline(bus, 4, time.Second)
	defer pl.Close()

	p := []byte{1, 2, 3, 4, 5, 6}
	q := []byte{7, 8}
	test.ExpectSuccess(t, pl.Data(p))
	test.ExpectSuccess(t, pl.Data(q))

	// the caller can reuse the slices immediately
	p[0] = 0xff
	q[0] = 0xff

	close(bus.gate)
	test.DemandSuccess(t, pl.Drain())

	r := bus.recorded()
	test.DemandEquality(t, len(r), 2)
	test.ExpectEquality(t, r[0].data, "\x01\x02\x03\x04\x05\x06")
	test.ExpectEquality(t, r[1].data, "\x07\x08")
}

func TestSwitchToPollingDrains(t *testing.T) {
	bus := &recordingBus{}
	pl, _ := newPipeline(bus, 4, time.Second)
	defer pl.Close()

	test.ExpectSuccess(t, pl.Command(1))
	test.ExpectSuccess(t, pl.SetPolling(true))
	test.ExpectEquality(t, pl.Outstanding(), 0)
	test.ExpectSuccess(t, pl.Command(2))

	r := bus.recorded()
	test.DemandEquality(t, len(r), 2)
	test.ExpectEquality(t, r[0].data, "\x01")
	test.ExpectEquality(t, r[1].data, "\x02")
}

func TestPixelsContract(t *testing.T) {
	bus := &recordingBus{}
	pl, pool := newPipeline(bus, 4, time.Second)
	defer pl.Close()

	buf, err := pool.Acquire()
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, curated.Is(pl.Pixels(buf, 5), transport.ContractError))

	// zero pixels returns the buffer without a transfer
	test.ExpectSuccess(t, pl.Pixels(buf, 0))
	test.DemandSuccess(t, pl.Drain())
	test.ExpectEquality(t, len(bus.recorded()), 0)
	test.ExpectEquality(t, pool.Free(), 2)

	// a buffer that is already in flight cannot be submitted again
	test.ExpectSuccess(t, curated.Is(pl.Pixels(buf, 1), transport.ContractError))
}

func TestClose(t *testing.T) {
	bus := &recordingBus{}
	pl, _ := newPipeline(bus, 4, time.Second)

	test.ExpectSuccess(t, pl.Command(1))
	test.ExpectSuccess(t, pl.Close())
	test.ExpectSuccess(t, pl.Close())
	test.ExpectEquality(t, len(bus.recorded()), 1)

	test.ExpectSuccess(t, curated.Is(pl.Command(2), transport.ClosedError))
}

func TestTransaction(t *testing.T) {
	var tx transport.Transaction
	test.ExpectEquality(t, tx.Len(), 0)
	test.ExpectEquality(t, tx.LengthBits(), 0)
	test.ExpectFailure(t, tx.Pooled())
	test.ExpectEquality(t, transport.Command.String(), "command")
	test.ExpectEquality(t, transport.Data.String(), "data")
}
