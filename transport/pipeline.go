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

package transport

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jetsetilly/spipanel/assert"
	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/linebuf"
	"github.com/jetsetilly/spipanel/logger"
)

// Sentinal error patterns.
const (
	StallError    = "transport: no transaction slot after %v"
	BusError      = "transport: bus: %v"
	HookError     = "transport: control line: %v"
	ClosedError   = "transport: pipeline is closed"
	ContractError = "transport: %v"
)

// Config for a new Pipeline.
type Config struct {
	// the number of transaction slots
	Slots int

	// how long to wait for a free slot
	Timeout time.Duration
}

// Stats are cumulative counts of completed transfers.
type Stats struct {
	Transfers int64
	Bytes     int64
	Polled    int64
	Queued    int64
}

// Pipeline submits transactions to a Bus.
type Pipeline struct {
	bus  Bus
	hook PreTransfer
	pool *linebuf.Pool
	cfg  Config

	// used in polling mode
	static Transaction

	// free transaction slots
	free chan *Transaction

	// queue of transactions waiting to be transferred. capacity is the same
	// as the number of slots and so sending to the queue never blocks
	queue chan *Transaction

	polling atomic.Bool

	// latched error
	crit sync.Mutex
	err  error

	outstanding atomic.Int32

	transfers atomic.Int64
	bytes     atomic.Int64
	polled    atomic.Int64
	queued    atomic.Int64

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error

	// id of the completion goroutine. used by assertions
	workerID atomic.Uint64
}

// NewPipeline is the preferred method of initialisation for the Pipeline type.
// The completion goroutine is started immediately. The hook can be nil. The
// pool is the pool that line buffers submitted with Pixels() are returned to.
func NewPipeline(bus Bus, hook PreTransfer, pool *linebuf.Pool, cfg Config) *Pipeline {
	if cfg.Slots <= 0 {
		cfg.Slots = 1
	}

	pl := &Pipeline{
		bus:   bus,
		hook:  hook,
		pool:  pool,
		cfg:   cfg,
		free:  make(chan *Transaction, cfg.Slots),
		queue: make(chan *Transaction, cfg.Slots),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	for range cfg.Slots {
		pl.free <- &Transaction{}
	}

	started := make(chan struct{})
	go pl.run(started)
	<-started

	return pl
}

func (pl *Pipeline) String() string {
	mode := "queued"
	if pl.polling.Load() {
		mode = "polling"
	}
	return fmt.Sprintf("%s: %d/%d slots outstanding", mode, pl.Outstanding(), pl.cfg.Slots)
}

// Slots returns the number of transaction slots.
func (pl *Pipeline) Slots() int {
	return pl.cfg.Slots
}

// Outstanding returns the number of queued transactions that have not yet
// completed.
func (pl *Pipeline) Outstanding() int {
	return int(pl.outstanding.Load())
}

// Stats returns the cumulative transfer counts.
func (pl *Pipeline) Stats() Stats {
	return Stats{
		Transfers: pl.transfers.Load(),
		Bytes:     pl.bytes.Load(),
		Polled:    pl.polled.Load(),
		Queued:    pl.queued.Load(),
	}
}

// Err returns the latched error, if any.
func (pl *Pipeline) Err() error {
	pl.crit.Lock()
	defer pl.crit.Unlock()
	return pl.err
}

func (pl *Pipeline) latch(err error) {
	pl.crit.Lock()
	defer pl.crit.Unlock()
	if pl.err == nil {
		pl.err = err
		logger.Log(logger.Allow, "transport", err)
	}
}

// Polling returns true if the pipeline is in polling mode.
func (pl *Pipeline) Polling() bool {
	return pl.polling.Load()
}

// SetPolling switches between polling and queued mode. The line buffer pool
// is put into direct mode while polling. Switching to polling mode drains any
// outstanding queued transactions first so that the order of transfers is
// preserved.
func (pl *Pipeline) SetPolling(polling bool) error {
	if polling == pl.polling.Load() {
		return pl.Err()
	}

	if polling {
		if err := pl.Drain(); err != nil {
			return err
		}
	}

	pl.polling.Store(polling)
	pl.pool.SetDirect(polling)

	return pl.Err()
}

// AcquireBus claims the bus if the Bus implements the BusAcquirer interface.
func (pl *Pipeline) AcquireBus() error {
	if a, ok := pl.bus.(BusAcquirer); ok {
		if err := a.AcquireBus(); err != nil {
			return curated.Errorf(BusError, err)
		}
	}
	return nil
}

// ReleaseBus releases the bus if the Bus implements the BusAcquirer interface.
func (pl *Pipeline) ReleaseBus() error {
	if a, ok := pl.bus.(BusAcquirer); ok {
		if err := a.ReleaseBus(); err != nil {
			return curated.Errorf(BusError, err)
		}
	}
	return nil
}

// Command submits a single command byte.
func (pl *Pipeline) Command(cmd byte) error {
	return pl.submit(func(tx *Transaction) {
		tx.setInline(Command, []byte{cmd})
	})
}

// Data submits data bytes. Payloads of four bytes or fewer are held inline,
// longer payloads are copied.
func (pl *Pipeline) Data(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	return pl.submit(func(tx *Transaction) {
		if len(p) <= inlineMax {
			tx.setInline(Data, p)
		} else {
			tx.setOwned(Data, p)
		}
	})
}

// Pixels submits the first n pixels of a line buffer. The buffer must have
// been acquired from the pool given to NewPipeline(). Ownership of the buffer
// passes to the pipeline, which releases it once the transfer is complete.
func (pl *Pipeline) Pixels(buf *linebuf.Buffer, n int) error {
	if n < 0 || n > buf.Cap() {
		return curated.Errorf(ContractError, fmt.Sprintf("%d pixels from a buffer of %d", n, buf.Cap()))
	}
	if !buf.Claim(linebuf.Filling, linebuf.InFlight) {
		return curated.Errorf(ContractError, fmt.Sprintf("submitting %s", buf))
	}
	if n == 0 {
		return pl.release(buf)
	}
	return pl.submit(func(tx *Transaction) {
		tx.setPixels(buf, n)
	})
}

func (pl *Pipeline) release(buf *linebuf.Buffer) error {
	if err := pl.pool.Release(buf); err != nil {
		pl.latch(err)
		return err
	}
	return nil
}

// submit a transaction prepared by the fill function.
func (pl *Pipeline) submit(fill func(tx *Transaction)) error {
	// a submission from the completion goroutine would deadlock once the
	// slots are exhausted
	assert.OtherGoroutine(pl.workerID.Load(), "transport submission")

	if err := pl.Err(); err != nil {
		// the payload will never be sent but a line buffer must still go
		// back to the pool
		var tx Transaction
		fill(&tx)
		if tx.buf != nil {
			_ = pl.pool.Release(tx.buf)
		}
		return err
	}

	if pl.polling.Load() {
		fill(&pl.static)
		pl.complete(&pl.static)
		pl.polled.Add(1)
		return pl.Err()
	}

	var tx *Transaction
	var err error

	select {
	case <-pl.done:
		err = curated.Errorf(ClosedError)
	default:
		tx, err = pl.takeSlot()
	}

	if err != nil {
		var tx Transaction
		fill(&tx)
		if tx.buf != nil {
			_ = pl.pool.Release(tx.buf)
		}
		return err
	}

	fill(tx)
	pl.outstanding.Add(1)
	pl.queued.Add(1)
	pl.queue <- tx

	return nil
}

func (pl *Pipeline) takeSlot() (*Transaction, error) {
	select {
	case <-pl.done:
		return nil, curated.Errorf(ClosedError)
	case tx := <-pl.free:
		return tx, nil
	default:
	}

	t := time.NewTimer(pl.cfg.Timeout)
	defer t.Stop()

	select {
	case <-pl.done:
		return nil, curated.Errorf(ClosedError)
	case tx := <-pl.free:
		return tx, nil
	case <-t.C:
		err := curated.Errorf(StallError, pl.cfg.Timeout)
		pl.latch(err)
		return nil, err
	}
}

// transfer a transaction, release any line buffer and reset the
// transaction. once a transfer has failed no further transfers are
// attempted.
func (pl *Pipeline) complete(tx *Transaction) {
	if pl.Err() == nil {
		if err := pl.transfer(tx); err != nil {
			pl.latch(err)
		}
	}

	if tx.buf != nil {
		_ = pl.release(tx.buf)
	}

	tx.reset()
}

func (pl *Pipeline) transfer(tx *Transaction) error {
	if pl.hook != nil {
		if err := pl.hook(tx.Kind); err != nil {
			return curated.Errorf(HookError, err)
		}
	}

	p := tx.Payload()
	if err := pl.bus.Transfer(p); err != nil {
		return curated.Errorf(BusError, err)
	}

	pl.transfers.Add(1)
	pl.bytes.Add(int64(len(p)))

	return nil
}

// the completion goroutine.
func (pl *Pipeline) run(started chan struct{}) {
	defer close(pl.done)

	pl.workerID.Store(assert.GetGoRoutineID())
	close(started)

	for {
		select {
		case tx := <-pl.queue:
			pl.complete(tx)
			pl.outstanding.Add(-1)
			pl.free <- tx
		case <-pl.quit:
			return
		}
	}
}

// Drain waits until every transaction slot is free. This is a barrier: every
// transaction submitted before the call to Drain() has completed when it
// returns. Returns the latched error if any transfer has failed.
func (pl *Pipeline) Drain() error {
	assert.OtherGoroutine(pl.workerID.Load(), "transport drain")

	taken := make([]*Transaction, 0, pl.cfg.Slots)

	defer func() {
		for _, tx := range taken {
			pl.free <- tx
		}
	}()

	for range pl.cfg.Slots {
		tx, err := pl.takeSlot()
		if err != nil {
			if curated.Is(err, ClosedError) {
				return pl.Err()
			}
			return err
		}
		taken = append(taken, tx)
	}

	return pl.Err()
}

// Close drains the pipeline and stops the completion goroutine. It is safe to
// call more than once.
func (pl *Pipeline) Close() error {
	pl.closeOnce.Do(func() {
		pl.closeErr = pl.Drain()
		close(pl.quit)
		<-pl.done
	})
	return pl.closeErr
}
