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

package linebuf

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jetsetilly/spipanel/curated"
)

// Sentinal error patterns.
const (
	StallError     = "linebuf: no buffer available after %v"
	OwnershipError = "linebuf: %v"
)

// Pool is a fixed set of line buffers.
type Pool struct {
	buffers []*Buffer
	free    chan *Buffer

	// the buffer returned by Acquire() while direct is true
	static *Buffer
	direct atomic.Bool

	timeout time.Duration
}

// NewPool is the preferred method of initialisation for the Pool type. The
// capacity of each buffer is in pixels.
func NewPool(count int, capacity int, timeout time.Duration) *Pool {
	p := &Pool{
		buffers: make([]*Buffer, count),
		free:    make(chan *Buffer, count),
		static:  newBuffer(-1, capacity, false),
		timeout: timeout,
	}

	for i := range p.buffers {
		p.buffers[i] = newBuffer(i, capacity, true)
		p.free <- p.buffers[i]
	}

	return p
}

func (p *Pool) String() string {
	return fmt.Sprintf("%d/%d free", p.Free(), len(p.buffers))
}

// Count returns the number of pooled buffers.
func (p *Pool) Count() int {
	return len(p.buffers)
}

// Capacity returns the capacity of every buffer, in pixels.
func (p *Pool) Capacity() int {
	return p.static.Cap()
}

// Free returns the number of pooled buffers that are currently free.
func (p *Pool) Free() int {
	return len(p.free)
}

// SetDirect switches direct mode on or off.
func (p *Pool) SetDirect(direct bool) {
	p.direct.Store(direct)
}

// Direct returns true if the pool is in direct mode.
func (p *Pool) Direct() bool {
	return p.direct.Load()
}

// Buffers returns every pooled buffer. Used to check ownership.
func (p *Pool) Buffers() []*Buffer {
	return p.buffers
}

// Acquire a buffer. Blocks until a buffer is free. If no buffer becomes free
// within the timeout the StallError is returned.
//
// In direct mode the static buffer is returned immediately.
func (p *Pool) Acquire() (*Buffer, error) {
	if p.direct.Load() {
		if !p.static.Claim(Free, Filling) {
			return nil, curated.Errorf(OwnershipError, fmt.Sprintf("%s acquired twice", p.static))
		}
		return p.static, nil
	}

	var b *Buffer

	select {
	case b = <-p.free:
	default:
		t := time.NewTimer(p.timeout)
		defer t.Stop()
		select {
		case b = <-p.free:
		case <-t.C:
			return nil, curated.Errorf(StallError, p.timeout)
		}
	}

	if !b.Claim(Free, Filling) {
		return nil, curated.Errorf(OwnershipError, fmt.Sprintf("%s taken from pool while not free", b))
	}

	return b, nil
}

// Release returns a buffer to the pool. Releasing the static buffer marks it
// as free but otherwise does nothing.
func (p *Pool) Release(b *Buffer) error {
	if !b.pooled {
		if b != p.static {
			return curated.Errorf(OwnershipError, "static buffer belongs to a different pool")
		}
		b.owner.Store(int32(Free))
		return nil
	}

	if b.id < 0 || b.id >= len(p.buffers) || p.buffers[b.id] != b {
		return curated.Errorf(OwnershipError, fmt.Sprintf("%s belongs to a different pool", b))
	}

	if b.Owner() == Free {
		return curated.Errorf(OwnershipError, fmt.Sprintf("%s released twice", b))
	}
	b.owner.Store(int32(Free))

	select {
	case p.free <- b:
	default:
		return curated.Errorf(OwnershipError, fmt.Sprintf("%s released to a full pool", b))
	}

	return nil
}
