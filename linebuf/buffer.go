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

// Package linebuf implements the fixed pool of pixel staging buffers used by
// the display pipeline. A buffer holds a whole number of panel lines of Native
// pixels and is owned by exactly one of: the pool, the code filling it or the
// transport sending it.
//
// In direct mode the pool hands out a single statically allocated buffer
// instead of a pooled one. Direct mode is used for synchronous transfers
// where the buffer is finished with before the next acquisition, and so
// releasing the static buffer does nothing.
package linebuf

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/jetsetilly/spipanel/panel"
)

// Owner indicates who currently has a Buffer.
type Owner int32

// List of valid Owner values.
const (
	Free Owner = iota
	Filling
	InFlight
)

func (o Owner) String() string {
	switch o {
	case Free:
		return "free"
	case Filling:
		return "filling"
	case InFlight:
		return "in-flight"
	}
	return fmt.Sprintf("owner(%d)", int32(o))
}

// Buffer is a single line buffer.
type Buffer struct {
	// Pix is filled by the owner of the buffer
	Pix []panel.Native

	// the serialised form of Pix. prepared by Wire()
	wire []byte

	owner  atomic.Int32
	id     int
	pooled bool
}

func newBuffer(id int, capacity int, pooled bool) *Buffer {
	return &Buffer{
		Pix:    make([]panel.Native, capacity),
		wire:   make([]byte, capacity*2),
		id:     id,
		pooled: pooled,
	}
}

func (b *Buffer) String() string {
	if !b.pooled {
		return fmt.Sprintf("static buffer (%s)", b.Owner())
	}
	return fmt.Sprintf("buffer %d (%s)", b.id, b.Owner())
}

// Cap returns the capacity of the buffer in pixels.
func (b *Buffer) Cap() int {
	return len(b.Pix)
}

// Pooled returns false if the buffer is the static direct mode buffer.
func (b *Buffer) Pooled() bool {
	return b.pooled
}

// Owner returns the current owner of the buffer.
func (b *Buffer) Owner() Owner {
	return Owner(b.owner.Load())
}

// Claim changes the owner of the buffer. The change only happens if the
// current owner is the from value. Returns false if the change didn't happen.
func (b *Buffer) Claim(from Owner, to Owner) bool {
	return b.owner.CompareAndSwap(int32(from), int32(to))
}

// Wire serialises the first n pixels for transmission and returns the bytes.
// The returned slice is owned by the buffer and is valid until the buffer is
// next filled.
func (b *Buffer) Wire(n int) []byte {
	w := b.wire[:n*2]
	for i, p := range b.Pix[:n] {
		binary.LittleEndian.PutUint16(w[i*2:], uint16(p))
	}
	return w
}
