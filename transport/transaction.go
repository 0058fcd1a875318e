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

	"github.com/jetsetilly/spipanel/linebuf"
)

// Kind distinguishes a controller command from data.
type Kind int

// List of valid Kind values.
const (
	Command Kind = iota
	Data
)

func (k Kind) String() string {
	switch k {
	case Command:
		return "command"
	case Data:
		return "data"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// maximum length of an inline payload.
const inlineMax = 4

// Transaction is a single transfer to the panel. The payload is exactly one
// of: up to four bytes held inline, a number of pixels in a line buffer or
// a slice of bytes owned by the transaction.
type Transaction struct {
	Kind Kind

	inline    [inlineMax]byte
	inlineLen int

	buf    *linebuf.Buffer
	pixels int

	owned []byte
}

func (tx *Transaction) String() string {
	switch {
	case tx.buf != nil:
		return fmt.Sprintf("%s: %d pixels from %s", tx.Kind, tx.pixels, tx.buf)
	case tx.owned != nil:
		return fmt.Sprintf("%s: %d bytes", tx.Kind, len(tx.owned))
	}
	return fmt.Sprintf("%s: % 02x", tx.Kind, tx.inline[:tx.inlineLen])
}

func (tx *Transaction) reset() {
	tx.Kind = Command
	tx.inlineLen = 0
	tx.buf = nil
	tx.pixels = 0
	tx.owned = nil
}

func (tx *Transaction) setInline(kind Kind, p []byte) {
	tx.reset()
	tx.Kind = kind
	tx.inlineLen = copy(tx.inline[:], p)
}

func (tx *Transaction) setOwned(kind Kind, p []byte) {
	tx.reset()
	tx.Kind = kind
	tx.owned = make([]byte, len(p))
	copy(tx.owned, p)
}

func (tx *Transaction) setPixels(buf *linebuf.Buffer, n int) {
	tx.reset()
	tx.Kind = Data
	tx.buf = buf
	tx.pixels = n
}

// Pooled returns true if the payload is in a line buffer.
func (tx *Transaction) Pooled() bool {
	return tx.buf != nil
}

// Len returns the length of the payload in bytes.
func (tx *Transaction) Len() int {
	switch {
	case tx.buf != nil:
		return tx.pixels * 2
	case tx.owned != nil:
		return len(tx.owned)
	}
	return tx.inlineLen
}

// LengthBits returns the length of the payload in bits.
func (tx *Transaction) LengthBits() int {
	return tx.Len() * 8
}

// Payload returns the bytes to be transferred. For line buffer payloads this
// serialises the pixels.
func (tx *Transaction) Payload() []byte {
	switch {
	case tx.buf != nil:
		return tx.buf.Wire(tx.pixels)
	case tx.owned != nil:
		return tx.owned
	}
	return tx.inline[:tx.inlineLen]
}
