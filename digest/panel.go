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

package digest

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"

	"github.com/jetsetilly/spipanel/panel"
)

// Source is the graphics RAM being digested. Implemented by simpanel.Panel.
type Source interface {
	Geometry() panel.Geometry
	SnapshotInto(dst []panel.Native) uint64
}

// Panel is a digest of the panel's graphics RAM.
type Panel struct {
	src    Source
	digest [sha1.Size]byte

	gram []panel.Native

	// the previous digest followed by the pixels
	data []byte

	frames int
}

// NewPanel is the preferred method of initialisation for the Panel type.
func NewPanel(src Source) *Panel {
	geom := src.Geometry()
	return &Panel{
		src:  src,
		gram: make([]panel.Native, geom.Pixels()),
		data: make([]byte, sha1.Size+geom.Pixels()*2),
	}
}

// Hash implements digest.Digest interface
func (dig *Panel) Hash() string {
	return fmt.Sprintf("%x", dig.digest)
}

// ResetDigest implements digest.Digest interface
func (dig *Panel) ResetDigest() {
	for i := range dig.digest {
		dig.digest[i] = 0
	}
	dig.frames = 0
}

// Frames returns the number of frames in the digest.
func (dig *Panel) Frames() int {
	return dig.frames
}

// Frame adds the current contents of the panel to the digest.
func (dig *Panel) Frame() {
	dig.src.SnapshotInto(dig.gram)

	// chain fingerprints by copying the value of the last fingerprint
	// to the head of the pixel data
	copy(dig.data, dig.digest[:])

	d := dig.data[sha1.Size:]
	for i, p := range dig.gram {
		binary.LittleEndian.PutUint16(d[i*2:], uint16(p))
	}

	dig.digest = sha1.Sum(dig.data)
	dig.frames++
}
