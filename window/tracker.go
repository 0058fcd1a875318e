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

// Package window tracks the address window of the panel controller so that
// the column and page address commands are only sent when the window
// changes.
//
// The bottom edge of the page window is always the last row of the panel.
// Writes never run past the end of the rectangle they are for and so the
// controller never needs to know the true bottom edge. The same is true of
// the right edge for single scanline writes, which allows the right edge of
// the previous window to be reused.
package window

import (
	"fmt"

	"github.com/jetsetilly/spipanel/panel"
)

// Addressing describes the column or page address command required before a
// write.
type Addressing struct {
	// whether the command needs to be sent at all
	Needed bool

	Start int
	End   int

	// the number of argument bytes to send. either 2 (start only) or 4
	// (start and end)
	Bytes int
}

func (a Addressing) String() string {
	if !a.Needed {
		return "unchanged"
	}
	if a.Bytes == 2 {
		return fmt.Sprintf("%d", a.Start)
	}
	return fmt.Sprintf("%d-%d", a.Start, a.End)
}

// Args returns the argument bytes for the address command, most significant
// byte first.
func (a Addressing) Args() []byte {
	b := []byte{
		byte(a.Start >> 8), byte(a.Start),
		byte(a.End >> 8), byte(a.End),
	}
	return b[:a.Bytes]
}

// Tracker remembers the most recently sent address window.
type Tracker struct {
	geom panel.Geometry

	left   int
	right  int
	top    int
	bottom int
}

// NewTracker is the preferred method of initialisation for the Tracker type.
func NewTracker(geom panel.Geometry) *Tracker {
	t := &Tracker{geom: geom}
	t.Reset()
	return t
}

func (t *Tracker) String() string {
	return fmt.Sprintf("columns %d-%d, pages %d-%d", t.left, t.right, t.top, t.bottom)
}

// Reset forgets the remembered window. The next call to Update() will require
// both address commands with four argument bytes.
func (t *Tracker) Reset() {
	t.left = -1
	t.right = -1
	t.top = -1
	t.bottom = -1
}

// Update the remembered window for a write to the rectangle and return the
// address commands that must be sent to the panel.
func (t *Tracker) Update(left, top, width, height int) (column Addressing, page Addressing) {
	right := left + width - 1

	if height == 1 {
		if t.right >= right {
			right = t.right
		} else {
			right = t.geom.Width - 1
		}
	}

	if left != t.left || right != t.right {
		column = Addressing{Needed: true, Start: left, End: right, Bytes: 2}
		if right != t.right {
			column.Bytes = 4
		}
		t.left = left
		t.right = right
	}

	bottom := t.geom.Height - 1

	if top != t.top || bottom != t.bottom {
		page = Addressing{Needed: true, Start: top, End: bottom, Bytes: 2}
		if bottom != t.bottom {
			page.Bytes = 4
		}
		t.top = top
		t.bottom = bottom
	}

	return column, page
}
