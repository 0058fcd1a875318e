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

// Package gui contains the types shared by the windows that mirror the
// simulated panel. The windows themselves are in the sdlpanel and termpanel
// sub-packages.
//
// Windows are created and serviced on the main thread. The frame pipeline
// runs elsewhere and the window only ever reads the panel memory.
package gui

import (
	"github.com/jetsetilly/spipanel/panel"
)

// Source is the panel memory being mirrored. It is satisfied by
// simpanel.Panel.
type Source interface {
	Geometry() panel.Geometry

	// copy the panel memory into dst and return the generation of the copy
	SnapshotInto(dst []panel.Native) uint64
}

// Mirror keeps a copy of the panel memory and notes when it changes.
type Mirror struct {
	src  Source
	geom panel.Geometry
	pix  []panel.Native
	gen  uint64
	seen bool
}

// NewMirror is the preferred method of initialisation for the Mirror type.
func NewMirror(src Source) *Mirror {
	geom := src.Geometry()
	return &Mirror{
		src:  src,
		geom: geom,
		pix:  make([]panel.Native, geom.Pixels()),
	}
}

// Geometry of the mirrored panel.
func (m *Mirror) Geometry() panel.Geometry {
	return m.geom
}

// Update the copy of the panel memory. Returns true if the memory has changed
// since the previous call.
func (m *Mirror) Update() bool {
	gen := m.src.SnapshotInto(m.pix)
	if m.seen && gen == m.gen {
		return false
	}
	m.seen = true
	m.gen = gen
	return true
}

// Pixel returns the colour of the pixel at x, y as of the most recent Update().
func (m *Mirror) Pixel(x, y int) panel.Native {
	return m.pix[y*m.geom.Width+x]
}

// Pixels returns the copy of the panel memory. The slice should not be
// retained.
func (m *Mirror) Pixels() []panel.Native {
	return m.pix
}
