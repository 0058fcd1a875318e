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

package gui

import "io"

// GuiCreator facilitates the creation, servicing and destruction of GUIs
// that need to be run in the main thread.
//
// Note that there is no Create() function because we need the freedom to
// create the GUI how we want.
type GuiCreator interface {
	// cleanup resources used by the gui
	Destroy(io.Writer)

	// Service() should not pause or loop longer than necessary (if at all). It
	// MUST ONLY by called as part of a larger loop from the main thread. It
	// should service all gui events that are not safe to do in sub-threads.
	Service()
}

// KeyMod identifies the modifier keys held during a key event.
type KeyMod int

// List of valid key modifiers.
const (
	KeyModNone KeyMod = iota
	KeyModShift
	KeyModCtrl
	KeyModAlt
)

// Event is sent by a window over its event channel.
type Event interface{}

// EventQuit is sent when the window is closed.
type EventQuit struct{}

// EventKeyboard is sent when a key is pressed. Key names are the SDL key names
// ("Up", "Escape", "Q", etc.) whatever the window type.
type EventKeyboard struct {
	Key string
	Mod KeyMod
}

// Send an event without blocking. Events are dropped if the receiver is not
// keeping up.
func Send(events chan<- Event, ev Event) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
	}
}
