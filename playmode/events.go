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

package playmode

import (
	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/gui"
)

// sentinal error returned when a quit event is received.
const quitEvent = "playmode: quit event"

func (pl *playmode) eventHandler() error {
	select {
	case <-pl.intChan:
		return curated.Errorf(quitEvent)

	case ev := <-pl.events:
		switch ev := ev.(type) {
		case gui.EventQuit:
			return curated.Errorf(quitEvent)
		case gui.EventKeyboard:
			return pl.keyboardEventHandler(ev)
		}

	default:
	}

	return nil
}
