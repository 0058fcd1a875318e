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
	"github.com/jetsetilly/spipanel/display"
	"github.com/jetsetilly/spipanel/gui"
	"github.com/jetsetilly/spipanel/logger"
)

// Keys understood by Play():
//
//	Q, Escape    quit
//	Up, Down     backlight brighter or dimmer
//	S            toggle between fitting the panel and unscaled
//	C            toggle palette cycling
//	Space        pause
//	E            show the storage error screen (paused)
//	G            show the general error screen (paused)
//	H            show the hourglass (paused)
func (pl *playmode) keyboardEventHandler(ev gui.EventKeyboard) error {
	switch ev.Key {
	case "Q", "Escape":
		return curated.Errorf(quitEvent)

	case "Up":
		return pl.disp.SetBacklight(pl.disp.Backlight() + 1)

	case "Down":
		return pl.disp.SetBacklight(pl.disp.Backlight() - 1)

	case "S":
		pl.fit = !pl.fit
		logger.Logf(logger.Allow, "playmode", "fit to panel: %v", pl.fit)

		// the scale will be set again on the next frame
		pl.frameW = 0
		pl.frameH = 0

	case "C":
		if c, ok := pl.src.(Cycler); ok {
			c.SetCycling(!c.Cycling())
			logger.Logf(logger.Allow, "playmode", "palette cycling: %v", c.Cycling())
		}

	case "Space":
		return pl.pause(!pl.paused)

	case "E":
		return pl.overlay(func() error {
			return pl.disp.ShowError(display.StorageError)
		})

	case "G":
		return pl.overlay(func() error {
			return pl.disp.ShowError(display.GeneralError)
		})

	case "H":
		return pl.overlay(pl.disp.ShowHourglass)
	}

	return nil
}

func (pl *playmode) pause(paused bool) error {
	pl.paused = paused
	if !paused {
		// the panel may have been drawn over while paused
		pl.dbl.Invalidate()
	}
	return pl.pres.Wait()
}

// pause and draw something over the panel
func (pl *playmode) overlay(draw func() error) error {
	if err := pl.pause(true); err != nil {
		return err
	}
	return draw()
}
