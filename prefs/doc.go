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

// Package prefs facilitates the storage of preferential values in the
// Spipanel system. It is intended to be used by packages that need to persist
// tuning values between sessions. The display pipeline for example, stores
// its line buffer sizing and its backlight level.
//
// Preference values are atomic and can be read and written from any
// goroutine. Hook functions can be registered with a preference value so that
// a change is acted on immediately:
//
//	var level prefs.Int
//	level.SetHookPost(func(v prefs.Value) error {
//		return backlight.Set(v.(int))
//	})
//
// Values are associated with a key and a Disk instance with the Disk.Add()
// function. The file format is simple, one key/value pair per line:
//
//	display.backlight :: 50
//
// Values can be overridden on the command line with the
// PushCommandLineStack() function. The string takes the form:
//
//	display.lineCount::10; display.coalesceTolerance::4
//
// A command line value takes precedence over the value on disk for the
// lifetime of the Disk instance.
package prefs
