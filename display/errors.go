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

package display

import (
	"github.com/jetsetilly/spipanel/blit"
	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/framebuffer"
	"github.com/jetsetilly/spipanel/linebuf"
	"github.com/jetsetilly/spipanel/transport"
)

// Sentinal error patterns.
const (
	ContractError  = "display: %v"
	LockError      = "display: lock not acquired after %v"
	FaultError     = "display: faulted: %v"
	ClosedError    = "display: pipeline is closed"
	BacklightError = "display: backlight: %v"
	PowerError     = "display: power: %v"
)

// the patterns that mean the panel can no longer be trusted
var fatal = []string{
	ContractError,
	LockError,
	FaultError,
	ClosedError,
	linebuf.StallError,
	linebuf.OwnershipError,
	transport.StallError,
	transport.BusError,
	transport.HookError,
	transport.ClosedError,
	transport.ContractError,
	blit.ContractError,
	framebuffer.InvalidFrame,
}

// IsFatal returns true if the error means the display pipeline cannot
// continue. There is no recovery from a fatal error short of creating a new
// pipeline.
//
// Errors from the backlight and power collaborators are not fatal.
func IsFatal(err error) bool {
	for _, p := range fatal {
		if curated.Has(err, p) {
			return true
		}
	}
	return false
}
