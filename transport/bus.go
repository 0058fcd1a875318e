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

// Bus is the physical link to the panel.
type Bus interface {
	// Transfer sends the bytes and returns when the transfer is complete
	Transfer(p []byte) error
}

// BusAcquirer is implemented by a Bus that must be claimed for exclusive use.
// The bus is claimed for the duration of a frame write.
type BusAcquirer interface {
	AcquireBus() error
	ReleaseBus() error
}

// PreTransfer is called immediately before every physical transfer.
type PreTransfer func(kind Kind) error
