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

//go:build assertions

package assert

import "fmt"

// Enabled is true when the assertions build tag has been specified.
const Enabled = true

// SameGoroutine panics if the calling goroutine is not the goroutine with the
// specified ID.
func SameGoroutine(id uint64, context string) {
	if g := GetGoRoutineID(); g != id {
		panic(fmt.Sprintf("assert: %s: called from goroutine %d, expected %d", context, g, id))
	}
}

// OtherGoroutine panics if the calling goroutine is the goroutine with the
// specified ID.
func OtherGoroutine(id uint64, context string) {
	if g := GetGoRoutineID(); g == id {
		panic(fmt.Sprintf("assert: %s: must not be called from goroutine %d", context, g))
	}
}
