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

// Package digest produces a cryptographic hash of what is on the panel. The
// hash is chained from frame to frame so that a single value identifies an
// entire sequence of frames. Comparing the hash with a previously recorded
// value shows whether anything in the pipeline has changed.
package digest

// Digest implementations should return a cryptographic hash in response to a
// Hash() request. Generation of the hash achieved via another interface.
type Digest interface {
	Hash() string
	ResetDigest()
}
