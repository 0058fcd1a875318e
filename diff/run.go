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

// Package diff compares two source frames and describes the changes as a list
// of scanline runs. A run is a horizontal span that has changed, repeated over
// one or more consecutive scanlines.
//
// The result always has one entry per scanline. Entries that have been merged
// into the run above them should be skipped and the Visit() function does
// this by stepping through the list by the Repeat value of each run.
//
// If the changes are large enough that a partial update would be no cheaper
// than a full update, the first entry is a single run covering the whole
// frame.
package diff

import (
	"fmt"
)

// Run is a changed horizontal span. An empty run has a Width of zero.
type Run struct {
	Top    int
	Left   int
	Width  int
	Repeat int
}

func (r Run) String() string {
	if r.Empty() {
		return fmt.Sprintf("%d: unchanged", r.Top)
	}
	return fmt.Sprintf("%d: %d-%d x%d", r.Top, r.Left, r.End()-1, r.Repeat)
}

// Empty returns true if nothing in the run has changed.
func (r Run) Empty() bool {
	return r.Width <= 0
}

// End returns the column after the rightmost column of the run.
func (r Run) End() int {
	return r.Left + r.Width
}

// Pixels returns the number of source pixels covered by the run.
func (r Run) Pixels() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Repeat
}

// Full returns a run covering an entire frame.
func Full(width, height int) Run {
	return Run{Top: 0, Left: 0, Width: width, Repeat: height}
}

// IsFull returns true if the runs describe a full update of a frame of the
// specified size.
func IsFull(runs []Run, width, height int) bool {
	return len(runs) > 0 && runs[0] == Full(width, height)
}

// Visit calls the function for every non-empty run, in scanline order. The
// iteration stops at the first error, which is returned.
func Visit(runs []Run, f func(r Run) error) error {
	for y := 0; y < len(runs); {
		r := runs[y]
		if !r.Empty() {
			if err := f(r); err != nil {
				return err
			}
		}
		if r.Repeat < 1 {
			y++
		} else {
			y += r.Repeat
		}
	}
	return nil
}

// Changed returns the number of source pixels covered by the visited runs.
func Changed(runs []Run) int {
	n := 0
	_ = Visit(runs, func(r Run) error {
		n += r.Pixels()
		return nil
	})
	return n
}
