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

package window_test

import (
	"testing"

	"github.com/jetsetilly/spipanel/panel"
	"github.com/jetsetilly/spipanel/test"
	"github.com/jetsetilly/spipanel/window"
)

func TestFirstUpdate(t *testing.T) {
	tr := window.NewTracker(panel.ILI9341)

	col, page := tr.Update(0, 0, 320, 240)
	test.ExpectEquality(t, col, window.Addressing{Needed: true, Start: 0, End: 319, Bytes: 4})
	test.ExpectEquality(t, page, window.Addressing{Needed: true, Start: 0, End: 239, Bytes: 4})
	test.ExpectEquality(t, string(col.Args()), "\x00\x00\x01\x3f")
	test.ExpectEquality(t, string(page.Args()), "\x00\x00\x00\xef")

	// the same window again needs nothing
	col, page = tr.Update(0, 0, 320, 240)
	test.ExpectFailure(t, col.Needed)
	test.ExpectFailure(t, page.Needed)
}

func TestPartialArguments(t *testing.T) {
	tr := window.NewTracker(panel.ILI9341)
	tr.Update(10, 20, 100, 50)

	// moving the top edge only changes the page start. the bottom is pinned
	// so only two bytes are needed
	col, page := tr.Update(10, 30, 100, 50)
	test.ExpectFailure(t, col.Needed)
	test.ExpectEquality(t, page, window.Addressing{Needed: true, Start: 30, End: 239, Bytes: 2})
	test.ExpectEquality(t, string(page.Args()), "\x00\x1e")

	// moving the left edge but keeping the right edge
	col, page = tr.Update(20, 30, 90, 50)
	test.ExpectEquality(t, col, window.Addressing{Needed: true, Start: 20, End: 109, Bytes: 2})
	test.ExpectFailure(t, page.Needed)

	// changing the right edge
	col, _ = tr.Update(20, 30, 10, 50)
	test.ExpectEquality(t, col, window.Addressing{Needed: true, Start: 20, End: 29, Bytes: 4})
	test.ExpectEquality(t, string(col.Args()), "\x00\x14\x00\x1d")
}

func TestSingleScanline(t *testing.T) {
	tr := window.NewTracker(panel.ILI9341)
	tr.Update(0, 0, 200, 10)

	// a single scanline inside the previous right edge reuses it
	col, page := tr.Update(0, 50, 100, 1)
	test.ExpectFailure(t, col.Needed)
	test.ExpectEquality(t, page.Start, 50)

	// a single scanline with the same right edge reuses it too
	col, _ = tr.Update(0, 51, 200, 1)
	test.ExpectFailure(t, col.Needed)

	// a single scanline beyond the previous right edge widens to the edge of
	// the panel
	col, _ = tr.Update(0, 52, 250, 1)
	test.ExpectEquality(t, col, window.Addressing{Needed: true, Start: 0, End: 319, Bytes: 4})

	// subsequent single scanlines anywhere now reuse the panel edge
	col, _ = tr.Update(5, 53, 3, 1)
	test.ExpectEquality(t, col, window.Addressing{Needed: true, Start: 5, End: 319, Bytes: 2})
}

func TestReset(t *testing.T) {
	tr := window.NewTracker(panel.Geometry{Width: 16, Height: 8})
	tr.Update(0, 0, 16, 8)
	tr.Reset()
	col, page := tr.Update(0, 0, 16, 8)
	test.ExpectEquality(t, col.Bytes, 4)
	test.ExpectEquality(t, page.Bytes, 4)
	test.ExpectEquality(t, page.End, 7)
	test.ExpectEquality(t, col.String(), "0-15")
}
