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

import "github.com/jetsetilly/spipanel/panel"

// glyphs are square and drawn in RGB565
const glyphSize = 48

var (
	cardGlyph      = drawCard()
	hourglassGlyph = drawHourglass()
)

func newGlyph(bg panel.Native) []uint16 {
	g := make([]uint16, glyphSize*glyphSize)
	c := bg.RGB565()
	for i := range g {
		g[i] = c
	}
	return g
}

// a memory card with the top right corner cut away and four contacts
func drawCard() []uint16 {
	g := newGlyph(panel.White)
	red := panel.Red.RGB565()
	white := panel.White.RGB565()

	const left, right = 12, 36
	const top, bottom = 6, 42
	const cut = 8

	for y := top; y < bottom; y++ {
		for x := left; x < right; x++ {
			if x-(right-cut) > y-top {
				continue
			}
			g[y*glyphSize+x] = red
		}
	}

	for c := range 4 {
		x := left + 3 + c*4
		for y := top + 3; y < top+11; y++ {
			g[y*glyphSize+x] = white
			g[y*glyphSize+x+1] = white
		}
	}

	return g
}

// an empty hourglass outline
func drawHourglass() []uint16 {
	g := newGlyph(panel.White)
	black := panel.Black.RGB565()

	const top, bottom = 6, 42
	const left, right = 12, 36
	const mid = glyphSize / 2

	// caps
	for _, y := range []int{top, top + 1, top + 2, bottom - 3, bottom - 2, bottom - 1} {
		for x := left; x < right; x++ {
			g[y*glyphSize+x] = black
		}
	}

	// the sides narrow towards the middle and widen again
	span := bottom - 3 - (top + 3)
	for i := range span {
		y := top + 3 + i
		d := y - mid
		if d < 0 {
			d = -d - 1
		}
		half := 2 + d*(mid-left-2)/(span/2)
		for _, x := range []int{mid - half, mid - half + 1, mid + half - 2, mid + half - 1} {
			if x >= left && x < right {
				g[y*glyphSize+x] = black
			}
		}
	}

	return g
}
