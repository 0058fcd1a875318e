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

package testcard

import (
	"image"
	"image/color"

	"github.com/jetsetilly/spipanel/framebuffer"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// palette entry used for caption text. the brightest step of the grey ramp
const captionInk = 15

// inkImage presents an indexed frame as a draw.Image. Any pixel drawn with
// more than half coverage is set to the ink value.
type inkImage struct {
	f   *framebuffer.Frame
	ink uint8
}

func (m inkImage) ColorModel() color.Model {
	return color.AlphaModel
}

func (m inkImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.f.Width, m.f.Height)
}

func (m inkImage) At(x, y int) color.Color {
	return color.Transparent
}

func (m inkImage) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(m.Bounds()) {
		return
	}
	if _, _, _, a := c.RGBA(); a >= 0x8000 {
		m.f.Set(x, y, m.ink)
	}
}

// drawCaption draws the text with its baseline at y.
func drawCaption(f *framebuffer.Frame, x, y int, text string) {
	d := font.Drawer{
		Dst:  inkImage{f: f, ink: captionInk},
		Src:  image.Opaque,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
