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

package panel

import (
	"fmt"
	"image/color"
	"math/bits"
)

// Native is a 16-bit colour in the order expected by the transport. It is an
// RGB565 value with the two bytes swapped.
type Native uint16

func (n Native) String() string {
	return fmt.Sprintf("%#04x", n.RGB565())
}

// Swap16 exchanges the high and low byte of a 16-bit value.
func Swap16(v uint16) uint16 {
	return bits.ReverseBytes16(v)
}

// FromRGB565 converts an RGB565 value to Native form.
func FromRGB565(v uint16) Native {
	return Native(Swap16(v))
}

// RGB565 returns the RGB565 value of the Native colour.
func (n Native) RGB565() uint16 {
	return Swap16(uint16(n))
}

// RGB creates a Native colour from 8-bit red, green and blue components. The
// least significant bits of each component are lost.
func RGB(r, g, b uint8) Native {
	v := uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
	return FromRGB565(v)
}

// RGBA implements the color.Color interface. Components are expanded to 8
// bits by replicating the most significant bits.
func (n Native) RGBA() (r, g, b, a uint32) {
	return n.NRGBA().RGBA()
}

// NRGBA returns the colour as a color.NRGBA value.
func (n Native) NRGBA() color.NRGBA {
	v := n.RGB565()
	r := uint8(v>>11) & 0x1f
	g := uint8(v>>5) & 0x3f
	b := uint8(v) & 0x1f
	return color.NRGBA{
		R: r<<3 | r>>2,
		G: g<<2 | g>>4,
		B: b<<3 | b>>2,
		A: 0xff,
	}
}

// FromColor converts any color.Color to Native form.
func FromColor(c color.Color) Native {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB(nc.R, nc.G, nc.B)
}

// Named colours.
var (
	Black = RGB(0, 0, 0)
	White = RGB(0xff, 0xff, 0xff)
	Red   = RGB(0xff, 0, 0)
	Green = RGB(0, 0xff, 0)
	Blue  = RGB(0, 0, 0xff)
)
