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

// Package testcard is an animated source of indexed frames. It stands in for
// an emulator when exercising the display pipeline: a static backdrop of
// colour bars and a grey ramp with a sprite bouncing over it.
//
// The sprite is drawn with the palette shift bit set so that it uses the upper
// half of the palette. When palette cycling is enabled the palette rotates
// every frame, which changes the colour of every pixel without changing the
// pixel data.
package testcard

import (
	"fmt"

	"github.com/jetsetilly/spipanel/framebuffer"
	"github.com/jetsetilly/spipanel/panel"
)

// values for the frame's PixelMask and PaletteShiftMask
const (
	PixelMask        = 0x0f
	PaletteShiftMask = 0x40
)

// RefreshRate is the rate at which frames should be presented.
const RefreshRate = 60

const spriteSize = 16

var bars = [8]panel.Native{
	panel.RGB(0xc0, 0xc0, 0xc0),
	panel.RGB(0xc0, 0xc0, 0x00),
	panel.RGB(0x00, 0xc0, 0xc0),
	panel.RGB(0x00, 0xc0, 0x00),
	panel.RGB(0xc0, 0x00, 0xc0),
	panel.RGB(0xc0, 0x00, 0x00),
	panel.RGB(0x00, 0x00, 0xc0),
	panel.RGB(0x10, 0x10, 0x10),
}

// Card is the test card generator.
type Card struct {
	width  int
	height int

	palette []panel.Native

	frame int

	// sprite position and direction
	x, y   int
	dx, dy int

	cycling bool
	caption bool
}

// New is the preferred method of initialisation for the Card type.
func New(width, height int) *Card {
	c := &Card{
		width:  width,
		height: height,
		dx:     1,
		dy:     1,
	}

	// lower half: the bars and an eight step grey ramp
	// upper half: the same colours at full intensity for the sprite
	c.palette = make([]panel.Native, (PixelMask+1)*2)
	for i, b := range bars {
		c.palette[i] = b
	}
	for i := range 8 {
		v := uint8(i * 0x24)
		c.palette[8+i] = panel.RGB(v, v, v)
	}
	for i := range PixelMask + 1 {
		r, g, b, _ := c.palette[i].RGBA()
		c.palette[PixelMask+1+i] = panel.RGB(0xff-uint8(r>>8), 0xff-uint8(g>>8), 0xff-uint8(b>>8))
	}

	return c
}

// Size returns the dimensions of the frames produced by the card.
func (c *Card) Size() (int, int) {
	return c.width, c.height
}

// Aspect returns the shape of the card's pixels.
func (c *Card) Aspect() float64 {
	return 1.0
}

// SetCycling turns palette cycling on or off.
func (c *Card) SetCycling(cycling bool) {
	c.cycling = cycling
}

// Cycling returns true if palette cycling is on.
func (c *Card) Cycling() bool {
	return c.cycling
}

// SetCaption turns the frame counter caption on or off.
func (c *Card) SetCaption(caption bool) {
	c.caption = caption
}

// RefreshRate returns the rate at which frames should be presented.
func (c *Card) RefreshRate() int {
	return RefreshRate
}

// FrameNum returns the number of frames drawn so far.
func (c *Card) FrameNum() int {
	return c.frame
}

// NewFrame allocates a frame suitable for Draw(). Each frame has its own copy
// of the palette.
func (c *Card) NewFrame() *framebuffer.Frame {
	pal := make([]panel.Native, len(c.palette))
	copy(pal, c.palette)
	f := framebuffer.NewIndexed(c.width, c.height, PixelMask, pal)
	f.PaletteShiftMask = PaletteShiftMask
	return f
}

// Draw the next frame into f and advance the animation.
func (c *Card) Draw(f *framebuffer.Frame) {
	ramp := c.height * 2 / 3

	for y := range c.height {
		row := f.Row(y)
		for x := range c.width {
			if y < ramp {
				row[x] = uint8(x * 8 / c.width)
			} else {
				row[x] = uint8(8 + x*8/c.width)
			}
		}
	}

	for y := range spriteSize {
		for x := range spriteSize {
			// a round sprite
			dx := 2*x - spriteSize + 1
			dy := 2*y - spriteSize + 1
			if dx*dx+dy*dy > spriteSize*spriteSize {
				continue
			}
			px, py := c.x+x, c.y+y
			if px < c.width && py < c.height {
				f.Set(px, py, uint8((x+y)/4)&PixelMask|PaletteShiftMask)
			}
		}
	}

	if c.caption {
		drawCaption(f, 2, c.height-3, fmt.Sprintf("%05d", c.frame))
	}

	// rotate the palette in the frame's own copy
	if c.cycling {
		n := len(c.palette)
		for i := range n {
			f.Palette[i] = c.palette[(i+c.frame)%n]
		}
	} else {
		copy(f.Palette, c.palette)
	}

	c.advance()
}

func (c *Card) advance() {
	c.frame++

	c.x += c.dx
	c.y += c.dy
	if c.x <= 0 || c.x+spriteSize >= c.width {
		c.dx = -c.dx
	}
	if c.y <= 0 || c.y+spriteSize >= c.height {
		c.dy = -c.dy
	}
	c.x = max(0, min(c.x, c.width-spriteSize))
	c.y = max(0, min(c.y, c.height-spriteSize))
}
