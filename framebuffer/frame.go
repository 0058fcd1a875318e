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

// Package framebuffer defines the source frame consumed by the display
// pipeline. A frame is produced by something like an emulator core and is
// either indexed (one byte per pixel, resolved through a palette) or direct
// 16-bit RGB565 (two bytes per pixel, little-endian).
//
// Indexed frames may carry a palette shift mask. A pixel with any of the
// shift mask bits set uses the upper half of the palette. For example, with a
// pixel mask of 0x3f and a shift mask of 0x40 the palette must have 128
// entries and a raw pixel value of 0x45 resolves to entry 0x05+0x40.
package framebuffer

import (
	"fmt"

	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/panel"
)

// InvalidFrame is returned by Validate() when the frame is malformed.
const InvalidFrame = "framebuffer: invalid frame: %v"

// Frame is a source frame in producer format.
type Frame struct {
	Width  int
	Height int

	// number of bytes between the start of one row and the start of the next
	Stride int

	// 1 for indexed frames, 2 for RGB565 frames
	PixelWidth int

	// applied to raw indexed pixels before palette lookup. ignored for RGB565
	// frames
	PixelMask uint8

	// selects the upper half of the palette. zero if the frame does not use
	// the upper half
	PaletteShiftMask uint8

	// colours in panel.Native form. nil for RGB565 frames
	Palette []panel.Native

	Pix []byte
}

// NewIndexed creates an indexed frame with a tightly packed buffer.
func NewIndexed(width, height int, pixelMask uint8, palette []panel.Native) *Frame {
	return &Frame{
		Width:      width,
		Height:     height,
		Stride:     width,
		PixelWidth: 1,
		PixelMask:  pixelMask,
		Palette:    palette,
		Pix:        make([]byte, width*height),
	}
}

// NewRGB565 creates a 16-bit frame with a tightly packed buffer.
func NewRGB565(width, height int) *Frame {
	return &Frame{
		Width:      width,
		Height:     height,
		Stride:     width * 2,
		PixelWidth: 2,
		Pix:        make([]byte, width*height*2),
	}
}

func (f *Frame) String() string {
	if f.PixelWidth == 2 {
		return fmt.Sprintf("%dx%d rgb565", f.Width, f.Height)
	}
	return fmt.Sprintf("%dx%d indexed (mask %#02x shift %#02x)", f.Width, f.Height, f.PixelMask, f.PaletteShiftMask)
}

// Indexed returns true if the frame uses a palette.
func (f *Frame) Indexed() bool {
	return f.PixelWidth == 1
}

// PaletteSize returns the number of palette entries that can be reached by
// the combination of PixelMask and PaletteShiftMask.
func (f *Frame) PaletteSize() int {
	if !f.Indexed() {
		return 0
	}
	n := int(f.PixelMask) + 1
	if f.PaletteShiftMask != 0 {
		n += int(f.PixelMask) + 1
	}
	return n
}

// Validate the frame geometry, buffer size and palette.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return curated.Errorf(InvalidFrame, fmt.Sprintf("dimensions %dx%d", f.Width, f.Height))
	}

	switch f.PixelWidth {
	case 1:
		if len(f.Palette) < f.PaletteSize() {
			return curated.Errorf(InvalidFrame, fmt.Sprintf("palette has %d entries, needs %d", len(f.Palette), f.PaletteSize()))
		}
	case 2:
		if f.Palette != nil {
			return curated.Errorf(InvalidFrame, "rgb565 frame has a palette")
		}
	default:
		return curated.Errorf(InvalidFrame, fmt.Sprintf("pixel width of %d", f.PixelWidth))
	}

	if f.Stride < f.Width*f.PixelWidth {
		return curated.Errorf(InvalidFrame, fmt.Sprintf("stride of %d is too small", f.Stride))
	}

	if len(f.Pix) < f.Stride*(f.Height-1)+f.Width*f.PixelWidth {
		return curated.Errorf(InvalidFrame, fmt.Sprintf("buffer of %d bytes is too small", len(f.Pix)))
	}

	return nil
}

// Resolve a raw indexed pixel value to a Native colour.
func (f *Frame) Resolve(raw uint8) panel.Native {
	idx := int(raw & f.PixelMask)
	if f.PaletteShiftMask != 0 && raw&f.PaletteShiftMask != 0 {
		idx += int(f.PixelMask) + 1
	}
	return f.Palette[idx]
}

// Sample returns the Native colour of the pixel at x, y.
func (f *Frame) Sample(x, y int) panel.Native {
	i := y*f.Stride + x*f.PixelWidth
	if f.PixelWidth == 2 {
		return panel.FromRGB565(uint16(f.Pix[i]) | uint16(f.Pix[i+1])<<8)
	}
	return f.Resolve(f.Pix[i])
}

// Row returns the bytes of row y. The length of the slice is exactly
// Width*PixelWidth.
func (f *Frame) Row(y int) []byte {
	i := y * f.Stride
	return f.Pix[i : i+f.Width*f.PixelWidth]
}

// Set the raw indexed value of the pixel at x, y.
func (f *Frame) Set(x, y int, raw uint8) {
	f.Pix[y*f.Stride+x] = raw
}

// SetRGB565 sets the value of the pixel at x, y in a 16-bit frame.
func (f *Frame) SetRGB565(x, y int, v uint16) {
	i := y*f.Stride + x*2
	f.Pix[i] = uint8(v)
	f.Pix[i+1] = uint8(v >> 8)
}

// Clone returns a deep copy of the frame. The palette is shared.
func (f *Frame) Clone() *Frame {
	c := *f
	c.Pix = make([]byte, len(f.Pix))
	copy(c.Pix, f.Pix)
	return &c
}

// CopyFrom copies the pixels and format of another frame into this frame. The
// buffer is reallocated only if it is too small.
func (f *Frame) CopyFrom(o *Frame) {
	pix := f.Pix
	*f = *o
	if cap(pix) < len(o.Pix) {
		pix = make([]byte, len(o.Pix))
	}
	f.Pix = pix[:len(o.Pix)]
	copy(f.Pix, o.Pix)
}

// SamePalette returns true if the two frames resolve every raw pixel value in
// the same way. Two RGB565 frames always resolve in the same way.
func SamePalette(a, b *Frame) bool {
	if a.PixelWidth != b.PixelWidth {
		return false
	}
	if !a.Indexed() {
		return true
	}
	if a.PixelMask != b.PixelMask || a.PaletteShiftMask != b.PaletteShiftMask {
		return false
	}

	n := a.PaletteSize()
	if len(a.Palette) < n || len(b.Palette) < n {
		return false
	}
	if n > 0 && &a.Palette[0] == &b.Palette[0] {
		return true
	}
	for i := range n {
		if a.Palette[i] != b.Palette[i] {
			return false
		}
	}
	return true
}
