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

// Package imagesource turns still images into source frames. Paletted images
// become indexed frames and everything else becomes an RGB565 frame.
//
// The formats understood are PNG, GIF, JPEG, BMP, TIFF and WebP.
package imagesource

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/framebuffer"
	"github.com/jetsetilly/spipanel/panel"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Sentinal error patterns.
const (
	DecodeError = "imagesource: %v"
)

// Load the image at path.
func Load(path string) (*framebuffer.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, curated.Errorf(DecodeError, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode an image from the reader.
func Decode(r io.Reader) (*framebuffer.Frame, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, curated.Errorf(DecodeError, err)
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, curated.Errorf(DecodeError, fmt.Sprintf("empty %s image", format))
	}

	if p, ok := img.(*image.Paletted); ok {
		return FromPaletted(p), nil
	}

	return FromImage(img), nil
}

// FromPaletted creates an indexed frame from a paletted image. The palette is
// padded with black to a power of two so that it can be addressed with a
// pixel mask.
func FromPaletted(img *image.Paletted) *framebuffer.Frame {
	n := 1
	for n < len(img.Palette) {
		n <<= 1
	}

	pal := make([]panel.Native, n)
	for i, c := range img.Palette {
		pal[i] = panel.FromColor(c)
	}

	b := img.Bounds()
	f := framebuffer.NewIndexed(b.Dx(), b.Dy(), uint8(n-1), pal)
	for y := range b.Dy() {
		copy(f.Row(y), img.Pix[y*img.Stride:y*img.Stride+b.Dx()])
	}

	return f
}

// FromImage creates an RGB565 frame from any image.
func FromImage(img image.Image) *framebuffer.Frame {
	b := img.Bounds()
	f := framebuffer.NewRGB565(b.Dx(), b.Dy())
	for y := range b.Dy() {
		for x := range b.Dx() {
			f.SetRGB565(x, y, panel.FromColor(img.At(b.Min.X+x, b.Min.Y+y)).RGB565())
		}
	}
	return f
}
