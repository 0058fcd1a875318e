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

// Package panel describes the destination of the display pipeline: an SPI
// attached colour LCD controller of the ILI9341 family.
//
// The panel accepts 16-bit RGB565 pixels, most significant byte first. The
// transport serialises 16-bit values least significant byte first so colours
// are kept in Native form, which is RGB565 with the bytes swapped. Palettes
// supplied by a frame producer are expected to already be in Native form.
package panel

import "time"

// Geometry is the size of the panel in pixels.
type Geometry struct {
	Width  int
	Height int
}

// ILI9341 is the geometry of the panel in landscape orientation.
var ILI9341 = Geometry{Width: 320, Height: 240}

// Pixels returns the number of pixels on the panel.
func (g Geometry) Pixels() int {
	return g.Width * g.Height
}

// Aspect returns the width/height ratio of the panel.
func (g Geometry) Aspect() float64 {
	return float64(g.Width) / float64(g.Height)
}

// Controller commands used by the pipeline. A command is always followed by
// zero or more bytes of data.
const (
	SoftwareReset       = 0x01
	SleepIn             = 0x10
	DisplayOff          = 0x28
	ColumnAddressSet    = 0x2a
	PageAddressSet      = 0x2b
	MemoryWrite         = 0x2c
	MemoryWriteContinue = 0x3c
)

// Reference sizing of the pipeline. These are the values used by default and
// can be changed through the display preferences.
const (
	// the number of panel lines that fit into a single line buffer
	LineCount = 5

	// the number of line buffers in the pool
	LineBuffers = 2

	// the number of transaction slots
	TransactionCount = 4

	// fraction of the frame that can change before the diff gives up and
	// asks for a full update
	FullUpdateThreshold = 0.4

	// maximum difference, in pixels, between the edges of adjacent changed
	// scanlines for them to be merged
	CoalesceTolerance = 8

	// how long to wait for a line buffer, a transaction slot or the display
	// lock before the pipeline is considered stalled
	Timeout = time.Second
)

// BacklightLevels are the supported backlight levels, expressed as a
// percentage of maximum duty.
var BacklightLevels = [...]int{10, 25, 50, 75, 100}

// DefaultBacklight is an index into BacklightLevels.
const DefaultBacklight = 2
