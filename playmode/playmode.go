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

// Package playmode runs a frame source through the display pipeline at the
// source's refresh rate. It is the RUN mode of the program.
//
// Frames are drawn into one half of a presenter.Double and presented along
// with the other half. When presenting falls behind the refresh rate a frame
// is drawn but not presented, which keeps the source running at its own pace.
package playmode

import (
	"time"

	"github.com/jetsetilly/spipanel/diff"
	"github.com/jetsetilly/spipanel/display"
	"github.com/jetsetilly/spipanel/framebuffer"
	"github.com/jetsetilly/spipanel/presenter"
)

// Source of frames. Implemented by testcard.Card and imagesource.Still.
type Source interface {
	// the dimensions of the frames
	Size() (int, int)

	// the shape of the source's pixels
	Aspect() float64

	// frames per second
	RefreshRate() int

	// a new frame suitable for Draw()
	NewFrame() *framebuffer.Frame

	// draw the next frame. the frame may change size
	Draw(f *framebuffer.Frame)
}

// Cycler is implemented by sources with a palette that can be cycled.
type Cycler interface {
	SetCycling(bool)
	Cycling() bool
}

// Display is the part of display.Pipeline used by playmode.
type Display interface {
	presenter.Writer
	SetScale(width, height int, aspect float64)
	ResetScale(width, height int)
	SetBacklight(level int) error
	Backlight() int
	Blank() error
	ShowError(screen display.ErrorScreen) error
	ShowHourglass() error
	Stats() display.Stats
}

// Config for Play().
type Config struct {
	Diff diff.Config

	// how long presenting a frame waits for the previous frame
	Timeout time.Duration

	// can be nil
	Recorder presenter.Recorder

	// scale the source to fit the panel. if false the source is centred
	// without scaling
	Fit bool

	// run as fast as possible rather than at the source's refresh rate
	Uncapped bool

	// stop after this many frames. zero means run until quit
	Frames int

	// wait for every frame to reach the panel before drawing the next. the
	// OnFrame function is called after every frame has reached the panel
	Sync    bool
	OnFrame func(frame int)

	// how often statistics are logged. zero means never
	Report time.Duration
}

// DefaultConfig returns the configuration for an interactive session.
func DefaultConfig() Config {
	return Config{
		Diff:    diff.DefaultConfig,
		Timeout: time.Second,
		Fit:     true,
		Report:  time.Second,
	}
}
