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

// Package sdlpanel is an SDL window showing the memory of the simulated panel.
// The window is scaled by an integer amount and is redrawn only when the panel
// memory changes.
package sdlpanel

import (
	"fmt"
	"io"

	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/gui"
	"github.com/jetsetilly/spipanel/logger"
	"github.com/veandco/go-sdl2/sdl"
)

// SDLError is the pattern for all errors returned by SDL.
const SDLError = "sdlpanel: %v"

// bytes per pixel of the texture
const pixelDepth = 2

// Window is the SDL mirror of the panel. It implements the gui.GuiCreator
// interface.
type Window struct {
	mirror *gui.Mirror
	events chan<- gui.Event

	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture

	width  int32
	height int32
	scale  int32
}

// NewWindow creates the window. Keyboard events and window closure are sent
// over the events channel.
//
// MUST ONLY be called from the #mainthread
func NewWindow(src gui.Source, scale int, events chan<- gui.Event) (*Window, error) {
	win := &Window{
		mirror: gui.NewMirror(src),
		events: events,
		scale:  int32(max(scale, 1)),
	}

	geom := win.mirror.Geometry()
	win.width = int32(geom.Width)
	win.height = int32(geom.Height)

	err := sdl.Init(sdl.INIT_VIDEO)
	if err != nil {
		return nil, curated.Errorf(SDLError, err)
	}

	// MOUSEMOTION events fill up the event queue and are of no use to us
	sdl.EventState(sdl.MOUSEMOTION, sdl.IGNORE)

	win.window, err = sdl.CreateWindow(fmt.Sprintf("Spipanel %dx%d", geom.Width, geom.Height),
		int32(sdl.WINDOWPOS_UNDEFINED), int32(sdl.WINDOWPOS_UNDEFINED),
		win.width*win.scale, win.height*win.scale,
		uint32(sdl.WINDOW_SHOWN))
	if err != nil {
		sdl.Quit()
		return nil, curated.Errorf(SDLError, err)
	}

	win.renderer, err = sdl.CreateRenderer(win.window, -1, uint32(sdl.RENDERER_ACCELERATED))
	if err != nil {
		win.window.Destroy()
		sdl.Quit()
		return nil, curated.Errorf(SDLError, err)
	}

	// the renderer scales the texture to fill the window
	err = win.renderer.SetLogicalSize(win.width, win.height)
	if err != nil {
		win.Destroy(nil)
		return nil, curated.Errorf(SDLError, err)
	}

	// the texture has the same pixel format as the panel. the texture bytes
	// are in the machine's byte order
	win.texture, err = win.renderer.CreateTexture(uint32(sdl.PIXELFORMAT_RGB565),
		int(sdl.TEXTUREACCESS_STREAMING),
		win.width, win.height)
	if err != nil {
		win.Destroy(nil)
		return nil, curated.Errorf(SDLError, err)
	}

	logger.Logf(logger.Allow, "gui", "sdl window %dx%d (scale %d)", geom.Width, geom.Height, win.scale)

	return win, nil
}

// Service implements the gui.GuiCreator interface.
//
// MUST ONLY be called from the #mainthread
func (win *Window) Service() {
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		switch ev := ev.(type) {
		case *sdl.QuitEvent:
			gui.Send(win.events, gui.EventQuit{})

		case *sdl.KeyboardEvent:
			if ev.Type != sdl.KEYDOWN || ev.Repeat != 0 {
				break
			}

			mod := gui.KeyModNone
			ms := sdl.GetModState()
			if ms&sdl.KMOD_LALT == sdl.KMOD_LALT || ms&sdl.KMOD_RALT == sdl.KMOD_RALT {
				mod = gui.KeyModAlt
			} else if ms&sdl.KMOD_LSHIFT == sdl.KMOD_LSHIFT || ms&sdl.KMOD_RSHIFT == sdl.KMOD_RSHIFT {
				mod = gui.KeyModShift
			} else if ms&sdl.KMOD_LCTRL == sdl.KMOD_LCTRL || ms&sdl.KMOD_RCTRL == sdl.KMOD_RCTRL {
				mod = gui.KeyModCtrl
			}

			gui.Send(win.events, gui.EventKeyboard{
				Key: sdl.GetKeyName(ev.Keysym.Sym),
				Mod: mod,
			})
		}
	}

	if !win.mirror.Update() {
		sdl.Delay(1)
		return
	}

	if err := win.render(); err != nil {
		logger.Log(logger.Allow, "gui", err)
	}
}

func (win *Window) render() error {
	pixels, pitch, err := win.texture.Lock(nil)
	if err != nil {
		return curated.Errorf(SDLError, err)
	}

	pix := win.mirror.Pixels()
	for y := range int(win.height) {
		row := pixels[y*pitch:]
		for x := range int(win.width) {
			v := pix[y*int(win.width)+x].RGB565()
			row[x*pixelDepth] = uint8(v)
			row[x*pixelDepth+1] = uint8(v >> 8)
		}
	}

	win.texture.Unlock()

	if err := win.renderer.Clear(); err != nil {
		return curated.Errorf(SDLError, err)
	}
	if err := win.renderer.Copy(win.texture, nil, nil); err != nil {
		return curated.Errorf(SDLError, err)
	}
	win.renderer.Present()

	return nil
}

// Destroy implements the gui.GuiCreator interface.
//
// MUST ONLY be called from the #mainthread
func (win *Window) Destroy(output io.Writer) {
	if win.texture != nil {
		if err := win.texture.Destroy(); err != nil && output != nil {
			fmt.Fprintln(output, err)
		}
	}
	if win.renderer != nil {
		if err := win.renderer.Destroy(); err != nil && output != nil {
			fmt.Fprintln(output, err)
		}
	}
	if win.window != nil {
		if err := win.window.Destroy(); err != nil && output != nil {
			fmt.Fprintln(output, err)
		}
	}
	sdl.Quit()
}
