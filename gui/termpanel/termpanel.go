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

// Package termpanel mirrors the memory of the simulated panel in a terminal.
// Each character cell shows two pixels, one above the other, using the upper
// half block character. The panel is sampled down to fit the terminal.
package termpanel

import (
	"fmt"
	"io"

	"github.com/gdamore/tcell/v2"
	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/gui"
	"github.com/jetsetilly/spipanel/logger"
	"github.com/jetsetilly/spipanel/panel"
)

// TerminalError is the pattern for errors from the terminal.
const TerminalError = "termpanel: %v"

const upperHalfBlock = '▀'

// Terminal is the tcell mirror of the panel. It implements the
// gui.GuiCreator interface.
type Terminal struct {
	mirror *gui.Mirror
	events chan<- gui.Event
	screen tcell.Screen

	tcellEvents chan tcell.Event
	quit        chan struct{}

	// force a redraw on the next call to Service()
	dirty bool
}

// NewTerminal uses the terminal for the mirror.
func NewTerminal(src gui.Source, events chan<- gui.Event) (*Terminal, error) {
	scr, err := tcell.NewScreen()
	if err != nil {
		return nil, curated.Errorf(TerminalError, err)
	}
	return NewTerminalWithScreen(src, scr, events)
}

// NewTerminalWithScreen uses the specified tcell.Screen for the mirror. The
// screen will be initialised.
func NewTerminalWithScreen(src gui.Source, scr tcell.Screen, events chan<- gui.Event) (*Terminal, error) {
	if err := scr.Init(); err != nil {
		return nil, curated.Errorf(TerminalError, err)
	}
	scr.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	scr.HideCursor()
	scr.Clear()

	term := &Terminal{
		mirror:      gui.NewMirror(src),
		events:      events,
		screen:      scr,
		tcellEvents: make(chan tcell.Event, 10),
		quit:        make(chan struct{}),
		dirty:       true,
	}

	go func() {
		for {
			ev := scr.PollEvent()
			if ev == nil {
				return
			}
			select {
			case term.tcellEvents <- ev:
			case <-term.quit:
				return
			}
		}
	}()

	w, h := scr.Size()
	logger.Logf(logger.Allow, "gui", "terminal mirror %dx%d cells", w, h)

	return term, nil
}

// Service implements the gui.GuiCreator interface.
func (term *Terminal) Service() {
	for done := false; !done; {
		select {
		case ev := <-term.tcellEvents:
			term.handleEvent(ev)
		default:
			done = true
		}
	}

	if term.mirror.Update() || term.dirty {
		term.dirty = false
		term.draw()
	}
}

func (term *Terminal) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		term.screen.Clear()
		term.dirty = true

	case *tcell.EventKey:
		mod := gui.KeyModNone
		switch {
		case ev.Modifiers()&tcell.ModAlt != 0:
			mod = gui.KeyModAlt
		case ev.Modifiers()&tcell.ModShift != 0:
			mod = gui.KeyModShift
		case ev.Modifiers()&tcell.ModCtrl != 0:
			mod = gui.KeyModCtrl
		}

		switch ev.Key() {
		case tcell.KeyCtrlC:
			gui.Send(term.events, gui.EventQuit{})
		case tcell.KeyEscape:
			gui.Send(term.events, gui.EventKeyboard{Key: "Escape", Mod: mod})
		case tcell.KeyUp:
			gui.Send(term.events, gui.EventKeyboard{Key: "Up", Mod: mod})
		case tcell.KeyDown:
			gui.Send(term.events, gui.EventKeyboard{Key: "Down", Mod: mod})
		case tcell.KeyLeft:
			gui.Send(term.events, gui.EventKeyboard{Key: "Left", Mod: mod})
		case tcell.KeyRight:
			gui.Send(term.events, gui.EventKeyboard{Key: "Right", Mod: mod})
		case tcell.KeyRune:
			gui.Send(term.events, gui.EventKeyboard{Key: keyName(ev.Rune()), Mod: mod})
		}
	}
}

// keyName returns the name SDL would give the key.
func keyName(r rune) string {
	switch {
	case r >= 'a' && r <= 'z':
		return string(r - 'a' + 'A')
	case r == ' ':
		return "Space"
	}
	return string(r)
}

func colour(n panel.Native) tcell.Color {
	c := n.NRGBA()
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

// Cells returns the size of the mirror in character cells for a screen of
// the given size. The panel aspect ratio is preserved.
func Cells(geom panel.Geometry, screenWidth, screenHeight int) (int, int) {
	w := geom.Width
	h := (geom.Height + 1) / 2
	if w > screenWidth {
		h = h * screenWidth / w
		w = screenWidth
	}
	if h > screenHeight {
		w = w * screenHeight / h
		h = screenHeight
	}
	return max(w, 1), max(h, 1)
}

func (term *Terminal) draw() {
	geom := term.mirror.Geometry()
	sw, sh := term.screen.Size()
	cw, ch := Cells(geom, sw, sh)

	for cy := range ch {
		top := (cy * 2) * geom.Height / (ch * 2)
		bottom := min((cy*2+1)*geom.Height/(ch*2), geom.Height-1)
		for cx := range cw {
			x := cx * geom.Width / cw
			style := tcell.StyleDefault.
				Foreground(colour(term.mirror.Pixel(x, top))).
				Background(colour(term.mirror.Pixel(x, bottom)))
			term.screen.SetContent(cx, cy, upperHalfBlock, nil, style)
		}
	}

	term.screen.Show()
}

// Destroy implements the gui.GuiCreator interface.
func (term *Terminal) Destroy(output io.Writer) {
	close(term.quit)
	term.screen.Fini()
	if output != nil {
		fmt.Fprint(output, "\r")
	}
}
