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

import (
	"github.com/jetsetilly/spipanel/diff"
	"github.com/jetsetilly/spipanel/framebuffer"
	"github.com/jetsetilly/spipanel/panel"
)

// ErrorScreen selects the screen shown by ShowError().
type ErrorScreen int

// List of valid ErrorScreen values.
const (
	// a card glyph on a white background
	StorageError ErrorScreen = iota

	// a plain red screen
	GeneralError
)

func (e ErrorScreen) String() string {
	switch e {
	case StorageError:
		return "storage"
	case GeneralError:
		return "general"
	}
	return "unknown"
}

// run the function inside a session
func (pl *Pipeline) session(f func(s *Session) error) error {
	s, err := pl.Lock()
	if err != nil {
		return err
	}

	err = f(s)

	if uerr := s.Unlock(); err == nil {
		err = uerr
	}

	return err
}

// WriteFullFrame writes a panel sized buffer of RGB565 pixels. A nil buffer
// blanks the panel.
func (pl *Pipeline) WriteFullFrame(pix []uint16) error {
	return pl.session(func(s *Session) error {
		return s.WriteRegion(0, 0, pl.geom.Width, pl.geom.Height, pix)
	})
}

// WriteRegion writes RGB565 pixels to a rectangle of the panel. See
// Session.WriteRegion().
func (pl *Pipeline) WriteRegion(left, top, width, height int, pix []uint16) error {
	return pl.session(func(s *Session) error {
		return s.WriteRegion(left, top, width, height, pix)
	})
}

// WriteFrameScaled writes the runs of a frame using the current scale. See
// Session.WriteFrameScaled().
func (pl *Pipeline) WriteFrameScaled(frame *framebuffer.Frame, runs []diff.Run) error {
	return pl.session(func(s *Session) error {
		return s.WriteFrameScaled(frame, runs)
	})
}

// WriteFrameAdaptive compares the frame with the previous frame and writes
// only what has changed. A nil previous frame writes the entire frame. A nil
// frame blanks the panel.
//
// Returns true if anything was written to the panel, whether a full or a
// partial update. Returns false for an unchanged frame.
func (pl *Pipeline) WriteFrameAdaptive(cur, prev *framebuffer.Frame) (bool, error) {
	var written bool

	err := pl.session(func(s *Session) error {
		if cur == nil || cur.Pix == nil {
			written = true
			return s.Blank()
		}

		if err := cur.Validate(); err != nil {
			return pl.fail(err)
		}
		if prev != nil {
			if err := prev.Validate(); err != nil {
				return pl.fail(err)
			}
		}

		pl.runs = diff.Diff(cur, prev, pl.cfg.Diff, pl.runs)
		if diff.Changed(pl.runs) == 0 {
			pl.unchanged.Add(1)
			return nil
		}

		written = true
		return s.WriteFrameScaled(cur, pl.runs)
	})

	return written, err
}

// Fill the panel with a single colour.
func (pl *Pipeline) Fill(colour panel.Native) error {
	return pl.session(func(s *Session) error {
		return s.Fill(colour)
	})
}

// Blank fills the panel with black.
func (pl *Pipeline) Blank() error {
	return pl.Fill(panel.Black)
}

// ShowError fills the panel with an error screen.
func (pl *Pipeline) ShowError(screen ErrorScreen) error {
	return pl.session(func(s *Session) error {
		switch screen {
		case StorageError:
			if err := s.Fill(panel.White); err != nil {
				return err
			}
			return s.WriteCentered(glyphSize, glyphSize, cardGlyph)
		default:
			return s.Fill(panel.Red)
		}
	})
}

// ShowHourglass draws an hourglass in the centre of the panel. The rest of
// the panel is not changed.
func (pl *Pipeline) ShowHourglass() error {
	return pl.session(func(s *Session) error {
		return s.WriteCentered(glyphSize, glyphSize, hourglassGlyph)
	})
}
