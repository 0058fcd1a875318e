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

package easyterm

// list of ASCII codes for non-alphanumeric characters
const (
	KeyInterrupt      = 3  // end-of-text character
	KeySuspend        = 26 // substitute character
	KeyTab            = 9
	KeyCarriageReturn = 13
	KeyEsc            = 27
	KeyBackspace      = 127
)

// list of ASCII codes for characters that can follow KeyEsc
const (
	EscCursor = '['
)

// list of ASCII codes for characters that can follow EscCursor
const (
	CursorUp       = 'A'
	CursorDown     = 'B'
	CursorForward  = 'C'
	CursorBackward = 'D'
)

// DecodeKeys returns the names of the keys in the bytes read from the
// terminal. The names are those that SDL uses so that key handling is the
// same for every window type. Unrecognised escape sequences are dropped.
func DecodeKeys(b []byte) []string {
	var keys []string

	for i := 0; i < len(b); i++ {
		c := b[i]

		switch {
		case c == KeyEsc:
			if i+2 < len(b) && b[i+1] == EscCursor {
				switch b[i+2] {
				case CursorUp:
					keys = append(keys, "Up")
				case CursorDown:
					keys = append(keys, "Down")
				case CursorForward:
					keys = append(keys, "Right")
				case CursorBackward:
					keys = append(keys, "Left")
				}
				i += 2
				continue
			}
			keys = append(keys, "Escape")

		case c == KeyTab:
			keys = append(keys, "Tab")
		case c == KeyCarriageReturn || c == '\n':
			keys = append(keys, "Return")
		case c == KeyBackspace:
			keys = append(keys, "Backspace")
		case c == ' ':
			keys = append(keys, "Space")
		case c >= 'a' && c <= 'z':
			keys = append(keys, string(rune(c-'a'+'A')))
		case c > ' ' && c < 127:
			keys = append(keys, string(rune(c)))
		}
	}

	return keys
}
