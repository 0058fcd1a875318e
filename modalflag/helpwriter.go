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

package modalflag

import (
	"fmt"
	"io"
	"strings"
)

// helpWriter collects the flag defaults written by the flag package so that
// they can be combined with the mode information.
type helpWriter struct {
	strings.Builder
}

// the banner written by the flag package before the flag defaults
const flagBanner = "Usage:\n"

func (hw *helpWriter) Help(output io.Writer, banner string, subModes []string, additionalHelp string) {
	defaults := strings.TrimPrefix(hw.String(), flagBanner)

	var s strings.Builder

	if defaults == "" && len(subModes) == 0 {
		s.WriteString("No help available")
		if banner != "" {
			fmt.Fprintf(&s, " for %s", banner)
		}
		s.WriteString("\n")
		io.WriteString(output, s.String())
		return
	}

	if banner != "" {
		fmt.Fprintf(&s, "Usage of %s mode:\n", banner)
	} else {
		s.WriteString(flagBanner)
	}
	s.WriteString(defaults)

	if len(subModes) > 0 {
		if defaults != "" {
			s.WriteString("\n")
		}
		modes := make([]string, len(subModes))
		copy(modes, subModes)
		modes[0] = fmt.Sprintf("%s (default)", modes[0])
		fmt.Fprintf(&s, "  modes: %s\n", strings.Join(modes, ", "))
	}

	if additionalHelp != "" {
		fmt.Fprintf(&s, "\n%s\n", additionalHelp)
	}

	io.WriteString(output, s.String())
}
