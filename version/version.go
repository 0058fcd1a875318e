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

// Package version reports the version of the program from the number set by
// the linker and the VCS information embedded by the Go toolchain.
package version

import (
	"fmt"
	"runtime/debug"
)

// ApplicationName is the name to use when referring to the program.
const ApplicationName = "Spipanel"

// set by the linker. for example:
//
//	go build -ldflags "-X github.com/jetsetilly/spipanel/version.number=v0.1.0"
var number string

// Info describes the build.
type Info struct {
	// the release number. "unreleased" if the build has VCS information but
	// no number and "local" if it has neither
	Version string

	// the VCS revision, suffixed with "+dirty" if the source was modified
	Revision string

	// the build has a release number
	Release bool
}

func (i Info) String() string {
	if i.Release {
		return fmt.Sprintf("%s %s", ApplicationName, i.Version)
	}
	return fmt.Sprintf("%s %s (%s)", ApplicationName, i.Version, i.Revision)
}

var info Info

// Version returns the build information.
func Version() Info {
	return info
}

func init() {
	bi, _ := debug.ReadBuildInfo()
	info = fromBuildInfo(number, bi)
}

func fromBuildInfo(number string, bi *debug.BuildInfo) Info {
	var vcs bool
	var vcsRevision string
	var vcsModified bool

	if bi != nil {
		for _, v := range bi.Settings {
			switch v.Key {
			case "vcs":
				vcs = true
			case "vcs.revision":
				vcsRevision = v.Value
			case "vcs.modified":
				vcsModified = v.Value == "true"
			}
		}
	}

	var i Info

	if vcsRevision == "" {
		i.Revision = "no revision information"
	} else {
		i.Revision = vcsRevision
		if vcsModified {
			i.Revision = fmt.Sprintf("%s+dirty", i.Revision)
		}
	}

	switch {
	case number != "":
		i.Version = number
		i.Release = true
	case vcs:
		i.Version = "unreleased"
	default:
		i.Version = "local"
	}

	return i
}
