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

// Package modalflag is a wrapper for the flag package in the Go standard
// library. It provides a convenient method of handling program modes (and
// sub-modes) and allows different flags for each mode.
//
// Arguments are given with NewArgs() and then Parse() is called with no
// arguments. This allows the same argument list to be parsed in stages, one
// stage for each mode:
//
//	md := modalflag.Modes{Output: os.Stdout}
//	md.NewArgs(os.Args[1:])
//	md.AddSubModes("RUN", "DIGEST", "PERFORMANCE")
//	p, err := md.Parse()
//	switch p {
//	case modalflag.ParseHelp:
//		return
//	case modalflag.ParseError:
//		return err
//	}
//
//	switch md.Mode() {
//	case "RUN":
//		md.NewMode()
//		geom := md.AddGeometry("panel", panel.Geometry{Width: 320, Height: 240}, "panel size")
//		if p, err := md.Parse(); p != modalflag.ParseContinue {
//			return err
//		}
//		run(*geom, md.GetArg(0))
//	}
//
// The first sub-mode is the default and is selected if the first argument
// after the flags is not a sub-mode. Sub-mode comparisons are case
// insensitive.
//
// Non-flag arguments that follow the mode are available with RemainingArgs()
// and GetArg().
package modalflag
