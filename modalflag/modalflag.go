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
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jetsetilly/spipanel/panel"
)

const modeSeparator = "/"

// Modes provides an easy way of handling command line arguments. The Output
// field should be specified before calling Parse() or you will not see any
// help messages.
type Modes struct {
	// where to print help messages
	Output io.Writer

	// a new flagset is created on every call to NewArgs() and NewMode()
	flags *flag.FlagSet

	// the argument list as specified by the NewArgs() function. argsIdx is
	// the start of the arguments for the next call to Parse()
	args    []string
	argsIdx int

	// the sub-modes for the next call to Parse(). the first is the default
	subModes []string

	// the series of sub-modes selected by calls to Parse(). never reset
	path []string

	// help text for the current mode in addition to the flag defaults
	additionalHelp string
}

func (md *Modes) String() string {
	return md.Path()
}

// Mode returns the most recently selected mode.
func (md *Modes) Mode() string {
	if len(md.path) == 0 {
		return ""
	}
	return md.path[len(md.path)-1]
}

// Path returns all the modes selected so far, separated by a slash.
func (md *Modes) Path() string {
	return strings.Join(md.path, modeSeparator)
}

// NewArgs starts a new argument list, from the command line for example.
func (md *Modes) NewArgs(args []string) {
	md.args = args
	md.argsIdx = 0
	md.NewMode()
}

// NewMode indicates that further arguments should be considered part of a new
// mode. Flags and sub-modes of the previous mode are forgotten.
func (md *Modes) NewMode() {
	md.subModes = md.subModes[:0]
	md.flags = flag.NewFlagSet("", flag.ContinueOnError)
	md.additionalHelp = ""
}

// AdditionalHelp is text to be displayed after the help for the flags of the
// current mode.
func (md *Modes) AdditionalHelp(help string) {
	md.additionalHelp = help
}

// ParseResult is returned from the Parse() function.
type ParseResult int

// List of valid ParseResult values.
const (
	// Continue with command line processing. If sub-modes were specified then
	// Mode() returns the selected sub-mode.
	ParseContinue ParseResult = iota

	// Help was requested and has been printed.
	ParseHelp

	// An error has occurred and is returned as the second return value.
	ParseError
)

// Parse the arguments for the current mode. Help messages are printed to
// Output automatically and ParseHelp returned. The caller should treat ParseHelp
// like an error but without printing anything further:
//
//	r, err := md.Parse()
//	switch r {
//	case ParseHelp:
//		return
//	case ParseError:
//		printError(err)
//		return
//	}
func (md *Modes) Parse() (ParseResult, error) {
	hw := &helpWriter{}
	md.flags.SetOutput(hw)

	err := md.flags.Parse(md.args[md.argsIdx:])
	if err != nil {
		if err == flag.ErrHelp {
			hw.Help(md.Output, md.Path(), md.subModes, md.additionalHelp)
			return ParseHelp, nil
		}

		// unrecognised flags may belong to the default sub-mode
		if len(md.subModes) == 0 {
			return ParseError, err
		}
		md.path = append(md.path, md.subModes[0])
		return ParseContinue, nil
	}

	if len(md.subModes) > 0 {
		mode, ok := md.matchSubMode(md.flags.Arg(0))
		if ok {
			md.argsIdx++
		}
		md.path = append(md.path, mode)
	}

	return ParseContinue, nil
}

// returns the sub-mode named by arg or the default sub-mode if arg is not a
// sub-mode
func (md *Modes) matchSubMode(arg string) (string, bool) {
	for _, m := range md.subModes {
		if strings.EqualFold(m, arg) {
			return m, true
		}
	}
	return md.subModes[0], false
}

// RemainingArgs after a call to Parse(). ie. arguments that aren't flags or a
// sub-mode.
func (md *Modes) RemainingArgs() []string {
	return md.flags.Args()
}

// GetArg returns the numbered argument that isn't a flag or a sub-mode.
func (md *Modes) GetArg(i int) string {
	return md.flags.Arg(i)
}

// AddSubModes for the next call to Parse(). The first sub-mode is the default.
// Sub-modes are case insensitive and are reported by Mode() in upper case.
func (md *Modes) AddSubModes(submodes ...string) {
	for _, m := range submodes {
		md.subModes = append(md.subModes, strings.ToUpper(m))
	}
}

// AddBool flag for next call to Parse().
func (md *Modes) AddBool(name string, value bool, usage string) *bool {
	return md.flags.Bool(name, value, usage)
}

// AddDuration flag for next call to Parse().
func (md *Modes) AddDuration(name string, value time.Duration, usage string) *time.Duration {
	return md.flags.Duration(name, value, usage)
}

// AddInt flag for next call to Parse().
func (md *Modes) AddInt(name string, value int, usage string) *int {
	return md.flags.Int(name, value, usage)
}

// AddString flag for next call to Parse().
func (md *Modes) AddString(name string, value string, usage string) *string {
	return md.flags.String(name, value, usage)
}

// AddGeometry flag for next call to Parse(). The flag is given as WxH, for
// example 320x240.
func (md *Modes) AddGeometry(name string, value panel.Geometry, usage string) *panel.Geometry {
	g := geometryValue(value)
	md.flags.Var(&g, name, usage)
	return (*panel.Geometry)(&g)
}

// geometryValue implements the flag.Value interface for panel.Geometry.
type geometryValue panel.Geometry

func (g *geometryValue) String() string {
	return fmt.Sprintf("%dx%d", g.Width, g.Height)
}

func (g *geometryValue) Set(s string) error {
	var w, h int
	if n, err := fmt.Sscanf(strings.ToLower(s), "%dx%d", &w, &h); err != nil || n != 2 {
		return fmt.Errorf("geometry must be of the form WxH: %q", s)
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("geometry must not be empty: %q", s)
	}
	g.Width = w
	g.Height = h
	return nil
}
