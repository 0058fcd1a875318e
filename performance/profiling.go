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

package performance

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"strings"

	"github.com/jetsetilly/spipanel/curated"
)

// ProfileError is the pattern for errors when creating profiles.
const ProfileError = "performance: profile: %v"

// Profile specifies which profiling (if any) should be applied.
type Profile int

// List of valid Profile values. Values can be combined.
const (
	ProfileNone  Profile = 0b0000
	ProfileCPU   Profile = 0b0001
	ProfileMem   Profile = 0b0010
	ProfileTrace Profile = 0b0100
	ProfileAll   Profile = ProfileCPU | ProfileMem | ProfileTrace
)

func (p Profile) String() string {
	if p == ProfileNone {
		return "NONE"
	}
	var s []string
	if p&ProfileCPU == ProfileCPU {
		s = append(s, "CPU")
	}
	if p&ProfileMem == ProfileMem {
		s = append(s, "MEM")
	}
	if p&ProfileTrace == ProfileTrace {
		s = append(s, "TRACE")
	}
	return strings.Join(s, ",")
}

// ParseProfileString converts a comma separated list of profile names to a
// Profile value. Valid names are NONE, CPU, MEM, TRACE and ALL. Names are case
// insensitive.
func ParseProfileString(profile string) (Profile, error) {
	p := ProfileNone
	for _, s := range strings.Split(profile, ",") {
		switch strings.ToUpper(strings.TrimSpace(s)) {
		case "", "NONE":
		case "CPU":
			p |= ProfileCPU
		case "MEM":
			p |= ProfileMem
		case "TRACE":
			p |= ProfileTrace
		case "ALL":
			p |= ProfileAll
		default:
			return ProfileNone, curated.Errorf(ProfileError, fmt.Sprintf("unknown profile type %q", s))
		}
	}
	return p, nil
}

// RunProfiler runs the supplied function with the profiling requested by the
// Profile argument. Profiles are written to files named with the
// filenameHeader, for example "performance_cpu.profile".
func RunProfiler(profile Profile, filenameHeader string, run func() error) (rerr error) {
	if profile&ProfileCPU == ProfileCPU {
		f, err := os.Create(fmt.Sprintf("%s_cpu.profile", filenameHeader))
		if err != nil {
			return curated.Errorf(ProfileError, err)
		}
		defer func() {
			if err := f.Close(); err != nil && rerr == nil {
				rerr = curated.Errorf(ProfileError, err)
			}
		}()

		if err := pprof.StartCPUProfile(f); err != nil {
			return curated.Errorf(ProfileError, err)
		}
		defer pprof.StopCPUProfile()
	}

	if profile&ProfileTrace == ProfileTrace {
		f, err := os.Create(fmt.Sprintf("%s_trace.profile", filenameHeader))
		if err != nil {
			return curated.Errorf(ProfileError, err)
		}
		defer func() {
			if err := f.Close(); err != nil && rerr == nil {
				rerr = curated.Errorf(ProfileError, err)
			}
		}()

		if err := trace.Start(f); err != nil {
			return curated.Errorf(ProfileError, err)
		}
		defer trace.Stop()
	}

	if err := run(); err != nil {
		return err
	}

	if profile&ProfileMem == ProfileMem {
		f, err := os.Create(fmt.Sprintf("%s_mem.profile", filenameHeader))
		if err != nil {
			return curated.Errorf(ProfileError, err)
		}
		defer func() {
			if err := f.Close(); err != nil && rerr == nil {
				rerr = curated.Errorf(ProfileError, err)
			}
		}()

		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return curated.Errorf(ProfileError, err)
		}
	}

	return nil
}

// CalcFPS takes the the number of frames and duration (in seconds) and returns
// the frames-per-second and the accuracy of that value as a percentage of the
// refresh rate.
func CalcFPS(refreshRate float64, numFrames int, duration float64) (fps float64, accuracy float64) {
	if duration <= 0 {
		return 0, 0
	}
	fps = float64(numFrames) / duration
	if refreshRate > 0 {
		accuracy = 100 * fps / refreshRate
	}
	return fps, accuracy
}
