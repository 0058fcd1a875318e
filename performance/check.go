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
	"io"
	"sync/atomic"
	"time"

	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/display"
	"github.com/jetsetilly/spipanel/gui"
	"github.com/jetsetilly/spipanel/panel"
	"github.com/jetsetilly/spipanel/paths"
	"github.com/jetsetilly/spipanel/playmode"
	"github.com/jetsetilly/spipanel/simpanel"
	"github.com/jetsetilly/spipanel/testcard"
)

// CheckError is the pattern for errors returned by Check().
const CheckError = "performance: %v"

// CheckConfig for Check().
type CheckConfig struct {
	Geometry panel.Geometry

	// dimensions of the test card
	Width  int
	Height int

	// cycle the test card's palette. every frame is a full update when cycling
	Cycling bool

	// time spent on the bus for every byte transferred. zero means the
	// transfer is as fast as the simulation allows
	Latency time.Duration

	// time allowed for the frame rate to settle before measuring
	LeadTime time.Duration

	// time spent measuring
	Duration time.Duration
}

// DefaultCheckConfig returns a CheckConfig for a test card half the size of
// the panel, measured for ten seconds.
func DefaultCheckConfig(geom panel.Geometry) CheckConfig {
	return CheckConfig{
		Geometry: geom,
		Width:    geom.Width / 2,
		Height:   geom.Height / 2,
		LeadTime: 2 * time.Second,
		Duration: 10 * time.Second,
	}
}

// Check the throughput of the display pipeline by presenting test card frames
// to a simulated panel as quickly as possible. The result is written to
// output.
func Check(output io.Writer, profile Profile, cfg CheckConfig) error {
	if cfg.Duration <= 0 {
		return curated.Errorf(CheckError, "duration must be positive")
	}

	sim := simpanel.NewPanel(cfg.Geometry)
	sim.SetLatency(cfg.Latency)

	disp, err := display.NewPipeline(sim, sim.Hook, display.DefaultConfig(cfg.Geometry), display.Collaborators{
		Backlight: sim,
		Power:     sim,
	})
	if err != nil {
		return curated.Errorf(CheckError, err)
	}
	defer disp.Close()

	card := testcard.New(cfg.Width, cfg.Height)
	card.SetCycling(cfg.Cycling)

	events := make(chan gui.Event, 1)

	// the pipeline stats at the end of the lead time
	var start atomic.Pointer[display.Stats]

	playCfg := playmode.DefaultConfig()
	playCfg.Uncapped = true
	playCfg.Report = 0

	err = RunProfiler(profile, paths.UniqueFilename("performance", ""), func() error {
		// force a leadtime to allow the frame rate to settle down and then
		// start the timer for the specified duration
		time.AfterFunc(cfg.LeadTime, func() {
			s := disp.Stats()
			start.Store(&s)
			time.AfterFunc(cfg.Duration, func() {
				gui.Send(events, gui.EventQuit{})
			})
		})

		return playmode.Play(card, disp, events, playCfg)
	})
	if err != nil {
		return curated.Errorf(CheckError, err)
	}

	var startStats display.Stats
	if s := start.Load(); s != nil {
		startStats = *s
	}

	endStats := disp.Stats()
	numFrames := int(endStats.Frames - startStats.Frames)
	fps, accuracy := CalcFPS(float64(card.RefreshRate()), numFrames, cfg.Duration.Seconds())

	fmt.Fprintf(output, "%.2f fps (%d frames in %.2f seconds) %.1f%%\n", fps, numFrames, cfg.Duration.Seconds(), accuracy)

	pixels := endStats.Pixels - startStats.Pixels
	bytes := endStats.Transport.Bytes - startStats.Transport.Bytes
	fmt.Fprintf(output, "%.0f pixels/s %.0f bytes/s\n", float64(pixels)/cfg.Duration.Seconds(), float64(bytes)/cfg.Duration.Seconds())
	fmt.Fprintf(output, "%s\n", endStats)

	return nil
}
