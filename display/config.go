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
	"fmt"
	"time"

	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/diff"
	"github.com/jetsetilly/spipanel/panel"
	"github.com/jetsetilly/spipanel/paths"
	"github.com/jetsetilly/spipanel/prefs"
)

// Config for a new Pipeline.
type Config struct {
	Geometry panel.Geometry

	// the number of panel lines in a line buffer
	LineCount int

	// the number of line buffers in the pool
	LineBuffers int

	// the number of transport slots
	Transactions int

	// runs that cover fewer panel pixels than this are sent in polling mode.
	// zero means the size of one line buffer
	PollingThreshold int

	Diff diff.Config

	// how long to wait for the display lock, a line buffer or a transport
	// slot
	Timeout time.Duration

	// index into panel.BacklightLevels
	Backlight int
}

// DefaultConfig returns the reference configuration for the geometry.
func DefaultConfig(geom panel.Geometry) Config {
	return Config{
		Geometry:     geom,
		LineCount:    panel.LineCount,
		LineBuffers:  panel.LineBuffers,
		Transactions: panel.TransactionCount,
		Diff:         diff.DefaultConfig,
		Timeout:      panel.Timeout,
		Backlight:    panel.DefaultBacklight,
	}
}

func (cfg Config) String() string {
	return fmt.Sprintf("%dx%d lines=%d buffers=%d slots=%d polling<%d full>=%.2f tolerance=%d timeout=%v",
		cfg.Geometry.Width, cfg.Geometry.Height, cfg.LineCount, cfg.LineBuffers, cfg.Transactions,
		cfg.pollingThreshold(), cfg.Diff.FullUpdateThreshold, cfg.Diff.Tolerance, cfg.Timeout)
}

// capacity of each line buffer in pixels.
func (cfg Config) capacity() int {
	return cfg.Geometry.Width * cfg.LineCount
}

func (cfg Config) pollingThreshold() int {
	if cfg.PollingThreshold <= 0 {
		return cfg.capacity()
	}
	return cfg.PollingThreshold
}

func (cfg Config) validate() error {
	if cfg.Geometry.Width <= 0 || cfg.Geometry.Height <= 0 {
		return curated.Errorf(ContractError, fmt.Sprintf("panel geometry %dx%d", cfg.Geometry.Width, cfg.Geometry.Height))
	}
	if cfg.LineCount < 1 || cfg.LineCount > cfg.Geometry.Height {
		return curated.Errorf(ContractError, fmt.Sprintf("line count of %d", cfg.LineCount))
	}
	if cfg.LineBuffers < 1 {
		return curated.Errorf(ContractError, fmt.Sprintf("%d line buffers", cfg.LineBuffers))
	}
	if cfg.Transactions < 1 {
		return curated.Errorf(ContractError, fmt.Sprintf("%d transactions", cfg.Transactions))
	}
	if cfg.Timeout <= 0 {
		return curated.Errorf(ContractError, fmt.Sprintf("timeout of %v", cfg.Timeout))
	}
	return nil
}

// Preferences for the display pipeline.
type Preferences struct {
	dsk *prefs.Disk

	LineCount           prefs.Int
	LineBuffers         prefs.Int
	Transactions        prefs.Int
	PollingThreshold    prefs.Int
	FullUpdateThreshold prefs.Float
	CoalesceTolerance   prefs.Int
	Timeout             prefs.Duration
	Backlight           prefs.Int
}

func (p *Preferences) String() string {
	return p.dsk.String()
}

// NewPreferences is the preferred method of initialisation for the
// Preferences type. An empty path means the default preferences file in the
// resource directory.
func NewPreferences(path string) (*Preferences, error) {
	p := &Preferences{}
	p.SetDefaults()

	if path == "" {
		var err error
		path, err = paths.ResourcePath("", prefs.DefaultPrefsFile)
		if err != nil {
			return nil, err
		}
	}

	var err error
	p.dsk, err = prefs.NewDisk(path)
	if err != nil {
		return nil, err
	}

	for k, v := range map[string]interface {
		Set(prefs.Value) error
		Get() prefs.Value
		Reset() error
		String() string
	}{
		"display.lineCount":           &p.LineCount,
		"display.lineBuffers":         &p.LineBuffers,
		"display.transactions":        &p.Transactions,
		"display.pollingThreshold":    &p.PollingThreshold,
		"display.fullUpdateThreshold": &p.FullUpdateThreshold,
		"display.coalesceTolerance":   &p.CoalesceTolerance,
		"display.timeout":             &p.Timeout,
		"display.backlight":           &p.Backlight,
	} {
		if err := p.dsk.Add(k, v); err != nil {
			return nil, err
		}
	}

	err = p.dsk.Load(true)
	if err != nil && !curated.Is(err, prefs.NoPrefsFile) {
		return nil, err
	}

	return p, nil
}

// SetDefaults reverts all preferences to the reference values.
func (p *Preferences) SetDefaults() {
	_ = p.LineCount.Set(panel.LineCount)
	_ = p.LineBuffers.Set(panel.LineBuffers)
	_ = p.Transactions.Set(panel.TransactionCount)
	_ = p.PollingThreshold.Set(0)
	_ = p.FullUpdateThreshold.Set(panel.FullUpdateThreshold)
	_ = p.CoalesceTolerance.Set(panel.CoalesceTolerance)
	_ = p.Timeout.Set(panel.Timeout)
	_ = p.Backlight.Set(panel.DefaultBacklight)
}

// Load preferences from disk.
func (p *Preferences) Load() error {
	return p.dsk.Load(false)
}

// Save current preferences to disk.
func (p *Preferences) Save() error {
	return p.dsk.Save()
}

// Config returns a pipeline configuration from the current preference values.
func (p *Preferences) Config(geom panel.Geometry) Config {
	return Config{
		Geometry:         geom,
		LineCount:        p.LineCount.Get().(int),
		LineBuffers:      p.LineBuffers.Get().(int),
		Transactions:     p.Transactions.Get().(int),
		PollingThreshold: p.PollingThreshold.Get().(int),
		Diff: diff.Config{
			FullUpdateThreshold: p.FullUpdateThreshold.Get().(float64),
			Tolerance:           p.CoalesceTolerance.Get().(int),
		},
		Timeout:   p.Timeout.Get().(time.Duration),
		Backlight: p.Backlight.Get().(int),
	}
}
