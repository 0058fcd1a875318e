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

// Package simpanel is a simulation of an ILI9341 display controller. It
// implements the transport.Bus interface and decodes the command stream into
// an in-memory copy of the graphics RAM.
//
// Only the commands used by the display pipeline are understood. Any other
// command is counted and its parameters are ignored.
package simpanel

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/logger"
	"github.com/jetsetilly/spipanel/panel"
	"github.com/jetsetilly/spipanel/transport"
)

// Sentinal error patterns.
const (
	InjectedError = "simpanel: injected failure after %d transfers"
	BusError      = "simpanel: %v"
)

// Record is an entry in the transfer log.
type Record struct {
	Kind transport.Kind
	Data []byte
}

func (r Record) String() string {
	if r.Kind == transport.Command {
		if len(r.Data) == 1 {
			return fmt.Sprintf("cmd %#02x", r.Data[0])
		}
		return fmt.Sprintf("cmd % 02x", r.Data)
	}
	if len(r.Data) > 8 {
		return fmt.Sprintf("data %d bytes", len(r.Data))
	}
	return fmt.Sprintf("data % 02x", r.Data)
}

// Panel is the simulated controller.
type Panel struct {
	crit sync.Mutex

	geom panel.Geometry
	gram []panel.Native

	// incremented every time a pixel is written
	generation uint64

	// the state of the D/C line as set by the most recent call to Hook()
	dc transport.Kind

	// the command currently receiving parameters and the number of
	// parameter bytes received so far
	cmd   byte
	nargs int
	args  [4]byte

	colStart  int
	colEnd    int
	pageStart int
	pageEnd   int

	// memory write cursor
	x, y int

	// first byte of a pixel split over two transfers
	half    byte
	hasHalf bool

	asleep     bool
	displayOff bool
	powered    bool
	backlight  int

	// bus ownership
	acquired     bool
	acquisitions int

	commands  map[byte]int
	transfers int
	bytes     int

	// number of transfers that have started but not finished
	inflight atomic.Int32

	// simulated bus speed. zero means transfers take no time
	latency time.Duration

	recording bool
	log       []Record

	// fail the transfer after this number of transfers. zero means never
	failAfter int

	// called after every transfer outside of the critical section
	onTransfer func()
}

// NewPanel is the preferred method of initialisation for the Panel type.
func NewPanel(geom panel.Geometry) *Panel {
	p := &Panel{
		geom:     geom,
		gram:     make([]panel.Native, geom.Pixels()),
		powered:  true,
		commands: make(map[byte]int),
	}
	p.resetWindow()
	return p
}

func (p *Panel) String() string {
	p.crit.Lock()
	defer p.crit.Unlock()
	return fmt.Sprintf("%dx%d col %d-%d page %d-%d cursor %d,%d", p.geom.Width, p.geom.Height,
		p.colStart, p.colEnd, p.pageStart, p.pageEnd, p.x, p.y)
}

func (p *Panel) resetWindow() {
	p.colStart = 0
	p.colEnd = p.geom.Width - 1
	p.pageStart = 0
	p.pageEnd = p.geom.Height - 1
	p.x = 0
	p.y = 0
}

// Geometry returns the size of the simulated panel.
func (p *Panel) Geometry() panel.Geometry {
	return p.geom
}

// SetLatency sets the time taken to transfer one byte. Used to simulate the
// bus clock.
func (p *Panel) SetLatency(perByte time.Duration) {
	p.crit.Lock()
	defer p.crit.Unlock()
	p.latency = perByte
}

// SetRecording turns the transfer log on or off. Turning it on clears the
// log.
func (p *Panel) SetRecording(on bool) {
	p.crit.Lock()
	defer p.crit.Unlock()
	p.recording = on
	p.log = p.log[:0]
}

// Log returns a copy of the transfer log.
func (p *Panel) Log() []Record {
	p.crit.Lock()
	defer p.crit.Unlock()
	return slices.Clone(p.log)
}

// FailAfter causes the transfer after n successful transfers to fail. Zero
// cancels any pending failure.
func (p *Panel) FailAfter(n int) {
	p.crit.Lock()
	defer p.crit.Unlock()
	if n == 0 {
		p.failAfter = 0
		return
	}
	p.failAfter = p.transfers + n + 1
}

// OnTransfer sets a function to be called after every transfer. The function
// is called from the goroutine making the transfer.
func (p *Panel) OnTransfer(f func()) {
	p.crit.Lock()
	defer p.crit.Unlock()
	p.onTransfer = f
}

// Hook sets the D/C line. It is a transport.PreTransfer function.
func (p *Panel) Hook(kind transport.Kind) error {
	p.crit.Lock()
	defer p.crit.Unlock()
	p.dc = kind
	return nil
}

// AcquireBus implements the transport.BusAcquirer interface.
func (p *Panel) AcquireBus() error {
	p.crit.Lock()
	defer p.crit.Unlock()
	if p.acquired {
		return curated.Errorf(BusError, "bus acquired twice")
	}
	p.acquired = true
	p.acquisitions++
	return nil
}

// ReleaseBus implements the transport.BusAcquirer interface.
func (p *Panel) ReleaseBus() error {
	p.crit.Lock()
	defer p.crit.Unlock()
	if !p.acquired {
		return curated.Errorf(BusError, "bus released without being acquired")
	}
	p.acquired = false
	return nil
}

// Acquired returns true if the bus is currently acquired.
func (p *Panel) Acquired() bool {
	p.crit.Lock()
	defer p.crit.Unlock()
	return p.acquired
}

// Transfer implements the transport.Bus interface.
func (p *Panel) Transfer(data []byte) error {
	p.inflight.Add(1)
	defer p.inflight.Add(-1)

	p.crit.Lock()

	p.transfers++
	if p.failAfter > 0 && p.transfers >= p.failAfter {
		p.failAfter = 0
		p.crit.Unlock()
		return curated.Errorf(InjectedError, p.transfers-1)
	}
	p.bytes += len(data)

	if p.recording {
		p.log = append(p.log, Record{Kind: p.dc, Data: slices.Clone(data)})
	}

	if p.dc == transport.Command {
		for _, b := range data {
			p.command(b)
		}
	} else {
		for _, b := range data {
			p.data(b)
		}
	}

	latency := p.latency * time.Duration(len(data))
	f := p.onTransfer

	p.crit.Unlock()

	if latency > 0 {
		time.Sleep(latency)
	}
	if f != nil {
		f()
	}

	return nil
}

func (p *Panel) command(b byte) {
	p.cmd = b
	p.nargs = 0
	p.hasHalf = false
	p.commands[b]++

	switch b {
	case panel.SoftwareReset:
		p.resetWindow()
		p.asleep = true
		p.displayOff = true
	case panel.SleepIn:
		p.asleep = true
	case panel.DisplayOff:
		p.displayOff = true
	case panel.MemoryWrite:
		p.x = p.colStart
		p.y = p.pageStart
	case panel.MemoryWriteContinue:
		// cursor continues from where the previous write ended
	}
}

func (p *Panel) data(b byte) {
	switch p.cmd {
	case panel.ColumnAddressSet, panel.PageAddressSet:
		if p.nargs >= len(p.args) {
			return
		}
		p.args[p.nargs] = b
		p.nargs++

		// the controller applies each 16-bit parameter as it arrives. a
		// short parameter list changes the start and leaves the end alone
		if p.nargs%2 != 0 {
			return
		}
		v := int(p.args[p.nargs-2])<<8 | int(p.args[p.nargs-1])
		switch {
		case p.nargs == 2 && p.cmd == panel.ColumnAddressSet:
			p.colStart = v
		case p.nargs == 4 && p.cmd == panel.ColumnAddressSet:
			p.colEnd = v
		case p.nargs == 2 && p.cmd == panel.PageAddressSet:
			p.pageStart = v
		case p.nargs == 4 && p.cmd == panel.PageAddressSet:
			p.pageEnd = v
		}

	case panel.MemoryWrite, panel.MemoryWriteContinue:
		if !p.hasHalf {
			p.half = b
			p.hasHalf = true
			return
		}
		p.hasHalf = false
		p.pixel(panel.FromRGB565(uint16(p.half)<<8 | uint16(b)))
	}
}

// write pixel at the cursor and advance the cursor through the window
func (p *Panel) pixel(c panel.Native) {
	if p.x >= 0 && p.x < p.geom.Width && p.y >= 0 && p.y < p.geom.Height {
		p.gram[p.y*p.geom.Width+p.x] = c
		p.generation++
	}

	p.x++
	if p.x > p.colEnd {
		p.x = p.colStart
		p.y++
		if p.y > p.pageEnd {
			p.y = p.pageStart
		}
	}
}

// SetBacklight implements the display.Backlight interface.
func (p *Panel) SetBacklight(percent int) error {
	p.crit.Lock()
	defer p.crit.Unlock()
	p.backlight = percent
	logger.Logf(logger.Allow, "simpanel", "backlight %d%%", percent)
	return nil
}

// Backlight returns the most recent backlight level.
func (p *Panel) Backlight() int {
	p.crit.Lock()
	defer p.crit.Unlock()
	return p.backlight
}

// PowerOff implements the display.Power interface.
func (p *Panel) PowerOff() error {
	p.crit.Lock()
	defer p.crit.Unlock()
	p.powered = false
	return nil
}

// Powered returns false once PowerOff() has been called.
func (p *Panel) Powered() bool {
	p.crit.Lock()
	defer p.crit.Unlock()
	return p.powered
}

// Asleep returns true if the controller has received the SleepIn or the
// SoftwareReset command.
func (p *Panel) Asleep() bool {
	p.crit.Lock()
	defer p.crit.Unlock()
	return p.asleep
}

// DisplayOff returns true if the controller has received the DisplayOff or
// the SoftwareReset command.
func (p *Panel) DisplayOff() bool {
	p.crit.Lock()
	defer p.crit.Unlock()
	return p.displayOff
}

// Pixel returns the colour of a single pixel in graphics RAM.
func (p *Panel) Pixel(x, y int) panel.Native {
	p.crit.Lock()
	defer p.crit.Unlock()
	return p.gram[y*p.geom.Width+x]
}

// Snapshot returns a copy of the graphics RAM and the generation at the time
// of the copy.
func (p *Panel) Snapshot() ([]panel.Native, uint64) {
	p.crit.Lock()
	defer p.crit.Unlock()
	return slices.Clone(p.gram), p.generation
}

// SnapshotInto copies the graphics RAM into dst, which must be at least as
// large as the panel. Returns the generation at the time of the copy.
func (p *Panel) SnapshotInto(dst []panel.Native) uint64 {
	p.crit.Lock()
	defer p.crit.Unlock()
	copy(dst, p.gram)
	return p.generation
}

// InFlight returns the number of transfers in progress.
func (p *Panel) InFlight() int {
	return int(p.inflight.Load())
}

// Generation returns a count that increases every time a pixel is written.
func (p *Panel) Generation() uint64 {
	p.crit.Lock()
	defer p.crit.Unlock()
	return p.generation
}

// Stats are cumulative counts of bus activity.
type Stats struct {
	Transfers    int
	Bytes        int
	Acquisitions int
	Commands     map[byte]int
}

// Stats returns a copy of the bus activity counts.
func (p *Panel) Stats() Stats {
	p.crit.Lock()
	defer p.crit.Unlock()
	cmds := make(map[byte]int, len(p.commands))
	for k, v := range p.commands {
		cmds[k] = v
	}
	return Stats{
		Transfers:    p.transfers,
		Bytes:        p.bytes,
		Acquisitions: p.acquisitions,
		Commands:     cmds,
	}
}
