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

// Package spidev connects the transport pipeline to a real panel on a Linux
// SPI port. The D/C control line, the optional reset line, the backlight and
// the panel power are GPIO pins.
//
// Pins are named as the periph.io registry names them. For example "GPIO25"
// on a Raspberry Pi.
package spidev

import (
	"fmt"
	"sync"
	"time"

	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/logger"
	"github.com/jetsetilly/spipanel/transport"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Sentinal error patterns.
const (
	OpenError      = "spidev: open: %v"
	TransferError  = "spidev: transfer: %v"
	PinError       = "spidev: pin %s: %v"
	BacklightError = "spidev: backlight: %v"
)

// Config describes how the panel is wired.
type Config struct {
	// name of the SPI port. the empty string selects the first port
	Port string

	// SPI clock
	Frequency physic.Frequency

	// GPIO names. DC is required and the others are optional
	DC        string
	Reset     string
	Backlight string
	Power     string

	// PWM frequency of the backlight
	PWMFrequency physic.Frequency

	// largest single transfer. zero means use the limit reported by the port
	MaxTxSize int
}

// DefaultConfig returns the wiring of a typical ILI9341 breakout on a
// Raspberry Pi.
func DefaultConfig() Config {
	return Config{
		Frequency:    40 * physic.MegaHertz,
		DC:           "GPIO25",
		Reset:        "GPIO24",
		Backlight:    "GPIO18",
		PWMFrequency: 1 * physic.KiloHertz,
	}
}

// the size of a transfer if the port does not report a limit
const defaultMaxTxSize = 4096

// Device is a panel on an SPI port. It implements transport.Bus and provides
// a transport.PreTransfer hook with the Hook() function.
type Device struct {
	cfg Config

	port spi.PortCloser
	conn spi.Conn

	dc        gpio.PinOut
	reset     gpio.PinOut
	backlight gpio.PinOut
	power     gpio.PinOut

	maxTx int

	// the bus is claimed for a whole frame. other users of the port must
	// call AcquireBus() as well
	bus sync.Mutex
}

// Open initialises the host drivers and connects to the SPI port.
func Open(cfg Config) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, curated.Errorf(OpenError, err)
	}

	port, err := spireg.Open(cfg.Port)
	if err != nil {
		return nil, curated.Errorf(OpenError, err)
	}

	c, err := port.Connect(cfg.Frequency, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, curated.Errorf(OpenError, err)
	}

	pin := func(name string) (gpio.PinOut, error) {
		if name == "" {
			return nil, nil
		}
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, curated.Errorf(PinError, name, "not found")
		}
		return p, nil
	}

	var pins [4]gpio.PinOut
	for i, name := range []string{cfg.DC, cfg.Reset, cfg.Backlight, cfg.Power} {
		pins[i], err = pin(name)
		if err != nil {
			port.Close()
			return nil, err
		}
	}

	d, err := newDevice(cfg, c, pins[0], pins[1], pins[2], pins[3])
	if err != nil {
		port.Close()
		return nil, err
	}
	d.port = port

	logger.Logf(logger.Allow, "spidev", "opened %s", d)

	return d, nil
}

func newDevice(cfg Config, c spi.Conn, dc, reset, backlight, power gpio.PinOut) (*Device, error) {
	if dc == nil {
		return nil, curated.Errorf(OpenError, "a D/C pin is required")
	}

	d := &Device{
		cfg:       cfg,
		conn:      c,
		dc:        dc,
		reset:     reset,
		backlight: backlight,
		power:     power,
		maxTx:     cfg.MaxTxSize,
	}

	if d.maxTx <= 0 {
		d.maxTx = defaultMaxTxSize
		if l, ok := c.(conn.Limits); ok && l.MaxTxSize() > 0 {
			d.maxTx = l.MaxTxSize()
		}
	}

	if err := d.out(d.dc, gpio.Low); err != nil {
		return nil, err
	}
	if d.power != nil {
		if err := d.out(d.power, gpio.High); err != nil {
			return nil, err
		}
	}

	return d, nil
}

func (d *Device) String() string {
	return fmt.Sprintf("%s at %s (max transfer %d)", d.conn, d.cfg.Frequency, d.maxTx)
}

func (d *Device) out(p gpio.PinOut, l gpio.Level) error {
	if err := p.Out(l); err != nil {
		return curated.Errorf(PinError, p.Name(), err)
	}
	return nil
}

// Transfer implements the transport.Bus interface. Long transfers are split
// to fit the limit of the port.
func (d *Device) Transfer(p []byte) error {
	for len(p) > 0 {
		n := min(len(p), d.maxTx)
		if err := d.conn.Tx(p[:n], nil); err != nil {
			return curated.Errorf(TransferError, err)
		}
		p = p[n:]
	}
	return nil
}

// Hook sets the D/C line for the kind of transfer. It has the signature of
// transport.PreTransfer.
func (d *Device) Hook(kind transport.Kind) error {
	if kind == transport.Command {
		return d.out(d.dc, gpio.Low)
	}
	return d.out(d.dc, gpio.High)
}

// AcquireBus implements the transport.BusAcquirer interface.
func (d *Device) AcquireBus() error {
	d.bus.Lock()
	return nil
}

// ReleaseBus implements the transport.BusAcquirer interface.
func (d *Device) ReleaseBus() error {
	d.bus.Unlock()
	return nil
}

// HardReset pulses the reset line. It does nothing if there is no reset pin.
func (d *Device) HardReset() error {
	if d.reset == nil {
		return nil
	}
	if err := d.out(d.reset, gpio.Low); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	if err := d.out(d.reset, gpio.High); err != nil {
		return err
	}

	// the controller ignores commands for a short time after reset
	time.Sleep(120 * time.Millisecond)

	return nil
}

// SetBacklight sets the brightness of the backlight as a percentage. Values
// between the extremes use PWM.
func (d *Device) SetBacklight(percent int) error {
	if d.backlight == nil {
		return nil
	}

	var err error
	switch {
	case percent <= 0:
		err = d.backlight.Out(gpio.Low)
	case percent >= 100:
		err = d.backlight.Out(gpio.High)
	default:
		duty := gpio.Duty(int64(gpio.DutyMax) * int64(percent) / 100)
		err = d.backlight.PWM(duty, d.cfg.PWMFrequency)
	}
	if err != nil {
		return curated.Errorf(BacklightError, err)
	}
	return nil
}

// PowerOff removes power from the panel. It does nothing if there is no power
// pin.
func (d *Device) PowerOff() error {
	if d.power == nil {
		return nil
	}
	return d.out(d.power, gpio.Low)
}

// Close the SPI port.
func (d *Device) Close() error {
	if d.port == nil {
		return nil
	}
	if err := d.port.Close(); err != nil {
		return curated.Errorf(OpenError, err)
	}
	return nil
}
