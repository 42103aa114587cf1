// Package power drives the panel reset line and power rail through periph.io
// pins and buses.
package power

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"

	appLog "mtpanel/internal/log"
)

// ResetPin is a reset GPIO addressed logically. With activeLow set,
// asserting the line drives the pin low.
type ResetPin struct {
	pin       gpio.PinOut
	activeLow bool
}

// NewResetPin wraps pin. It does not touch the pin level.
func NewResetPin(pin gpio.PinOut, activeLow bool) (*ResetPin, error) {
	if pin == nil {
		return nil, errors.New("power: reset pin is nil")
	}
	return &ResetPin{pin: pin, activeLow: activeLow}, nil
}

// Set asserts or releases the reset line.
func (r *ResetPin) Set(asserted bool) error {
	level := gpio.Level(asserted != r.activeLow)
	if err := r.pin.Out(level); err != nil {
		return fmt.Errorf("power: reset %s: %w", r.pin.Name(), err)
	}
	return nil
}

func (r *ResetPin) String() string {
	if r.activeLow {
		return r.pin.Name() + " (active low)"
	}
	return r.pin.Name()
}

// GPIORegulator is a fixed regulator switched by one enable pin.
type GPIORegulator struct {
	mu      sync.Mutex
	pin     gpio.PinOut
	enabled bool
}

// NewGPIORegulator returns a regulator on pin, driven low (off).
func NewGPIORegulator(pin gpio.PinOut) (*GPIORegulator, error) {
	if pin == nil {
		return nil, errors.New("power: regulator pin is nil")
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("power: regulator %s: %w", pin.Name(), err)
	}
	return &GPIORegulator{pin: pin}, nil
}

func (g *GPIORegulator) Enable() error  { return g.set(true) }
func (g *GPIORegulator) Disable() error { return g.set(false) }

// Enabled reports the last level successfully written.
func (g *GPIORegulator) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

func (g *GPIORegulator) set(on bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.pin.Out(gpio.Level(on)); err != nil {
		return fmt.Errorf("power: regulator %s: %w", g.pin.Name(), err)
	}
	g.enabled = on
	appLog.Debug("regulator switched", "pin", g.pin.Name(), "on", on)
	return nil
}

// I2CRegulator switches the panel rail through a register on a board
// power controller, e.g. the MCU on a display carrier board.
type I2CRegulator struct {
	mu      sync.Mutex
	dev     *i2c.Dev
	reg     byte
	on, off byte
	enabled bool
}

// NewI2CRegulator addresses register reg of the device at addr on bus.
// Writing on to it powers the panel, off removes power.
func NewI2CRegulator(bus i2c.Bus, addr uint16, reg, on, off byte) (*I2CRegulator, error) {
	if bus == nil {
		return nil, errors.New("power: i2c bus is nil")
	}
	if on == off {
		return nil, fmt.Errorf("power: i2c regulator on and off values are both 0x%02X", on)
	}
	return &I2CRegulator{
		dev: &i2c.Dev{Bus: bus, Addr: addr},
		reg: reg,
		on:  on,
		off: off,
	}, nil
}

func (r *I2CRegulator) Enable() error  { return r.set(true) }
func (r *I2CRegulator) Disable() error { return r.set(false) }

// Enabled reports the last state confirmed by read-back.
func (r *I2CRegulator) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

func (r *I2CRegulator) set(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := r.off
	if on {
		want = r.on
	}
	if err := r.dev.Tx([]byte{r.reg, want}, nil); err != nil {
		return fmt.Errorf("power: i2c 0x%02X write reg 0x%02X: %w", r.dev.Addr, r.reg, err)
	}

	got, err := r.readReg(r.reg)
	if err != nil {
		return fmt.Errorf("power: i2c 0x%02X read reg 0x%02X: %w", r.dev.Addr, r.reg, err)
	}
	if got != want {
		return fmt.Errorf("power: i2c 0x%02X reg 0x%02X reads 0x%02X, want 0x%02X", r.dev.Addr, r.reg, got, want)
	}
	r.enabled = on
	appLog.Debug("regulator switched", "addr", fmt.Sprintf("0x%02X", r.dev.Addr), "on", on)
	return nil
}

func (r *I2CRegulator) readReg(reg byte) (byte, error) {
	buf := []byte{0}
	if err := r.dev.Tx([]byte{reg}, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// Virtual is a regulator with no hardware behind it, used by the simulated
// board.
type Virtual struct {
	mu      sync.Mutex
	enabled bool
}

func (v *Virtual) Enable() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.enabled = true
	return nil
}

func (v *Virtual) Disable() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.enabled = false
	return nil
}

func (v *Virtual) Enabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.enabled
}
