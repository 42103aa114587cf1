// Package board resolves the configured hardware into the handles a panel
// is attached with.
package board

import (
	"errors"
	"fmt"
	"io"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"mtpanel/internal/config"
	"mtpanel/internal/dsi"
	appLog "mtpanel/internal/log"
	"mtpanel/internal/panel"
	"mtpanel/internal/power"
)

// Board holds the resolved transport, reset line and regulator.
type Board struct {
	Transport panel.Transport
	// Reset is nil when the board has no reset line.
	Reset panel.ResetLine
	Power panel.Regulator
	// Sim is set when the bridge is simulated.
	Sim *dsi.Sim

	closers []io.Closer
}

// Open initializes the host and resolves every handle cfg names. A "sim"
// bridge gives a fully simulated board that touches no hardware.
func Open(cfg *config.Config) (*Board, error) {
	if cfg.Bridge.Kind == config.BridgeSim {
		return openSim(cfg)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("board: periph host init failed: %w", err)
	}

	b := &Board{}
	if err := b.openPower(cfg, gpioreg.ByName); err != nil {
		b.Close()
		return nil, err
	}

	port, err := spireg.Open(cfg.Bridge.SPI)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("board: failed to open SPI port %q: %w", cfg.Bridge.SPI, err)
	}
	b.closers = append(b.closers, port)

	opts := &dsi.Opts{MaxHz: physic.Frequency(cfg.Bridge.MaxHz) * physic.Hertz}
	if cfg.Bridge.ResetPin != "" {
		pin, err := outPin(gpioreg.ByName, cfg.Bridge.ResetPin, gpio.High)
		if err != nil {
			b.Close()
			return nil, err
		}
		opts.Reset = pin
	}
	bridge, err := dsi.NewSSD2828SPI(port, opts)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Transport = bridge

	appLog.Info("board opened", "bridge", bridge, "reset", cfg.Reset.Pin, "power", cfg.Power.Kind)
	return b, nil
}

func openSim(cfg *config.Config) (*Board, error) {
	sim := dsi.NewSim(cfg.Bridge.SimFailRate)
	b := &Board{
		Transport: sim,
		Power:     &power.Virtual{},
		Sim:       sim,
	}
	if cfg.Reset.Pin != "" {
		pin := &gpiotest.Pin{N: cfg.Reset.Pin, L: gpio.Level(!cfg.Reset.ActiveLow)}
		rst, err := power.NewResetPin(pin, cfg.Reset.ActiveLow)
		if err != nil {
			return nil, err
		}
		b.Reset = rst
	}
	appLog.Info("board opened", "bridge", "sim", "fail_rate", cfg.Bridge.SimFailRate)
	return b, nil
}

// openPower resolves the reset line and regulator. byName looks pins up.
func (b *Board) openPower(cfg *config.Config, byName func(string) gpio.PinIO) error {
	if cfg.Reset.Pin != "" {
		// Start asserted; the panel only leaves reset during Prepare.
		asserted := gpio.Level(!cfg.Reset.ActiveLow)
		pin, err := outPin(byName, cfg.Reset.Pin, asserted)
		if err != nil {
			return err
		}
		rst, err := power.NewResetPin(pin, cfg.Reset.ActiveLow)
		if err != nil {
			return err
		}
		b.Reset = rst
	}

	switch cfg.Power.Kind {
	case config.PowerGPIO:
		pin, err := outPin(byName, cfg.Power.Pin, gpio.Low)
		if err != nil {
			return err
		}
		reg, err := power.NewGPIORegulator(pin)
		if err != nil {
			return err
		}
		b.Power = reg
	case config.PowerI2C:
		bus, err := i2creg.Open(cfg.Power.I2CBus)
		if err != nil {
			return fmt.Errorf("board: failed to open I2C bus %q: %w", cfg.Power.I2CBus, err)
		}
		b.closers = append(b.closers, bus)
		reg, err := power.NewI2CRegulator(bus, cfg.Power.I2CAddr, cfg.Power.I2CReg, cfg.Power.I2COn, cfg.Power.I2COff)
		if err != nil {
			return err
		}
		b.Power = reg
	default:
		return fmt.Errorf("board: unknown power kind %q", cfg.Power.Kind)
	}
	return nil
}

func outPin(byName func(string) gpio.PinIO, name string, initial gpio.Level) (gpio.PinOut, error) {
	p := byName(name)
	if p == nil {
		return nil, fmt.Errorf("board: gpio %s not found", name)
	}
	if err := p.Out(initial); err != nil {
		return nil, fmt.Errorf("board: gpio %s Out failed: %w", name, err)
	}
	return p, nil
}

// Resources returns the handles in the form panel.Attach takes.
func (b *Board) Resources(rotation *int) panel.Resources {
	return panel.Resources{
		Transport: b.Transport,
		Reset:     b.Reset,
		Power:     b.Power,
		Rotation:  rotation,
	}
}

// Close releases the buses in reverse order of opening.
func (b *Board) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
