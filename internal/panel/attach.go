package panel

import (
	"errors"
	"fmt"
	"time"

	appLog "mtpanel/internal/log"
)

// Resources are the hardware handles a panel is attached with.
type Resources struct {
	Transport Transport
	// Reset is optional; boards without a reset line leave it nil.
	Reset ResetLine
	Power Regulator
	// Rotation is the board rotation property in degrees, nil if absent.
	Rotation *int
	// Sleep replaces time.Sleep for every settle delay and back-off.
	Sleep func(time.Duration)
}

// Pipeline is the display pipeline that attached panels register with.
type Pipeline interface {
	Add(p *Panel) error
	Remove(p *Panel)
}

// Attach resolves variant, validates res, creates the Panel with its reset
// line held asserted, configures the transport and registers the panel with pl.
func Attach(name, variant string, res Resources, pl Pipeline) (*Panel, error) {
	d, err := Lookup(variant)
	if err != nil {
		return nil, err
	}
	if res.Transport == nil {
		return nil, errors.New("panel: attach without transport")
	}
	if res.Power == nil {
		return nil, ErrRegulatorUnavailable
	}
	if res.Reset != nil {
		if err := res.Reset.Set(true); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResetHandle, err)
		}
	}

	orientation, err := OrientationFromRotation(res.Rotation)
	if err != nil {
		appLog.Error("orientation lookup failed", err, "panel", name)
		return nil, err
	}

	if name == "" {
		name = d.ID
	}
	p := newPanel(name, d, res, orientation)

	if pl != nil {
		if err := pl.Add(p); err != nil {
			return nil, fmt.Errorf("panel %s: register: %w", name, err)
		}
	}

	if a, ok := res.Transport.(Attacher); ok {
		if err := a.Attach(d.Settings()); err != nil {
			if pl != nil {
				pl.Remove(p)
			}
			return nil, fmt.Errorf("panel %s: transport attach: %w", name, err)
		}
	}

	appLog.Info("panel attached",
		"panel", name,
		"variant", d.ID,
		"mode", d.Mode,
		"lanes", d.Lanes,
		"format", d.Format,
		"flags", d.Flags,
		"orientation", orientation,
	)
	return p, nil
}

// Detach releases the transport and unregisters p. Transport errors are
// logged only.
func Detach(p *Panel, pl Pipeline) {
	if a, ok := p.transport.(Attacher); ok {
		if err := a.Detach(); err != nil {
			appLog.Error("transport detach failed", err, "panel", p.name)
		}
	}
	if pl != nil {
		pl.Remove(p)
	}
	appLog.Info("panel detached", "panel", p.name)
}
