package panel

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Timings are the settle delays of the lifecycle sequences.
type Timings struct {
	PowerSettle    time.Duration // after regulator enable/disable
	WarmupSettle   time.Duration // after the link warm-up no-op
	ResetPulse     time.Duration // width of the asserted reset pulse
	ResetSettle    time.Duration // after reset is released, before the script
	PageSettle     time.Duration // after selecting the default page in Enable
	SleepOutSettle time.Duration // between exit-sleep and display-on
	DisplayOff     time.Duration // between display-off and enter-sleep
	EnableSettle   time.Duration // before Enable returns
	DisableSettle  time.Duration // before Disable returns
}

// Descriptor is the static description of one panel variant.
type Descriptor struct {
	// ID is the variant identifier, e.g. "mt1280800a".
	ID string
	// Compatible is the board-description match string.
	Compatible string
	Mode       Mode

	WidthMM, HeightMM int
	BPC               int
	Lanes             int
	Format            PixelFormat
	Flags             ModeFlags

	// ConnectorOrientation is what the panel reports alongside its modes.
	ConnectorOrientation Orientation

	Script  Script
	Timings Timings
}

// Settings returns the transport configuration for d.
func (d *Descriptor) Settings() Settings {
	return Settings{Lanes: d.Lanes, Format: d.Format, Flags: d.Flags, Mode: d.Mode}
}

var registry = map[string]*Descriptor{}

func register(d *Descriptor) {
	registry[d.ID] = d
}

// Lookup returns the descriptor for a variant ID or compatible string.
func Lookup(variant string) (*Descriptor, error) {
	v := strings.TrimSpace(variant)
	if d, ok := registry[v]; ok {
		return d, nil
	}
	for _, d := range registry {
		if d.Compatible == v {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", variant, ErrUnknownVariant)
}

// Variants lists the built-in descriptors sorted by ID.
func Variants() []*Descriptor {
	out := make([]*Descriptor, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
