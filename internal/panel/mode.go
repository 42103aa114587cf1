package panel

import (
	"fmt"
	"strings"
)

// Timing holds the base constants a display mode is derived from.
type Timing struct {
	HDisplay, HFrontPorch, HSync, HBackPorch int
	VDisplay, VFrontPorch, VSync, VBackPorch int
}

// ModeType flags mirror how a compositor ranks probed modes.
type ModeType uint8

const (
	ModeTypeDriver ModeType = 1 << iota
	ModeTypePreferred
)

// Mode is a complete video timing with derived sync positions and clock.
type Mode struct {
	Name string

	HDisplay, HSyncStart, HSyncEnd, HTotal int
	VDisplay, VSyncStart, VSyncEnd, VTotal int

	// Clock is the pixel clock in kHz.
	Clock int
	Type  ModeType
}

// NewMode derives sync boundaries, totals and the pixel clock from t for the
// given refresh rate in Hz.
func NewMode(t Timing, refresh int) Mode {
	m := Mode{
		Name: fmt.Sprintf("%dx%d", t.HDisplay, t.VDisplay),

		HDisplay:   t.HDisplay,
		HSyncStart: t.HDisplay + t.HFrontPorch,
		HSyncEnd:   t.HDisplay + t.HFrontPorch + t.HSync,
		HTotal:     t.HDisplay + t.HFrontPorch + t.HSync + t.HBackPorch,

		VDisplay:   t.VDisplay,
		VSyncStart: t.VDisplay + t.VFrontPorch,
		VSyncEnd:   t.VDisplay + t.VFrontPorch + t.VSync,
		VTotal:     t.VDisplay + t.VFrontPorch + t.VSync + t.VBackPorch,

		Type: ModeTypeDriver | ModeTypePreferred,
	}
	m.Clock = m.HTotal * m.VTotal * refresh / 1000
	return m
}

// Refresh returns the vertical refresh rate in Hz, rounded to nearest.
func (m Mode) Refresh() int {
	den := m.HTotal * m.VTotal
	if den == 0 {
		return 0
	}
	return (m.Clock*1000 + den/2) / den
}

// HFrontPorch, HSync and HBackPorch recover the base horizontal constants.
func (m Mode) HFrontPorch() int { return m.HSyncStart - m.HDisplay }
func (m Mode) HSync() int       { return m.HSyncEnd - m.HSyncStart }
func (m Mode) HBackPorch() int  { return m.HTotal - m.HSyncEnd }

func (m Mode) VFrontPorch() int { return m.VSyncStart - m.VDisplay }
func (m Mode) VSync() int       { return m.VSyncEnd - m.VSyncStart }
func (m Mode) VBackPorch() int  { return m.VTotal - m.VSyncEnd }

func (m Mode) String() string {
	return fmt.Sprintf("%s@%d %dkHz", m.Name, m.Refresh(), m.Clock)
}

// PixelFormat is the pixel encoding on the DSI link.
type PixelFormat uint8

const (
	FormatRGB888 PixelFormat = iota
	FormatRGB666
	FormatRGB666Packed
	FormatRGB565
)

func (f PixelFormat) String() string {
	switch f {
	case FormatRGB888:
		return "rgb888"
	case FormatRGB666:
		return "rgb666"
	case FormatRGB666Packed:
		return "rgb666-packed"
	case FormatRGB565:
		return "rgb565"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// BitsPerPixel returns the on-wire pixel size.
func (f PixelFormat) BitsPerPixel() int {
	switch f {
	case FormatRGB666Packed:
		return 18
	case FormatRGB565:
		return 16
	default:
		return 24
	}
}

// ModeFlags select the DSI transmission mode.
type ModeFlags uint32

const (
	FlagVideo ModeFlags = 1 << iota
	FlagVideoBurst
	FlagVideoSyncPulse
	FlagLPM
)

func (f ModeFlags) Has(flag ModeFlags) bool { return f&flag != 0 }

func (f ModeFlags) String() string {
	var parts []string
	if f.Has(FlagVideo) {
		parts = append(parts, "video")
	} else {
		parts = append(parts, "command")
	}
	if f.Has(FlagVideoBurst) {
		parts = append(parts, "burst")
	}
	if f.Has(FlagVideoSyncPulse) {
		parts = append(parts, "sync-pulse")
	}
	if f.Has(FlagLPM) {
		parts = append(parts, "lpm")
	}
	return strings.Join(parts, "|")
}

// Orientation is how the panel is mounted relative to the viewer.
type Orientation int

const (
	OrientationUnknown Orientation = iota
	OrientationNormal
	OrientationBottomUp
	OrientationLeftUp
	OrientationRightUp
)

func (o Orientation) String() string {
	switch o {
	case OrientationNormal:
		return "normal"
	case OrientationBottomUp:
		return "bottom_up"
	case OrientationLeftUp:
		return "left_up"
	case OrientationRightUp:
		return "right_up"
	default:
		return "unknown"
	}
}

// OrientationFromRotation maps a board "rotation" property in degrees to an
// orientation. A nil rotation means the property is absent.
func OrientationFromRotation(rotation *int) (Orientation, error) {
	if rotation == nil {
		return OrientationUnknown, nil
	}
	switch *rotation {
	case 0:
		return OrientationNormal, nil
	case 90:
		return OrientationRightUp, nil
	case 180:
		return OrientationBottomUp, nil
	case 270:
		return OrientationLeftUp, nil
	default:
		return OrientationUnknown, fmt.Errorf("rotation %d: %w", *rotation, ErrOrientationLookupFailed)
	}
}
