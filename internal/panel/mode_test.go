package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModeDerivesTotalsAndClock(t *testing.T) {
	tests := []struct {
		variant        string
		htotal, vtotal int
		clock          int
		hsync, vsync   [2]int
	}{
		// 800+52+8+48, 1280+16+6+16
		{"mt1280800a", 908, 1318, 908 * 1318 * 60 / 1000, [2]int{852, 860}, [2]int{1296, 1302}},
		// 800+40+40+20, 1280+8+8+4
		{"mt1280800b", 900, 1300, 900 * 1300 * 60 / 1000, [2]int{840, 880}, [2]int{1288, 1296}},
	}
	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			d, err := Lookup(tt.variant)
			require.NoError(t, err)
			m := d.Mode

			assert.Equal(t, "800x1280", m.Name)
			assert.Equal(t, tt.htotal, m.HTotal)
			assert.Equal(t, tt.vtotal, m.VTotal)
			assert.Equal(t, tt.clock, m.Clock)
			assert.Equal(t, m.HTotal*m.VTotal*60/1000, m.Clock)
			assert.Equal(t, tt.hsync, [2]int{m.HSyncStart, m.HSyncEnd})
			assert.Equal(t, tt.vsync, [2]int{m.VSyncStart, m.VSyncEnd})
			assert.Equal(t, 60, m.Refresh())
			assert.Equal(t, ModeTypeDriver|ModeTypePreferred, m.Type)
		})
	}
}

func TestModeClockLiterals(t *testing.T) {
	a, _ := Lookup("mt1280800a")
	b, _ := Lookup("mt1280800b")
	assert.Equal(t, 71804, a.Mode.Clock)
	assert.Equal(t, 70200, b.Mode.Clock)
}

func TestModePorchRoundTrip(t *testing.T) {
	base := Timing{
		HDisplay: 800, HFrontPorch: 52, HSync: 8, HBackPorch: 48,
		VDisplay: 1280, VFrontPorch: 16, VSync: 6, VBackPorch: 16,
	}
	m := NewMode(base, 60)
	got := Timing{
		HDisplay: m.HDisplay, HFrontPorch: m.HFrontPorch(), HSync: m.HSync(), HBackPorch: m.HBackPorch(),
		VDisplay: m.VDisplay, VFrontPorch: m.VFrontPorch(), VSync: m.VSync(), VBackPorch: m.VBackPorch(),
	}
	assert.Equal(t, base, got)
	assert.Equal(t, "800x1280@60 71804kHz", m.String())
}

func TestRefreshOfEmptyMode(t *testing.T) {
	assert.Zero(t, Mode{}.Refresh())
}

func TestOrientationFromRotation(t *testing.T) {
	deg := func(v int) *int { return &v }
	tests := []struct {
		name    string
		in      *int
		want    Orientation
		wantErr bool
	}{
		{"absent", nil, OrientationUnknown, false},
		{"0", deg(0), OrientationNormal, false},
		{"90", deg(90), OrientationRightUp, false},
		{"180", deg(180), OrientationBottomUp, false},
		{"270", deg(270), OrientationLeftUp, false},
		{"45", deg(45), OrientationUnknown, true},
		{"-90", deg(-90), OrientationUnknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OrientationFromRotation(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOrientationLookupFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModeFlagsString(t *testing.T) {
	assert.Equal(t, "video|sync-pulse|lpm", (FlagVideo | FlagVideoSyncPulse | FlagLPM).String())
	assert.Equal(t, "video|burst|sync-pulse|lpm", (FlagVideo | FlagVideoSyncPulse | FlagVideoBurst | FlagLPM).String())
	assert.Equal(t, "command", ModeFlags(0).String())
}

func TestPixelFormat(t *testing.T) {
	assert.Equal(t, 24, FormatRGB888.BitsPerPixel())
	assert.Equal(t, 18, FormatRGB666Packed.BitsPerPixel())
	assert.Equal(t, 16, FormatRGB565.BitsPerPixel())
	assert.Equal(t, "rgb888", FormatRGB888.String())
}
