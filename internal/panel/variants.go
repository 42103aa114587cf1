package panel

import "time"

// Standard MIPI DCS opcodes used by the scripts and lifecycle sequences.
const (
	dcsSoftReset     byte = 0x01
	dcsEnterSleep    byte = 0x10
	dcsExitSleepMode byte = 0x11
	dcsSetDisplayOff byte = 0x28
	dcsSetDisplayOn  byte = 0x29
)

// motivoTimings are shared by both Motivo 800x1280 variants.
var motivoTimings = Timings{
	PowerSettle:    time.Millisecond,
	WarmupSettle:   time.Millisecond,
	ResetPulse:     50 * time.Millisecond,
	ResetSettle:    6 * time.Millisecond,
	PageSettle:     5 * time.Millisecond,
	SleepOutSettle: 10 * time.Millisecond,
	DisplayOff:     5 * time.Millisecond,
	EnableSettle:   120 * time.Millisecond,
	DisableSettle:  150 * time.Millisecond,
}

// Panel A exists in a 2019 and a 2020 revision; only the later one has
// command page 3, and its defaults are fine, so page 3 is never touched.
var mt1280800aScript = Script{
	Delay(5),

	// Page 4: charge pump and VGH/VGL clamps.
	SwitchPage(0x04),
	DCS(0x6E, 0x2B),
	DCS(0x6F, 0x33),
	DCS(0x3A, 0xA4),
	DCS(0x8D, 0x18),
	DCS(0x87, 0xBA),
	DCS(0x26, 0x76),
	DCS(0xB2, 0xD1),
	DCS(0xB5, 0x02),
	DCS(0x3A, 0xA4),
	DCS(0x35, 0x17),

	// Page 1: scan direction, VCOM, source timing, gamma.
	SwitchPage(0x01),
	DCS(0x22, 0x30),
	DCS(0x31, 0x00),
	DCS(0x53, 0x7B),
	DCS(0x55, 0x7B),
	DCS(0x50, 0x95),
	DCS(0x51, 0x95),
	DCS(0x60, 0x14),

	DCS(0xA0, 0x00),
	DCS(0xA1, 0x0D),
	DCS(0xA2, 0x25),
	DCS(0xA3, 0x11),
	DCS(0xA4, 0x0C),
	DCS(0xA5, 0x23),
	DCS(0xA6, 0x17),
	DCS(0xA7, 0x1C),
	DCS(0xA8, 0x82),
	DCS(0xA9, 0x21),
	DCS(0xAA, 0x2A),
	DCS(0xAB, 0x6B),
	DCS(0xAC, 0x19),
	DCS(0xAD, 0x14),
	DCS(0xAE, 0x45),
	DCS(0xAF, 0x1D),
	DCS(0xB0, 0x23),
	DCS(0xB1, 0x52),
	DCS(0xB2, 0x63),
	DCS(0xB3, 0x39),

	DCS(0xC0, 0x00),
	DCS(0xC1, 0x0D),
	DCS(0xC2, 0x1D),
	DCS(0xC3, 0x11),
	DCS(0xC4, 0x0C),
	DCS(0xC5, 0x23),
	DCS(0xC6, 0x17),
	DCS(0xC7, 0x1C),
	DCS(0xC8, 0x82),
	DCS(0xC9, 0x21),
	DCS(0xCA, 0x2A),
	DCS(0xCB, 0x6B),
	DCS(0xCC, 0x19),
	DCS(0xCD, 0x14),
	DCS(0xCE, 0x45),
	DCS(0xCF, 0x1D),
	DCS(0xD0, 0x23),
	DCS(0xD1, 0x52),
	DCS(0xD2, 0x63),
	DCS(0xD3, 0x39),

	// Standard page: soft reset, tearing line on, sleep out, display on.
	SwitchPage(0x00),

	DCS(dcsSoftReset),
	Delay(5),
	DCS(0x35, 0x00),
	DCS(dcsExitSleepMode),
	Delay(120),
	DCS(dcsSetDisplayOn),
	Delay(20),

	// Content adaptive brightness level; backlight PWM is external.
	DCS(0x55, 0x03),

	End,
}

var mt1280800bScript = Script{
	Delay(5),
	// Page 3: gate-in-panel timing and output mapping.
	SwitchPage(0x03),
	DCS(0x01, 0x00),
	DCS(0x02, 0x00),
	DCS(0x03, 0x53),
	DCS(0x04, 0x53),
	DCS(0x05, 0x13),
	DCS(0x06, 0x04),
	DCS(0x07, 0x02),
	DCS(0x08, 0x02),
	DCS(0x09, 0x00),
	DCS(0x0A, 0x00),
	DCS(0x0B, 0x00),
	DCS(0x0C, 0x00),
	DCS(0x0D, 0x00),
	DCS(0x0E, 0x00),
	DCS(0x0F, 0x00),
	DCS(0x10, 0x00),
	DCS(0x11, 0x00),
	DCS(0x12, 0x00),
	DCS(0x13, 0x00),
	DCS(0x14, 0x00),
	DCS(0x15, 0x00),
	DCS(0x16, 0x00),
	DCS(0x17, 0x00),
	DCS(0x18, 0x00),
	DCS(0x19, 0x00),
	DCS(0x1A, 0x00),
	DCS(0x1B, 0x00),
	DCS(0x1C, 0x00),
	DCS(0x1D, 0x00),
	DCS(0x1E, 0xC0),
	DCS(0x1F, 0x80),
	DCS(0x20, 0x02),
	DCS(0x21, 0x09),
	DCS(0x22, 0x00),
	DCS(0x23, 0x00),
	DCS(0x24, 0x00),
	DCS(0x25, 0x00),
	DCS(0x26, 0x00),
	DCS(0x27, 0x00),
	DCS(0x28, 0x55),
	DCS(0x29, 0x03),
	DCS(0x2A, 0x00),
	DCS(0x2B, 0x00),
	DCS(0x2C, 0x00),
	DCS(0x2D, 0x00),
	DCS(0x2E, 0x00),
	DCS(0x2F, 0x00),
	DCS(0x30, 0x00),
	DCS(0x31, 0x00),
	DCS(0x32, 0x00),
	DCS(0x33, 0x00),
	DCS(0x34, 0x00),
	DCS(0x35, 0x00),
	DCS(0x36, 0x00),
	DCS(0x37, 0x00),
	DCS(0x38, 0x3C),
	DCS(0x39, 0x00),
	DCS(0x3A, 0x00),
	DCS(0x3B, 0x00),
	DCS(0x3C, 0x00),
	DCS(0x3D, 0x00),
	DCS(0x3E, 0x00),
	DCS(0x3F, 0x00),
	DCS(0x40, 0x00),
	DCS(0x41, 0x00),
	DCS(0x42, 0x00),
	DCS(0x43, 0x00),
	DCS(0x44, 0x00),

	DCS(0x50, 0x01),
	DCS(0x51, 0x23),
	DCS(0x52, 0x45),
	DCS(0x53, 0x67),
	DCS(0x54, 0x89),
	DCS(0x55, 0xAB),
	DCS(0x56, 0x01),
	DCS(0x57, 0x23),
	DCS(0x58, 0x45),
	DCS(0x59, 0x67),
	DCS(0x5A, 0x89),
	DCS(0x5B, 0xAB),
	DCS(0x5C, 0xCD),
	DCS(0x5D, 0xEF),

	DCS(0x5E, 0x01),
	DCS(0x5F, 0x08),
	DCS(0x60, 0x02),
	DCS(0x61, 0x02),
	DCS(0x62, 0x0A),
	DCS(0x63, 0x15),
	DCS(0x64, 0x14),
	DCS(0x65, 0x02),
	DCS(0x66, 0x11),
	DCS(0x67, 0x10),
	DCS(0x68, 0x02),
	DCS(0x69, 0x0F),
	DCS(0x6A, 0x0E),
	DCS(0x6B, 0x02),
	DCS(0x6C, 0x0D),
	DCS(0x6D, 0x0C),
	DCS(0x6E, 0x06),
	DCS(0x6F, 0x02),
	DCS(0x70, 0x02),
	DCS(0x71, 0x02),
	DCS(0x72, 0x02),
	DCS(0x73, 0x02),
	DCS(0x74, 0x02),

	DCS(0x75, 0x06),
	DCS(0x76, 0x02),
	DCS(0x77, 0x02),
	DCS(0x78, 0x0A),
	DCS(0x79, 0x15),
	DCS(0x7A, 0x14),
	DCS(0x7B, 0x02),
	DCS(0x7C, 0x10),
	DCS(0x7D, 0x11),
	DCS(0x7E, 0x02),
	DCS(0x7F, 0x0C),
	DCS(0x80, 0x0D),
	DCS(0x81, 0x02),
	DCS(0x82, 0x0E),
	DCS(0x83, 0x0F),
	DCS(0x84, 0x08),
	DCS(0x85, 0x02),
	DCS(0x86, 0x02),
	DCS(0x87, 0x02),
	DCS(0x88, 0x02),
	DCS(0x89, 0x02),
	DCS(0x8A, 0x02),

	// Page 4: charge pump and VGH/VGL clamps.
	SwitchPage(0x04),
	DCS(0x6C, 0x15),
	DCS(0x6E, 0x30),
	DCS(0x6F, 0x33),
	DCS(0x8D, 0x1F),
	DCS(0x87, 0xBA),
	DCS(0x26, 0x76),
	DCS(0xB2, 0xD1),
	DCS(0x35, 0x1F),
	DCS(0x33, 0x14),
	DCS(0x3A, 0xA9),
	DCS(0x3B, 0x98),
	DCS(0x38, 0x01),
	DCS(0x39, 0x00),

	// Page 1: scan direction, VCOM, source timing, gamma.
	SwitchPage(0x01),
	DCS(0x22, 0x0A),
	DCS(0x31, 0x00),
	DCS(0x50, 0xC0),
	DCS(0x51, 0xC0),
	DCS(0x53, 0x47),
	DCS(0x55, 0x7A),
	DCS(0x60, 0x28),
	DCS(0x2E, 0xC8),

	DCS(0xA0, 0x01),
	DCS(0xA1, 0x10),
	DCS(0xA2, 0x1B),
	DCS(0xA3, 0x0C),
	DCS(0xA4, 0x14),
	DCS(0xA5, 0x25),
	DCS(0xA6, 0x1A),
	DCS(0xA7, 0x1D),
	DCS(0xA8, 0x68),
	DCS(0xA9, 0x1B),
	DCS(0xAA, 0x26),
	DCS(0xAB, 0x5B),
	DCS(0xAC, 0x1B),
	DCS(0xAD, 0x17),
	DCS(0xAE, 0x4F),
	DCS(0xAF, 0x24),
	DCS(0xB0, 0x2A),
	DCS(0xB1, 0x4E),
	DCS(0xB2, 0x5F),
	DCS(0xB3, 0x39),

	DCS(0xC0, 0x0F),
	DCS(0xC1, 0x1B),
	DCS(0xC2, 0x27),
	DCS(0xC3, 0x16),
	DCS(0xC4, 0x14),
	DCS(0xC5, 0x28),
	DCS(0xC6, 0x1D),
	DCS(0xC7, 0x21),
	DCS(0xC8, 0x6C),
	DCS(0xC9, 0x1B),
	DCS(0xCA, 0x26),
	DCS(0xCB, 0x5B),
	DCS(0xCC, 0x1B),
	DCS(0xCD, 0x1B),
	DCS(0xCE, 0x4F),
	DCS(0xCF, 0x24),
	DCS(0xD0, 0x2A),
	DCS(0xD1, 0x4E),
	DCS(0xD2, 0x5F),
	DCS(0xD3, 0x39),

	// Standard page: soft reset, tearing line on, sleep out, display on.
	SwitchPage(0x00),

	DCS(dcsSoftReset),
	Delay(10),
	DCS(0x35, 0x00),
	DCS(dcsExitSleepMode),
	Delay(120),
	DCS(dcsSetDisplayOn),
	Delay(20),

	// Content adaptive brightness level; backlight PWM is external.
	DCS(0x55, 0x01),

	End,
}

func init() {
	register(&Descriptor{
		ID:         "mt1280800a",
		Compatible: "motivo,mt1280800a",
		Mode: NewMode(Timing{
			HDisplay: 800, HFrontPorch: 52, HSync: 8, HBackPorch: 48,
			VDisplay: 1280, VFrontPorch: 16, VSync: 6, VBackPorch: 16,
		}, 60),
		WidthMM:              107,
		HeightMM:             172,
		BPC:                  8,
		Lanes:                4,
		Format:               FormatRGB888,
		Flags:                FlagVideo | FlagVideoSyncPulse | FlagLPM,
		ConnectorOrientation: OrientationLeftUp,
		Script:               mt1280800aScript,
		Timings:              motivoTimings,
	})

	register(&Descriptor{
		ID:         "mt1280800b",
		Compatible: "motivo,mt1280800b",
		Mode: NewMode(Timing{
			HDisplay: 800, HFrontPorch: 40, HSync: 40, HBackPorch: 20,
			VDisplay: 1280, VFrontPorch: 8, VSync: 8, VBackPorch: 4,
		}, 60),
		WidthMM:              107,
		HeightMM:             172,
		BPC:                  8,
		Lanes:                4,
		Format:               FormatRGB888,
		Flags:                FlagVideo | FlagVideoSyncPulse | FlagVideoBurst | FlagLPM,
		ConnectorOrientation: OrientationLeftUp,
		Script:               mt1280800bScript,
		Timings:              motivoTimings,
	})
}
