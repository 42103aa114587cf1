package model

import "time"

// PanelStatus is the snapshot of one attached panel served by the
// diagnostics API.
type PanelStatus struct {
	Name    string `json:"name"`
	Variant string `json:"variant"`
	State   string `json:"state"`

	// Mode is the preferred mode, e.g. "800x1280@60 71804kHz".
	Mode        string `json:"mode"`
	Lanes       int    `json:"lanes"`
	Format      string `json:"format"`
	Flags       string `json:"flags"`
	Orientation string `json:"orientation"`

	Retries        int64 `json:"retries"`
	WarmupFailures int64 `json:"warmup_failures"`
	Failures       int64 `json:"failures"`

	// LastOp is the last lifecycle operation run through the pipeline.
	LastOp    string    `json:"last_op,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	LastAt    time.Time `json:"last_at,omitempty"`
}

// ModeInfo is a display mode as reported to the compositor.
type ModeInfo struct {
	Name      string `json:"name"`
	ClockKHz  int    `json:"clock_khz"`
	Refresh   int    `json:"refresh"`
	HDisplay  int    `json:"hdisplay"`
	HSyncFrom int    `json:"hsync_start"`
	HSyncTo   int    `json:"hsync_end"`
	HTotal    int    `json:"htotal"`
	VDisplay  int    `json:"vdisplay"`
	VSyncFrom int    `json:"vsync_start"`
	VSyncTo   int    `json:"vsync_end"`
	VTotal    int    `json:"vtotal"`
	Preferred bool   `json:"preferred"`
}

// DisplayInfo is the connector information reported with the modes.
type DisplayInfo struct {
	Modes       []ModeInfo `json:"modes"`
	WidthMM     int        `json:"width_mm"`
	HeightMM    int        `json:"height_mm"`
	BPC         int        `json:"bpc"`
	Orientation string     `json:"orientation"`
}

// CycleReport is the outcome of one power-cycle soak run.
type CycleReport struct {
	Panel    string        `json:"panel"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	// FailedOp is the first lifecycle operation that failed, if any.
	FailedOp string `json:"failed_op,omitempty"`
	Error    string `json:"error,omitempty"`
	// Latched is the fault latch right after the run.
	Latched bool  `json:"latched"`
	Retries int64 `json:"retries"`
}

// OK reports whether every step of the cycle succeeded.
func (r CycleReport) OK() bool { return r.FailedOp == "" }
