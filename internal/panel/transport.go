package panel

// Transport is the command channel to the panel controller. Implementations
// serialize their own writes.
type Transport interface {
	// WriteDCS sends one addressed register write. payload may be empty.
	WriteDCS(opcode byte, payload []byte) error
	// Nop sends a blocking DCS no-op.
	Nop() error
}

// Settings is what a transport needs to know about the panel on attach.
type Settings struct {
	Lanes  int
	Format PixelFormat
	Flags  ModeFlags
	Mode   Mode
}

// Attacher is implemented by transports that must be configured for the
// panel before the first write and released on detach.
type Attacher interface {
	Attach(s Settings) error
	Detach() error
}

// LowPowerSwitcher is implemented by transports that can move between
// low-power and high-speed command transmission.
type LowPowerSwitcher interface {
	SetLowPower(enabled bool) error
}

// ResetLine is the panel reset GPIO, addressed logically: Set(true) asserts
// it. Polarity is the driver's concern.
type ResetLine interface {
	Set(asserted bool) error
}

// Regulator is the panel power rail.
type Regulator interface {
	Enable() error
	Disable() error
}
