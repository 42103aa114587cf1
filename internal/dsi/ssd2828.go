// Package dsi provides panel command transports: an SSD2828 SPI to MIPI-DSI
// bridge driven through periph.io, and a simulated link for dry runs.
package dsi

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	appLog "mtpanel/internal/log"
	"mtpanel/internal/panel"
)

// SSD2828 SPI framing: every transfer starts with a prefix byte selecting
// the register index or the data phase.
const (
	prefixIndex = 0x70
	prefixData  = 0x72
)

// SSD2828 registers.
const (
	regVSAHSA     = 0xB1 // vertical/horizontal sync active
	regVBPHBP     = 0xB2 // back porches
	regVFPHFP     = 0xB3 // front porches
	regHACT       = 0xB4
	regVACT       = 0xB5
	regVideoMode  = 0xB6
	regConfig     = 0xB7
	regVCChannel  = 0xB8
	regPLLControl = 0xB9
	regPLLConfig  = 0xBA
	regClockCtrl  = 0xBB
	regPacketLo   = 0xBC
	regPacketHi   = 0xBD
	regMaxReturn  = 0xBE
	regPacketData = 0xBF
	regLaneConfig = 0xDE
)

// Configuration register (0xB7) bits.
const (
	cfgHS  = 1 << 0 // high-speed transmission
	cfgCKE = 1 << 1 // clock lane enable
	cfgVEN = 1 << 3 // video stream enable
	cfgEOT = 1 << 5 // end-of-transmission packet
	cfgDCS = 1 << 6 // DCS instead of generic packets
)

// Video mode register (0xB6) fields.
const (
	vmNonBurstSyncPulse = 0x00
	vmNonBurstSyncEvent = 0x01
	vmBurst             = 0x02
	vmFormatShift       = 2
)

const dcsNop = 0x00

// Opts configures an SSD2828 bridge.
type Opts struct {
	// MaxHz is the SPI clock used by NewSSD2828SPI. Zero means 1MHz.
	MaxHz physic.Frequency
	// RefClock is the crystal feeding the bridge PLL. Zero means 24MHz.
	RefClock physic.Frequency
	// Reset is the optional bridge reset pin, active low.
	Reset gpio.PinOut
	// Sleep replaces time.Sleep for reset and PLL lock delays.
	Sleep func(time.Duration)
}

// SSD2828 is a DSI host behind a Solomon SSD2828 bridge. Writes are
// serialized internally.
type SSD2828 struct {
	mu       sync.Mutex
	c        conn.Conn
	rst      gpio.PinOut
	refClock physic.Frequency
	sleep    func(time.Duration)

	config   uint16
	attached bool
	// video is set when the attached panel takes a video stream.
	video bool
}

// NewSSD2828SPI connects to the bridge on port p using SPI mode 3.
func NewSSD2828SPI(p spi.Port, opts *Opts) (*SSD2828, error) {
	if p == nil {
		return nil, errors.New("dsi: spi port is nil")
	}
	if opts == nil {
		opts = &Opts{}
	}
	maxHz := opts.MaxHz
	if maxHz == 0 {
		maxHz = physic.MegaHertz
	}
	c, err := p.Connect(maxHz, spi.Mode3, 8)
	if err != nil {
		return nil, fmt.Errorf("dsi: spi connect: %w", err)
	}
	return NewSSD2828(c, opts)
}

// NewSSD2828 drives the bridge over an already connected c.
func NewSSD2828(c conn.Conn, opts *Opts) (*SSD2828, error) {
	if c == nil {
		return nil, errors.New("dsi: connection is nil")
	}
	if opts == nil {
		opts = &Opts{}
	}
	d := &SSD2828{
		c:        c,
		rst:      opts.Reset,
		refClock: opts.RefClock,
		sleep:    opts.Sleep,
		config:   cfgDCS | cfgEOT,
	}
	if d.refClock == 0 {
		d.refClock = 24 * physic.MegaHertz
	}
	if d.sleep == nil {
		d.sleep = time.Sleep
	}
	return d, nil
}

func (d *SSD2828) String() string {
	return fmt.Sprintf("ssd2828(%s)", d.c)
}

// Attach resets the bridge and programs lanes, PLL and video timings for s.
// The link is left in low-power DCS mode so the init script can be sent.
func (d *SSD2828) Attach(s panel.Settings) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s.Lanes < 1 || s.Lanes > 4 {
		return fmt.Errorf("dsi: %d lanes unsupported", s.Lanes)
	}
	if s.Mode.Clock <= 0 {
		return errors.New("dsi: mode has no pixel clock")
	}

	if d.rst != nil {
		if err := d.rst.Out(gpio.Low); err != nil {
			return fmt.Errorf("dsi: bridge reset: %w", err)
		}
		d.sleep(time.Millisecond)
		if err := d.rst.Out(gpio.High); err != nil {
			return fmt.Errorf("dsi: bridge reset: %w", err)
		}
		d.sleep(10 * time.Millisecond)
	}

	m := s.Mode
	pll := pllConfig(laneRate(s), d.refClock)
	d.config = cfgDCS | cfgEOT

	regs := []struct {
		reg byte
		val uint16
	}{
		{regConfig, d.config},
		{regVCChannel, 0x0000},
		{regLaneConfig, uint16(s.Lanes - 1)},
		{regVSAHSA, pack(m.VSync(), m.HSync())},
		{regVBPHBP, pack(m.VBackPorch(), m.HBackPorch())},
		{regVFPHFP, pack(m.VFrontPorch(), m.HFrontPorch())},
		{regHACT, uint16(m.HDisplay)},
		{regVACT, uint16(m.VDisplay)},
		{regVideoMode, videoMode(s)},
		{regPLLControl, 0x0000},
		{regPLLConfig, pll},
		{regClockCtrl, 0x0003}, // LP clock = PLL / 4
		{regPLLControl, 0x0001},
	}
	for _, r := range regs {
		if err := d.writeReg(r.reg, r.val); err != nil {
			return fmt.Errorf("dsi: attach reg 0x%02X: %w", r.reg, err)
		}
	}
	d.sleep(5 * time.Millisecond) // PLL lock
	if err := d.writeReg(regMaxReturn, 0x0001); err != nil {
		return fmt.Errorf("dsi: attach: %w", err)
	}

	d.attached = true
	d.video = s.Flags.Has(panel.FlagVideo)
	appLog.Info("dsi bridge configured",
		"bridge", d.c.String(),
		"lanes", s.Lanes,
		"format", s.Format,
		"flags", s.Flags,
		"pll", fmt.Sprintf("0x%04X", pll),
	)
	return nil
}

// Detach stops the video stream and the PLL.
func (d *SSD2828) Detach() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.attached {
		return nil
	}
	d.attached = false
	d.video = false
	d.config = cfgDCS | cfgEOT
	if err := d.writeReg(regConfig, d.config); err != nil {
		return fmt.Errorf("dsi: detach: %w", err)
	}
	if err := d.writeReg(regPLLControl, 0x0000); err != nil {
		return fmt.Errorf("dsi: detach: %w", err)
	}
	return nil
}

// SetLowPower selects low-power (true) or high-speed (false) transmission.
// Leaving low-power mode also starts the video stream for a video-mode
// panel; entering it stops the stream.
func (d *SSD2828) SetLowPower(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cfg := d.config | cfgHS | cfgCKE
	if d.video {
		cfg |= cfgVEN
	}
	if enabled {
		cfg = d.config &^ (cfgHS | cfgCKE | cfgVEN)
	}
	if err := d.writeReg(regConfig, cfg); err != nil {
		return fmt.Errorf("dsi: config: %w", err)
	}
	d.config = cfg
	return nil
}

// WriteDCS sends a DCS packet: a short packet for up to one parameter, a
// long packet otherwise. The bridge picks the packet type from the size.
func (d *SSD2828) WriteDCS(opcode byte, payload []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writePacket(append([]byte{opcode}, payload...))
}

// Nop sends the DCS no-op command.
func (d *SSD2828) Nop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writePacket([]byte{dcsNop})
}

func (d *SSD2828) writePacket(pkt []byte) error {
	n := len(pkt)
	if err := d.writeReg(regPacketLo, uint16(n)); err != nil {
		return err
	}
	if err := d.writeReg(regPacketHi, uint16(n>>16)); err != nil {
		return err
	}
	if err := d.c.Tx([]byte{prefixIndex, 0x00, regPacketData}, nil); err != nil {
		return fmt.Errorf("dsi: packet index: %w", err)
	}
	if err := d.c.Tx(append([]byte{prefixData}, pkt...), nil); err != nil {
		return fmt.Errorf("dsi: packet 0x%02X: %w", pkt[0], err)
	}
	return nil
}

// writeReg writes a 16-bit register, low byte first.
func (d *SSD2828) writeReg(reg byte, val uint16) error {
	if err := d.c.Tx([]byte{prefixIndex, 0x00, reg}, nil); err != nil {
		return err
	}
	return d.c.Tx([]byte{prefixData, byte(val), byte(val >> 8)}, nil)
}

func pack(hi, lo int) uint16 {
	return uint16(hi&0xFF)<<8 | uint16(lo&0xFF)
}

func videoMode(s panel.Settings) uint16 {
	vm := uint16(vmNonBurstSyncEvent)
	switch {
	case s.Flags.Has(panel.FlagVideoBurst):
		vm = vmBurst
	case s.Flags.Has(panel.FlagVideoSyncPulse):
		vm = vmNonBurstSyncPulse
	}
	var f uint16
	switch s.Format {
	case panel.FormatRGB888:
		f = 3
	case panel.FormatRGB666:
		f = 2
	case panel.FormatRGB666Packed:
		f = 1
	case panel.FormatRGB565:
		f = 0
	}
	return vm | f<<vmFormatShift
}

// laneRate is the per-lane bit rate needed to carry s.Mode.
func laneRate(s panel.Settings) physic.Frequency {
	bits := int64(s.Mode.Clock) * int64(s.Format.BitsPerPixel()) / int64(s.Lanes)
	return physic.Frequency(bits) * physic.KiloHertz
}

// pllConfig encodes register 0xBA: frequency range in bits 15:14, the
// pre-divider in 12:8 and the multiplier in 7:0. The output is rounded up
// to the next multiple of the reference clock.
func pllConfig(rate, ref physic.Frequency) uint16 {
	ns := (rate + ref - 1) / ref
	if ns < 1 {
		ns = 1
	}
	if ns > 0xFF {
		ns = 0xFF
	}
	out := ns * ref
	var fr uint16
	switch {
	case out < 125*physic.MegaHertz:
		fr = 0
	case out < 250*physic.MegaHertz:
		fr = 1
	case out < 500*physic.MegaHertz:
		fr = 2
	default:
		fr = 3
	}
	const ms = 1
	return fr<<14 | ms<<8 | uint16(ns)
}
