package dsi

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	appLog "mtpanel/internal/log"
	"mtpanel/internal/panel"
)

// ErrSimulatedFault is returned by a Sim transport when it injects a failure.
var ErrSimulatedFault = errors.New("dsi: simulated transfer fault")

const simHistory = 256

// Packet is one transfer seen by a Sim transport.
type Packet struct {
	Nop     bool   `json:"nop,omitempty"`
	Opcode  byte   `json:"opcode"`
	Payload []byte `json:"payload,omitempty"`
	Failed  bool   `json:"failed,omitempty"`
}

func (p Packet) String() string {
	if p.Nop {
		return "nop"
	}
	return fmt.Sprintf("dcs 0x%02X % X", p.Opcode, p.Payload)
}

// SimStats counts transfers seen by a Sim transport.
type SimStats struct {
	Sent     int  `json:"sent"`
	Failed   int  `json:"failed"`
	Attached bool `json:"attached"`
	LowPower bool `json:"low_power"`
}

// Sim is a transport with no hardware behind it. Each transfer fails with
// probability failRate; the last packets are kept for inspection.
type Sim struct {
	mu       sync.Mutex
	rnd      *rand.Rand
	failRate float64

	history  []Packet
	stats    SimStats
	settings *panel.Settings
}

// NewSim returns a simulated transport. failRate is clamped to [0, 1].
func NewSim(failRate float64) *Sim {
	if failRate < 0 {
		failRate = 0
	}
	if failRate > 1 {
		failRate = 1
	}
	return &Sim{
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		failRate: failRate,
		stats:    SimStats{LowPower: true},
	}
}

// Seed makes fault injection reproducible.
func (s *Sim) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rnd = rand.New(rand.NewSource(seed))
}

func (s *Sim) String() string { return "sim" }

func (s *Sim) Attach(st panel.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &st
	s.stats.Attached = true
	appLog.Info("sim link attached", "lanes", st.Lanes, "format", st.Format, "flags", st.Flags, "mode", st.Mode)
	return nil
}

func (s *Sim) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = nil
	s.stats.Attached = false
	return nil
}

func (s *Sim) SetLowPower(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.LowPower = enabled
	return nil
}

func (s *Sim) WriteDCS(opcode byte, payload []byte) error {
	return s.record(Packet{Opcode: opcode, Payload: append([]byte(nil), payload...)})
}

func (s *Sim) Nop() error {
	return s.record(Packet{Nop: true})
}

// History returns a copy of the most recent packets, oldest first.
func (s *Sim) History() []Packet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Packet(nil), s.history...)
}

func (s *Sim) Stats() SimStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Settings returns what the link was attached with, or nil.
func (s *Sim) Settings() *panel.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Sim) record(p Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.Failed = s.failRate > 0 && s.rnd.Float64() < s.failRate
	s.history = append(s.history, p)
	if len(s.history) > simHistory {
		s.history = s.history[len(s.history)-simHistory:]
	}
	if p.Failed {
		s.stats.Failed++
		return ErrSimulatedFault
	}
	s.stats.Sent++
	return nil
}
