package panel

import (
	"errors"
	"io"
	"os"
	"testing"
	"time"

	appLog "mtpanel/internal/log"
)

func TestMain(m *testing.M) {
	appLog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

var errLink = errors.New("dsi: host transfer timed out")

// op is one recorded transport call.
type op struct {
	nop     bool
	opcode  byte
	payload []byte
}

// fakeTransport records every call. failFirst[opcode] makes the first N
// writes of that opcode fail; failAll[opcode] makes every write fail.
type fakeTransport struct {
	ops       []op
	attempts  map[byte]int
	failFirst map[byte]int
	failAll   map[byte]bool
	nopFails  int

	attached *Settings
	detached bool
	detachErr error
	lowPower []bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		attempts:  map[byte]int{},
		failFirst: map[byte]int{},
		failAll:   map[byte]bool{},
	}
}

func (f *fakeTransport) WriteDCS(opcode byte, payload []byte) error {
	f.attempts[opcode]++
	f.ops = append(f.ops, op{opcode: opcode, payload: append([]byte{}, payload...)})
	if f.failAll[opcode] || f.attempts[opcode] <= f.failFirst[opcode] {
		return errLink
	}
	return nil
}

func (f *fakeTransport) Nop() error {
	f.ops = append(f.ops, op{nop: true})
	if f.nopFails > 0 {
		f.nopFails--
		return errLink
	}
	return nil
}

func (f *fakeTransport) Attach(s Settings) error {
	f.attached = &s
	return nil
}

func (f *fakeTransport) Detach() error {
	f.detached = true
	return f.detachErr
}

func (f *fakeTransport) SetLowPower(enabled bool) error {
	f.lowPower = append(f.lowPower, enabled)
	return nil
}

// writes returns the recorded DCS writes, skipping no-ops.
func (f *fakeTransport) writes() []op {
	var out []op
	for _, o := range f.ops {
		if !o.nop {
			out = append(out, o)
		}
	}
	return out
}

func (f *fakeTransport) opcodes() []byte {
	var out []byte
	for _, o := range f.writes() {
		out = append(out, o.opcode)
	}
	return out
}

// bareTransport hides the optional capabilities of a fakeTransport.
type bareTransport struct{ f *fakeTransport }

func (b bareTransport) WriteDCS(opcode byte, payload []byte) error {
	return b.f.WriteDCS(opcode, payload)
}

func (b bareTransport) Nop() error { return b.f.Nop() }

type fakeReset struct {
	levels []bool
	err    error
}

func (r *fakeReset) Set(asserted bool) error {
	if r.err != nil {
		return r.err
	}
	r.levels = append(r.levels, asserted)
	return nil
}

func (r *fakeReset) last() bool { return r.levels[len(r.levels)-1] }

type fakeRegulator struct {
	on        bool
	enables   int
	disables  int
	enableErr error
}

func (r *fakeRegulator) Enable() error {
	if r.enableErr != nil {
		return r.enableErr
	}
	r.enables++
	r.on = true
	return nil
}

func (r *fakeRegulator) Disable() error {
	r.disables++
	r.on = false
	return nil
}

type sleepLog struct{ d []time.Duration }

func (s *sleepLog) sleep(d time.Duration) { s.d = append(s.d, d) }

func (s *sleepLog) count(d time.Duration) int {
	n := 0
	for _, x := range s.d {
		if x == d {
			n++
		}
	}
	return n
}

type fakePipeline struct {
	panels map[string]*Panel
	addErr error
}

func newFakePipeline() *fakePipeline { return &fakePipeline{panels: map[string]*Panel{}} }

func (pl *fakePipeline) Add(p *Panel) error {
	if pl.addErr != nil {
		return pl.addErr
	}
	pl.panels[p.Name()] = p
	return nil
}

func (pl *fakePipeline) Remove(p *Panel) { delete(pl.panels, p.Name()) }

type rig struct {
	t     *fakeTransport
	reset *fakeReset
	power *fakeRegulator
	sl    *sleepLog
	pl    *fakePipeline
	p     *Panel
}

func newRig(tb testing.TB, variant string) *rig {
	tb.Helper()
	r := &rig{
		t:     newFakeTransport(),
		reset: &fakeReset{},
		power: &fakeRegulator{},
		sl:    &sleepLog{},
		pl:    newFakePipeline(),
	}
	p, err := Attach("", variant, Resources{
		Transport: r.t,
		Reset:     r.reset,
		Power:     r.power,
		Sleep:     r.sl.sleep,
	}, r.pl)
	if err != nil {
		tb.Fatalf("Attach: %v", err)
	}
	r.p = p
	setFault(false)
	tb.Cleanup(func() { setFault(false) })
	return r
}
