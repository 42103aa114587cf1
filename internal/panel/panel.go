package panel

import (
	"fmt"
	"sync/atomic"
	"time"

	appLog "mtpanel/internal/log"
)

// State is the lifecycle position of a Panel.
type State int32

const (
	Unprepared State = iota
	Prepared
	Enabled
	Disabled
)

func (s State) String() string {
	switch s {
	case Unprepared:
		return "unprepared"
	case Prepared:
		return "prepared"
	case Enabled:
		return "enabled"
	case Disabled:
		return "disabled"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Stats counts transport trouble over the life of a Panel.
type Stats struct {
	Retries        int64 // failed write attempts that were retried or gave up
	WarmupFailures int64 // tolerated no-op warm-up failures
	Failures       int64 // transitions that returned an error
}

// Panel is one attached panel instance. Lifecycle calls must not run
// concurrently on the same Panel; the display pipeline serializes them.
type Panel struct {
	name        string
	desc        *Descriptor
	transport   Transport
	reset       ResetLine
	power       Regulator
	orientation Orientation

	// link is transport with write failures counted into retries.
	link   Transport
	retry  RetryPolicy
	router *PageRouter
	interp *Interpreter

	// state is written only by the lifecycle methods; atomics let status
	// readers on other goroutines observe it.
	state atomic.Int32

	retries        atomic.Int64
	warmupFailures atomic.Int64
	failures       atomic.Int64
}

func newPanel(name string, d *Descriptor, res Resources, orientation Orientation) *Panel {
	retry := DefaultRetry()
	if res.Sleep != nil {
		retry.Sleep = res.Sleep
	}
	p := &Panel{
		name:        name,
		desc:        d,
		transport:   res.Transport,
		reset:       res.Reset,
		power:       res.Power,
		orientation: orientation,
		retry:       retry,
	}
	link := countingTransport{Transport: res.Transport, failed: &p.retries}
	p.link = link
	p.router = &PageRouter{T: link, Retry: retry}
	p.interp = &Interpreter{Router: p.router, Name: name}
	return p
}

// Name returns the instance name the panel was attached under.
func (p *Panel) Name() string { return p.name }

// Descriptor returns the static variant description.
func (p *Panel) Descriptor() *Descriptor { return p.desc }

// State returns the current lifecycle state.
func (p *Panel) State() State { return State(p.state.Load()) }

// Stats returns a snapshot of the transport counters.
func (p *Panel) Stats() Stats {
	return Stats{
		Retries:        p.retries.Load(),
		WarmupFailures: p.warmupFailures.Load(),
		Failures:       p.failures.Load(),
	}
}

func (p *Panel) setState(s State) { p.state.Store(int32(s)) }

func (p *Panel) sleep(d time.Duration) {
	if d > 0 {
		p.retry.Sleep(d)
	}
}

func (p *Panel) setReset(asserted bool) {
	if p.reset == nil {
		return
	}
	if err := p.reset.Set(asserted); err != nil {
		appLog.Error("reset line write failed", err, "panel", p.name, "asserted", asserted)
	}
}

func (p *Panel) fail(op string, err error) error {
	p.failures.Add(1)
	appLog.Error("panel "+op+" failed", err, "panel", p.name)
	return fmt.Errorf("panel %s: %s: %w", p.name, op, err)
}

// Prepare powers the panel, pulses reset and replays the init script.
// Reset is held asserted until the pulse and released while the script
// runs. On script failure reset is asserted again and the rail switched
// off; the fault latch is left alone.
func (p *Panel) Prepare() error {
	if s := p.State(); s != Unprepared {
		return &TransitionError{Op: "prepare", From: s}
	}
	t := p.desc.Timings
	setFault(false)

	p.setReset(true)
	if err := p.power.Enable(); err != nil {
		return p.fail("prepare", fmt.Errorf("regulator enable: %w", err))
	}
	p.sleep(t.PowerSettle)

	// The link must idle in LP-11 before reset is released.
	p.warmup("prepare")
	p.sleep(t.WarmupSettle)

	p.setReset(false)
	p.sleep(t.WarmupSettle)
	p.setReset(true)
	p.sleep(t.ResetPulse)
	p.setReset(false)
	p.sleep(t.ResetSettle)

	rep, err := p.interp.Run(p.desc.Script)
	if err != nil {
		p.setReset(true)
		p.sleep(t.PowerSettle)
		if derr := p.power.Disable(); derr != nil {
			appLog.Error("regulator disable failed", derr, "panel", p.name)
		}
		return p.fail("prepare", err)
	}

	p.setState(Prepared)
	appLog.Info("panel prepared", "panel", p.name, "entries", rep.Applied, "retries", rep.Retries)
	return nil
}

// Enable takes the controller out of sleep and turns the display on. A
// failure raises the fault latch and leaves the state unchanged.
func (p *Panel) Enable() error {
	s := p.State()
	if s != Prepared && s != Disabled {
		return &TransitionError{Op: "enable", From: s}
	}
	t := p.desc.Timings
	setFault(false)

	if err := p.selectDefaultPage(); err != nil {
		return p.latch("enable", err)
	}
	p.sleep(t.PageSettle)

	if err := p.exitSleep(); err != nil {
		return p.latch("enable", err)
	}

	setFault(false)
	p.sleep(t.EnableSettle)
	p.setState(Enabled)
	appLog.Info("panel enabled", "panel", p.name)
	return nil
}

// Disable blanks the display and puts the controller to sleep without
// removing power. A failure raises the fault latch and leaves the state
// unchanged.
func (p *Panel) Disable() error {
	if s := p.State(); s != Enabled {
		return &TransitionError{Op: "disable", From: s}
	}

	if err := p.selectDefaultPage(); err != nil {
		return p.latch("disable", err)
	}
	if err := p.enterSleep(); err != nil {
		return p.latch("disable", err)
	}

	setFault(false)
	p.sleep(p.desc.Timings.DisableSettle)
	p.setState(Disabled)
	appLog.Info("panel disabled", "panel", p.name)
	return nil
}

// Unprepare asserts reset and removes power. It never fails and is valid
// from any state.
func (p *Panel) Unprepare() error {
	p.setReset(true)
	p.sleep(p.desc.Timings.PowerSettle)
	if err := p.power.Disable(); err != nil {
		appLog.Error("regulator disable failed", err, "panel", p.name)
	}
	p.setState(Unprepared)
	appLog.Info("panel unprepared", "panel", p.name)
	return nil
}

// Modes returns the modes the panel supports and its display info. It does
// not touch the hardware.
func (p *Panel) Modes() ([]Mode, DisplayInfo) {
	return []Mode{p.desc.Mode}, DisplayInfo{
		WidthMM:     p.desc.WidthMM,
		HeightMM:    p.desc.HeightMM,
		BPC:         p.desc.BPC,
		Orientation: p.desc.ConnectorOrientation,
	}
}

// Orientation returns the mounting orientation resolved at attach time.
func (p *Panel) Orientation() Orientation { return p.orientation }

// DisplayInfo is the connector information reported with the modes.
type DisplayInfo struct {
	WidthMM, HeightMM int
	BPC               int
	Orientation       Orientation
}

func (p *Panel) latch(op string, err error) error {
	setFault(true)
	appLog.Warn("fault latch raised", "panel", p.name, "op", op)
	return p.fail(op, err)
}

func (p *Panel) selectDefaultPage() error {
	return p.router.SelectPage(DefaultPage)
}

// command sends one parameterless DCS command with retry.
func (p *Panel) command(opcode byte) error {
	return p.retry.Write(opcode, func() error {
		return p.link.WriteDCS(opcode, nil)
	})
}

// warmup sends a retried no-op. Its failure is expected while the link is
// still settling and is only logged.
func (p *Panel) warmup(op string) {
	n, err := p.retry.Do(p.transport.Nop)
	if err != nil {
		p.warmupFailures.Add(1)
		appLog.Warn("link warm-up failed", "panel", p.name, "op", op, "attempts", n, "err", err)
	}
}

// leaveLowPower switches command transmission to high speed, if the
// transport supports the distinction.
func (p *Panel) leaveLowPower() {
	lp, ok := p.transport.(LowPowerSwitcher)
	if !ok {
		return
	}
	if err := lp.SetLowPower(false); err != nil {
		appLog.Warn("leaving low-power mode failed", "panel", p.name, "err", err)
	}
}

func (p *Panel) exitSleep() error {
	p.leaveLowPower()
	p.warmup("exit-sleep")
	p.sleep(p.desc.Timings.WarmupSettle)

	if err := p.command(dcsExitSleepMode); err != nil {
		return fmt.Errorf("exit sleep: %w", err)
	}
	p.sleep(p.desc.Timings.SleepOutSettle)
	if err := p.command(dcsSetDisplayOn); err != nil {
		return fmt.Errorf("display on: %w", err)
	}
	return nil
}

func (p *Panel) enterSleep() error {
	p.leaveLowPower()
	p.warmup("enter-sleep")
	p.sleep(p.desc.Timings.WarmupSettle)

	if err := p.command(dcsSetDisplayOff); err != nil {
		return fmt.Errorf("display off: %w", err)
	}
	p.sleep(p.desc.Timings.DisplayOff)
	if err := p.command(dcsEnterSleep); err != nil {
		return fmt.Errorf("enter sleep: %w", err)
	}
	return nil
}

type countingTransport struct {
	Transport
	failed *atomic.Int64
}

func (c countingTransport) WriteDCS(opcode byte, payload []byte) error {
	err := c.Transport.WriteDCS(opcode, payload)
	if err != nil {
		c.failed.Add(1)
	}
	return err
}
