// Package pipeline is the in-process display pipeline that attached panels
// register with. It owns the single thread of control per panel: lifecycle
// calls for one panel are serialized, calls for different panels run
// independently.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	appLog "mtpanel/internal/log"
	"mtpanel/internal/model"
	"mtpanel/internal/panel"
)

var (
	ErrUnknownPanel = errors.New("pipeline: unknown panel")
	ErrDuplicate    = errors.New("pipeline: panel name already registered")
	ErrUnknownOp    = errors.New("pipeline: unknown operation")
)

// Op is a lifecycle operation.
type Op string

const (
	OpPrepare   Op = "prepare"
	OpEnable    Op = "enable"
	OpDisable   Op = "disable"
	OpUnprepare Op = "unprepare"
)

// ParseOp maps a name (case-insensitive) to an Op.
func ParseOp(s string) (Op, error) {
	switch op := Op(strings.ToLower(strings.TrimSpace(s))); op {
	case OpPrepare, OpEnable, OpDisable, OpUnprepare:
		return op, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownOp, s)
	}
}

type entry struct {
	p *panel.Panel
	// turn is held for the duration of one lifecycle call.
	turn chan struct{}

	mu      sync.Mutex
	lastOp  Op
	lastErr error
	lastAt  time.Time
}

// Pipeline is a registry of attached panels.
type Pipeline struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

func New() *Pipeline {
	return &Pipeline{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Add registers p under its name.
func (pl *Pipeline) Add(p *panel.Panel) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if _, ok := pl.entries[p.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, p.Name())
	}
	pl.entries[p.Name()] = &entry{p: p, turn: make(chan struct{}, 1)}
	return nil
}

// Remove unregisters p. Removing an unknown panel is a no-op.
func (pl *Pipeline) Remove(p *panel.Panel) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if e, ok := pl.entries[p.Name()]; ok && e.p == p {
		delete(pl.entries, p.Name())
	}
}

// Panel returns the panel registered as name.
func (pl *Pipeline) Panel(name string) (*panel.Panel, bool) {
	e, err := pl.entry(name)
	if err != nil {
		return nil, false
	}
	return e.p, true
}

// Names returns the registered panel names, sorted.
func (pl *Pipeline) Names() []string {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	names := make([]string, 0, len(pl.entries))
	for n := range pl.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (pl *Pipeline) entry(name string) (*entry, error) {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	e, ok := pl.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPanel, name)
	}
	return e, nil
}

// Run performs op on the named panel once any call already in flight for
// that panel has finished. ctx bounds only the wait; a started transition
// always runs to completion.
func (pl *Pipeline) Run(ctx context.Context, name string, op Op) error {
	e, release, err := pl.acquire(ctx, name, string(op))
	if err != nil {
		return err
	}
	defer release()
	return pl.do(e, op)
}

// acquire waits for the named panel's turn. release must be called once the
// caller is done with the panel.
func (pl *Pipeline) acquire(ctx context.Context, name, what string) (*entry, func(), error) {
	e, err := pl.entry(name)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("pipeline: %s %s: %w", what, name, err)
	}
	select {
	case e.turn <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("pipeline: %s %s: %w", what, name, ctx.Err())
	}
	return e, func() { <-e.turn }, nil
}

// do runs op on e. The caller holds e's turn.
func (pl *Pipeline) do(e *entry, op Op) error {
	var call func() error
	switch op {
	case OpPrepare:
		call = e.p.Prepare
	case OpEnable:
		call = e.p.Enable
	case OpDisable:
		call = e.p.Disable
	case OpUnprepare:
		call = e.p.Unprepare
	default:
		return fmt.Errorf("%w %q", ErrUnknownOp, op)
	}

	started := pl.now()
	err := call()

	e.mu.Lock()
	e.lastOp, e.lastErr, e.lastAt = op, err, started
	e.mu.Unlock()

	name := e.p.Name()
	if err != nil {
		appLog.Error("pipeline op failed", err, "panel", name, "op", op)
		return err
	}
	appLog.Debug("pipeline op done", "panel", name, "op", op, "state", e.p.State(), "took", pl.now().Sub(started))
	return nil
}

// Up brings the named panel to Enabled from whatever state it is in. The
// state is read and acted on within one turn.
func (pl *Pipeline) Up(ctx context.Context, name string) error {
	e, release, err := pl.acquire(ctx, name, "up")
	if err != nil {
		return err
	}
	defer release()

	if e.p.State() == panel.Unprepared {
		if err := pl.do(e, OpPrepare); err != nil {
			return err
		}
	}
	if e.p.State() == panel.Enabled {
		return nil
	}
	return pl.do(e, OpEnable)
}

// Down disables the named panel if it is enabled and then unprepares it,
// within one turn. The unprepare runs even when disable fails.
func (pl *Pipeline) Down(ctx context.Context, name string) error {
	e, release, err := pl.acquire(ctx, name, "down")
	if err != nil {
		return err
	}
	defer release()

	var derr error
	if e.p.State() == panel.Enabled {
		derr = pl.do(e, OpDisable)
	}
	if err := pl.do(e, OpUnprepare); err != nil {
		return err
	}
	return derr
}

// Shutdown takes every panel down. Errors are logged.
func (pl *Pipeline) Shutdown(ctx context.Context) {
	for _, name := range pl.Names() {
		if err := pl.Down(ctx, name); err != nil {
			appLog.Error("panel shutdown failed", err, "panel", name)
		}
	}
}

// Status returns a snapshot of the named panel.
func (pl *Pipeline) Status(name string) (model.PanelStatus, error) {
	e, err := pl.entry(name)
	if err != nil {
		return model.PanelStatus{}, err
	}
	return e.status(), nil
}

// Statuses returns a snapshot of every panel, sorted by name.
func (pl *Pipeline) Statuses() []model.PanelStatus {
	out := []model.PanelStatus{}
	for _, name := range pl.Names() {
		if st, err := pl.Status(name); err == nil {
			out = append(out, st)
		}
	}
	return out
}

// Modes returns what the compositor would probe from the named panel.
func (pl *Pipeline) Modes(name string) (model.DisplayInfo, error) {
	p, ok := pl.Panel(name)
	if !ok {
		return model.DisplayInfo{}, fmt.Errorf("%w: %s", ErrUnknownPanel, name)
	}
	modes, info := p.Modes()
	out := model.DisplayInfo{
		Modes:       make([]model.ModeInfo, 0, len(modes)),
		WidthMM:     info.WidthMM,
		HeightMM:    info.HeightMM,
		BPC:         info.BPC,
		Orientation: info.Orientation.String(),
	}
	for _, m := range modes {
		out.Modes = append(out.Modes, model.ModeInfo{
			Name:      m.Name,
			ClockKHz:  m.Clock,
			Refresh:   m.Refresh(),
			HDisplay:  m.HDisplay,
			HSyncFrom: m.HSyncStart,
			HSyncTo:   m.HSyncEnd,
			HTotal:    m.HTotal,
			VDisplay:  m.VDisplay,
			VSyncFrom: m.VSyncStart,
			VSyncTo:   m.VSyncEnd,
			VTotal:    m.VTotal,
			Preferred: m.Type&panel.ModeTypePreferred != 0,
		})
	}
	return out, nil
}

func (e *entry) status() model.PanelStatus {
	d := e.p.Descriptor()
	stats := e.p.Stats()
	st := model.PanelStatus{
		Name:           e.p.Name(),
		Variant:        d.ID,
		State:          e.p.State().String(),
		Mode:           d.Mode.String(),
		Lanes:          d.Lanes,
		Format:         d.Format.String(),
		Flags:          d.Flags.String(),
		Orientation:    e.p.Orientation().String(),
		Retries:        stats.Retries,
		WarmupFailures: stats.WarmupFailures,
		Failures:       stats.Failures,
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	st.LastOp = string(e.lastOp)
	st.LastAt = e.lastAt
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	return st
}
