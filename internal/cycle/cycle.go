// Package cycle runs power-cycle soaks: the full lifecycle of a panel,
// repeated on demand or on a cron schedule, with a bounded history of
// outcomes.
package cycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "mtpanel/internal/log"
	"mtpanel/internal/model"
	"mtpanel/internal/panel"
	"mtpanel/internal/pipeline"
)

// Runner drives one panel through prepare, enable, hold, disable and
// unprepare. A panel that was enabled when the run started is brought back
// up afterwards.
type Runner struct {
	pl   *pipeline.Pipeline
	name string
	hold time.Duration
	max  int

	// wait blocks for d or until ctx is done.
	wait func(ctx context.Context, d time.Duration) error
	now  func() time.Time

	mu      sync.Mutex
	history []model.CycleReport
}

// NewRunner cycles the panel registered as name in pl, keeping it enabled
// for hold and remembering the last history reports.
func NewRunner(pl *pipeline.Pipeline, name string, hold time.Duration, history int) *Runner {
	if history <= 0 {
		history = 1
	}
	return &Runner{
		pl:   pl,
		name: name,
		hold: hold,
		max:  history,
		wait: sleepCtx,
		now:  time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs one cycle. Any failure is followed by an unprepare so
// the panel ends powered off; the report names the first failing step.
func (r *Runner) RunOnce(ctx context.Context) model.CycleReport {
	rep := model.CycleReport{Panel: r.name, Started: r.now()}

	p, ok := r.pl.Panel(r.name)
	if !ok {
		rep.FailedOp = "lookup"
		rep.Error = fmt.Sprintf("%v: %s", pipeline.ErrUnknownPanel, r.name)
		return r.finish(rep, nil, 0)
	}
	before := p.Stats().Retries
	wasUp := p.State() == panel.Enabled

	step := func(name string, fn func() error) bool {
		if rep.FailedOp != "" {
			return false
		}
		if err := fn(); err != nil {
			rep.FailedOp = name
			rep.Error = err.Error()
			return false
		}
		return true
	}
	run := func(op pipeline.Op) func() error {
		return func() error { return r.pl.Run(ctx, r.name, op) }
	}

	if p.State() != panel.Unprepared {
		step("down", func() error { return r.pl.Down(ctx, r.name) })
	}
	step(string(pipeline.OpPrepare), run(pipeline.OpPrepare))
	step(string(pipeline.OpEnable), run(pipeline.OpEnable))
	step("hold", func() error { return r.wait(ctx, r.hold) })
	step(string(pipeline.OpDisable), run(pipeline.OpDisable))
	step(string(pipeline.OpUnprepare), run(pipeline.OpUnprepare))

	if rep.FailedOp != "" {
		if err := r.pl.Run(context.WithoutCancel(ctx), r.name, pipeline.OpUnprepare); err != nil {
			appLog.Error("cycle fallback unprepare failed", err, "panel", r.name)
		}
	} else if wasUp {
		step("restore", func() error { return r.pl.Up(ctx, r.name) })
	}

	return r.finish(rep, p, before)
}

func (r *Runner) finish(rep model.CycleReport, p *panel.Panel, retriesBefore int64) model.CycleReport {
	rep.Duration = r.now().Sub(rep.Started)
	rep.Latched = panel.FaultLatched()
	if p != nil {
		rep.Retries = p.Stats().Retries - retriesBefore
	}

	r.mu.Lock()
	r.history = append(r.history, rep)
	if len(r.history) > r.max {
		r.history = r.history[len(r.history)-r.max:]
	}
	r.mu.Unlock()

	if rep.OK() {
		appLog.Info("power cycle ok", "panel", r.name, "took", rep.Duration, "retries", rep.Retries)
	} else {
		appLog.Warn("power cycle failed", "panel", r.name, "op", rep.FailedOp, "err", rep.Error, "latched", rep.Latched)
	}
	return rep
}

// History returns the retained reports, oldest first.
func (r *Runner) History() []model.CycleReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.CycleReport(nil), r.history...)
}

// Scheduler runs a Runner on a cron spec. A tick that arrives while the
// previous cycle is still running is skipped.
type Scheduler struct {
	c      *cron.Cron
	id     cron.EntryID
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler parses spec (standard 5 fields or a @descriptor) and binds
// it to r. Nothing runs until Start.
func NewScheduler(spec string, r *Runner) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	l := cronLogger{}
	c := cron.New(
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)
	id, err := c.AddFunc(spec, func() { r.RunOnce(ctx) })
	if err != nil {
		cancel()
		return nil, fmt.Errorf("cycle: schedule %q: %w", spec, err)
	}
	return &Scheduler{c: c, id: id, ctx: ctx, cancel: cancel}, nil
}

func (s *Scheduler) Start() {
	s.c.Start()
	appLog.Info("power cycle scheduler started", "next", s.Next())
}

// Next is the time of the next scheduled cycle.
func (s *Scheduler) Next() time.Time {
	return s.c.Entry(s.id).Next
}

// Stop cancels a running cycle's hold and waits for it to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.c.Stop().Done()
}

// cronLogger routes cron's own logging through appLog.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}
