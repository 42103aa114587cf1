package cycle

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appLog "mtpanel/internal/log"
	"mtpanel/internal/panel"
	"mtpanel/internal/pipeline"
)

func TestMain(m *testing.M) {
	appLog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type link struct {
	mu     sync.Mutex
	failOp byte
	sent   []byte
}

func (l *link) WriteDCS(opcode byte, _ []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, opcode)
	if l.failOp != 0 && opcode == l.failOp {
		return errors.New("link down")
	}
	return nil
}

func (l *link) Nop() error { return nil }

func (l *link) setFail(op byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failOp = op
}

type rail struct{ on bool }

func (r *rail) Enable() error  { r.on = true; return nil }
func (r *rail) Disable() error { r.on = false; return nil }

type rig struct {
	pl    *pipeline.Pipeline
	p     *panel.Panel
	link  *link
	power *rail
	r     *Runner
	holds []time.Duration
}

func newRig(t *testing.T, hold time.Duration, history int) *rig {
	t.Helper()
	g := &rig{pl: pipeline.New(), link: &link{}, power: &rail{}}
	p, err := panel.Attach("dsi0", "mt1280800a", panel.Resources{
		Transport: g.link,
		Power:     g.power,
		Sleep:     func(time.Duration) {},
	}, g.pl)
	require.NoError(t, err)
	t.Cleanup(func() { panel.Detach(p, g.pl) })
	g.p = p

	g.r = NewRunner(g.pl, "dsi0", hold, history)
	g.r.wait = func(ctx context.Context, d time.Duration) error {
		g.holds = append(g.holds, d)
		return ctx.Err()
	}
	return g
}

func TestRunOnceSuccess(t *testing.T) {
	g := newRig(t, 3*time.Second, 4)

	rep := g.r.RunOnce(context.Background())
	assert.True(t, rep.OK(), rep.Error)
	assert.Equal(t, "dsi0", rep.Panel)
	assert.False(t, rep.Latched)
	assert.Zero(t, rep.Retries)
	assert.Equal(t, []time.Duration{3 * time.Second}, g.holds)
	assert.Equal(t, panel.Unprepared, g.p.State())
	assert.False(t, g.power.on)
	assert.Len(t, g.r.History(), 1)
}

func TestRunOnceRestoresEnabledPanel(t *testing.T) {
	g := newRig(t, time.Second, 4)
	require.NoError(t, g.pl.Up(context.Background(), "dsi0"))

	rep := g.r.RunOnce(context.Background())
	assert.True(t, rep.OK(), rep.Error)
	assert.Equal(t, panel.Enabled, g.p.State())
	assert.True(t, g.power.on)
}

func TestRunOnceFailureFallsBackToUnprepare(t *testing.T) {
	g := newRig(t, time.Second, 4)
	g.link.setFail(0x29)

	rep := g.r.RunOnce(context.Background())
	assert.False(t, rep.OK())
	assert.Equal(t, "enable", rep.FailedOp)
	assert.NotEmpty(t, rep.Error)
	assert.True(t, rep.Latched)
	assert.Equal(t, int64(3), rep.Retries)
	assert.Empty(t, g.holds, "no hold after a failed enable")
	assert.Equal(t, panel.Unprepared, g.p.State())
	assert.False(t, g.power.on)
}

func TestRunOnceCancelled(t *testing.T) {
	g := newRig(t, time.Second, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep := g.r.RunOnce(ctx)
	assert.Equal(t, "prepare", rep.FailedOp, "pipeline refuses to start on a cancelled context")
	assert.Equal(t, panel.Unprepared, g.p.State())
}

func TestRunOnceUnknownPanel(t *testing.T) {
	r := NewRunner(pipeline.New(), "ghost", 0, 2)
	rep := r.RunOnce(context.Background())
	assert.Equal(t, "lookup", rep.FailedOp)
	assert.Contains(t, rep.Error, "ghost")
}

func TestHistoryIsBounded(t *testing.T) {
	g := newRig(t, 0, 2)
	for i := 0; i < 5; i++ {
		g.r.RunOnce(context.Background())
	}
	assert.Len(t, g.r.History(), 2)
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	g := newRig(t, 0, 2)
	_, err := NewScheduler("not a cron spec", g.r)
	assert.Error(t, err)
}

func TestSchedulerRunsCycles(t *testing.T) {
	g := newRig(t, 0, 8)
	g.r.wait = func(context.Context, time.Duration) error { return nil }

	s, err := NewScheduler("@every 1s", g.r)
	require.NoError(t, err)
	assert.True(t, s.Next().IsZero(), "not scheduled before Start")
	s.Start()
	assert.False(t, s.Next().IsZero())

	require.Eventually(t, func() bool { return len(g.r.History()) > 0 }, 5*time.Second, 50*time.Millisecond)
	s.Stop()
	assert.True(t, g.r.History()[0].OK())
}
