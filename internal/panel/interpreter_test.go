package panel

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInterp(ft *fakeTransport, sl *sleepLog) *Interpreter {
	return &Interpreter{
		Router: &PageRouter{
			T:     ft,
			Retry: RetryPolicy{Attempts: DefaultAttempts, Backoff: DefaultBackoff, Sleep: sl.sleep},
		},
		Name: "test",
	}
}

func TestInterpreterAppliesEntriesInOrderUntilSentinel(t *testing.T) {
	ft, sl := newFakeTransport(), &sleepLog{}
	s := Script{
		Delay(5),
		SwitchPage(0x04),
		DCS(0x6E, 0x2B),
		DCS(0x01),
		Delay(120),
		DCS(0x29),
		End,
		DCS(0x55, 0x03),
		Delay(200),
	}

	rep, err := newInterp(ft, sl).Run(s)
	require.NoError(t, err)

	assert.Equal(t, Report{Applied: 6}, rep)
	assert.Equal(t, []op{
		{opcode: 0xFF, payload: []byte{0x98, 0x81, 0x04}},
		{opcode: 0x6E, payload: []byte{0x2B}},
		{opcode: 0x01, payload: []byte{}},
		{opcode: 0x29, payload: []byte{}},
	}, ft.ops)
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 120 * time.Millisecond}, sl.d)
}

func TestInterpreterWithoutSentinelRunsToEnd(t *testing.T) {
	ft := newFakeTransport()
	rep, err := newInterp(ft, &sleepLog{}).Run(Script{DCS(0x10), DCS(0x11)})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Applied)
	assert.Equal(t, []byte{0x10, 0x11}, ft.opcodes())
}

func TestInterpreterRecoversOnThirdAttempt(t *testing.T) {
	ft, sl := newFakeTransport(), &sleepLog{}
	ft.failFirst[0x6E] = 2

	rep, err := newInterp(ft, sl).Run(Script{DCS(0x35, 0x17), DCS(0x6E, 0x2B), DCS(0x29), End})
	require.NoError(t, err)

	assert.Equal(t, 3, ft.attempts[0x6E])
	assert.Equal(t, Report{Applied: 3, Retries: 2}, rep)
	assert.Equal(t, []byte{0x35, 0x6E, 0x6E, 0x6E, 0x29}, ft.opcodes())
	assert.Equal(t, 2, sl.count(DefaultBackoff))
}

func TestInterpreterAbortsAfterRetryBudget(t *testing.T) {
	ft, sl := newFakeTransport(), &sleepLog{}
	ft.failAll[0x6F] = true

	s := Script{Delay(5), DCS(0x6E, 0x2B), DCS(0x6F, 0x33), DCS(0x3A, 0xA4), End}
	rep, err := newInterp(ft, sl).Run(s)
	require.Error(t, err)

	var aborted *ScriptAbortedError
	require.True(t, errors.As(err, &aborted))
	assert.Equal(t, 2, aborted.Index)

	var wf *TransportWriteFailedError
	require.True(t, errors.As(err, &wf))
	assert.Equal(t, byte(0x6F), wf.Opcode)
	assert.Equal(t, DefaultAttempts, wf.Attempts)
	assert.ErrorIs(t, err, errLink)

	assert.Equal(t, 2, rep.Applied)
	assert.Equal(t, 3, ft.attempts[0x6F])
	assert.Zero(t, ft.attempts[0x3A], "entries after the failure must not be applied")
}

func TestInterpreterRejectsUnknownKind(t *testing.T) {
	ft := newFakeTransport()
	_, err := newInterp(ft, &sleepLog{}).Run(Script{DCS(0x01), {Kind: 9, Data: []byte{1}}, DCS(0x29)})

	var aborted *ScriptAbortedError
	require.True(t, errors.As(err, &aborted))
	assert.Equal(t, 1, aborted.Index)
	assert.ErrorIs(t, err, ErrInvalidEntry)
	assert.Equal(t, []byte{0x01}, ft.opcodes())
}

func TestInterpreterBuiltinScriptsApplyEveryEntryOnce(t *testing.T) {
	for _, d := range Variants() {
		t.Run(d.ID, func(t *testing.T) {
			ft, sl := newFakeTransport(), &sleepLog{}
			rep, err := newInterp(ft, sl).Run(d.Script)
			require.NoError(t, err)
			assert.Equal(t, d.Script.Len(), rep.Applied)

			var want []op
			for _, e := range d.Script[:d.Script.Len()] {
				if e.Kind == KindWrite {
					want = append(want, op{opcode: e.Opcode(), payload: append([]byte{}, e.Payload()...)})
				}
			}
			assert.Equal(t, want, ft.ops)
		})
	}
}
