package panel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRouterSendsEverySelect(t *testing.T) {
	ft := newFakeTransport()
	r := &PageRouter{T: ft, Retry: RetryPolicy{Attempts: 3, Sleep: (&sleepLog{}).sleep}}

	require.NoError(t, r.SelectPage(0x04))
	require.NoError(t, r.Write(0x6E, []byte{0x2B}))
	require.NoError(t, r.SelectPage(0x01))
	require.NoError(t, r.Write(0x22, []byte{0x30}))

	assert.Equal(t, []op{
		{opcode: 0xFF, payload: []byte{0x98, 0x81, 0x04}},
		{opcode: 0x6E, payload: []byte{0x2B}},
		{opcode: 0xFF, payload: []byte{0x98, 0x81, 0x01}},
		{opcode: 0x22, payload: []byte{0x30}},
	}, ft.ops)
}

func TestPageRouterRepeatsIdenticalSelects(t *testing.T) {
	ft := newFakeTransport()
	r := &PageRouter{T: ft, Retry: RetryPolicy{Attempts: 1}}

	require.NoError(t, r.SelectPage(0x00))
	require.NoError(t, r.SelectPage(0x00))
	assert.Len(t, ft.ops, 2)
}

func TestPageRouterSelectRetries(t *testing.T) {
	ft, sl := newFakeTransport(), &sleepLog{}
	ft.failAll[CmdSwitchPage] = true
	r := &PageRouter{T: ft, Retry: RetryPolicy{Attempts: 3, Backoff: DefaultBackoff, Sleep: sl.sleep}}

	err := r.SelectPage(0x00)
	var wf *TransportWriteFailedError
	require.True(t, errors.As(err, &wf))
	assert.Equal(t, CmdSwitchPage, wf.Opcode)
	assert.Equal(t, 3, wf.Attempts)
	assert.Equal(t, 3, ft.attempts[CmdSwitchPage])
}

func TestPageRouterWriteIsSingleShot(t *testing.T) {
	ft := newFakeTransport()
	ft.failAll[0x22] = true
	r := &PageRouter{T: ft, Retry: RetryPolicy{Attempts: 3, Sleep: (&sleepLog{}).sleep}}

	assert.ErrorIs(t, r.Write(0x22, []byte{0x30}), errLink)
	assert.Equal(t, 1, ft.attempts[0x22])
}
