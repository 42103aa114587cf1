package panel

import (
	"errors"
	"fmt"
)

var (
	ErrRegulatorUnavailable    = errors.New("panel: power regulator unavailable")
	ErrInvalidResetHandle      = errors.New("panel: invalid reset handle")
	ErrOrientationLookupFailed = errors.New("panel: orientation lookup failed")
	ErrUnknownVariant          = errors.New("panel: unknown variant")
	ErrInvalidTransition       = errors.New("panel: invalid lifecycle transition")
)

// TransportWriteFailedError is returned once a write has used up its retry
// budget.
type TransportWriteFailedError struct {
	Opcode   byte
	Attempts int
	Err      error
}

func (e *TransportWriteFailedError) Error() string {
	return fmt.Sprintf("panel: write 0x%02X failed after %d attempts: %v", e.Opcode, e.Attempts, e.Err)
}

func (e *TransportWriteFailedError) Unwrap() error { return e.Err }

// ScriptAbortedError names the script entry that stopped a replay.
type ScriptAbortedError struct {
	Index int
	Err   error
}

func (e *ScriptAbortedError) Error() string {
	return fmt.Sprintf("panel: script aborted at entry %d: %v", e.Index, e.Err)
}

func (e *ScriptAbortedError) Unwrap() error { return e.Err }

// TransitionError rejects a lifecycle call made from the wrong state.
type TransitionError struct {
	Op   string
	From State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("panel: %s not allowed from %s", e.Op, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
