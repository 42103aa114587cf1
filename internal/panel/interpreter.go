package panel

import (
	"fmt"
	"time"

	appLog "mtpanel/internal/log"
)

// Report summarizes one script replay.
type Report struct {
	// Applied counts entries that completed.
	Applied int
	// Retries counts failed write attempts that were retried or gave up.
	Retries int
}

// Interpreter replays command scripts through a PageRouter.
type Interpreter struct {
	Router *PageRouter
	// Name tags log lines.
	Name string
}

// Run executes s in order up to its sentinel. Writes that fail are retried
// per the router's policy; exhausting it aborts the replay with a
// *ScriptAbortedError. Already-applied writes are not undone.
func (in *Interpreter) Run(s Script) (Report, error) {
	var rep Report
	policy := in.Router.Retry
	sleep := policy.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	for i, e := range s {
		if e.IsSentinel() {
			break
		}

		switch e.Kind {
		case KindDelay:
			sleep(time.Duration(e.Data[0]) * time.Millisecond)

		case KindWrite:
			attempt := 0
			err := policy.Write(e.Opcode(), func() error {
				attempt++
				err := in.Router.Write(e.Opcode(), e.Payload())
				if err != nil {
					rep.Retries++
					appLog.Debug("dcs write failed", "panel", in.Name, "index", i,
						"opcode", fmt.Sprintf("0x%02X", e.Opcode()), "attempt", attempt, "err", err)
				}
				return err
			})
			if err != nil {
				appLog.Error("script aborted", err, "panel", in.Name, "index", i)
				return rep, &ScriptAbortedError{Index: i, Err: err}
			}

		default:
			return rep, &ScriptAbortedError{Index: i, Err: fmt.Errorf("%s: %w", e.Kind, ErrInvalidEntry)}
		}
		rep.Applied++
	}
	return rep, nil
}
