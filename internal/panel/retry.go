package panel

import "time"

const (
	// DefaultAttempts is the total number of tries per command. A controller
	// that has not recovered after the second failure usually never does.
	DefaultAttempts = 3
	// DefaultBackoff is the wait after each failed try.
	DefaultBackoff = 120 * time.Millisecond
)

// RetryPolicy runs an operation a bounded number of times with a fixed
// back-off after every failure.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	// Sleep defaults to time.Sleep.
	Sleep func(time.Duration)
}

// DefaultRetry returns the policy used for every transport write.
func DefaultRetry() RetryPolicy {
	return RetryPolicy{Attempts: DefaultAttempts, Backoff: DefaultBackoff, Sleep: time.Sleep}
}

// Do calls op until it succeeds or the budget is spent, returning the
// number of calls made and the last error.
func (p RetryPolicy) Do(op func() error) (int, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var err error
	for n := 1; n <= attempts; n++ {
		if err = op(); err == nil {
			return n, nil
		}
		sleep(p.Backoff)
	}
	return attempts, err
}

// Write retries a single register write and reports exhaustion as a
// *TransportWriteFailedError.
func (p RetryPolicy) Write(opcode byte, write func() error) error {
	n, err := p.Do(write)
	if err != nil {
		return &TransportWriteFailedError{Opcode: opcode, Attempts: n, Err: err}
	}
	return nil
}
