// Package optimistic runs a local mutation ahead of the remote write that
// backs it, and undoes the mutation when the write fails or times out.
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is wrapped by WriteError when the remote write did not settle
// within the runner timeout.
var ErrTimeout = errors.New("remote write timed out")

// WriteError reports a failed remote write.  By the time it is returned the
// local mutation has already been compensated.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: remote write failed: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// IsWriteError reports whether err is (or wraps) a WriteError.
func IsWriteError(err error) bool {
	var wErr *WriteError
	return errors.As(err, &wErr)
}

// Op is one optimistic operation.  Apply and Compensate must be synchronous
// and must not fail; Attempt performs the remote write.
type Op struct {
	Name       string
	Apply      func()
	Attempt    func(ctx context.Context) error
	Compensate func()
}

// Runner executes operations with a bound on the remote write.
type Runner struct {
	// Timeout bounds Attempt.  Zero means no bound beyond ctx.
	Timeout time.Duration
}

// Run applies op locally, attempts the remote write and compensates on
// failure.  A write that ignores its context still cannot hold the caller
// past the timeout: expiry takes the compensation path and later completion
// of the abandoned write is discarded.
func (r Runner) Run(ctx context.Context, op Op) error {
	if op.Apply != nil {
		op.Apply()
	}
	if op.Attempt == nil {
		return nil
	}

	attemptCtx := ctx
	cancel := func() {}
	if r.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, r.Timeout)
	}
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op.Attempt(attemptCtx) }()

	var err error
	select {
	case err = <-done:
	case <-attemptCtx.Done():
		err = attemptCtx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimeout
		}
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		err = fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if op.Compensate != nil {
		op.Compensate()
	}
	return &WriteError{Op: op.Name, Err: err}
}
