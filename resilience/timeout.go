package resilience

import (
	"context"
	"errors"
	"time"
)

// Timeout bounds the duration of a computation.
//
// The computation receives a context that is cancelled at the deadline.
// Execute returns as soon as the deadline passes even if the computation
// ignores its context; its eventual result is discarded.
type Timeout struct {
	limit time.Duration
}

// NewTimeout creates a timeout wrapper. A non-positive limit disables it.
func NewTimeout(limit time.Duration) *Timeout {
	return &Timeout{limit: limit}
}

// Limit returns the configured limit.
func (t *Timeout) Limit() time.Duration {
	return t.limit
}

// Execute runs op with the time limit applied.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	if t.limit <= 0 {
		return op(ctx)
	}

	ctx, cancel := context.WithTimeoutCause(ctx, t.limit, ErrTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(context.Cause(ctx), ErrTimeout) {
			return ErrTimeout
		}
		return err
	case <-ctx.Done():
		if errors.Is(context.Cause(ctx), ErrTimeout) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}
