package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/launchrank/pkg/errors"
)

// WithTimeout runs fn under a deadline of timeout (none when timeout <= 0).
// fn must honour its context; WithTimeout waits for it to return. An error
// caused by the deadline, rather than by the parent context, is wrapped
// with errors.ErrTimeout.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(deadlineCtx)
	if err == nil || ctx.Err() != nil {
		return err
	}
	if errors.Is(deadlineCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w after %v: %w", name, apperrors.ErrTimeout, timeout, err)
	}
	return err
}
