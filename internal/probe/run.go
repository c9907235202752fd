package probe

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// runGuarded runs fn with a deadline. Errors, panics and deadline expiry are
// all returned as errors; fn is abandoned, not killed, when it overruns.
func runGuarded(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: %v", ErrProbePanic, r)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrProbeTimeout, timeout)
		}
		return ctx.Err()
	}
}
