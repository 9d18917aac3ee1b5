package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout runs fn with a context that expires after timeout and returns
// as soon as either fn finishes or the deadline passes. An expired deadline
// is reported as context.DeadlineExceeded; fn keeps running in the background
// until it observes its context. A non-positive timeout runs fn directly.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%s: %w after %v", name, context.DeadlineExceeded, timeout)
		}
		return fmt.Errorf("%s: %w", name, ctx.Err())
	}
}
