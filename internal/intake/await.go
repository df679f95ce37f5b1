package intake

import (
	"context"
	"time"
)

// pollFunc is one attempt of a pollable operation. done=true stops polling
// and returns the value; a non-nil error aborts immediately.
type pollFunc[T any] func(ctx context.Context) (value T, done bool, err error)

// awaitWithTimeout runs fn up to maxAttempts times, sleeping interval
// between attempts. It is the one bounded-wait primitive for anything that
// polls: lock acquisition, provider retries, long-running provider jobs.
// Exhausting the budget returns ErrProviderTimeout; context cancellation
// wins over the budget.
func awaitWithTimeout[T any](ctx context.Context, interval time.Duration, maxAttempts int, fn pollFunc[T]) (T, error) {
	var zero T
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		value, done, err := fn(ctx)
		if err != nil {
			return zero, err
		}
		if done {
			return value, nil
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(interval):
		}
	}
	return zero, ErrProviderTimeout
}
