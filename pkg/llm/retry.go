package llm

import (
	"context"
	"fmt"
	"time"
)

const (
	// MaxInvocationAttempts bounds retries for one logical model call.
	MaxInvocationAttempts = 3

	// invocationBackoff is multiplied by the attempt number between tries.
	invocationBackoff = 500 * time.Millisecond
)

// Invoke runs one logical model invocation with bounded retries and a
// linearly growing backoff. Cancellation is honored before every
// attempt and during the backoff wait. The last error is wrapped once
// the attempts are exhausted.
func Invoke(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < MaxInvocationAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * invocationBackoff):
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("after %d attempts: %w", MaxInvocationAttempts, lastErr)
}
