package services

import (
	"context"
	"time"

	"github.com/desertthunder/windsync/internal/shared"
)

// Default retry policy for transient remote errors.
const (
	DefaultRetryAttempts  = 3
	DefaultRetryBaseDelay = 2 * time.Second
)

// Do runs fn up to attempts times, sleeping baseDelay before the first retry
// and doubling the delay on each subsequent one. Only transient errors
// (per [shared.IsTransient]) are retried; fatal errors and context
// cancellation return immediately. Returns the last error when the attempt
// ceiling is exhausted.
func Do(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultRetryBaseDelay
	}

	var err error
	delay := baseDelay
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if err = fn(); err == nil {
			return nil
		}
		if !shared.IsTransient(err) {
			return err
		}
	}
	return err
}
