package supervisor

import (
	"context"
	"fmt"
	"time"
)

// Backoff retries an operation with exponentially increasing delays.
// It is shared by the stale-sweep restart path and start-time retries.
type Backoff struct {
	// Base is the delay before the second attempt; it doubles per attempt.
	Base time.Duration

	// MaxAttempts bounds the total number of attempts.
	MaxAttempts int
}

// Retry runs op until it succeeds, attempts are exhausted, or ctx is canceled.
func (b Backoff) Retry(ctx context.Context, op func() error) error {
	attempts := b.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := b.Base
	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("after %d attempt(s): %w", attempts, err)
}
