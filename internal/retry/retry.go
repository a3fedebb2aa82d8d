package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy describes a bounded retry: how many attempts, how long to wait
// between them, and which failures are worth retrying at all.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool // multiply Delay by the attempt number
	// Retryable reports whether the error is transient. A nil predicate
	// treats every error as retryable.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, the policy is exhausted, a non-retryable
// error occurs, or the context is cancelled.
func Do(ctx context.Context, p Policy, fn func() error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			return fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
		}

		delay := p.Delay
		if p.Backoff {
			delay = time.Duration(attempt) * p.Delay
		}

		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
