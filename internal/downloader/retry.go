package downloader

import (
	"context"
	"time"
)

// Retrier re-runs an operation with exponential backoff between failures.
type Retrier struct {
	// Attempts is the total number of attempts, clamped to at least 1.
	Attempts int

	// Backoff is the delay before the second attempt; attempt n waits
	// Backoff << (n-1) after failing.
	Backoff time.Duration

	// MaxBackoff caps the delay between attempts. Zero means uncapped.
	MaxBackoff time.Duration

	// OnRetry, when set, is called after a failed attempt that will be
	// retried, with the attempt number, the computed delay, and the error.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Run invokes fn until it returns nil or attempts are exhausted. fn
// receives the 1-based attempt number. The final attempt's error is
// returned as-is; a context cancelled during backoff returns ctx.Err().
// The backoff sleep suspends only this call, never sibling goroutines.
func (r Retrier) Run(ctx context.Context, fn func(attempt int) error) error {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		delay := r.delay(attempt)
		if r.OnRetry != nil {
			r.OnRetry(attempt, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	return lastErr
}

// delay computes the backoff after the given failed attempt.
func (r Retrier) delay(attempt int) time.Duration {
	delay := r.Backoff << uint(attempt-1)
	if r.MaxBackoff > 0 && delay > r.MaxBackoff {
		delay = r.MaxBackoff
	}
	return delay
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
