// Package retry provides bounded retry with exponential backoff, used at
// the transport boundary only.
package retry

import (
	"context"
	"time"
)

type Strategy struct {
	Attempts int
	Delay    time.Duration
	Backoff  int
}

// Do runs fn up to s.Attempts times, multiplying the delay by s.Backoff
// between attempts. Returns the last error, or ctx.Err() if the context
// ends first.
func (s Strategy) Do(ctx context.Context, fn func() error) error {
	attempts := s.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := s.Backoff
	if backoff < 1 {
		backoff = 1
	}

	delay := s.Delay
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= time.Duration(backoff)
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
	}
	return lastErr
}
