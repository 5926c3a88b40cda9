// Package dispatch provides per-destination delivery clients with bounded
// retry on rate-limiting signals.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Batch summary messages. Callers needing per-destination granularity must
// inspect DispatchResult entries instead.
const (
	SummaryEmptyContent   = "Content is empty"
	SummaryNoChannels     = "Channel not selected"
	SummarySendFailed     = "Message could not be sent"
	SummarySuccess        = "Success"
)

// ErrMaxRetriesExceeded is the terminal error after exhausting rate-limit
// retries. It is never retried further.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// RateLimitError signals that the remote service throttled the request and,
// when provided, how long to wait before retrying.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// RetryPolicy bounds rate-limit retries. Every destination client shares the
// same policy shape; only the parameters differ.
type RetryPolicy struct {
	MaxAttempts  int
	DefaultDelay time.Duration
}

// DefaultRetryPolicy retries rate-limited calls up to 3 attempts total,
// sleeping the server-provided delay (1s when absent).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		DefaultDelay: time.Second,
	}
}

// Do runs op, retrying only on RateLimitError. Non-rate-limit errors surface
// immediately. The final rate-limited attempt returns ErrMaxRetriesExceeded.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}

		var rateLimit *RateLimitError
		if !errors.As(err, &rateLimit) {
			return err
		}

		if attempt >= attempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempts, err)
		}

		delay := rateLimit.RetryAfter
		if delay <= 0 {
			delay = p.DefaultDelay
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
