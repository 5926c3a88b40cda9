package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, DefaultDelay: 10 * time.Millisecond}
	attempts := 0

	err := policy.Do(context.Background(), func() error {
		attempts++

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoRetriesRateLimitWithServerDelay(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, DefaultDelay: time.Second}
	attempts := 0
	start := time.Now()

	err := policy.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &RateLimitError{RetryAfter: 20 * time.Millisecond}
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestDoTerminalAfterMaxRateLimitedAttempts(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, DefaultDelay: time.Millisecond}
	attempts := 0

	err := policy.Do(context.Background(), func() error {
		attempts++

		return &RateLimitError{RetryAfter: time.Millisecond}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.Equal(t, 3, attempts)
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, DefaultDelay: time.Millisecond}
	attempts := 0
	boom := errors.New("invalid token")

	err := policy.Do(context.Background(), func() error {
		attempts++

		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.Equal(t, 1, attempts)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, DefaultDelay: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()

	err := policy.Do(ctx, func() error {
		return &RateLimitError{}
	})

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
