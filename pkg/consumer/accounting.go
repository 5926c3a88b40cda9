package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const accountingTTL = 48 * time.Hour

// Accounting keeps per-user daily event counters in Redis. Counters are an
// observability aid: Redis being down or absent is a degraded condition,
// never an error surfaced to the consume loop.
type Accounting struct {
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewAccounting connects to Redis by URL. An empty URL or a bad one yields a
// disabled accounting hook that logs and counts nothing.
func NewAccounting(redisURL string, logger *slog.Logger) *Accounting {
	accounting := &Accounting{
		logger: logger.With("module", "accounting"),
		now:    time.Now,
	}

	if redisURL == "" {
		accounting.logger.Info("Redis not configured, event accounting disabled")

		return accounting
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		accounting.logger.Warn("Invalid Redis URL, event accounting disabled", "error", err)

		return accounting
	}

	accounting.client = redis.NewClient(options)

	return accounting
}

// Record bumps the user's counter for today. Failures are logged, not
// returned.
func (a *Accounting) Record(ctx context.Context, userID string) {
	if a.client == nil || userID == "" {
		return
	}

	key := fmt.Sprintf("synapse:events:%s:%s", userID, a.now().Format("2006-01-02"))

	count, err := a.client.Incr(ctx, key).Result()
	if err != nil {
		a.logger.WarnContext(ctx, "Event accounting degraded", "key", key, "error", err)

		return
	}

	// First increment of the day sets the expiry.
	if count == 1 {
		err = a.client.Expire(ctx, key, accountingTTL).Err()
		if err != nil {
			a.logger.WarnContext(ctx, "Failed to set accounting TTL", "key", key, "error", err)
		}
	}
}

// Close releases the Redis connection.
func (a *Accounting) Close() error {
	if a.client == nil {
		return nil
	}

	return a.client.Close()
}
