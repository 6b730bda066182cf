package shopee

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces a per-integration request budget over rolling minute
// and hour windows, backed by Redis counters so limits hold across processes.
// When a window is exhausted the caller is deferred until it rolls over,
// never failed.
type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{redis: client}
}

// Wait blocks until the integration may send one more request, then consumes
// one slot in both windows. Returns early only when ctx is cancelled.
func (l *RateLimiter) Wait(ctx context.Context, integrationID string, perMinute, perHour int) error {
	for {
		now := time.Now().UTC()

		okMinute, waitMinute, err := l.take(ctx, minuteKey(integrationID, now), perMinute, time.Minute, now.Truncate(time.Minute))
		if err != nil {
			return err
		}
		if okMinute {
			okHour, waitHour, err := l.take(ctx, hourKey(integrationID, now), perHour, time.Hour, now.Truncate(time.Hour))
			if err != nil {
				return err
			}
			if okHour {
				return nil
			}
			// The minute slot was consumed but the hour window is full;
			// the slot is not returned, which only makes the limiter
			// slightly more conservative.
			waitMinute = waitHour
		}

		slog.Info("rate limit reached, deferring request",
			"integration_id", integrationID, "wait", waitMinute)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitMinute):
		}
	}
}

// take increments the window counter, creating it with a TTL on first use.
// Returns whether a slot was available and, if not, how long until the
// window resets.
func (l *RateLimiter) take(ctx context.Context, key string, limit int, window time.Duration, windowStart time.Time) (bool, time.Duration, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		// Expire a little after the window so a slow clock never strands
		// the counter.
		if err := l.redis.Expire(ctx, key, window+5*time.Second).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to set rate limit TTL: %w", err)
		}
	}
	if count <= int64(limit) {
		return true, 0, nil
	}
	return false, time.Until(windowStart.Add(window)), nil
}

func minuteKey(integrationID string, now time.Time) string {
	return fmt.Sprintf("shopee:ratelimit:%s:minute:%d", integrationID, now.Unix()/60)
}

func hourKey(integrationID string, now time.Time) string {
	return fmt.Sprintf("shopee:ratelimit:%s:hour:%d", integrationID, now.Unix()/3600)
}
