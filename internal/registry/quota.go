package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// quotaKeyPrefix is the Redis key prefix for paid plugin quota
	// counters.
	quotaKeyPrefix = "leadscout:quota:"

	// quotaKeyTTL keeps daily counters slightly past the UTC day so a
	// late reader never sees a vanished key mid-window.
	quotaKeyTTL = 25 * time.Hour
)

// QuotaCounter tracks paid plugin usage across processes.
type QuotaCounter interface {
	// Consume records one use and reports whether the plugin is still
	// within its limit. The use is counted even when the answer is no,
	// so repeated over-limit attempts stay visible.
	Consume(ctx context.Context, name string, limit int) (bool, error)

	// Exceeded reports whether the plugin is at or over its limit
	// without consuming.
	Exceeded(ctx context.Context, name string, limit int) (bool, error)
}

// RedisQuotaCounter stores per-UTC-day counters in Redis.
type RedisQuotaCounter struct {
	client *redis.Client
}

// NewRedisQuotaCounter creates a Redis-backed quota counter.
func NewRedisQuotaCounter(client *redis.Client) *RedisQuotaCounter {
	return &RedisQuotaCounter{client: client}
}

var _ QuotaCounter = (*RedisQuotaCounter)(nil)

func quotaKey(name string, now time.Time) string {
	return quotaKeyPrefix + name + ":" + now.UTC().Format("2006-01-02")
}

// Consume increments today's counter for the plugin.
func (q *RedisQuotaCounter) Consume(ctx context.Context, name string, limit int) (bool, error) {
	key := quotaKey(name, time.Now())

	count, err := q.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment quota: %w", err)
	}

	if count == 1 {
		if expErr := q.client.Expire(ctx, key, quotaKeyTTL).Err(); expErr != nil {
			return false, fmt.Errorf("failed to set quota expiry: %w", expErr)
		}
	}

	return count <= int64(limit), nil
}

// Exceeded reads today's counter without incrementing.
func (q *RedisQuotaCounter) Exceeded(ctx context.Context, name string, limit int) (bool, error) {
	key := quotaKey(name, time.Now())

	count, err := q.client.Get(ctx, key).Int64()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to read quota: %w", err)
	}

	return count >= int64(limit), nil
}

// NopQuotaCounter always allows. Used when no Redis is configured and
// in tests.
type NopQuotaCounter struct{}

func (NopQuotaCounter) Consume(context.Context, string, int) (bool, error) {
	return true, nil
}

func (NopQuotaCounter) Exceeded(context.Context, string, int) (bool, error) {
	return false, nil
}
