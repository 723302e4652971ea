package repository

import (
	"context"
	"fmt"
	"time"

	tokenserrors "clinicq/internal/tokens/errors"
	"clinicq/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "token"

type redisCounter struct {
	rdb redis.Cmdable
	ttl time.Duration
	log *logger.Logger
}

// NewRedisCounter keeps one key per hospital and day. Keys expire after ttl
// so old days do not accumulate.
func NewRedisCounter(rdb redis.Cmdable, ttl time.Duration, log *logger.Logger) Counter {
	return &redisCounter{rdb: rdb, ttl: ttl, log: log}
}

func RedisKey(hospitalID, dayKey string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, hospitalID, dayKey)
}

func (c *redisCounter) Increment(ctx context.Context, hospitalID, dayKey string) (int64, error) {
	key := RedisKey(hospitalID, dayKey)

	value, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: incr %s: %w", tokenserrors.ErrCounterUnavailable, key, err)
	}

	if value == 1 {
		// The value already landed; a failed expire only leaves the key
		// without a TTL, so it is not reported as a counter failure.
		if err := c.rdb.Expire(ctx, key, c.ttl).Err(); err != nil {
			c.log.Warn("Failed to set token key expiry", "key", key, "error", err)
		}
	}
	return value, nil
}
