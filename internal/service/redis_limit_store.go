package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/repurpost/oauth-service/pkg/database"
)

// incrementScript bumps the counter and arms the window expiry on the first
// hit, in a single atomic step. Returns the count and remaining TTL in ms.
var incrementScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// RedisLimitStore is a shared store for multi-instance deployments. Atomicity
// comes from Redis running the Lua script single-threaded per key.
type RedisLimitStore struct {
	redis *database.Redis
}

// NewRedisLimitStore creates a Redis-backed limit store
func NewRedisLimitStore(redis *database.Redis) *RedisLimitStore {
	return &RedisLimitStore{redis: redis}
}

// Increment implements LimitStore
func (s *RedisLimitStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	result, err := incrementScript.Run(ctx, s.redis.Client, []string{redisKey}, window.Milliseconds()).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected rate limit script result: %v", result)
	}

	count, ok := values[0].(int64)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("unexpected rate limit count: %v", values[0])
	}

	ttlMs, ok := values[1].(int64)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("unexpected rate limit ttl: %v", values[1])
	}
	if ttlMs < 0 {
		// PTTL returns -1 for keys without expiry; treat as a full window
		ttlMs = window.Milliseconds()
	}

	resetAt := time.Now().Add(time.Duration(ttlMs) * time.Millisecond)
	return count, resetAt, nil
}

// Reset implements LimitStore
func (s *RedisLimitStore) Reset(ctx context.Context, key string) error {
	redisKey := fmt.Sprintf("ratelimit:%s", key)
	if err := s.redis.Client.Del(ctx, redisKey).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit counter: %w", err)
	}
	return nil
}
