package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mobilid/pkg/platform/clock"
)

const keyPrefix = "mobilid:ratelimit:"

// allowScript trims the window, then records cost members if they fit.
// Returns {allowed, count, oldest_ms}.
var allowScript = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local cost   = tonumber(ARGV[3])
local limit  = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count + cost <= limit then
  for i = 1, cost do
    redis.call('ZADD', key, now, member .. ':' .. i)
  end
  count = count + cost
  allowed = 1
  redis.call('PEXPIRE', key, window)
end
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldestScore = now
if oldest[2] then oldestScore = tonumber(oldest[2]) end
return {allowed, count, oldestScore}
`)

// RedisStore shares windows across replicas using one sorted set per key.
type RedisStore struct {
	client *redis.Client
	clock  clock.Clock
}

func NewRedisStore(client *redis.Client, c clock.Clock) *RedisStore {
	if c == nil {
		c = clock.Real()
	}
	return &RedisStore{client: client, clock: c}
}

func (s *RedisStore) AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (Result, error) {
	now := s.clock.Now()
	raw, err := allowScript.Run(ctx, s.client, []string{keyPrefix + key},
		now.UnixMilli(), window.Milliseconds(), cost, limit, uuid.NewString()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if len(raw) != 3 {
		return Result{}, fmt.Errorf("rate limit %s: unexpected reply of %d values", key, len(raw))
	}

	resetAt := time.UnixMilli(raw[2]).Add(window)
	res := Result{Limit: limit, ResetAt: resetAt}
	if raw[0] == 1 {
		res.Allowed = true
		res.Remaining = limit - int(raw[1])
		return res, nil
	}
	res.RetryAfter = retryAfter(resetAt, now)
	return res, nil
}

func (s *RedisStore) Count(ctx context.Context, key string, window time.Duration) (int, error) {
	cutoff := strconv.FormatInt(s.clock.Now().Add(-window).UnixMilli(), 10)
	n, err := s.client.ZCount(ctx, keyPrefix+key, "("+cutoff, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", key, err)
	}
	return int(n), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("reset %s: %w", key, err)
	}
	return nil
}
