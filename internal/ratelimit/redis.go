package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindow increments the counter and sets its expiry on the first hit
// only, so the window does not slide.  Returns {count, pttl_ms}.
var fixedWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {n, redis.call('PTTL', KEYS[1])}
`)

// RedisLimiter is a fixed-window limiter shared across processes.
type RedisLimiter struct {
	client redis.UniversalClient
	policy Policy
	prefix string
}

func NewRedisLimiter(client redis.UniversalClient, p Policy, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "gatekeeper:ratelimit:"
	}
	return &RedisLimiter{client: client, policy: p, prefix: prefix}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	vals, err := fixedWindow.Run(ctx, l.client,
		[]string{l.prefix + key}, l.policy.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("redis rate limit %s: %w", key, err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("redis rate limit %s: unexpected reply %v", key, vals)
	}

	count := int(vals[0])
	left := time.Duration(vals[1]) * time.Millisecond
	if left <= 0 {
		left = l.policy.Window
	}

	res := Result{
		Allowed: count <= l.policy.Limit,
		Limit:   l.policy.Limit,
		ResetAt: time.Now().Add(left),
	}
	if res.Allowed {
		res.Remaining = l.policy.Limit - count
	}
	return res, nil
}
