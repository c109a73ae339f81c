package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisTokenAllowScript counts a hit and starts the window on the first one.
// ARGV[1] is the window in milliseconds.
var redisTokenAllowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

type redisTokenRateLimiter struct {
	client redis.Scripter
	logger *zap.Logger
	window time.Duration
	max    int
	prefix string
}

// NewRedisTokenRateLimiter shares the counters between processes. Keys live
// under prefix + "token:rl:". The script is sent once and then run by its
// SHA1.
func NewRedisTokenRateLimiter(client *redis.Client, logger *zap.Logger, prefix string, window time.Duration, max int) TokenRateLimiter {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisTokenRateLimiter{
		client: client,
		logger: logger,
		window: window,
		max:    max,
		prefix: prefix + "token:rl:",
	}
}

// Allow fails open when redis is unreachable.
func (l *redisTokenRateLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	normalizedKey := normalizeLimiterKey(key)
	if normalizedKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	windowMs := l.window.Milliseconds()
	if windowMs <= 0 {
		windowMs = time.Minute.Milliseconds()
	}
	count, err := redisTokenAllowScript.Run(ctx, l.client, []string{l.prefix + normalizedKey}, windowMs).Int64()
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("token rate limiter unavailable, allowing", zap.String("key", normalizedKey), zap.Error(err))
		}
		return true
	}
	return count <= int64(l.max)
}
