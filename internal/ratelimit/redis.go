package ratelimit

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed fixed_window.lua
var fixedWindowScript string

// RedisLimiter runs the fixed-window admission check in Redis so the limit is
// shared across application instances. The whole read-modify-write cycle
// executes inside a Lua script, which Redis runs atomically.
//
// Unlike Limiter, admission can fail (network, Redis down); callers decide
// whether to fail open or closed.
type RedisLimiter struct {
	client    *redis.Client
	scriptSHA string
}

// NewRedisLimiter verifies connectivity and preloads the admission script.
func NewRedisLimiter(ctx context.Context, client *redis.Client) (*RedisLimiter, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	sha, err := client.ScriptLoad(pingCtx, fixedWindowScript).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load rate limit script: %w", err)
	}

	return &RedisLimiter{client: client, scriptSHA: sha}, nil
}

// Admit records one request for identifier under cfg. Semantics match
// Limiter.Admit: every call counts, Limited is true once the count exceeds
// the policy.
func (l *RedisLimiter) Admit(ctx context.Context, identifier string, cfg Config) (Result, error) {
	if cfg.Window <= 0 || cfg.MaxRequests <= 0 {
		cfg = Default
	}

	key := "ratelimit:" + bucketKey(identifier, cfg)

	values, err := l.client.EvalSha(ctx, l.scriptSHA, []string{key}, cfg.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(values) != 2 {
		return Result{}, fmt.Errorf("unexpected rate limit script response: %v", values)
	}

	count := int(values[0])
	resetIn := time.Duration(values[1]) * time.Millisecond
	if resetIn <= 0 || resetIn > cfg.Window {
		resetIn = cfg.Window
	}

	return Result{
		Limited: count > cfg.MaxRequests,
		Current: count,
		Limit:   cfg.MaxRequests,
		ResetIn: resetIn,
	}, nil
}
