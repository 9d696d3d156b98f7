package distributed

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed fixed_window.lua
var fixedWindowScript string

// RedisCounter implements Counter against a shared Redis instance.
//
// The increment and the conditional expiry run inside one Lua script, so
// the operation is atomic as seen by the store: no instance ever performs
// a separate read-then-write, and the bucket's TTL is armed exactly once,
// by whichever instance creates it.
type RedisCounter struct {
	client    redis.UniversalClient
	scriptSHA string

	// timeout bounds each store round trip. A timeout is reported as an
	// error and never retried within the same admission decision.
	timeout time.Duration
}

// RedisCounterConfig configures the Redis counter.
type RedisCounterConfig struct {
	// Timeout bounds each increment round trip.
	// Default: 100ms
	Timeout time.Duration
}

// NewRedisCounter creates a counter backed by the given client. The fixed
// window script is loaded eagerly so that a bad connection surfaces at
// startup rather than on the first admission check.
func NewRedisCounter(client redis.UniversalClient, cfg RedisCounterConfig) (*RedisCounter, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 100 * time.Millisecond
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	sha, err := client.ScriptLoad(ctx, fixedWindowScript).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load fixed window script: %w", err)
	}

	return &RedisCounter{
		client:    client,
		scriptSHA: sha,
		timeout:   cfg.Timeout,
	}, nil
}

// Increment atomically counts one request and reports whether the bucket
// count is within limit.
func (r *RedisCounter) Increment(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	bucket := bucketFor(time.Now(), window)
	ttl := int64(window / time.Second)

	count, err := r.client.EvalSha(ctx, r.scriptSHA, []string{bucketKey(key, bucket)}, ttl).Int64()
	if err != nil {
		return false, fmt.Errorf("fixed window increment failed: %w", err)
	}

	return count <= int64(limit), nil
}
