package distributed

import (
	"context"
	"fmt"
	"time"
)

// Counter is the fixed-window counting capability shared by deployment
// topologies. Implementations must guarantee that for a fixed window
// bucket, the sum of admitted increments across all callers never exceeds
// the limit, regardless of interleaving.
type Counter interface {
	// Increment atomically counts one request for key in the current
	// window bucket and reports whether the resulting count is within
	// limit. The increment that creates a bucket also arms its expiry so
	// stale buckets self-expire after one window.
	//
	// A denied increment still advances the stored count: the count
	// reflects attempts against the bucket, and admission is judged on
	// the returned value, so denied attempts can never displace an
	// admitted one.
	Increment(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// bucketFor returns the fixed window bucket index for a point in time.
func bucketFor(now time.Time, window time.Duration) int64 {
	if window <= 0 {
		return 0
	}
	return now.Unix() / int64(window/time.Second)
}

// bucketKey derives the store key for a window key and bucket index.
func bucketKey(key string, bucket int64) string {
	return fmt.Sprintf("turnstile:ctr:%s:%d", key, bucket)
}
