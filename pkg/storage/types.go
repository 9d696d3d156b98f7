package storage

import (
	"context"
	"time"

	"arbiter-hq/turnstile/pkg/admission/quota"
)

// Backend defines the interface for quota snapshot persistence.
// Implementations must be thread-safe and support concurrent access.
type Backend interface {
	// SaveQuota persists a full snapshot of today's quota records,
	// replacing any previous snapshot for the same day.
	SaveQuota(ctx context.Context, records []quota.Record) error

	// LoadQuota retrieves the most recent snapshot. Returns an empty
	// slice if no snapshot exists.
	LoadQuota(ctx context.Context) ([]quota.Record, error)

	// Cleanup removes records last written before the given time.
	// Returns the number of records deleted.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases any resources held by the backend.
	Close() error
}
