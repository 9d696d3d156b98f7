package admission

import (
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Tier is a named class of subject with an associated policy.
type Tier string

const (
	// TierFree is the default tier with the most restrictive policy.
	TierFree Tier = "free"

	// TierBasic is the paid tier with relaxed limits.
	TierBasic Tier = "basic"

	// TierPremium is the unlimited tier; all checks are bypassed.
	TierPremium Tier = "premium"
)

// ParseTier maps a tier name to a Tier. Unknown or malformed values resolve
// to TierFree so that a bad tier claim never grants unlimited access.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierFree, TierBasic, TierPremium:
		return Tier(s)
	default:
		return TierFree
	}
}

// Reason explains why a request was denied.
type Reason string

const (
	// ReasonDistributedLimit means the fleet-wide window counter was exhausted.
	ReasonDistributedLimit Reason = "distributed_limit"

	// ReasonQuotaExceeded means the daily quota for the subject is spent.
	ReasonQuotaExceeded Reason = "quota_exceeded"

	// ReasonWindowExceeded means the local sliding window is full.
	ReasonWindowExceeded Reason = "window_exceeded"

	// ReasonStoreUnavailable means the shared store could not be reached and
	// the engine is configured to fail closed.
	ReasonStoreUnavailable Reason = "store_unavailable"
)

// Decision is the outcome of an admission check.
// It carries data only; mapping to a transport response (429, Retry-After)
// is the caller's responsibility.
type Decision struct {
	// Allowed indicates if the request is permitted.
	Allowed bool `json:"allowed"`

	// Reason explains the denial (empty when Allowed=true).
	Reason Reason `json:"reason,omitempty"`

	// RetryAfter suggests how long to wait before retrying, derived from
	// the window that caused the denial. Zero if no hint is available.
	RetryAfter time.Duration `json:"retry_after,omitempty"`

	// EffectiveLimit is the load-adjusted window limit applied to the check.
	EffectiveLimit int `json:"effective_limit,omitempty"`
}

// WindowKey addresses all per-subject-resource state.
type WindowKey uint64

// KeyFor derives the WindowKey for a subject and resource pair.
func KeyFor(subject, resource string) WindowKey {
	d := xxhash.New()
	_, _ = d.WriteString(subject)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(resource)
	return WindowKey(d.Sum64())
}

// String renders the key in the fixed-width form used for store keys.
func (k WindowKey) String() string {
	return fmt.Sprintf("%016x", uint64(k))
}

// Error values for admission configuration and runtime failures.
var (
	// ErrStoreUnavailable is returned when the shared store cannot be
	// reached within the configured timeout.
	ErrStoreUnavailable = errors.New("shared store unavailable")

	// ErrInvalidPolicy is returned when a tier policy fails validation.
	ErrInvalidPolicy = errors.New("invalid tier policy")
)
