package admission

import (
	"fmt"
	"time"
)

// Policy is the derived limit set for a tier.
//
// A Policy is a pure function of the tier: it is never stored per subject
// and carries no mutable state.
type Policy struct {
	// Limit is the maximum requests per Window. Ignored when Unlimited.
	Limit int

	// Window is the throttle window duration.
	Window time.Duration

	// DailyQuota is the coarser per-day cap. Ignored when Unlimited.
	DailyQuota int

	// Unlimited marks the policy as always satisfied (PREMIUM).
	Unlimited bool
}

// PolicyTable maps tiers to their policies.
//
// The table is immutable after construction; hot reload swaps the whole
// table atomically rather than mutating entries in place.
type PolicyTable struct {
	policies map[Tier]Policy
}

// TierPolicyConfig is the configuration shape for a single tier.
type TierPolicyConfig struct {
	// Limit is the maximum requests per window. Must be >= 0.
	Limit int `yaml:"limit"`

	// WindowSeconds is the throttle window in seconds. Must be > 0 unless
	// the tier is unlimited.
	WindowSeconds int `yaml:"window_seconds"`

	// DailyQuota is the per-day request cap. Zero means no daily quota.
	// Must be >= 0.
	DailyQuota int `yaml:"daily_quota"`

	// Unlimited bypasses all checks for the tier.
	Unlimited bool `yaml:"unlimited"`
}

// NewPolicyTable builds a policy table from per-tier configuration.
//
// Validation is strict: a window of zero or negative seconds or a negative
// limit is a configuration error and is rejected here, at load time, never
// at request time. A FREE tier entry is required because it is the fail-safe
// fallback for unknown tiers.
func NewPolicyTable(cfgs map[string]TierPolicyConfig) (*PolicyTable, error) {
	policies := make(map[Tier]Policy, len(cfgs))

	for name, cfg := range cfgs {
		tier := Tier(name)
		if cfg.Unlimited {
			policies[tier] = Policy{Unlimited: true}
			continue
		}
		if cfg.WindowSeconds <= 0 {
			return nil, fmt.Errorf("%w: tier %q: window_seconds must be > 0, got %d",
				ErrInvalidPolicy, name, cfg.WindowSeconds)
		}
		if cfg.Limit < 0 {
			return nil, fmt.Errorf("%w: tier %q: limit must be >= 0, got %d",
				ErrInvalidPolicy, name, cfg.Limit)
		}
		if cfg.DailyQuota < 0 {
			return nil, fmt.Errorf("%w: tier %q: daily_quota must be >= 0, got %d",
				ErrInvalidPolicy, name, cfg.DailyQuota)
		}
		policies[tier] = Policy{
			Limit:      cfg.Limit,
			Window:     time.Duration(cfg.WindowSeconds) * time.Second,
			DailyQuota: cfg.DailyQuota,
		}
	}

	if _, ok := policies[TierFree]; !ok {
		return nil, fmt.Errorf("%w: missing required %q tier", ErrInvalidPolicy, TierFree)
	}

	return &PolicyTable{policies: policies}, nil
}

// DefaultPolicyTable returns the built-in tier policies used when no
// configuration is supplied.
func DefaultPolicyTable() *PolicyTable {
	table, err := NewPolicyTable(map[string]TierPolicyConfig{
		string(TierFree):    {Limit: 10, WindowSeconds: 60, DailyQuota: 1000},
		string(TierBasic):   {Limit: 100, WindowSeconds: 60, DailyQuota: 50000},
		string(TierPremium): {Unlimited: true},
	})
	if err != nil {
		// The built-in table is statically valid.
		panic(err)
	}
	return table
}

// PolicyFor returns the policy for a tier. Unknown tiers resolve to the
// FREE policy, never to unlimited.
func (t *PolicyTable) PolicyFor(tier Tier) Policy {
	if p, ok := t.policies[tier]; ok {
		return p
	}
	return t.policies[TierFree]
}
