package admission

import (
	"errors"
	"testing"
	"time"
)

func TestNewPolicyTable_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfgs    map[string]TierPolicyConfig
		wantErr bool
	}{
		{
			name: "valid table",
			cfgs: map[string]TierPolicyConfig{
				"free":    {Limit: 10, WindowSeconds: 60, DailyQuota: 1000},
				"basic":   {Limit: 100, WindowSeconds: 60, DailyQuota: 50000},
				"premium": {Unlimited: true},
			},
		},
		{
			name: "zero window rejected",
			cfgs: map[string]TierPolicyConfig{
				"free": {Limit: 10, WindowSeconds: 0},
			},
			wantErr: true,
		},
		{
			name: "negative window rejected",
			cfgs: map[string]TierPolicyConfig{
				"free": {Limit: 10, WindowSeconds: -60},
			},
			wantErr: true,
		},
		{
			name: "negative limit rejected",
			cfgs: map[string]TierPolicyConfig{
				"free": {Limit: -1, WindowSeconds: 60},
			},
			wantErr: true,
		},
		{
			name: "negative daily quota rejected",
			cfgs: map[string]TierPolicyConfig{
				"free": {Limit: 10, WindowSeconds: 60, DailyQuota: -1},
			},
			wantErr: true,
		},
		{
			name: "missing free tier rejected",
			cfgs: map[string]TierPolicyConfig{
				"basic": {Limit: 100, WindowSeconds: 60},
			},
			wantErr: true,
		},
		{
			name: "zero limit is allowed and means always deny",
			cfgs: map[string]TierPolicyConfig{
				"free": {Limit: 0, WindowSeconds: 60},
			},
		},
		{
			name: "unlimited tier skips window validation",
			cfgs: map[string]TierPolicyConfig{
				"free":    {Limit: 10, WindowSeconds: 60},
				"premium": {Unlimited: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolicyTable(tt.cfgs)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewPolicyTable() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPolicy) {
				t.Errorf("error should wrap ErrInvalidPolicy, got %v", err)
			}
		})
	}
}

func TestPolicyTable_UnknownTierFallsBackToFree(t *testing.T) {
	table := DefaultPolicyTable()

	free := table.PolicyFor(TierFree)
	unknown := table.PolicyFor(Tier("enterprise"))

	if unknown != free {
		t.Errorf("unknown tier policy = %+v, want free policy %+v", unknown, free)
	}
	if unknown.Unlimited {
		t.Error("unknown tier must never resolve to unlimited")
	}
}

func TestDefaultPolicyTable(t *testing.T) {
	table := DefaultPolicyTable()

	free := table.PolicyFor(TierFree)
	if free.Limit != 10 || free.Window != time.Minute || free.DailyQuota != 1000 {
		t.Errorf("unexpected free policy: %+v", free)
	}

	basic := table.PolicyFor(TierBasic)
	if basic.Limit != 100 || basic.DailyQuota != 50000 {
		t.Errorf("unexpected basic policy: %+v", basic)
	}

	if !table.PolicyFor(TierPremium).Unlimited {
		t.Error("premium should be unlimited")
	}
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{"free", TierFree},
		{"basic", TierBasic},
		{"premium", TierPremium},
		{"", TierFree},
		{"gold", TierFree},
		{"PREMIUM", TierFree},
	}

	for _, tt := range tests {
		if got := ParseTier(tt.in); got != tt.want {
			t.Errorf("ParseTier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKeyFor(t *testing.T) {
	if KeyFor("alice", "search") == KeyFor("alice", "upload") {
		t.Error("different resources should derive different keys")
	}
	if KeyFor("alice", "search") == KeyFor("bob", "search") {
		t.Error("different subjects should derive different keys")
	}
	if KeyFor("alice", "search") != KeyFor("alice", "search") {
		t.Error("key derivation must be deterministic")
	}

	// The separator byte keeps "ab"+"c" and "a"+"bc" distinct.
	if KeyFor("ab", "c") == KeyFor("a", "bc") {
		t.Error("subject/resource boundary must be unambiguous")
	}
}
