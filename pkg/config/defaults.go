package config

import (
	"time"

	"arbiter-hq/turnstile/pkg/admission"
)

// ApplyDefaults fills in default values for any unset fields.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = "127.0.0.1:8484"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	// Tier defaults: the built-in table, used when the file names none.
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = map[string]admission.TierPolicyConfig{
			string(admission.TierFree):    {Limit: 10, WindowSeconds: 60, DailyQuota: 1000},
			string(admission.TierBasic):   {Limit: 100, WindowSeconds: 60, DailyQuota: 50000},
			string(admission.TierPremium): {Unlimited: true},
		}
	}

	// Scaler defaults
	if cfg.Scaler.HighThreshold == 0 {
		cfg.Scaler.HighThreshold = 0.9
	}
	if cfg.Scaler.HighFactor == 0 {
		cfg.Scaler.HighFactor = 0.5
	}
	if cfg.Scaler.ElevatedThreshold == 0 {
		cfg.Scaler.ElevatedThreshold = 0.7
	}
	if cfg.Scaler.ElevatedFactor == 0 {
		cfg.Scaler.ElevatedFactor = 0.7
	}

	// Store defaults
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if cfg.Store.FailureMode == "" {
		cfg.Store.FailureMode = string(admission.FailClosed)
	}
	if cfg.Store.Redis.Addr == "" {
		cfg.Store.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.Store.Redis.Timeout == 0 {
		cfg.Store.Redis.Timeout = 100 * time.Millisecond
	}

	// Quota defaults
	if cfg.Quota.Backend == "" {
		cfg.Quota.Backend = "memory"
	}
	if cfg.Quota.SQLitePath == "" {
		cfg.Quota.SQLitePath = "./turnstile-quota.db"
	}
	if cfg.Quota.SweepSchedule == "" {
		cfg.Quota.SweepSchedule = "*/5 * * * *"
	}
	if cfg.Quota.IdleWindowTTL == 0 {
		cfg.Quota.IdleWindowTTL = time.Hour
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = "/metrics"
	}
}

// DefaultConfig returns a fully defaulted configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}
