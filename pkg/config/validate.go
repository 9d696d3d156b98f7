package config

import (
	"fmt"

	"arbiter-hq/turnstile/pkg/admission"
)

// Validate checks the configuration for errors. Tier policies are
// validated by constructing the policy table, so a window of zero or
// negative seconds or a negative limit fails here, at load time.
func Validate(cfg *Config) error {
	if cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address cannot be empty")
	}

	if _, err := admission.NewPolicyTable(cfg.Tiers); err != nil {
		return fmt.Errorf("tiers: %w", err)
	}

	if err := validateScaler(&cfg.Scaler); err != nil {
		return err
	}

	switch cfg.Store.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("store.backend must be \"redis\" or \"memory\", got %q", cfg.Store.Backend)
	}

	switch admission.FailureMode(cfg.Store.FailureMode) {
	case admission.FailClosed, admission.FailOpen:
	default:
		return fmt.Errorf("store.failure_mode must be %q or %q, got %q",
			admission.FailClosed, admission.FailOpen, cfg.Store.FailureMode)
	}

	if cfg.Store.Backend == "redis" && cfg.Store.Redis.Addr == "" {
		return fmt.Errorf("store.redis.addr cannot be empty when store.backend is \"redis\"")
	}
	if cfg.Store.Redis.Timeout < 0 {
		return fmt.Errorf("store.redis.timeout cannot be negative")
	}

	switch cfg.Quota.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("quota.backend must be \"sqlite\" or \"memory\", got %q", cfg.Quota.Backend)
	}
	if cfg.Quota.Backend == "sqlite" && cfg.Quota.SQLitePath == "" {
		return fmt.Errorf("quota.sqlite_path cannot be empty when quota.backend is \"sqlite\"")
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level must be one of debug, info, warn, error; got %q",
			cfg.Telemetry.Logging.Level)
	}

	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format must be \"json\" or \"text\", got %q",
			cfg.Telemetry.Logging.Format)
	}

	return nil
}

func validateScaler(s *ScalerConfig) error {
	if s.HighThreshold <= 0 || s.ElevatedThreshold <= 0 {
		return fmt.Errorf("scaler thresholds must be > 0")
	}
	if s.ElevatedThreshold >= s.HighThreshold {
		return fmt.Errorf("scaler.elevated_threshold (%v) must be below scaler.high_threshold (%v)",
			s.ElevatedThreshold, s.HighThreshold)
	}
	if s.HighFactor <= 0 || s.HighFactor > 1 {
		return fmt.Errorf("scaler.high_factor must be in (0, 1], got %v", s.HighFactor)
	}
	if s.ElevatedFactor <= 0 || s.ElevatedFactor > 1 {
		return fmt.Errorf("scaler.elevated_factor must be in (0, 1], got %v", s.ElevatedFactor)
	}
	if s.HighFactor > s.ElevatedFactor {
		return fmt.Errorf("scaler.high_factor (%v) must not exceed scaler.elevated_factor (%v)",
			s.HighFactor, s.ElevatedFactor)
	}
	if s.CacheTTL < 0 {
		return fmt.Errorf("scaler.cache_ttl cannot be negative")
	}
	return nil
}
