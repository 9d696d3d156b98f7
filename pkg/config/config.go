package config

import (
	"time"

	"arbiter-hq/turnstile/pkg/admission"
)

// Config is the root configuration structure for Turnstile.
type Config struct {
	// Server contains the HTTP guard server configuration.
	Server ServerConfig `yaml:"server"`

	// Tiers maps tier names to their admission policies.
	Tiers map[string]admission.TierPolicyConfig `yaml:"tiers"`

	// Scaler contains load-adaptive scaling thresholds and factors.
	Scaler ScalerConfig `yaml:"scaler"`

	// Store contains the shared counter store configuration.
	Store StoreConfig `yaml:"store"`

	// Quota contains quota snapshot persistence and sweep settings.
	Quota QuotaConfig `yaml:"quota"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP guard server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8484"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ScalerConfig contains load-adaptive scaler settings.
type ScalerConfig struct {
	// HighThreshold is the load ratio above which HighFactor applies.
	// Default: 0.9
	HighThreshold float64 `yaml:"high_threshold"`

	// HighFactor scales limits under heavy load.
	// Default: 0.5
	HighFactor float64 `yaml:"high_factor"`

	// ElevatedThreshold is the load ratio above which ElevatedFactor applies.
	// Default: 0.7
	ElevatedThreshold float64 `yaml:"elevated_threshold"`

	// ElevatedFactor scales limits under elevated load.
	// Default: 0.7
	ElevatedFactor float64 `yaml:"elevated_factor"`

	// CacheTTL caches the sampled factor between decisions.
	// Default: 0 (sample every decision)
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// StoreConfig contains the shared counter store configuration.
type StoreConfig struct {
	// Backend selects the counter implementation.
	// Options: "redis" (multi-instance), "memory" (single instance).
	// Default: "memory"
	Backend string `yaml:"backend"`

	// FailureMode selects behavior when the store is unreachable.
	// Options: "fail_closed" (default), "fail_open".
	FailureMode string `yaml:"failure_mode"`

	// Redis contains connection settings when Backend is "redis".
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	// Default: "127.0.0.1:6379"
	Addr string `yaml:"addr"`

	// Password authenticates the connection. Empty for no auth.
	Password string `yaml:"password"`

	// DB selects the logical database.
	// Default: 0
	DB int `yaml:"db"`

	// Timeout bounds each counter round trip.
	// Default: 100ms
	Timeout time.Duration `yaml:"timeout"`
}

// QuotaConfig contains quota persistence and sweep settings.
type QuotaConfig struct {
	// Backend selects the snapshot store.
	// Options: "memory" (default), "sqlite".
	Backend string `yaml:"backend"`

	// SQLitePath is the database file when Backend is "sqlite".
	// Default: "./turnstile-quota.db"
	SQLitePath string `yaml:"sqlite_path"`

	// SweepSchedule is a cron expression for maintenance runs.
	// Empty disables sweeping. Default: "*/5 * * * *"
	SweepSchedule string `yaml:"sweep_schedule"`

	// IdleWindowTTL is how long idle sliding-log keys are retained.
	// Default: 1h
	IdleWindowTTL time.Duration `yaml:"idle_window_ttl"`
}

// TelemetryConfig contains logging and metrics configuration.
type TelemetryConfig struct {
	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled controls whether /metrics is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
