package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"arbiter-hq/turnstile/pkg/admission"
	"arbiter-hq/turnstile/pkg/admission/distributed"
	"arbiter-hq/turnstile/pkg/admission/load"
	"arbiter-hq/turnstile/pkg/admission/quota"
	"arbiter-hq/turnstile/pkg/admission/window"
	"arbiter-hq/turnstile/pkg/config"
	"arbiter-hq/turnstile/pkg/server"
	"arbiter-hq/turnstile/pkg/storage"
	"arbiter-hq/turnstile/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watch         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Turnstile guard server",
	Long: `Start the guard server with the specified configuration.

The server listens on the configured address and evaluates admission
decisions via POST /v1/check.

Examples:
  # Start with default config
  turnstile run

  # Start with custom config
  turnstile run --config /etc/turnstile/config.yaml

  # Override listen address
  turnstile run --listen 0.0.0.0:8080

  # Validate config without starting server
  turnstile run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", true, "reload tier policies on config file changes")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if _, err := logging.Setup(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	}); err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Shared counter store
	counter, cleanupCounter, err := buildCounter(cfg)
	if err != nil {
		return err
	}
	defer cleanupCounter()

	// Quota persistence
	backend, err := buildQuotaBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	quotaTracker := quota.NewTracker()
	if records, err := backend.LoadQuota(ctx); err != nil {
		slog.Warn("failed to restore quota snapshot, starting fresh", "error", err)
	} else if len(records) > 0 {
		quotaTracker.Restore(records)
		slog.Info("quota snapshot restored", "records", len(records))
	}

	policies, err := admission.NewPolicyTable(cfg.Tiers)
	if err != nil {
		return fmt.Errorf("invalid tier policies: %w", err)
	}

	scaler := load.NewScaler(load.Config{
		HighThreshold:     cfg.Scaler.HighThreshold,
		HighFactor:        cfg.Scaler.HighFactor,
		ElevatedThreshold: cfg.Scaler.ElevatedThreshold,
		ElevatedFactor:    cfg.Scaler.ElevatedFactor,
		CacheTTL:          cfg.Scaler.CacheTTL,
	}, load.NewProcSampler())

	slidingLog := window.NewSlidingLog()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine := admission.NewEngine(admission.EngineOptions{
		Policies:    policies,
		Counter:     counter,
		Scaler:      scaler,
		Quota:       quotaTracker,
		Window:      slidingLog,
		Metrics:     admission.NewMetrics(registry),
		FailureMode: admission.FailureMode(cfg.Store.FailureMode),
	})

	// Maintenance sweeper
	sweeper := admission.NewSweeper(admission.SweeperConfig{
		Schedule:      cfg.Quota.SweepSchedule,
		IdleWindowTTL: cfg.Quota.IdleWindowTTL,
	}, quotaTracker, slidingLog, backend)
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}
	defer sweeper.Stop()

	// Policy hot reload
	if runFlags.watch {
		watcher, err := config.NewWatcher(cfgFile, 0)
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		go func() {
			err := watcher.Watch(ctx, func(newCfg *config.Config) {
				table, err := admission.NewPolicyTable(newCfg.Tiers)
				if err != nil {
					slog.Error("rejected reloaded tier policies", "error", err)
					return
				}
				engine.ReloadPolicies(table)
			})
			if err != nil {
				slog.Error("config watcher exited", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	srv := server.NewServer(cfg, engine, registry)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	// Persist the final quota state so restarts carry the day's usage.
	if err := backend.SaveQuota(context.Background(), quotaTracker.Snapshot()); err != nil {
		slog.Error("failed to persist quota snapshot on shutdown", "error", err)
	}

	return nil
}

// buildCounter constructs the shared window counter from configuration.
func buildCounter(cfg *config.Config) (distributed.Counter, func(), error) {
	switch cfg.Store.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		counter, err := distributed.NewRedisCounter(client, distributed.RedisCounterConfig{
			Timeout: cfg.Store.Redis.Timeout,
		})
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to initialize redis counter: %w", err)
		}
		slog.Info("using redis counter store", "addr", cfg.Store.Redis.Addr)
		return counter, func() { _ = client.Close() }, nil

	case "memory":
		slog.Info("using in-process counter store; limits are per instance")
		return distributed.NewMemoryCounter(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
}

// buildQuotaBackend constructs the quota snapshot store from configuration.
func buildQuotaBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Quota.Backend {
	case "sqlite":
		backend, err := storage.NewSQLiteBackend(cfg.Quota.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open quota store: %w", err)
		}
		slog.Info("using sqlite quota store", "path", cfg.Quota.SQLitePath)
		return backend, nil

	case "memory":
		return storage.NewMemoryBackend(), nil

	default:
		return nil, fmt.Errorf("unsupported quota backend: %s", cfg.Quota.Backend)
	}
}
