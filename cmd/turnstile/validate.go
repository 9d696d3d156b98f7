package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"arbiter-hq/turnstile/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load, default, and validate a configuration file without starting
the server. Environment variable overrides are applied before validation,
so the result reflects what "turnstile run" would actually use.

Examples:
  # Validate the default config file
  turnstile validate

  # Validate a specific file
  turnstile validate --config /etc/turnstile/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}

	fmt.Println("✓ Configuration valid")
	fmt.Printf("  listen address: %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  tiers:          %d\n", len(cfg.Tiers))
	fmt.Printf("  store backend:  %s (%s)\n", cfg.Store.Backend, cfg.Store.FailureMode)
	fmt.Printf("  quota backend:  %s\n", cfg.Quota.Backend)
	return nil
}
