package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "turnstile",
	Short: "Turnstile - admission control for multi-tenant services",
	Long: `Turnstile is an admission-control layer that decides, per request,
whether a subject may proceed.

Each decision combines:
  - Tier policy lookup (free, basic, premium)
  - Fleet-wide fixed-window counting over a shared store
  - Load-adaptive limit scaling from system load
  - UTC-daily quota tracking
  - Local sliding-window throttling`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
