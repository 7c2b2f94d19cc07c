// Package cli implements the cuprecap command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cuprecap",
	Short: "Coffee-shop year in review and reward redemption",
	Long: `cuprecap turns customer order history into an annual report, maps a
customer's rank to a reward tier, and records reward redemptions on this device.

Configuration is read from config.yaml (or $CONFIG_PATH, YAML or TOML) and
environment variables.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
