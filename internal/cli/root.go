// Package cli implements the parlor command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parlor",
	Short: "Custodial wagering settlement engine",
	Long: `Parlor is a custodial settlement engine for signature-authorized wagers.
It tracks each wager from creation to a terminal outcome, keeps the treasury
counters consistent with the wager set in a single transaction, and verifies
typed-data signatures from the trusted arbiter key.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
