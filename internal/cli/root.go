// Package cli implements the engine command-line interface using Cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "purfacted",
	Short: "Purfacted — reputation-weighted consensus engine",
	Long: `Purfacted runs the consensus engine of the fact-verification platform:
trust scoring, weighted vote aggregation, quorum reviews, moderator
elections, and ban escalation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
