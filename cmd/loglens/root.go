package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "loglens",
	Short: "Discover, normalize, and analyze AI coding agent sessions",
	Long: `Loglens finds session logs written by Claude Code, Codex, Cline,
OpenCode, and pi on the local machine, converts them into one canonical
transcript shape, and reports usage, cost, and session health.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
