// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/spf13/cobra"

	auditorlog "github.com/athola/auditor/internal/log"
)

// Global flag values.
var (
	verbose bool
	quiet   bool
	noColor bool
)

// rootCmd is the base command for auditor.
var rootCmd = &cobra.Command{
	Use:   "auditor",
	Short: "Find and safely remove bloat from a repository",
	Long: `Auditor scans a repository for dead code, near-duplicate files, stale
documentation, and unused dependencies, scores what it finds with corroborating
evidence from multiple collectors, and — with an operator in the loop — applies
the safest remediation for each finding through a reversible, verified state
machine.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		auditorlog.Setup(verbose, quiet)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(remediateCmd)
	rootCmd.AddCommand(versionCmd)
}
