// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/athola/auditor/internal/render"
	"github.com/athola/auditor/internal/reportstore"
)

// Report-specific flag values.
var (
	reportScanID   string
	reportOutput   string
	reportFormat   string
	reportStoreDir string
)

var reportCmd = &cobra.Command{
	Use:   "report [path]",
	Short: "Render a previously written Scan Report",
	Long: `Report reads a Scan Report from the report store and renders it. With no
--scan-id, the most recently written report is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportScanID, "scan-id", "", "scan ID to read (default: most recent)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "output file path (default: stdout)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "table", "output format: table, json, or markdown")
	reportCmd.Flags().StringVar(&reportStoreDir, "store-dir", "", "report store directory (default: <path>/.auditor/reports)")
}

func runReport(cmd *cobra.Command, args []string) error {
	repoPath := "."
	if len(args) > 0 {
		repoPath = args[0]
	}
	absPath, err := resolveRepoPath(repoPath)
	if err != nil {
		return exitError(ExitInvalidArgs, "auditor: %v", err)
	}

	storeDir := reportStoreDir
	if storeDir == "" {
		storeDir = filepath.Join(absPath, ".auditor", "reports")
	}
	store, err := reportstore.New(storeDir)
	if err != nil {
		return exitError(ExitTotalFailure, "auditor: opening report store (%v)", err)
	}

	scanID := reportScanID
	if scanID == "" {
		ids, listErr := store.ListBackups()
		if listErr != nil {
			return exitError(ExitTotalFailure, "auditor: listing reports (%v)", listErr)
		}
		if len(ids) == 0 {
			return exitError(ExitInvalidArgs, "auditor: no reports found in %s", storeDir)
		}
		scanID = ids[0]
	}

	report, err := store.Read(scanID)
	if err != nil {
		return exitError(ExitTotalFailure, "auditor: reading report (%v)", err)
	}

	w := cmd.OutOrStdout()
	if reportOutput != "" {
		f, createErr := os.Create(reportOutput) //nolint:gosec // user-specified output path
		if createErr != nil {
			return exitError(ExitTotalFailure, "auditor: cannot create output file %q (%v)", reportOutput, createErr)
		}
		defer f.Close() //nolint:errcheck // best-effort close on output file
		w = f
	}

	if err := render.Report(report, reportFormat, w); err != nil {
		return exitError(ExitInvalidArgs, "auditor: %v", err)
	}
	return nil
}
