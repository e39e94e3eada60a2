// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/athola/auditor/internal/aggregator"
	"github.com/athola/auditor/internal/analysis"
	"github.com/athola/auditor/internal/collector"
	"github.com/athola/auditor/internal/collectors"
	"github.com/athola/auditor/internal/config"
	"github.com/athola/auditor/internal/fusion"
	"github.com/athola/auditor/internal/llm"
	"github.com/athola/auditor/internal/model"
	"github.com/athola/auditor/internal/pipeline"
	"github.com/athola/auditor/internal/render"
	"github.com/athola/auditor/internal/reportstore"
	"github.com/athola/auditor/internal/scanstate"
)

// Scan-specific flag values.
var (
	scanTier        int
	scanFocus       string
	scanCollectors  string
	scanExclusions  string
	scanCorePaths   string
	scanOutput      string
	scanFormat      string
	scanStoreDir    string
	scanDelta       bool
	scanCollectorTO string
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a repository and write a Scan Report",
	Long: `Scan runs every configured collector against the repository, fuses their
evidence into scored Findings, and writes a self-contained Scan Report to the
report store. Use --delta to only show Findings newly introduced since the
last scan.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTier, "tier", 0, "scan tier 1-3 (default: repo config or 1)")
	scanCmd.Flags().StringVar(&scanFocus, "focus", "", "comma-separated focus areas: code, docs, dependencies, git")
	scanCmd.Flags().StringVarP(&scanCollectors, "collectors", "c", "", "comma-separated list of collectors to run")
	scanCmd.Flags().StringVarP(&scanExclusions, "exclude", "x", "", "comma-separated path globs to exclude")
	scanCmd.Flags().StringVar(&scanCorePaths, "core-paths", "", "comma-separated path globs protected from DELETE")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "output file path (default: stdout)")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "table", "output format: table, json, or markdown")
	scanCmd.Flags().StringVar(&scanStoreDir, "store-dir", "", "report store directory (default: <path>/.auditor/reports)")
	scanCmd.Flags().BoolVar(&scanDelta, "delta", false, "only report Findings newly introduced since the last scan")
	scanCmd.Flags().StringVar(&scanCollectorTO, "collector-timeout", "", "per-collector timeout (e.g. 60s, 2m)")
}

func runScan(cmd *cobra.Command, args []string) error {
	repoPath := "."
	if len(args) > 0 {
		repoPath = args[0]
	}
	absPath, err := resolveRepoPath(repoPath)
	if err != nil {
		return exitError(ExitInvalidArgs, "auditor: %v", err)
	}

	fileCfg, err := config.Load(absPath)
	if err != nil {
		return exitError(ExitInvalidArgs, "auditor: failed to load %s (%v)", config.FileName, err)
	}
	if err := config.Validate(fileCfg); err != nil {
		return exitError(ExitInvalidArgs, "auditor: %v", err)
	}

	cliCfg := model.ScanConfig{Root: absPath, Tier: scanTier}
	if scanFocus != "" {
		cliCfg.Focus = splitCSV(scanFocus)
	}
	if scanCollectors != "" {
		cliCfg.Collectors = splitCSV(scanCollectors)
	}
	if scanExclusions != "" {
		cliCfg.Exclusions = splitCSV(scanExclusions)
	}
	if scanCorePaths != "" {
		cliCfg.CorePaths = splitCSV(scanCorePaths)
	}
	if scanCollectorTO != "" {
		if d, perr := time.ParseDuration(scanCollectorTO); perr == nil {
			cliCfg.ToolTimeout = d
		}
	}

	scanCfg := config.Merge(fileCfg, cliCfg)
	if scanCfg.Tier == 0 {
		scanCfg.Tier = 1
	}

	p, err := pipeline.New(scanCfg, slog.Default())
	if err != nil {
		available := collector.List()
		sort.Strings(available)
		return exitError(ExitInvalidArgs, "auditor: %v (available: %s)", err, strings.Join(available, ", "))
	}

	slog.Info("scanning", "path", absPath, "tier", scanCfg.Tier)
	run, err := p.Run(cmd.Context())
	if err != nil {
		return exitError(ExitTotalFailure, "auditor: scan failed (%v)", err)
	}

	scores := fusion.Fuse(run.Evidence)
	findings := aggregator.Aggregate(scores, run.Artifacts, aggregator.Options{CorePaths: scanCfg.CorePaths})

	// Clustering is an enrichment, not a requirement: no ANTHROPIC_API_KEY
	// means EnrichRationale is called with a nil Provider and falls back to
	// the unmodified findings.
	var clusterProvider llm.Provider
	if provider, provErr := llm.NewAnthropicProvider(); provErr == nil {
		clusterProvider = provider
	} else {
		slog.Debug("llm clustering disabled", "reason", provErr)
	}
	findings = analysis.EnrichRationale(cmd.Context(), findings, clusterProvider)

	var prevState *scanstate.State
	if scanDelta {
		prevState, err = scanstate.Load(absPath)
		if err != nil {
			slog.Warn("failed to load previous scan state", "error", err)
		}
		if prevState != nil {
			findings = scanstate.FilterNew(findings, prevState)
		}
	}

	storeDir := scanStoreDir
	if storeDir == "" {
		storeDir = filepath.Join(absPath, ".auditor", "reports")
	}
	store, err := reportstore.New(storeDir)
	if err != nil {
		return exitError(ExitTotalFailure, "auditor: opening report store (%v)", err)
	}

	report := model.ScanReport{
		SchemaVersion: model.SchemaVersion,
		ScanID:        reportstore.NewScanID(),
		ScanTimestamp: time.Now(),
		Tier:          scanCfg.Tier,
		Focus:         scanCfg.Focus,
		Findings:      findings,
	}
	for _, rr := range run.Results {
		mergeToolAvailability(&report, rr)
	}

	digest, err := store.Write(report)
	if err != nil {
		return exitError(ExitTotalFailure, "auditor: writing report (%v)", err)
	}
	report.ConfigurationDigest = digest

	newState := scanstate.Build(absPath, findings)
	if err := scanstate.Save(absPath, newState); err != nil {
		slog.Warn("failed to persist scan state", "error", err)
	}

	w := cmd.OutOrStdout()
	if scanOutput != "" {
		f, createErr := os.Create(scanOutput) //nolint:gosec // user-specified output path
		if createErr != nil {
			return exitError(ExitTotalFailure, "auditor: cannot create output file %q (%v)", scanOutput, createErr)
		}
		defer f.Close() //nolint:errcheck // best-effort close on output file
		w = f
	}
	if err := render.Report(report, scanFormat, w); err != nil {
		return exitError(ExitInvalidArgs, "auditor: %v", err)
	}

	slog.Info("scan complete", "findings", len(findings), "scan_id", report.ScanID)
	if len(run.Results) > 0 {
		failed := 0
		for _, rr := range run.Results {
			if rr.Err != nil {
				failed++
			}
		}
		if failed == len(run.Results) {
			return exitError(ExitTotalFailure, "")
		}
		if failed > 0 {
			return exitError(ExitPartialFailure, "")
		}
	}
	return nil
}

func mergeToolAvailability(report *model.ScanReport, rr pipeline.RunResult) {
	m, ok := rr.Metrics.(*collectors.StaticAnalysisMetrics)
	if !ok {
		return
	}
	if report.ToolAvailability == nil {
		report.ToolAvailability = make(map[string]model.ToolAvailability)
	}
	for k, v := range m.Availability {
		report.ToolAvailability[k] = v
	}
}

// resolveRepoPath resolves repoPath to an absolute, symlink-evaluated
// directory path.
func resolveRepoPath(repoPath string) (string, error) {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path %q (%v)", repoPath, err)
	}
	absPath, err = filepath.EvalSymlinks(absPath)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path %q (%v)", repoPath, err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("path %q does not exist", repoPath)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%q is not a directory", repoPath)
	}
	return absPath, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
