// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/athola/auditor/internal/audit"
	"github.com/athola/auditor/internal/config"
	"github.com/athola/auditor/internal/executor"
	"github.com/athola/auditor/internal/model"
	"github.com/athola/auditor/internal/reportstore"
	"github.com/athola/auditor/internal/vcs"
	"github.com/athola/auditor/internal/verifier"
)

// Remediate-specific flag values.
var (
	remediateScanID        string
	remediateStoreDir      string
	remediateYes           bool
	remediateVerifySteps   string
	remediateVerifyTimeout string
	remediateArchivePrefix string
	remediateAbortOnFail   bool
)

var remediateCmd = &cobra.Command{
	Use:   "remediate [path]",
	Short: "Apply the remediations in a Scan Report, with an operator approving each one",
	Long: `Remediate walks a Scan Report's Findings in risk order, asking the operator
to approve, skip, or abort each one. Every applied change is backed up to a
reversible snapshot, then verified before being committed; a failed
verification is rolled back automatically. Use --yes to auto-approve every
finding without prompting (dangerous outside of a scripted, reviewed policy).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRemediate,
}

func init() {
	remediateCmd.Flags().StringVar(&remediateScanID, "scan-id", "", "scan ID to remediate (default: most recent)")
	remediateCmd.Flags().StringVar(&remediateStoreDir, "store-dir", "", "report store directory (default: <path>/.auditor/reports)")
	remediateCmd.Flags().BoolVar(&remediateYes, "yes", false, "auto-approve every finding without prompting")
	remediateCmd.Flags().StringVar(&remediateVerifySteps, "verify", "go build ./...,go test ./...", "comma-separated verification commands")
	remediateCmd.Flags().StringVar(&remediateVerifyTimeout, "verify-timeout", "", "per-step verification timeout (e.g. 5m)")
	remediateCmd.Flags().StringVar(&remediateArchivePrefix, "archive-prefix", "", "directory ARCHIVE recommendations move files under")
	remediateCmd.Flags().BoolVar(&remediateAbortOnFail, "abort-on-verify-failure", false, "halt the session on the first failed verification (that finding is still rolled back) instead of continuing")
}

func runRemediate(cmd *cobra.Command, args []string) error {
	repoPath := "."
	if len(args) > 0 {
		repoPath = args[0]
	}
	absPath, err := resolveRepoPath(repoPath)
	if err != nil {
		return exitError(ExitInvalidArgs, "auditor: %v", err)
	}

	storeDir := remediateStoreDir
	if storeDir == "" {
		storeDir = filepath.Join(absPath, ".auditor", "reports")
	}
	store, err := reportstore.New(storeDir)
	if err != nil {
		return exitError(ExitTotalFailure, "auditor: opening report store (%v)", err)
	}

	scanID := remediateScanID
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

	repo, err := vcs.Open(absPath)
	if err != nil {
		return exitError(ExitInvalidArgs, "auditor: %v", err)
	}

	fileCfg, err := config.Load(absPath)
	if err != nil {
		return exitError(ExitInvalidArgs, "auditor: failed to load %s (%v)", config.FileName, err)
	}
	autoApprovePolicy := config.MergeAutoApprove(fileCfg)

	verifyTimeout := verifier.DefaultTimeout
	if remediateVerifyTimeout != "" {
		if d, perr := time.ParseDuration(remediateVerifyTimeout); perr == nil {
			verifyTimeout = d
		}
	}
	v := verifier.NewDefaultVerifier(parseVerifySteps(remediateVerifySteps), verifyTimeout)

	auditLogPath := filepath.Join(absPath, ".auditor", "audit.jsonl")
	auditLog, err := audit.Open(auditLogPath)
	if err != nil {
		return exitError(ExitTotalFailure, "auditor: opening audit log (%v)", err)
	}
	defer auditLog.Close() //nolint:errcheck // best-effort close

	var requester executor.DecisionRequester = interactiveApprover{}
	if remediateYes {
		requester = executor.AutoApprove
	}

	archivePrefix := remediateArchivePrefix
	if archivePrefix == "" {
		archivePrefix = fileCfg.ArchivePrefix
	}
	opts := executor.Options{
		CorePaths:            fileCfg.CorePaths,
		ArchivePrefix:        archivePrefix,
		AbortOnVerifyFailure: remediateAbortOnFail,
	}
	if autoApprovePolicy.MaxRiskTier != "" {
		opts.AutoApprove = func(finding model.Finding) bool {
			return autoApprovePolicy.Matches(finding.RiskTier, finding.Confidence)
		}
	}

	ex := executor.New(repo, v, requester, auditLog, opts)

	slog.Info("remediating", "scan_id", scanID, "findings", len(report.Findings))
	result, err := ex.RunSession(cmd.Context(), report)
	if err != nil {
		return exitError(ExitTotalFailure, "auditor: remediation session failed (%v)", err)
	}

	slog.Info("remediation complete", "applied", countOutcome(result, model.OutcomeApplied),
		"rolled_back", countOutcome(result, model.OutcomeRolledBack),
		"skipped", countOutcome(result, model.OutcomeSkippedByOperator)+countOutcome(result, model.OutcomeSkippedStale))
	return nil
}

func parseVerifySteps(csv string) []verifier.Command {
	var steps []verifier.Command
	for _, raw := range strings.Split(csv, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			continue
		}
		steps = append(steps, verifier.Command{Name: fields[0], Args: fields[1:]})
	}
	return steps
}

func countOutcome(result executor.Result, outcome model.RemediationOutcome) int {
	count := 0
	for _, tx := range result.Transactions {
		if tx.Outcome == outcome {
			count++
		}
	}
	return count
}
