// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package model

import "time"

// AutoApprovePolicy lets the executor skip the operator-approval prompt for
// low-risk, high-confidence findings (spec §6.1, §4.6).
type AutoApprovePolicy struct {
	MaxRiskTier   RiskTier
	MinConfidence float64
}

// Matches reports whether a Finding qualifies for auto-approval under this
// policy.
func (p AutoApprovePolicy) Matches(riskTier RiskTier, confidence float64) bool {
	if p.MaxRiskTier == "" {
		return false
	}
	return !p.MaxRiskTier.Less(riskTier) && confidence >= p.MinConfidence
}

// CollectorOpts holds per-collector configuration, mirroring the knobs in
// spec §6.1's threshold table. Collectors read only the fields relevant to
// them; unused fields default to zero/empty and fall back to documented
// defaults.
type CollectorOpts struct {
	// MinConfidence filters Evidence below this threshold before it ever
	// reaches Fusion.
	MinConfidence float64

	// IncludePatterns / ExcludePatterns restrict collection to matching
	// glob patterns.
	IncludePatterns []string
	ExcludePatterns []string

	// CorePaths are operator-declared globs protected from DELETE (spec
	// §4.4's core-path policy).
	CorePaths []string

	// Thresholds carries every numeric override named in spec §4.1 keyed by
	// name, e.g. "heuristic.god_structure_methods",
	// "similarity.candidate_jaccard", "git_history.staleness_days".
	Thresholds map[string]float64

	// GitRoot is the .git directory root, which may differ from the scan
	// root when scanning a subdirectory.
	GitRoot string

	// Timeout bounds a single collector invocation. Zero means no timeout.
	Timeout time.Duration

	// ProgressFunc is called periodically with status messages during long
	// operations.
	ProgressFunc func(msg string)
}

// ScanConfig holds overall scan configuration (spec §6.1).
type ScanConfig struct {
	// Root is the repository root path to scan.
	Root string

	// Tier is the requested tier (1,2,3). It is recorded as requested;
	// nothing demotes it when tier-2 adapters are absent.
	Tier int

	// Focus names a subset of {code, docs, dependencies, git}. It is copied
	// into the Scan Report; the pipeline does not read it, so it does not
	// change which collectors run (Collectors does).
	Focus []string

	// Collectors lists collector names to run. Empty means all registered.
	Collectors []string

	// CorePaths are globs flagged as core, protecting matching artifacts
	// from DELETE (spec §4.4, §6.1).
	CorePaths []string

	// Exclusions are path globs omitted from every collector.
	Exclusions []string

	// CollectorOpts provides per-collector options keyed by collector name.
	CollectorOpts map[string]CollectorOpts

	// Concurrency is not read by the pipeline: every collector runs in its
	// own goroutine, with no bound on how many run at once.
	Concurrency int

	// ToolTimeout bounds a single tool-adapter subprocess invocation.
	ToolTimeout time.Duration
}
