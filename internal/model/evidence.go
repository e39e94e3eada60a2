// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

// Package model defines the core domain types shared by every stage of the
// bloat-auditor pipeline: Evidence, Finding, ScanReport, and the
// RemediationTransaction written by the executor. These are plain value
// types, immutable once constructed, so Fusion (internal/fusion) can reason
// about them without locking.
package model

// Source identifies which collector produced a piece of Evidence.
type Source string

const (
	SourceHeuristic      Source = "heuristic"
	SourceGitHistory      Source = "git_history"
	SourceStaticAnalysis  Source = "static_analysis"
	SourceSimilarity      Source = "similarity"
	SourceDependency      Source = "dependency"
)

// Evidence is a single signal about one artifact (or, for similarity groups,
// about every artifact in the group). Evidence is immutable once created.
type Evidence struct {
	// ArtifactID is artifact.Artifact.ID() of the subject artifact.
	ArtifactID string `json:"artifact_id"`

	// Source names the collector that produced this Evidence.
	Source Source `json:"source"`

	// SignalKind names the specific signal, e.g. "stale", "unused_import",
	// "zero_references", "near_duplicate", "large_function",
	// "tight_coupling", "complete_guide_pattern", "unused_dependency".
	SignalKind string `json:"signal_kind"`

	// Weight is this Evidence item's contribution to the noisy-OR score,
	// in [0,1].
	Weight float64 `json:"weight"`

	// Confidence is how certain the producing collector is that this signal
	// is real, in [0,1].
	Confidence float64 `json:"confidence"`

	// Observed carries signal-specific structured data behind a closed,
	// tagged union (see observed.go) so Fusion never needs a type switch
	// over collector-specific payloads.
	Observed ObservedValue `json:"observed_value"`

	// DetectorVersion identifies the collector/adapter version that produced
	// this Evidence, used for cache keys and reproducibility.
	DetectorVersion string `json:"detector_version"`

	// Partial marks Evidence produced by a tool adapter that timed out or
	// otherwise only partially completed analysis. Partial evidence incurs
	// the confidence penalty in fusion's scoring formula.
	Partial bool `json:"partial,omitempty"`
}
