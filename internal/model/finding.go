// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package model

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// Severity bands the bloat_score per spec §4.3.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// RiskTier classifies how safe a remediation action is to apply, distinct
// from scored Severity (spec glossary).
type RiskTier string

const (
	RiskLow    RiskTier = "LOW"
	RiskMedium RiskTier = "MEDIUM"
	RiskHigh   RiskTier = "HIGH"
)

// riskOrder gives RiskTier a total order for "raise one tier" / sort-by-tier
// operations (spec §4.4 core-path policy, §4.6 applied-order).
var riskOrder = map[RiskTier]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2}

// Less reports whether r sorts before other (lower risk first).
func (r RiskTier) Less(other RiskTier) bool { return riskOrder[r] < riskOrder[other] }

// RaiseOneTier returns the next tier up, saturating at HIGH.
func (r RiskTier) RaiseOneTier() RiskTier {
	switch r {
	case RiskLow:
		return RiskMedium
	case RiskMedium:
		return RiskHigh
	default:
		return RiskHigh
	}
}

// Recommendation is the Finding Aggregator's actionable verdict.
type Recommendation string

const (
	RecommendDelete      Recommendation = "DELETE"
	RecommendRefactor    Recommendation = "REFACTOR"
	RecommendConsolidate Recommendation = "CONSOLIDATE"
	RecommendArchive     Recommendation = "ARCHIVE"
	RecommendKeep        Recommendation = "KEEP"
)

// downgradeOneStep implements the core-path policy's "downgrade
// recommendation one step; never DELETE" rule (spec §4.4).
var downgradeOneStep = map[Recommendation]Recommendation{
	RecommendDelete:      RecommendRefactor,
	RecommendConsolidate: RecommendArchive,
	RecommendRefactor:    RecommendArchive,
	RecommendArchive:     RecommendKeep,
	RecommendKeep:        RecommendKeep,
}

// Downgrade returns the next-safer recommendation, used when a Finding's
// primary artifact matches an operator-declared core path.
func (r Recommendation) Downgrade() Recommendation {
	if d, ok := downgradeOneStep[r]; ok {
		return d
	}
	return RecommendKeep
}

// ConfidenceBand classifies a [0,1] confidence score (spec §4.3).
func ConfidenceBand(confidence float64) string {
	switch {
	case confidence >= 0.80:
		return "HIGH"
	case confidence >= 0.60:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// SeverityBand classifies a [0,100] bloat score (spec §4.3).
func SeverityBand(score float64) Severity {
	switch {
	case score >= 80:
		return SeverityHigh
	case score >= 60:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Finding is an aggregated, scored, actionable recommendation for one
// artifact or one similarity group (spec §3).
type Finding struct {
	// ID is a deterministic hash of (scan_id, artifact(s), dominant
	// signal_kind) — see ComputeFindingID.
	ID string `json:"finding_id"`

	// PrimaryArtifactID is the artifact this Finding is keyed on: the
	// artifact of the fused Score it was built from. Each member of a
	// similarity group gets its own Finding; no member is marked canonical.
	PrimaryArtifactID string `json:"primary_artifact_id"`

	// PrimaryArtifactHash is the scan-time content hash of the primary
	// artifact. The executor recomputes this hash at remediation time and
	// compares; a mismatch means the Finding is STALE (spec §3's staleness
	// invariant).
	PrimaryArtifactHash string `json:"primary_artifact_hash"`

	// AffectedArtifacts lists every artifact the Finding covers. For a
	// single-artifact Finding this is the same one-element list as
	// PrimaryArtifactID.
	AffectedArtifacts []string `json:"affected_artifacts"`

	// BloatScore is in [0,100].
	BloatScore float64 `json:"bloat_score"`

	// Confidence is in [0,1].
	Confidence float64 `json:"confidence"`

	// Severity is derived from BloatScore.
	Severity Severity `json:"severity"`

	// RiskTier classifies how safe the Recommendation is to apply.
	RiskTier RiskTier `json:"risk_tier"`

	// Recommendation is the aggregator's verdict.
	Recommendation Recommendation `json:"recommendation"`

	// EstimatedTokenImpact is artifact size/4 by default, or an
	// adapter-provided override (spec §4.4).
	EstimatedTokenImpact int `json:"estimated_token_impact"`

	// Evidence backing this Finding. Invariant: len(Evidence) >= 1.
	Evidence []Evidence `json:"evidence"`

	// DominantSignalKind is the SignalKind contributing the largest
	// weight*confidence product, used for FindingID stability and for
	// picking the decision-table row in internal/aggregator.
	DominantSignalKind string `json:"dominant_signal_kind"`

	// Rationale is a short human-readable explanation.
	Rationale string `json:"rationale"`
}

// DistinctSources returns the number of distinct Evidence sources backing
// this Finding — the numerator of the corroboration formula (spec §4.3).
func (f Finding) DistinctSources() int {
	seen := map[Source]bool{}
	for _, e := range f.Evidence {
		seen[e.Source] = true
	}
	return len(seen)
}

// ComputeFindingID derives the stable finding_id from scanID, the sorted set
// of affected artifact IDs, and the dominant signal kind. Two scans of an
// identical tree with identical evidence produce the identical ID modulo
// scanID, matching spec §3's determinism invariant applied at the Finding
// level.
func ComputeFindingID(scanID string, artifactIDs []string, dominantSignalKind string) string {
	sorted := append([]string(nil), artifactIDs...)
	sort.Strings(sorted)
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%s\x00%s\x00%s", scanID, strings.Join(sorted, "\x01"), dominantSignalKind)
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}
