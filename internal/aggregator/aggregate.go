// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

// Package aggregator implements the Finding Aggregator (spec §4.4): it
// turns internal/fusion's per-Artifact Scores into actionable model.Finding
// values via the decision table, enforces the core-path policy, and
// estimates token impact.
package aggregator

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/athola/auditor/internal/artifact"
	"github.com/athola/auditor/internal/fusion"
	"github.com/athola/auditor/internal/model"
)

// defaultBytesPerToken is the fallback token-impact heuristic: artifact
// byte size / 4 (spec §4.4).
const defaultBytesPerToken = 4

// Options configures aggregation: the operator's core-path declarations, the
// Finding ID seed, and per-artifact token-impact overrides.
type Options struct {
	// CorePaths are operator-declared globs protecting matching artifacts
	// from DELETE (spec §4.4's core-path policy).
	CorePaths []string

	// ScanID seeds the deterministic Finding ID hash.
	ScanID string

	// TokenImpactOverride lets an adapter (e.g. the dependency collector,
	// which knows a package's real footprint) override the default
	// size/4 heuristic, keyed by ArtifactID.
	TokenImpactOverride map[string]int
}

// Aggregate turns Scores plus their source Artifacts into sorted Findings.
// Artifacts is consulted for ContentHash and ByteSize (token-impact
// fallback). REFACTOR's churn condition reads churn Evidence, not the
// Artifact, and CONSOLIDATE marks no member canonical: each Score yields its
// own Finding keyed on its own artifact.
func Aggregate(scores []fusion.Score, artifacts []artifact.Artifact, opts Options) []model.Finding {
	byID := make(map[string]artifact.Artifact, len(artifacts))
	for _, a := range artifacts {
		byID[a.ID()] = a
	}

	findings := make([]model.Finding, 0, len(scores))
	for _, s := range scores {
		art := byID[s.ArtifactID]
		findings = append(findings, buildFinding(s, art, byID, opts))
	}

	sortFindings(findings)
	return findings
}

// buildFinding applies the decision table (spec §4.4) to one fused Score.
func buildFinding(s fusion.Score, art artifact.Artifact, byID map[string]artifact.Artifact, opts Options) model.Finding {
	severity := model.SeverityBand(s.BloatScore)
	confidenceBand := model.ConfidenceBand(s.Confidence)

	rec, risk := decide(s, art, byID, severity, confidenceBand)

	affected := affectedArtifacts(s)
	isCore := matchesAnyCorePath(art.Path, opts.CorePaths)
	if isCore {
		rec = rec.Downgrade()
		risk = risk.RaiseOneTier()
	}

	tokenImpact := estimateTokenImpact(s, art, opts)

	id := model.ComputeFindingID(opts.ScanID, affected, s.DominantSignalKind)

	return model.Finding{
		ID:                   id,
		PrimaryArtifactID:    s.ArtifactID,
		PrimaryArtifactHash:  art.ContentHash,
		AffectedArtifacts:    affected,
		BloatScore:           s.BloatScore,
		Confidence:           s.Confidence,
		Severity:             severity,
		RiskTier:             risk,
		Recommendation:       rec,
		EstimatedTokenImpact: tokenImpact,
		Evidence:             s.Evidence,
		DominantSignalKind:   s.DominantSignalKind,
		Rationale:            rationale(s, rec, severity, confidenceBand, isCore),
	}
}

// decide implements spec §4.4's decision table, top to bottom. Rows are
// evaluated in the order the spec lists them; the first matching row wins.
func decide(s fusion.Score, art artifact.Artifact, byID map[string]artifact.Artifact, severity model.Severity, confidenceBand string) (model.Recommendation, model.RiskTier) {
	kinds := signalKinds(s.Evidence)

	switch {
	case hasZeroReferencesStaleCorroborated(kinds, s.Evidence) && severity == model.SeverityHigh && confidenceBand == "HIGH":
		return model.RecommendDelete, model.RiskLow

	case kinds["near_duplicate"] && len(s.Evidence) > 0 && hasGroupConfirmedSimilarity(s.Evidence, 0.85):
		return model.RecommendConsolidate, model.RiskMedium

	case (kinds["large_function"] || kinds["god_structure"]) && severity == model.SeverityHigh && hasRecentChurn(art, kinds, s.Evidence):
		return model.RecommendRefactor, model.RiskMedium

	case kinds["unused_dependency"] && confidenceBand == "HIGH":
		return model.RecommendDelete, model.RiskLow

	case severity == model.SeverityHigh && confidenceBand == "LOW":
		return model.RecommendArchive, model.RiskLow

	default:
		return model.RecommendKeep, model.RiskLow
	}
}

func signalKinds(ev []model.Evidence) map[string]bool {
	kinds := make(map[string]bool, len(ev))
	for _, e := range ev {
		kinds[e.SignalKind] = true
	}
	return kinds
}

// hasZeroReferencesStaleCorroborated implements the DELETE row's condition:
// zero_references + stale, corroborated by git_history AND static_analysis
// sources, and the artifact must not itself be in a core path (handled
// separately by the downgrade step so the precondition here only checks
// signal/source shape).
func hasZeroReferencesStaleCorroborated(kinds map[string]bool, ev []model.Evidence) bool {
	if !kinds["zero_references"] && !kinds["unused_symbol"] {
		return false
	}
	staleLike := kinds["stale"] || kinds["staleness"] || kinds["orphan"]
	if !staleLike {
		return false
	}
	sources := make(map[model.Source]bool)
	for _, e := range ev {
		sources[e.Source] = true
	}
	return sources[model.SourceGitHistory] && sources[model.SourceStaticAnalysis]
}

func hasGroupConfirmedSimilarity(ev []model.Evidence, threshold float64) bool {
	for _, e := range ev {
		if e.Observed.SimilarityGroup != nil && e.Observed.SimilarityGroup.ConfirmedSimilarity >= threshold {
			return len(e.Observed.SimilarityGroup.Members) >= 2
		}
	}
	return false
}

// hasRecentChurn reports whether the REFACTOR row's churn condition holds:
// the artifact has a non-trivial churn Evidence item (commits in the last
// 90 days), meaning it is still actively maintained and worth refactoring
// rather than deleting outright.
func hasRecentChurn(art artifact.Artifact, kinds map[string]bool, ev []model.Evidence) bool {
	_ = art
	if !kinds["churn"] {
		return true // no churn signal collected: don't block REFACTOR on its absence
	}
	for _, e := range ev {
		if e.SignalKind == "churn" && e.Observed.Churn != nil && e.Observed.Churn.CommitsLast90Days > 0 {
			return true
		}
	}
	return false
}

// affectedArtifacts returns the sorted artifact IDs covered by this Score.
// For a similarity group, every member of the group is affected; for a
// single-artifact Score it is just the one ID.
func affectedArtifacts(s fusion.Score) []string {
	seen := map[string]bool{s.ArtifactID: true}
	for _, e := range s.Evidence {
		if e.Observed.SimilarityGroup != nil {
			for _, m := range e.Observed.SimilarityGroup.Members {
				seen[m] = true
			}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// estimateTokenImpact applies spec §4.4's default (byte_size/4) unless an
// override is present for this artifact.
func estimateTokenImpact(s fusion.Score, art artifact.Artifact, opts Options) int {
	if opts.TokenImpactOverride != nil {
		if v, ok := opts.TokenImpactOverride[s.ArtifactID]; ok {
			return v
		}
	}
	return int(art.ByteSize / defaultBytesPerToken)
}

// matchesAnyCorePath reports whether path matches any of the operator's
// core-path globs. A glob ending in "/**" matches the directory prefix and
// everything beneath it; otherwise filepath.Match is applied to both the
// full path and the base name.
func matchesAnyCorePath(path string, globs []string) bool {
	cleanPath := filepath.ToSlash(path)
	for _, g := range globs {
		g = filepath.ToSlash(g)
		if prefix, ok := strings.CutSuffix(g, "/**"); ok {
			if cleanPath == prefix || strings.HasPrefix(cleanPath, prefix+"/") {
				return true
			}
			continue
		}
		if matched, _ := filepath.Match(g, cleanPath); matched {
			return true
		}
		if matched, _ := filepath.Match(g, filepath.Base(cleanPath)); matched {
			return true
		}
	}
	return false
}

// rationale renders a short human-readable explanation (spec §3).
func rationale(s fusion.Score, rec model.Recommendation, severity model.Severity, confidenceBand string, downgraded bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s severity (score %.0f), %s confidence (%.2f) from %d distinct source(s); dominant signal %q -> %s",
		severity, s.BloatScore, confidenceBand, s.Confidence, s.DistinctSources, s.DominantSignalKind, rec)
	if downgraded {
		b.WriteString(" (downgraded: core path protected)")
	}
	return b.String()
}

// sortFindings orders Findings using the fusion tie-break rule, so report
// output is deterministic regardless of scan concurrency (spec §4.3, §5).
func sortFindings(findings []model.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.BloatScore != b.BloatScore {
			return a.BloatScore > b.BloatScore
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.EstimatedTokenImpact != b.EstimatedTokenImpact {
			return a.EstimatedTokenImpact > b.EstimatedTokenImpact
		}
		return a.PrimaryArtifactID < b.PrimaryArtifactID
	})
}
