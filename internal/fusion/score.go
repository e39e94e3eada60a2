// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

// Package fusion implements the Evidence Fusion & Scoring stage (spec §4.3):
// a noisy-OR combination of per-Artifact Evidence into a calibrated
// bloat_score and confidence. This is pure arithmetic over model.Evidence —
// it never inspects the ObservedValue tagged union, so adding a new
// signal_kind never touches this package (SPEC_FULL.md Design Notes).
package fusion

import (
	"math"
	"sort"

	"github.com/athola/auditor/internal/model"
)

// partialityPenalty scales confidence by (1 - partialityPenalty) when any
// Evidence item in the multiset is Partial (spec §4.3).
const partialityPenalty = 0.2

// corroborationSources is the denominator of the corroboration term: with
// Evidence from 3 or more distinct sources, corroboration saturates at 1.0
// (spec §4.3).
const corroborationSources = 3.0

// Score is the fused result for one Artifact (or similarity group): the
// bloat_score/confidence pair plus the corroboration term both were derived
// from, kept around for the aggregator's decision table and rationale text.
type Score struct {
	ArtifactID           string
	BloatScore           float64 // [0,100]
	Confidence           float64 // [0,1]
	Corroboration        float64 // [0,1]
	DistinctSources      int
	Evidence             []model.Evidence
	DominantSignalKind   string
	EstimatedTokenImpact int
}

// Fuse groups Evidence by ArtifactID (and similarity group, via the caller
// pre-expanding group membership into per-artifact Evidence lists) and
// computes one Score per artifact. Evidence order does not affect the
// result: noisy-OR is commutative and corroboration counts distinct
// sources, not arrival order (spec §5).
func Fuse(evidence []model.Evidence) []Score {
	byArtifact := make(map[string][]model.Evidence)
	var order []string
	for _, e := range evidence {
		if _, ok := byArtifact[e.ArtifactID]; !ok {
			order = append(order, e.ArtifactID)
		}
		byArtifact[e.ArtifactID] = append(byArtifact[e.ArtifactID], e)
	}
	sort.Strings(order)

	scores := make([]Score, 0, len(order))
	for _, id := range order {
		scores = append(scores, FuseArtifact(id, byArtifact[id]))
	}
	return scores
}

// FuseArtifact computes the Score for a single artifact's Evidence
// multiset. Two identical Evidence multisets always produce an identical
// Score (spec §3's confidence-determinism invariant).
func FuseArtifact(artifactID string, ev []model.Evidence) Score {
	if len(ev) == 0 {
		return Score{ArtifactID: artifactID}
	}

	// Items whose weight*confidence product is zero carry no signal; they are
	// left out of every term, so adding one never moves the score or the
	// confidence (spec §8.2). They are still kept in Score.Evidence.
	all := ev
	ev = nil
	for _, e := range all {
		if clamp01(e.Weight)*clamp01(e.Confidence) > 0 {
			ev = append(ev, e)
		}
	}
	if len(ev) == 0 {
		return Score{ArtifactID: artifactID, Evidence: append([]model.Evidence(nil), all...)}
	}

	rawSignal := noisyOR(ev)
	corroboration := Corroboration(ev)
	bloatScore := math.Round(100 * rawSignal * (0.5 + 0.5*corroboration))

	partial := false
	confidenceSum := 0.0
	for _, e := range ev {
		confidenceSum += e.Confidence
		if e.Partial {
			partial = true
		}
	}
	meanConfidence := confidenceSum / float64(len(ev))
	confidence := meanConfidence * corroboration
	if partial {
		confidence *= 1 - partialityPenalty
	}
	confidence = clamp01(confidence)
	bloatScore = clampScore(bloatScore)

	dominant := dominantSignalKind(ev)

	return Score{
		ArtifactID:         artifactID,
		BloatScore:         bloatScore,
		Confidence:         confidence,
		Corroboration:      corroboration,
		DistinctSources:    distinctSources(ev),
		Evidence:           append([]model.Evidence(nil), all...),
		DominantSignalKind: dominant,
	}
}

// noisyOR computes 1 - prod(1 - w_i*c_i) over the Evidence multiset. A zero
// weight or zero confidence contributes a factor of 1 (no-op), satisfying
// the Evidence-monotonicity property (spec §8.2): adding w=0 or c=0 Evidence
// never changes the result.
func noisyOR(ev []model.Evidence) float64 {
	product := 1.0
	for _, e := range ev {
		product *= 1 - clamp01(e.Weight)*clamp01(e.Confidence)
	}
	return 1 - product
}

// Corroboration is min(distinct_sources/3, 1) (spec §4.3).
func Corroboration(ev []model.Evidence) float64 {
	return math.Min(float64(distinctSources(ev))/corroborationSources, 1.0)
}

func distinctSources(ev []model.Evidence) int {
	seen := make(map[model.Source]bool, len(ev))
	for _, e := range ev {
		seen[e.Source] = true
	}
	return len(seen)
}

// dominantSignalKind returns the SignalKind of the Evidence item with the
// largest weight*confidence product, breaking ties by signal_kind
// lexicographic order for determinism.
func dominantSignalKind(ev []model.Evidence) string {
	best := ev[0]
	bestProduct := best.Weight * best.Confidence
	for _, e := range ev[1:] {
		product := e.Weight * e.Confidence
		if product > bestProduct || (product == bestProduct && e.SignalKind < best.SignalKind) {
			best = e
			bestProduct = product
		}
	}
	return best.SignalKind
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
