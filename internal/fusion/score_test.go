// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package fusion

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athola/auditor/internal/model"
)

func evidence(source model.Source, kind string, weight, confidence float64) model.Evidence {
	return model.Evidence{
		ArtifactID: "file:a.go",
		Source:     source,
		SignalKind: kind,
		Weight:     weight,
		Confidence: confidence,
	}
}

func TestFuseArtifact_BoundsHoldForRandomEvidence(t *testing.T) {
	sources := []model.Source{model.SourceHeuristic, model.SourceGitHistory, model.SourceStaticAnalysis, model.SourceSimilarity, model.SourceDependency}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		n := rng.Intn(6) + 1
		var ev []model.Evidence
		for j := 0; j < n; j++ {
			ev = append(ev, evidence(sources[rng.Intn(len(sources))], "k", rng.Float64(), rng.Float64()))
		}
		score := FuseArtifact("file:a.go", ev)
		assert.GreaterOrEqual(t, score.BloatScore, 0.0)
		assert.LessOrEqual(t, score.BloatScore, 100.0)
		assert.GreaterOrEqual(t, score.Confidence, 0.0)
		assert.LessOrEqual(t, score.Confidence, 1.0)
	}
}

func TestFuseArtifact_MonotonicityUnderZeroEvidence(t *testing.T) {
	base := []model.Evidence{
		evidence(model.SourceHeuristic, "stale", 0.6, 0.7),
		evidence(model.SourceGitHistory, "stale", 0.5, 0.8),
	}
	before := FuseArtifact("file:a.go", base)

	withZeroWeight := append(append([]model.Evidence(nil), base...), evidence(model.SourceSimilarity, "near_duplicate", 0, 0.9))
	afterZeroWeight := FuseArtifact("file:a.go", withZeroWeight)
	assert.InDelta(t, before.BloatScore, afterZeroWeight.BloatScore, 1e-9)
	assert.InDelta(t, before.Confidence, afterZeroWeight.Confidence, 1e-9)

	withZeroConfidence := append(append([]model.Evidence(nil), base...), evidence(model.SourceSimilarity, "near_duplicate", 0.9, 0))
	afterZeroConfidence := FuseArtifact("file:a.go", withZeroConfidence)
	assert.InDelta(t, before.BloatScore, afterZeroConfidence.BloatScore, 1e-9)
	assert.InDelta(t, before.Confidence, afterZeroConfidence.Confidence, 1e-9)
}

func TestFuseArtifact_CorroborationRewardsDistinctSources(t *testing.T) {
	sameSource := []model.Evidence{
		evidence(model.SourceHeuristic, "stale", 0.6, 0.7),
		evidence(model.SourceHeuristic, "stale", 0.6, 0.7),
		evidence(model.SourceHeuristic, "stale", 0.6, 0.7),
	}
	distinctSource := []model.Evidence{
		evidence(model.SourceHeuristic, "stale", 0.6, 0.7),
		evidence(model.SourceGitHistory, "stale", 0.6, 0.7),
		evidence(model.SourceStaticAnalysis, "stale", 0.6, 0.7),
	}

	same := FuseArtifact("file:a.go", sameSource)
	distinct := FuseArtifact("file:a.go", distinctSource)

	// Identical weight*confidence per item, but distinct sources must score
	// materially higher per spec §4.3.
	assert.Greater(t, distinct.BloatScore, same.BloatScore)
	assert.Greater(t, distinct.Confidence, same.Confidence)
}

func TestFuseArtifact_DeterministicAcrossOrder(t *testing.T) {
	ev := []model.Evidence{
		evidence(model.SourceHeuristic, "stale", 0.4, 0.6),
		evidence(model.SourceGitHistory, "stale", 0.7, 0.8),
		evidence(model.SourceStaticAnalysis, "unused_symbol", 0.9, 0.95),
	}
	shuffled := append([]model.Evidence(nil), ev...)
	rng := rand.New(rand.NewSource(42))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	a := FuseArtifact("file:a.go", ev)
	b := FuseArtifact("file:a.go", shuffled)
	assert.Equal(t, a.BloatScore, b.BloatScore)
	assert.Equal(t, a.Confidence, b.Confidence)
}

func TestFuseArtifact_PartialPenalizesConfidence(t *testing.T) {
	clean := []model.Evidence{
		evidence(model.SourceStaticAnalysis, "unused_symbol", 0.9, 0.9),
		evidence(model.SourceHeuristic, "stale", 0.8, 0.8),
	}
	partial := append([]model.Evidence(nil), clean...)
	partial[0].Partial = true

	cleanScore := FuseArtifact("file:a.go", clean)
	partialScore := FuseArtifact("file:a.go", partial)
	assert.Less(t, partialScore.Confidence, cleanScore.Confidence)
	// Bloat score (derived from weight*confidence, not Partial) is unaffected.
	assert.Equal(t, cleanScore.BloatScore, partialScore.BloatScore)
}

func TestFuse_GroupsByArtifactAndSortsDeterministically(t *testing.T) {
	ev := []model.Evidence{
		{ArtifactID: "file:b.go", Source: model.SourceHeuristic, SignalKind: "stale", Weight: 0.5, Confidence: 0.5},
		{ArtifactID: "file:a.go", Source: model.SourceHeuristic, SignalKind: "stale", Weight: 0.5, Confidence: 0.5},
	}
	scores := Fuse(ev)
	require.Len(t, scores, 2)
	assert.Equal(t, "file:a.go", scores[0].ArtifactID)
	assert.Equal(t, "file:b.go", scores[1].ArtifactID)
}

func TestDominantSignalKind_TieBreaksLexicographically(t *testing.T) {
	ev := []model.Evidence{
		evidence(model.SourceHeuristic, "zeta", 0.5, 0.5),
		evidence(model.SourceGitHistory, "alpha", 0.5, 0.5),
	}
	score := FuseArtifact("file:a.go", ev)
	assert.Equal(t, "alpha", score.DominantSignalKind)
}

func TestByTieBreak_OrdersByScoreThenConfidenceThenImpactThenPath(t *testing.T) {
	scores := []Score{
		{ArtifactID: "file:z.go", BloatScore: 80, Confidence: 0.9, EstimatedTokenImpact: 100},
		{ArtifactID: "file:a.go", BloatScore: 80, Confidence: 0.9, EstimatedTokenImpact: 100},
		{ArtifactID: "file:b.go", BloatScore: 90, Confidence: 0.5, EstimatedTokenImpact: 10},
	}
	ByTieBreak(scores)
	require.Len(t, scores, 3)
	assert.Equal(t, "file:b.go", scores[0].ArtifactID)
	assert.Equal(t, "file:a.go", scores[1].ArtifactID)
	assert.Equal(t, "file:z.go", scores[2].ArtifactID)
}
