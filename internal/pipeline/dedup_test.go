// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package pipeline

import (
	"testing"

	"github.com/athola/auditor/internal/model"
)

func ev(artifactID, signalKind string, confidence float64) model.Evidence {
	return model.Evidence{
		ArtifactID: artifactID,
		Source:     model.SourceHeuristic,
		SignalKind: signalKind,
		Confidence: confidence,
	}
}

func TestEvidenceHash_Deterministic(t *testing.T) {
	e := ev("file:main.go", "stale", 0.5)

	h1 := EvidenceHash(e)
	h2 := EvidenceHash(e)

	if h1 != h2 {
		t.Errorf("hash not deterministic: %q != %q", h1, h2)
	}
	if len(h1) != 8 {
		t.Errorf("hash length = %d, want 8", len(h1))
	}
}

func TestEvidenceHash_DifferentInputs(t *testing.T) {
	e1 := ev("file:main.go", "stale", 0.5)
	e2 := ev("file:other.go", "stale", 0.5)

	if EvidenceHash(e1) == EvidenceHash(e2) {
		t.Error("different artifacts should produce different hashes")
	}
}

func TestEvidenceHash_IgnoresNonKeyFields(t *testing.T) {
	e1 := model.Evidence{ArtifactID: "file:a.go", Source: model.SourceHeuristic, SignalKind: "stale", Confidence: 0.9, Weight: 0.2}
	e2 := model.Evidence{ArtifactID: "file:a.go", Source: model.SourceHeuristic, SignalKind: "stale", Confidence: 0.5, Weight: 0.8}

	if EvidenceHash(e1) != EvidenceHash(e2) {
		t.Error("evidence with same key fields but different weight/confidence should hash the same")
	}
}

func TestEvidenceHash_NullByteSeparation(t *testing.T) {
	e1 := model.Evidence{ArtifactID: "ab", Source: "c", SignalKind: ""}
	e2 := model.Evidence{ArtifactID: "a", Source: "bc", SignalKind: ""}

	if EvidenceHash(e1) == EvidenceHash(e2) {
		t.Error("different field boundaries should produce different hashes")
	}
}

func TestDeduplicateEvidence_NoDuplicates(t *testing.T) {
	evidence := []model.Evidence{
		ev("file:a.go", "stale", 0.8),
		ev("file:b.go", "stale", 0.7),
		ev("file:c.go", "churn", 0.6),
	}

	result := DeduplicateEvidence(evidence)
	if len(result) != 3 {
		t.Errorf("expected 3, got %d", len(result))
	}
}

func TestDeduplicateEvidence_WithDuplicates(t *testing.T) {
	evidence := []model.Evidence{
		ev("file:a.go", "stale", 0.8),
		ev("file:b.go", "stale", 0.7),
		ev("file:a.go", "stale", 0.6), // duplicate of first
	}

	result := DeduplicateEvidence(evidence)
	if len(result) != 2 {
		t.Fatalf("expected 2 after dedup, got %d", len(result))
	}
	if result[0].ArtifactID != "file:a.go" || result[1].ArtifactID != "file:b.go" {
		t.Errorf("unexpected ordering: %+v", result)
	}
}

func TestDeduplicateEvidence_UpdatesConfidenceHigher(t *testing.T) {
	evidence := []model.Evidence{
		ev("file:a.go", "stale", 0.5),
		ev("file:a.go", "stale", 0.9),
	}

	result := DeduplicateEvidence(evidence)
	if len(result) != 1 {
		t.Fatalf("expected 1, got %d", len(result))
	}
	if result[0].Confidence != 0.9 {
		t.Errorf("Confidence should be updated to 0.9, got %v", result[0].Confidence)
	}
}

func TestDeduplicateEvidence_DoesNotDowngradeConfidence(t *testing.T) {
	evidence := []model.Evidence{
		ev("file:a.go", "stale", 0.9),
		ev("file:a.go", "stale", 0.5),
	}

	result := DeduplicateEvidence(evidence)
	if result[0].Confidence != 0.9 {
		t.Errorf("Confidence should remain 0.9, got %v", result[0].Confidence)
	}
}

func TestDeduplicateEvidence_EmptySlice(t *testing.T) {
	if result := DeduplicateEvidence(nil); result != nil {
		t.Errorf("expected nil for nil input, got %v", result)
	}
	if result := DeduplicateEvidence([]model.Evidence{}); len(result) != 0 {
		t.Errorf("expected empty slice, got %d", len(result))
	}
}

func TestDeduplicateEvidence_DistinctSourcesSurvive(t *testing.T) {
	evidence := []model.Evidence{
		{ArtifactID: "file:a.go", Source: model.SourceHeuristic, SignalKind: "stale", Confidence: 0.6},
		{ArtifactID: "file:a.go", Source: model.SourceGitHistory, SignalKind: "stale", Confidence: 0.9},
	}

	result := DeduplicateEvidence(evidence)
	if len(result) != 2 {
		t.Fatalf("evidence from distinct sources must not be merged, got %d", len(result))
	}
}

func TestDeduplicateEvidence_AllDuplicates(t *testing.T) {
	evidence := []model.Evidence{
		ev("file:a.go", "stale", 0.5),
		ev("file:a.go", "stale", 0.7),
		ev("file:a.go", "stale", 0.3),
	}

	result := DeduplicateEvidence(evidence)
	if len(result) != 1 {
		t.Fatalf("expected 1 after dedup, got %d", len(result))
	}
	if result[0].Confidence != 0.7 {
		t.Errorf("Confidence should be 0.7 (highest), got %v", result[0].Confidence)
	}
}
