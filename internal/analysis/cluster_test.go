// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/athola/auditor/internal/llm"
	"github.com/athola/auditor/internal/model"
)

func sampleFindings() []model.Finding {
	return []model.Finding{
		{ID: "f1", PrimaryArtifactID: "docs/setup.md", DominantSignalKind: "near_duplicate", Rationale: "near-duplicate of docs/install.md"},
		{ID: "f2", PrimaryArtifactID: "docs/install.md", DominantSignalKind: "near_duplicate", Rationale: "near-duplicate of docs/setup.md"},
		{ID: "f3", PrimaryArtifactID: "pkg/unused.go", DominantSignalKind: "zero_references", Rationale: "no inbound references"},
	}
}

func TestEnrichRationale_NilProviderReturnsUnchanged(t *testing.T) {
	in := sampleFindings()
	out := EnrichRationale(context.Background(), in, nil)
	require.Equal(t, in, out)
}

func TestEnrichRationale_FewerThanTwoCandidatesSkipsCall(t *testing.T) {
	in := []model.Finding{{ID: "f1", DominantSignalKind: "zero_references", Rationale: "x"}}
	provider := llm.NewMockProvider(llm.MockResponse{Content: `{"clusters":[]}`})
	out := EnrichRationale(context.Background(), in, provider)
	require.Equal(t, in, out)
	require.Empty(t, provider.Calls())
}

func TestEnrichRationale_AppliesClusterNameToMatchingFindings(t *testing.T) {
	in := sampleFindings()
	provider := llm.NewMockProvider(llm.MockResponse{
		Content: `{"clusters": [{"name": "setup docs", "description": "duplicate onboarding guides", "finding_ids": ["f1", "f2"]}]}`,
	})

	out := EnrichRationale(context.Background(), in, provider)

	require.Contains(t, out[0].Rationale, "setup docs")
	require.Contains(t, out[1].Rationale, "duplicate onboarding guides")
	require.Equal(t, in[2].Rationale, out[2].Rationale, "findings outside the cluster are untouched")
	require.Equal(t, in[0].BloatScore, out[0].BloatScore, "clustering never changes bloat_score")
	require.Equal(t, in[0].Confidence, out[0].Confidence, "clustering never changes confidence")
}

func TestEnrichRationale_LLMErrorFallsBackToOriginal(t *testing.T) {
	in := sampleFindings()
	provider := llm.NewMockProvider(llm.MockResponse{Err: errors.New("provider unavailable")})

	out := EnrichRationale(context.Background(), in, provider)

	require.Equal(t, in, out)
}

func TestEnrichRationale_UnparsableResponseFallsBackToOriginal(t *testing.T) {
	in := sampleFindings()
	provider := llm.NewMockProvider(llm.MockResponse{Content: "not json"})

	out := EnrichRationale(context.Background(), in, provider)

	require.Equal(t, in, out)
}

func TestEnrichRationale_UnknownFindingIDIsIgnored(t *testing.T) {
	in := sampleFindings()
	provider := llm.NewMockProvider(llm.MockResponse{
		Content: `{"clusters": [{"name": "ghost", "description": "d", "finding_ids": ["does-not-exist"]}]}`,
	})

	out := EnrichRationale(context.Background(), in, provider)

	require.Equal(t, in, out)
}
