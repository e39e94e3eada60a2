// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

// Package analysis implements the optional, post-fusion LLM-assisted
// similarity clustering pass: it never changes a Finding's bloat_score or
// confidence (those remain pure functions of Evidence), only its Rationale
// and presentation grouping. On any LLM error it falls back to the
// deterministic near_duplicate grouping the similarity collector already
// produced.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/athola/auditor/internal/llm"
	"github.com/athola/auditor/internal/model"
)

// clusterResponseItem is one LLM-proposed grouping of Finding IDs.
type clusterResponseItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	FindingIDs  []string `json:"finding_ids"`
}

type clusterResponseWrapper struct {
	Clusters []clusterResponseItem `json:"clusters"`
}

// EnrichRationale groups near-duplicate Findings (those whose
// DominantSignalKind is "near_duplicate") via the LLM and rewrites their
// Rationale to name the cluster, leaving every other field untouched. When
// provider is nil, or the LLM call or response parsing fails, it returns
// findings unmodified: the deterministic grouping the similarity collector
// already computed remains the source of truth.
func EnrichRationale(ctx context.Context, findings []model.Finding, provider llm.Provider) []model.Finding {
	if provider == nil {
		return findings
	}

	candidates := candidateIndices(findings)
	if len(candidates) < 2 {
		return findings
	}

	prompt := buildClusterPrompt(findings, candidates)
	resp, err := provider.Complete(ctx, llm.Request{
		SystemPrompt: "You are a software engineering assistant that names groups of near-duplicate files. Always respond with valid JSON only.",
		Prompt:       prompt,
		MaxTokens:    2048,
	})
	if err != nil {
		slog.Warn("similarity clustering LLM call failed, keeping deterministic grouping", "error", err)
		return findings
	}

	items, err := parseClusterResponse(resp.Content)
	if err != nil {
		slog.Warn("failed to parse similarity clustering response, keeping deterministic grouping", "error", err)
		return findings
	}

	byID := make(map[string]int, len(findings))
	for i, f := range findings {
		byID[f.ID] = i
	}

	out := append([]model.Finding(nil), findings...)
	for _, item := range items {
		if item.Name == "" || len(item.FindingIDs) == 0 {
			continue
		}
		for _, id := range item.FindingIDs {
			idx, ok := byID[id]
			if !ok {
				slog.Debug("ignoring unknown finding ID from cluster response", "id", id)
				continue
			}
			out[idx].Rationale = fmt.Sprintf("%s (cluster: %s — %s)", out[idx].Rationale, item.Name, item.Description)
		}
	}
	return out
}

// candidateIndices returns the indices of findings whose DominantSignalKind
// marks them as part of a near-duplicate group — the only findings worth
// sending to the LLM for naming.
func candidateIndices(findings []model.Finding) []int {
	var idx []int
	for i, f := range findings {
		if f.DominantSignalKind == "near_duplicate" {
			idx = append(idx, i)
		}
	}
	return idx
}

func buildClusterPrompt(findings []model.Finding, candidates []int) string {
	var b strings.Builder
	b.WriteString("The following files were flagged as near-duplicates of each other by a deterministic similarity pass. ")
	b.WriteString("Group them into named clusters and give each a one-sentence description.\n\n")
	b.WriteString("FINDINGS:\n---------\n")
	for _, i := range candidates {
		f := findings[i]
		fmt.Fprintf(&b, "ID: %s\n", f.ID)
		fmt.Fprintf(&b, "  Primary path: %s\n", f.PrimaryArtifactID)
		fmt.Fprintf(&b, "  Affected: %s\n", strings.Join(f.AffectedArtifacts, ", "))
		fmt.Fprintf(&b, "  Confidence: %.2f\n\n", f.Confidence)
	}
	b.WriteString("---------\n\n")
	b.WriteString("Respond with ONLY a JSON object (no markdown, no explanation):\n")
	b.WriteString(`{"clusters": [{"name": "...", "description": "...", "finding_ids": ["..."]}]}`)
	return b.String()
}

func parseClusterResponse(content string) ([]clusterResponseItem, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		var jsonLines []string
		inBlock := false
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "```") {
				inBlock = !inBlock
				continue
			}
			if inBlock {
				jsonLines = append(jsonLines, line)
			}
		}
		content = strings.TrimSpace(strings.Join(jsonLines, "\n"))
	}

	var wrapper clusterResponseWrapper
	if err := json.Unmarshal([]byte(content), &wrapper); err == nil && len(wrapper.Clusters) > 0 {
		return wrapper.Clusters, nil
	}

	var items []clusterResponseItem
	if err := json.Unmarshal([]byte(content), &items); err == nil && len(items) > 0 {
		return items, nil
	}

	return nil, fmt.Errorf("failed to parse LLM response as cluster JSON: %.200s", content)
}
