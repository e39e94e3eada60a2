// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package pipeline

import (
	"crypto/sha256"
	"fmt"

	"github.com/athola/auditor/internal/model"
)

// EvidenceHash computes a content-based hash for a piece of Evidence.
// The hash key is: ArtifactID + Source + SignalKind + ObservedTag. It uses
// SHA-256 truncated to 8 hex characters (4 bytes).
func EvidenceHash(e model.Evidence) string {
	h := sha256.New()
	// Use null-byte separators to avoid collisions from field concatenation.
	// sha256.Hash.Write never returns an error per the hash.Hash contract.
	_, _ = fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s",
		e.ArtifactID, e.Source, e.SignalKind, e.Observed.Tag)
	sum := h.Sum(nil)
	return fmt.Sprintf("%x", sum[:4])
}

// DeduplicateEvidence removes duplicate Evidence based on content hashing.
// When duplicates are found, the first occurrence is kept. If a later
// duplicate has a higher Confidence score, the kept Evidence's Confidence is
// updated to the higher value — two collectors independently confirming the
// same signal should never be worth less than the more confident of the two.
func DeduplicateEvidence(evidence []model.Evidence) []model.Evidence {
	if len(evidence) == 0 {
		return evidence
	}

	seen := make(map[string]int) // hash -> index in result slice
	result := make([]model.Evidence, 0, len(evidence))

	for _, e := range evidence {
		hash := EvidenceHash(e)
		if idx, exists := seen[hash]; exists {
			if e.Confidence > result[idx].Confidence {
				result[idx].Confidence = e.Confidence
			}
			continue
		}
		seen[hash] = len(result)
		result = append(result, e)
	}

	return result
}
