// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package fusion

import "sort"

// ByTieBreak orders Scores per spec §4.3's tie-break rule: bloat_score
// descending, then confidence descending, then estimated_token_impact
// descending, then path (artifact ID) ascending. Scores must already carry
// EstimatedTokenImpact (set by internal/aggregator) for the third key to be
// meaningful; callers that sort before token-impact is computed get a
// stable ordering on the first two keys with ties broken by ArtifactID.
func ByTieBreak(scores []Score) {
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.BloatScore != b.BloatScore {
			return a.BloatScore > b.BloatScore
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.EstimatedTokenImpact != b.EstimatedTokenImpact {
			return a.EstimatedTokenImpact > b.EstimatedTokenImpact
		}
		return a.ArtifactID < b.ArtifactID
	})
}
