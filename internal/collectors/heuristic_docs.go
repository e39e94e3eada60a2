// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package collectors

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/athola/auditor/internal/artifact"
	"github.com/athola/auditor/internal/model"
)

// completeGuidePattern matches filenames signaling an all-in-one
// documentation dump (spec §4.1.1's "complete guide" anti-pattern).
var completeGuidePattern = regexp.MustCompile(`(?i)complete-guide|comprehensive`)

// modulesStyleDirs are directory names whose presence in a doc's path marks
// it as belonging to a modules-style documentation tree, the context in
// which a "complete guide" file is actually an anti-pattern rather than a
// legitimately large top-level README.
var modulesStyleDirs = map[string]bool{
	"modules":   true,
	"chapters":  true,
	"sections":  true,
	"guides":    true,
	"docs":      true,
}

// completeGuideEvidence flags a documentation file whose name matches the
// complete-guide/comprehensive pattern and which is nested under a
// modules-style directory.
func completeGuideEvidence(art artifact.Artifact, relPath string) (model.Evidence, bool) {
	base := filepath.Base(relPath)
	matched := completeGuidePattern.FindString(base)
	if matched == "" {
		return model.Evidence{}, false
	}
	if !underModulesStyleDir(relPath) {
		return model.Evidence{}, false
	}

	return model.Evidence{
		ArtifactID:      art.ID(),
		Source:          model.SourceHeuristic,
		SignalKind:      "complete_guide",
		Weight:          0.6,
		Confidence:      0.75,
		DetectorVersion: "heuristic-v1",
		Observed: model.ObservedValue{
			Tag: model.ObservedCompleteGuide,
			CompleteGuide: &model.CompleteGuideObserved{
				MatchedPattern: strings.ToLower(matched),
			},
		},
	}, true
}

// underModulesStyleDir reports whether any path segment of relPath (other
// than the file itself) names a modules-style documentation directory.
func underModulesStyleDir(relPath string) bool {
	dir := filepath.Dir(filepath.ToSlash(relPath))
	for _, seg := range strings.Split(dir, "/") {
		if modulesStyleDirs[strings.ToLower(seg)] {
			return true
		}
	}
	return false
}
