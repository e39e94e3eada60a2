// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package collectors

import (
	"github.com/athola/auditor/internal/artifact"
	"github.com/athola/auditor/internal/model"
)

// defaultReferenceDocCap and defaultTutorialDocCap are the default soft caps
// (in lines) for documentation artifacts, per the directory convention in
// spec §6.3: reference docs default to 500 lines, tutorials to 1000.
const (
	defaultReferenceDocCap = 500
	defaultTutorialDocCap  = 1000
)

// defaultSourceCap is the fallback soft cap for source files when no
// language-specific override is configured.
const defaultSourceCap = 1500

// sourceCapByExt holds language-idiomatic soft caps, reflecting that some
// languages are naturally more verbose per unit of behavior than others.
var sourceCapByExt = map[string]int{
	".go":   1500,
	".py":   1000,
	".rb":   800,
	".js":   1200,
	".ts":   1200,
	".jsx":  1200,
	".tsx":  1200,
	".rs":   1200,
	".java": 1800,
	".cs":   1800,
}

// sizeThresholds resolves the effective per-extension size caps for this
// scan, applying threshold overrides from opts.Thresholds where present.
type sizeThresholds struct {
	referenceDocCap int
	tutorialDocCap  int
	sourceCap       map[string]int
}

// sizeCaps builds the effective sizeThresholds for a scan, starting from
// the package defaults and layering opts.Thresholds overrides on top.
func sizeCaps(opts model.CollectorOpts) sizeThresholds {
	t := sizeThresholds{
		referenceDocCap: defaultReferenceDocCap,
		tutorialDocCap:  defaultTutorialDocCap,
		sourceCap:       sourceCapByExt,
	}
	if v, ok := opts.Thresholds["heuristic.reference_doc_cap"]; ok {
		t.referenceDocCap = int(v)
	}
	if v, ok := opts.Thresholds["heuristic.tutorial_doc_cap"]; ok {
		t.tutorialDocCap = int(v)
	}
	if v, ok := opts.Thresholds["heuristic.source_cap"]; ok {
		overridden := make(map[string]int, len(sourceCapByExt))
		for ext := range sourceCapByExt {
			overridden[ext] = int(v)
		}
		t.sourceCap = overridden
	}
	return t
}

// softCapFor returns the soft cap in lines for a file with the given
// extension, given whether it's a documentation or tutorial artifact.
func (t sizeThresholds) softCapFor(ext string, isDoc, isTutorial bool) int {
	if isDoc {
		if isTutorial {
			return t.tutorialDocCap
		}
		return t.referenceDocCap
	}
	if cap, ok := t.sourceCap[ext]; ok {
		return cap
	}
	return defaultSourceCap
}

// sizeShapeEvidence produces Evidence when an artifact exceeds its
// per-directory soft cap. Weight scales linearly between the cap and 2x the
// cap; above 2x it saturates at 1.0 (spec §4.1.1).
func sizeShapeEvidence(art artifact.Artifact, ext string, caps sizeThresholds) (model.Evidence, bool) {
	isDoc := docExtensions[ext]
	if !isDoc && !sourceExtensions[ext] {
		return model.Evidence{}, false
	}

	isTutorial := isDoc && matchesAny(art.Path, []string{"*tutorial*", "*tutorials/**"})
	cap := caps.softCapFor(ext, isDoc, isTutorial)
	if art.Lines <= cap {
		return model.Evidence{}, false
	}

	ratio := float64(art.Lines) / float64(cap)
	weight := ratio - 1.0
	if weight > 1.0 {
		weight = 1.0
	}

	return model.Evidence{
		ArtifactID:      art.ID(),
		Source:          model.SourceHeuristic,
		SignalKind:      "size_shape",
		Weight:          weight,
		Confidence:      0.85,
		DetectorVersion: "heuristic-v1",
		Observed: model.ObservedValue{
			Tag: model.ObservedSizeShape,
			SizeShape: &model.SizeShapeObserved{
				LineCount: art.Lines,
				SoftCap:   cap,
				Ratio:     ratio,
			},
		},
	}, true
}
