// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package model

// ObservedTag discriminates the payload carried by an ObservedValue. Adding a
// new signal_kind means adding a new tag and payload struct here — the
// fusion arithmetic in internal/fusion never inspects this union, so it
// never needs to change (per SPEC_FULL.md §3's polymorphism note).
type ObservedTag string

const (
	ObservedStaleness       ObservedTag = "staleness"
	ObservedChurn           ObservedTag = "churn"
	ObservedAuthorDispersion ObservedTag = "author_dispersion"
	ObservedOrphan          ObservedTag = "orphan"
	ObservedSizeShape       ObservedTag = "size_shape"
	ObservedGodStructure    ObservedTag = "god_structure"
	ObservedCompleteGuide   ObservedTag = "complete_guide"
	ObservedMagicLiteral    ObservedTag = "magic_literal"
	ObservedTodoMarker      ObservedTag = "todo_marker"
	ObservedUnusedSymbol    ObservedTag = "unused_symbol"
	ObservedDuplicatedBlock ObservedTag = "duplicated_block"
	ObservedComplexity      ObservedTag = "complexity"
	ObservedSimilarityGroup ObservedTag = "similarity_group"
	ObservedUnusedDependency ObservedTag = "unused_dependency"
)

// ObservedValue is a closed sum type: exactly one of the typed fields is
// populated, selected by Tag. This keeps observed_value's JSON payload
// self-describing while giving Go callers typed access without a type
// assertion on `any`.
type ObservedValue struct {
	Tag ObservedTag `json:"tag"`

	Staleness       *StalenessObserved       `json:"staleness,omitempty"`
	Churn           *ChurnObserved           `json:"churn,omitempty"`
	AuthorDispersion *AuthorDispersionObserved `json:"author_dispersion,omitempty"`
	Orphan          *OrphanObserved          `json:"orphan,omitempty"`
	SizeShape       *SizeShapeObserved       `json:"size_shape,omitempty"`
	GodStructure    *GodStructureObserved    `json:"god_structure,omitempty"`
	CompleteGuide   *CompleteGuideObserved   `json:"complete_guide,omitempty"`
	MagicLiteral    *MagicLiteralObserved    `json:"magic_literal,omitempty"`
	TodoMarker      *TodoMarkerObserved      `json:"todo_marker,omitempty"`
	UnusedSymbol    *UnusedSymbolObserved    `json:"unused_symbol,omitempty"`
	DuplicatedBlock *DuplicatedBlockObserved `json:"duplicated_block,omitempty"`
	Complexity      *ComplexityObserved      `json:"complexity,omitempty"`
	SimilarityGroup *SimilarityGroupObserved `json:"similarity_group,omitempty"`
	UnusedDependency *UnusedDependencyObserved `json:"unused_dependency,omitempty"`
}

// StalenessObserved backs GitHistory's staleness signal (spec §4.1.2).
type StalenessObserved struct {
	DaysSinceLastCommit int `json:"days_since_last_commit"`
}

// ChurnObserved backs GitHistory's churn-suppression signal.
type ChurnObserved struct {
	CommitsLast90Days int `json:"commits_last_90_days"`
}

// AuthorDispersionObserved backs the single-author-abandonment corroborator.
type AuthorDispersionObserved struct {
	DistinctAuthors int `json:"distinct_authors"`
}

// OrphanObserved backs the "added once, never touched again" signal.
type OrphanObserved struct {
	AddedCommit string `json:"added_commit"`
	AgeDays     int    `json:"age_days"`
}

// SizeShapeObserved backs the Heuristic Collector's size/shape signal.
type SizeShapeObserved struct {
	LineCount int     `json:"line_count"`
	SoftCap   int      `json:"soft_cap"`
	Ratio     float64 `json:"ratio"` // line_count / soft_cap
}

// GodStructureObserved backs the god-structure anti-pattern.
type GodStructureObserved struct {
	DefinitionCount int `json:"definition_count"`
	LexicalClusters int `json:"lexical_clusters"`
}

// CompleteGuideObserved backs the "complete guide" doc anti-pattern.
type CompleteGuideObserved struct {
	MatchedPattern string `json:"matched_pattern"`
}

// MagicLiteralObserved backs repeated-literal detection.
type MagicLiteralObserved struct {
	Literal      string `json:"literal"`
	Occurrences  int    `json:"occurrences"`
}

// TodoMarkerObserved backs stale TODO/FIXME triage.
type TodoMarkerObserved struct {
	Keyword   string `json:"keyword"`
	AgeDays   int    `json:"age_days"`
}

// UnusedSymbolObserved backs static-analysis/heuristic dead-code findings.
type UnusedSymbolObserved struct {
	SymbolName  string  `json:"symbol_name"`
	RawConfidence float64 `json:"raw_confidence"` // adapter-native confidence, pre-rescale
	TextualRefsChecked bool `json:"textual_refs_checked"`
}

// DuplicatedBlockObserved backs static-analysis duplication findings.
type DuplicatedBlockObserved struct {
	OtherArtifactID string `json:"other_artifact_id"`
	LineCount       int    `json:"line_count"`
}

// ComplexityObserved backs cyclomatic-complexity findings.
type ComplexityObserved struct {
	Cyclomatic int `json:"cyclomatic"`
}

// SimilarityGroupObserved backs the Similarity Collector's near-duplicate
// group signal. Every artifact in the group shares the same GroupID.
type SimilarityGroupObserved struct {
	GroupID              string   `json:"group_id"`
	JaccardCandidate     float64  `json:"jaccard_candidate"`
	ConfirmedSimilarity  float64  `json:"confirmed_similarity"`
	StructuralSimilarity float64  `json:"structural_similarity,omitempty"`
	Members              []string `json:"members"`
}

// UnusedDependencyObserved backs the Dependency Collector's signal.
type UnusedDependencyObserved struct {
	DependencyName string `json:"dependency_name"`
	Manifest       string `json:"manifest"`
	DevOnly        bool   `json:"dev_only"`
}
