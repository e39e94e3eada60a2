// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package collectors

import (
	"bufio"
	"regexp"
	"strings"
	"unicode"

	"github.com/athola/auditor/internal/artifact"
	"github.com/athola/auditor/internal/model"
)

// defaultGodStructureMethods is the default nested-definition count above
// which a single definitional unit is considered a god-structure candidate.
const defaultGodStructureMethods = 15

// defaultGodStructureClusters is the minimum number of distinct lexical
// clusters (by token-root grouping) the nested definitions must span.
const defaultGodStructureClusters = 3

// definitionPatterns extracts method/function definitions per language. Only
// languages with an idiomatic "methods attached to one unit" shape are
// covered; languages without that shape (plain scripts) are skipped.
var definitionPatterns = map[string]*regexp.Regexp{
	".go":   regexp.MustCompile(`^\s*func\s+(?:\([^)]*\)\s*)?(\w+)\s*\(`),
	".py":   regexp.MustCompile(`^\s+def\s+(\w+)\s*\(`),
	".rb":   regexp.MustCompile(`^\s+def\s+(\w+)`),
	".java": regexp.MustCompile(`^\s+(?:public|private|protected)\s+[\w<>\[\]]+\s+(\w+)\s*\(`),
	".cs":   regexp.MustCompile(`^\s+(?:public|private|protected|internal)\s+[\w<>\[\]]+\s+(\w+)\s*\(`),
	".rs":   regexp.MustCompile(`^\s+(?:pub(?:\([^)]*\))?\s+)?fn\s+(\w+)\s*\(`),
	".ts":   regexp.MustCompile(`^\s+(?:public|private|protected|static|async)*\s*(\w+)\s*\([^)]*\)\s*[:{]`),
	".js":   regexp.MustCompile(`^\s+(?:static|async)*\s*(\w+)\s*\([^)]*\)\s*\{`),
}

type godStructureOpts struct {
	methods  int
	clusters int
}

func godStructureThresholds(opts model.CollectorOpts) godStructureOpts {
	g := godStructureOpts{methods: defaultGodStructureMethods, clusters: defaultGodStructureClusters}
	if v, ok := opts.Thresholds["heuristic.god_structure_methods"]; ok {
		g.methods = int(v)
	}
	if v, ok := opts.Thresholds["heuristic.god_structure_clusters"]; ok {
		g.clusters = int(v)
	}
	return g
}

// godStructureEvidence flags a single file whose nested-definition count
// exceeds the method threshold and whose definition names span at least
// the cluster threshold of lexical (token-root) groups — i.e. it isn't just
// a long file, it's doing several unrelated jobs (spec §4.1.1).
func godStructureEvidence(art artifact.Artifact, ext, content string, thresholds godStructureOpts) (model.Evidence, bool) {
	pattern, ok := definitionPatterns[ext]
	if !ok {
		return model.Evidence{}, false
	}

	var names []string
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if m := pattern.FindStringSubmatch(scanner.Text()); m != nil {
			names = append(names, m[1])
		}
	}

	if len(names) <= thresholds.methods {
		return model.Evidence{}, false
	}

	clusters := lexicalClusters(names)
	if len(clusters) < thresholds.clusters {
		return model.Evidence{}, false
	}

	return model.Evidence{
		ArtifactID:      art.ID(),
		Source:          model.SourceHeuristic,
		SignalKind:      "god_structure",
		Weight:          1.0,
		Confidence:      0.7,
		DetectorVersion: "heuristic-v1",
		Observed: model.ObservedValue{
			Tag: model.ObservedGodStructure,
			GodStructure: &model.GodStructureObserved{
				DefinitionCount: len(names),
				LexicalClusters: len(clusters),
			},
		},
	}, true
}

// lexicalClusters groups definition names by their token-root: the leading
// lowercase word of a camelCase/snake_case identifier (e.g. "getUser" and
// "getOrder" both root to "get"; "validateInput" roots to "validate").
// Names sharing a root belong to the same responsibility cluster.
func lexicalClusters(names []string) map[string]bool {
	clusters := make(map[string]bool)
	for _, name := range names {
		clusters[tokenRoot(name)] = true
	}
	return clusters
}

// tokenRoot returns the first token of an identifier, splitting on
// underscores and camelCase boundaries.
func tokenRoot(name string) string {
	name = strings.TrimLeft(name, "_")
	if idx := strings.IndexByte(name, '_'); idx > 0 {
		return strings.ToLower(name[:idx])
	}
	var b strings.Builder
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			break
		}
		b.WriteRune(unicode.ToLower(r))
	}
	if b.Len() == 0 {
		return strings.ToLower(name)
	}
	return b.String()
}
