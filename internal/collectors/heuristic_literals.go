// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package collectors

import (
	"bufio"
	"regexp"
	"sort"
	"strings"

	"github.com/athola/auditor/internal/artifact"
	"github.com/athola/auditor/internal/model"
)

// defaultMagicLiteralOccurrences is the minimum repeat count before a
// literal is flagged (spec §4.1.1 default N=3).
const defaultMagicLiteralOccurrences = 3

// numericLiteralPattern matches bare numeric literals, excluding the
// single-digit/obvious cases (0, 1, -1) that are rarely meaningful magic
// numbers.
var numericLiteralPattern = regexp.MustCompile(`(?:^|[^.\w])(-?\d{2,}(?:\.\d+)?)\b`)

// stringLiteralPattern matches double-quoted string literals of at least 4
// characters, to skip single-character flags and empty strings.
var stringLiteralPattern = regexp.MustCompile(`"([^"\\]{4,})"`)

// constDeclPattern matches lines that are themselves constant declarations,
// where a literal is expected and not "magic" (Go/JS/Python/Rust/Java).
var constDeclPattern = regexp.MustCompile(`(?i)^\s*(?:const|static\s+final|final\s+\w+|#define)\b`)

func magicLiteralOccurrences(opts model.CollectorOpts) int {
	if v, ok := opts.Thresholds["heuristic.magic_literal_occurrences"]; ok {
		return int(v)
	}
	return defaultMagicLiteralOccurrences
}

// magicLiteralEvidence flags numeric or string literals that repeat at
// least minOccurrences times in content, outside constant-declaration
// lines (test-file suppression is applied by the caller).
func magicLiteralEvidence(art artifact.Artifact, content string, minOccurrences int) []model.Evidence {
	counts := make(map[string]int)

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if constDeclPattern.MatchString(line) {
			continue
		}
		for _, idx := range numericLiteralPattern.FindAllStringSubmatchIndex(line, -1) {
			if isInsideStringLiteral(line, idx[2]) {
				continue
			}
			counts["num:"+line[idx[2]:idx[3]]]++
		}
		for _, m := range stringLiteralPattern.FindAllStringSubmatch(line, -1) {
			counts["str:"+m[1]]++
		}
	}

	var literals []string
	for lit, n := range counts {
		if n >= minOccurrences {
			literals = append(literals, lit)
		}
	}
	sort.Strings(literals)

	evidence := make([]model.Evidence, 0, len(literals))
	for _, lit := range literals {
		n := counts[lit]
		weight := float64(n) / float64(minOccurrences*3)
		if weight > 1.0 {
			weight = 1.0
		}
		evidence = append(evidence, model.Evidence{
			ArtifactID:      art.ID(),
			Source:          model.SourceHeuristic,
			SignalKind:      "magic_literal",
			Weight:          weight,
			Confidence:      0.55,
			DetectorVersion: "heuristic-v1",
			Observed: model.ObservedValue{
				Tag: model.ObservedMagicLiteral,
				MagicLiteral: &model.MagicLiteralObserved{
					Literal:     strings.TrimPrefix(strings.TrimPrefix(lit, "num:"), "str:"),
					Occurrences: n,
				},
			},
		})
	}
	return evidence
}
