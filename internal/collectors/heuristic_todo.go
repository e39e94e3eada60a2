// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package collectors

import (
	"bufio"
	"regexp"
	"strings"
	"time"

	"github.com/athola/auditor/internal/artifact"
	"github.com/athola/auditor/internal/model"
)

// defaultTodoStalenessDays is the minimum age (by last git-blame
// modification) a TODO/FIXME marker must reach before it is reported (spec
// §4.1.1 default 90 days).
const defaultTodoStalenessDays = 90

// todoKeyword maps a recognized keyword to its base confidence score.
var todoKeyword = map[string]float64{
	"BUG":      0.8,
	"FIXME":    0.65,
	"HACK":     0.55,
	"TODO":     0.5,
	"XXX":      0.45,
	"OPTIMIZE": 0.35,
}

// todoPattern matches TODO-style comments across common languages:
//
//	// TODO: message        (C/Go/Java/JS single-line)
//	// TODO(author): msg    (Go convention)
//	# TODO: message         (Python/Ruby/Shell)
//	/* TODO: message */      (C-style block)
//	* TODO: message          (Javadoc/JSDoc)
//	-- TODO: message         (SQL/Haskell)
//
// The keyword match is case-insensitive.
var todoPattern = regexp.MustCompile(
	`(?i)(?://|#|/\*|\*|--)\s*` +
		`(TODO|FIXME|HACK|XXX|BUG|OPTIMIZE)\b` +
		`(?:\([^)]*\))?` +
		`\s*[:>\-]?\s*` +
		`(.*)`,
)

// todoMarker is one TODO-style comment found in a file, before staleness
// filtering and Evidence construction.
type todoMarker struct {
	Keyword   string
	Message   string
	Line      int
	Timestamp time.Time
	Estimated bool
}

func todoStalenessCutoffDays(opts model.CollectorOpts) int {
	if v, ok := opts.Thresholds["heuristic.todo_staleness_days"]; ok {
		return int(v)
	}
	return defaultTodoStalenessDays
}

// scanTodoMarkers extracts every TODO-style comment in content.
func scanTodoMarkers(content, relPath string) []todoMarker {
	var found []todoMarker

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		loc := todoPattern.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		if isInsideStringLiteral(line, loc[0]) {
			continue
		}

		keyword := strings.ToUpper(line[loc[2]:loc[3]])
		message := strings.TrimSpace(line[loc[4]:loc[5]])
		message = strings.TrimSpace(strings.TrimSuffix(message, "*/"))
		if message == "" {
			message = keyword + " comment (no description)"
		}

		found = append(found, todoMarker{Keyword: keyword, Message: message, Line: lineNo})
	}
	_ = relPath

	return found
}

// todoEvidence converts a found marker into Evidence, or returns ok=false
// if the marker is not yet stale enough to report (spec §4.1.1: only
// markers older than the staleness cutoff are emitted).
func todoEvidence(art artifact.Artifact, m todoMarker, cutoffDays int) (model.Evidence, bool) {
	days := ageDays(m.Timestamp)
	if days < cutoffDays {
		return model.Evidence{}, false
	}

	base, ok := todoKeyword[m.Keyword]
	if !ok {
		base = 0.5
	}
	confidence := base
	if m.Estimated {
		confidence *= 0.85 // blame unavailable, age is an mtime estimate
	}

	return model.Evidence{
		ArtifactID:      art.ID(),
		Source:          model.SourceHeuristic,
		SignalKind:      "todo_marker",
		Weight:          clamp01(float64(days-cutoffDays) / float64(cutoffDays*2)),
		Confidence:      confidence,
		DetectorVersion: "heuristic-v1",
		Observed: model.ObservedValue{
			Tag: model.ObservedTodoMarker,
			TodoMarker: &model.TodoMarkerObserved{
				Keyword: m.Keyword,
				AgeDays: days,
			},
		},
	}, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
