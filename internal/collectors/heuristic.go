// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package collectors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/athola/auditor/internal/artifact"
	"github.com/athola/auditor/internal/collector"
	"github.com/athola/auditor/internal/gitcli"
	"github.com/athola/auditor/internal/model"
)

func init() {
	collector.Register(&HeuristicCollector{})
}

// HeuristicMetrics holds structured metrics from a heuristic pass, surfaced
// through collector.MetricsProvider.
type HeuristicMetrics struct {
	FilesScanned      int
	SizeShapeFindings int
	GodStructures     int
	CompleteGuides    int
	MagicLiterals     int
	TodoMarkers       int
}

// HeuristicCollector detects structural "smells" with no external tools:
// oversized files, god-structures, the "complete guide" documentation
// anti-pattern, repeated magic literals, and stale TODO/FIXME markers.
type HeuristicCollector struct {
	metrics *HeuristicMetrics
}

// Name returns the collector name used for registration and filtering.
func (c *HeuristicCollector) Name() string { return "heuristic" }

// Collect walks repoPath once, applying every heuristic operation to each
// surviving file and emitting one artifact.Artifact plus zero or more
// model.Evidence per file.
func (c *HeuristicCollector) Collect(ctx context.Context, repoPath string, opts model.CollectorOpts) (collector.Result, error) {
	excludes := mergeExcludes(opts.ExcludePatterns)

	gitRoot := repoPath
	if opts.GitRoot != "" {
		gitRoot = opts.GitRoot
	}
	gitDir := ""
	if gitcli.Available() == nil && isGitRepo(gitRoot) {
		gitDir = gitRoot
	}

	caps := sizeCaps(opts)
	godThresholds := godStructureThresholds(opts)
	literalMin := magicLiteralOccurrences(opts)
	todoCutoffDays := todoStalenessCutoffDays(opts)

	var result collector.Result
	m := &HeuristicMetrics{}

	walkErr := walkSourceFiles(repoPath, excludes, opts.IncludePatterns, func(absPath, relPath string, _ os.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		info, statErr := FS.Stat(absPath)
		if statErr != nil {
			return nil
		}

		lines, countErr := countLines(absPath)
		if countErr != nil {
			return nil
		}

		ext := filepath.Ext(relPath)
		kind := artifact.KindFile
		art := artifact.Artifact{
			Path:        filepath.ToSlash(relPath),
			Kind:        kind,
			ByteSize:    info.Size(),
			Lines:       lines,
			ModTime:     info.ModTime(),
			InboundRefs: -1,
		}
		result.Artifacts = append(result.Artifacts, art)
		m.FilesScanned++

		if ev, ok := sizeShapeEvidence(art, ext, caps); ok {
			result.Evidence = append(result.Evidence, ev)
			m.SizeShapeFindings++
		}

		if sourceExtensions[ext] {
			content, readErr := FS.ReadFile(absPath)
			if readErr == nil {
				text := string(content)

				if ev, ok := godStructureEvidence(art, ext, text, godThresholds); ok {
					result.Evidence = append(result.Evidence, ev)
					m.GodStructures++
				}

				if !isTestPath(relPath) {
					for _, ev := range magicLiteralEvidence(art, text, literalMin) {
						result.Evidence = append(result.Evidence, ev)
						m.MagicLiterals++
					}
				}

				if !isDemoPath(relPath) {
					found := scanTodoMarkers(text, relPath)
					for i := range found {
						enrichTodoWithBlame(ctx, gitDir, gitRoot, absPath, relPath, &found[i])
						if ev, ok := todoEvidence(art, found[i], todoCutoffDays); ok {
							result.Evidence = append(result.Evidence, ev)
							m.TodoMarkers++
						}
					}
				}
			}
		}

		if docExtensions[ext] {
			if ev, ok := completeGuideEvidence(art, relPath); ok {
				result.Evidence = append(result.Evidence, ev)
				m.CompleteGuides++
			}
		}

		if opts.ProgressFunc != nil && m.FilesScanned%500 == 0 {
			opts.ProgressFunc(fmt.Sprintf("heuristic: scanned %d files", m.FilesScanned))
		}

		return nil
	})
	if walkErr != nil {
		return result, fmt.Errorf("walking repo: %w", walkErr)
	}

	c.metrics = m
	return result, nil
}

// isTestPath reports whether relPath is a test file, where magic-literal
// detection is suppressed per spec §4.1.1.
func isTestPath(relPath string) bool {
	base := filepath.Base(relPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	switch ext {
	case ".go":
		return len(name) > 5 && name[len(name)-5:] == "_test"
	default:
		return false
	}
}

// enrichTodoWithBlame populates Author/Timestamp on a found TODO marker via
// git blame, falling back to the file's mtime when blame is unavailable.
func enrichTodoWithBlame(ctx context.Context, gitDir, gitRoot, absPath, relPath string, m *todoMarker) {
	if gitDir == "" || m.Line <= 0 {
		if info, statErr := FS.Stat(absPath); statErr == nil {
			m.Timestamp = info.ModTime()
			m.Estimated = true
		}
		return
	}

	blameRelPath := relPath
	if gitRoot != "" {
		if rel, relErr := filepath.Rel(gitRoot, absPath); relErr == nil {
			blameRelPath = rel
		}
	}

	blameCtx, cancel := context.WithTimeout(ctx, gitcli.DefaultTimeout)
	defer cancel()

	bl, err := gitcli.BlameSingleLine(blameCtx, gitDir, filepath.ToSlash(blameRelPath), m.Line)
	if err != nil || bl == nil {
		if info, statErr := FS.Stat(absPath); statErr == nil {
			m.Timestamp = info.ModTime()
			m.Estimated = true
		}
		return
	}
	m.Timestamp = bl.AuthorTime
}

// Metrics returns structured metrics from the most recent Collect call.
func (c *HeuristicCollector) Metrics() any { return c.metrics }

// ageDays returns the whole number of days between t and now.
func ageDays(t time.Time) int {
	if t.IsZero() {
		return 0
	}
	return int(time.Since(t).Hours() / 24)
}

// Compile-time interface checks.
var _ collector.Collector = (*HeuristicCollector)(nil)
var _ collector.MetricsProvider = (*HeuristicCollector)(nil)
