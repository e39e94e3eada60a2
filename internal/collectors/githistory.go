// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package collectors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/athola/auditor/internal/artifact"
	"github.com/athola/auditor/internal/collector"
	"github.com/athola/auditor/internal/model"
)

// maxCommitWalk is the default upper bound on commits examined per scan.
const maxCommitWalk = 1000

// churnWindowDays is the look-back window for the churn-suppression term.
const churnWindowDays = 90

// stalenessFloorDays / stalenessCeilDays bound the linear staleness ramp:
// weight = clamp((days-floor)/(ceil-floor), 0, 1) — 6 months to 2 years,
// per spec §4.1.2.
const (
	stalenessFloorDays = 180
	stalenessCeilDays  = 720
)

// churnSuppressionCap is the commit count at which churn fully suppresses
// staleness weight (weight *= 1 - min(churn/cap, 1)).
const churnSuppressionCap = 20

// orphanMinAgeDays is the minimum age for a single-commit file to qualify
// as an orphan.
const orphanMinAgeDays = 365

func init() {
	collector.Register(&GitHistoryCollector{})
}

// GitHistoryMetrics holds structured metrics from a git-history pass.
type GitHistoryMetrics struct {
	FilesTracked     int
	StaleFiles       int
	OrphanFiles      int
	SingleAuthorOnly int
	Unavailable      bool
}

// GitHistoryCollector computes per-file staleness, churn-suppression,
// author-dispersion, and orphan signals from the repository's commit log.
type GitHistoryCollector struct {
	metrics *GitHistoryMetrics
}

// Name returns the collector name used for registration and filtering.
func (c *GitHistoryCollector) Name() string { return "git_history" }

// fileHistory accumulates per-file facts from a single commit walk.
type fileHistory struct {
	lastModified    time.Time
	commitsInWindow int
	totalMods       int
	authors         map[string]bool
	firstCommitHash string
	firstCommitTime time.Time
}

// Collect walks the repository's commit log and emits staleness, churn,
// author-dispersion, and orphan Evidence per file. If no VCS is present it
// emits zero Evidence and marks itself unavailable (spec §4.1.2).
func (c *GitHistoryCollector) Collect(ctx context.Context, repoPath string, opts model.CollectorOpts) (collector.Result, error) {
	gitRoot := repoPath
	if opts.GitRoot != "" {
		gitRoot = opts.GitRoot
	}

	repo, err := git.PlainOpen(gitRoot)
	if err != nil {
		c.metrics = &GitHistoryMetrics{Unavailable: true}
		return collector.Result{}, nil //nolint:nilerr // no VCS present is not a collector failure
	}

	histories, walkErr := c.walkCommits(ctx, repo, opts)
	if walkErr != nil {
		return collector.Result{}, fmt.Errorf("walking commits: %w", walkErr)
	}

	var result collector.Result
	m := &GitHistoryMetrics{FilesTracked: len(histories)}

	paths := make([]string, 0, len(histories))
	for p := range histories {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		h := histories[path]
		art := artifact.Artifact{Path: path, Kind: artifact.KindFile, InboundRefs: -1}
		result.Artifacts = append(result.Artifacts, art)

		days := ageDays(h.lastModified)
		staleWeight := clamp01(float64(days-stalenessFloorDays) / float64(stalenessCeilDays-stalenessFloorDays))
		churnSuppression := 1.0 - clamp01(float64(h.commitsInWindow)/float64(churnSuppressionCap))
		weight := staleWeight * churnSuppression

		if weight > 0 {
			result.Evidence = append(result.Evidence, model.Evidence{
				ArtifactID:      art.ID(),
				Source:          model.SourceGitHistory,
				SignalKind:      "staleness",
				Weight:          weight,
				Confidence:      0.8,
				DetectorVersion: "git-history-v1",
				Observed: model.ObservedValue{
					Tag:       model.ObservedStaleness,
					Staleness: &model.StalenessObserved{DaysSinceLastCommit: days},
				},
			})
			m.StaleFiles++
		}

		result.Evidence = append(result.Evidence, model.Evidence{
			ArtifactID:      art.ID(),
			Source:          model.SourceGitHistory,
			SignalKind:      "churn",
			Weight:          clamp01(float64(h.commitsInWindow) / float64(churnSuppressionCap)),
			Confidence:      0.9,
			DetectorVersion: "git-history-v1",
			Observed: model.ObservedValue{
				Tag:   model.ObservedChurn,
				Churn: &model.ChurnObserved{CommitsLast90Days: h.commitsInWindow},
			},
		})

		if len(h.authors) == 1 && weight >= 0.6 {
			result.Evidence = append(result.Evidence, model.Evidence{
				ArtifactID:      art.ID(),
				Source:          model.SourceGitHistory,
				SignalKind:      "author_dispersion",
				Weight:          weight,
				Confidence:      0.6,
				DetectorVersion: "git-history-v1",
				Observed: model.ObservedValue{
					Tag:              model.ObservedAuthorDispersion,
					AuthorDispersion: &model.AuthorDispersionObserved{DistinctAuthors: len(h.authors)},
				},
			})
			m.SingleAuthorOnly++
		}

		if h.totalMods == 1 && ageDays(h.firstCommitTime) >= orphanMinAgeDays {
			result.Evidence = append(result.Evidence, model.Evidence{
				ArtifactID:      art.ID(),
				Source:          model.SourceGitHistory,
				SignalKind:      "orphan",
				Weight:          0.9,
				Confidence:      0.8,
				DetectorVersion: "git-history-v1",
				Observed: model.ObservedValue{
					Tag: model.ObservedOrphan,
					Orphan: &model.OrphanObserved{
						AddedCommit: h.firstCommitHash,
						AgeDays:     ageDays(h.firstCommitTime),
					},
				},
			})
			m.OrphanFiles++
		}
	}

	c.metrics = m
	return result, nil
}

// errStopIter signals the commit iterator to stop after reaching maxWalk.
var errStopIter = errors.New("stop iteration")

// walkCommits iterates HEAD's log newest-first (up to maxWalk commits) and
// accumulates per-file history facts.
func (c *GitHistoryCollector) walkCommits(ctx context.Context, repo *git.Repository, opts model.CollectorOpts) (map[string]*fileHistory, error) {
	head, err := repo.Head()
	if err != nil {
		return map[string]*fileHistory{}, nil //nolint:nilerr // empty repo or detached HEAD with no commits
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("creating log iterator: %w", err)
	}

	maxWalk := maxCommitWalk
	churnWindow := time.Now().AddDate(0, 0, -churnWindowDays)
	histories := make(map[string]*fileHistory)
	count := 0

	iterErr := iter.ForEach(func(commit *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if count >= maxWalk {
			return errStopIter
		}
		count++
		if opts.ProgressFunc != nil && count%100 == 0 {
			opts.ProgressFunc(fmt.Sprintf("git_history: examined %d commits", count))
		}

		files, filesErr := commitFiles(commit)
		if filesErr != nil {
			return nil //nolint:nilerr // skip commits whose diff can't be computed
		}

		author := commit.Author.Name
		inWindow := commit.Committer.When.After(churnWindow)

		for _, name := range files {
			h, ok := histories[name]
			if !ok {
				h = &fileHistory{authors: make(map[string]bool)}
				histories[name] = h
			}
			if h.lastModified.IsZero() {
				h.lastModified = commit.Committer.When
			}
			h.totalMods++
			h.authors[author] = true
			if inWindow {
				h.commitsInWindow++
			}
			h.firstCommitHash = commit.Hash.String()
			h.firstCommitTime = commit.Committer.When
		}

		return nil
	})
	if iterErr != nil && iterErr != errStopIter && !errors.Is(iterErr, plumbing.ErrObjectNotFound) {
		return nil, iterErr
	}

	return histories, nil
}

// commitFiles returns the names of files touched by commit, relative to the
// repo root. Root commits (no parent) report every file in their tree as
// touched, since there is nothing to diff against.
func commitFiles(commit *object.Commit) ([]string, error) {
	if commit.NumParents() == 0 {
		tree, err := commit.Tree()
		if err != nil {
			return nil, err
		}
		var names []string
		walkErr := tree.Files().ForEach(func(f *object.File) error {
			names = append(names, f.Name)
			return nil
		})
		if walkErr != nil {
			return nil, walkErr
		}
		return names, nil
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return nil, err
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, err
	}
	commitTree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	changes, err := parentTree.Diff(commitTree)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(changes))
	for _, ch := range changes {
		name := ch.To.Name
		if name == "" {
			name = ch.From.Name
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// Metrics returns structured metrics from the most recent Collect call.
func (c *GitHistoryCollector) Metrics() any { return c.metrics }

// Compile-time interface checks.
var _ collector.Collector = (*GitHistoryCollector)(nil)
var _ collector.MetricsProvider = (*GitHistoryCollector)(nil)
