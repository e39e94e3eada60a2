// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

// Package pipeline provides the scan orchestration engine for the bloat
// auditor. It resolves collectors, runs them concurrently, validates and
// deduplicates their Evidence, and aggregates the result into a ScanRun
// ready for internal/fusion.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/athola/auditor/internal/artifact"
	"github.com/athola/auditor/internal/collector"
	"github.com/athola/auditor/internal/model"
)

// RunResult captures one collector's outcome, kept for diagnostics.
type RunResult struct {
	Collector string
	Duration  time.Duration
	Err       error

	// Metrics is the collector's Metrics() return value when it implements
	// collector.MetricsProvider, nil otherwise.
	Metrics any
}

// ScanRun is the aggregated output of running every configured collector
// once: the deduplicated, validated Evidence plus the Artifacts discovered
// along the way, ready for internal/fusion.
type ScanRun struct {
	Artifacts []artifact.Artifact
	Evidence  []model.Evidence
	Results   []RunResult
	Duration  time.Duration
}

// Pipeline orchestrates the execution of collectors and aggregates results.
type Pipeline struct {
	config     model.ScanConfig
	collectors []collector.Collector
	logger     *slog.Logger
}

// New creates a Pipeline from the given ScanConfig. It resolves collectors
// from the global registry. If config.Collectors is empty, all registered
// collectors are used (sorted by name for deterministic ordering). Returns
// an error if a requested collector is not found in the registry.
func New(config model.ScanConfig, logger *slog.Logger) (*Pipeline, error) {
	collectors, err := resolveCollectors(config.Collectors)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{config: config, collectors: collectors, logger: logger}, nil
}

// NewWithCollectors creates a Pipeline with explicitly provided collectors,
// bypassing the global registry. This is primarily useful for testing.
func NewWithCollectors(config model.ScanConfig, collectors []collector.Collector, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{config: config, collectors: collectors, logger: logger}
}

// Run executes all configured collectors in parallel, validates their
// output, deduplicates Evidence, and returns the aggregated ScanRun. Each
// collector runs in its own goroutine using errgroup. A collector's error is
// always logged and never aborts the others (spec §4.1: a missing or
// failing collector must never invalidate another collector's output); Run
// itself only returns a non-nil error when ctx is cancelled or its deadline
// is exceeded.
func (p *Pipeline) Run(ctx context.Context) (*ScanRun, error) {
	start := time.Now()

	if len(p.collectors) == 0 {
		return &ScanRun{Duration: time.Since(start)}, nil
	}

	var (
		mu         sync.Mutex
		results    = make([]RunResult, len(p.collectors))
		rawResults = make([]collector.Result, len(p.collectors))
	)

	g, gctx := errgroup.WithContext(ctx)

	for i, c := range p.collectors {
		i, c := i, c // capture loop variables
		g.Go(func() error {
			res, runResult := p.runCollector(gctx, c)

			mu.Lock()
			results[i] = runResult
			rawResults[i] = res
			mu.Unlock()

			if runResult.Err != nil {
				if gctx.Err() != nil {
					return runResult.Err
				}
				p.logger.Warn("collector returned error", "collector", c.Name(), "error", runResult.Err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return &ScanRun{Results: results, Duration: time.Since(start)}, err
	}

	var allArtifacts []artifact.Artifact
	var allEvidence []model.Evidence
	for i, res := range rawResults {
		if results[i].Err != nil {
			continue
		}
		allArtifacts = append(allArtifacts, res.Artifacts...)
		minConfidence := p.config.CollectorOpts[p.collectors[i].Name()].MinConfidence
		for _, e := range res.Evidence {
			if errs := ValidateEvidence(e); len(errs) > 0 {
				p.logger.Warn("skipping invalid evidence",
					"collector", p.collectors[i].Name(),
					"artifact", e.ArtifactID,
					"errors", fmt.Sprint(errs))
				continue
			}
			if e.Confidence < minConfidence {
				continue
			}
			allEvidence = append(allEvidence, e)
		}
	}

	allEvidence = DeduplicateEvidence(allEvidence)

	return &ScanRun{
		Artifacts: allArtifacts,
		Evidence:  allEvidence,
		Results:   results,
		Duration:  time.Since(start),
	}, nil
}

// runCollector executes a single collector and captures its result and timing.
func (p *Pipeline) runCollector(ctx context.Context, c collector.Collector) (collector.Result, RunResult) {
	opts := p.config.CollectorOpts[c.Name()]

	// Prepend global exclude patterns so they apply to every collector.
	if len(p.config.Exclusions) > 0 {
		opts.ExcludePatterns = append(append([]string(nil), p.config.Exclusions...), opts.ExcludePatterns...)
	}
	if len(p.config.CorePaths) > 0 && opts.CorePaths == nil {
		opts.CorePaths = p.config.CorePaths
	}
	if opts.Timeout == 0 {
		opts.Timeout = p.config.ToolTimeout
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := c.Collect(ctx, p.config.Root, opts)

	var metrics any
	if provider, ok := c.(collector.MetricsProvider); ok {
		metrics = provider.Metrics()
	}

	return res, RunResult{
		Collector: c.Name(),
		Duration:  time.Since(start),
		Err:       err,
		Metrics:   metrics,
	}
}

// resolveCollectors looks up collectors by name from the global registry.
// If names is empty, all registered collectors are returned in sorted order.
func resolveCollectors(names []string) ([]collector.Collector, error) {
	if len(names) == 0 {
		allNames := collector.List()
		sort.Strings(allNames)
		collectors := make([]collector.Collector, len(allNames))
		for i, name := range allNames {
			collectors[i] = collector.Get(name)
		}
		return collectors, nil
	}

	collectors := make([]collector.Collector, len(names))
	for i, name := range names {
		c := collector.Get(name)
		if c == nil {
			return nil, fmt.Errorf("unknown collector: %q", name)
		}
		collectors[i] = c
	}
	return collectors, nil
}
