// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package collectors

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/athola/auditor/internal/artifact"
	"github.com/athola/auditor/internal/collector"
	"github.com/athola/auditor/internal/model"
	"github.com/athola/auditor/internal/tooladapter"
)

func init() {
	collector.Register(NewStaticAnalysisCollector(""))
}

// maxConcurrentAdapters bounds how many tool adapters run at once (spec
// §4.2's bounded-parallel-invocation rule).
func maxConcurrentAdapters() int {
	n := runtime.NumCPU()
	if n > 4 {
		return 4
	}
	if n < 1 {
		return 1
	}
	return n
}

// StaticAnalysisMetrics surfaces per-adapter availability for the Scan
// Report's tool_availability map (spec §6.4, §6.5).
type StaticAnalysisMetrics struct {
	Availability map[string]model.ToolAvailability
}

// StaticAnalysisCollector is the bridge between the scan pipeline and the
// Tool Adapter Layer (spec §4.2): it walks the repository once for Go
// source artifacts, then runs every registered, available tooladapter in
// parallel (bounded concurrency, disk-cached by content hash), translating
// their Findings into static_analysis Evidence.
type StaticAnalysisCollector struct {
	cacheDir string
	metrics  *StaticAnalysisMetrics
}

// NewStaticAnalysisCollector returns a collector caching adapter results
// under cacheDir. An empty cacheDir disables caching (every scan re-invokes
// every available adapter).
func NewStaticAnalysisCollector(cacheDir string) *StaticAnalysisCollector {
	return &StaticAnalysisCollector{cacheDir: cacheDir}
}

// Name returns the collector name used for registration and filtering.
func (c *StaticAnalysisCollector) Name() string { return "static_analysis" }

// Metrics implements collector.MetricsProvider.
func (c *StaticAnalysisCollector) Metrics() any { return c.metrics }

// Collect discovers Go source artifacts, then fans the available adapters
// out over them. A missing or timed-out adapter is recorded in
// tool_availability and never blocks the others (spec §4.2).
func (c *StaticAnalysisCollector) Collect(ctx context.Context, repoPath string, opts model.CollectorOpts) (collector.Result, error) {
	excludes := mergeExcludes(opts.ExcludePatterns)
	artifacts, err := goSourceArtifacts(repoPath, excludes, opts.IncludePatterns)
	if err != nil {
		return collector.Result{}, err
	}

	metrics := &StaticAnalysisMetrics{Availability: make(map[string]model.ToolAvailability)}
	c.metrics = metrics

	names := tooladapter.List()
	if len(names) == 0 {
		return collector.Result{Artifacts: artifacts}, nil
	}

	var cache *tooladapter.Cache
	if c.cacheDir != "" {
		cache, _ = tooladapter.NewCache(c.cacheDir)
	}

	var (
		mu       sync.Mutex
		evidence []model.Evidence
	)
	byPath := artifactIndex(artifacts)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentAdapters())

	for _, name := range names {
		name := name
		adapter := tooladapter.Get(name)
		g.Go(func() error {
			ev, avail := c.runAdapter(gctx, adapter, repoPath, artifacts, byPath, cache)
			mu.Lock()
			metrics.Availability[name] = avail
			evidence = append(evidence, ev...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return collector.Result{Artifacts: artifacts, Evidence: evidence}, nil
}

// runAdapter invokes one adapter, consulting and populating the cache, and
// never returns an error: adapter failures degrade to an unavailable/
// partial tool_availability entry (spec §7's Transient-error rule — a
// failing adapter is never fatal to the scan).
func (c *StaticAnalysisCollector) runAdapter(
	ctx context.Context,
	adapter tooladapter.Adapter,
	repoPath string,
	artifacts []artifact.Artifact,
	byPath map[string]artifact.Artifact,
	cache *tooladapter.Cache,
) ([]model.Evidence, model.ToolAvailability) {
	if !adapter.IsAvailable(ctx) {
		reason := "not found on PATH"
		return nil, model.ToolAvailability{Available: false, Reason: &reason}
	}

	desc := adapter.Describe(ctx)
	version := desc.Version
	contentHash := tooladapter.ContentHash(artifacts)

	if cache != nil {
		if cached, ok := cache.Get(adapter.Name(), version, contentHash); ok {
			return translateFindings(adapter.Name(), version, cached, byPath), availabilityFor(version, cached.Partial)
		}
	}

	result, err := adapter.Analyze(ctx, repoPath, artifacts)
	if err != nil {
		if ctx.Err() != nil {
			reason := "timed out"
			return nil, model.ToolAvailability{Available: true, Version: &version, Partial: true, Reason: &reason}
		}
		reason := err.Error()
		return nil, model.ToolAvailability{Available: true, Version: &version, Reason: &reason}
	}

	if cache != nil {
		_ = cache.Put(adapter.Name(), version, contentHash, result)
	}

	return translateFindings(adapter.Name(), version, result, byPath), availabilityFor(version, result.Partial)
}

func availabilityFor(version string, partial bool) model.ToolAvailability {
	return model.ToolAvailability{Available: true, Version: &version, Partial: partial}
}

// translateFindings maps tooladapter.Finding values (adapter-agnostic) into
// model.Evidence (spec domain), tagging Partial evidence so Fusion applies
// the partiality penalty (spec §4.3).
func translateFindings(adapterName, version string, result tooladapter.Result, byPath map[string]artifact.Artifact) []model.Evidence {
	evidence := make([]model.Evidence, 0, len(result.Findings))
	for _, f := range result.Findings {
		art, ok := byPath[f.ArtifactPath]
		if !ok {
			continue
		}
		evidence = append(evidence, model.Evidence{
			ArtifactID: art.ID(),
			Source:     model.SourceStaticAnalysis,
			SignalKind: f.SignalKind,
			Weight:     f.Weight,
			Confidence: f.Confidence,
			Observed: model.ObservedValue{
				Tag: model.ObservedUnusedSymbol,
				UnusedSymbol: &model.UnusedSymbolObserved{
					SymbolName:         f.SymbolName,
					RawConfidence:      f.Confidence,
					TextualRefsChecked: false,
				},
			},
			DetectorVersion: adapterName + "/" + version,
			Partial:         result.Partial,
		})
	}
	return evidence
}

func artifactIndex(artifacts []artifact.Artifact) map[string]artifact.Artifact {
	byPath := make(map[string]artifact.Artifact, len(artifacts))
	for _, a := range artifacts {
		byPath[a.Path] = a
	}
	return byPath
}

// goSourceArtifacts walks repoPath for .go files, building the Artifact set
// adapters analyze. Static analysis in this build targets Go sources only;
// other-language adapters would extend this the same way.
func goSourceArtifacts(repoPath string, excludes, includes []string) ([]artifact.Artifact, error) {
	var artifacts []artifact.Artifact
	err := walkSourceFiles(repoPath, excludes, includes, func(absPath, relPath string, _ os.DirEntry) error {
		if filepath.Ext(relPath) != ".go" {
			return nil
		}
		info, statErr := FS.Stat(absPath)
		if statErr != nil {
			return nil
		}
		data, readErr := os.ReadFile(absPath) //nolint:gosec // repo-relative source path
		if readErr != nil {
			return nil
		}
		artifacts = append(artifacts, artifact.Artifact{
			Path:        filepath.ToSlash(relPath),
			Kind:        artifact.KindFile,
			ByteSize:    info.Size(),
			ModTime:     info.ModTime(),
			ContentHash: artifact.Hash(string(data)),
			InboundRefs: -1,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return artifacts, nil
}
