// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athola/auditor/internal/artifact"
	"github.com/athola/auditor/internal/collector"
	"github.com/athola/auditor/internal/model"
)

func evidence(artifactID string, confidence float64) model.Evidence {
	return model.Evidence{
		ArtifactID: artifactID,
		Source:     model.SourceHeuristic,
		SignalKind: "stale",
		Weight:     0.5,
		Confidence: confidence,
	}
}

// stubCollector implements collector.Collector for testing.
type stubCollector struct {
	name     string
	evidence []model.Evidence
	err      error
	delay    time.Duration
}

func (s *stubCollector) Name() string { return s.name }

func (s *stubCollector) Collect(_ context.Context, _ string, _ model.CollectorOpts) (collector.Result, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return collector.Result{Evidence: s.evidence}, s.err
}

var _ collector.Collector = (*stubCollector)(nil)

func TestPipeline_SingleCollector(t *testing.T) {
	stub := &stubCollector{
		name: "test",
		evidence: []model.Evidence{
			evidence("file:main.go", 0.9),
			evidence("file:lib.go", 0.7),
		},
	}

	p := NewWithCollectors(model.ScanConfig{Root: "/tmp/repo"}, []collector.Collector{stub}, nil)
	result, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Len(t, result.Evidence, 2)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "test", result.Results[0].Collector)
	assert.NoError(t, result.Results[0].Err)
}

func TestPipeline_MultipleCollectors(t *testing.T) {
	stub1 := &stubCollector{name: "heuristic", evidence: []model.Evidence{evidence("file:a.go", 0.8)}}
	stub2 := &stubCollector{name: "git_history", evidence: []model.Evidence{
		evidence("file:b.go", 0.6),
		evidence("file:c.go", 0.5),
	}}

	p := NewWithCollectors(model.ScanConfig{Root: "/tmp/repo"}, []collector.Collector{stub1, stub2}, nil)
	result, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Len(t, result.Evidence, 3)
	assert.Len(t, result.Results, 2)
}

func TestPipeline_CollectorErrorNeverAbortsOthers(t *testing.T) {
	errCollector := &stubCollector{name: "broken", err: errors.New("collector failed")}
	goodCollector := &stubCollector{name: "good", evidence: []model.Evidence{evidence("file:ok.go", 0.9)}}

	p := NewWithCollectors(model.ScanConfig{Root: "/tmp/repo"}, []collector.Collector{errCollector, goodCollector}, nil)
	result, err := p.Run(context.Background())

	require.NoError(t, err)
	require.Error(t, result.Results[0].Err)
	assert.Equal(t, "collector failed", result.Results[0].Err.Error())
	assert.Len(t, result.Evidence, 1)
}

func TestPipeline_InvalidEvidenceSkipped(t *testing.T) {
	stub := &stubCollector{
		name: "test",
		evidence: []model.Evidence{
			evidence("file:ok.go", 0.5),
			{ArtifactID: "", Source: model.SourceHeuristic, SignalKind: "stale", Confidence: 0.5},    // empty artifact ID
			{ArtifactID: "file:x.go", Source: "", SignalKind: "stale", Confidence: 0.5},              // empty source
			{ArtifactID: "file:x.go", Source: model.SourceHeuristic, SignalKind: "", Confidence: 0.5}, // empty signal kind
			{ArtifactID: "file:x.go", Source: model.SourceHeuristic, SignalKind: "stale", Confidence: 1.5}, // bad confidence
		},
	}

	p := NewWithCollectors(model.ScanConfig{Root: "/tmp/repo"}, []collector.Collector{stub}, nil)
	result, err := p.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, result.Evidence, 1)
	assert.Equal(t, "file:ok.go", result.Evidence[0].ArtifactID)
}

func TestPipeline_ArtifactsPassedThrough(t *testing.T) {
	stub := &stubCollector{name: "test"}
	art := artifact.Artifact{Path: "a.go", Kind: artifact.KindFile}

	wrapped := &collectorWithArtifacts{stubCollector: stub, artifacts: []artifact.Artifact{art}}

	p := NewWithCollectors(model.ScanConfig{Root: "/tmp/repo"}, []collector.Collector{wrapped}, nil)
	result, err := p.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, result.Artifacts, 1)
	assert.Equal(t, "a.go", result.Artifacts[0].Path)
}

type collectorWithArtifacts struct {
	*stubCollector
	artifacts []artifact.Artifact
}

func (c *collectorWithArtifacts) Collect(ctx context.Context, root string, opts model.CollectorOpts) (collector.Result, error) {
	res, err := c.stubCollector.Collect(ctx, root, opts)
	res.Artifacts = c.artifacts
	return res, err
}

func TestPipeline_TimingTracked(t *testing.T) {
	stub := &stubCollector{
		name:     "slow",
		delay:    50 * time.Millisecond,
		evidence: []model.Evidence{evidence("file:x.go", 0.5)},
	}

	p := NewWithCollectors(model.ScanConfig{Root: "/tmp/repo"}, []collector.Collector{stub}, nil)
	result, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Duration, 50*time.Millisecond)
	assert.GreaterOrEqual(t, result.Results[0].Duration, 50*time.Millisecond)
}

func TestPipeline_NoCollectors(t *testing.T) {
	p := NewWithCollectors(model.ScanConfig{Root: "/tmp/repo"}, nil, nil)
	result, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, result.Evidence)
	assert.Empty(t, result.Results)
}

type optsRecordingCollector struct {
	name         string
	evidence     []model.Evidence
	receivedOpts model.CollectorOpts
	captured     bool
}

func (o *optsRecordingCollector) Name() string { return o.name }

func (o *optsRecordingCollector) Collect(_ context.Context, _ string, opts model.CollectorOpts) (collector.Result, error) {
	o.receivedOpts = opts
	o.captured = true
	return collector.Result{Evidence: o.evidence}, nil
}

func TestPipeline_CollectorOptsPassedThrough(t *testing.T) {
	wrapper := &optsRecordingCollector{name: "capture", evidence: []model.Evidence{evidence("file:f.go", 0.5)}}

	config := model.ScanConfig{
		Root: "/tmp/repo",
		CollectorOpts: map[string]model.CollectorOpts{
			"capture": {MinConfidence: 0.5, IncludePatterns: []string{"*.go"}},
		},
	}

	p := NewWithCollectors(config, []collector.Collector{wrapper}, nil)
	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.True(t, wrapper.captured)
	assert.Equal(t, 0.5, wrapper.receivedOpts.MinConfidence)
	assert.Equal(t, []string{"*.go"}, wrapper.receivedOpts.IncludePatterns)
}

func TestPipeline_GlobalExclusionsPrependedToCollectorOpts(t *testing.T) {
	wrapper := &optsRecordingCollector{name: "capture", evidence: []model.Evidence{evidence("file:f.go", 0.5)}}

	config := model.ScanConfig{
		Root:       "/tmp/repo",
		Exclusions: []string{"tests/**", "docs/**"},
		CollectorOpts: map[string]model.CollectorOpts{
			"capture": {ExcludePatterns: []string{"build/**"}},
		},
	}

	p := NewWithCollectors(config, []collector.Collector{wrapper}, nil)
	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.True(t, wrapper.captured)

	want := []string{"tests/**", "docs/**", "build/**"}
	assert.Equal(t, want, wrapper.receivedOpts.ExcludePatterns)
}

func TestPipeline_ContextCancelled(t *testing.T) {
	cancelCollector := &contextAwareCollector{name: "ctx-aware"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewWithCollectors(model.ScanConfig{Root: "/tmp/repo"}, []collector.Collector{cancelCollector}, nil)
	result, err := p.Run(ctx)

	require.NoError(t, err)
	assert.Error(t, result.Results[0].Err)
}

type contextAwareCollector struct {
	name string
}

func (c *contextAwareCollector) Name() string { return c.name }

func (c *contextAwareCollector) Collect(ctx context.Context, _ string, _ model.CollectorOpts) (collector.Result, error) {
	select {
	case <-ctx.Done():
		return collector.Result{}, ctx.Err()
	default:
		return collector.Result{Evidence: []model.Evidence{evidence("file:x.go", 0.5)}}, nil
	}
}

func TestNew_UnknownCollector(t *testing.T) {
	config := model.ScanConfig{Root: "/tmp/repo", Collectors: []string{"nonexistent-collector"}}
	_, err := New(config, nil)
	require.Error(t, err)
}

func TestPipeline_ParallelExecution(t *testing.T) {
	stub1 := &stubCollector{name: "slow1", delay: 100 * time.Millisecond, evidence: []model.Evidence{evidence("file:a.go", 0.8)}}
	stub2 := &stubCollector{name: "slow2", delay: 100 * time.Millisecond, evidence: []model.Evidence{evidence("file:b.go", 0.7)}}

	p := NewWithCollectors(model.ScanConfig{Root: "/tmp/repo"}, []collector.Collector{stub1, stub2}, nil)

	start := time.Now()
	result, err := p.Run(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Len(t, result.Evidence, 2)
	assert.Less(t, elapsed, 180*time.Millisecond)
}

func TestPipeline_ParallelResultOrdering(t *testing.T) {
	fast := &stubCollector{name: "fast", evidence: []model.Evidence{evidence("file:f.go", 0.8)}}
	slow := &stubCollector{name: "slow", delay: 50 * time.Millisecond, evidence: []model.Evidence{evidence("file:s.go", 0.7)}}

	p := NewWithCollectors(model.ScanConfig{Root: "/tmp/repo"}, []collector.Collector{slow, fast}, nil)
	result, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "slow", result.Results[0].Collector)
	assert.Equal(t, "fast", result.Results[1].Collector)
}

type funcCollector struct {
	name string
	fn   func(ctx context.Context) (collector.Result, error)
}

func (f *funcCollector) Name() string { return f.name }

func (f *funcCollector) Collect(ctx context.Context, _ string, _ model.CollectorOpts) (collector.Result, error) {
	return f.fn(ctx)
}

func TestPipeline_ParallelContextCancellationGraceful(t *testing.T) {
	var started atomic.Int32

	blocking := &funcCollector{name: "blocking", fn: func(ctx context.Context) (collector.Result, error) {
		started.Add(1)
		<-ctx.Done()
		return collector.Result{}, ctx.Err()
	}}
	quick := &funcCollector{name: "quick", fn: func(ctx context.Context) (collector.Result, error) {
		started.Add(1)
		return collector.Result{Evidence: []model.Evidence{evidence("file:q.go", 0.5)}}, nil
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p := NewWithCollectors(model.ScanConfig{Root: "/tmp/repo"}, []collector.Collector{blocking, quick}, nil)
	_, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), started.Load())
}

func TestPipeline_DeduplicatesAcrossDifferentSources(t *testing.T) {
	stub1 := &stubCollector{name: "collector1", evidence: []model.Evidence{
		{ArtifactID: "file:a.go", Source: model.SourceHeuristic, SignalKind: "stale", Confidence: 0.7},
	}}
	stub2 := &stubCollector{name: "collector2", evidence: []model.Evidence{
		{ArtifactID: "file:a.go", Source: model.SourceGitHistory, SignalKind: "stale", Confidence: 0.9},
	}}

	p := NewWithCollectors(model.ScanConfig{Root: "/tmp/repo"}, []collector.Collector{stub1, stub2}, nil)
	result, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Len(t, result.Evidence, 2, "distinct sources must not be merged")
}

func TestPipeline_DeduplicatesSameSourceAndSignal(t *testing.T) {
	stub := &stubCollector{name: "collector", evidence: []model.Evidence{
		{ArtifactID: "file:a.go", Source: model.SourceHeuristic, SignalKind: "stale", Confidence: 0.5},
		{ArtifactID: "file:a.go", Source: model.SourceHeuristic, SignalKind: "stale", Confidence: 0.9},
	}}

	p := NewWithCollectors(model.ScanConfig{Root: "/tmp/repo"}, []collector.Collector{stub}, nil)
	result, err := p.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, result.Evidence, 1)
	assert.Equal(t, 0.9, result.Evidence[0].Confidence)
}

func TestResolveCollectors_UnknownName(t *testing.T) {
	collectors, err := resolveCollectors([]string{"does-not-exist"})
	assert.Nil(t, collectors)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown collector: "does-not-exist"`)
}

func TestResolveCollectors_EmptyRegistryReturnsEmpty(t *testing.T) {
	collectors, err := resolveCollectors(nil)
	require.NoError(t, err)
	names := make([]string, len(collectors))
	for i, c := range collectors {
		names[i] = c.Name()
	}
	assert.True(t, sort.StringsAreSorted(names))
}

func TestRunCollector_Timeout(t *testing.T) {
	slow := &funcCollector{name: "slow", fn: func(ctx context.Context) (collector.Result, error) {
		select {
		case <-ctx.Done():
			return collector.Result{}, ctx.Err()
		case <-time.After(500 * time.Millisecond):
			return collector.Result{Evidence: []model.Evidence{evidence("file:x.go", 0.5)}}, nil
		}
	}}

	config := model.ScanConfig{
		Root: "/tmp/repo",
		CollectorOpts: map[string]model.CollectorOpts{
			"slow": {Timeout: 50 * time.Millisecond},
		},
	}

	p := NewWithCollectors(config, []collector.Collector{slow}, nil)
	result, err := p.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.ErrorIs(t, result.Results[0].Err, context.DeadlineExceeded)
	assert.Empty(t, result.Evidence)
}

func TestRunCollector_NoTimeout(t *testing.T) {
	quick := &funcCollector{name: "quick", fn: func(_ context.Context) (collector.Result, error) {
		return collector.Result{Evidence: []model.Evidence{evidence("file:f.go", 0.5)}}, nil
	}}

	p := NewWithCollectors(model.ScanConfig{Root: "/tmp/repo"}, []collector.Collector{quick}, nil)
	result, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.NoError(t, result.Results[0].Err)
	assert.Len(t, result.Evidence, 1)
}
