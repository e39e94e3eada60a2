// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

// Package tooladapter implements the Tool Adapter Layer contract (spec
// §4.2): a uniform seam between the scan pipeline and external static
// analysis tools. Each Adapter declares its own availability and version,
// is invoked under a bounded timeout, and has its results disk-cached by
// (adapter_version, content_hash_of_input_set) so repeated scans of an
// unchanged tree never re-invoke the underlying tool.
package tooladapter

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/athola/auditor/internal/artifact"
)

// Description is an adapter's static self-description (spec §4.2's
// describe()).
type Description struct {
	Name    string
	Version string
}

// Finding is one signal an Adapter extracted about one artifact, expressed
// independently of internal/model so this package never imports the fusion
// domain types directly; internal/collectors/staticanalysis.go translates
// Findings into model.Evidence.
type Finding struct {
	ArtifactPath string
	SymbolName   string
	SignalKind   string
	Weight       float64
	Confidence   float64
}

// Result is one Analyze() invocation's output.
type Result struct {
	Findings []Finding

	// Partial marks a Result produced by a run that hit its timeout or
	// otherwise only completed part of its analysis (spec §4.2's
	// timeout-to-partial rule).
	Partial bool
}

// Adapter is the contract every external static-analysis tool integration
// implements (spec §4.2).
type Adapter interface {
	// Name is the adapter's registry key, e.g. "staticcheck".
	Name() string

	// IsAvailable reports whether the adapter's underlying tool can be
	// invoked in the current environment (binary on PATH, reachable
	// service, etc).
	IsAvailable(ctx context.Context) bool

	// Describe returns the adapter's name and the version string used in
	// cache keys, so an upgraded tool never serves a stale cache entry.
	Describe(ctx context.Context) Description

	// Analyze runs the underlying tool over artifacts rooted at repoPath.
	Analyze(ctx context.Context, repoPath string, artifacts []artifact.Artifact) (Result, error)
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Adapter)
)

// Register adds an adapter to the global registry. It panics if an adapter
// with the same name is already registered, mirroring internal/collector's
// registration discipline.
func Register(a Adapter) {
	mu.Lock()
	defer mu.Unlock()
	name := a.Name()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("tool adapter already registered: %s", name))
	}
	registry[name] = a
}

// List returns every registered adapter name.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the registered adapter named name, or nil.
func Get(name string) Adapter {
	mu.RLock()
	defer mu.RUnlock()
	return registry[name]
}

// ContentHash derives the cache key's input-set component from a sorted,
// stable digest of the artifacts' own content hashes, so the cache
// invalidates exactly when any analyzed artifact's content changes.
func ContentHash(artifacts []artifact.Artifact) string {
	hashes := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		hashes = append(hashes, a.Path+"\x00"+a.ContentHash)
	}
	sort.Strings(hashes)
	joined := ""
	for _, h := range hashes {
		joined += h + "\x01"
	}
	return artifact.Hash(joined)
}
