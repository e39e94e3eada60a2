// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/modfile"

	"github.com/athola/auditor/internal/artifact"
	"github.com/athola/auditor/internal/collector"
	"github.com/athola/auditor/internal/model"
)

func init() {
	collector.Register(&DependencyCollector{})
}

// dependencyConfidence is the confidence assigned to an unused_dependency
// Evidence item when no textual reference to the package was found anywhere
// outside its own manifest (spec §4.1.5: "emit HIGH-confidence
// unused_dependency Evidence").
const dependencyConfidence = 0.85

// dependencyWeight is this signal's noisy-OR weight.
const dependencyWeight = 0.8

// DependencyMetrics holds structured metrics from a dependency pass.
type DependencyMetrics struct {
	ManifestsScanned int
	Declared         int
	Unused           int
}

// DependencyCollector discovers declared external dependencies across the
// ecosystems internal/workspace already distinguishes between
// (Go, npm/pnpm/lerna/nx, Cargo), then tests whether any source artifact
// still references each one before emitting unused_dependency Evidence
// (spec §4.1.5).
type DependencyCollector struct {
	metrics *DependencyMetrics
}

// Name returns the collector name used for registration and filtering.
func (c *DependencyCollector) Name() string { return "dependency" }

// declaredDependency is one dependency found in a manifest, independent of
// ecosystem.
type declaredDependency struct {
	Name     string
	Manifest string
	DevOnly  bool
}

// Collect parses every manifest it recognizes under repoPath, then greps the
// rest of the tree for a textual reference to each declared package. A
// dependency with zero references outside its own manifest is reported as
// unused.
func (c *DependencyCollector) Collect(ctx context.Context, repoPath string, opts model.CollectorOpts) (collector.Result, error) {
	metrics := &DependencyMetrics{}
	c.metrics = metrics

	deps, manifestArtifacts, err := discoverManifests(repoPath)
	if err != nil {
		return collector.Result{}, fmt.Errorf("discovering manifests: %w", err)
	}
	metrics.ManifestsScanned = len(manifestArtifacts)
	metrics.Declared = len(deps)

	if len(deps) == 0 {
		return collector.Result{Artifacts: manifestArtifacts}, nil
	}

	sourceText, err := concatenateSourceText(ctx, repoPath, manifestPaths(manifestArtifacts))
	if err != nil {
		return collector.Result{}, fmt.Errorf("reading source tree: %w", err)
	}

	artifacts := append([]artifact.Artifact(nil), manifestArtifacts...)
	evidence := make([]model.Evidence, 0, len(deps))

	for _, dep := range deps {
		if ctx.Err() != nil {
			return collector.Result{}, ctx.Err()
		}
		art := dependencyArtifact(dep)
		artifacts = append(artifacts, art)

		if referenced(sourceText, dep.Name) {
			continue
		}
		metrics.Unused++
		evidence = append(evidence, model.Evidence{
			ArtifactID: art.ID(),
			Source:     model.SourceDependency,
			SignalKind: "unused_dependency",
			Weight:     dependencyWeight,
			Confidence: dependencyConfidence,
			Observed: model.ObservedValue{
				Tag: model.ObservedUnusedDependency,
				UnusedDependency: &model.UnusedDependencyObserved{
					DependencyName: dep.Name,
					Manifest:       dep.Manifest,
					DevOnly:        dep.DevOnly,
				},
			},
			DetectorVersion: dependencyDetectorVersion,
		})
	}

	return collector.Result{Artifacts: artifacts, Evidence: evidence}, nil
}

// Metrics implements collector.MetricsProvider.
func (c *DependencyCollector) Metrics() any { return c.metrics }

const dependencyDetectorVersion = "dependency/v1"

func dependencyArtifact(dep declaredDependency) artifact.Artifact {
	return artifact.Artifact{
		Path:        dep.Name,
		Kind:        artifact.KindDependency,
		Name:        dep.Name,
		ContentHash: artifact.Hash(dep.Manifest + "\x00" + dep.Name),
	}
}

func manifestPaths(artifacts []artifact.Artifact) map[string]bool {
	set := make(map[string]bool, len(artifacts))
	for _, a := range artifacts {
		set[a.Path] = true
	}
	return set
}

// discoverManifests walks repoPath looking for go.mod, package.json, and
// Cargo.toml/pyproject.toml manifests, returning every declared dependency
// plus an Artifact for each manifest file found.
func discoverManifests(repoPath string) ([]declaredDependency, []artifact.Artifact, error) {
	var deps []declaredDependency
	var manifests []artifact.Artifact

	err := filepath.WalkDir(repoPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == "node_modules" || d.Name() == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(repoPath, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		switch d.Name() {
		case "go.mod":
			found, ferr := parseGoMod(path, rel)
			if ferr != nil {
				return nil // a malformed manifest is skipped, not fatal (spec §7 Transient)
			}
			deps = append(deps, found...)
			manifests = append(manifests, manifestArtifact(path, rel))
		case "package.json":
			found, ferr := parsePackageJSON(path, rel)
			if ferr != nil {
				return nil
			}
			deps = append(deps, found...)
			manifests = append(manifests, manifestArtifact(path, rel))
		case "Cargo.toml":
			found, ferr := parseCargoToml(path, rel)
			if ferr != nil {
				return nil
			}
			deps = append(deps, found...)
			manifests = append(manifests, manifestArtifact(path, rel))
		case "pyproject.toml":
			found, ferr := parsePyProjectToml(path, rel)
			if ferr != nil {
				return nil
			}
			deps = append(deps, found...)
			manifests = append(manifests, manifestArtifact(path, rel))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return deps, manifests, nil
}

func manifestArtifact(path, rel string) artifact.Artifact {
	info, err := os.Stat(path)
	var size int64
	if err == nil {
		size = info.Size()
	}
	return artifact.Artifact{Path: rel, Kind: artifact.KindFile, ByteSize: size}
}

func parseGoMod(path, rel string) ([]declaredDependency, error) {
	data, err := os.ReadFile(path) //nolint:gosec // repo-relative manifest path
	if err != nil {
		return nil, err
	}
	mf, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil, err
	}
	deps := make([]declaredDependency, 0, len(mf.Require))
	for _, req := range mf.Require {
		deps = append(deps, declaredDependency{Name: req.Mod.Path, Manifest: rel, DevOnly: req.Indirect})
	}
	return deps, nil
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func parsePackageJSON(path, rel string) ([]declaredDependency, error) {
	data, err := os.ReadFile(path) //nolint:gosec // repo-relative manifest path
	if err != nil {
		return nil, err
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	deps := make([]declaredDependency, 0, len(pkg.Dependencies)+len(pkg.DevDependencies))
	for name := range pkg.Dependencies {
		deps = append(deps, declaredDependency{Name: name, Manifest: rel})
	}
	for name := range pkg.DevDependencies {
		deps = append(deps, declaredDependency{Name: name, Manifest: rel, DevOnly: true})
	}
	return deps, nil
}

type cargoToml struct {
	Dependencies    map[string]toml.Primitive `toml:"dependencies"`
	DevDependencies map[string]toml.Primitive `toml:"dev-dependencies"`
}

func parseCargoToml(path, rel string) ([]declaredDependency, error) {
	data, err := os.ReadFile(path) //nolint:gosec // repo-relative manifest path
	if err != nil {
		return nil, err
	}
	var doc cargoToml
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, err
	}
	deps := make([]declaredDependency, 0, len(doc.Dependencies)+len(doc.DevDependencies))
	for name := range doc.Dependencies {
		deps = append(deps, declaredDependency{Name: name, Manifest: rel})
	}
	for name := range doc.DevDependencies {
		deps = append(deps, declaredDependency{Name: name, Manifest: rel, DevOnly: true})
	}
	return deps, nil
}

type pyProjectToml struct {
	Project struct {
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
}

func parsePyProjectToml(path, rel string) ([]declaredDependency, error) {
	data, err := os.ReadFile(path) //nolint:gosec // repo-relative manifest path
	if err != nil {
		return nil, err
	}
	var doc pyProjectToml
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, err
	}
	deps := make([]declaredDependency, 0, len(doc.Project.Dependencies))
	for _, spec := range doc.Project.Dependencies {
		name := strings.FieldsFunc(spec, func(r rune) bool {
			return r == '=' || r == '<' || r == '>' || r == '~' || r == '!' || r == ' ' || r == '['
		})
		if len(name) == 0 {
			continue
		}
		deps = append(deps, declaredDependency{Name: name[0], Manifest: rel})
	}
	return deps, nil
}

// concatenateSourceText reads every non-manifest, non-binary file under
// repoPath into one buffer that referenced() can substring-search. This is
// a heuristic (spec §4.1.5 permits a textual reference check, not a full
// import-graph resolver) — it over-counts references inside comments and
// strings, which only makes the collector more conservative about flagging
// unused_dependency.
func concatenateSourceText(ctx context.Context, repoPath string, manifests map[string]bool) (string, error) {
	var b strings.Builder
	err := filepath.WalkDir(repoPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == "node_modules" || d.Name() == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(repoPath, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if manifests[rel] || isBinaryFile(path) {
			return nil
		}
		data, readErr := os.ReadFile(path) //nolint:gosec // repo-relative source path
		if readErr != nil {
			return nil // unreadable file never blocks the scan
		}
		b.Write(data)
		b.WriteByte('\n')
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

func referenced(sourceText, depName string) bool {
	return strings.Contains(sourceText, depName)
}
