// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package tooladapter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/athola/auditor/internal/artifact"
	"github.com/athola/auditor/internal/testable"
)

func init() {
	Register(NewStaticcheckAdapter())
}

// staticcheckDiagnostic mirrors the subset of staticcheck's `-f json` output
// this adapter consumes.
type staticcheckDiagnostic struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Location struct {
		File string `json:"file"`
	} `json:"location"`
}

// unusedCodes are the staticcheck diagnostic codes this adapter treats as
// zero_references-equivalent signals (U1000: unused identifier).
var unusedCodes = map[string]bool{
	"U1000": true,
}

// StaticcheckAdapter runs honnef.co/go/tools's staticcheck over the Go
// packages under a repository, translating its unused-identifier
// diagnostics into static_analysis signals (spec §4.1.3, §4.2).
type StaticcheckAdapter struct {
	executor testable.CommandExecutor
	version  string
}

// NewStaticcheckAdapter returns a StaticcheckAdapter using the real
// command executor.
func NewStaticcheckAdapter() *StaticcheckAdapter {
	return &StaticcheckAdapter{executor: testable.DefaultExecutor()}
}

// SetExecutor replaces the CommandExecutor used to invoke staticcheck.
// Intended for tests.
func (a *StaticcheckAdapter) SetExecutor(e testable.CommandExecutor) {
	if e == nil {
		e = testable.DefaultExecutor()
	}
	a.executor = e
}

// Name returns the adapter's registry key.
func (a *StaticcheckAdapter) Name() string { return "staticcheck" }

// IsAvailable reports whether the staticcheck binary is on PATH.
func (a *StaticcheckAdapter) IsAvailable(_ context.Context) bool {
	_, err := a.executor.LookPath("staticcheck")
	return err == nil
}

// Describe returns the adapter's name and the staticcheck binary's reported
// version, used as the cache key's version component.
func (a *StaticcheckAdapter) Describe(ctx context.Context) Description {
	if a.version != "" {
		return Description{Name: a.Name(), Version: a.version}
	}
	cmd := a.executor.CommandContext(ctx, "staticcheck", "-version")
	out, err := cmd.Output()
	version := "unknown"
	if err == nil {
		version = strings.TrimSpace(string(out))
	}
	a.version = version
	return Description{Name: a.Name(), Version: version}
}

// Analyze runs `staticcheck -f json ./...` at repoPath and maps its
// unused-identifier diagnostics to Findings. A non-zero exit is normal for
// staticcheck (it means diagnostics were reported) and is not treated as an
// error; only a failure to start the process, or a context cancellation, is.
func (a *StaticcheckAdapter) Analyze(ctx context.Context, repoPath string, artifacts []artifact.Artifact) (Result, error) {
	_ = artifacts
	cmd := a.executor.CommandContext(ctx, "staticcheck", "-f", "json", "./...")
	cmd.Dir = repoPath

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	runErr := cmd.Run()

	if ctx.Err() != nil {
		return Result{Partial: true}, ctx.Err()
	}
	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			return Result{}, runErr
		}
	}

	findings := make([]Finding, 0)
	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var diag staticcheckDiagnostic
		if err := json.Unmarshal(line, &diag); err != nil {
			continue // one malformed line never invalidates the rest
		}
		if !unusedCodes[diag.Code] {
			continue
		}
		findings = append(findings, Finding{
			ArtifactPath: filepath.ToSlash(diag.Location.File),
			SignalKind:   "unused_symbol",
			Weight:       0.7,
			Confidence:   0.75,
		})
	}

	return Result{Findings: findings}, nil
}

var _ Adapter = (*StaticcheckAdapter)(nil)
