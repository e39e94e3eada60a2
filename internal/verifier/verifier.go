// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

// Package verifier implements the Verifier contract (spec §6.6): an
// idempotent, side-effect-free check invoked between Apply and Commit. The
// core provides DefaultVerifier, which runs the project's declared build
// and test entry points; hosts may supply any other Verifier (e.g. a subset
// of tests for speed).
package verifier

import (
	"context"
	"time"

	"github.com/athola/auditor/internal/model"
	"github.com/athola/auditor/internal/testable"
)

// DefaultTimeout is the per-invocation timeout applied when the caller does
// not override it (spec §5, §6.1's verifier_timeout_seconds).
const DefaultTimeout = 900 * time.Second

// Verifier checks whether the working tree at repoPath still builds and
// passes its tests. Implementations must be idempotent and must not mutate
// repoPath.
type Verifier interface {
	Verify(ctx context.Context, repoPath string) model.VerifierResult
}

// Func adapts a plain function to the Verifier interface.
type Func func(ctx context.Context, repoPath string) model.VerifierResult

// Verify calls f.
func (f Func) Verify(ctx context.Context, repoPath string) model.VerifierResult {
	return f(ctx, repoPath)
}

// Command is one step of a DefaultVerifier pipeline: a program and
// arguments run with repoPath as the working directory.
type Command struct {
	Name string
	Args []string
}

// DefaultVerifier runs a configurable sequence of build/test Commands,
// stopping at the first failure. A step that exceeds Timeout is treated as
// a FAILED verification, never a panic (spec §7's Transient-error rule).
type DefaultVerifier struct {
	Steps    []Command
	Timeout  time.Duration
	executor testable.CommandExecutor
}

// NewDefaultVerifier returns a DefaultVerifier running steps in order,
// bounded by timeout (DefaultTimeout if zero).
func NewDefaultVerifier(steps []Command, timeout time.Duration) *DefaultVerifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DefaultVerifier{Steps: steps, Timeout: timeout, executor: testable.DefaultExecutor()}
}

// SetExecutor replaces the CommandExecutor used to run verification steps.
// Intended for tests.
func (v *DefaultVerifier) SetExecutor(e testable.CommandExecutor) {
	if e == nil {
		e = testable.DefaultExecutor()
	}
	v.executor = e
}

// Verify runs every configured step in repoPath, in order. Any step that
// fails (non-zero exit or timeout) yields VerifierFailed immediately,
// without running later steps — the executor only needs to know pass/fail,
// not which step failed (spec §6.6).
func (v *DefaultVerifier) Verify(ctx context.Context, repoPath string) model.VerifierResult {
	if len(v.Steps) == 0 {
		return model.VerifierSkipped
	}
	executor := v.executor
	if executor == nil {
		executor = testable.DefaultExecutor()
	}

	for _, step := range v.Steps {
		stepCtx, cancel := context.WithTimeout(ctx, v.Timeout)
		cmd := executor.CommandContext(stepCtx, step.Name, step.Args...)
		cmd.Dir = repoPath
		err := cmd.Run()
		cancel()
		if stepCtx.Err() != nil {
			return model.VerifierFailed
		}
		if err != nil {
			return model.VerifierFailed
		}
	}
	return model.VerifierPassed
}

// compile-time interface check.
var _ Verifier = (*DefaultVerifier)(nil)
var _ Verifier = Func(nil)
