// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

// Package executor implements the Remediation Executor's state machine
// (spec §4.6): it reads a Scan Report, requests operator approval per
// Finding, backs up, applies, verifies, and either commits or rolls back,
// recording every transition to an append-only audit log.
package executor

import (
	"context"

	"github.com/athola/auditor/internal/model"
)

// DecisionKind is the operator's response to a single finding's approval
// prompt (spec §6.2).
type DecisionKind string

const (
	DecisionApprove          DecisionKind = "approve"
	DecisionApproveAllOfTier DecisionKind = "approve_all_of_tier"
	DecisionInspectDiff      DecisionKind = "inspect_diff"
	DecisionSkip             DecisionKind = "skip"
	DecisionAbort            DecisionKind = "abort"
)

// Decision is the value a DecisionRequester returns for one Finding.
type Decision struct {
	Kind DecisionKind
}

// DecisionRequester is the single callback contract the Executor exposes to
// its host (spec §6.2). Implementations may surface this via any channel
// (interactive TTY, structured prompt, scripted policy) — the core imposes
// no prompt format and only requires the callback be synchronous with
// respect to the current transaction.
type DecisionRequester interface {
	RequestDecision(ctx context.Context, finding model.Finding) (Decision, error)
}

// DecisionFunc adapts a plain function to DecisionRequester.
type DecisionFunc func(ctx context.Context, finding model.Finding) (Decision, error)

// RequestDecision calls f.
func (f DecisionFunc) RequestDecision(ctx context.Context, finding model.Finding) (Decision, error) {
	return f(ctx, finding)
}

// AutoApprove is a DecisionRequester that always approves — useful for
// scripted/non-interactive policies layered on top of Options.AutoApprove,
// or for tests.
var AutoApprove DecisionRequester = DecisionFunc(func(_ context.Context, _ model.Finding) (Decision, error) {
	return Decision{Kind: DecisionApprove}, nil
})

var _ DecisionRequester = DecisionFunc(nil)
