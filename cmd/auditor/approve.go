// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/athola/auditor/internal/executor"
	"github.com/athola/auditor/internal/model"
)

// interactiveApprover is the default DecisionRequester for `auditor
// remediate`: it prompts the operator with a huh.Select form per Finding
// (spec §6.2's decision set), one form per call so each transaction's
// context (artifact, score, recommendation) is fresh on screen.
type interactiveApprover struct{}

var _ executor.DecisionRequester = interactiveApprover{}

func (interactiveApprover) RequestDecision(_ context.Context, finding model.Finding) (executor.Decision, error) {
	var choice string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title(fmt.Sprintf("%s  (score %.1f, %s risk)", finding.PrimaryArtifactID, finding.BloatScore, finding.RiskTier)).
				Description(describeFinding(finding)),
			huh.NewSelect[string]().
				Title("Apply this remediation?").
				Options(
					huh.NewOption("Approve", string(executor.DecisionApprove)),
					huh.NewOption(fmt.Sprintf("Approve all %s-risk findings", finding.RiskTier), string(executor.DecisionApproveAllOfTier)),
					huh.NewOption("Inspect diff first", string(executor.DecisionInspectDiff)),
					huh.NewOption("Skip this finding", string(executor.DecisionSkip)),
					huh.NewOption("Abort remediation session", string(executor.DecisionAbort)),
				).
				Value(&choice),
		),
	)

	if err := form.Run(); err != nil {
		return executor.Decision{}, fmt.Errorf("approval prompt: %w", err)
	}

	return executor.Decision{Kind: executor.DecisionKind(choice)}, nil
}

func describeFinding(finding model.Finding) string {
	recommendation := fmt.Sprintf("Recommendation: %s", finding.Recommendation)
	if finding.Rationale == "" {
		return recommendation
	}
	return recommendation + "\n" + finding.Rationale
}
