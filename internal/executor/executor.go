// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/athola/auditor/internal/artifact"
	"github.com/athola/auditor/internal/audit"
	"github.com/athola/auditor/internal/model"
	"github.com/athola/auditor/internal/vcs"
	"github.com/athola/auditor/internal/verifier"
)

// nowFunc is overridable in tests that need deterministic timestamps.
var nowFunc = time.Now

// Options configures an Executor's policy decisions. None are required;
// the zero value asks the operator about every finding and never
// auto-approves.
type Options struct {
	// CorePaths are re-checked at remediation time against the Executor's
	// own Repo, independent of whatever the report's Finding.RiskTier
	// already reflects (spec §4.4: "re-checked at remediation time").
	CorePaths []string

	// ArchivePrefix is the directory ARCHIVE moves artifacts under.
	// Defaults to "archive".
	ArchivePrefix string

	// AutoApprove, when non-nil, is consulted before asking the operator.
	// Returning true approves the finding without a RequestDecision call.
	AutoApprove func(model.Finding) bool

	// AbortOnVerifyFailure halts the whole session the first time a
	// verification fails: that finding is still rolled back, but no later
	// finding is attempted.
	AbortOnVerifyFailure bool
}

// Executor runs a remediation session against one VCS-backed working tree
// (spec §4.6). It is not safe for concurrent use by multiple goroutines;
// a remediation session is inherently sequential.
type Executor struct {
	Repo      *vcs.Repo
	Verifier  verifier.Verifier
	Requester DecisionRequester
	AuditLog  *audit.Log
	Options   Options

	sessionSnapshot string
	approvedTiers   map[model.RiskTier]bool
}

// New builds an Executor from its required collaborators.
func New(repo *vcs.Repo, v verifier.Verifier, requester DecisionRequester, log *audit.Log, opts Options) *Executor {
	return &Executor{
		Repo:      repo,
		Verifier:  v,
		Requester: requester,
		AuditLog:  log,
		Options:   opts,
	}
}

// Result is what RunSession returns: every transaction attempted, in the
// order they were processed.
type Result struct {
	Transactions []model.RemediationTransaction
	Aborted      bool
}

// errSessionAborted is returned internally to unwind RunSession's loop when
// the operator chooses Abort. It never escapes RunSession.
var errSessionAborted = errors.New("remediation session aborted by operator")

// RunSession resumes any in-flight transactions left by a prior crashed
// session, then walks report.Findings in risk-ascending, path-ascending
// order, driving each through the PRECHECKED -> BACKED_UP -> APPLIED ->
// VERIFIED -> COMMITTED pipeline (spec §4.6).
func (e *Executor) RunSession(ctx context.Context, report model.ScanReport) (Result, error) {
	if err := e.recoverInFlight(ctx); err != nil {
		return Result{}, fmt.Errorf("recovering in-flight transactions: %w", err)
	}

	findings := orderedFindings(report.Findings)
	var result Result

	for _, finding := range findings {
		if ctx.Err() != nil {
			result.Aborted = true
			break
		}

		tx, err := e.runFinding(ctx, finding)
		if err != nil {
			if errors.Is(err, errSessionAborted) {
				result.Transactions = append(result.Transactions, tx)
				result.Aborted = true
				break
			}
			return result, fmt.Errorf("finding %s: %w", finding.ID, err)
		}
		result.Transactions = append(result.Transactions, tx)

		if tx.Outcome == model.OutcomeRolledBack && e.Options.AbortOnVerifyFailure {
			result.Aborted = true
			break
		}
	}

	return result, nil
}

// orderedFindings drops KEEP findings (there is nothing for the executor to
// do with them) and sorts the rest by ascending RiskTier, then
// alphabetically by primary artifact path within a tier (spec §4.6
// Ordering).
func orderedFindings(findings []model.Finding) []model.Finding {
	ordered := make([]model.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Recommendation == model.RecommendKeep {
			continue
		}
		ordered = append(ordered, f)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.RiskTier != b.RiskTier {
			return a.RiskTier.Less(b.RiskTier)
		}
		return a.PrimaryArtifactID < b.PrimaryArtifactID
	})
	return ordered
}

// runFinding drives a single Finding through the whole state machine,
// writing an audit.Entry at every transition.
func (e *Executor) runFinding(ctx context.Context, finding model.Finding) (model.RemediationTransaction, error) {
	tx := model.RemediationTransaction{
		FindingID:   finding.ID,
		ActionTaken: finding.Recommendation,
		State:       model.StateLoaded,
		WallClock:   nowFunc(),
	}
	e.logState(tx, "", "")

	currentHash, staleErr := e.precheck(finding)
	tx.PreHash = currentHash
	if staleErr != nil {
		tx.State = model.StateStale
		tx.Outcome = model.OutcomeSkippedStale
		tx.Reason = staleErr.Error()
		e.logState(tx, "", tx.Reason)
		return tx, nil
	}
	tx.State = model.StatePrechecked
	e.logState(tx, "", "")

	if reason, blocked := e.checkCorePolicy(finding); blocked {
		tx.Outcome = model.OutcomeAborted
		tx.Reason = reason
		e.logState(tx, "", reason)
		return tx, nil
	}

	decision, err := e.decideFor(ctx, finding)
	if err != nil {
		return tx, fmt.Errorf("requesting decision: %w", err)
	}
	tx.OperatorDecision = string(decision.Kind)

	switch decision.Kind {
	case DecisionAbort:
		tx.Outcome = model.OutcomeAborted
		tx.Reason = "operator aborted the session"
		e.logState(tx, string(decision.Kind), tx.Reason)
		return tx, errSessionAborted
	case DecisionSkip:
		tx.Outcome = model.OutcomeSkippedByOperator
		e.logState(tx, string(decision.Kind), "")
		return tx, nil
	}

	if err := e.backup(ctx, &tx); err != nil {
		return tx, fmt.Errorf("backing up before %s: %w", finding.ID, err)
	}

	applied, err := applyAction(ctx, e.Repo, finding, e.Options.ArchivePrefix)
	if err != nil {
		return tx, fmt.Errorf("applying action for %s: %w", finding.ID, err)
	}
	tx.Reason = applied.reason

	if !applied.mutated {
		tx.State = model.StateApplied
		tx.Outcome = model.OutcomeAborted
		e.logState(tx, "", tx.Reason)
		return tx, nil
	}

	if err := e.Repo.Commit(ctx, applied.message); err != nil {
		return tx, fmt.Errorf("committing %s: %w", finding.ID, err)
	}
	tx.State = model.StateApplied
	e.logState(tx, "", "")

	postHash, _ := e.currentHash(finding)
	tx.PostHash = postHash

	verdict := e.Verifier.Verify(ctx, e.Repo.Path)
	tx.VerifierResult = verdict
	tx.State = model.StateVerified
	e.logState(tx, "", "")

	if verdict == model.VerifierFailed {
		if err := e.Repo.ResetToSnapshot(ctx, tx.PreStateRef); err != nil {
			return tx, fmt.Errorf("rolling back %s: %w", finding.ID, err)
		}
		tx.State = model.StateRolledBack
		tx.Outcome = model.OutcomeRolledBack
		tx.Reason = "verification failed after applying action"
		e.logState(tx, "", tx.Reason)
		return tx, nil
	}

	tx.State = model.StateCommitted
	tx.Outcome = model.OutcomeApplied
	e.logState(tx, "", "")
	return tx, nil
}

// precheck recomputes the primary artifact's content hash and compares it
// against the hash the Finding was scored with (spec §3's staleness
// invariant). A missing file is itself grounds for staleness: something
// else already removed it since the scan.
func (e *Executor) precheck(finding model.Finding) (string, error) {
	hash, err := e.currentHash(finding)
	if err != nil {
		return "", fmt.Errorf("artifact %s missing or unreadable: %w", finding.PrimaryArtifactID, err)
	}
	if finding.PrimaryArtifactHash != "" && hash != finding.PrimaryArtifactHash {
		return hash, fmt.Errorf("artifact %s changed since scan (hash %s, expected %s)", finding.PrimaryArtifactID, hash, finding.PrimaryArtifactHash)
	}
	return hash, nil
}

func (e *Executor) currentHash(finding model.Finding) (string, error) {
	full := filepath.Join(e.Repo.Path, primaryPath(finding))
	data, err := os.ReadFile(full) //nolint:gosec // path is repo-relative, operator-controlled
	if err != nil {
		return "", err
	}
	return artifact.Hash(string(data)), nil
}

// checkCorePolicy re-applies the core-path protection at remediation time,
// independent of whatever the report already decided (spec §4.4). A DELETE
// recommendation against a core path is refused outright here (CONSOLIDATE
// never mutates the tree in this executor, see applyConsolidate); the
// aggregator would already have downgraded such a DELETE, so reaching this
// branch means the report is stale relative to the operator's current
// core-path declarations.
func (e *Executor) checkCorePolicy(finding model.Finding) (string, bool) {
	if finding.Recommendation != model.RecommendDelete {
		return "", false
	}
	if !matchesCorePath(primaryPath(finding), e.Options.CorePaths) {
		return "", false
	}
	return "policy: primary artifact matches a core path; refusing DELETE", true
}

// matchesCorePath mirrors internal/aggregator's matchesAnyCorePath so the
// same core-path declarations protect an artifact identically at scan time
// and at remediation time.
func matchesCorePath(p string, globs []string) bool {
	clean := filepath.ToSlash(p)
	for _, g := range globs {
		g = filepath.ToSlash(g)
		if prefix, ok := strings.CutSuffix(g, "/**"); ok {
			if clean == prefix || strings.HasPrefix(clean, prefix+"/") {
				return true
			}
			continue
		}
		if matched, _ := filepath.Match(g, clean); matched {
			return true
		}
		if matched, _ := filepath.Match(g, filepath.Base(clean)); matched {
			return true
		}
	}
	return false
}

// decideFor consults the session's per-tier auto-approve memory, then the
// Options.AutoApprove policy, before falling back to the DecisionRequester.
// DecisionInspectDiff re-asks once, since this executor renders no diff
// itself; a host wanting richer inspection implements that in its
// DecisionRequester instead.
func (e *Executor) decideFor(ctx context.Context, finding model.Finding) (Decision, error) {
	if e.approvedTiers == nil {
		e.approvedTiers = make(map[model.RiskTier]bool)
	}
	if e.approvedTiers[finding.RiskTier] {
		return Decision{Kind: DecisionApprove}, nil
	}
	if e.Options.AutoApprove != nil && e.Options.AutoApprove(finding) {
		return Decision{Kind: DecisionApprove}, nil
	}

	decision, err := e.Requester.RequestDecision(ctx, finding)
	if err != nil {
		return Decision{}, err
	}
	if decision.Kind == DecisionInspectDiff {
		decision, err = e.Requester.RequestDecision(ctx, finding)
		if err != nil {
			return Decision{}, err
		}
	}
	if decision.Kind == DecisionApproveAllOfTier {
		e.approvedTiers[finding.RiskTier] = true
		decision.Kind = DecisionApprove
	}
	return decision, nil
}

// backup lazily creates the session's one backup branch on first use, then
// records the finding's pre-action HEAD SHA as its own rollback point — a
// single finding's rollback never disturbs prior findings already committed
// in this session (spec §4.6's BACKED_UP state).
func (e *Executor) backup(ctx context.Context, tx *model.RemediationTransaction) error {
	if e.sessionSnapshot == "" {
		namespace := vcs.DefaultSnapshotNamespace(nowFunc())
		if err := e.Repo.CreateSnapshot(ctx, namespace); err != nil {
			return fmt.Errorf("%w: %v", errBackupFailed, err)
		}
		e.sessionSnapshot = namespace
	}

	sha, err := e.Repo.HeadCommit()
	if err != nil {
		return fmt.Errorf("%w: %v", errBackupFailed, err)
	}
	tx.PreStateRef = sha
	tx.State = model.StateBackedUp
	e.logState(*tx, "", "")
	return nil
}

var errBackupFailed = errors.New("backup failed")

// recoverInFlight rolls back any transaction a prior session left in
// BACKED_UP or APPLIED state without a later terminal transition, using the
// PreStateRef it recorded (spec §4.6's crash-safety rule).
func (e *Executor) recoverInFlight(ctx context.Context) error {
	if e.AuditLog == nil {
		return nil
	}
	entries, err := audit.ReadAll(e.AuditLog.Path())
	if err != nil {
		return err
	}

	lastByFinding := map[string]audit.Entry{}
	for _, entry := range entries {
		lastByFinding[entry.FindingID] = entry
	}

	for findingID, last := range lastByFinding {
		if last.State != model.StateBackedUp && last.State != model.StateApplied {
			continue
		}
		if last.PreHash == "" {
			continue
		}
		ref := last.PreHash
		if err := e.Repo.ResetToSnapshot(ctx, ref); err != nil {
			return fmt.Errorf("resuming %s: resetting to %s: %w", findingID, ref, err)
		}
		if err := e.AuditLog.Write(audit.Entry{
			Timestamp: nowFunc(),
			FindingID: findingID,
			State:     model.StateRolledBack,
			Reason:    "rolled back on resume: session crashed mid-transaction",
		}); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) logState(tx model.RemediationTransaction, decision, reason string) {
	if e.AuditLog == nil {
		return
	}
	if decision == "" {
		decision = tx.OperatorDecision
	}
	if reason == "" {
		reason = tx.Reason
	}
	_ = e.AuditLog.Write(audit.Entry{
		Timestamp:        nowFunc(),
		FindingID:        tx.FindingID,
		State:            tx.State,
		OperatorDecision: decision,
		PreHash:          tx.PreStateRef,
		PostHash:         tx.PostHash,
		VerifierOutcome:  tx.VerifierResult,
		Reason:           reason,
	})
}
