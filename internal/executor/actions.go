// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package executor

import (
	"context"
	"fmt"
	"path"

	"github.com/athola/auditor/internal/model"
	"github.com/athola/auditor/internal/vcs"
)

// actionResult reports what applyAction did so the caller can decide
// whether a commit and verification are warranted at all.
type actionResult struct {
	mutated bool
	message string
	reason  string
}

// applyAction performs the working-tree mutation for finding.Recommendation
// (spec §4.6's per-action semantics). It never commits: the caller commits
// once, after every affected artifact has been staged, so a single
// transaction covers the whole action.
func applyAction(ctx context.Context, repo *vcs.Repo, finding model.Finding, archivePrefix string) (actionResult, error) {
	switch finding.Recommendation {
	case model.RecommendDelete:
		return applyDelete(ctx, repo, finding)
	case model.RecommendConsolidate:
		return applyConsolidate(finding)
	case model.RecommendRefactor:
		return applyRefactor(finding)
	case model.RecommendArchive:
		return applyArchive(ctx, repo, finding, archivePrefix)
	case model.RecommendKeep:
		return actionResult{mutated: false, reason: "no action: recommendation is KEEP"}, nil
	default:
		return actionResult{}, fmt.Errorf("unknown recommendation %q", finding.Recommendation)
	}
}

// applyDelete removes every affected artifact path through the VCS so the
// removal is staged and reversible (spec §4.6 DELETE).
func applyDelete(ctx context.Context, repo *vcs.Repo, finding model.Finding) (actionResult, error) {
	paths := artifactPaths(finding)
	if err := repo.Remove(ctx, paths...); err != nil {
		return actionResult{}, fmt.Errorf("deleting %v: %w", paths, err)
	}
	return actionResult{
		mutated: true,
		message: fmt.Sprintf("audit: delete %s", finding.PrimaryArtifactID),
	}, nil
}

// applyConsolidate merges a near-duplicate group into its canonical member.
// This executor has no inbound-reference rewriter, so every consolidation is
// treated as carrying ambiguous references: the tree is left untouched and
// the finding is recorded as requiring manual action, the same outcome a
// REFACTOR without a patch gets. The recommendation itself is not changed.
func applyConsolidate(finding model.Finding) (actionResult, error) {
	return actionResult{
		mutated: false,
		reason:  "requires manual action: consolidation needs inbound-reference rewriting this executor does not perform",
	}, nil
}

// applyRefactor only mutates the tree when an adapter supplied an auto-fix
// patch. This build carries no patch-producing adapters, so REFACTOR always
// records a manual-action reason without touching the working tree (spec
// §4.6: "otherwise the executor records the finding as requires manual
// action and moves on without mutating the tree").
func applyRefactor(finding model.Finding) (actionResult, error) {
	return actionResult{
		mutated: false,
		reason:  "requires manual action: no auto-fix patch available for this finding",
	}, nil
}

// applyArchive moves the primary artifact under archivePrefix through git
// mv, preserving history while removing it from the active tree (spec
// §4.6 ARCHIVE).
func applyArchive(ctx context.Context, repo *vcs.Repo, finding model.Finding, archivePrefix string) (actionResult, error) {
	if archivePrefix == "" {
		archivePrefix = defaultArchivePrefix
	}
	src := primaryPath(finding)
	dst := path.Join(archivePrefix, src)
	if err := repo.Move(ctx, src, dst); err != nil {
		return actionResult{}, fmt.Errorf("archiving %s: %w", src, err)
	}
	return actionResult{
		mutated: true,
		message: fmt.Sprintf("audit: archive %s", finding.PrimaryArtifactID),
	}, nil
}

const defaultArchivePrefix = "archive"

// artifactPaths strips the "kind:" prefix artifact.ID() adds, returning bare
// repo-relative paths suitable for git operations.
func artifactPaths(finding model.Finding) []string {
	paths := make([]string, 0, len(finding.AffectedArtifacts))
	for _, id := range finding.AffectedArtifacts {
		paths = append(paths, stripKindPrefix(id))
	}
	return paths
}

func primaryPath(finding model.Finding) string {
	return stripKindPrefix(finding.PrimaryArtifactID)
}

// stripKindPrefix turns "file:internal/foo.go" into "internal/foo.go". IDs
// without a recognized kind prefix are returned unchanged.
func stripKindPrefix(id string) string {
	for _, prefix := range []string{"file:", "symbol:", "doc:", "dependency:"} {
		if len(id) > len(prefix) && id[:len(prefix)] == prefix {
			return id[len(prefix):]
		}
	}
	return id
}
