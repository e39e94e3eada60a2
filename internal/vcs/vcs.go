// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

// Package vcs provides the reversible backup primitives the Remediation
// Executor requires (spec §4.6): a named snapshot branch at the current
// HEAD before the first destructive action of a session, and record-aware
// move/remove operations so a rollback is always just a reset to that
// snapshot. Read-only history access goes through go-git via
// internal/testable's mocking seam; working-tree mutations shell out to the
// git CLI via internal/gitcli, mirroring the teacher's own split between
// go-git (porcelain reads) and CLI (operations go-git doesn't cover).
package vcs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/athola/auditor/internal/auditerr"
	"github.com/athola/auditor/internal/gitcli"
	"github.com/athola/auditor/internal/testable"
)

// Repo wraps a git working tree rooted at Path, providing the snapshot and
// mutation primitives the executor composes into a remediation transaction.
type Repo struct {
	Path   string
	opener testable.GitOpener
}

// Open returns a Repo rooted at path, or auditerr.ErrNoVCS if path is not
// inside a git working tree. Scanning never requires a VCS (spec §4.1.2's
// graceful git_history fallback); only the executor calls Open.
func Open(path string) (*Repo, error) {
	return OpenWith(path, testable.DefaultGitOpener)
}

// OpenWith is Open with an injectable testable.GitOpener, for tests.
func OpenWith(path string, opener testable.GitOpener) (*Repo, error) {
	if _, err := opener.PlainOpen(path); err != nil {
		return nil, fmt.Errorf("%w: %s is not a git working tree: %v", auditerr.ErrNoVCS, path, err)
	}
	return &Repo{Path: path, opener: opener}, nil
}

// HeadCommit returns the current HEAD commit SHA.
func (r *Repo) HeadCommit() (string, error) {
	repo, err := r.opener.PlainOpen(r.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", auditerr.ErrNoVCS, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// DefaultSnapshotNamespace derives a unique backup branch name (spec
// §6.1's backup_namespace default: a fixed prefix plus a timestamp).
func DefaultSnapshotNamespace(now time.Time) string {
	return fmt.Sprintf("auditor-backup/%s", now.UTC().Format("20060102-150405"))
}

// CreateSnapshot creates a branch named namespace pointing at the current
// HEAD, without checking it out — an inspectable, durable backup pointer
// (spec §4.6's pre_state_ref) that a later ResetToSnapshot can restore.
func (r *Repo) CreateSnapshot(ctx context.Context, namespace string) error {
	if _, err := gitcli.Exec(ctx, r.Path, "branch", namespace, "HEAD"); err != nil {
		return fmt.Errorf("creating snapshot branch %s: %w", namespace, err)
	}
	return nil
}

// ResetToSnapshot hard-resets the working tree to namespace, restoring
// every tracked file to its pre-remediation state (spec §4.6's rollback
// and crash-recovery paths).
func (r *Repo) ResetToSnapshot(ctx context.Context, namespace string) error {
	if _, err := gitcli.Exec(ctx, r.Path, "reset", "--hard", namespace); err != nil {
		return fmt.Errorf("resetting to snapshot %s: %w", namespace, err)
	}
	return nil
}

// DeleteSnapshot removes the backup branch once a remediation session has
// fully committed and the backup is no longer needed. Deletion failures are
// non-fatal: an orphaned backup branch is inert, never rolled back
// accidentally.
func (r *Repo) DeleteSnapshot(ctx context.Context, namespace string) error {
	if _, err := gitcli.Exec(ctx, r.Path, "branch", "-D", namespace); err != nil {
		return fmt.Errorf("deleting snapshot branch %s: %w", namespace, err)
	}
	return nil
}

// Remove deletes paths through git rm, so the removal is staged and
// reversible by resetting to the session's snapshot (spec §4.6's DELETE
// action: "removes the artifact through the VCS").
func (r *Repo) Remove(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"rm", "-r", "-f", "--"}, paths...)
	if _, err := gitcli.Exec(ctx, r.Path, args...); err != nil {
		return fmt.Errorf("removing %s: %w", strings.Join(paths, ", "), err)
	}
	return nil
}

// Move relocates src to dst through git mv, used for ARCHIVE's "move under
// archive/" action.
func (r *Repo) Move(ctx context.Context, src, dst string) error {
	if _, err := gitcli.Exec(ctx, r.Path, "mv", src, dst); err != nil {
		return fmt.Errorf("moving %s to %s: %w", src, dst, err)
	}
	return nil
}

// Commit records the working tree's current staged state with message, used
// by the executor to checkpoint each applied action before verification.
func (r *Repo) Commit(ctx context.Context, message string) error {
	if _, err := gitcli.Exec(ctx, r.Path, "add", "-A"); err != nil {
		return fmt.Errorf("staging changes: %w", err)
	}
	if _, err := gitcli.Exec(ctx, r.Path, "commit", "--allow-empty", "-m", message); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// IsClean reports whether the working tree has no uncommitted changes.
func (r *Repo) IsClean(ctx context.Context) (bool, error) {
	out, err := gitcli.Exec(ctx, r.Path, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("checking working tree status: %w", err)
	}
	return strings.TrimSpace(out) == "", nil
}
