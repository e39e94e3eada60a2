// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

// Package scanstate persists delta-scan state so --delta can report only
// Findings newly introduced since the previous scan. It is additive to
// internal/reportstore: a Report is always written in full; scanstate only
// remembers which finding_ids it already contained.
package scanstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"

	"github.com/athola/auditor/internal/model"
)

// dir is the directory name within a repo where delta-scan state lives.
const dir = ".auditor"

// file is the filename for the persisted state.
const file = "last-scan.json"

// schemaVersion is the current state file schema version.
const schemaVersion = "1"

// FindingMeta stores enough of a Finding to render a human-readable diff
// without re-reading the full Scan Report.
type FindingMeta struct {
	ID                 string  `json:"finding_id"`
	PrimaryArtifactID  string  `json:"primary_artifact_id"`
	DominantSignalKind string  `json:"dominant_signal_kind"`
	BloatScore         float64 `json:"bloat_score"`
	Severity           string  `json:"severity"`
}

// State is persisted scan state from a previous run.
type State struct {
	Version       string        `json:"version"`
	ScanTimestamp time.Time     `json:"scan_timestamp"`
	GitHead       string        `json:"git_head"`
	FindingIDs    []string      `json:"finding_ids"`
	FindingMetas  []FindingMeta `json:"finding_metas,omitempty"`
}

// Diff holds the comparison between two scans' Findings.
type Diff struct {
	Added   []FindingMeta // findings in current but not previous
	Removed []FindingMeta // findings in previous but not current (resolved)
	Moved   []MovedFinding
}

// MovedFinding pairs a removed and an added Finding sharing the same
// DominantSignalKind whose primary artifact changed path.
type MovedFinding struct {
	Previous FindingMeta
	Current  FindingMeta
}

// Load reads the delta-scan state from <repoPath>/.auditor/last-scan.json.
// A missing file is not an error: it returns (nil, nil), meaning no prior
// state exists and every Finding is new.
func Load(repoPath string) (*State, error) {
	path := filepath.Join(repoPath, dir, file)
	data, err := os.ReadFile(path) //nolint:gosec // operator-controlled repo path
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes state to <repoPath>/.auditor/last-scan.json, creating the
// directory if necessary.
func Save(repoPath string, s *State) error {
	target := filepath.Join(repoPath, dir)
	if err := os.MkdirAll(target, 0o750); err != nil {
		return fmt.Errorf("creating delta-scan state directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling delta-scan state: %w", err)
	}
	return os.WriteFile(filepath.Join(target, file), data, 0o644) //nolint:gosec // state file, not secret
}

// Build captures a new State from a completed Scan Report's Findings.
func Build(repoPath string, findings []model.Finding) *State {
	ids := make([]string, 0, len(findings))
	metas := make([]FindingMeta, 0, len(findings))
	for _, f := range findings {
		ids = append(ids, f.ID)
		metas = append(metas, FindingMeta{
			ID:                 f.ID,
			PrimaryArtifactID:  f.PrimaryArtifactID,
			DominantSignalKind: f.DominantSignalKind,
			BloatScore:         f.BloatScore,
			Severity:           string(f.Severity),
		})
	}
	sort.Strings(ids)
	return &State{
		Version:       schemaVersion,
		ScanTimestamp: time.Now().UTC(),
		GitHead:       resolveHead(repoPath),
		FindingIDs:    ids,
		FindingMetas:  metas,
	}
}

// FilterNew returns only the Findings whose finding_id was not present in
// prev. If prev is nil, every Finding is considered new.
func FilterNew(findings []model.Finding, prev *State) []model.Finding {
	if prev == nil || len(prev.FindingIDs) == 0 {
		out := make([]model.Finding, len(findings))
		copy(out, findings)
		return out
	}
	seen := make(map[string]struct{}, len(prev.FindingIDs))
	for _, id := range prev.FindingIDs {
		seen[id] = struct{}{}
	}
	var out []model.Finding
	for _, f := range findings {
		if _, ok := seen[f.ID]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// ComputeDiff compares previous and current state, classifying Findings as
// added, removed, or moved. A removed and an added Finding sharing a
// DominantSignalKind whose PrimaryArtifactID differs are reported as moved
// rather than as an independent add/remove pair.
func ComputeDiff(prev, current *State) *Diff {
	result := &Diff{}
	if prev == nil || current == nil {
		return result
	}

	prevByID := make(map[string]FindingMeta, len(prev.FindingMetas))
	for _, m := range prev.FindingMetas {
		prevByID[m.ID] = m
	}
	curByID := make(map[string]FindingMeta, len(current.FindingMetas))
	for _, m := range current.FindingMetas {
		curByID[m.ID] = m
	}

	var rawAdded, rawRemoved []FindingMeta
	for _, m := range current.FindingMetas {
		if _, ok := prevByID[m.ID]; !ok {
			rawAdded = append(rawAdded, m)
		}
	}
	for _, m := range prev.FindingMetas {
		if _, ok := curByID[m.ID]; !ok {
			rawRemoved = append(rawRemoved, m)
		}
	}

	addedByKind := make(map[string][]int, len(rawAdded))
	for i, m := range rawAdded {
		addedByKind[m.DominantSignalKind] = append(addedByKind[m.DominantSignalKind], i)
	}

	movedAdded := make(map[int]bool)
	movedRemoved := make(map[int]bool)
	for ri, rm := range rawRemoved {
		for _, ai := range addedByKind[rm.DominantSignalKind] {
			if movedAdded[ai] {
				continue
			}
			am := rawAdded[ai]
			if am.PrimaryArtifactID != rm.PrimaryArtifactID {
				result.Moved = append(result.Moved, MovedFinding{Previous: rm, Current: am})
				movedAdded[ai] = true
				movedRemoved[ri] = true
				break
			}
		}
	}

	for i, m := range rawAdded {
		if !movedAdded[i] {
			result.Added = append(result.Added, m)
		}
	}
	for i, m := range rawRemoved {
		if !movedRemoved[i] {
			result.Removed = append(result.Removed, m)
		}
	}
	return result
}

// FormatDiff writes a human-readable delta-scan summary to w.
func FormatDiff(d *Diff, w io.Writer) error {
	added, removed, moved := len(d.Added), len(d.Removed), len(d.Moved)
	if added == 0 && removed == 0 && moved == 0 {
		_, err := fmt.Fprintln(w, "Delta scan summary: no changes")
		return err
	}

	if _, err := fmt.Fprintln(w, "Delta scan summary:"); err != nil {
		return err
	}
	if added > 0 {
		if _, err := fmt.Fprintf(w, "  + %d new finding(s)\n", added); err != nil {
			return err
		}
	}
	if removed > 0 {
		if _, err := fmt.Fprintf(w, "  - %d resolved finding(s)\n", removed); err != nil {
			return err
		}
	}
	if moved > 0 {
		if _, err := fmt.Fprintf(w, "  ~ %d moved finding(s)\n", moved); err != nil {
			return err
		}
	}

	if added > 0 {
		if _, err := fmt.Fprintln(w, "\nNew findings:"); err != nil {
			return err
		}
		for _, m := range d.Added {
			if _, err := fmt.Fprintf(w, "  + [%s] %s (score %.0f)\n", m.DominantSignalKind, m.PrimaryArtifactID, m.BloatScore); err != nil {
				return err
			}
		}
	}
	if removed > 0 {
		if _, err := fmt.Fprintln(w, "\nResolved findings:"); err != nil {
			return err
		}
		for _, m := range d.Removed {
			if _, err := fmt.Fprintf(w, "  - [%s] %s\n", m.DominantSignalKind, m.PrimaryArtifactID); err != nil {
				return err
			}
		}
	}
	if moved > 0 {
		if _, err := fmt.Fprintln(w, "\nMoved findings:"); err != nil {
			return err
		}
		for _, mv := range d.Moved {
			if _, err := fmt.Fprintf(w, "  ~ [%s] %s -> %s\n", mv.Current.DominantSignalKind, mv.Previous.PrimaryArtifactID, mv.Current.PrimaryArtifactID); err != nil {
				return err
			}
		}
	}
	return nil
}

func resolveHead(repoPath string) string {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	return head.Hash().String()
}
