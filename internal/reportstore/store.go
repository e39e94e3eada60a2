// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

// Package reportstore persists Scan Reports as self-contained, portable
// documents (spec §4.5, §6.4) so a scan and a later remediation session can
// run independently. Writes are atomic (write-then-rename, directory
// fsynced before return); Reports never mutate after write.
package reportstore

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/athola/auditor/internal/auditerr"
	"github.com/athola/auditor/internal/model"
)

// ErrIncompatibleSchema is returned by Read when a report's schema_version
// differs from model.SchemaVersion. It is auditerr's Structural sentinel of
// the same name.
var ErrIncompatibleSchema = auditerr.ErrIncompatibleSchema

// Store persists ScanReports under a directory, one JSON file per report
// named "<scan_id>.json".
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating report store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// NewScanID returns a fresh UUID v4 for a new scan (spec §3).
func NewScanID() string {
	return uuid.NewString()
}

// Write sorts report.Findings by the fusion tie-break rule (already
// guaranteed by internal/aggregator, re-sorted here defensively so
// reportstore never depends on caller discipline), computes its content
// digest, and writes it atomically: write to a temp file in the same
// directory, fsync it, rename over the final path, then fsync the
// directory (spec §4.5).
func (s *Store) Write(report model.ScanReport) (digest string, err error) {
	sortFindings(report.Findings)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}

	digest = ContentDigest(report)

	finalPath := s.path(report.ScanID)
	tmp, err := os.CreateTemp(s.dir, ".tmp-report-*")
	if err != nil {
		return "", fmt.Errorf("creating temp report file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup; no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return "", fmt.Errorf("writing temp report file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return "", fmt.Errorf("fsyncing temp report file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp report file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming report into place: %w", err)
	}
	if err := fsyncDir(s.dir); err != nil {
		return "", fmt.Errorf("fsyncing report store directory: %w", err)
	}

	return digest, nil
}

// Read loads and validates a report by scan ID or file path. It rejects a
// report whose SchemaVersion major differs from model.SchemaVersion as a
// Structural error (spec §7, §6.4).
func (s *Store) Read(scanIDOrPath string) (model.ScanReport, error) {
	path := scanIDOrPath
	if !strings.HasSuffix(path, ".json") {
		path = s.path(scanIDOrPath)
	}

	data, err := os.ReadFile(path) //nolint:gosec // operator-controlled report store path
	if err != nil {
		return model.ScanReport{}, fmt.Errorf("reading report: %w", err)
	}

	var report model.ScanReport
	if err := json.Unmarshal(data, &report); err != nil {
		return model.ScanReport{}, fmt.Errorf("parsing report: %w", err)
	}
	if report.SchemaVersion != model.SchemaVersion {
		return model.ScanReport{}, fmt.Errorf("%w: report schema_version %d, expected %d",
			ErrIncompatibleSchema, report.SchemaVersion, model.SchemaVersion)
	}
	return report, nil
}

// ListBackups returns the scan IDs of every report currently stored,
// newest first by file modification time.
func (s *Store) ListBackups() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading report store directory: %w", err)
	}

	type stamped struct {
		id      string
		modTime time.Time
	}
	var stampedEntries []stamped
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		stampedEntries = append(stampedEntries, stamped{
			id:      strings.TrimSuffix(e.Name(), ".json"),
			modTime: info.ModTime(),
		})
	}
	sort.Slice(stampedEntries, func(i, j int) bool { return stampedEntries[i].modTime.After(stampedEntries[j].modTime) })

	ids := make([]string, len(stampedEntries))
	for i, se := range stampedEntries {
		ids[i] = se.id
	}
	return ids, nil
}

// Prune deletes reports older than cutoff, returning the scan IDs removed.
func (s *Store) Prune(cutoff time.Time) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading report store directory: %w", err)
	}

	var removed []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			id := strings.TrimSuffix(e.Name(), ".json")
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
				return removed, fmt.Errorf("pruning report %s: %w", id, err)
			}
			removed = append(removed, id)
		}
	}
	return removed, nil
}

func (s *Store) path(scanID string) string {
	return filepath.Join(s.dir, scanID+".json")
}

// ContentDigest computes a stable content-addressable digest over a
// report's sorted Findings plus its configuration, excluding ScanID and
// ScanTimestamp (spec §3: "two reports with identical sorted findings
// produce identical digests").
func ContentDigest(report model.ScanReport) string {
	sorted := append([]model.Finding(nil), report.Findings...)
	sortFindings(sorted)

	type digestView struct {
		Tier                int                         `json:"tier"`
		Focus               []string                    `json:"focus"`
		ToolAvailability    map[string]model.ToolAvailability `json:"tool_availability"`
		ConfigurationDigest string                      `json:"configuration_digest"`
		Findings            []model.Finding             `json:"findings"`
	}
	view := digestView{
		Tier:                report.Tier,
		Focus:               report.Focus,
		ToolAvailability:    report.ToolAvailability,
		ConfigurationDigest: report.ConfigurationDigest,
		Findings:            sorted,
	}
	data, err := json.Marshal(view)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// sortFindings re-applies the fusion tie-break rule so Write/ContentDigest
// never depend on caller ordering (spec §6.4's round-trip law).
func sortFindings(findings []model.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.BloatScore != b.BloatScore {
			return a.BloatScore > b.BloatScore
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.EstimatedTokenImpact != b.EstimatedTokenImpact {
			return a.EstimatedTokenImpact > b.EstimatedTokenImpact
		}
		return a.PrimaryArtifactID < b.PrimaryArtifactID
	})
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir) //nolint:gosec // directory handle for fsync, not user content
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck
	return f.Sync()
}
