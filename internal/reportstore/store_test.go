// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package reportstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athola/auditor/internal/model"
)

func sampleReport(scanID string) model.ScanReport {
	return model.ScanReport{
		SchemaVersion: model.SchemaVersion,
		ScanID:        scanID,
		ScanTimestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Tier:          2,
		Focus:         []string{"code", "docs"},
		ToolAvailability: map[string]model.ToolAvailability{
			"staticcheck": {Available: true},
		},
		ConfigurationDigest: "cfg-digest",
		Findings: []model.Finding{
			{ID: "f1", PrimaryArtifactID: "file:a.go", AffectedArtifacts: []string{"file:a.go"}, BloatScore: 90, Confidence: 0.9, Evidence: []model.Evidence{{ArtifactID: "file:a.go", Source: model.SourceHeuristic, SignalKind: "stale", Weight: 1, Confidence: 1}}},
			{ID: "f2", PrimaryArtifactID: "file:b.go", AffectedArtifacts: []string{"file:b.go"}, BloatScore: 50, Confidence: 0.5, Evidence: []model.Evidence{{ArtifactID: "file:b.go", Source: model.SourceHeuristic, SignalKind: "stale", Weight: 1, Confidence: 1}}},
		},
	}
}

func TestStore_WriteThenRead_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	report := sampleReport("scan-123")
	digest, err := store.Write(report)
	require.NoError(t, err)
	assert.NotEmpty(t, digest)

	got, err := store.Read("scan-123")
	require.NoError(t, err)
	assert.Equal(t, report.ScanID, got.ScanID)
	assert.Equal(t, report.Tier, got.Tier)
	require.Len(t, got.Findings, 2)
	assert.Equal(t, "f1", got.Findings[0].ID)
}

func TestStore_IdenticalFindingsProduceIdenticalDigest(t *testing.T) {
	r1 := sampleReport("scan-a")
	r2 := sampleReport("scan-b")
	r2.ScanTimestamp = r2.ScanTimestamp.Add(time.Hour)

	assert.Equal(t, ContentDigest(r1), ContentDigest(r2))
}

func TestStore_Read_RejectsIncompatibleSchema(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	report := sampleReport("scan-old")
	report.SchemaVersion = model.SchemaVersion + 1
	_, err = store.Write(report)
	require.NoError(t, err)

	_, err = store.Read("scan-old")
	require.ErrorIs(t, err, ErrIncompatibleSchema)
}

func TestStore_ListBackupsAndPrune(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	_, err = store.Write(sampleReport("scan-1"))
	require.NoError(t, err)
	_, err = store.Write(sampleReport("scan-2"))
	require.NoError(t, err)

	ids, err := store.ListBackups()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"scan-1", "scan-2"}, ids)

	removed, err := store.Prune(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"scan-1", "scan-2"}, removed)

	ids, err = store.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestNewScanID_ProducesUniqueValues(t *testing.T) {
	a := NewScanID()
	b := NewScanID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
