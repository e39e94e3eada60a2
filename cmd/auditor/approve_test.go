package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/athola/auditor/internal/model"
)

func TestDescribeFinding_WithRationale(t *testing.T) {
	finding := model.Finding{
		Recommendation: model.RecommendDelete,
		Rationale:      "unreferenced since the v2 migration",
	}
	desc := describeFinding(finding)
	assert.Contains(t, desc, "Recommendation: DELETE")
	assert.Contains(t, desc, "unreferenced since the v2 migration")
}

func TestDescribeFinding_NoRationale(t *testing.T) {
	finding := model.Finding{Recommendation: model.RecommendArchive}
	desc := describeFinding(finding)
	assert.Equal(t, "Recommendation: ARCHIVE", desc)
}
