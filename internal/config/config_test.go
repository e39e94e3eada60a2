package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfig_YAMLRoundTrip(t *testing.T) {
	original := &Config{
		OutputFormat: "json",
		Tier:         2,
		CorePaths:    []string{"internal/**"},
		AutoApprove:  &AutoApproveConfig{MaxRiskTier: "LOW", MinConfidence: 0.9},
		Collectors: map[string]CollectorConfig{
			"heuristic": {
				MinConfidence:   0.5,
				IncludePatterns: []string{"*.go"},
				ExcludePatterns: []string{"vendor/**"},
				Thresholds:      map[string]float64{"heuristic.god_structure_methods": 20},
			},
			"similarity": {},
		},
	}

	data, err := yaml.Marshal(original)
	require.NoError(t, err)

	var decoded Config
	require.NoError(t, yaml.Unmarshal(data, &decoded))

	assert.Equal(t, original.OutputFormat, decoded.OutputFormat)
	assert.Equal(t, original.Tier, decoded.Tier)
	assert.Equal(t, original.CorePaths, decoded.CorePaths)
	require.NotNil(t, decoded.AutoApprove)
	assert.Equal(t, "LOW", decoded.AutoApprove.MaxRiskTier)
	assert.Len(t, decoded.Collectors, 2)

	heuristic := decoded.Collectors["heuristic"]
	assert.InDelta(t, 0.5, heuristic.MinConfidence, 0.001)
	assert.Equal(t, []string{"*.go"}, heuristic.IncludePatterns)
	assert.Equal(t, []string{"vendor/**"}, heuristic.ExcludePatterns)
	assert.InDelta(t, 20, heuristic.Thresholds["heuristic.god_structure_methods"], 0.001)
}

func TestConfig_EmptyYAML(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(""), &cfg))
	assert.Empty(t, cfg.OutputFormat)
	assert.Equal(t, 0, cfg.Tier)
	assert.Nil(t, cfg.AutoApprove)
	assert.Nil(t, cfg.Collectors)
}

func TestConfig_OmitEmptyFields(t *testing.T) {
	cfg := &Config{}
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}
