// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

// Package config handles .auditor.yaml configuration files.
package config

// Config represents the contents of a .auditor.yaml file.
type Config struct {
	OutputFormat  string                     `yaml:"output_format,omitempty"`
	Tier          int                        `yaml:"tier,omitempty"`
	Focus         []string                   `yaml:"focus,omitempty"`
	CorePaths     []string                   `yaml:"core_paths,omitempty"`
	Exclusions    []string                   `yaml:"exclusions,omitempty"`
	ArchivePrefix string                     `yaml:"archive_prefix,omitempty"`
	AutoApprove   *AutoApproveConfig         `yaml:"auto_approve,omitempty"`
	Collectors    map[string]CollectorConfig `yaml:"collectors,omitempty"`
}

// AutoApproveConfig mirrors model.AutoApprovePolicy in YAML-friendly form.
type AutoApproveConfig struct {
	MaxRiskTier   string  `yaml:"max_risk_tier,omitempty"`
	MinConfidence float64 `yaml:"min_confidence,omitempty"`
}

// CollectorConfig holds per-collector settings in the config file, mirroring
// model.CollectorOpts (spec §6.1's threshold table).
type CollectorConfig struct {
	MinConfidence   float64            `yaml:"min_confidence,omitempty"`
	IncludePatterns []string           `yaml:"include_patterns,omitempty"`
	ExcludePatterns []string           `yaml:"exclude_patterns,omitempty"`
	Thresholds      map[string]float64 `yaml:"thresholds,omitempty"`
	Timeout         string             `yaml:"timeout,omitempty"`
}

// FileName is the expected config file name in a repository root.
const FileName = ".auditor.yaml"
