// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/athola/auditor/internal/collector"
)

// validOutputFormats are the renderers cmd/auditor's report command supports.
var validOutputFormats = map[string]bool{
	"table":    true,
	"json":     true,
	"markdown": true,
}

// validRiskTiers mirrors model.RiskTier's valid values without importing
// model, keeping this package's dependency surface narrow.
var validRiskTiers = map[string]bool{
	"LOW":    true,
	"MEDIUM": true,
	"HIGH":   true,
}

// Validate checks all fields in the config and returns all errors at once.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.OutputFormat != "" && !validOutputFormats[cfg.OutputFormat] {
		errs = append(errs, fmt.Sprintf("output_format: unknown format %q (must be table, json, or markdown)", cfg.OutputFormat))
	}

	if cfg.Tier != 0 && (cfg.Tier < 1 || cfg.Tier > 3) {
		errs = append(errs, fmt.Sprintf("tier: must be 1, 2, or 3, got %d", cfg.Tier))
	}

	if cfg.AutoApprove != nil {
		if cfg.AutoApprove.MaxRiskTier != "" && !validRiskTiers[cfg.AutoApprove.MaxRiskTier] {
			errs = append(errs, fmt.Sprintf("auto_approve.max_risk_tier: invalid value %q (must be LOW, MEDIUM, or HIGH)", cfg.AutoApprove.MaxRiskTier))
		}
		if cfg.AutoApprove.MinConfidence < 0 || cfg.AutoApprove.MinConfidence > 1 {
			errs = append(errs, fmt.Sprintf("auto_approve.min_confidence: must be between 0.0 and 1.0, got %g", cfg.AutoApprove.MinConfidence))
		}
	}

	for name, cc := range cfg.Collectors {
		if collector.Get(name) == nil {
			errs = append(errs, fmt.Sprintf("collectors.%s: unknown collector", name))
		}
		if cc.MinConfidence < 0 || cc.MinConfidence > 1 {
			errs = append(errs, fmt.Sprintf("collectors.%s.min_confidence: must be between 0.0 and 1.0, got %g", name, cc.MinConfidence))
		}
		for key, threshold := range cc.Thresholds {
			if threshold < 0 {
				errs = append(errs, fmt.Sprintf("collectors.%s.thresholds.%s: must be non-negative, got %g", name, key, threshold))
			}
		}
		if cc.Timeout != "" {
			if _, err := time.ParseDuration(cc.Timeout); err != nil {
				errs = append(errs, fmt.Sprintf("collectors.%s.timeout: %v", name, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
