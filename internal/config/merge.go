// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package config

import (
	"time"

	"github.com/athola/auditor/internal/model"
)

// Merge combines file-based config with CLI-provided ScanConfig. CLI values
// take precedence; zero-value CLI fields fall through to file config.
func Merge(fileCfg *Config, cliCfg model.ScanConfig) model.ScanConfig {
	result := cliCfg

	if result.Tier == 0 && fileCfg.Tier != 0 {
		result.Tier = fileCfg.Tier
	}
	if len(result.Focus) == 0 && len(fileCfg.Focus) > 0 {
		result.Focus = fileCfg.Focus
	}
	if len(result.CorePaths) == 0 && len(fileCfg.CorePaths) > 0 {
		result.CorePaths = fileCfg.CorePaths
	}
	if len(result.Exclusions) == 0 && len(fileCfg.Exclusions) > 0 {
		result.Exclusions = fileCfg.Exclusions
	}

	if len(fileCfg.Collectors) > 0 {
		if result.CollectorOpts == nil {
			result.CollectorOpts = make(map[string]model.CollectorOpts)
		}
		for name, fc := range fileCfg.Collectors {
			co := result.CollectorOpts[name]
			if co.MinConfidence == 0 && fc.MinConfidence > 0 {
				co.MinConfidence = fc.MinConfidence
			}
			if len(co.IncludePatterns) == 0 && len(fc.IncludePatterns) > 0 {
				co.IncludePatterns = fc.IncludePatterns
			}
			if len(co.ExcludePatterns) == 0 && len(fc.ExcludePatterns) > 0 {
				co.ExcludePatterns = fc.ExcludePatterns
			}
			if len(co.Thresholds) == 0 && len(fc.Thresholds) > 0 {
				co.Thresholds = fc.Thresholds
			}
			if co.Timeout == 0 && fc.Timeout != "" {
				if d, err := time.ParseDuration(fc.Timeout); err == nil {
					co.Timeout = d
				}
			}
			result.CollectorOpts[name] = co
		}
	}

	return result
}

// MergeAutoApprove converts the file config's AutoApprove block into a
// model.AutoApprovePolicy, returning the zero value (never auto-approves)
// when unset or its risk tier is invalid.
func MergeAutoApprove(fileCfg *Config) model.AutoApprovePolicy {
	if fileCfg == nil || fileCfg.AutoApprove == nil {
		return model.AutoApprovePolicy{}
	}
	tier := model.RiskTier(fileCfg.AutoApprove.MaxRiskTier)
	switch tier {
	case model.RiskLow, model.RiskMedium, model.RiskHigh:
	default:
		return model.AutoApprovePolicy{}
	}
	return model.AutoApprovePolicy{MaxRiskTier: tier, MinConfidence: fileCfg.AutoApprove.MinConfidence}
}
