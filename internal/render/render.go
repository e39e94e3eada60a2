// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

// Package render formats a model.ScanReport for a human or an MCP host:
// a colorized terminal table, indented JSON, or a Markdown summary. This
// replaces the teacher's per-section report renderer (spec's aggregated
// Finding list has no per-collector sections to iterate) with a flat,
// bloat-score-sorted table built the same way the teacher's runReport did:
// color.New(color.Bold) headers over fmt.Fprintf rows.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/athola/auditor/internal/model"
)

// Formats accepted by Report's format argument.
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Report writes report to w in the requested format. An unrecognized format
// is rejected rather than silently defaulting, so a typo in --output-format
// surfaces immediately instead of producing an unexpected rendering.
func Report(report model.ScanReport, format string, w io.Writer) error {
	switch format {
	case FormatTable, "":
		return renderTable(report, w)
	case FormatJSON:
		return renderJSON(report, w)
	case FormatMarkdown:
		return renderMarkdown(report, w)
	default:
		return fmt.Errorf("render: unknown output format %q (want table, json, or markdown)", format)
	}
}

func renderJSON(report model.ScanReport, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func renderTable(report model.ScanReport, w io.Writer) error {
	bold := color.New(color.Bold)
	_, _ = bold.Fprintf(w, "Scan Report\n")
	_, _ = bold.Fprintf(w, "===========\n\n")
	_, _ = fmt.Fprintf(w, "Scan ID:   %s\n", report.ScanID)
	_, _ = fmt.Fprintf(w, "Tier:      %d\n", report.Tier)
	if len(report.Focus) > 0 {
		_, _ = fmt.Fprintf(w, "Focus:     %s\n", strings.Join(report.Focus, ", "))
	}
	if !report.ScanTimestamp.IsZero() {
		_, _ = fmt.Fprintf(w, "Generated: %s\n", report.ScanTimestamp.Format("2006-01-02T15:04:05Z07:00"))
	}
	_, _ = fmt.Fprintf(w, "Findings:  %d\n\n", len(report.Findings))

	if len(report.ToolAvailability) > 0 {
		_, _ = bold.Fprintf(w, "Tool Availability\n")
		_, _ = fmt.Fprintf(w, "-----------------\n")
		for name, avail := range report.ToolAvailability {
			status := "available"
			if !avail.Available {
				status = "absent"
			} else if avail.Partial {
				status = "partial"
			}
			reason := ""
			if avail.Reason != nil {
				reason = fmt.Sprintf(" (%s)", *avail.Reason)
			}
			_, _ = fmt.Fprintf(w, "  %-20s %s%s\n", name, status, reason)
		}
		_, _ = fmt.Fprintf(w, "\n")
	}

	if len(report.Findings) == 0 {
		_, _ = fmt.Fprintf(w, "No findings.\n")
		return nil
	}

	_, _ = bold.Fprintf(w, "Findings\n")
	_, _ = fmt.Fprintf(w, "--------\n")
	_, _ = fmt.Fprintf(w, "%-6s %-8s %-12s %-8s %-60s\n", "SCORE", "SEVERITY", "RECOMMEND", "RISK", "ARTIFACT")
	for _, f := range report.Findings {
		severityColor(f.Severity).Fprintf(w, "%-6.1f %-8s %-12s %-8s %-60s\n", //nolint:errcheck // best-effort terminal output
			f.BloatScore, f.Severity, f.Recommendation, f.RiskTier, truncate(f.PrimaryArtifactID, 60))
		if f.Rationale != "" {
			_, _ = fmt.Fprintf(w, "       %s\n", f.Rationale)
		}
	}
	return nil
}

func severityColor(s model.Severity) *color.Color {
	switch s {
	case model.SeverityHigh:
		return color.New(color.FgRed)
	case model.SeverityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func renderMarkdown(report model.ScanReport, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# Scan Report\n\n")
	_, _ = fmt.Fprintf(w, "- **Scan ID:** %s\n", report.ScanID)
	_, _ = fmt.Fprintf(w, "- **Tier:** %d\n", report.Tier)
	if len(report.Focus) > 0 {
		_, _ = fmt.Fprintf(w, "- **Focus:** %s\n", strings.Join(report.Focus, ", "))
	}
	_, _ = fmt.Fprintf(w, "- **Findings:** %d\n\n", len(report.Findings))

	if len(report.Findings) == 0 {
		_, _ = fmt.Fprintf(w, "No findings.\n")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| Score | Severity | Recommendation | Risk | Artifact |\n")
	_, _ = fmt.Fprintf(w, "|---|---|---|---|---|\n")
	for _, f := range report.Findings {
		_, _ = fmt.Fprintf(w, "| %.1f | %s | %s | %s | `%s` |\n",
			f.BloatScore, f.Severity, f.Recommendation, f.RiskTier, f.PrimaryArtifactID)
		if f.Rationale != "" {
			_, _ = fmt.Fprintf(w, "| | | | | %s |\n", f.Rationale)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
