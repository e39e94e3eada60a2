package mcpserver

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/athola/auditor/internal/aggregator"
	"github.com/athola/auditor/internal/analysis"
	"github.com/athola/auditor/internal/collectors"
	"github.com/athola/auditor/internal/config"
	"github.com/athola/auditor/internal/fusion"
	"github.com/athola/auditor/internal/model"
	"github.com/athola/auditor/internal/pipeline"
	"github.com/athola/auditor/internal/render"
	"github.com/athola/auditor/internal/reportstore"
	"github.com/athola/auditor/internal/scanstate"
)

// ScanInput is the input schema for the scan MCP tool. Remediation is
// deliberately NOT exposed here: autonomous deletion without an operator in
// the loop is an explicit non-goal, so an MCP host can only ever trigger a
// read-only scan or inspect an already-written report — any remediation
// still has to go through executor.DecisionRequester with a real operator
// at the keyboard.
type ScanInput struct {
	Path      string `json:"path" jsonschema:"Repository path to scan (defaults to current directory)"`
	Tier      int    `json:"tier,omitempty" jsonschema:"Scan tier 1-3 (default: repo config or 1)"`
	Focus     string `json:"focus,omitempty" jsonschema:"Comma-separated focus areas: code, docs, dependencies, git"`
	Delta     bool   `json:"delta,omitempty" jsonschema:"Report only Findings newly introduced since the last scan"`
	StoreDir  string `json:"store_dir,omitempty" jsonschema:"Report store directory (defaults to <path>/.auditor/reports)"`
	OutputFmt string `json:"output_format,omitempty" jsonschema:"Rendering for the tool response: table, json, or markdown (default json)"`
}

// ReadReportInput is the input schema for the read_report MCP tool.
type ReadReportInput struct {
	Path      string `json:"path" jsonschema:"Repository path whose report store to read (defaults to current directory)"`
	ScanID    string `json:"scan_id,omitempty" jsonschema:"Scan ID to read (defaults to the most recently written report)"`
	StoreDir  string `json:"store_dir,omitempty" jsonschema:"Report store directory (defaults to <path>/.auditor/reports)"`
	OutputFmt string `json:"output_format,omitempty" jsonschema:"Rendering for the tool response: table, json, or markdown (default json)"`
}

func boolPtr(b bool) *bool { return &b }

// registerTools adds the auditor's read-only tools to the MCP server.
func registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "scan",
		Description: "Scan a repository for bloat (dead code, near-duplicates, stale docs, unused dependencies) and write a Scan Report. Returns the rendered report; never modifies files.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:    true,
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, handleScan)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "read_report",
		Description: "Read a previously written Scan Report from the report store and render it.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:    true,
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, handleReadReport)
}

func storeDir(pathInfo *PathInfo, override string) string {
	if override != "" {
		return override
	}
	return pathInfo.AbsPath + "/.auditor/reports"
}

func handleScan(ctx context.Context, _ *mcp.CallToolRequest, input ScanInput) (*mcp.CallToolResult, any, error) {
	pathInfo, err := ResolvePath(input.Path)
	if err != nil {
		return nil, nil, err
	}

	fileCfg, err := config.Load(pathInfo.AbsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	cliCfg := model.ScanConfig{Root: pathInfo.AbsPath, Tier: input.Tier}
	if input.Focus != "" {
		cliCfg.Focus = splitAndTrim(input.Focus)
	}
	scanCfg := config.Merge(fileCfg, cliCfg)
	if scanCfg.Tier == 0 {
		scanCfg.Tier = 1
	}

	p, err := pipeline.New(scanCfg, slog.Default())
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: %w", err)
	}
	run, err := p.Run(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("scan failed: %w", err)
	}

	scores := fusion.Fuse(run.Evidence)
	findings := aggregator.Aggregate(scores, run.Artifacts, aggregator.Options{CorePaths: scanCfg.CorePaths})
	findings = analysis.EnrichRationale(ctx, findings, nil)

	if input.Delta {
		prev, loadErr := scanstate.Load(pathInfo.AbsPath)
		if loadErr != nil {
			slog.Warn("failed to load previous scan state", "error", loadErr)
		}
		if prev != nil {
			findings = scanstate.FilterNew(findings, prev)
		}
	}

	store, err := reportstore.New(storeDir(pathInfo, input.StoreDir))
	if err != nil {
		return nil, nil, fmt.Errorf("opening report store: %w", err)
	}

	report := model.ScanReport{
		SchemaVersion: model.SchemaVersion,
		ScanID:        reportstore.NewScanID(),
		Tier:          scanCfg.Tier,
		Focus:         scanCfg.Focus,
		Findings:      findings,
	}
	for _, rr := range run.Results {
		if m, ok := rr.Metrics.(*collectors.StaticAnalysisMetrics); ok {
			if report.ToolAvailability == nil {
				report.ToolAvailability = make(map[string]model.ToolAvailability)
			}
			for k, v := range m.Availability {
				report.ToolAvailability[k] = v
			}
		}
	}
	digest, err := store.Write(report)
	if err != nil {
		return nil, nil, fmt.Errorf("writing report: %w", err)
	}
	report.ConfigurationDigest = digest

	format := input.OutputFmt
	if format == "" {
		format = "json"
	}
	var buf bytes.Buffer
	if err := render.Report(report, format, &buf); err != nil {
		return nil, nil, fmt.Errorf("rendering failed: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: buf.String()}},
	}, nil, nil
}

func handleReadReport(_ context.Context, _ *mcp.CallToolRequest, input ReadReportInput) (*mcp.CallToolResult, any, error) {
	pathInfo, err := ResolvePath(input.Path)
	if err != nil {
		return nil, nil, err
	}

	store, err := reportstore.New(storeDir(pathInfo, input.StoreDir))
	if err != nil {
		return nil, nil, fmt.Errorf("opening report store: %w", err)
	}

	scanID := input.ScanID
	if scanID == "" {
		ids, err := store.ListBackups()
		if err != nil {
			return nil, nil, fmt.Errorf("listing reports: %w", err)
		}
		if len(ids) == 0 {
			return nil, nil, fmt.Errorf("no reports found in store")
		}
		scanID = ids[0]
	}

	report, err := store.Read(scanID)
	if err != nil {
		return nil, nil, fmt.Errorf("reading report: %w", err)
	}

	format := input.OutputFmt
	if format == "" {
		format = "json"
	}
	var buf bytes.Buffer
	if err := render.Report(report, format, &buf); err != nil {
		return nil, nil, fmt.Errorf("rendering failed: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: buf.String()}},
	}, nil, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace from
// each element.
func splitAndTrim(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			part := trimSpace(s[start:i])
			if part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}
