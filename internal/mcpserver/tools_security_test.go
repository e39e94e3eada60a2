package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Security tests for the MCP tool handlers.

func TestHandleScan_SecurityFormatSpecialChars(t *testing.T) {
	dir := initTestRepo(t)

	tests := []struct {
		name   string
		format string
	}{
		{"newline", "json\nevil"},
		{"null byte", "json\x00evil"},
		{"template injection", "{{.}}"},
		{"html script", "<script>alert(1)</script>"},
		{"command injection", "json;rm -rf /"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := handleScan(context.Background(), nil, ScanInput{Path: dir, OutputFmt: tt.format})
			require.Error(t, err, "malicious format %q should be rejected", tt.format)
			assert.Contains(t, err.Error(), "unknown output format")
		})
	}
}

func TestHandleScan_SecurityStderrIsolation(t *testing.T) {
	dir := initTestRepo(t)

	result, _, err := handleScan(context.Background(), nil, ScanInput{Path: dir})
	require.NoError(t, err)

	text := result.Content[0].(*mcp.TextContent).Text
	// The MCP response content must not contain warning/error text from slog.
	assert.NotContains(t, text, "failed to load")
	assert.NotContains(t, text, "level=WARN")
	assert.True(t, json.Valid([]byte(text)), "output should be clean JSON")
}

func TestHandleScan_SecurityNoEnvVarsExposed(t *testing.T) {
	dir := initTestRepo(t)

	marker := "AUDITOR_SECURITY_TEST_MARKER_12345"
	t.Setenv("AUDITOR_SECRET", marker)

	result, _, err := handleScan(context.Background(), nil, ScanInput{Path: dir})
	require.NoError(t, err)

	text := result.Content[0].(*mcp.TextContent).Text
	assert.NotContains(t, text, marker, "scan output must not expose env vars")
}

func TestHandleReadReport_SecurityNoEnvVarsExposed(t *testing.T) {
	dir := initTestRepo(t)

	marker := "AUDITOR_SECURITY_TEST_MARKER_67890"
	t.Setenv("AUDITOR_SECRET", marker)

	_, _, err := handleScan(context.Background(), nil, ScanInput{Path: dir})
	require.NoError(t, err)

	result, _, err := handleReadReport(context.Background(), nil, ReadReportInput{Path: dir})
	require.NoError(t, err)

	text := result.Content[0].(*mcp.TextContent).Text
	assert.NotContains(t, text, marker, "report output must not expose env vars")
}

func TestHandleScan_SecurityPathTraversalAttempts(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"parent traversal", "../../../etc"},
		{"absolute etc", "/etc/passwd"},
		{"null in path", "/tmp\x00/evil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := handleScan(context.Background(), nil, ScanInput{Path: tt.path})
			if err == nil {
				t.Fatal("expected error for traversal path")
			}
		})
	}
}

func TestHandleReadReport_SecurityPathTraversalAttempts(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"parent traversal", "../../../etc"},
		{"absolute etc", "/etc/passwd"},
		{"null in path", "/tmp\x00/evil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := handleReadReport(context.Background(), nil, ReadReportInput{Path: tt.path})
			if err == nil {
				t.Fatal("expected error for traversal path")
			}
		})
	}
}

func TestHandleReadReport_SecurityScanIDPathTraversal(t *testing.T) {
	dir := initTestRepo(t)
	_, _, err := handleScan(context.Background(), nil, ScanInput{Path: dir})
	require.NoError(t, err)

	_, _, err = handleReadReport(context.Background(), nil, ReadReportInput{
		Path:   dir,
		ScanID: "../../../etc/passwd",
	})
	assert.Error(t, err, "a scan_id containing traversal segments must not escape the report store")
}

func TestHandleScan_SecurityUnicodeFocusValues(t *testing.T) {
	dir := initTestRepo(t)

	tests := []struct {
		name  string
		focus string
	}{
		{"emoji", "\U0001f4a3"},
		{"chinese chars", "中文"},
		{"rtl override", "‮code"},
		{"zero width space", "code​"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, err := handleScan(context.Background(), nil, ScanInput{Path: dir, Focus: tt.focus})
			require.NoError(t, err, "an unrecognized focus value is informational, not fatal")
			text := result.Content[0].(*mcp.TextContent).Text
			assert.True(t, json.Valid([]byte(text)))
		})
	}
}
