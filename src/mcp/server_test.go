package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"hookstat/src/config"
	"hookstat/src/logger"
	"hookstat/src/pipeline"
)

const sampleTrace = `{"kind":"getField","iid":10,"field":{"base":{"type":"array","length":2,"own_keys":["0","1","length"]},"offset":{"type":"number","number":5},"val":{"type":"undefined"}}}
{"kind":"getField","iid":10,"field":{"base":{"type":"array","length":2,"own_keys":["0","1","length"]},"offset":{"type":"number","number":6},"val":{"type":"undefined"}}}
{"kind":"putField","iid":20,"field":{"base":{"type":"object","ref":"Object.prototype"},"offset":{"type":"string","str":"polluted"},"val":{"type":"boolean","bool":true}}}
{"kind":"endExecution","iid":0}
`

const sampleLocations = `[
  {"id": 10, "file": "app.js", "start_line": 3, "start_col": 5, "end_line": 3, "end_col": 11},
  {"id": 20, "file": "lib.js", "start_line": 1, "start_col": 1, "end_line": 1, "end_col": 30}
]`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	p := pipeline.NewLocal(&config.Config{}, nil)
	t.Cleanup(func() { p.Close() })
	return NewServer(p, "test", logger.NewSilentLogger())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("tool returned no content")
	}
	switch c := result.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content type %T", result.Content[0])
	return ""
}

func analyze(t *testing.T, s *Server, args map[string]any) Manifest {
	t.Helper()
	result, err := s.handleAnalyzeTrace(context.Background(), callTool("analyze_trace", args))
	if err != nil {
		t.Fatalf("handleAnalyzeTrace() error = %v", err)
	}
	text := resultText(t, result)
	if result.IsError {
		t.Fatalf("analyze_trace failed: %s", text)
	}

	var m Manifest
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		t.Fatalf("manifest is not JSON: %v\n%s", err, text)
	}
	return m
}

func TestAnalyzeTraceThenDetails(t *testing.T) {
	dir := t.TempDir()
	tracePath := writeFile(t, dir, "trace.ndjson", sampleTrace)
	locPath := writeFile(t, dir, "sites.json", sampleLocations)
	s := newTestServer(t)

	m := analyze(t, s, map[string]any{
		"trace_path":     tracePath,
		"locations_path": locPath,
		"analyses":       "AccessUndefArrayElem, AddEnumerablePropertyToObject",
	})

	if m.RunID == "" {
		t.Fatal("manifest has no run id")
	}
	if m.EventsAccepted != 3 {
		t.Errorf("EventsAccepted = %d, expected 3", m.EventsAccepted)
	}
	if m.Error != "" {
		t.Errorf("Error = %q, expected none", m.Error)
	}
	if len(m.Analyses) != 2 {
		t.Fatalf("len(Analyses) = %d, expected 2", len(m.Analyses))
	}

	var undef *AnalysisManifest
	for i := range m.Analyses {
		if m.Analyses[i].Name == "AccessUndefArrayElem" {
			undef = &m.Analyses[i]
		}
	}
	if undef == nil || len(undef.Findings) != 1 {
		t.Fatalf("AccessUndefArrayElem manifest = %+v", undef)
	}
	if item := undef.Findings[0]; item.Site != 10 || item.Count != 2 || item.Location != "(app.js:3:5:3:11)" {
		t.Errorf("finding = %+v", item)
	}

	result, err := s.handleGetFindingDetails(context.Background(), callTool("get_finding_details", map[string]any{
		"run_id":   m.RunID,
		"analysis": "AccessUndefArrayElem",
		"rank":     float64(1),
	}))
	if err != nil {
		t.Fatalf("handleGetFindingDetails() error = %v", err)
	}
	text := resultText(t, result)
	if result.IsError {
		t.Fatalf("get_finding_details failed: %s", text)
	}

	var detail FindingDetail
	if err := json.Unmarshal([]byte(text), &detail); err != nil {
		t.Fatalf("detail is not JSON: %v", err)
	}
	if detail.RunID != m.RunID || detail.Finding.ID != 10 || detail.Finding.Rank != 1 {
		t.Errorf("detail = %+v", detail)
	}
	if !strings.Contains(detail.Finding.Message, "Access of undefined array element") {
		t.Errorf("detail message = %q", detail.Finding.Message)
	}
}

func TestAnalyzeTraceErrors(t *testing.T) {
	dir := t.TempDir()
	tracePath := writeFile(t, dir, "trace.ndjson", sampleTrace)
	s := newTestServer(t)

	tests := []struct {
		name     string
		args     map[string]any
		expected string
	}{
		{"missing trace_path", map[string]any{}, "trace_path"},
		{"trace not found", map[string]any{"trace_path": filepath.Join(dir, "missing.ndjson")}, "analysis failed"},
		{"unknown analysis", map[string]any{"trace_path": tracePath, "analyses": "Nope"}, "Nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.handleAnalyzeTrace(context.Background(), callTool("analyze_trace", tt.args))
			if err != nil {
				t.Fatalf("handleAnalyzeTrace() error = %v", err)
			}
			if !result.IsError {
				t.Fatal("expected a tool error")
			}
			if text := resultText(t, result); !strings.Contains(text, tt.expected) {
				t.Errorf("error text = %q, expected it to mention %q", text, tt.expected)
			}
		})
	}
}

func TestGetFindingDetailsErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		args     map[string]any
		expected string
	}{
		{"missing run_id", map[string]any{"analysis": "ExeStat", "rank": 1}, "run_id"},
		{"missing analysis", map[string]any{"run_id": "run-1", "rank": 1}, "analysis"},
		{"rank below one", map[string]any{"run_id": "run-1", "analysis": "ExeStat", "rank": 0}, "rank"},
		{"unknown run", map[string]any{"run_id": "run-404", "analysis": "ExeStat", "rank": 1}, "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.handleGetFindingDetails(context.Background(), callTool("get_finding_details", tt.args))
			if err != nil {
				t.Fatalf("handleGetFindingDetails() error = %v", err)
			}
			if !result.IsError {
				t.Fatal("expected a tool error")
			}
			if text := resultText(t, result); !strings.Contains(text, tt.expected) {
				t.Errorf("error text = %q, expected it to mention %q", text, tt.expected)
			}
		})
	}
}

func TestSplitNames(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", nil},
		{"ExeStat", []string{"ExeStat"}},
		{" ExeStat , ,AccessUndefArrayElem ", []string{"ExeStat", "AccessUndefArrayElem"}},
	}

	for _, tt := range tests {
		got := splitNames(tt.input)
		if len(got) != len(tt.expected) {
			t.Errorf("splitNames(%q) = %v, expected %v", tt.input, got, tt.expected)
			continue
		}
		for i := range got {
			if got[i] != tt.expected[i] {
				t.Errorf("splitNames(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		}
	}
}
