package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"hookstat/src/logger"
	"hookstat/src/pipeline"
	"hookstat/src/sanitize"
	"hookstat/src/store"
)

// Server is the MCP server for hookstat.
type Server struct {
	mcpServer *server.MCPServer
	pipeline  *pipeline.Pipeline
	logger    logger.Logger
}

// NewServer creates an MCP server that runs traces through p.
func NewServer(p *pipeline.Pipeline, version string, log logger.Logger) *Server {
	s := server.NewMCPServer(
		"hookstat",
		version,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		pipeline:  p,
		logger:    log,
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	analyzeTool := mcp.NewTool("analyze_trace",
		mcp.WithDescription("Run the hookstat analyses over a recorded JavaScript execution trace and return a manifest. The top findings of each analysis are expanded; the rest are counted. Use get_finding_details with the run_id to read a finding in full."),
		mcp.WithString("trace_path",
			mcp.Required(),
			mcp.Description("Path of the trace file (NDJSON or msgpack)"),
		),
		mcp.WithString("locations_path",
			mcp.Description("Path of the JSON location table mapping site ids to source ranges"),
		),
		mcp.WithString("analyses",
			mcp.Description("Comma-separated analysis names (default: every enabled analysis)"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Max findings expanded per analysis (default: %d)", DefaultLimit)),
		),
	)

	detailsTool := mcp.NewTool("get_finding_details",
		mcp.WithDescription("Get one finding of a run in full. Use after analyze_trace to drill into a finding."),
		mcp.WithString("run_id",
			mcp.Required(),
			mcp.Description("Run ID from the analyze_trace manifest"),
		),
		mcp.WithString("analysis",
			mcp.Required(),
			mcp.Description("Analysis name from the manifest"),
		),
		mcp.WithNumber("rank",
			mcp.Required(),
			mcp.Description("Rank of the finding within its analysis"),
		),
	)

	s.mcpServer.AddTool(analyzeTool, s.handleAnalyzeTrace)
	s.mcpServer.AddTool(detailsTool, s.handleGetFindingDetails)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// handleAnalyzeTrace handles the analyze_trace tool call.
// An aborted run still returns the partial manifest, with Error set.
func (s *Server) handleAnalyzeTrace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tracePath := request.GetString("trace_path", "")
	if tracePath == "" {
		return mcp.NewToolResultError("trace_path parameter is required"), nil
	}

	limit := request.GetInt("limit", DefaultLimit)

	res, err := s.pipeline.RunTrace(ctx, tracePath, pipeline.RunOptions{
		Analyses:  splitNames(request.GetString("analyses", "")),
		Locations: request.GetString("locations_path", ""),
		Persist:   true,
	})
	if res == nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	manifest := ToManifest(res.RunID, tracePath, res.Reports, res.Diagnostics, limit)
	if err != nil {
		s.logger.Error("[MCP] Run %s: %v", res.RunID, err)
		manifest.Error = err.Error()
	}

	return jsonResult(manifest)
}

// handleGetFindingDetails handles the get_finding_details tool call.
func (s *Server) handleGetFindingDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := request.GetString("run_id", "")
	if runID == "" {
		return mcp.NewToolResultError("run_id parameter is required"), nil
	}

	analysis := request.GetString("analysis", "")
	if analysis == "" {
		return mcp.NewToolResultError("analysis parameter is required"), nil
	}

	rank := request.GetInt("rank", 0)
	if rank < 1 {
		return mcp.NewToolResultError("rank must be 1 or greater"), nil
	}

	finding, err := s.pipeline.Store().GetFinding(ctx, runID, analysis, rank)
	if err != nil {
		var notFound store.ErrNotFound
		if errors.As(err, &notFound) {
			return mcp.NewToolResultError(notFound.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to get finding: %v", err)), nil
	}

	finding.Message = sanitize.Text(finding.Message)
	return jsonResult(FindingDetail{RunID: runID, Finding: finding})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// splitNames parses a comma-separated list, dropping blanks.
func splitNames(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
