// Package mcp exposes hookstat runs to LLM agents over the Model Context Protocol.
package mcp

import (
	"hookstat/src/contracts"
	"hookstat/src/report"
)

// Manifest is the analyze_trace response: the top findings of each analysis
// expanded, the rest summarized.
type Manifest struct {
	RunID          string             `json:"run_id"`
	Trace          string             `json:"trace"`
	EventsAccepted int64              `json:"events_accepted"`
	EventsDropped  int64              `json:"events_dropped"`
	PathPrefix     string             `json:"path_prefix,omitempty"` // stripped from every location
	Error          string             `json:"error,omitempty"`       // set when the run was aborted
	Analyses       []AnalysisManifest `json:"analyses"`
}

// AnalysisManifest summarizes the report of one analysis.
type AnalysisManifest struct {
	Name        string         `json:"name"`
	Mode        report.Mode    `json:"mode"`
	Headline    string         `json:"headline,omitempty"`
	Summary     report.Summary `json:"summary"`
	Findings    []FindingItem  `json:"findings,omitempty"`
	Omitted     *Omitted       `json:"omitted,omitempty"`
	Files       []FileCoverage `json:"files,omitempty"` // dump mode only
	Diagnostics map[string]int `json:"diagnostics,omitempty"`
}

// FindingItem is a finding compacted for a manifest.
type FindingItem struct {
	Rank     int               `json:"rank"`
	Site     contracts.EventID `json:"site"`
	Location string            `json:"location"`
	Message  string            `json:"message"`
	Count    int64             `json:"count"`
}

// Omitted counts the findings or files left out of a manifest.
type Omitted struct {
	Findings int   `json:"findings,omitempty"`
	Files    int   `json:"files,omitempty"`
	Events   int64 `json:"events"`
}

// FileCoverage is the per-file total of a dump-mode analysis.
type FileCoverage struct {
	File   string `json:"file"`
	Sites  int    `json:"sites"`
	Events int64  `json:"events"`
}

// FindingDetail is the get_finding_details response.
type FindingDetail struct {
	RunID   string            `json:"run_id"`
	Finding contracts.Finding `json:"finding"`
}
