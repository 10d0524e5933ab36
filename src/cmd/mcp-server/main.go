// Package main provides the MCP server entry point for hookstat.
// The server speaks the Model Context Protocol on stdio, letting an agent
// analyse traces through the analyze_trace and get_finding_details tools.
package main

import (
	"context"
	"log"

	"hookstat/src/config"
	"hookstat/src/logger"
	"hookstat/src/mcp"
	"hookstat/src/pipeline"
)

var version = "dev"

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// stdout carries the protocol
	silent := logger.NewSilentLogger()

	p, err := pipeline.New(context.Background(), cfg, silent)
	if err != nil {
		log.Fatalf("failed to start pipeline: %v", err)
	}
	defer p.Close()

	if err := mcp.NewServer(p, version, silent).Run(); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
