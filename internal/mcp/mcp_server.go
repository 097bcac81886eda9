// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/qualgate/core"
	"github.com/huangsam/qualgate/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// NewMCPServer initializes and configures the qualgate MCP server without starting it.
// opts are applied to every assessment, e.g. an LLM recommender.
func NewMCPServer(baseCfg *contract.Config, mgr contract.HistoryManager, opts ...core.Option) *server.MCPServer {
	s := server.NewMCPServer(
		"Qualgate Quality Server",
		Version,
		server.WithLogging(),
		server.WithToolCapabilities(false),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
		opts:    opts,
	}

	// --- 1. Tool: assess_quality ---
	s.AddTool(mcp.NewTool("assess_quality",
		mcp.WithDescription("Score a project across quality categories and evaluate its quality gates."),
		mcp.WithString("project_root", mcp.Description("Path to the project (defaults to the server's project root).")),
		mcp.WithString("categories", mcp.Description("Comma-separated categories to analyze, or 'all'.")),
		mcp.WithString("thresholds", mcp.Description("Gate overrides as name:min[:warning], e.g. 'overall:70:80,security:12'.")),
		mcp.WithBoolean("strict", mcp.Description("Require every gate to pass.")),
		mcp.WithBoolean("detailed", mcp.Description("Include the detailed report.")),
	), h.handleAssessQuality)

	// --- 2. Tool: list_categories ---
	s.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List the quality categories with their weights and the grading curve."),
	), h.handleListCategories)

	// --- 3. Tool: get_history ---
	s.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("Return recent recorded scores for a project, newest first."),
		mcp.WithString("project_root", mcp.Description("Path to the project (defaults to the server's project root).")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of runs to return (default 10).")),
	), h.handleGetHistory)

	return s
}

// StartMCPServer starts the qualgate MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.HistoryManager, opts ...core.Option) error {
	s := NewMCPServer(baseCfg, mgr, opts...)
	return server.ServeStdio(s)
}
