// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/hourglass/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the Hourglass MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Hourglass Activity Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: get_activity_report ---
	s.AddTool(mcp.NewTool("get_activity_report",
		mcp.WithDescription("Estimate developer hours per user and day from commits, pull requests, issues and file activity."),
		mcp.WithString("start", mcp.Description("First date of the window (YYYY-MM-DD, RFC3339 or '2 weeks ago'). Defaults to the configured start.")),
		mcp.WithString("end", mcp.Description("Last date of the window, inclusive. Defaults to the configured end.")),
		mcp.WithString("sources", mcp.Description("Comma-separated sources to scan (api, local, snapshot, filesystem). Defaults to the configured sources.")),
		mcp.WithString("sheet", mcp.Description("Return a single sheet instead of the full report."),
			mcp.Enum("daily", "users", "days", "pr_timeline", "issue_timeline", "user_timeline")),
	), h.handleGetActivityReport)

	// --- 2. Tool: get_user_timeline ---
	s.AddTool(mcp.NewTool("get_user_timeline",
		mcp.WithDescription("List the pull request and issue activity of one user in time order."),
		mcp.WithString("user", mcp.Description("The user whose activity to list."), mcp.Required()),
		mcp.WithString("start", mcp.Description("First date of the window.")),
		mcp.WithString("end", mcp.Description("Last date of the window, inclusive.")),
	), h.handleGetUserTimeline)

	return s
}

// StartMCPServer starts the Hourglass MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
