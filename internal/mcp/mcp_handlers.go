package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/hourglass/core"
	"github.com/huangsam/hourglass/internal/contract"
	"github.com/huangsam/hourglass/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
	build   func(context.Context, *contract.Config, contract.CacheManager) (*schema.Report, error)
}

func (h *toolHandler) buildReport(ctx context.Context, cfg *contract.Config) (*schema.Report, error) {
	if h.build != nil {
		return h.build(ctx, cfg, h.mgr)
	}
	return core.BuildReport(ctx, cfg, h.mgr)
}

func (h *toolHandler) handleGetActivityReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if err := contract.RevalidateWindow(cfg, request.GetString("start", ""), request.GetString("end", ""), time.Now()); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid window: %v", err)), nil
	}
	if err := contract.RevalidateSources(cfg, request.GetString("sources", "")); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid sources: %v", err)), nil
	}
	sheet := schema.Sheet(strings.ToLower(request.GetString("sheet", "")))
	if _, ok := schema.ValidSheets[sheet]; sheet != "" && !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown sheet: %s", sheet)), nil
	}

	report, err := h.buildReport(ctx, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("report failed: %v", err)), nil
	}

	var payload any = report
	if sheet != "" {
		payload = map[string]any{
			"run_id":      report.RunID,
			"warnings":    report.Warnings,
			string(sheet): sheetRows(report, sheet),
		}
	}
	jsonData, _ := json.MarshalIndent(payload, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetUserTimeline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user := strings.TrimSpace(request.GetString("user", ""))
	if user == "" {
		return mcp.NewToolResultError("user is required"), nil
	}

	cfg := h.baseCfg.Clone()
	if err := contract.RevalidateWindow(cfg, request.GetString("start", ""), request.GetString("end", ""), time.Now()); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid window: %v", err)), nil
	}
	cfg.AllowedUsers = []string{user}
	cfg.IncludeUnattributed = false

	report, err := h.buildReport(ctx, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("timeline failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(map[string]any{
		"user":     user,
		"timeline": report.UserTimeline,
		"warnings": report.Warnings,
	}, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func sheetRows(report *schema.Report, sheet schema.Sheet) any {
	switch sheet {
	case schema.DailySheet:
		return report.DailyRecords
	case schema.UsersSheet:
		return report.UserSummaries
	case schema.DaysSheet:
		return report.DailySummaries
	case schema.PRTimelineSheet:
		return report.PRTimeline
	case schema.IssueTimelineSheet:
		return report.IssueTimeline
	default:
		return report.UserTimeline
	}
}
