package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/huangsam/qualgate/core"
	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultHistoryLimit caps get_history when no limit is given.
const defaultHistoryLimit = 10

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.HistoryManager
	opts    []core.Option
}

// assessment is the assess_quality payload.
type assessment struct {
	Results *schema.AnalysisResults `json:"results"`
	Passed  bool                    `json:"passed"`
	Message string                  `json:"message"`
}

// categoryInfo is one list_categories entry.
type categoryInfo struct {
	Category schema.CategoryID `json:"category"`
	Weight   float64           `json:"weight"`
}

func (h *toolHandler) handleAssessQuality(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	err := contract.RevalidateAssessment(cfg,
		request.GetString("project_root", ""),
		request.GetString("categories", ""),
		request.GetString("thresholds", ""),
	)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid assessment parameters: %v", err)), nil
	}
	cfg.Strict = request.GetBool("strict", cfg.Strict)
	cfg.Detailed = request.GetBool("detailed", cfg.Detailed)
	cfg.Progress = false

	results, err := core.NewOrchestrator(cfg, h.opts...).Run(core.WithQuiet(ctx))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("assessment failed: %v", err)), nil
	}

	out := assessment{Results: results, Passed: true}
	if results.Gates != nil {
		out.Passed = results.Gates.Passed
		out.Message = results.Gates.Message
	}
	return jsonResult(out)
}

func (h *toolHandler) handleListCategories(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	weights := core.NewOrchestrator(h.baseCfg, h.opts...).Weights()
	categories := make([]categoryInfo, 0, len(weights))
	for _, id := range schema.AllCategories {
		if w, ok := weights[id]; ok {
			categories = append(categories, categoryInfo{Category: id, Weight: w})
		}
	}
	return jsonResult(map[string]any{
		"categories":    categories,
		"grading_curve": core.GradingCurve(),
	})
}

func (h *toolHandler) handleGetHistory(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var store contract.HistoryStore
	if h.mgr != nil {
		store = h.mgr.GetHistoryStore()
	}
	if store == nil {
		return mcp.NewToolResultError("history is disabled. Start the server with --history-backend"), nil
	}

	root := h.baseCfg.ProjectRoot
	if p := request.GetString("project_root", ""); p != "" {
		abs, err := filepath.Abs(p)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid project_root: %v", err)), nil
		}
		root = filepath.Clean(abs)
	}
	limit := request.GetInt("limit", defaultHistoryLimit)
	if limit < 1 {
		return mcp.NewToolResultError("limit must be at least 1"), nil
	}

	runs, err := store.GetRecentRuns(root, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history lookup failed: %v", err)), nil
	}
	if runs == nil {
		runs = []schema.HistoryRunRecord{}
	}
	return jsonResult(map[string]any{"project_root": root, "runs": runs})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
