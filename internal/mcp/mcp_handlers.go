package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/prscore/core"
	"github.com/huangsam/prscore/core/algo"
	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	store   contract.Store
	runner  BatchRunner
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(jsonData))
}

func validDate(s string) error {
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return nil
}

func (h *toolHandler) handleGetDeveloperStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if d := request.GetString("developer", ""); d != "" {
		cfg.Developer = d
	}
	if s := request.GetString("start", ""); s != "" {
		cfg.StartDate = s
	}
	if e := request.GetString("end", ""); e != "" {
		cfg.EndDate = e
	}
	if l := request.GetInt("limit", 0); l > 0 {
		cfg.ResultLimit = l
	}
	rankBy := request.GetString("rank_by", algo.ByScore)

	for _, d := range []string{cfg.StartDate, cfg.EndDate} {
		if err := validDate(d); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid stats parameters: %v", err)), nil
		}
	}
	if cfg.StartDate > cfg.EndDate {
		return mcp.NewToolResultError(fmt.Sprintf("invalid stats parameters: start %s is after end %s", cfg.StartDate, cfg.EndDate)), nil
	}

	ranked, _, err := core.DeveloperStats(ctx, h.store, core.StatsQuery{
		OrganizationID: cfg.OrganizationID,
		Developer:      cfg.Developer,
		StartDate:      cfg.StartDate,
		EndDate:        cfg.EndDate,
		RankBy:         rankBy,
		Limit:          cfg.ResultLimit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stats query failed: %v", err)), nil
	}
	return jsonResult(ranked), nil
}

func (h *toolHandler) handleGetEvaluation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	changeID := int64(request.GetInt("change_id", 0))
	if changeID <= 0 {
		return mcp.NewToolResultError("change_id must be a positive change ID"), nil
	}

	ruleSetID := int64(request.GetInt("rule_set_id", int(h.baseCfg.RuleSetID)))
	if ruleSetID <= 0 {
		rs, err := h.store.GetActiveRuleSet(ctx, h.baseCfg.OrganizationID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("no rule set to look up: %v", err)), nil
		}
		ruleSetID = rs.ID
	}

	eval, err := h.store.GetEvaluation(ctx, changeID, ruleSetID)
	if errors.Is(err, contract.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("change %d has no evaluation under rule set %d", changeID, ruleSetID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("evaluation lookup failed: %v", err)), nil
	}
	return jsonResult(eval), nil
}

func (h *toolHandler) handleListBatches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", h.baseCfg.ResultLimit)
	if limit <= 0 || limit > contract.MaxResultLimit {
		return mcp.NewToolResultError(fmt.Sprintf("limit must be between 1 and %d", contract.MaxResultLimit)), nil
	}

	batches, err := h.store.ListBatches(ctx, h.baseCfg.OrganizationID, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("batch listing failed: %v", err)), nil
	}
	return jsonResult(batches), nil
}

func (h *toolHandler) handleRunBatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.runner == nil {
		return mcp.NewToolResultError("batch runs are not available: no judgment client is configured"), nil
	}

	lookback := request.GetInt("lookback", h.baseCfg.LookbackDays)
	if lookback <= 0 || lookback > contract.MaxLookbackDays {
		return mcp.NewToolResultError(fmt.Sprintf("lookback must be between 1 and %d days", contract.MaxLookbackDays)), nil
	}

	report, err := h.runner.Run(ctx, core.RunRequest{
		OrganizationID: h.baseCfg.OrganizationID,
		RuleSetID:      int64(request.GetInt("rule_set_id", int(h.baseCfg.RuleSetID))),
		LookbackDays:   lookback,
		RunType:        schema.ManualRun,
	})
	if report == nil && err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("batch could not start: %v", err)), nil
	}
	if err != nil {
		// The report still describes the failed batch.
		result := jsonResult(report)
		result.IsError = true
		return result, nil
	}
	return jsonResult(report), nil
}
