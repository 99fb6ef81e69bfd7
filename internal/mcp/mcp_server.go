// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/prscore/core"
	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// BatchRunner starts an evaluation batch. core.Orchestrator satisfies it.
type BatchRunner interface {
	Run(ctx context.Context, req core.RunRequest) (*schema.BatchReport, error)
}

// NewMCPServer initializes and configures the prscore MCP server without starting it.
// A nil runner leaves run_batch registered but answering with an error.
func NewMCPServer(baseCfg *contract.Config, store contract.Store, runner BatchRunner) *server.MCPServer {
	s := server.NewMCPServer(
		"PR Evaluation Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		store:   store,
		runner:  runner,
	}

	// --- 1. Tool: get_developer_stats ---
	s.AddTool(mcp.NewTool("get_developer_stats",
		mcp.WithDescription("Rank developers by their evaluated PR score over a date range."),
		mcp.WithString("developer", mcp.Description("Restrict the result to one developer login.")),
		mcp.WithString("start", mcp.Description("First day of the range (YYYY-MM-DD). Defaults to the lookback window.")),
		mcp.WithString("end", mcp.Description("Last day of the range (YYYY-MM-DD). Defaults to today.")),
		mcp.WithString("rank_by", mcp.Description("Ranking key: score, prs or a component key. Defaults to 'score'.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of developers returned.")),
	), h.handleGetDeveloperStats)

	// --- 2. Tool: get_evaluation ---
	s.AddTool(mcp.NewTool("get_evaluation",
		mcp.WithDescription("Fetch the stored evaluation of one change."),
		mcp.WithNumber("change_id", mcp.Description("Internal ID of the change."), mcp.Required()),
		mcp.WithNumber("rule_set_id", mcp.Description("Rule set the evaluation was made under. Defaults to the active one.")),
	), h.handleGetEvaluation)

	// --- 3. Tool: list_batches ---
	s.AddTool(mcp.NewTool("list_batches",
		mcp.WithDescription("List the most recent evaluation batches of the organization."),
		mcp.WithNumber("limit", mcp.Description("Limit the number of batches returned.")),
	), h.handleListBatches)

	// --- 4. Tool: run_batch ---
	s.AddTool(mcp.NewTool("run_batch",
		mcp.WithDescription("Evaluate every merged change in the lookback window that has no evaluation yet."),
		mcp.WithNumber("lookback", mcp.Description("Lookback window in days.")),
		mcp.WithNumber("rule_set_id", mcp.Description("Rule set to evaluate under. Defaults to the active one.")),
	), h.handleRunBatch)

	return s
}

// StartMCPServer starts the prscore MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, store contract.Store, runner BatchRunner) error {
	s := NewMCPServer(baseCfg, store, runner)
	return server.ServeStdio(s)
}
