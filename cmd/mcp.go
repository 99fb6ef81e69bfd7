package cmd

import (
	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the prscore MCP server",
	Long: `Launch an MCP server on stdio that lets AI agents query developer stats,
evaluations and batches, and start evaluation batches.

Logs go to stderr so they never mix with the protocol on stdout. When the judge
cannot be configured, run_batch reports an error and the read tools keep working.`,
	PreRunE: orgSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		p, err := newPipeline(ctx)
		if err != nil {
			contract.LogWarn("Batch runs disabled", err)
			s, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()
			return mcp.StartMCPServer(ctx, cfg, s, nil)
		}
		defer p.close()
		return mcp.StartMCPServer(ctx, cfg, p.store, p.orchestrator)
	},
}
