package cmd

import (
	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/internal/outwriter"
	"github.com/spf13/cobra"
)

// evaluateCmd runs one evaluation batch.
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate merged pull requests that have no evaluation yet",
	Long: `Run one evaluation batch over the organization's merged pull requests.

Every change merged within the lookback window that has no evaluation under the
selected rule set is classified, judged by the language model and scored. Scores
are folded into per-developer daily stats in the same transaction as the evaluation.

By default the batch aborts on the first failed change. Use --max-item-failures to
tolerate some failures and --workers to judge changes concurrently.

Examples:
  # Evaluate the last week with the active rule set
  prscore evaluate --org 1

  # Backfill a quarter with four workers
  prscore evaluate --org 1 --lookback 90 --run-type backfill --workers 4`,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		p, err := newPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.close()

		report, runErr := p.orchestrator.Run(ctx, runRequest())
		if report != nil {
			if err := outwriter.NewOutWriter().WriteBatchReport(report, cfg); err != nil {
				contract.LogWarn("Failed to write batch report", err)
			}
		}
		return runErr
	},
}
