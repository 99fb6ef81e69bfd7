package cmd

import (
	"time"

	"github.com/huangsam/prscore/core"
	"github.com/huangsam/prscore/internal/outwriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// statsCmd reports developer contributions.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Rank developers by evaluated contribution",
	Long: `Summarize per-developer daily stats over a date range and rank developers.

The range defaults to the lookback window ending today. Rank by total score,
by pull request count or by the score of a single component key.

With --evaluations the command lists the highest scored evaluations in the range
instead of developer summaries.

Examples:
  # Top developers of the last week
  prscore stats --org 1

  # May 2024, ranked by authentication work
  prscore stats --org 1 --start 2024-05-01 --end 2024-05-31 --rank-by AUTH

  # Export daily rows for BI tools
  prscore stats --org 1 --output parquet --output-file stats.parquet`,
	PreRunE: orgSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		start := time.Now()

		s, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		writer := outwriter.NewOutWriter()
		if viper.GetBool("evaluations") {
			evals, err := core.TopEvaluations(ctx, s, cfg.OrganizationID, cfg.StartDate, cfg.EndDate, cfg.ResultLimit)
			if err != nil {
				return err
			}
			return writer.WriteEvaluations(evals, cfg)
		}

		summaries, daily, err := core.DeveloperStats(ctx, s, core.StatsQuery{
			OrganizationID: cfg.OrganizationID,
			Developer:      cfg.Developer,
			StartDate:      cfg.StartDate,
			EndDate:        cfg.EndDate,
			RankBy:         viper.GetString("rank-by"),
			Limit:          cfg.ResultLimit,
		})
		if err != nil {
			return err
		}
		return writer.WriteStats(summaries, daily, cfg, time.Since(start))
	},
}
