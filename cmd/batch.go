package cmd

import (
	"fmt"
	"strconv"

	"github.com/huangsam/prscore/internal/outwriter"
	"github.com/huangsam/prscore/schema"
	"github.com/spf13/cobra"
)

// batchCmd groups batch inspection commands.
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Inspect evaluation batches",
	Long: `Inspect evaluation batches and their lifecycle.

A batch moves from pending to running and ends either completed or failed.
Terminal batches are never modified again.

Subcommands:
  status - Show one batch
  list   - List the most recent batches`,
}

// batchStatusCmd shows one batch.
var batchStatusCmd = &cobra.Command{
	Use:     "status <batch-id>",
	Short:   "Show the state and counters of one batch",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		batchID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || batchID <= 0 {
			return fmt.Errorf("invalid batch ID %q", args[0])
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		batch, err := s.GetBatch(cmd.Context(), batchID)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter().WriteBatchReport(&schema.BatchReport{Batch: *batch}, cfg)
	},
}

// batchListCmd lists recent batches.
var batchListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List the most recent batches of the organization",
	PreRunE: orgSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		batches, err := s.ListBatches(cmd.Context(), cfg.OrganizationID, cfg.ResultLimit)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter().WriteBatches(batches, cfg)
	},
}
