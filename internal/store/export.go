package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/internal/parquet"
)

// ExecuteExport exports an organization's batches, evaluations and daily stats to
// Parquet files named after outputFile.
func ExecuteExport(ctx context.Context, store contract.Store, orgID int64, outputFile string, w io.Writer) error {
	// Validate that output file is specified
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := store.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get store status: %w", err)
	}
	if status.TableSizes[evaluationsTable] == 0 {
		return errors.New("no evaluation data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)

	batches, err := store.ListBatches(ctx, orgID, 0)
	if err != nil {
		return fmt.Errorf("failed to retrieve batches: %w", err)
	}
	evaluations, err := store.ListEvaluations(ctx, orgID, time.Time{}, time.Time{})
	if err != nil {
		return fmt.Errorf("failed to retrieve evaluations: %w", err)
	}
	stats, err := store.ListDailyStats(ctx, orgID, "", "", "")
	if err != nil {
		return fmt.Errorf("failed to retrieve daily stats: %w", err)
	}

	batchesFile := outputFile + ".batches.parquet"
	if err := parquet.WriteBatchesParquet(parquet.ConvertBatches(batches), batchesFile); err != nil {
		return fmt.Errorf("failed to write batches: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d batches to: %s\n", len(batches), batchesFile)

	evaluationsFile := outputFile + ".evaluations.parquet"
	if err := parquet.WriteEvaluationsParquet(parquet.ConvertEvaluations(evaluations), evaluationsFile); err != nil {
		return fmt.Errorf("failed to write evaluations: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d evaluations to: %s\n", len(evaluations), evaluationsFile)

	statsFile := outputFile + ".daily_stats.parquet"
	if err := parquet.WriteDailyStatsParquet(parquet.ConvertDailyStats(stats), statsFile); err != nil {
		return fmt.Errorf("failed to write daily stats: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d daily stats to: %s\n", len(stats), statsFile)

	return nil
}
