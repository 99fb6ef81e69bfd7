// Package outwriter renders pipeline results as tables, CSV, JSON or Parquet.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
)

// OutWriter provides a unified interface for all output operations.
type OutWriter struct {
	stdout io.Writer
}

// NewOutWriter creates an output writer that prints to stdout.
func NewOutWriter() *OutWriter {
	return &OutWriter{stdout: os.Stdout}
}

// NewOutWriterTo creates an output writer that prints to w instead of stdout.
func NewOutWriterTo(w io.Writer) *OutWriter {
	return &OutWriter{stdout: w}
}

// WriteStats prints developer summaries. Parquet output writes the daily rows.
func (ow *OutWriter) WriteStats(summaries []schema.DeveloperSummary, daily []schema.DeveloperDailyStat, cfg *contract.Config, duration time.Duration) error {
	return ow.writeStats(summaries, daily, cfg, duration)
}

// WriteBatchReport prints the outcome of one orchestrator run.
func (ow *OutWriter) WriteBatchReport(report *schema.BatchReport, cfg *contract.Config) error {
	return ow.writeBatchReport(report, cfg)
}

// WriteBatches prints a list of batches.
func (ow *OutWriter) WriteBatches(batches []schema.EvaluationBatch, cfg *contract.Config) error {
	return ow.writeBatches(batches, cfg)
}

// WriteEvaluations prints evaluations in rank order.
func (ow *OutWriter) WriteEvaluations(evals []schema.Evaluation, cfg *contract.Config) error {
	return ow.writeEvaluations(evals, cfg)
}

// WriteSyncReports prints what a sync run wrote per repository.
func (ow *OutWriter) WriteSyncReports(reports []schema.SyncReport, cfg *contract.Config, duration time.Duration) error {
	return ow.writeSyncReports(reports, cfg, duration)
}

// WriteClassification prints the component associations of one change.
func (ow *OutWriter) WriteClassification(changeID int64, c *schema.Classification, cfg *contract.Config) error {
	return ow.writeClassification(changeID, c, cfg)
}

// requireOutputFile guards modes that cannot stream to stdout.
func requireOutputFile(cfg *contract.Config) error {
	if cfg.OutputFile == "" {
		return fmt.Errorf("--output-file is required for %s output", cfg.Output)
	}
	return nil
}
