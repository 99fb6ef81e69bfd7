package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/internal/parquet"
	"github.com/huangsam/prscore/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// statusLabel colors a batch status when colors are enabled.
func statusLabel(status schema.BatchStatus, cfg *contract.Config) string {
	if cfg.UseColors {
		return contract.GetColorStatus(status)
	}
	return string(status)
}

func itemLabel(status schema.ItemStatus, cfg *contract.Config) string {
	if !cfg.UseColors {
		return string(status)
	}
	switch status {
	case schema.ItemEvaluated:
		return contract.CompletedColor.Sprint(status)
	case schema.ItemFailed:
		return contract.FailedColor.Sprint(status)
	default:
		return contract.PendingColor.Sprint(status)
	}
}

func shortUID(uid string) string {
	if len(uid) > 8 {
		return uid[:8]
	}
	return uid
}

func (ow *OutWriter) writeBatchReport(report *schema.BatchReport, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, ow.stdout, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, ow.stdout, func(w io.Writer) error {
			return writeCSVBatchItems(w, report, fmtFloat)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return ow.writeBatchesParquet([]schema.EvaluationBatch{report.Batch}, cfg)
	default:
		return writeWithFile(cfg.OutputFile, ow.stdout, func(w io.Writer) error {
			return writeBatchReportText(w, report, cfg, fmtFloat)
		}, "Wrote table")
	}
}

func writeBatchReportText(w io.Writer, report *schema.BatchReport, cfg *contract.Config, fmtFloat func(float64) string) error {
	b := report.Batch
	if _, err := fmt.Fprintf(w, "Batch %d (%s) %s [%s]\n", b.ID, b.UID, statusLabel(b.Status, cfg), b.RunType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Items: %d total, %d evaluated, %d failed\n", b.ItemsTotal, b.ItemsEvaluated, b.ItemsFailed); err != nil {
		return err
	}
	if b.ErrorMessage != "" {
		if _, err := fmt.Fprintf(w, "Error: %s\n", b.ErrorMessage); err != nil {
			return err
		}
	}

	if len(report.Items) > 0 {
		table := tablewriter.NewWriter(w)
		table.Header([]string{"#", "Change", "Status", "Score", "Error"})
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignRight
		})

		errWidth := getMaxTextWidth(cfg, 45)
		var data [][]string
		for i, item := range report.Items {
			data = append(data, []string{
				strconv.Itoa(i + 1),
				fmt.Sprintf("%s#%d", item.Repository, item.Number),
				itemLabel(item.Status, cfg),
				fmtFloat(item.FinalScore),
				contract.TruncateText(item.Error, errWidth),
			})
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	if report.Duration > 0 {
		_, err := fmt.Fprintf(w, "Batch finished in %v.\n", report.Duration)
		return err
	}
	return nil
}

func writeCSVBatchItems(w io.Writer, report *schema.BatchReport, fmtFloat func(float64) string) error {
	header := []string{"batch_id", "change_id", "repository", "number", "status", "final_score", "error"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, item := range report.Items {
			rec := []string{
				strconv.FormatInt(report.Batch.ID, 10),
				strconv.FormatInt(item.ChangeID, 10),
				item.Repository,
				strconv.Itoa(item.Number),
				string(item.Status),
				fmtFloat(item.FinalScore),
				item.Error,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (ow *OutWriter) writeBatches(batches []schema.EvaluationBatch, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, ow.stdout, func(w io.Writer) error {
			return writeJSON(w, batches)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, ow.stdout, func(w io.Writer) error {
			return writeCSVBatches(w, batches)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return ow.writeBatchesParquet(batches, cfg)
	default:
		return writeWithFile(cfg.OutputFile, ow.stdout, func(w io.Writer) error {
			return writeBatchesTable(w, batches, cfg)
		}, "Wrote table")
	}
}

func writeBatchesTable(w io.Writer, batches []schema.EvaluationBatch, cfg *contract.Config) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "UID", "Status", "Run", "Total", "Evaluated", "Failed", "Started", "Completed", "Error"})

	errWidth := getMaxTextWidth(cfg, 110)
	var data [][]string
	for _, b := range batches {
		data = append(data, []string{
			strconv.FormatInt(b.ID, 10),
			shortUID(b.UID),
			statusLabel(b.Status, cfg),
			string(b.RunType),
			strconv.Itoa(b.ItemsTotal),
			strconv.Itoa(b.ItemsEvaluated),
			strconv.Itoa(b.ItemsFailed),
			formatTime(b.StartedAt),
			formatTime(b.CompletedAt),
			contract.TruncateText(b.ErrorMessage, errWidth),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d batches\n", len(batches))
	return err
}

func writeCSVBatches(w io.Writer, batches []schema.EvaluationBatch) error {
	header := []string{"id", "uid", "organization_id", "rule_set_id", "run_type", "status",
		"items_total", "items_evaluated", "items_failed", "started_at", "completed_at", "error_message"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, b := range batches {
			rec := []string{
				strconv.FormatInt(b.ID, 10),
				b.UID,
				strconv.FormatInt(b.OrganizationID, 10),
				strconv.FormatInt(b.RuleSetID, 10),
				string(b.RunType),
				string(b.Status),
				strconv.Itoa(b.ItemsTotal),
				strconv.Itoa(b.ItemsEvaluated),
				strconv.Itoa(b.ItemsFailed),
				formatTime(b.StartedAt),
				formatTime(b.CompletedAt),
				b.ErrorMessage,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (ow *OutWriter) writeBatchesParquet(batches []schema.EvaluationBatch, cfg *contract.Config) error {
	if err := requireOutputFile(cfg); err != nil {
		return err
	}
	if err := parquet.WriteBatchesParquet(parquet.ConvertBatches(batches), cfg.OutputFile); err != nil {
		return fmt.Errorf("error writing Parquet output: %w", err)
	}
	_, _ = fmt.Fprintf(ow.stdout, "Exported %d batches to: %s\n", len(batches), cfg.OutputFile)
	return nil
}
