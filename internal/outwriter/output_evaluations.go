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

func eligibilityLabel(eligible bool, cfg *contract.Config) string {
	if cfg.UseColors {
		return contract.GetColorEligibilityLabel(eligible)
	}
	return contract.GetEligibilityLabel(eligible)
}

func severityOrDash(key string) string {
	if key == "" {
		return "-"
	}
	return key
}

func (ow *OutWriter) writeEvaluations(evals []schema.Evaluation, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, ow.stdout, func(w io.Writer) error {
			return writeJSON(w, evals)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, ow.stdout, func(w io.Writer) error {
			return writeCSVEvaluations(w, evals, fmtFloat)
		}, "Wrote CSV")
	case schema.ParquetOut:
		if err := requireOutputFile(cfg); err != nil {
			return err
		}
		if err := parquet.WriteEvaluationsParquet(parquet.ConvertEvaluations(evals), cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		_, _ = fmt.Fprintf(ow.stdout, "Exported %d evaluations to: %s\n", len(evals), cfg.OutputFile)
		return nil
	default:
		return writeWithFile(cfg.OutputFile, ow.stdout, func(w io.Writer) error {
			return writeEvaluationsTable(w, evals, cfg, fmtFloat)
		}, "Wrote table")
	}
}

func writeEvaluationsTable(w io.Writer, evals []schema.Evaluation, cfg *contract.Config, fmtFloat func(float64) string) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Change", "Component", "Severity", "Eligibility", "Score", "Impact"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	impactWidth := getMaxTextWidth(cfg, 70)
	var data [][]string
	for i, e := range evals {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			strconv.FormatInt(e.ChangeID, 10),
			e.ComponentKey,
			severityOrDash(e.SeverityKey),
			eligibilityLabel(e.IsEligible, cfg),
			fmtFloat(e.FinalScore),
			contract.TruncateText(e.ImpactSummary, impactWidth),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing top %d evaluations\n", len(evals))
	return err
}

func writeCSVEvaluations(w io.Writer, evals []schema.Evaluation, fmtFloat func(float64) string) error {
	header := []string{"rank", "change_id", "rule_set_id", "batch_id", "component", "severity", "base_points",
		"multiplier", "issue", "fix_implementation", "pr_linked", "tests", "eligibility", "final_score", "model", "evaluated_at"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, e := range evals {
			rec := []string{
				strconv.Itoa(i + 1),
				strconv.FormatInt(e.ChangeID, 10),
				strconv.FormatInt(e.RuleSetID, 10),
				strconv.FormatInt(e.BatchID, 10),
				e.ComponentKey,
				e.SeverityKey,
				strconv.Itoa(e.BasePoints),
				strconv.FormatFloat(e.Multiplier, 'f', -1, 64),
				strconv.FormatBool(e.Eligibility.Issue),
				strconv.FormatBool(e.Eligibility.FixImplementation),
				strconv.FormatBool(e.Eligibility.PRLinked),
				strconv.FormatBool(e.Eligibility.Tests),
				contract.GetEligibilityLabel(e.IsEligible),
				fmtFloat(e.FinalScore),
				e.Model,
				formatTime(&e.EvaluatedAt),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
