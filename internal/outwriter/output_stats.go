package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/internal/parquet"
	"github.com/huangsam/prscore/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

func (ow *OutWriter) writeStats(summaries []schema.DeveloperSummary, daily []schema.DeveloperDailyStat, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtInt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, ow.stdout, func(w io.Writer) error {
			return writeJSONStats(w, summaries)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, ow.stdout, func(w io.Writer) error {
			return writeCSVStats(w, summaries, fmtFloat, fmtInt)
		}, "Wrote CSV")
	case schema.ParquetOut:
		if err := requireOutputFile(cfg); err != nil {
			return err
		}
		if err := parquet.WriteDailyStatsParquet(parquet.ConvertDailyStats(daily), cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		_, _ = fmt.Fprintf(ow.stdout, "Exported %d daily stats to: %s\n", len(daily), cfg.OutputFile)
		return nil
	default:
		return writeWithFile(cfg.OutputFile, ow.stdout, func(w io.Writer) error {
			return writeStatsTable(w, summaries, cfg, fmtFloat, fmtInt, duration)
		}, "Wrote table")
	}
}

func writeStatsTable(w io.Writer, summaries []schema.DeveloperSummary, cfg *contract.Config,
	fmtFloat func(float64) string, fmtInt func(int) string, duration time.Duration,
) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Developer", "Score", "PRs", "P0", "P1", "P2", "P3", "Days", "Components"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	// Rank, score, counters and days
	componentWidth := getMaxTextWidth(cfg, 60)
	var data [][]string
	var total float64
	var prs int
	for i, s := range summaries {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			s.DeveloperLogin,
			fmtFloat(s.TotalScore),
			fmtInt(s.PRCount),
			fmtInt(s.P0Count),
			fmtInt(s.P1Count),
			fmtInt(s.P2Count),
			fmtInt(s.P3Count),
			fmtInt(s.Days),
			contract.TruncateText(schema.FormatComponentScores(s.ComponentScores, cfg.Precision), componentWidth),
		})
		total += s.TotalScore
		prs += s.PRCount
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Showing %d developers from %s to %s (total score: %s, PRs: %d)\n",
		len(summaries), cfg.StartDate, cfg.EndDate, fmtFloat(total), prs); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Query completed in %v. Store backend: %s\n", duration, cfg.StoreBackend)
	return err
}

func writeCSVStats(w io.Writer, summaries []schema.DeveloperSummary, fmtFloat func(float64) string, fmtInt func(int) string) error {
	header := []string{"rank", "developer", "total_score", "pr_count", "p0_count", "p1_count", "p2_count", "p3_count", "days", "component_scores"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, s := range summaries {
			rec := []string{
				strconv.Itoa(i + 1),
				s.DeveloperLogin,
				fmtFloat(s.TotalScore),
				fmtInt(s.PRCount),
				fmtInt(s.P0Count),
				fmtInt(s.P1Count),
				fmtInt(s.P2Count),
				fmtInt(s.P3Count),
				fmtInt(s.Days),
				schema.FormatComponentScores(s.ComponentScores, 2),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeJSONStats(w io.Writer, summaries []schema.DeveloperSummary) error {
	type jsonSummary struct {
		Rank int `json:"rank"`
		schema.DeveloperSummary
	}
	output := make([]jsonSummary, len(summaries))
	for i, s := range summaries {
		output[i] = jsonSummary{Rank: i + 1, DeveloperSummary: s}
	}
	return writeJSON(w, output)
}
