package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

func (ow *OutWriter) writeSyncReports(reports []schema.SyncReport, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, ow.stdout, func(w io.Writer) error {
			return writeJSON(w, reports)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, ow.stdout, func(w io.Writer) error {
			header := []string{"repository", "issues", "changes", "changed_files", "issue_links"}
			return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
				for _, r := range reports {
					if err := cw.Write([]string{r.Repository, strconv.Itoa(r.Issues), strconv.Itoa(r.Changes),
						strconv.Itoa(r.ChangedFiles), strconv.Itoa(r.IssueLinks)}); err != nil {
						return err
					}
				}
				return nil
			})
		}, "Wrote CSV")
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is not supported for sync reports")
	default:
		return writeWithFile(cfg.OutputFile, ow.stdout, func(w io.Writer) error {
			return writeSyncTable(w, reports, duration)
		}, "Wrote table")
	}
}

func writeSyncTable(w io.Writer, reports []schema.SyncReport, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Repository", "Issues", "Changes", "Files", "Links"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	var changes int
	for _, r := range reports {
		data = append(data, []string{
			r.Repository,
			strconv.Itoa(r.Issues),
			strconv.Itoa(r.Changes),
			strconv.Itoa(r.ChangedFiles),
			strconv.Itoa(r.IssueLinks),
		})
		changes += r.Changes
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Synced %d changes across %d repositories in %v\n", changes, len(reports), duration)
	return err
}
