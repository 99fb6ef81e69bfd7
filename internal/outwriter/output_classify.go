package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
	"github.com/olekukonko/tablewriter"
)

func (ow *OutWriter) writeClassification(changeID int64, c *schema.Classification, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, ow.stdout, func(w io.Writer) error {
			return writeJSON(w, c)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, ow.stdout, func(w io.Writer) error {
			header := []string{"change_id", "component", "line_delta", "priority", "primary"}
			return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
				for _, m := range c.Matches {
					if err := cw.Write([]string{strconv.FormatInt(changeID, 10), m.ComponentKey,
						strconv.Itoa(m.LineDelta), strconv.Itoa(m.Priority), strconv.FormatBool(m.IsPrimary)}); err != nil {
						return err
					}
				}
				return nil
			})
		}, "Wrote CSV")
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is not supported for classifications")
	default:
		return writeWithFile(cfg.OutputFile, ow.stdout, func(w io.Writer) error {
			table := tablewriter.NewWriter(w)
			table.Header([]string{"Component", "Lines", "Priority", "Primary"})
			var data [][]string
			for _, m := range c.Matches {
				primary := ""
				if m.IsPrimary {
					primary = "*"
				}
				data = append(data, []string{m.ComponentKey, strconv.Itoa(m.LineDelta), strconv.Itoa(m.Priority), primary})
			}
			if err := table.Bulk(data); err != nil {
				return err
			}
			if err := table.Render(); err != nil {
				return err
			}
			if c.Primary == nil {
				_, err := fmt.Fprintf(w, "Change %d matched no component\n", changeID)
				return err
			}
			_, err := fmt.Fprintf(w, "Change %d is primarily %s\n", changeID, c.Primary.ComponentKey)
			return err
		}, "Wrote table")
	}
}
