package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"

	"github.com/olekukonko/tablewriter"
)

// PrintHistoryRuns outputs recorded runs, newest first as given.
func PrintHistoryRuns(runs []schema.HistoryRunRecord, cfg *contract.Config) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, runs)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			header := []string{"run_id", "project_root", "run_time", "score", "max_score", "percentage", "grade", "has_errors"}
			return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
				for _, r := range runs {
					if err := cw.Write([]string{
						strconv.FormatInt(r.RunID, 10),
						r.ProjectRoot,
						r.RunTime.Format(contract.DateTimeFormat),
						fmtFloat(r.Score),
						fmtFloat(r.MaxScore),
						fmt.Sprintf(intFmt, r.Percentage),
						r.Grade,
						strconv.FormatBool(r.HasErrors),
					}); err != nil {
						return err
					}
				}
				return nil
			})
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if len(runs) == 0 {
				_, err := fmt.Fprintln(w, "No runs recorded yet")
				return err
			}
			table := tablewriter.NewWriter(w)
			table.Header([]string{"Run", "Time", "Score", "Percent", "Grade", "Errors"})
			var data [][]string
			for _, r := range runs {
				data = append(data, []string{
					strconv.FormatInt(r.RunID, 10),
					r.RunTime.Format(contract.DateTimeFormat),
					fmtFloat(r.Score) + "/" + fmtFloat(r.MaxScore),
					fmt.Sprintf(intFmt+"%%", r.Percentage),
					contract.GetColorGrade(schema.Grade(r.Grade)),
					strconv.FormatBool(r.HasErrors),
				})
			}
			if err := table.Bulk(data); err != nil {
				return err
			}
			return table.Render()
		}, "Wrote table")
	}
}
