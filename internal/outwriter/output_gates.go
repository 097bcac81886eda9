package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintGateReport outputs a gate report, dispatching based on the output format configured.
func PrintGateReport(report *schema.GateReport, cfg *contract.Config) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeGatesCSV(w, report, fmtFloat, intFmt)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeGatesText(w, report, cfg, fmtFloat)
		}, "Wrote table")
	}
}

func formatThreshold(t *float64, fmtFloat func(float64) string) string {
	if t == nil {
		return "-"
	}
	return fmtFloat(*t)
}

// writeGatesText writes a table of gates followed by the verdict.
func writeGatesText(w io.Writer, report *schema.GateReport, cfg *contract.Config, fmtFloat func(float64) string) error {
	if len(report.Gates) > 0 {
		table := tablewriter.NewWriter(w)
		table.Header([]string{"Gate", "Score", "Threshold", "Verdict", "Message"})
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignLeft
		})
		width := getMaxTableTextWidth(cfg)
		var data [][]string
		for _, g := range report.Gates {
			data = append(data, []string{
				g.Name,
				fmtFloat(g.Score),
				formatThreshold(g.Threshold, fmtFloat),
				contract.GetColorVerdict(g),
				contract.TruncateText(g.Message, width),
			})
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	icon := "✅"
	if !report.Passed {
		icon = "❌"
	}
	_, err := fmt.Fprintf(w, "%s %s\n", icon, report.Message)
	return err
}

// writeGatesCSV writes one row per gate.
func writeGatesCSV(w io.Writer, report *schema.GateReport, fmtFloat func(float64) string, _ string) error {
	header := []string{"gate", "type", "score", "threshold", "verdict", "message"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, g := range report.Gates {
			threshold := ""
			if g.Threshold != nil {
				threshold = fmtFloat(*g.Threshold)
			}
			if err := cw.Write([]string{
				g.Name,
				string(g.Type),
				fmtFloat(g.Score),
				threshold,
				contract.GetPlainVerdict(g),
				g.Message,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}
