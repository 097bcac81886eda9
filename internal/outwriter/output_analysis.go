package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// maxIssuesShown caps the issues listed per category in text output.
const maxIssuesShown = 5

// PrintAnalysisResults outputs assessment results, dispatching based on the output format configured.
func PrintAnalysisResults(results *schema.AnalysisResults, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, results)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeAnalysisCSV(w, results, fmtFloat, intFmt)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeAnalysisText(w, results, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
	return nil
}

// sortedCategories returns the category ids of results in a stable order.
func sortedCategories(results *schema.AnalysisResults) []schema.CategoryID {
	return slices.Sorted(maps.Keys(results.Categories))
}

// writeAnalysisText generates and writes the human-readable report.
func writeAnalysisText(w io.Writer, results *schema.AnalysisResults, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	if _, err := fmt.Fprintf(w, "📊 Quality assessment of %s\n", results.ProjectRoot); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	headers := []string{"Category", "Score", "Max", "Grade", "Issues"}
	if cfg.Detailed {
		headers = append(headers, "Time")
	}
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, id := range sortedCategories(results) {
		r := results.Categories[id]
		row := []string{
			string(id),
			fmtFloat(r.Score),
			fmtFloat(r.MaxScore),
			contract.GetColorGrade(r.Grade),
			strconv.Itoa(len(r.Issues)),
		}
		if cfg.Detailed {
			row = append(row, (time.Duration(r.AnalysisTimeMs) * time.Millisecond).String())
		}
		data = append(data, row)
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	o := results.Overall
	if _, err := fmt.Fprintf(w, "Overall: %s/%s (%d%%) grade %s\n", fmtFloat(o.Score), fmtFloat(o.MaxScore), o.Percentage, contract.GetColorGrade(o.Grade)); err != nil {
		return err
	}
	if o.HasErrors {
		if _, err := fmt.Fprintln(w, "⚠️  Some categories could not be analyzed and scored 0"); err != nil {
			return err
		}
	}

	if err := writeIssues(w, results, cfg); err != nil {
		return err
	}
	if err := writeRecommendations(w, results.Recommendations, cfg); err != nil {
		return err
	}
	if results.History != nil {
		if _, err := fmt.Fprintf(w, "\n📈 %s\n", formatTrend(results.History)); err != nil {
			return err
		}
	}
	if results.Detailed != nil {
		s := results.Detailed.ErrorStats
		if _, err := fmt.Fprintf(w, "\nErrors: %d total, %d recovered\n", s.Total, s.Recoveries); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "Analysis completed in %v with %d workers.\n", duration, cfg.Workers)
	return err
}

func writeIssues(w io.Writer, results *schema.AnalysisResults, cfg *contract.Config) error {
	width := getMaxTableTextWidth(cfg)
	for _, id := range sortedCategories(results) {
		r := results.Categories[id]
		if len(r.Issues) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "\n🔎 %s\n", id); err != nil {
			return err
		}
		limit := len(r.Issues)
		if !cfg.Detailed {
			limit = min(limit, maxIssuesShown)
		}
		for _, issue := range r.Issues[:limit] {
			if _, err := fmt.Fprintf(w, "  - %s\n", contract.TruncateText(issue, width)); err != nil {
				return err
			}
		}
		if rest := len(r.Issues) - limit; rest > 0 {
			if _, err := fmt.Fprintf(w, "  ... and %d more\n", rest); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeRecommendations(w io.Writer, recs []schema.Recommendation, cfg *contract.Config) error {
	if len(recs) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "\n💡 Recommendations"); err != nil {
		return err
	}
	width := getMaxTableTextWidth(cfg)
	for i, rec := range recs {
		if _, err := fmt.Fprintf(w, "  %d. [%s] %s (%s)\n", i+1, rec.Priority, contract.TruncateText(rec.Title, width), rec.Category); err != nil {
			return err
		}
	}
	return nil
}

// formatTrend describes a history entry in one line.
func formatTrend(h *schema.HistoryEntry) string {
	if h.PreviousPercentage == nil || h.Delta == nil {
		return fmt.Sprintf("First recorded run (%d%%)", h.Percentage)
	}
	return fmt.Sprintf("Trend: %s (%d%% -> %d%%, %+d)", h.Trend, *h.PreviousPercentage, h.Percentage, *h.Delta)
}

// writeAnalysisCSV writes one row per category followed by the overall row.
func writeAnalysisCSV(w io.Writer, results *schema.AnalysisResults, fmtFloat func(float64) string, intFmt string) error {
	header := []string{"category", "score", "max_score", "percentage", "grade", "issues", "error"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, id := range sortedCategories(results) {
			r := results.Categories[id]
			pct := 0.0
			if r.MaxScore > 0 {
				pct = 100 * r.Score / r.MaxScore
			}
			rec := []string{
				string(id),
				fmtFloat(r.Score),
				fmtFloat(r.MaxScore),
				fmtFloat(pct),
				string(r.Grade),
				fmt.Sprintf(intFmt, len(r.Issues)),
				r.Error,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		o := results.Overall
		return cw.Write([]string{
			"overall",
			fmtFloat(o.Score),
			fmtFloat(o.MaxScore),
			fmt.Sprintf(intFmt, o.Percentage),
			string(o.Grade),
			"",
			"",
		})
	})
}
