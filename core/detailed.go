package core

import (
	"maps"
	"slices"
	"time"

	"github.com/huangsam/qualgate/schema"
)

// BuildDetailedReport expands the results with per-category breakdowns and error statistics.
func BuildDetailedReport(results *schema.AnalysisResults, stats schema.ErrorStats, elapsed time.Duration) *schema.DetailedReport {
	report := &schema.DetailedReport{
		Categories:  make([]schema.CategoryDetail, 0, len(results.Categories)),
		ErrorStats:  stats,
		TotalTimeMs: elapsed.Milliseconds(),
		GeneratedAt: time.Now(),
	}
	for _, id := range slices.Sorted(maps.Keys(results.Categories)) {
		r := results.Categories[id]
		report.Categories = append(report.Categories, schema.CategoryDetail{
			Category:       id,
			Score:          r.Score,
			MaxScore:       r.MaxScore,
			Grade:          r.Grade,
			Issues:         r.Issues,
			Suggestions:    r.Suggestions,
			Details:        r.Details,
			AnalysisTimeMs: r.AnalysisTimeMs,
			ErrorCount:     len(r.Errors),
			WarningCount:   len(r.Warnings),
			Error:          r.Error,
		})
	}
	return report
}
