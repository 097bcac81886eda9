// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteAnalysis prints assessment results using the configured output format.
func (ow *OutWriter) WriteAnalysis(results *schema.AnalysisResults, cfg *contract.Config, duration time.Duration) error {
	return PrintAnalysisResults(results, cfg, duration)
}

// WriteGates prints a gate report using the configured output format.
func (ow *OutWriter) WriteGates(report *schema.GateReport, cfg *contract.Config) error {
	return PrintGateReport(report, cfg)
}

// WriteGrades prints the grading curve and category weights.
func (ow *OutWriter) WriteGrades(curve []schema.GradeStep, weights map[schema.CategoryID]float64, cfg *contract.Config) error {
	return PrintGrades(curve, weights, cfg)
}

// WriteHistory prints recorded runs.
func (ow *OutWriter) WriteHistory(runs []schema.HistoryRunRecord, cfg *contract.Config) error {
	return PrintHistoryRuns(runs, cfg)
}
