package core

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/huangsam/qualgate/schema"
)

// overallGateName names the overall gate in reports.
const overallGateName = "overall"

// GateEvaluator compares scores to the configured thresholds.
// It caches the last report for rendering without re-evaluating.
type GateEvaluator struct {
	thresholds schema.ThresholdConfig
	blocking   schema.BlockingConfig

	mu   sync.Mutex
	last *schema.GateReport
}

// NewGateEvaluator creates an evaluator for the given thresholds and blocking policy.
func NewGateEvaluator(thresholds schema.ThresholdConfig, blocking schema.BlockingConfig) *GateEvaluator {
	return &GateEvaluator{thresholds: thresholds, blocking: blocking}
}

// EvaluateResults builds one overall gate plus one gate per category in results.
// When gates are disabled the report passes with no gates at all.
func (e *GateEvaluator) EvaluateResults(results *schema.AnalysisResults, strict bool) *schema.GateReport {
	report := &schema.GateReport{
		Gates:     []schema.GateResult{},
		Timestamp: time.Now(),
		Config:    schema.GateReportConfig{Strict: strict, Thresholds: e.thresholds},
		Results:   schema.GateScores{Categories: make(map[schema.CategoryID]float64)},
	}

	if !e.thresholds.Enabled {
		report.Passed = true
		report.Message = "Quality gates disabled"
		e.remember(report)
		return report
	}

	report.Results.Overall = float64(results.Overall.Percentage)
	report.Gates = append(report.Gates, EvaluateGate(overallGateName, schema.OverallGate, report.Results.Overall, e.thresholds.Overall, true))

	for _, id := range slices.Sorted(maps.Keys(results.Categories)) {
		result := results.Categories[id]
		report.Results.Categories[id] = result.Score

		threshold, configured := e.thresholds.Categories[id]
		var gate schema.GateResult
		if result.HasError() && e.failsErrored() {
			gate = erroredGate(string(id), result, threshold)
		} else {
			gate = EvaluateGate(string(id), schema.CategoryGate, result.Score, threshold, configured)
		}
		gate.Details["max_score"] = result.MaxScore
		report.Gates = append(report.Gates, gate)
	}

	report.Summary = CalculateSummary(report.Gates)
	report.Passed = decide(report.Summary, report.Gates, strict)
	report.Message = GenerateMessage(report.Summary, report.Passed)
	e.remember(report)
	return report
}

// failsErrored reports whether an errored category fails its gate regardless
// of thresholds. Only an enabled blocking policy with on-failure=error does so.
func (e *GateEvaluator) failsErrored() bool {
	return e.blocking.Enabled && e.blocking.OnFailure == schema.BlockError
}

func (e *GateEvaluator) remember(report *schema.GateReport) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.last = report
}

// LastReport returns the report of the most recent evaluation, or nil.
func (e *GateEvaluator) LastReport() *schema.GateReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// EvaluateGate applies one threshold to a score. An unconfigured gate always passes.
func EvaluateGate(name string, gateType schema.GateType, score float64, threshold schema.Threshold, configured bool) schema.GateResult {
	gate := schema.GateResult{
		Name:    name,
		Type:    gateType,
		Passed:  true,
		Score:   score,
		Details: map[string]any{},
	}
	if !configured {
		gate.Message = GenerateGateMessage(name, score, schema.Threshold{}, true, false)
		return gate
	}

	minScore := 0.0
	if threshold.Min != nil {
		minScore = *threshold.Min
		gate.Threshold = threshold.Min
		gate.Details["min"] = *threshold.Min
	}
	if threshold.Warning != nil {
		gate.Details["warning"] = *threshold.Warning
	}
	gate.Passed = score >= minScore
	gate.Warning = threshold.Warning != nil && score < *threshold.Warning
	gate.Message = GenerateGateMessage(name, score, threshold, gate.Passed, gate.Warning)
	return gate
}

// erroredGate fails a category whose analyzer could not run.
func erroredGate(name string, result schema.CategoryResult, threshold schema.Threshold) schema.GateResult {
	return schema.GateResult{
		Name:      name,
		Type:      schema.CategoryGate,
		Passed:    false,
		Score:     result.Score,
		Threshold: threshold.Min,
		Message:   fmt.Sprintf("%s: FAILED (analysis error: %s)", name, result.Error),
		Details:   map[string]any{"error": result.Error},
	}
}

// CalculateSummary counts gate verdicts. The pass rate is 0 without gates.
func CalculateSummary(gates []schema.GateResult) schema.GateSummary {
	summary := schema.GateSummary{Total: len(gates)}
	for _, g := range gates {
		if g.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
		if g.Warning {
			summary.Warnings++
		}
	}
	if summary.Total > 0 {
		summary.PassRate = float64(summary.Passed) / float64(summary.Total) * 100
	}
	return summary
}

// decide applies the pass policy. The default policy needs at least one
// passing gate and no failures. Strict needs every gate to pass.
func decide(summary schema.GateSummary, gates []schema.GateResult, strict bool) bool {
	if !strict {
		return summary.Passed > 0 && summary.Failed == 0
	}
	for _, g := range gates {
		if !g.Passed {
			return false
		}
	}
	return true
}

// GenerateGateMessage describes one gate verdict. It is deterministic for identical inputs.
func GenerateGateMessage(name string, score float64, threshold schema.Threshold, passed, warning bool) string {
	s := formatNumber(score)
	minScore := 0.0
	if threshold.Min != nil {
		minScore = *threshold.Min
	}
	switch {
	case !passed:
		return fmt.Sprintf("%s: %s < %s FAILED", name, s, formatNumber(minScore))
	case warning:
		return fmt.Sprintf("%s: %s PASSED (warning: below %s)", name, s, formatNumber(*threshold.Warning))
	case threshold.Min == nil && threshold.Warning == nil:
		return fmt.Sprintf("%s: %s PASSED (no threshold configured)", name, s)
	default:
		return fmt.Sprintf("%s: %s >= %s PASSED", name, s, formatNumber(minScore))
	}
}

// GenerateMessage summarizes a report. It is deterministic for identical inputs.
func GenerateMessage(summary schema.GateSummary, passed bool) string {
	switch {
	case passed && summary.Warnings > 0:
		return fmt.Sprintf("Quality gates PASSED with %d warning(s): %d/%d gates passed", summary.Warnings, summary.Passed, summary.Total)
	case passed:
		return fmt.Sprintf("Quality gates PASSED: %d/%d gates passed", summary.Passed, summary.Total)
	case summary.Failed > 0:
		return fmt.Sprintf("Quality gates FAILED: %d/%d gates failed", summary.Failed, summary.Total)
	default:
		return fmt.Sprintf("Quality gates FAILED: no gate passed out of %d", summary.Total)
	}
}

// ShouldBlock reports whether a report should fail the pipeline under the blocking policy.
func ShouldBlock(report *schema.GateReport, blocking schema.BlockingConfig) bool {
	if report == nil || !blocking.Enabled {
		return false
	}
	if !report.Passed && blocking.OnFailure == schema.BlockError {
		return true
	}
	return report.Summary.Warnings > 0 && blocking.OnWarning == schema.BlockError
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
