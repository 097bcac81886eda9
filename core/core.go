// Package core has core logic for assessment, grading and quality gates.
package core

import (
	"context"
	"time"

	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/internal/outwriter"
	"github.com/huangsam/qualgate/schema"
)

// ExecutorFunc defines the function signature for executing different commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, opts ...Option) error

// ExecuteAnalyze runs a full assessment and prints the results.
// It serves as the main entry point for the 'analyze' command.
func ExecuteAnalyze(ctx context.Context, cfg *contract.Config, opts ...Option) error {
	start := time.Now()
	results, err := NewOrchestrator(cfg, opts...).Run(ctx)
	if err != nil {
		return err
	}
	return outwriter.PrintAnalysisResults(results, cfg, time.Since(start))
}

// ExecuteGrades displays the grading curve and the category weights.
// This is a static display that does not run any analyzer.
func ExecuteGrades(_ context.Context, cfg *contract.Config, opts ...Option) error {
	return outwriter.PrintGrades(GradingCurve(), NewOrchestrator(cfg, opts...).Weights(), cfg)
}

// Weights returns the max score of every registered category.
func (o *Orchestrator) Weights() map[schema.CategoryID]float64 {
	weights := make(map[schema.CategoryID]float64)
	for _, id := range o.registry.Keys() {
		if a, ok := o.registry.Get(id); ok {
			weights[id] = a.MaxScore()
		}
	}
	return weights
}
