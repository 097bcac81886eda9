package core

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/huangsam/qualgate/core/analyzer"
	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/internal/ui"
	"github.com/huangsam/qualgate/schema"
	"golang.org/x/sync/errgroup"
)

// Orchestrator runs the category analyzers, aggregates their scores and
// drives the optional post-steps of a run.
type Orchestrator struct {
	cfg         *contract.Config
	registry    *analyzer.Registry
	recovery    *RecoveryLayer
	gates       *GateEvaluator
	history     contract.HistorySink
	recommender contract.Recommender

	mu      sync.Mutex
	results map[schema.CategoryID]schema.CategoryResult
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithRegistry replaces the default analyzer registry.
func WithRegistry(r *analyzer.Registry) Option {
	return func(o *Orchestrator) { o.registry = r }
}

// WithHistorySink records every run in the given sink.
func WithHistorySink(s contract.HistorySink) Option {
	return func(o *Orchestrator) { o.history = s }
}

// WithRecommender replaces the rule-based recommender.
func WithRecommender(r contract.Recommender) Option {
	return func(o *Orchestrator) { o.recommender = r }
}

// WithGateEvaluator replaces the gate evaluator built from the config.
func WithGateEvaluator(g *GateEvaluator) Option {
	return func(o *Orchestrator) { o.gates = g }
}

// NewOrchestrator creates an orchestrator for cfg.
func NewOrchestrator(cfg *contract.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:         cfg,
		registry:    analyzer.DefaultRegistry(),
		recovery:    NewRecoveryLayer(),
		gates:       NewGateEvaluator(cfg.Thresholds, cfg.CI.Blocking),
		recommender: NewRuleRecommender(),
		results:     make(map[schema.CategoryID]schema.CategoryResult),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Gates returns the gate evaluator, which caches the last report.
func (o *Orchestrator) Gates() *GateEvaluator {
	return o.gates
}

// DetermineCategories resolves "all", category lists and comma-separated strings
// against the registry. Unknown names are dropped. The result follows registry order.
func (o *Orchestrator) DetermineCategories(requested ...string) ([]schema.CategoryID, error) {
	wanted := make(map[schema.CategoryID]struct{})
	all := false
	for _, entry := range requested {
		for name := range strings.SplitSeq(entry, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == schema.AllCategoriesKeyword {
				all = true
				continue
			}
			if name != "" {
				wanted[schema.CategoryID(name)] = struct{}{}
			}
		}
	}

	var categories []schema.CategoryID
	for _, id := range o.registry.Keys() {
		if _, ok := wanted[id]; all || ok {
			categories = append(categories, id)
		}
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoCategories, strings.Join(requested, ","))
	}
	return categories, nil
}

// RunCategoryAnalysis runs each category through the recovery layer, at most
// cfg.Workers at a time. A failing category never stops its siblings.
func (o *Orchestrator) RunCategoryAnalysis(ctx context.Context, categories []schema.CategoryID) map[schema.CategoryID]schema.CategoryResult {
	progress := ui.NewProgress(o.cfg.Progress && !isQuiet(ctx), "analyzing", len(categories))
	defer progress.Finish()

	g := new(errgroup.Group)
	g.SetLimit(max(o.cfg.Workers, 1))

	for _, id := range categories {
		a, ok := o.registry.Get(id)
		if !ok {
			continue
		}
		g.Go(func() error {
			start := time.Now()
			result := o.recovery.Execute(ctx, a, o.cfg.AnalyzerConfig(a.MaxScore()))
			result.AnalysisTimeMs = time.Since(start).Milliseconds()
			if result.HasError() {
				result.Score = 0
				result.Grade = schema.GradeF
			} else {
				result.Grade = GradeFor(result.Score, result.MaxScore)
			}
			o.store(id, result)
			progress.Increment(string(id))
			contract.LogInfo(o.cfg.Verbose, "%s scored %.1f/%.0f in %dms", id, result.Score, result.MaxScore, result.AnalysisTimeMs)
			return nil
		})
	}
	_ = g.Wait() // goroutines never fail

	return o.Results()
}

func (o *Orchestrator) store(id schema.CategoryID, result schema.CategoryResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results[id] = result
}

// Results returns a copy of the category results gathered so far.
func (o *Orchestrator) Results() map[schema.CategoryID]schema.CategoryResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return maps.Clone(o.results)
}

// CalculateOverallScore aggregates the stored category results.
func (o *Orchestrator) CalculateOverallScore() schema.OverallResult {
	return CalculateOverall(o.Results(), time.Now())
}

// CalculateOverall sums the category scores in a fixed order so the result
// does not depend on completion order.
func CalculateOverall(categories map[schema.CategoryID]schema.CategoryResult, now time.Time) schema.OverallResult {
	overall := schema.OverallResult{Timestamp: now}
	for _, id := range slices.Sorted(maps.Keys(categories)) {
		result := categories[id]
		overall.Score += result.Score
		overall.MaxScore += result.MaxScore
		if result.HasError() {
			overall.HasErrors = true
		}
	}
	if overall.MaxScore > 0 {
		overall.Percentage = int(math.Round(100 * overall.Score / overall.MaxScore))
	}
	overall.Grade = GradeFor(overall.Score, overall.MaxScore)
	return overall
}

// Run executes a full assessment: resolve categories, analyze, aggregate and then
// the post-steps. Only a configuration problem is returned as an error.
func (o *Orchestrator) Run(ctx context.Context, requested ...string) (*schema.AnalysisResults, error) {
	start := time.Now()
	if len(requested) == 0 {
		requested = o.cfg.Categories
	}
	categories, err := o.DetermineCategories(requested...)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.results = make(map[schema.CategoryID]schema.CategoryResult, len(categories))
	o.mu.Unlock()
	o.recovery.Reset()

	categoryResults := o.RunCategoryAnalysis(ctx, categories)
	results := &schema.AnalysisResults{
		ProjectRoot:     o.cfg.ProjectRoot,
		Overall:         o.CalculateOverallScore(),
		Categories:      categoryResults,
		Recommendations: []schema.Recommendation{},
		Timestamp:       start,
	}

	if o.gates != nil {
		runPostStep("gate evaluation", func() error {
			results.Gates = o.gates.EvaluateResults(results, o.cfg.Strict)
			return nil
		})
	}

	if o.recommender != nil && o.cfg.Recommendations.Enabled {
		runPostStep("recommendations", func() error {
			recs, err := o.recommender.GenerateRecommendations(ctx, results, schema.RecommendationOptions{
				MaxItems:    o.cfg.Recommendations.MaxItems,
				FocusFailed: true,
			})
			if err != nil {
				return err
			}
			if recs != nil {
				results.Recommendations = recs
			}
			return nil
		})
	}

	if o.history != nil {
		runPostStep("history recording", func() error {
			entry, err := o.history.RecordScore(ctx, results)
			if err != nil {
				return err
			}
			results.History = entry
			return nil
		})
	}

	if o.cfg.Detailed {
		runPostStep("detailed report", func() error {
			results.Detailed = BuildDetailedReport(results, o.recovery.Stats(), time.Since(start))
			return nil
		})
	}

	return results, nil
}

// runPostStep runs an optional feature. Errors and panics are logged and
// only that feature is lost.
func runPostStep(name string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			contract.LogWarn(name+" failed", fmt.Errorf("panic: %v", r))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		contract.LogWarn(name+" failed", err)
		return false
	}
	return true
}
