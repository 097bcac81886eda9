package iocache

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
)

// HistoryRecorder records finished runs in a HistoryStore and derives the score trend.
type HistoryRecorder struct {
	store      contract.HistoryStore
	configJSON *string
	now        func() time.Time
}

var _ contract.HistorySink = &HistoryRecorder{} // Compile-time check

// NewHistoryRecorder creates a recorder over store. configParams is stored
// alongside every run and may be nil.
func NewHistoryRecorder(store contract.HistoryStore, configParams map[string]any) (*HistoryRecorder, error) {
	r := &HistoryRecorder{store: store, now: time.Now}
	if configParams != nil {
		data, err := json.Marshal(configParams)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal config params: %w", err)
		}
		s := string(data)
		r.configJSON = &s
	}
	return r, nil
}

// RecordScore stores results and compares them with the previous run of the same project.
func (r *HistoryRecorder) RecordScore(ctx context.Context, results *schema.AnalysisResults) (*schema.HistoryEntry, error) {
	if r.store == nil || results == nil {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	previous, err := r.store.GetRecentRuns(results.ProjectRoot, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read previous run: %w", err)
	}

	run, categories := r.toRecords(results)
	runID, err := r.store.RecordRun(run, categories)
	if err != nil {
		return nil, err
	}

	entry := &schema.HistoryEntry{
		RunID:       runID,
		ProjectRoot: results.ProjectRoot,
		Timestamp:   run.RunTime,
		Score:       results.Overall.Score,
		MaxScore:    results.Overall.MaxScore,
		Percentage:  results.Overall.Percentage,
		Grade:       results.Overall.Grade,
		Trend:       schema.TrendNew,
	}
	if len(previous) > 0 {
		prev := int(previous[0].Percentage)
		delta := entry.Percentage - prev
		entry.PreviousPercentage = &prev
		entry.Delta = &delta
		entry.Trend = TrendFor(delta)
	}
	return entry, nil
}

// TrendFor classifies a percentage delta against the previous run.
func TrendFor(delta int) schema.Trend {
	switch {
	case delta > 0:
		return schema.TrendImproving
	case delta < 0:
		return schema.TrendDeclining
	default:
		return schema.TrendStable
	}
}

func (r *HistoryRecorder) toRecords(results *schema.AnalysisResults) (schema.HistoryRunRecord, []schema.CategoryScoreRecord) {
	runTime := results.Timestamp
	if runTime.IsZero() {
		runTime = r.now()
	}
	duration := r.now().Sub(runTime).Milliseconds()

	run := schema.HistoryRunRecord{
		ProjectRoot: results.ProjectRoot,
		RunTime:     runTime,
		Score:       results.Overall.Score,
		MaxScore:    results.Overall.MaxScore,
		Percentage:  int32(results.Overall.Percentage),
		Grade:       string(results.Overall.Grade),
		HasErrors:   results.Overall.HasErrors,
		DurationMs:  &duration,
		ConfigJSON:  r.configJSON,
	}

	ids := make([]schema.CategoryID, 0, len(results.Categories))
	for id := range results.Categories {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	categories := make([]schema.CategoryScoreRecord, 0, len(ids))
	for _, id := range ids {
		c := results.Categories[id]
		record := schema.CategoryScoreRecord{
			Category:       string(id),
			Score:          c.Score,
			MaxScore:       c.MaxScore,
			Grade:          string(c.Grade),
			IssueCount:     int32(len(c.Issues)),
			AnalysisTimeMs: c.AnalysisTimeMs,
		}
		if c.HasError() {
			msg := c.Error
			record.ErrorMessage = &msg
		}
		categories = append(categories, record)
	}
	return run, categories
}
