package core

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/huangsam/qualgate/schema"
)

// RecommendationSourceRules marks recommendations produced by RuleRecommender.
const RecommendationSourceRules = "rules"

// priorityRank orders priorities from most to least urgent.
var priorityRank = map[schema.Priority]int{
	schema.PriorityHigh:   0,
	schema.PriorityMedium: 1,
	schema.PriorityLow:    2,
}

// RuleRecommender derives recommendations from analyzer suggestions and scores.
type RuleRecommender struct{}

// NewRuleRecommender creates a rule-based recommender.
func NewRuleRecommender() *RuleRecommender {
	return &RuleRecommender{}
}

// GenerateRecommendations implements contract.Recommender.
func (r *RuleRecommender) GenerateRecommendations(_ context.Context, results *schema.AnalysisResults, opts schema.RecommendationOptions) ([]schema.Recommendation, error) {
	if results == nil {
		return []schema.Recommendation{}, nil
	}
	failed := failedCategories(results.Gates)

	recs := []schema.Recommendation{}
	for _, id := range slices.Sorted(maps.Keys(results.Categories)) {
		result := results.Categories[id]
		summary := fmt.Sprintf("%s scored %s/%s (%s)", id, formatNumber(result.Score), formatNumber(result.MaxScore), result.Grade)

		if result.HasError() {
			recs = append(recs, schema.Recommendation{
				Category:    id,
				Priority:    schema.PriorityHigh,
				Title:       fmt.Sprintf("Fix the %s analysis failure", id),
				Description: result.Error,
				Source:      RecommendationSourceRules,
			})
			continue
		}

		priority := PriorityFor(result.Score, result.MaxScore)
		if _, ok := failed[id]; ok && opts.FocusFailed {
			priority = schema.PriorityHigh
		}
		if priority == schema.PriorityLow && !opts.IncludeLow {
			continue
		}
		for _, suggestion := range result.Suggestions {
			recs = append(recs, schema.Recommendation{
				Category:    id,
				Priority:    priority,
				Title:       suggestion,
				Description: summary,
				Source:      RecommendationSourceRules,
			})
		}
	}

	slices.SortStableFunc(recs, func(a, b schema.Recommendation) int {
		return priorityRank[a.Priority] - priorityRank[b.Priority]
	})
	if opts.MaxItems > 0 && len(recs) > opts.MaxItems {
		recs = recs[:opts.MaxItems]
	}
	return recs, nil
}

// PriorityFor maps a category score ratio to a recommendation priority.
func PriorityFor(score, maxScore float64) schema.Priority {
	if maxScore <= 0 {
		return schema.PriorityHigh
	}
	switch ratio := score / maxScore; {
	case ratio < 0.6:
		return schema.PriorityHigh
	case ratio < 0.8:
		return schema.PriorityMedium
	default:
		return schema.PriorityLow
	}
}

func failedCategories(report *schema.GateReport) map[schema.CategoryID]struct{} {
	failed := make(map[schema.CategoryID]struct{})
	if report == nil {
		return failed
	}
	for _, g := range report.FailedGates() {
		if g.Type == schema.CategoryGate {
			failed[schema.CategoryID(g.Name)] = struct{}{}
		}
	}
	return failed
}
