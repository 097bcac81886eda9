package contract

import (
	"context"

	"github.com/huangsam/qualgate/schema"
	"github.com/stretchr/testify/mock"
)

// MockAnalyzer is a mock implementation of Analyzer for testing.
type MockAnalyzer struct {
	mock.Mock
	ID     schema.CategoryID
	Weight float64
}

var _ Analyzer = &MockAnalyzer{} // Compile-time check

// Category implements the Analyzer interface.
func (m *MockAnalyzer) Category() schema.CategoryID {
	return m.ID
}

// MaxScore implements the Analyzer interface.
func (m *MockAnalyzer) MaxScore() float64 {
	return m.Weight
}

// Analyze implements the Analyzer interface.
func (m *MockAnalyzer) Analyze(ctx context.Context, projectRoot string, cfg schema.AnalyzerConfig) (schema.CategoryResult, error) {
	args := m.Called(ctx, projectRoot, cfg)
	result, _ := args.Get(0).(schema.CategoryResult)
	return result, args.Error(1)
}

// MockHistorySink is a mock implementation of HistorySink for testing.
type MockHistorySink struct {
	mock.Mock
}

var _ HistorySink = &MockHistorySink{} // Compile-time check

// RecordScore implements the HistorySink interface.
func (m *MockHistorySink) RecordScore(ctx context.Context, results *schema.AnalysisResults) (*schema.HistoryEntry, error) {
	args := m.Called(ctx, results)
	entry, _ := args.Get(0).(*schema.HistoryEntry)
	return entry, args.Error(1)
}

// MockRecommender is a mock implementation of Recommender for testing.
type MockRecommender struct {
	mock.Mock
}

var _ Recommender = &MockRecommender{} // Compile-time check

// GenerateRecommendations implements the Recommender interface.
func (m *MockRecommender) GenerateRecommendations(ctx context.Context, results *schema.AnalysisResults, opts schema.RecommendationOptions) ([]schema.Recommendation, error) {
	args := m.Called(ctx, results, opts)
	recs, _ := args.Get(0).([]schema.Recommendation)
	return recs, args.Error(1)
}
