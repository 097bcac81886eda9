// Package contract provides interfaces and shared utilities for qualgate's internal architecture.
package contract

import (
	"context"

	"github.com/huangsam/qualgate/schema"
)

// Analyzer scores one quality category of a project.
// Implementations must treat the file system as read-only and may return errors freely;
// the recovery layer contains them.
type Analyzer interface {
	// Category returns the category this analyzer scores.
	Category() schema.CategoryID

	// MaxScore returns the weight of the category in the overall score.
	MaxScore() float64

	// Analyze inspects projectRoot and returns a scored result.
	Analyze(ctx context.Context, projectRoot string, cfg schema.AnalyzerConfig) (schema.CategoryResult, error)
}

// Environment is a read-only name to value lookup, usually the process environment.
type Environment interface {
	Lookup(key string) (string, bool)
}

// EnvironmentSink receives exported variables for later pipeline steps.
type EnvironmentSink interface {
	Set(key, value string) error
}

// HistorySink records a finished run. A nil entry or an error both mean "no history".
type HistorySink interface {
	RecordScore(ctx context.Context, results *schema.AnalysisResults) (*schema.HistoryEntry, error)
}

// Recommender turns results into actionable recommendations.
type Recommender interface {
	GenerateRecommendations(ctx context.Context, results *schema.AnalysisResults, opts schema.RecommendationOptions) ([]schema.Recommendation, error)
}

// HistoryManager defines the interface for managing the history store.
// This allows the persistence layer to be mocked for testing.
type HistoryManager interface {
	GetHistoryStore() HistoryStore
}

// HistoryStore defines the interface for persisting runs and their category scores.
type HistoryStore interface {
	// RecordRun stores a run with its category scores and returns the run ID
	RecordRun(run schema.HistoryRunRecord, categories []schema.CategoryScoreRecord) (int64, error)

	// GetRecentRuns returns up to limit runs for a project, newest first
	GetRecentRuns(projectRoot string, limit int) ([]schema.HistoryRunRecord, error)

	// GetAllRuns returns every stored run ordered by ID
	GetAllRuns() ([]schema.HistoryRunRecord, error)

	// GetAllCategoryScores returns every stored category score ordered by run and category
	GetAllCategoryScores() ([]schema.CategoryScoreRecord, error)

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// Close closes the underlying connection
	Close() error
}
