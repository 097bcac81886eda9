// Package schema has models and constants shared by all parts of qualgate.
package schema

import "time"

// AnalyzerConfig is built once per run and handed to every analyzer.
type AnalyzerConfig struct {
	ProjectRoot string      `json:"project_root"`
	MaxScore    float64     `json:"max_score"`
	Verbose     bool        `json:"verbose"`
	RetryPolicy RetryPolicy `json:"retry_policy"`
	Excludes    []string    `json:"excludes,omitempty"`
}

// RetryPolicy bounds how hard the recovery layer tries one analyzer.
type RetryPolicy struct {
	MaxAttempts int           `json:"max_attempts"`
	Backoff     time.Duration `json:"backoff"`
	Timeout     time.Duration `json:"timeout"`
}

// ErrorRecord is a classified failure observed while analyzing a category.
type ErrorRecord struct {
	Type      ErrorType  `json:"type"`
	Severity  Severity   `json:"severity"`
	Message   string     `json:"message"`
	Category  CategoryID `json:"category"`
	Attempt   int        `json:"attempt"`
	Retryable bool       `json:"retryable"`
	Timestamp time.Time  `json:"timestamp"`
}

// RecoveryRecord documents a fallback attempt for a category.
type RecoveryRecord struct {
	Category  CategoryID `json:"category"`
	Strategy  string     `json:"strategy"`
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	Timestamp time.Time  `json:"timestamp"`
}

// CategoryResult is the outcome of one analyzer for one run.
// A result with Error set always has Score 0 and Grade F.
type CategoryResult struct {
	Score          float64          `json:"score"`
	MaxScore       float64          `json:"max_score"`
	Grade          Grade            `json:"grade"`
	Issues         []string         `json:"issues"`
	Suggestions    []string         `json:"suggestions"`
	Details        map[string]any   `json:"details,omitempty"`
	AnalysisTimeMs int64            `json:"analysis_time_ms"`
	Errors         []ErrorRecord    `json:"errors,omitempty"`
	Warnings       []ErrorRecord    `json:"warnings,omitempty"`
	Recoveries     []RecoveryRecord `json:"recoveries,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// HasError reports whether the category degraded.
func (r CategoryResult) HasError() bool {
	return r.Error != ""
}

// GradeStep is one rung of the grading curve. MinRatio is inclusive.
type GradeStep struct {
	Grade    Grade   `json:"grade"`
	MinRatio float64 `json:"min_ratio"`
}

// OverallResult aggregates every category of a run.
type OverallResult struct {
	Score      float64   `json:"score"`
	MaxScore   float64   `json:"max_score"`
	Percentage int       `json:"percentage"`
	Grade      Grade     `json:"grade"`
	HasErrors  bool      `json:"has_errors"`
	Timestamp  time.Time `json:"timestamp"`
}

// AnalysisResults is everything one run produced.
type AnalysisResults struct {
	ProjectRoot     string                        `json:"project_root"`
	Overall         OverallResult                 `json:"overall"`
	Categories      map[CategoryID]CategoryResult `json:"categories"`
	Recommendations []Recommendation              `json:"recommendations"`
	History         *HistoryEntry                 `json:"history,omitempty"`
	Gates           *GateReport                   `json:"gates,omitempty"`
	Detailed        *DetailedReport               `json:"detailed,omitempty"`
	Timestamp       time.Time                     `json:"timestamp"`
}

// Recommendation is an actionable improvement for a category.
type Recommendation struct {
	Category    CategoryID `json:"category"`
	Priority    Priority   `json:"priority"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Source      string     `json:"source"`
}

// RecommendationOptions tunes recommendation generation.
type RecommendationOptions struct {
	MaxItems    int  `json:"max_items"`
	IncludeLow  bool `json:"include_low"`
	FocusFailed bool `json:"focus_failed"`
}

// CategoryDetail is the per-category section of a DetailedReport.
type CategoryDetail struct {
	Category       CategoryID     `json:"category"`
	Score          float64        `json:"score"`
	MaxScore       float64        `json:"max_score"`
	Grade          Grade          `json:"grade"`
	Issues         []string       `json:"issues"`
	Suggestions    []string       `json:"suggestions"`
	Details        map[string]any `json:"details,omitempty"`
	AnalysisTimeMs int64          `json:"analysis_time_ms"`
	ErrorCount     int            `json:"error_count"`
	WarningCount   int            `json:"warning_count"`
	Error          string         `json:"error,omitempty"`
}

// ErrorStats counts classified errors for a run.
type ErrorStats struct {
	Total      int               `json:"total"`
	ByType     map[ErrorType]int `json:"by_type"`
	BySeverity map[Severity]int  `json:"by_severity"`
	Recoveries int               `json:"recoveries"`
}

// DetailedReport is the optional expanded report of a run.
type DetailedReport struct {
	Categories  []CategoryDetail `json:"categories"`
	ErrorStats  ErrorStats       `json:"error_stats"`
	TotalTimeMs int64            `json:"total_time_ms"`
	GeneratedAt time.Time        `json:"generated_at"`
}
