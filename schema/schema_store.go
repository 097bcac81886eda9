package schema

import "time"

// HistoryEntry is what the history sink returns for a recorded run.
type HistoryEntry struct {
	RunID              int64     `json:"run_id"`
	ProjectRoot        string    `json:"project_root"`
	Timestamp          time.Time `json:"timestamp"`
	Score              float64   `json:"score"`
	MaxScore           float64   `json:"max_score"`
	Percentage         int       `json:"percentage"`
	Grade              Grade     `json:"grade"`
	PreviousPercentage *int      `json:"previous_percentage,omitempty"`
	Delta              *int      `json:"delta,omitempty"`
	Trend              Trend     `json:"trend"`
}

// HistoryRunRecord represents a row from the qualgate_runs table.
type HistoryRunRecord struct {
	RunID       int64     `json:"run_id"`
	ProjectRoot string    `json:"project_root"`
	RunTime     time.Time `json:"run_time"`
	Score       float64   `json:"score"`
	MaxScore    float64   `json:"max_score"`
	Percentage  int32     `json:"percentage"`
	Grade       string    `json:"grade"`
	HasErrors   bool      `json:"has_errors"`
	DurationMs  *int64    `json:"duration_ms,omitempty"`
	ConfigJSON  *string   `json:"config_json,omitempty"`
}

// CategoryScoreRecord represents a row from the qualgate_category_scores table.
type CategoryScoreRecord struct {
	RunID          int64
	Category       string
	Score          float64
	MaxScore       float64
	Grade          string
	IssueCount     int32
	ErrorMessage   *string
	AnalysisTimeMs int64
}
