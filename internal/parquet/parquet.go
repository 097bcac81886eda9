// Package parquet exports qualgate score history to Parquet files
// using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/qualgate/schema"
	"github.com/parquet-go/parquet-go"
)

// HistoryRun represents one recorded assessment of a project.
// This struct maps to the qualgate_runs database table.
type HistoryRun struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// ProjectRoot is the absolute path that was assessed
	ProjectRoot string `parquet:"project_root,snappy,dict"`

	// RunTime is when the assessment started (stored as TIMESTAMP with nanosecond precision)
	RunTime time.Time `parquet:"run_time,snappy"`

	Score      float64 `parquet:"score,snappy"`
	MaxScore   float64 `parquet:"max_score,snappy"`
	Percentage int32   `parquet:"percentage,snappy"`
	Grade      string  `parquet:"grade,snappy,dict"`

	// HasErrors is set when any category degraded
	HasErrors bool `parquet:"has_errors,snappy"`

	// DurationMs is the wall time of the run in milliseconds (nullable)
	DurationMs *int64 `parquet:"duration_ms,optional,snappy"`

	// ConfigJSON contains the JSON-encoded configuration (nullable)
	ConfigJSON *string `parquet:"config_json,optional,snappy"`
}

// CategoryScore represents the score of one category in a run.
// This struct maps to the qualgate_category_scores database table.
type CategoryScore struct {
	// RunID references the parent run
	RunID int64 `parquet:"run_id,snappy"`

	Category       string  `parquet:"category,snappy,dict"`
	Score          float64 `parquet:"score,snappy"`
	MaxScore       float64 `parquet:"max_score,snappy"`
	Grade          string  `parquet:"grade,snappy,dict"`
	IssueCount     int32   `parquet:"issue_count,snappy"`
	AnalysisTimeMs int64   `parquet:"analysis_time_ms,snappy"`

	// ErrorMessage is set when the analyzer failed (nullable)
	ErrorMessage *string `parquet:"error_message,optional,snappy"`
}

// writeParquet writes rows to outputPath with a schema inferred from T's struct tags.
func writeParquet[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	// Close flushes the footer, so its error matters
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteHistoryRunsParquet writes a slice of HistoryRun structs to a Parquet file.
func WriteHistoryRunsParquet(data []HistoryRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteCategoryScoresParquet writes a slice of CategoryScore structs to a Parquet file.
func WriteCategoryScoresParquet(data []CategoryScore, outputPath string) error {
	return writeParquet(data, outputPath)
}

// ConvertHistoryRunRecords converts schema.HistoryRunRecord to HistoryRun for Parquet export.
func ConvertHistoryRunRecords(records []schema.HistoryRunRecord) []HistoryRun {
	result := make([]HistoryRun, len(records))
	for i, record := range records {
		result[i] = HistoryRun{
			RunID:       record.RunID,
			ProjectRoot: record.ProjectRoot,
			RunTime:     record.RunTime,
			Score:       record.Score,
			MaxScore:    record.MaxScore,
			Percentage:  record.Percentage,
			Grade:       record.Grade,
			HasErrors:   record.HasErrors,
			DurationMs:  record.DurationMs,
			ConfigJSON:  record.ConfigJSON,
		}
	}
	return result
}

// ConvertCategoryScoreRecords converts schema.CategoryScoreRecord to CategoryScore for Parquet export.
func ConvertCategoryScoreRecords(records []schema.CategoryScoreRecord) []CategoryScore {
	result := make([]CategoryScore, len(records))
	for i, record := range records {
		result[i] = CategoryScore{
			RunID:          record.RunID,
			Category:       record.Category,
			Score:          record.Score,
			MaxScore:       record.MaxScore,
			Grade:          record.Grade,
			IssueCount:     record.IssueCount,
			AnalysisTimeMs: record.AnalysisTimeMs,
			ErrorMessage:   record.ErrorMessage,
		}
	}
	return result
}
