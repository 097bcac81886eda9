package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/qualgate/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readBack[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err, "Should be able to open output file")
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err, "Should be able to read data")
	}
	return rows[:n]
}

func sampleRuns() []HistoryRun {
	base := time.Date(2026, 3, 14, 15, 9, 26, 123456789, time.UTC)
	duration := int64(1830)
	config := `{"categories":["all"],"strict":false}`
	return []HistoryRun{
		{RunID: 1, ProjectRoot: "/repo", RunTime: base, Score: 52, MaxScore: 85, Percentage: 61, Grade: "D+", HasErrors: true, DurationMs: &duration, ConfigJSON: &config},
		{RunID: 2, ProjectRoot: "/repo", RunTime: base.Add(time.Hour), Score: 68, MaxScore: 85, Percentage: 80, Grade: "B-"},
	}
}

func sampleScores() []CategoryScore {
	msg := "scanner crashed"
	return []CategoryScore{
		{RunID: 1, Category: "security", Score: 0, MaxScore: 15, Grade: "F", IssueCount: 0, AnalysisTimeMs: 3, ErrorMessage: &msg},
		{RunID: 1, Category: "style", Score: 16.5, MaxScore: 20, Grade: "B+", IssueCount: 2, AnalysisTimeMs: 40},
	}
}

func TestStructTags(t *testing.T) {
	tests := []struct {
		name    string
		model   any
		columns []string
	}{
		{
			name:  "history run",
			model: new(HistoryRun),
			columns: []string{
				"run_id", "project_root", "run_time", "score", "max_score", "percentage",
				"grade", "has_errors", "duration_ms", "config_json",
			},
		},
		{
			name:  "category score",
			model: new(CategoryScore),
			columns: []string{
				"run_id", "category", "score", "max_score", "grade", "issue_count",
				"analysis_time_ms", "error_message",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parquet.SchemaOf(tt.model)
			require.NotNil(t, s)
			for _, colName := range tt.columns {
				_, ok := s.Lookup(colName)
				assert.True(t, ok, "Column %s should exist in schema", colName)
			}
		})
	}
}

func TestWriteHistoryRunsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "runs.parquet")
	data := sampleRuns()

	require.NoError(t, WriteHistoryRunsParquet(data, outputPath))

	got := readBack[HistoryRun](t, outputPath)
	require.Len(t, got, len(data))
	for i := range data {
		assert.Equal(t, data[i].RunID, got[i].RunID)
		assert.Equal(t, data[i].ProjectRoot, got[i].ProjectRoot)
		assert.Equal(t, data[i].Percentage, got[i].Percentage)
		assert.Equal(t, data[i].Grade, got[i].Grade)
		assert.Equal(t, data[i].HasErrors, got[i].HasErrors)
		assert.InDelta(t, data[i].Score, got[i].Score, 0.001)
		assert.WithinDuration(t, data[i].RunTime, got[i].RunTime, time.Nanosecond)
	}

	// Nullable fields survive both ways
	require.NotNil(t, got[0].DurationMs)
	assert.Equal(t, int64(1830), *got[0].DurationMs)
	require.NotNil(t, got[0].ConfigJSON)
	assert.Equal(t, *data[0].ConfigJSON, *got[0].ConfigJSON)
	assert.Nil(t, got[1].DurationMs)
	assert.Nil(t, got[1].ConfigJSON)
}

func TestWriteCategoryScoresParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "scores.parquet")
	data := sampleScores()

	require.NoError(t, WriteCategoryScoresParquet(data, outputPath))

	got := readBack[CategoryScore](t, outputPath)
	require.Len(t, got, len(data))
	assert.Equal(t, "security", got[0].Category)
	require.NotNil(t, got[0].ErrorMessage)
	assert.Equal(t, "scanner crashed", *got[0].ErrorMessage)
	assert.Equal(t, int32(2), got[1].IssueCount)
	assert.InDelta(t, 16.5, got[1].Score, 0.001)
	assert.Nil(t, got[1].ErrorMessage)
}

func TestWriteParquet_EmptyData(t *testing.T) {
	tmpDir := t.TempDir()

	runsPath := filepath.Join(tmpDir, "empty_runs.parquet")
	require.NoError(t, WriteHistoryRunsParquet([]HistoryRun{}, runsPath))
	scoresPath := filepath.Join(tmpDir, "empty_scores.parquet")
	require.NoError(t, WriteCategoryScoresParquet(nil, scoresPath))

	for _, p := range []string{runsPath, scoresPath} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0), "Output file should contain schema even if empty")
	}
}

func TestWriteParquet_InvalidPath(t *testing.T) {
	assert.Error(t, WriteHistoryRunsParquet(sampleRuns(), "/nonexistent/directory/runs.parquet"))
	assert.Error(t, WriteCategoryScoresParquet(sampleScores(), "/nonexistent/directory/scores.parquet"))
}

func TestConvertRecords(t *testing.T) {
	duration := int64(12)
	msg := "timeout"
	now := time.Now()

	runs := ConvertHistoryRunRecords([]schema.HistoryRunRecord{
		{RunID: 7, ProjectRoot: "/p", RunTime: now, Score: 40, MaxScore: 50, Percentage: 80, Grade: "B-", HasErrors: true, DurationMs: &duration},
	})
	require.Len(t, runs, 1)
	assert.Equal(t, HistoryRun{RunID: 7, ProjectRoot: "/p", RunTime: now, Score: 40, MaxScore: 50, Percentage: 80, Grade: "B-", HasErrors: true, DurationMs: &duration}, runs[0])

	scores := ConvertCategoryScoreRecords([]schema.CategoryScoreRecord{
		{RunID: 7, Category: "performance", MaxScore: 15, Grade: "F", ErrorMessage: &msg, AnalysisTimeMs: 5},
	})
	require.Len(t, scores, 1)
	assert.Equal(t, CategoryScore{RunID: 7, Category: "performance", MaxScore: 15, Grade: "F", ErrorMessage: &msg, AnalysisTimeMs: 5}, scores[0])

	assert.Empty(t, ConvertHistoryRunRecords(nil))
	assert.Empty(t, ConvertCategoryScoreRecords(nil))
}
