package iocache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huangsam/qualgate/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func resultsFor(root string, pct int, at time.Time) *schema.AnalysisResults {
	return &schema.AnalysisResults{
		ProjectRoot: root,
		Overall: schema.OverallResult{
			Score:      float64(pct) * 0.85,
			MaxScore:   85,
			Percentage: pct,
			Grade:      schema.GradeB,
		},
		Categories: map[schema.CategoryID]schema.CategoryResult{
			schema.StyleCategory:    {Score: 16, MaxScore: 20, Grade: schema.GradeB, Issues: []string{"a", "b"}, AnalysisTimeMs: 4},
			schema.SecurityCategory: {MaxScore: 15, Grade: schema.GradeF, Error: "scanner crashed"},
		},
		Timestamp: at,
	}
}

func TestTrendFor(t *testing.T) {
	tests := []struct {
		delta    int
		expected schema.Trend
	}{
		{5, schema.TrendImproving},
		{1, schema.TrendImproving},
		{0, schema.TrendStable},
		{-1, schema.TrendDeclining},
		{-30, schema.TrendDeclining},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, TrendFor(tt.delta), "delta %d", tt.delta)
	}
}

func TestHistoryRecorder_RecordScore(t *testing.T) {
	store := memoryStore(t)
	recorder, err := NewHistoryRecorder(store, map[string]any{"strict": false})
	require.NoError(t, err)
	start := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	recorder.now = func() time.Time { return start.Add(1500 * time.Millisecond) }
	ctx := context.Background()

	first, err := recorder.RecordScore(ctx, resultsFor("/repo", 70, start))
	require.NoError(t, err)
	assert.Equal(t, schema.TrendNew, first.Trend)
	assert.Nil(t, first.PreviousPercentage)
	assert.Nil(t, first.Delta)
	assert.Equal(t, 70, first.Percentage)
	assert.Equal(t, schema.GradeB, first.Grade)
	assert.True(t, first.Timestamp.Equal(start))

	second, err := recorder.RecordScore(ctx, resultsFor("/repo", 64, start))
	require.NoError(t, err)
	assert.Equal(t, schema.TrendDeclining, second.Trend)
	require.NotNil(t, second.PreviousPercentage)
	assert.Equal(t, 70, *second.PreviousPercentage)
	require.NotNil(t, second.Delta)
	assert.Equal(t, -6, *second.Delta)
	assert.Greater(t, second.RunID, first.RunID)

	third, err := recorder.RecordScore(ctx, resultsFor("/repo", 64, start))
	require.NoError(t, err)
	assert.Equal(t, schema.TrendStable, third.Trend)

	other, err := recorder.RecordScore(ctx, resultsFor("/other", 10, start))
	require.NoError(t, err)
	assert.Equal(t, schema.TrendNew, other.Trend, "projects are tracked separately")

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 4)
	require.NotNil(t, runs[0].DurationMs)
	assert.Equal(t, int64(1500), *runs[0].DurationMs)
	require.NotNil(t, runs[0].ConfigJSON)
	assert.JSONEq(t, `{"strict":false}`, *runs[0].ConfigJSON)

	scores, err := store.GetAllCategoryScores()
	require.NoError(t, err)
	require.Len(t, scores, 8)
	assert.Equal(t, "security", scores[0].Category)
	require.NotNil(t, scores[0].ErrorMessage)
	assert.Equal(t, "scanner crashed", *scores[0].ErrorMessage)
	assert.Equal(t, "style", scores[1].Category)
	assert.Equal(t, int32(2), scores[1].IssueCount)
}

func TestHistoryRecorder_Improving(t *testing.T) {
	recorder, err := NewHistoryRecorder(memoryStore(t), nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = recorder.RecordScore(ctx, resultsFor("/repo", 50, time.Now()))
	require.NoError(t, err)
	entry, err := recorder.RecordScore(ctx, resultsFor("/repo", 58, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, schema.TrendImproving, entry.Trend)
	assert.Equal(t, 8, *entry.Delta)
}

func TestHistoryRecorder_Errors(t *testing.T) {
	t.Run("nil store records nothing", func(t *testing.T) {
		recorder, err := NewHistoryRecorder(nil, nil)
		require.NoError(t, err)
		entry, err := recorder.RecordScore(context.Background(), resultsFor("/repo", 50, time.Now()))
		assert.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("unmarshalable config", func(t *testing.T) {
		_, err := NewHistoryRecorder(nil, map[string]any{"bad": make(chan int)})
		assert.Error(t, err)
	})

	t.Run("canceled context", func(t *testing.T) {
		store := &MockHistoryStore{}
		recorder, err := NewHistoryRecorder(store, nil)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = recorder.RecordScore(ctx, resultsFor("/repo", 50, time.Now()))
		assert.ErrorIs(t, err, context.Canceled)
		store.AssertNotCalled(t, "RecordRun", mock.Anything, mock.Anything)
	})

	t.Run("store failures surface", func(t *testing.T) {
		store := &MockHistoryStore{}
		store.On("GetRecentRuns", "/repo", 1).Return([]schema.HistoryRunRecord{{Percentage: 40}}, nil)
		store.On("RecordRun", mock.Anything, mock.Anything).Return(int64(0), errors.New("disk full"))
		recorder, err := NewHistoryRecorder(store, nil)
		require.NoError(t, err)

		entry, err := recorder.RecordScore(context.Background(), resultsFor("/repo", 50, time.Now()))
		assert.Nil(t, entry)
		assert.EqualError(t, err, "disk full")
		store.AssertExpectations(t)
	})

	t.Run("previous run lookup failure", func(t *testing.T) {
		store := &MockHistoryStore{}
		store.On("GetRecentRuns", "/repo", 1).Return(nil, errors.New("locked"))
		recorder, err := NewHistoryRecorder(store, nil)
		require.NoError(t, err)

		_, err = recorder.RecordScore(context.Background(), resultsFor("/repo", 50, time.Now()))
		assert.ErrorContains(t, err, "locked")
		store.AssertNotCalled(t, "RecordRun", mock.Anything, mock.Anything)
	})
}
