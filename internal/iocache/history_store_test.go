package iocache

import (
	"testing"
	"time"

	"github.com/huangsam/qualgate/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryStore(t *testing.T) *HistoryStoreImpl {
	t.Helper()
	store, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store.(*HistoryStoreImpl)
}

func runRecord(root string, pct int32, at time.Time) schema.HistoryRunRecord {
	return schema.HistoryRunRecord{
		ProjectRoot: root,
		RunTime:     at,
		Score:       float64(pct) * 0.85,
		MaxScore:    85,
		Percentage:  pct,
		Grade:       "B",
	}
}

func TestHistoryStore_NoneBackend(t *testing.T) {
	store, err := NewHistoryStore(schema.NoneBackend, "")
	require.NoError(t, err)

	id, err := store.RecordRun(runRecord("/repo", 80, time.Now()), nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), id)

	runs, err := store.GetRecentRuns("/repo", 5)
	assert.NoError(t, err)
	assert.Empty(t, runs)

	status, err := store.GetStatus()
	assert.NoError(t, err)
	assert.Equal(t, "none", status.Backend)
	assert.False(t, status.Connected)

	assert.NoError(t, store.Close())
}

func TestHistoryStore_UnsupportedBackend(t *testing.T) {
	_, err := NewHistoryStore("mongo", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported history backend")
}

func TestHistoryStore_RecordAndQuery(t *testing.T) {
	store := memoryStore(t)
	base := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	duration := int64(250)
	config := `{"strict":true}`
	errMsg := "scanner crashed"

	first := runRecord("/repo", 61, base)
	first.HasErrors = true
	first.DurationMs = &duration
	first.ConfigJSON = &config
	id1, err := store.RecordRun(first, []schema.CategoryScoreRecord{
		{Category: "security", MaxScore: 15, Grade: "F", ErrorMessage: &errMsg, AnalysisTimeMs: 3},
		{Category: "style", Score: 16, MaxScore: 20, Grade: "B", IssueCount: 2, AnalysisTimeMs: 40},
	})
	require.NoError(t, err)
	id2, err := store.RecordRun(runRecord("/other", 90, base.Add(time.Minute)), nil)
	require.NoError(t, err)
	id3, err := store.RecordRun(runRecord("/repo", 75, base.Add(time.Hour)), []schema.CategoryScoreRecord{
		{Category: "style", Score: 18, MaxScore: 20, Grade: "A-", AnalysisTimeMs: 35},
	})
	require.NoError(t, err)
	assert.Less(t, id1, id2)
	assert.Less(t, id2, id3)

	t.Run("recent runs are newest first per project", func(t *testing.T) {
		runs, err := store.GetRecentRuns("/repo", 5)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, id3, runs[0].RunID)
		assert.Equal(t, int32(75), runs[0].Percentage)
		assert.Equal(t, id1, runs[1].RunID)

		one, err := store.GetRecentRuns("/repo", 1)
		require.NoError(t, err)
		require.Len(t, one, 1)
		assert.Equal(t, id3, one[0].RunID)

		none, err := store.GetRecentRuns("/missing", 1)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("all runs keep every column", func(t *testing.T) {
		runs, err := store.GetAllRuns()
		require.NoError(t, err)
		require.Len(t, runs, 3)

		got := runs[0]
		assert.Equal(t, "/repo", got.ProjectRoot)
		assert.True(t, got.RunTime.Equal(base))
		assert.InDelta(t, first.Score, got.Score, 0.0001)
		assert.True(t, got.HasErrors)
		require.NotNil(t, got.DurationMs)
		assert.Equal(t, duration, *got.DurationMs)
		require.NotNil(t, got.ConfigJSON)
		assert.Equal(t, config, *got.ConfigJSON)

		assert.False(t, runs[1].HasErrors)
		assert.Nil(t, runs[1].DurationMs)
		assert.Nil(t, runs[1].ConfigJSON)
	})

	t.Run("category scores ordered by run and category", func(t *testing.T) {
		scores, err := store.GetAllCategoryScores()
		require.NoError(t, err)
		require.Len(t, scores, 3)
		assert.Equal(t, []string{"security", "style", "style"}, []string{scores[0].Category, scores[1].Category, scores[2].Category})
		assert.Equal(t, id1, scores[0].RunID)
		require.NotNil(t, scores[0].ErrorMessage)
		assert.Equal(t, errMsg, *scores[0].ErrorMessage)
		assert.Nil(t, scores[1].ErrorMessage)
		assert.Equal(t, int32(2), scores[1].IssueCount)
		assert.Equal(t, id3, scores[2].RunID)
	})

	t.Run("status", func(t *testing.T) {
		status, err := store.GetStatus()
		require.NoError(t, err)
		assert.Equal(t, "sqlite", status.Backend)
		assert.True(t, status.Connected)
		assert.Equal(t, 3, status.TotalRuns)
		assert.Equal(t, 2, status.Projects)
		assert.Equal(t, id3, status.LastRunID)
		assert.True(t, status.LastRunTime.Equal(base.Add(time.Hour)))
		assert.True(t, status.OldestRunTime.Equal(base))
		assert.Equal(t, map[string]int64{runsTable: 3, categoryScoresTable: 3}, status.TableSizes)
	})
}

func TestHistoryStore_DuplicateCategoryRollsBack(t *testing.T) {
	store := memoryStore(t)

	_, err := store.RecordRun(runRecord("/repo", 50, time.Now()), []schema.CategoryScoreRecord{
		{Category: "style", MaxScore: 20, Grade: "F"},
		{Category: "style", MaxScore: 20, Grade: "F"},
	})
	require.Error(t, err)

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestHistoryStore_EmptyStatus(t *testing.T) {
	status, err := memoryStore(t).GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 0, status.TotalRuns)
	assert.True(t, status.LastRunTime.IsZero())
	assert.Equal(t, int64(0), status.TableSizes[runsTable])
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?, ?, ?", placeholders(schema.SQLiteBackend, 3))
	assert.Equal(t, "?", placeholders(schema.MySQLBackend, 1))
	assert.Equal(t, "$1, $2", placeholders(schema.PostgreSQLBackend, 2))
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, "`qualgate_runs`", quoteTableName(runsTable, schema.MySQLBackend))
	assert.Equal(t, `"qualgate_runs"`, quoteTableName(runsTable, schema.PostgreSQLBackend))
	assert.Equal(t, `"qualgate_runs"`, quoteTableName(runsTable, schema.SQLiteBackend))
}

func TestOpenDB_InvalidMySQLDSN(t *testing.T) {
	_, err := openDB(schema.MySQLBackend, "not a dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid MySQL connection string")
}
