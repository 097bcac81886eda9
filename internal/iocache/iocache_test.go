package iocache

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/qualgate/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobals(t *testing.T) {
	t.Helper()
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	Manager = &HistoryStoreManager{}
	t.Cleanup(CloseHistory)
}

func TestInitHistory(t *testing.T) {
	t.Run("sqlite file", func(t *testing.T) {
		resetGlobals(t)
		dbPath := filepath.Join(t.TempDir(), "history.db")

		require.NoError(t, InitHistory(schema.SQLiteBackend, dbPath))
		require.NotNil(t, Manager.GetHistoryStore())

		// Repeated initialization is a no-op
		require.NoError(t, InitHistory(schema.MySQLBackend, "ignored"))
		status, err := Manager.GetHistoryStore().GetStatus()
		require.NoError(t, err)
		assert.Equal(t, "sqlite", status.Backend)

		CloseHistory()
		_, err = os.Stat(dbPath)
		assert.NoError(t, err, "database file should exist")
	})

	t.Run("disabled", func(t *testing.T) {
		for _, backend := range []schema.DatabaseBackend{"", schema.NoneBackend} {
			resetGlobals(t)
			require.NoError(t, InitHistory(backend, ""))
			assert.Nil(t, Manager.GetHistoryStore())
		}
	})

	t.Run("failure", func(t *testing.T) {
		resetGlobals(t)
		err := InitHistory(schema.MySQLBackend, "bogus")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize history store")
		assert.Nil(t, Manager.GetHistoryStore())
	})
}

func TestClearHistory(t *testing.T) {
	t.Run("sqlite removes the file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "history.db")
		store, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		require.NoError(t, store.Close())

		require.NoError(t, ClearHistory(schema.SQLiteBackend, dbPath, ""))
		_, err = os.Stat(dbPath)
		assert.True(t, os.IsNotExist(err))

		// Missing file is fine
		assert.NoError(t, ClearHistory(schema.SQLiteBackend, dbPath, ""))
	})

	t.Run("sqlite needs a path", func(t *testing.T) {
		assert.Error(t, ClearHistory(schema.SQLiteBackend, "", ""))
	})

	t.Run("none", func(t *testing.T) {
		assert.NoError(t, ClearHistory(schema.NoneBackend, "", ""))
	})

	t.Run("unsupported", func(t *testing.T) {
		assert.Error(t, ClearHistory("mongo", "", ""))
	})
}

func TestExecuteHistoryExport(t *testing.T) {
	t.Run("exports runs and scores", func(t *testing.T) {
		store := memoryStore(t)
		_, err := store.RecordRun(runRecord("/repo", 80, time.Now()), []schema.CategoryScoreRecord{
			{Category: "style", Score: 16, MaxScore: 20, Grade: "B"},
		})
		require.NoError(t, err)

		prefix := filepath.Join(t.TempDir(), "export")
		var out bytes.Buffer
		require.NoError(t, ExecuteHistoryExport(&out, store, prefix))

		runsFile, scoresFile := ExportFiles(prefix)
		for _, f := range []string{runsFile, scoresFile} {
			info, err := os.Stat(f)
			require.NoError(t, err)
			assert.Greater(t, info.Size(), int64(0))
		}
		assert.Contains(t, out.String(), "Exported 1 runs to: "+runsFile)
		assert.Contains(t, out.String(), "Exported 1 category scores to: "+scoresFile)
	})

	t.Run("validation", func(t *testing.T) {
		assert.ErrorContains(t, ExecuteHistoryExport(&bytes.Buffer{}, memoryStore(t), ""), "--output-file is required")
		assert.ErrorContains(t, ExecuteHistoryExport(&bytes.Buffer{}, nil, "x"), "history is disabled")
		assert.ErrorContains(t, ExecuteHistoryExport(&bytes.Buffer{}, memoryStore(t), "x"), "no history data")
	})

	t.Run("store errors", func(t *testing.T) {
		store := &MockHistoryStore{}
		store.On("GetStatus").Return(schema.HistoryStatus{Backend: "mysql", TotalRuns: 2}, nil)
		store.On("GetAllRuns").Return(nil, assert.AnError)

		err := ExecuteHistoryExport(&bytes.Buffer{}, store, filepath.Join(t.TempDir(), "x"))
		assert.ErrorIs(t, err, assert.AnError)
		store.AssertNotCalled(t, "GetAllCategoryScores")
	})
}

func TestPrintHistoryStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintHistoryStatus(&buf, schema.HistoryStatus{Backend: "none"})
	assert.Equal(t, "History Backend: none\nConnected: false\n", buf.String())

	buf.Reset()
	PrintHistoryStatus(&buf, schema.HistoryStatus{
		Backend:    "sqlite",
		Connected:  true,
		TotalRuns:  3,
		Projects:   2,
		LastRunID:  3,
		TableSizes: map[string]int64{categoryScoresTable: 6, runsTable: 3},
	})
	out := buf.String()
	assert.Contains(t, out, "Total Runs: 3\nProjects: 2\nLast Run ID: 3\n")
	sizes := out[strings.Index(out, "Table Sizes:"):]
	assert.Equal(t, "Table Sizes:\n  qualgate_category_scores: 6 rows\n  qualgate_runs: 3 rows\n", sizes)
}

func TestHistoryStoreManager(t *testing.T) {
	store := &MockHistoryStore{}
	mgr := &HistoryStoreManager{history: store}
	assert.Same(t, store, mgr.GetHistoryStore())

	mockMgr := &MockHistoryManager{}
	mockMgr.On("GetHistoryStore").Return(nil)
	assert.Nil(t, mockMgr.GetHistoryStore())
	mockMgr.AssertExpectations(t)
}
