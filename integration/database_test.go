//go:build database

package integration

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/huangsam/qualgate/internal/iocache"
	"github.com/huangsam/qualgate/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startMySQL starts a MySQL container and returns its DSN.
func startMySQL(t *testing.T) string {
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "qualgate",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mysqlC.Terminate(ctx) })

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	return fmt.Sprintf("root:secret123@tcp(%s:%s)/qualgate", host, port.Port())
}

// startPostgres starts a PostgreSQL container and returns its connection string.
func startPostgres(t *testing.T) string {
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
}

func TestHistoryBackends(t *testing.T) {
	backends := []struct {
		name    string
		backend schema.DatabaseBackend
		start   func(t *testing.T) string
	}{
		{name: "mysql", backend: schema.MySQLBackend, start: startMySQL},
		{name: "postgresql", backend: schema.PostgreSQLBackend, start: startPostgres},
	}

	for _, tt := range backends {
		t.Run(tt.name, func(t *testing.T) {
			connStr := tt.start(t)

			t.Run("store", func(t *testing.T) {
				testHistoryStore(t, tt.backend, connStr)
			})
			t.Run("migrations", func(t *testing.T) {
				require.NoError(t, iocache.ClearHistory(tt.backend, "", connStr))
				require.NoError(t, iocache.MigrateHistory(io.Discard, tt.backend, connStr, -1))
				require.NoError(t, iocache.MigrateHistory(io.Discard, tt.backend, connStr, 0))
				require.NoError(t, iocache.MigrateHistory(io.Discard, tt.backend, connStr, -1))
			})
			t.Run("cli", func(t *testing.T) {
				testHistoryCLI(t, tt.backend, connStr)
			})
		})
	}
}

func testHistoryStore(t *testing.T, backend schema.DatabaseBackend, connStr string) {
	require.NoError(t, iocache.ClearHistory(backend, "", connStr))
	store, err := iocache.NewHistoryStore(backend, connStr)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ms := int64(42)
	run := schema.HistoryRunRecord{
		ProjectRoot: "/src/app",
		RunTime:     time.Now().UTC().Truncate(time.Second),
		Score:       70,
		MaxScore:    100,
		Percentage:  70,
		Grade:       "C",
		DurationMs:  &ms,
	}
	categories := []schema.CategoryScoreRecord{
		{Category: "security", Score: 14, MaxScore: 20, Grade: "C", IssueCount: 2, AnalysisTimeMs: 5},
		{Category: "structure", Score: 20, MaxScore: 25, Grade: "B", AnalysisTimeMs: 3},
	}

	id, err := store.RecordRun(run, categories)
	require.NoError(t, err)
	assert.Positive(t, id)

	runs, err := store.GetRecentRuns("/src/app", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].RunID)
	assert.Equal(t, int32(70), runs[0].Percentage)
	assert.WithinDuration(t, run.RunTime, runs[0].RunTime, time.Second)

	scores, err := store.GetAllCategoryScores()
	require.NoError(t, err)
	assert.Len(t, scores, 2)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, status.TotalRuns)
	assert.Equal(t, 1, status.Projects)
}

func testHistoryCLI(t *testing.T, backend schema.DatabaseBackend, connStr string) {
	env := []string{
		"QUALGATE_HISTORY_BACKEND=" + string(backend),
		"QUALGATE_HISTORY_DB_CONNECT=" + connStr,
		"CI=",
	}
	project := writeProject(t)

	_, code := runQualgate(t, env, "history", "clear")
	require.Equal(t, 0, code)

	for range 2 {
		_, code = runQualgate(t, env, "check", project, "--thresholds-override", "overall:0", "--ci-format", "generic", "--progress", "no")
		require.Equal(t, 0, code)
	}

	out, code := runQualgate(t, env, "history", "status")
	require.Equal(t, 0, code)
	assert.Contains(t, out, string(backend))

	out, code = runQualgate(t, env, "history", "list", project, "--output", "json")
	require.Equal(t, 0, code)
	assert.Contains(t, out, `"run_id"`)
}
