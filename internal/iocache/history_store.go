package iocache

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Table names for score history.
const (
	runsTable           = "qualgate_runs"
	categoryScoresTable = "qualgate_category_scores"
)

// historyTables lists every history table in creation order.
var historyTables = []string{runsTable, categoryScoresTable}

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// driverFor returns the database/sql driver name for a backend.
func driverFor(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", nil
	case schema.MySQLBackend:
		return "mysql", nil
	case schema.PostgreSQLBackend:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported history backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}
}

// openDB opens and pings the database for backend.
// An empty SQLite connection string means the default history file.
// MySQL connections always parse DATETIME columns into time.Time.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	driverName, err := driverFor(backend)
	if err != nil {
		return nil, err
	}

	switch backend {
	case schema.SQLiteBackend:
		if connStr == "" {
			connStr = GetHistoryDBFilePath()
		}
	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(connStr)
		if err != nil {
			return nil, fmt.Errorf("invalid MySQL connection string: %w. Expected user:password@tcp(host:port)/dbname", err)
		}
		cfg.ParseTime = true
		connStr = cfg.FormatDSN()
	}

	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", backend, err)
	}
	if backend == schema.SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w. Verify the database server is running and accessible", backend, err)
	}
	return db, nil
}

// NewHistoryStore creates a new HistoryStore with the specified backend.
// The none backend yields a store that records nothing.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if backend == schema.NoneBackend {
		return &HistoryStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}

	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}

	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

// createHistoryTables creates the history tables if they are missing.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	queries := map[string]string{
		runsTable:           getCreateRunsQuery(backend),
		categoryScoresTable: getCreateCategoryScoresQuery(backend),
	}
	for _, table := range historyTables {
		if _, err := db.Exec(queries[table]); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// getCreateRunsQuery returns the CREATE TABLE query for qualgate_runs.
func getCreateRunsQuery(backend schema.DatabaseBackend) string {
	quoted := quoteTableName(runsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				project_root VARCHAR(1024) NOT NULL,
				run_time DATETIME(6) NOT NULL,
				score DOUBLE NOT NULL,
				max_score DOUBLE NOT NULL,
				percentage INT NOT NULL,
				grade VARCHAR(4) NOT NULL,
				has_errors BOOLEAN NOT NULL,
				duration_ms BIGINT,
				config_json TEXT
			);
		`, quoted)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				project_root TEXT NOT NULL,
				run_time TIMESTAMPTZ NOT NULL,
				score DOUBLE PRECISION NOT NULL,
				max_score DOUBLE PRECISION NOT NULL,
				percentage INT NOT NULL,
				grade TEXT NOT NULL,
				has_errors BOOLEAN NOT NULL,
				duration_ms BIGINT,
				config_json TEXT
			);
		`, quoted)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_root TEXT NOT NULL,
				run_time TEXT NOT NULL,
				score REAL NOT NULL,
				max_score REAL NOT NULL,
				percentage INTEGER NOT NULL,
				grade TEXT NOT NULL,
				has_errors INTEGER NOT NULL,
				duration_ms INTEGER,
				config_json TEXT
			);
		`, quoted)
	}
}

// getCreateCategoryScoresQuery returns the CREATE TABLE query for qualgate_category_scores.
func getCreateCategoryScoresQuery(backend schema.DatabaseBackend) string {
	quoted := quoteTableName(categoryScoresTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				category VARCHAR(32) NOT NULL,
				score DOUBLE NOT NULL,
				max_score DOUBLE NOT NULL,
				grade VARCHAR(4) NOT NULL,
				issue_count INT NOT NULL,
				error_message TEXT,
				analysis_time_ms BIGINT NOT NULL,
				PRIMARY KEY (run_id, category)
			);
		`, quoted)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				category TEXT NOT NULL,
				score DOUBLE PRECISION NOT NULL,
				max_score DOUBLE PRECISION NOT NULL,
				grade TEXT NOT NULL,
				issue_count INT NOT NULL,
				error_message TEXT,
				analysis_time_ms BIGINT NOT NULL,
				PRIMARY KEY (run_id, category)
			);
		`, quoted)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER NOT NULL,
				category TEXT NOT NULL,
				score REAL NOT NULL,
				max_score REAL NOT NULL,
				grade TEXT NOT NULL,
				issue_count INTEGER NOT NULL,
				error_message TEXT,
				analysis_time_ms INTEGER NOT NULL,
				PRIMARY KEY (run_id, category)
			);
		`, quoted)
	}
}

// quoteTableName quotes an identifier for the backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	if backend == schema.MySQLBackend {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

// placeholders returns n bind parameters for the backend, comma separated.
func placeholders(backend schema.DatabaseBackend, n int) string {
	parts := make([]string, n)
	for i := range parts {
		if backend == schema.PostgreSQLBackend {
			parts[i] = fmt.Sprintf("$%d", i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

// RecordRun stores a run and its category scores in one transaction.
func (hs *HistoryStoreImpl) RecordRun(run schema.HistoryRunRecord, categories []schema.CategoryScoreRecord) (int64, error) {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return 0, nil
	}

	tx, err := hs.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	runQuery := fmt.Sprintf(`INSERT INTO %s (project_root, run_time, score, max_score, percentage, grade, has_errors, duration_ms, config_json) VALUES (%s)`,
		quoteTableName(runsTable, hs.backend), placeholders(hs.backend, 9))
	runArgs := []any{
		run.ProjectRoot, formatTime(run.RunTime, hs.backend), run.Score, run.MaxScore,
		run.Percentage, run.Grade, run.HasErrors, run.DurationMs, run.ConfigJSON,
	}

	var runID int64
	switch hs.backend {
	case schema.PostgreSQLBackend:
		if err := tx.QueryRow(runQuery+" RETURNING run_id", runArgs...).Scan(&runID); err != nil {
			return 0, fmt.Errorf("failed to insert run: %w", err)
		}
	default: // SQLite and MySQL
		result, err := tx.Exec(runQuery, runArgs...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert run: %w", err)
		}
		if runID, err = result.LastInsertId(); err != nil {
			return 0, fmt.Errorf("failed to read run ID: %w", err)
		}
	}

	scoreQuery := fmt.Sprintf(`INSERT INTO %s (run_id, category, score, max_score, grade, issue_count, error_message, analysis_time_ms) VALUES (%s)`,
		quoteTableName(categoryScoresTable, hs.backend), placeholders(hs.backend, 8))
	for _, c := range categories {
		if _, err := tx.Exec(scoreQuery, runID, c.Category, c.Score, c.MaxScore, c.Grade, c.IssueCount, c.ErrorMessage, c.AnalysisTimeMs); err != nil {
			return 0, fmt.Errorf("failed to insert %s score: %w", c.Category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

const runColumns = "run_id, project_root, run_time, score, max_score, percentage, grade, has_errors, duration_ms, config_json"

// GetRecentRuns returns up to limit runs for projectRoot, newest first.
func (hs *HistoryStoreImpl) GetRecentRuns(projectRoot string, limit int) ([]schema.HistoryRunRecord, error) {
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE project_root = %s ORDER BY run_id DESC LIMIT %d",
		runColumns, quoteTableName(runsTable, hs.backend), placeholders(hs.backend, 1), max(limit, 1))
	return hs.queryRuns(query, projectRoot)
}

// GetAllRuns retrieves every run ordered by ID.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.HistoryRunRecord, error) {
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY run_id", runColumns, quoteTableName(runsTable, hs.backend))
	return hs.queryRuns(query)
}

func (hs *HistoryStoreImpl) queryRuns(query string, args ...any) ([]schema.HistoryRunRecord, error) {
	rows, err := hs.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.HistoryRunRecord
	for rows.Next() {
		var record schema.HistoryRunRecord
		var runTime any = &record.RunTime
		var runTimeStr string
		if hs.backend == schema.SQLiteBackend {
			runTime = &runTimeStr
		}
		if err := rows.Scan(&record.RunID, &record.ProjectRoot, runTime, &record.Score, &record.MaxScore,
			&record.Percentage, &record.Grade, &record.HasErrors, &record.DurationMs, &record.ConfigJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if hs.backend == schema.SQLiteBackend {
			if record.RunTime, err = time.Parse(time.RFC3339Nano, runTimeStr); err != nil {
				return nil, fmt.Errorf("failed to parse run_time: %w", err)
			}
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetAllCategoryScores retrieves every category score ordered by run and category.
func (hs *HistoryStoreImpl) GetAllCategoryScores() ([]schema.CategoryScoreRecord, error) {
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, category, score, max_score, grade, issue_count, error_message, analysis_time_ms
		FROM %s ORDER BY run_id, category`, quoteTableName(categoryScoresTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query category scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.CategoryScoreRecord
	for rows.Next() {
		var record schema.CategoryScoreRecord
		if err := rows.Scan(&record.RunID, &record.Category, &record.Score, &record.MaxScore, &record.Grade,
			&record.IssueCount, &record.ErrorMessage, &record.AnalysisTimeMs); err != nil {
			return nil, fmt.Errorf("failed to scan category score: %w", err)
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category scores: %w", err)
	}
	return results, nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return status, nil
	}

	quotedRuns := quoteTableName(runsTable, hs.backend)
	row := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*), COUNT(DISTINCT project_root) FROM %s", quotedRuns))
	if err := row.Scan(&status.TotalRuns, &status.Projects); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		// COUNT(*) > 0 guarantees one row for each query below
		last, err := hs.queryRuns(fmt.Sprintf("SELECT %s FROM %s ORDER BY run_id DESC LIMIT 1", runColumns, quotedRuns))
		if err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		status.LastRunID = last[0].RunID
		status.LastRunTime = last[0].RunTime

		oldest, err := hs.queryRuns(fmt.Sprintf("SELECT %s FROM %s ORDER BY run_id ASC LIMIT 1", runColumns, quotedRuns))
		if err != nil {
			return status, fmt.Errorf("failed to get oldest run info: %w", err)
		}
		status.OldestRunTime = oldest[0].RunTime
	}

	for _, table := range historyTables {
		var count int64
		row = hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend)))
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	switch backend {
	case schema.SQLiteBackend:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return t
	}
}
