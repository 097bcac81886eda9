package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/internal/iocache"
	"github.com/huangsam/qualgate/internal/outwriter"
	"github.com/huangsam/qualgate/internal/ui"
	"github.com/huangsam/qualgate/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// defaultHistoryLimit is the default number of runs shown by history list.
const defaultHistoryLimit = 10

// errHistoryDisabled is returned when a history command runs without a backend.
var errHistoryDisabled = errors.New("history is disabled. Set --history-backend or QUALGATE_HISTORY_BACKEND")

// historyConfig resolves the backend settings without touching the database.
func historyConfig() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	backend, err := contract.ParseHistoryBackend(viper.GetString("history-backend"))
	if err != nil {
		return err
	}
	connStr := viper.GetString("history-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// historySetup loads minimal configuration and opens the history store.
// This is used by commands that need history access without full shared setup.
func historySetup(_ *cobra.Command, _ []string) error {
	if err := historyConfig(); err != nil {
		return err
	}
	if err := iocache.InitHistory(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}
	return nil
}

// historyConfigSetup wraps historyConfig for commands that manage the schema themselves.
func historyConfigSetup(_ *cobra.Command, _ []string) error {
	return historyConfig()
}

// historyStore returns the open store, or an error when history is disabled.
func historyStore() (contract.HistoryStore, error) {
	store := historyManager.GetHistoryStore()
	if store == nil {
		return nil, errHistoryDisabled
	}
	return store, nil
}

// historyCmd focused on score history management.
//
// Note: History subcommands use minimal initialization (historySetup) instead of
// the full sharedSetup used by analysis commands. This avoids project validation
// and complex config processing for simple history operations.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage recorded quality scores and exports",
	Long: `Manage the history of quality scores used for trend tracking and reporting.

When a history backend is set, every analyze and check run stores:
- Run metadata (project, timestamp, configuration, duration)
- The overall score, percentage and grade
- Per-category scores, issue counts and analysis errors

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, the default)

Subcommands:
  status  - Show history statistics
  list    - Show recent runs of a project
  export  - Export data to Parquet for analytics
  clear   - Remove all recorded runs
  migrate - Manage database schema migrations

Examples:
  # Record runs locally
  qualgate check --history-backend sqlite

  # Show the last runs of this project
  qualgate history list --history-backend sqlite`,
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display history statistics and connection details",
	Args:    cobra.NoArgs,
	PreRunE: historySetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := historyStore()
		if err != nil {
			return err
		}
		status, err := store.GetStatus()
		if err != nil {
			return fmt.Errorf("failed to get history status: %w", err)
		}
		iocache.PrintHistoryStatus(os.Stdout, status)
		return nil
	},
}

// historyListCmd shows the recent runs of one project.
var historyListCmd = &cobra.Command{
	Use:     "list [project-root]",
	Short:   "Show the most recent runs of a project",
	Args:    cobra.MaximumNArgs(1),
	PreRunE: historySetup,
	RunE: func(_ *cobra.Command, args []string) error {
		store, err := historyStore()
		if err != nil {
			return err
		}

		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return err
		}

		cfg.Output = schema.OutputMode(viper.GetString("output"))
		if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
			return fmt.Errorf("invalid output format '%s'. must be text, csv, json", cfg.Output)
		}
		cfg.Precision = viper.GetInt("precision")
		cfg.Width = viper.GetInt("width")
		if cfg.UseColors, err = contract.ParseBoolString(viper.GetString("color")); err != nil {
			return fmt.Errorf("invalid --color value: %w", err)
		}

		limit := viper.GetInt("limit")
		if limit < 1 {
			return fmt.Errorf("limit must be at least 1 (received %d)", limit)
		}
		runs, err := store.GetRecentRuns(filepath.Clean(abs), limit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		return outwriter.PrintHistoryRuns(runs, cfg)
	},
}

// historyExportCmd exports history to Parquet.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded runs to Parquet files",
	Long: `Export every recorded run and category score to Parquet for BI tools.

Two files are written, named after --output-file:
  <prefix>.runs.parquet
  <prefix>.category_scores.parquet

Examples:
  qualgate history export --history-backend sqlite --output-file scores`,
	Args:    cobra.NoArgs,
	PreRunE: historySetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := historyStore()
		if err != nil {
			return err
		}
		return ui.NewSpinner("exporting history").Run(func() error {
			return iocache.ExecuteHistoryExport(os.Stdout, store, cfg.OutputFile)
		})
	},
}

// historyClearCmd clears the history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded runs",
	Long: `Delete every recorded run from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the history and migration tables`,
	Args:    cobra.NoArgs,
	PreRunE: historyConfigSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		dbFilePath := cfg.HistoryDBConnect
		if dbFilePath == "" {
			dbFilePath = iocache.GetHistoryDBFilePath()
		}
		if err := iocache.ClearHistory(cfg.HistoryBackend, dbFilePath, cfg.HistoryDBConnect); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		_, err := fmt.Fprintln(os.Stdout, "History cleared successfully.")
		return err
	},
}

// historyMigrateCmd runs schema migrations.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back history schema migrations",
	Long: `Migrate the history schema of the configured backend.

Examples:
  # Migrate to the latest version
  qualgate history migrate --history-backend sqlite

  # Roll back everything
  qualgate history migrate --history-backend postgresql --target-version 0`,
	Args:    cobra.NoArgs,
	PreRunE: historyConfigSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		target := viper.GetInt("target-version")
		return ui.NewSpinner("migrating history").Run(func() error {
			return iocache.MigrateHistory(os.Stdout, cfg.HistoryBackend, cfg.HistoryDBConnect, target)
		})
	},
}
