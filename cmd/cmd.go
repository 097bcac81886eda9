// Package cmd defines the command-line interface for qualgate.
package cmd

import (
	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(gradesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().StringP("categories", "c", schema.AllCategoriesKeyword, "Comma-separated categories to analyze (structure,style,dependencies,security,performance) or 'all'")
	rootCmd.PersistentFlags().String("exclude", "", "Comma-separated list of path prefixes or patterns to ignore")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent analyzers")
	rootCmd.PersistentFlags().Int("max-attempts", contract.DefaultMaxAttempts, "Attempts per analyzer before it degrades")
	rootCmd.PersistentFlags().String("backoff", "", "Base retry backoff (e.g. 250ms)")
	rootCmd.PersistentFlags().String("timeout", "", "Per-attempt analyzer timeout (e.g. 2m)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log analyzer timings and retries to stderr")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("progress", "yes", "Show a progress bar on interactive terminals (yes/no)")
	rootCmd.PersistentFlags().Bool("detailed", false, "Include the detailed report with error statistics")
	rootCmd.PersistentFlags().String("history-backend", string(schema.NoneBackend), "History backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("recommendations", "yes", "Generate improvement recommendations (yes/no)")
	rootCmd.PersistentFlags().Int("max-recommendations", contract.DefaultMaxRecommendations, "Maximum number of recommendations")
	rootCmd.PersistentFlags().Bool("llm", false, "Generate recommendations with an OpenAI-compatible model")
	rootCmd.PersistentFlags().String("llm-model", contract.DefaultLLMModel, "Model used for LLM recommendations")
	rootCmd.PersistentFlags().String("llm-base-url", "", "Base URL of an OpenAI-compatible API")
	rootCmd.PersistentFlags().String("llm-api-key", "", "API key for LLM recommendations (prefer OPENAI_API_KEY)")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of checkCmd to Viper
	checkCmd.Flags().Bool("strict", false, "Require every gate to pass")
	checkCmd.Flags().String("gates", "yes", "Evaluate quality gates (yes/no)")
	checkCmd.Flags().String("thresholds-override", "", "Gate thresholds (format: 'overall:70:80,security:12:14')")
	checkCmd.Flags().String("ci-format", string(schema.AutoFormat), "CI output format: auto or github-actions or gitlab-ci or jenkins or generic")
	checkCmd.Flags().String("ci-summary-file", "", "Write the CI summary to this file")
	checkCmd.Flags().String("ci-detailed-file", "", "Write the detailed CI report to this file")
	checkCmd.Flags().Bool("ci-trend", false, "Append the score trend to the CI summary")
	checkCmd.Flags().String("blocking", "yes", "Fail the pipeline on gate failures (yes/no)")
	checkCmd.Flags().String("on-failure", string(schema.BlockError), "Action on failed gates: error or warn or ignore")
	checkCmd.Flags().String("on-warning", string(schema.BlockIgnore), "Action on warned gates: error or warn or ignore")
	checkCmd.Flags().Bool("set-env", false, "Export score variables to the CI environment")
	checkCmd.Flags().String("env-prefix", contract.DefaultEnvPrefix, "Prefix for exported environment variables")
	if err := viper.BindPFlags(checkCmd.Flags()); err != nil {
		contract.LogFatal("Error binding check flags", err)
	}

	// Bind all flags of historyListCmd to Viper
	historyListCmd.Flags().IntP("limit", "l", defaultHistoryLimit, "Number of runs to display")
	if err := viper.BindPFlags(historyListCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history list flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}

	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}
