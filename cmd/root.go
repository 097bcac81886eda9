package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/huangsam/qualgate/core"
	"github.com/huangsam/qualgate/internal/advisor"
	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/internal/iocache"
	"github.com/huangsam/qualgate/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes of the CLI.
const (
	ExitCodePass    = 0
	ExitCodeBlocked = 1
	ExitCodeError   = 2
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// profile holds profiling configuration.
var profile = &contract.ProfileConfig{}

// historyManager is the global history manager instance.
var historyManager contract.HistoryManager = iocache.Manager

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// newExitError maps a command error to an exit code. Blocking gates exit with 1,
// everything else with 2. The blocked verdict is already printed, so it has no message.
func newExitError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	if errors.Is(err, core.ErrGatesBlocked) {
		return &ExitError{Code: ExitCodeBlocked}
	}
	return &ExitError{Code: ExitCodeError, Message: err.Error()}
}

// ExitCode returns the process exit code for an error returned by Execute.
func ExitCode(err error) int {
	if err == nil {
		return ExitCodePass
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCodeError
}

// startProfiling starts CPU and memory profiling if enabled.
func startProfiling() error {
	if !profile.Enabled {
		return nil
	}

	cpuFile, err := os.Create(profile.Prefix + ".cpu.prof")
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		return fmt.Errorf("could not start CPU profiling: %w", err)
	}

	_, err = fmt.Fprintf(os.Stderr, "Profiling enabled. CPU profile: %s.cpu.prof, Memory profile: %s.mem.prof\n", profile.Prefix, profile.Prefix)
	return err
}

// stopProfiling stops profiling and writes memory profile.
func stopProfiling() error {
	if !profile.Enabled {
		return nil
	}

	pprof.StopCPUProfile()

	memFile, err := os.Create(profile.Prefix + ".mem.prof")
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer func() { _ = memFile.Close() }()

	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}

	_, err = fmt.Fprintf(os.Stderr, "Profiling complete. Use 'go tool pprof %s.cpu.prof' to analyze.\n", profile.Prefix)
	return err
}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "qualgate",
	Short:              "Score a codebase across quality categories and enforce quality gates.",
	Long:               `Qualgate grades a project on structure, style, dependencies, security and performance, then gates CI pipelines on the result.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setConfigFile()

	// Set environment variable prefix
	viper.SetEnvPrefix("QUALGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Set defaults in Viper
	viper.SetDefault("categories", schema.AllCategoriesKeyword)
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("max-attempts", contract.DefaultMaxAttempts)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("color", "yes")
	viper.SetDefault("progress", "yes")
	viper.SetDefault("history-backend", schema.NoneBackend)
	viper.SetDefault("history-db-connect", "")
	viper.SetDefault("recommendations", "yes")
	viper.SetDefault("max-recommendations", contract.DefaultMaxRecommendations)
	viper.SetDefault("llm-model", contract.DefaultLLMModel)
	viper.SetDefault("gates", "yes")
	viper.SetDefault("blocking", "yes")
	viper.SetDefault("on-failure", schema.BlockError)
	viper.SetDefault("on-warning", schema.BlockIgnore)
	viper.SetDefault("ci-format", schema.AutoFormat)
	viper.SetDefault("env-prefix", contract.DefaultEnvPrefix)
}

// setConfigFile points viper at --config or the default .qualgate.yaml locations.
func setConfigFile() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".qualgate")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")
}

// loadConfigFile reads the config file if there is one.
func loadConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// sharedSetup unmarshals config and runs validation.
func sharedSetup(_ context.Context, _ *cobra.Command, args []string) error {
	profile.Prefix = viper.GetString("profile")
	profile.Enabled = profile.Prefix != ""
	if err := startProfiling(); err != nil {
		return fmt.Errorf("failed to start profiling: %w", err)
	}

	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Handle positional arguments (which Viper doesn't do).
	if len(args) == 1 {
		input.ProjectRootStr = args[0]
	} else {
		input.ProjectRootStr = "."
	}

	// 4. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	// 5. Initialize persistence layer with validated config
	if err := iocache.InitHistory(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// runOptions wires the history recorder and the LLM recommender into a run.
func runOptions(cfg *contract.Config, mgr contract.HistoryManager) ([]core.Option, error) {
	var opts []core.Option

	if mgr != nil {
		if store := mgr.GetHistoryStore(); store != nil {
			recorder, err := iocache.NewHistoryRecorder(store, runParams(cfg))
			if err != nil {
				return nil, err
			}
			opts = append(opts, core.WithHistorySink(recorder))
		}
	}

	if cfg.Recommendations.Enabled && cfg.Recommendations.LLMEnabled {
		llm, err := advisor.NewLLMRecommender(advisor.Config{
			APIKey:  cfg.Recommendations.LLMAPIKey,
			BaseURL: cfg.Recommendations.LLMBaseURL,
			Model:   cfg.Recommendations.LLMModel,
		}, core.NewRuleRecommender())
		if err != nil {
			return nil, err
		}
		opts = append(opts, core.WithRecommender(llm))
	}

	return opts, nil
}

// runParams is the config snapshot stored with every recorded run.
func runParams(cfg *contract.Config) map[string]any {
	return map[string]any{
		"categories": cfg.Categories,
		"strict":     cfg.Strict,
		"gates":      cfg.Thresholds.Enabled,
		"thresholds": cfg.Thresholds,
		"workers":    cfg.Workers,
		"ci_format":  cfg.CI.Format,
	}
}

// Execute runs the root command. The returned error is a *ExitError.
func Execute() error {
	return newExitError(rootCmd.Execute())
}

// StopProfiling stops profiling if enabled.
func StopProfiling() error {
	return stopProfiling()
}
