package contract

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/qualgate/schema"
)

// Default values for configuration.
const (
	DefaultMaxAttempts        = 3
	DefaultBackoff            = 250 * time.Millisecond
	DefaultTimeout            = 2 * time.Minute
	DefaultPrecision          = 1
	DefaultEnvPrefix          = "QUALITY_GATE_"
	DefaultMaxRecommendations = 10
	DefaultLLMModel           = "gpt-4.1-mini"
	MaxAttemptsLimit          = 10
)

// DefaultOverallMin is the overall gate applied when nothing else is configured.
const DefaultOverallMin = 70.0

// DefaultWorkers is the default number of concurrent analyzers to run.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// ThresholdRawInput is one gate bound from the YAML config file.
type ThresholdRawInput struct {
	Min     *float64 `mapstructure:"min"`
	Warning *float64 `mapstructure:"warning"`
}

// ThresholdsRawInput holds the gate definitions from the YAML config file.
type ThresholdsRawInput struct {
	Overall    *ThresholdRawInput           `mapstructure:"overall"`
	Categories map[string]ThresholdRawInput `mapstructure:"categories"`
}

// RecommendationConfig controls the recommendation post-step.
type RecommendationConfig struct {
	Enabled    bool
	MaxItems   int
	LLMEnabled bool
	LLMModel   string
	LLMBaseURL string
	LLMAPIKey  string // Please use env var as this is plaintext
}

// Config holds the runtime configuration for a run.
// This struct is the "final, validated" config.
type Config struct {
	ProjectRoot string
	Categories  []string
	Excludes    []string
	Workers     int
	Retry       schema.RetryPolicy
	Verbose     bool

	Output     schema.OutputMode
	OutputFile string
	Precision  int
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool
	Progress   bool
	Detailed   bool

	Strict     bool
	Thresholds schema.ThresholdConfig
	CI         schema.CIConfig

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	Recommendations RecommendationConfig
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	ProjectRootStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Categories       string `mapstructure:"categories"`
	Exclude          string `mapstructure:"exclude"`
	Workers          int    `mapstructure:"workers"`
	MaxAttempts      int    `mapstructure:"max-attempts"`
	Backoff          string `mapstructure:"backoff"`
	Timeout          string `mapstructure:"timeout"`
	Verbose          bool   `mapstructure:"verbose"`
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	Precision        int    `mapstructure:"precision"`
	Width            int    `mapstructure:"width"`
	Color            string `mapstructure:"color"`
	Progress         string `mapstructure:"progress"`
	Detailed         bool   `mapstructure:"detailed"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`

	// --- Recommendation fields ---
	Recommendations    string `mapstructure:"recommendations"`
	MaxRecommendations int    `mapstructure:"max-recommendations"`
	LLM                bool   `mapstructure:"llm"`
	LLMModel           string `mapstructure:"llm-model"`
	LLMBaseURL         string `mapstructure:"llm-base-url"`
	LLMAPIKey          string `mapstructure:"llm-api-key"`

	// --- Fields from checkCmd.Flags() ---
	Strict        bool   `mapstructure:"strict"`
	Gates         string `mapstructure:"gates"`
	ThresholdsStr string `mapstructure:"thresholds-override"`
	CIFormat      string `mapstructure:"ci-format"`
	CISummaryFile string `mapstructure:"ci-summary-file"`
	CIDetailFile  string `mapstructure:"ci-detailed-file"`
	CITrend       bool   `mapstructure:"ci-trend"`
	Blocking      string `mapstructure:"blocking"`
	OnFailure     string `mapstructure:"on-failure"`
	OnWarning     string `mapstructure:"on-warning"`
	SetEnv        bool   `mapstructure:"set-env"`
	EnvPrefix     string `mapstructure:"env-prefix"`

	// --- Gate thresholds from config file ---
	Thresholds ThresholdsRawInput `mapstructure:"thresholds"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Categories != nil {
		clone.Categories = slices.Clone(c.Categories)
	}
	if c.Excludes != nil {
		clone.Excludes = slices.Clone(c.Excludes)
	}
	if c.Thresholds.Categories != nil {
		clone.Thresholds.Categories = make(map[schema.CategoryID]schema.Threshold, len(c.Thresholds.Categories))
		maps.Copy(clone.Thresholds.Categories, c.Thresholds.Categories)
	}
	return &clone
}

// AnalyzerConfig builds the per-run analyzer config for a category weight.
func (c *Config) AnalyzerConfig(maxScore float64) schema.AnalyzerConfig {
	return schema.AnalyzerConfig{
		ProjectRoot: c.ProjectRoot,
		MaxScore:    maxScore,
		Verbose:     c.Verbose,
		RetryPolicy: c.Retry,
		Excludes:    slices.Clone(c.Excludes),
	}
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processRetryPolicy(cfg, input); err != nil {
		return err
	}
	if err := processThresholds(cfg, input); err != nil {
		return err
	}
	if err := processCIConfig(cfg, input); err != nil {
		return err
	}
	if err := processRecommendations(cfg, input); err != nil {
		return err
	}
	return resolveProjectRoot(cfg, input)
}

// RevalidateAssessment applies per-request overrides to a cloned config.
// Empty arguments keep the current values.
func RevalidateAssessment(cfg *Config, projectRoot, categories, thresholds string) error {
	if projectRoot != "" {
		if err := resolveProjectRoot(cfg, &ConfigRawInput{ProjectRootStr: projectRoot}); err != nil {
			return err
		}
	}
	if categories != "" {
		cfg.Categories = splitList(categories)
	}
	if thresholds == "" {
		return nil
	}

	overall, parsed, err := ParseThresholdsString(thresholds)
	if err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}
	if overall != nil {
		if err := validateThreshold("overall", *overall, 100); err != nil {
			return err
		}
		cfg.Thresholds.Overall = *overall
	}
	if cfg.Thresholds.Categories == nil {
		cfg.Thresholds.Categories = make(map[schema.CategoryID]schema.Threshold, len(parsed))
	}
	for id, t := range parsed {
		if err := validateThreshold(string(id), t, schema.DefaultCategoryWeights[id]); err != nil {
			return err
		}
		cfg.Thresholds.Categories[id] = t
	}
	cfg.Thresholds.Enabled = true
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ParseHistoryBackend normalizes a backend string. Empty means none.
func ParseHistoryBackend(s string) (schema.DatabaseBackend, error) {
	if strings.TrimSpace(s) == "" {
		return schema.NoneBackend, nil
	}
	backend := schema.DatabaseBackend(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", s)
	}
	return backend, nil
}

// validateSimpleInputs processes and validates all scalar fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Verbose = input.Verbose
	cfg.Detailed = input.Detailed
	cfg.Width = input.Width
	cfg.Strict = input.Strict

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	progress, err := ParseBoolString(input.Progress)
	if err != nil {
		return fmt.Errorf("invalid --progress value: %w", err)
	}
	cfg.Progress = progress

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Precision < 0 || input.Precision > 2 {
		return fmt.Errorf("precision must be between 0 and 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
	}

	cfg.Categories = splitList(input.Categories)
	if len(cfg.Categories) == 0 {
		cfg.Categories = []string{schema.AllCategoriesKeyword}
	}

	backend, err := ParseHistoryBackend(input.HistoryBackend)
	if err != nil {
		return err
	}
	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return err
	}

	defaults := []string{
		"node_modules/", "vendor/", "dist/", "build/", "out/", "target/", "coverage/",
		".min.js", ".min.css", ".map",
		".jpg", ".jpeg", ".png", ".gif", ".ico", ".pdf", ".woff", ".woff2",
		".DS_Store",
	}
	cfg.Excludes = defaults
	cfg.Excludes = append(cfg.Excludes, splitList(input.Exclude)...)

	return nil
}

// processRetryPolicy parses the recovery layer knobs.
func processRetryPolicy(cfg *Config, input *ConfigRawInput) error {
	if input.MaxAttempts <= 0 || input.MaxAttempts > MaxAttemptsLimit {
		return fmt.Errorf("max-attempts must be between 1 and %d (received %d)", MaxAttemptsLimit, input.MaxAttempts)
	}
	cfg.Retry.MaxAttempts = input.MaxAttempts

	cfg.Retry.Backoff = DefaultBackoff
	if input.Backoff != "" {
		d, err := time.ParseDuration(input.Backoff)
		if err != nil || d < 0 {
			return fmt.Errorf("invalid --backoff value '%s'", input.Backoff)
		}
		cfg.Retry.Backoff = d
	}

	cfg.Retry.Timeout = DefaultTimeout
	if input.Timeout != "" {
		d, err := time.ParseDuration(input.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid --timeout value '%s'", input.Timeout)
		}
		cfg.Retry.Timeout = d
	}
	return nil
}

// processThresholds builds the gate config from the YAML map, then applies the
// --thresholds-override flag, which takes precedence.
func processThresholds(cfg *Config, input *ConfigRawInput) error {
	enabled, err := ParseBoolString(input.Gates)
	if err != nil {
		return fmt.Errorf("invalid --gates value: %w", err)
	}

	overallMin := DefaultOverallMin
	thresholds := schema.ThresholdConfig{
		Enabled:    enabled,
		Overall:    schema.Threshold{Min: &overallMin},
		Categories: make(map[schema.CategoryID]schema.Threshold),
	}

	if raw := input.Thresholds.Overall; raw != nil {
		if raw.Min != nil {
			thresholds.Overall.Min = raw.Min
		}
		thresholds.Overall.Warning = raw.Warning
	}
	for name, raw := range input.Thresholds.Categories {
		id := schema.CategoryID(strings.ToLower(name))
		if _, ok := schema.ValidCategories[id]; !ok {
			return fmt.Errorf("invalid threshold category '%s'", name)
		}
		thresholds.Categories[id] = schema.Threshold{Min: raw.Min, Warning: raw.Warning}
	}

	if input.ThresholdsStr != "" {
		overall, categories, err := ParseThresholdsString(input.ThresholdsStr)
		if err != nil {
			return fmt.Errorf("invalid --thresholds-override format: %w", err)
		}
		if overall != nil {
			thresholds.Overall = *overall
		}
		maps.Copy(thresholds.Categories, categories)
	}

	if err := validateThreshold("overall", thresholds.Overall, 100); err != nil {
		return err
	}
	for id, t := range thresholds.Categories {
		if err := validateThreshold(string(id), t, schema.DefaultCategoryWeights[id]); err != nil {
			return err
		}
	}

	cfg.Thresholds = thresholds
	return nil
}

// validateThreshold checks that both bounds fall inside [0, upper].
func validateThreshold(name string, t schema.Threshold, upper float64) error {
	bounds := []struct {
		label string
		value *float64
	}{{"min", t.Min}, {"warning", t.Warning}}
	for _, b := range bounds {
		if b.value == nil {
			continue
		}
		if *b.value < 0 || *b.value > upper {
			return fmt.Errorf("%s threshold for %s must be between 0 and %s (received %s)",
				b.label, name, strconv.FormatFloat(upper, 'f', -1, 64), strconv.FormatFloat(*b.value, 'f', -1, 64))
		}
	}
	return nil
}

// ParseThresholdsString parses a string like "overall:70:80,security:12:14,style:10"
// where each entry is name:min[:warning] and min may be left empty.
func ParseThresholdsString(s string) (*schema.Threshold, map[schema.CategoryID]schema.Threshold, error) {
	var overall *schema.Threshold
	categories := make(map[schema.CategoryID]schema.Threshold)

	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		fields := strings.Split(part, ":")
		if len(fields) < 2 || len(fields) > 3 {
			return nil, nil, fmt.Errorf("invalid threshold format '%s', expected 'name:min[:warning]'", part)
		}

		var t schema.Threshold
		minVal, err := parseOptionalFloat(fields[1])
		if err != nil {
			return nil, nil, fmt.Errorf("invalid min value '%s' for %s: %w", fields[1], fields[0], err)
		}
		t.Min = minVal
		if len(fields) == 3 {
			warnVal, err := parseOptionalFloat(fields[2])
			if err != nil {
				return nil, nil, fmt.Errorf("invalid warning value '%s' for %s: %w", fields[2], fields[0], err)
			}
			t.Warning = warnVal
		}

		name := strings.ToLower(strings.TrimSpace(fields[0]))
		if name == "overall" {
			overall = &t
			continue
		}
		id := schema.CategoryID(name)
		if _, ok := schema.ValidCategories[id]; !ok {
			return nil, nil, fmt.Errorf("invalid category '%s'", fields[0])
		}
		categories[id] = t
	}

	return overall, categories, nil
}

// parseOptionalFloat returns nil for an empty string.
func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// processCIConfig validates the CI rendering settings.
func processCIConfig(cfg *Config, input *ConfigRawInput) error {
	format := schema.CIFormat(strings.ToLower(strings.TrimSpace(input.CIFormat)))
	if format == "" {
		format = schema.AutoFormat
	}
	if _, ok := schema.ValidCIFormats[format]; !ok {
		return NewConfigurationError("ci-format", fmt.Errorf("unsupported CI format '%s'. must be auto, github-actions, gitlab-ci, jenkins, generic", input.CIFormat))
	}

	blocking, err := ParseBoolString(input.Blocking)
	if err != nil {
		return fmt.Errorf("invalid --blocking value: %w", err)
	}

	onFailure, err := parseBlockAction(input.OnFailure, schema.BlockError)
	if err != nil {
		return fmt.Errorf("invalid --on-failure value: %w", err)
	}
	onWarning, err := parseBlockAction(input.OnWarning, schema.BlockIgnore)
	if err != nil {
		return fmt.Errorf("invalid --on-warning value: %w", err)
	}

	prefix := input.EnvPrefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}

	cfg.CI = schema.CIConfig{
		Format: format,
		Output: schema.CIOutputConfig{
			Summary:  input.CISummaryFile,
			Detailed: input.CIDetailFile,
			Trend:    input.CITrend,
		},
		Blocking: schema.BlockingConfig{
			Enabled:   blocking,
			OnFailure: onFailure,
			OnWarning: onWarning,
		},
		SetEnvironment:    input.SetEnv,
		EnvironmentPrefix: prefix,
	}
	return nil
}

// parseBlockAction normalizes a blocking action, using fallback for empty input.
func parseBlockAction(s string, fallback schema.BlockAction) (schema.BlockAction, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	action := schema.BlockAction(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := schema.ValidBlockActions[action]; !ok {
		return "", fmt.Errorf("'%s' must be error, warn, ignore", s)
	}
	return action, nil
}

// processRecommendations validates recommendation and LLM settings.
func processRecommendations(cfg *Config, input *ConfigRawInput) error {
	enabled, err := ParseBoolString(input.Recommendations)
	if err != nil {
		return fmt.Errorf("invalid --recommendations value: %w", err)
	}
	maxItems := input.MaxRecommendations
	if maxItems <= 0 {
		maxItems = DefaultMaxRecommendations
	}
	model := input.LLMModel
	if model == "" {
		model = DefaultLLMModel
	}
	apiKey := input.LLMAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if input.LLM && apiKey == "" {
		return fmt.Errorf("llm recommendations need --llm-api-key or OPENAI_API_KEY")
	}

	cfg.Recommendations = RecommendationConfig{
		Enabled:    enabled,
		MaxItems:   maxItems,
		LLMEnabled: input.LLM,
		LLMModel:   model,
		LLMBaseURL: input.LLMBaseURL,
		LLMAPIKey:  apiKey,
	}
	return nil
}

// resolveProjectRoot makes the project root absolute and checks that it is a directory.
func resolveProjectRoot(cfg *Config, input *ConfigRawInput) error {
	root := input.ProjectRootStr
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("project root %q is not accessible: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("project root %q is not a directory", root)
	}
	cfg.ProjectRoot = filepath.Clean(abs)
	return nil
}

// splitList splits a comma-separated string into trimmed, non-empty parts.
func splitList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
