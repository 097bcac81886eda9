package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// defaultConfigFile is written by init when no path is given.
const defaultConfigFile = ".qualgate.yaml"

// starterBound is one gate bound in the starter config.
type starterBound struct {
	Min     float64  `yaml:"min"`
	Warning *float64 `yaml:"warning,omitempty"`
}

// starterThresholds mirrors contract.ThresholdsRawInput.
type starterThresholds struct {
	Overall    starterBound                       `yaml:"overall"`
	Categories map[schema.CategoryID]starterBound `yaml:"categories"`
}

// starterConfig holds the keys viper reads from .qualgate.yaml.
type starterConfig struct {
	Categories     string            `yaml:"categories"`
	Exclude        string            `yaml:"exclude"`
	Output         string            `yaml:"output"`
	Precision      int               `yaml:"precision"`
	MaxAttempts    int               `yaml:"max-attempts"`
	Timeout        string            `yaml:"timeout"`
	Gates          string            `yaml:"gates"`
	Strict         bool              `yaml:"strict"`
	Thresholds     starterThresholds `yaml:"thresholds"`
	CIFormat       string            `yaml:"ci-format"`
	Blocking       string            `yaml:"blocking"`
	OnFailure      string            `yaml:"on-failure"`
	OnWarning      string            `yaml:"on-warning"`
	HistoryBackend string            `yaml:"history-backend"`
	Recommend      string            `yaml:"recommendations"`
	MaxRecommend   int               `yaml:"max-recommendations"`
}

// newStarterConfig returns the defaults with a warning band on the overall gate
// and a minimum on security.
func newStarterConfig() starterConfig {
	warning := contract.DefaultOverallMin + 10
	return starterConfig{
		Categories:  schema.AllCategoriesKeyword,
		Output:      string(schema.TextOut),
		Precision:   contract.DefaultPrecision,
		MaxAttempts: contract.DefaultMaxAttempts,
		Timeout:     contract.DefaultTimeout.String(),
		Gates:       "yes",
		Thresholds: starterThresholds{
			Overall: starterBound{Min: contract.DefaultOverallMin, Warning: &warning},
			Categories: map[schema.CategoryID]starterBound{
				schema.SecurityCategory: {Min: schema.DefaultCategoryWeights[schema.SecurityCategory] / 2},
			},
		},
		CIFormat:       string(schema.AutoFormat),
		Blocking:       "yes",
		OnFailure:      string(schema.BlockError),
		OnWarning:      string(schema.BlockIgnore),
		HistoryBackend: string(schema.NoneBackend),
		Recommend:      "yes",
		MaxRecommend:   contract.DefaultMaxRecommendations,
	}
}

// renderStarterConfig renders the starter config as YAML.
func renderStarterConfig() ([]byte, error) {
	data, err := yaml.Marshal(newStarterConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return append([]byte("# qualgate configuration. Flags and QUALGATE_* variables override these values.\n"), data...), nil
}

// writeStarterConfig writes the starter config to path. An existing file is kept unless force is set.
func writeStarterConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	data, err := renderStarterConfig()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// initCmd writes a starter config file.
var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter .qualgate.yaml",
	Long: `Write a starter configuration with the default categories, gates and CI policy.

Examples:
  qualgate init
  qualgate init ci/qualgate.yaml --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := defaultConfigFile
		if len(args) == 1 {
			path = args[0]
		}
		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}
		if err := writeStarterConfig(path, force); err != nil {
			return err
		}
		cmd.Printf("📝 Wrote %s\n", path)
		return nil
	},
}
