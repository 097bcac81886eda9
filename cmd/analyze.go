package cmd

import (
	"github.com/huangsam/qualgate/core"
	"github.com/spf13/cobra"
)

// analyzeCmd runs a full assessment without gating the pipeline.
var analyzeCmd = &cobra.Command{
	Use:   "analyze [project-root]",
	Short: "Score a project across every quality category",
	Long: `Run every registered category analyzer against a project and report the
weighted overall score, per-category grades and recommendations.

Categories:
- structure     - layout, README, tests, CI config and file sizes
- style         - formatter and linter config, line lengths and naming
- dependencies  - manifests, lock files and update bots
- security      - committed secrets, env files and security policy
- performance   - deep nesting and oversized sources

Examples:
  # Analyze the current directory
  qualgate analyze

  # Only score security and dependencies, as JSON
  qualgate analyze ./service --categories security,dependencies --output json

  # Include the detailed report with error statistics
  qualgate analyze --detailed`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		opts, err := runOptions(cfg, historyManager)
		if err != nil {
			return err
		}
		return core.ExecuteAnalyze(rootCtx, cfg, opts...)
	},
}
