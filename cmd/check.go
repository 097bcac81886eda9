package cmd

import (
	"github.com/huangsam/qualgate/core"
	"github.com/spf13/cobra"
)

// checkCmd focused on CI/CD policy enforcement.
var checkCmd = &cobra.Command{
	Use:   "check [project-root]",
	Short: "Enforce quality gates for CI/CD pipelines (fails build on violations)",
	Long: `Analyze a project, evaluate the quality gates and emit the verdict in the
format of the detected CI system.

Exit codes:
  0 - gates passed, or the failure is not blocking
  1 - gates blocked the pipeline
  2 - configuration or runtime error

Default gate: overall score of at least 70%.

Examples:
  # Gate a pull request with the defaults
  qualgate check

  # Custom thresholds as name:min[:warning]
  qualgate check --thresholds-override "overall:75:85,security:15"

  # Require every gate, export QG_ variables and write a step summary
  qualgate check --strict --set-env --env-prefix QG_ --ci-summary-file summary.md

  # Report failures without blocking
  qualgate check --on-failure warn`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		opts, err := runOptions(cfg, historyManager)
		if err != nil {
			return err
		}
		return core.ExecuteCheck(rootCtx, cfg, opts...)
	},
}
