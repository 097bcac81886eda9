package cmd

import (
	"github.com/huangsam/qualgate/core"
	"github.com/spf13/cobra"
)

// gradesCmd shows the grading curve and the category weights.
var gradesCmd = &cobra.Command{
	Use:     "grades",
	Short:   "Show the grading curve and category weights",
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteGrades(rootCtx, cfg)
	},
}
