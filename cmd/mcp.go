package cmd

import (
	"github.com/huangsam/qualgate/internal/mcp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp [project-root]",
	Short: "Start the Qualgate MCP server",
	Long:  `Launch an MCP server over stdio that lets AI agents assess project quality, list categories and read score history.`,
	Args:  cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// stdio carries the protocol, so progress bars stay off.
		viper.Set("progress", "no")
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		opts, err := runOptions(cfg, historyManager)
		if err != nil {
			return err
		}
		return mcp.StartMCPServer(rootCtx, cfg, historyManager, opts...)
	},
}
