package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kayz/dogcmd/internal/mcptool"
)

var mcpExecute bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as an MCP server on stdio",
	Long: `Run an MCP server over stdin/stdout exposing the tools:

  route_command(text)   route an utterance and return the filled actions
  cache_stats()         report cache counters`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// stdout carries the MCP protocol
		rt, err := newRuntime(cfg, runtimeOptions{execute: mcpExecute, schedule: true})
		if err != nil {
			return err
		}
		defer rt.Close()
		return mcptool.Serve(rt.dispatcher)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVar(&mcpExecute, "execute", false, "Run routed actions through the log executor")
}
