package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/flowchain/internal/cli"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server over stdio",
	Long: `Starts the execution service as an MCP server on stdin and stdout, so that agents can run
commands and answer pending signature requests as tools.

To serve MCP over HTTP next to the REST API instead, use "flowchain serve --mcp".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		return cli.ServeMCP(cfg, logger, cli.EngineOptions{})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
