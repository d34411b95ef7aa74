package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowchain/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the execution service with its HTTP API: commands, pending signature requests, executions, events and metrics. With --mcp the same engine is exposed as MCP tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
			cfg.Listen = addr
		}
		if cmd.Flags().Changed("mcp") {
			cfg.MCP.Enabled, _ = cmd.Flags().GetBool("mcp")
		}

		ln, err := net.Listen("tcp", cfg.Listen)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return cli.Serve(ctx, ln, cfg, logger, cli.EngineOptions{})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Address to listen on, overriding the configuration")
	serveCmd.Flags().Bool("mcp", false, "Also serve the MCP tools over SSE under mcp.path")
}
