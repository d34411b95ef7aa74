package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowchain/internal/config"
	"github.com/aretw0/flowchain/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "flowchain",
	Short:         "flowchain runs Solana transaction workflows",
	Long:          `flowchain executes node commands that build, sign and submit Solana transactions, collecting remote signatures from connected clients.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "flowchain.yaml", "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().String("log-format", "", "Override the configured log format (text or json)")
}

// setup loads the configuration and builds the logger shared by the subcommands.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.LogFormat = format
		if err := cfg.Validate(); err != nil {
			return cfg, nil, err
		}
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logging.New(logging.Options{Level: level, Format: cfg.LogFormat}), nil
}
