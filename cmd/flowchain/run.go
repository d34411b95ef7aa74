package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowchain/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run <command>",
	Short: "Run one command",
	Long: `Runs a registered command once. Its inputs are a wire map read from --input, or stdin
when it is "-", and its outputs are written to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		engine, closer, err := cli.NewEngine(cfg, logger, cli.EngineOptions{})
		if err != nil {
			return err
		}
		defer closer.Close()

		in, closeIn, err := openInput(cmd)
		if err != nil {
			return err
		}
		defer closeIn()

		userID, _ := cmd.Flags().GetString("user")
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return cli.RunCommand(ctx, engine, args[0], userID, in, cmd.OutOrStdout())
	},
}

var listCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the registered commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		engine, closer, err := cli.NewEngine(cfg, logger, cli.EngineOptions{})
		if err != nil {
			return err
		}
		defer closer.Close()
		for _, name := range engine.Registry().Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd, listCmd)
	runCmd.Flags().StringP("input", "i", "-", `Wire JSON inputs file, "-" for stdin`)
	runCmd.Flags().StringP("user", "u", "", "User remote signatures are requested from")
}
