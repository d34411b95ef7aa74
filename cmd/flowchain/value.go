package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowchain/internal/cli"
)

var valueCmd = &cobra.Command{
	Use:   "value",
	Short: "Convert and normalize wire values",
}

func valueSubcommand(use, short string, fn func(io.Reader, io.Writer) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeIn, err := openInput(cmd)
			if err != nil {
				return err
			}
			defer closeIn()
			return fn(in, cmd.OutOrStdout())
		},
	}
}

// openInput opens the --input flag, where "-" is stdin.
func openInput(cmd *cobra.Command) (io.Reader, func(), error) {
	path, _ := cmd.Flags().GetString("input")
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func init() {
	rootCmd.AddCommand(valueCmd)
	for _, sub := range []*cobra.Command{
		valueSubcommand("normalize", "Print the normal form of a wire value", cli.Normalize),
		valueSubcommand("from-json", "Convert plain JSON into a wire value", cli.FromPlainJSON),
		valueSubcommand("to-json", "Convert a wire value into plain JSON", cli.ToPlainJSON),
	} {
		sub.Flags().StringP("input", "i", "-", `Input file, "-" for stdin`)
		valueCmd.AddCommand(sub)
	}
}
