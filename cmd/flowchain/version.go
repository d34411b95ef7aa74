package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowchain"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the flowchain release and the Go toolchain it was built with",
	RunE: func(cmd *cobra.Command, args []string) error {
		release := strings.TrimSpace(flowchain.Version)
		if short, _ := cmd.Flags().GetBool("short"); short {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), release)
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "flowchain %s (%s %s/%s)\n", release, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("short", false, "Print only the release number")
}
