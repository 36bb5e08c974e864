package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for dependents.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dependents",
		Short: "List the dependents of a GitHub repository ranked by stars",
		Long: `dependents reads the "Used by" listing of a GitHub repository
(https://github.com/<owner>/<repo>/network/dependents), collects every
dependent repository with its star count, and prints those above a star
threshold, most starred first.

Runs are stored locally so that later runs can be compared.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
