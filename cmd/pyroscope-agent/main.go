// Package main provides the pyroscope-agent binary.
//
// This is a standalone daemon that profiles its own process and ships
// the profiles to a Pyroscope server. Applications that want continuous
// profiling of their own code embed the pkg/agent library instead.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/omarabid-archived/pyroscope/internal/cli/agent"
	"github.com/omarabid-archived/pyroscope/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "pyroscope-agent",
		Short:         "Pyroscope Agent - continuous profiling daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Register agent subcommands directly on root for a flat hierarchy
	// (e.g. "pyroscope-agent run").
	agent.RegisterCommands(rootCmd)

	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("Pyroscope Agent version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}
