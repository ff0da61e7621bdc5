// Package main provides the teampulse command line.
package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/teampulse/internal/api"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "teampulse",
		Short: "Team activity analytics across code, chat, documents, files and meetings",
		Long: `teampulse aggregates collaboration events into per-member and per-project
analytics, contribution scores and collaboration networks.

Commands:
  serve     HTTP API over the SQLite event store
  analyze   Offline report from member YAML and event JSON files
  seed      Load member YAML and event JSON files into the SQLite store`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newAnalyzeCommand())
	root.AddCommand(newSeedCommand())
	root.AddCommand(versionCommand())
	return root
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "teampulse %s\n", api.Version)
		},
	}
}
