package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cratescope/internal/export"
)

var workspaceFormat string

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Show packages and dependency edges",
	Long: `Resolve the workspace from Cargo manifests and show packages, their
declared dependency edges, and any declared cycles.

Examples:
  cratescope workspace
  cratescope workspace --format=mermaid
  cratescope workspace --format=dot`,
	Run: runWorkspace,
}

func init() {
	workspaceCmd.Flags().StringVar(&workspaceFormat, "format", "json", "Output format (json, mermaid, dot)")
	rootCmd.AddCommand(workspaceCmd)
}

func runWorkspace(cmd *cobra.Command, args []string) {
	root := mustGetProjectRoot()
	cfg := mustLoadConfig(root)
	logger := newLogger(cfg)

	report := mustAnalyze(root, cfg, logger)
	ws := report.Workspace

	switch workspaceFormat {
	case "mermaid":
		if err := export.WriteMermaidReport(os.Stdout, ws); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing diagram: %v\n", err)
			os.Exit(1)
		}
	case "dot":
		fmt.Print(export.ToDOT(ws))
	default:
		if err := export.WriteJSON(os.Stdout, ws); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing workspace: %v\n", err)
			os.Exit(1)
		}
	}
}
