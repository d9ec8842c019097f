package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cratescope/internal/export"
)

var graphOut string

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Emit the knowledge graph as JSON",
	Long: `Run the pipeline and emit only the assembled knowledge graph: entities,
edges, external placeholders, clusters, and statistics.

Examples:
  cratescope graph
  cratescope graph --out=graph.json`,
	Run: runGraph,
}

func init() {
	graphCmd.Flags().StringVar(&graphOut, "out", "", "Write graph to file instead of stdout")
	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) {
	root := mustGetProjectRoot()
	cfg := mustLoadConfig(root)
	logger := newLogger(cfg)

	report := mustAnalyze(root, cfg, logger)

	out := os.Stdout
	if graphOut != "" {
		f, err := os.Create(graphOut)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	if err := export.WriteJSON(out, report.Graph); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing graph: %v\n", err)
		os.Exit(1)
	}
}
