package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cratescope/internal/export"
	"cratescope/internal/store"
)

var (
	historyLimit  int
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past analysis runs",
	Long: `List run summaries recorded in the local history store, newest first.

Examples:
  cratescope history
  cratescope history --limit=5 --format=human`,
	Run: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs to list")
	historyCmd.Flags().StringVar(&historyFormat, "format", "json", "Output format (json, human)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	root := mustGetProjectRoot()
	cfg := mustLoadConfig(root)
	logger := newLogger(cfg)

	s, err := store.Open(root, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	runs, err := s.ListRuns("", historyLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing runs: %v\n", err)
		os.Exit(1)
	}

	if historyFormat == "human" {
		if len(runs) == 0 {
			fmt.Println("No recorded runs.")
			return
		}
		for _, r := range runs {
			fmt.Printf("%s  %-16s %3d pkgs %5d entities %5d edges  %s\n",
				r.GeneratedAt.Format("2006-01-02 15:04"), r.Project,
				r.Packages, r.Entities, r.Edges, r.TopStyle)
		}
		return
	}

	if err := export.WriteJSON(os.Stdout, runs); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing history: %v\n", err)
		os.Exit(1)
	}
}
