package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cratescope/internal/export"
)

var patternsFormat string

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Detect design patterns with confidence scores",
	Long: `Run the pipeline and list detected design patterns, each with its
confidence (satisfied evidence rules over total) and evidence trail.

Examples:
  cratescope patterns
  cratescope patterns --format=human`,
	Run: runPatterns,
}

func init() {
	patternsCmd.Flags().StringVar(&patternsFormat, "format", "json", "Output format (json, human)")
	rootCmd.AddCommand(patternsCmd)
}

func runPatterns(cmd *cobra.Command, args []string) {
	root := mustGetProjectRoot()
	cfg := mustLoadConfig(root)
	logger := newLogger(cfg)

	report := mustAnalyze(root, cfg, logger)

	if patternsFormat == "human" {
		if len(report.Patterns) == 0 {
			fmt.Println("No patterns detected.")
			return
		}
		for _, m := range report.Patterns {
			fmt.Printf("%-32s %3.0f%%  (%d/%d rules)\n", m.Name, m.Confidence*100, m.Satisfied, m.Total)
			for _, e := range m.Evidence {
				fmt.Printf("    - %s\n", e)
			}
		}
		return
	}

	if err := export.WriteJSON(os.Stdout, report.Patterns); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing patterns: %v\n", err)
		os.Exit(1)
	}
}
