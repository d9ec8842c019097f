package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cratescope/internal/export"
)

var stylesFormat string

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "Score architecture styles",
	Long: `Run the pipeline and rank architecture styles by confidence. Styles are
scored independently and several can coexist; no single winner is forced.

Examples:
  cratescope styles
  cratescope styles --format=human`,
	Run: runStyles,
}

func init() {
	stylesCmd.Flags().StringVar(&stylesFormat, "format", "json", "Output format (json, human)")
	rootCmd.AddCommand(stylesCmd)
}

func runStyles(cmd *cobra.Command, args []string) {
	root := mustGetProjectRoot()
	cfg := mustLoadConfig(root)
	logger := newLogger(cfg)

	report := mustAnalyze(root, cfg, logger)

	if stylesFormat == "human" {
		if len(report.Styles) == 0 {
			fmt.Println("No architecture styles detected.")
			return
		}
		for _, s := range report.Styles {
			fmt.Printf("%-28s %3.0f%%  %s\n", s.Style, s.Confidence*100, s.Description)
		}
		if len(report.Concurrency) > 0 {
			fmt.Println("\nConcurrency primitives:")
			for _, c := range report.Concurrency {
				fmt.Printf("    %-28s %d\n", c.Name, c.Count)
			}
		}
		return
	}

	out := struct {
		Styles      interface{} `json:"styles"`
		Concurrency interface{} `json:"concurrency,omitempty"`
	}{report.Styles, report.Concurrency}
	if err := export.WriteJSON(os.Stdout, out); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing styles: %v\n", err)
		os.Exit(1)
	}
}
