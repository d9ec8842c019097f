package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"cratescope/internal/engine"
	"cratescope/internal/export"
	"cratescope/internal/logging"
	"cratescope/internal/store"
)

var (
	analyzeOut      string
	analyzeCompress bool
	analyzeSummary  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full analysis pipeline and emit a report",
	Long: `Run crawl, extraction, inference, assembly, pattern matching, and style
scoring over the project root, then write the full report as JSON.

Examples:
  cratescope analyze
  cratescope analyze --root=../my-rust-project
  cratescope analyze --out=report.json.zst --compress
  cratescope analyze --summary`,
	Run: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "Write report to file instead of stdout")
	analyzeCmd.Flags().BoolVar(&analyzeCompress, "compress", false, "zstd-compress the report (implies --out)")
	analyzeCmd.Flags().BoolVar(&analyzeSummary, "summary", false, "Append a narrative summary to the report")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	start := time.Now()
	root := mustGetProjectRoot()
	cfg := mustLoadConfig(root)
	if analyzeSummary {
		cfg.Analysis.Summarize = true
	}
	logger := newLogger(cfg)

	report := mustAnalyze(root, cfg, logger)

	if analyzeCompress && analyzeOut == "" {
		analyzeOut = filepath.Join(cfg.Export.OutDir, "report.json.zst")
	}

	if analyzeOut != "" {
		path := analyzeOut
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
			os.Exit(1)
		}
		f, err := os.Create(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		var writeErr error
		if analyzeCompress {
			writeErr = export.WriteCompressedJSON(f, report)
		} else {
			writeErr = export.WriteJSON(f, report)
		}
		if writeErr != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", writeErr)
			os.Exit(1)
		}
		fmt.Printf("Report written to %s\n", path)
	} else {
		if err := export.WriteJSON(os.Stdout, report); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			os.Exit(1)
		}
	}

	if cfg.History.Enabled {
		saveHistory(root, report, logger)
	}

	logger.Debug("Analyze completed", map[string]interface{}{
		"runId":    report.RunID,
		"duration": time.Since(start).Milliseconds(),
	})
}

func saveHistory(root string, report *engine.Report, logger *logging.Logger) {
	s, err := store.Open(root, logger)
	if err != nil {
		logger.Warn("History store unavailable", map[string]interface{}{"error": err.Error()})
		return
	}
	defer s.Close()

	topStyle := ""
	if len(report.Styles) > 0 {
		topStyle = report.Styles[0].Style
	}
	rec := store.RunRecord{
		RunID:       report.RunID,
		Project:     report.Project,
		GeneratedAt: report.GeneratedAt,
		Packages:    report.Workspace.PackageCount(),
		Entities:    report.Graph.Stats.EntityCount,
		Edges:       report.Graph.Stats.EdgeCount,
		TopStyle:    topStyle,
		Diagnostics: len(report.Diagnostics),
	}
	if err := s.SaveRun(rec); err != nil {
		logger.Warn("Failed to record run", map[string]interface{}{"error": err.Error()})
	}
}
