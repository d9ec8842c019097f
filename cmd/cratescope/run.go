package main

import (
	"fmt"
	"os"
	"path/filepath"

	"cratescope/internal/config"
	"cratescope/internal/engine"
	"cratescope/internal/logging"
	"cratescope/internal/patterns"
	"cratescope/internal/summarize"
	"cratescope/internal/workspace"
)

// mustAnalyze runs the full pipeline for the current --root and exits on
// fatal errors. All commands that need a report funnel through here.
func mustAnalyze(root string, cfg *config.Config, logger *logging.Logger) *engine.Report {
	tree := mustOpenTree(root, cfg)

	opts := engine.Options{
		ProjectName:   filepath.Base(root),
		Workers:       cfg.Analysis.Workers,
		SyntaxBackend: cfg.Analysis.SyntaxBackend,
	}

	if cfg.Analysis.CatalogPath != "" {
		data, err := os.ReadFile(filepath.Join(root, cfg.Analysis.CatalogPath))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading signature catalog: %v\n", err)
			os.Exit(1)
		}
		extra, err := patterns.LoadCatalog(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing signature catalog: %v\n", err)
			os.Exit(1)
		}
		opts.ExtraCatalog = &extra
	}

	if cfg.Analysis.MetadataPath != "" {
		data, err := os.ReadFile(filepath.Join(root, cfg.Analysis.MetadataPath))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading cargo metadata: %v\n", err)
			os.Exit(1)
		}
		pkgs, err := workspace.ParseMetadata(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing cargo metadata: %v\n", err)
			os.Exit(1)
		}
		opts.Metadata = pkgs
	}

	if cfg.Analysis.Summarize {
		opts.Summarizer = summarize.TemplateSummarizer{}
	}

	report, err := engine.New(logger).Analyze(newContext(), tree, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return report
}
