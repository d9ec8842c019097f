package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"cratescope/internal/config"
	"cratescope/internal/logging"
	"cratescope/internal/source"
	"cratescope/internal/version"
)

var (
	// rootFlag is the CLI --root flag value
	rootFlag string
	// logLevelFlag overrides the configured log level
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "cratescope",
	Short: "cratescope - Rust codebase architecture analyzer",
	Long: `cratescope extracts a knowledge graph from a Rust codebase: packages and
their dependencies, symbol-level entities and typed relationships, logical
clusters, detected design patterns, and ranked architecture styles.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("cratescope version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", ".",
		"Project root to analyze")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default from config)")
}

// mustGetProjectRoot resolves the --root flag to an absolute path.
func mustGetProjectRoot() string {
	abs, err := filepath.Abs(rootFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving project root: %v\n", err)
		os.Exit(1)
	}
	return abs
}

// mustLoadConfig loads config from <root>/.cratescope/config.json,
// falling back to defaults.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.LoadConfig(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	return logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.ParseLevel(level),
	})
}

// mustOpenTree builds the file tree provider for the project root.
func mustOpenTree(root string, cfg *config.Config) source.Tree {
	tree, err := source.NewDirTree(root, source.DirTreeOptions{
		Ignore:       cfg.Scan.Ignore,
		IncludeTests: cfg.Scan.IncludeTests,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning project: %v\n", err)
		os.Exit(1)
	}
	return tree
}

// newContext returns a context cancelled on SIGINT/SIGTERM.
func newContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()
	return ctx
}
