package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cratescope/internal/config"
	"cratescope/internal/workspace"
)

var initDeclarations bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration",
	Long: `Create .cratescope/config.json with default settings, and optionally an
example PACKAGES.toml declaration file for projects without manifests.

Examples:
  cratescope init
  cratescope init --declarations`,
	Run: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initDeclarations, "declarations", false,
		"Also write an example PACKAGES.toml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	root := mustGetProjectRoot()

	cfg := config.DefaultConfig()
	if err := cfg.Save(root); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", filepath.Join(root, ".cratescope", "config.json"))

	if initDeclarations {
		path := filepath.Join(root, workspace.DeclarationFile)
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(os.Stderr, "Refusing to overwrite existing %s\n", workspace.DeclarationFile)
			os.Exit(1)
		}
		data, err := workspace.MarshalDeclarations(workspace.ExampleDeclarations())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering declarations: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing declarations: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", path)
	}
}
