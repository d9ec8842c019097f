package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete cratescope configuration
type Config struct {
	Version     int    `json:"version" mapstructure:"version"`
	ProjectRoot string `json:"projectRoot" mapstructure:"projectRoot"`

	Scan     ScanConfig     `json:"scan" mapstructure:"scan"`
	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis"`
	Export   ExportConfig   `json:"export" mapstructure:"export"`
	History  HistoryConfig  `json:"history" mapstructure:"history"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// ScanConfig controls file discovery
type ScanConfig struct {
	Ignore       []string `json:"ignore" mapstructure:"ignore"`
	IncludeTests bool     `json:"includeTests" mapstructure:"includeTests"`
}

// AnalysisConfig controls the pipeline
type AnalysisConfig struct {
	Workers int `json:"workers" mapstructure:"workers"`
	// CatalogPath points at an optional YAML file of extra pattern
	// signatures merged with the builtin catalog
	CatalogPath string `json:"catalogPath" mapstructure:"catalogPath"`
	// MetadataPath points at an optional cargo-metadata JSON dump used as
	// the authoritative package list
	MetadataPath string `json:"metadataPath" mapstructure:"metadataPath"`
	// SyntaxBackend enables tree-sitter extraction in CGO builds; other
	// builds silently use the lexical scanner
	SyntaxBackend bool `json:"syntaxBackend" mapstructure:"syntaxBackend"`
	Summarize     bool `json:"summarize" mapstructure:"summarize"`
}

// ExportConfig controls output rendering
type ExportConfig struct {
	Format   string `json:"format" mapstructure:"format"`
	Compress bool   `json:"compress" mapstructure:"compress"`
	OutDir   string `json:"outDir" mapstructure:"outDir"`
}

// HistoryConfig controls the run history store
type HistoryConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:     1,
		ProjectRoot: ".",
		Scan: ScanConfig{
			Ignore:       []string{"target", "vendor", "node_modules"},
			IncludeTests: false,
		},
		Analysis: AnalysisConfig{
			Workers:   0,
			Summarize: false,
		},
		Export: ExportConfig{
			Format:   "json",
			Compress: false,
			OutDir:   ".cratescope",
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .cratescope/config.json
func LoadConfig(projectRoot string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("projectRoot", ".")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(projectRoot, ".cratescope"))

	if err := v.ReadInConfig(); err != nil {
		// If config doesn't exist, return default config
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to .cratescope/config.json
func (c *Config) Save(projectRoot string) error {
	dir := filepath.Join(projectRoot, ".cratescope")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	switch c.Export.Format {
	case "json", "mermaid", "dot":
	default:
		return &ConfigError{Field: "export.format", Message: "unknown export format"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
