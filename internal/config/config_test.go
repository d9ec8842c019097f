package config

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Version != 1 {
		t.Errorf("version = %d, want 1", cfg.Version)
	}
	if cfg.Export.Format != "json" {
		t.Errorf("export format = %q", cfg.Export.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Version != DefaultConfig().Version {
		t.Errorf("missing config should yield defaults, got %+v", cfg)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Analysis.Workers = 8
	cfg.Export.Format = "mermaid"
	cfg.Scan.Ignore = append(cfg.Scan.Ignore, "fixtures")

	if err := cfg.Save(root); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Analysis.Workers != 8 {
		t.Errorf("workers = %d, want 8", loaded.Analysis.Workers)
	}
	if loaded.Export.Format != "mermaid" {
		t.Errorf("format = %q, want mermaid", loaded.Export.Format)
	}
	if len(loaded.Scan.Ignore) != 4 {
		t.Errorf("ignore = %v", loaded.Scan.Ignore)
	}
}

func TestValidateRejectsBadFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Export.Format = "pdf"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown export format should fail validation")
	}

	cfg = DefaultConfig()
	cfg.Version = 9
	if err := cfg.Validate(); err == nil {
		t.Error("unsupported version should fail validation")
	}
}
