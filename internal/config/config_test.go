package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ScanRoot != "." {
		t.Errorf("expected scan_root '.', got %s", cfg.ScanRoot)
	}
	if cfg.PodmanBinary != "podman" {
		t.Errorf("expected podman binary 'podman', got %s", cfg.PodmanBinary)
	}
	if cfg.OutputLineLimit != 2000 {
		t.Errorf("expected output_line_limit 2000, got %d", cfg.OutputLineLimit)
	}
	if cfg.Secrets.Store != "local" {
		t.Errorf("expected local secrets store, got %s", cfg.Secrets.Store)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load without config file should succeed: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "podmgr.yaml")
	content := `
scan_root: ` + dir + `
exclude_patterns:
  - "/archive/"
build_args:
  - "VERSION=1.2.3"
no_cache: true
output_line_limit: 50
log_level: debug
secrets:
  store: local
  local_dir: ` + dir + `
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.ScanRoot != dir {
		t.Errorf("expected scan_root %s, got %s", dir, cfg.ScanRoot)
	}
	if !cfg.NoCache {
		t.Error("expected no_cache true")
	}
	if cfg.OutputLineLimit != 50 {
		t.Errorf("expected output_line_limit 50, got %d", cfg.OutputLineLimit)
	}
	if len(cfg.BuildArgs) != 1 || cfg.BuildArgs[0] != "VERSION=1.2.3" {
		t.Errorf("unexpected build args: %v", cfg.BuildArgs)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.LogLevel)
	}
	// Unset fields fall back to defaults
	if cfg.PodmanBinary != "podman" {
		t.Errorf("expected default podman binary, got %s", cfg.PodmanBinary)
	}
}

func TestValidateRejectsBadPattern(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExcludePatterns = []string{"[unclosed"}

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid regex pattern")
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "loud"

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestValidateVaultRequiresURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Secrets.Store = "vault"

	if err := cfg.Validate(); err == nil {
		t.Error("expected error when vault store has no URL")
	}

	cfg.Secrets.VaultURL = "https://vault.internal:8200"
	if err := cfg.Validate(); err != nil {
		t.Errorf("vault store with URL should validate: %v", err)
	}
}

func TestValidateRejectsMissingScanRoot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScanRoot = filepath.Join(t.TempDir(), "does-not-exist")

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing scan root")
	}
}
