// Package config handles loading and validation of podmgr configuration.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the full podmgr configuration. Values come from the
// config file, PODMGR_* environment variables, and command-line flags,
// in increasing order of precedence.
type Config struct {
	// ScanRoot is the directory tree searched for compose, quadlet and
	// Dockerfile entries.
	ScanRoot string `mapstructure:"scan_root"`

	// IncludePatterns are regex patterns a path must match to be scanned.
	// Empty means include everything.
	IncludePatterns []string `mapstructure:"include_patterns"`

	// ExcludePatterns are regex patterns that remove paths from the scan.
	// Exclusion is applied before inclusion.
	ExcludePatterns []string `mapstructure:"exclude_patterns"`

	// BuildArgs are passed to every image build as --build-arg values.
	BuildArgs []string `mapstructure:"build_args"`

	// NoCache disables the build cache for image builds.
	NoCache bool `mapstructure:"no_cache"`

	// DryRun swaps the real container runtime for a fake that only logs.
	DryRun bool `mapstructure:"dry_run"`

	// RebuildAll queues every discovered image as soon as the first scan
	// completes.
	RebuildAll bool `mapstructure:"rebuild_all"`

	// PodmanBinary is the container runtime executable.
	PodmanBinary string `mapstructure:"podman_binary"`

	// OutputLineLimit caps the retained output lines per job.
	OutputLineLimit int `mapstructure:"output_line_limit"`

	// LogDirectory is the directory for log files.
	LogDirectory string `mapstructure:"log_directory"`

	// LogLevel sets the logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Secrets configures secret synchronization.
	Secrets SecretsConfig `mapstructure:"secrets"`
}

// SecretsConfig holds settings for the secrets subcommands.
type SecretsConfig struct {
	// RecordsFile is the JSON file tracking uploaded secret state.
	RecordsFile string `mapstructure:"records_file"`

	// Store selects the upload backend ("local" or "vault").
	Store string `mapstructure:"store"`

	// LocalDir is the destination directory for the local store.
	LocalDir string `mapstructure:"local_dir"`

	// VaultURL is the base URL of the vault store.
	VaultURL string `mapstructure:"vault_url"`

	// VaultKey signs the short-lived tokens sent to the vault.
	// Usually provided via PODMGR_SECRETS_VAULT_KEY.
	VaultKey string `mapstructure:"vault_key"`

	// Passphrase derives the key that seals secret payloads before upload.
	// Usually provided via PODMGR_SECRETS_PASSPHRASE.
	Passphrase string `mapstructure:"passphrase"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ScanRoot:        ".",
		PodmanBinary:    "podman",
		OutputLineLimit: 2000,
		LogDirectory:    "./logs",
		LogLevel:        "info",
		Secrets: SecretsConfig{
			RecordsFile: "secrets.json",
			Store:       "local",
			LocalDir:    "./secret-store",
		},
	}
}

// Load reads configuration via viper. An explicit path pins the config
// file; otherwise podmgr.yaml is searched in the working directory and
// ~/.config/podmgr. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("podmgr")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/podmgr")
		}
	}

	v.SetEnvPrefix("PODMGR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		missing := os.IsNotExist(err)
		if !notFound && !missing {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if path != "" && !missing {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in default values for any fields that are zero/empty.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.ScanRoot == "" {
		c.ScanRoot = defaults.ScanRoot
	}
	if c.PodmanBinary == "" {
		c.PodmanBinary = defaults.PodmanBinary
	}
	if c.OutputLineLimit <= 0 {
		c.OutputLineLimit = defaults.OutputLineLimit
	}
	if c.LogDirectory == "" {
		c.LogDirectory = defaults.LogDirectory
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Secrets.RecordsFile == "" {
		c.Secrets.RecordsFile = defaults.Secrets.RecordsFile
	}
	if c.Secrets.Store == "" {
		c.Secrets.Store = defaults.Secrets.Store
	}
	if c.Secrets.LocalDir == "" {
		c.Secrets.LocalDir = defaults.Secrets.LocalDir
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	info, err := os.Stat(c.ScanRoot)
	if err != nil {
		return fmt.Errorf("scan_root %q is not readable: %w", c.ScanRoot, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("scan_root %q is not a directory", c.ScanRoot)
	}

	patterns := append(append([]string{}, c.IncludePatterns...), c.ExcludePatterns...)
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid path pattern %q: %w", p, err)
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	switch c.Secrets.Store {
	case "local", "vault":
		// Valid
	default:
		return fmt.Errorf("invalid secrets store: %s (must be local or vault)", c.Secrets.Store)
	}
	if c.Secrets.Store == "vault" && c.Secrets.VaultURL == "" {
		return fmt.Errorf("secrets.vault_url is required when secrets.store is vault")
	}

	return nil
}
