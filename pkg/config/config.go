// Package config defines the service configuration and its layered loading:
// defaults, then an optional YAML file, then RECRUITMATCH_* environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8420".
	Addr string `koanf:"addr"`

	// CorporaDir holds one subdirectory per reference corpus.
	CorporaDir string `koanf:"corpora_dir"`

	// DefaultCorpus is resolved against when a request names no corpus.
	DefaultCorpus string `koanf:"default_corpus"`

	// DatabasePath is the SQLite file for athlete records. Import sources
	// live next to it in sources.db.
	DatabasePath string `koanf:"database_path"`

	// SourceCheckIntervalSec sets how often import sources are probed.
	// 0 disables the checker.
	SourceCheckIntervalSec int `koanf:"source_check_interval_sec"`

	// Duplicate finder bounds.
	DuplicatesLimit         int `koanf:"duplicates_limit"`
	DuplicatesMinConfidence int `koanf:"duplicates_min_confidence"`
	DuplicatesPoolLimit     int `koanf:"duplicates_pool_limit"`

	// ImportOutputDir is where the import command writes corpora.
	// Defaults to CorporaDir.
	ImportOutputDir string `koanf:"import_output_dir"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":8420",
		CorporaDir:              "corpora",
		DefaultCorpus:           "ipeds-institutions-us",
		DatabasePath:            "recruitmatch.db",
		SourceCheckIntervalSec:  0,
		DuplicatesLimit:         10,
		DuplicatesMinConfidence: 30,
		DuplicatesPoolLimit:     200,
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.CorporaDir == "":
		return fmt.Errorf("%w: corpora_dir must not be empty", ErrInvalidConfig)
	case c.DatabasePath == "":
		return fmt.Errorf("%w: database_path must not be empty", ErrInvalidConfig)
	case c.SourceCheckIntervalSec < 0:
		return fmt.Errorf("%w: source_check_interval_sec must be >= 0", ErrInvalidConfig)
	case c.DuplicatesLimit <= 0:
		return fmt.Errorf("%w: duplicates_limit must be > 0", ErrInvalidConfig)
	case c.DuplicatesMinConfidence < 0 || c.DuplicatesMinConfidence > 100:
		return fmt.Errorf("%w: duplicates_min_confidence must be in [0,100]", ErrInvalidConfig)
	case c.DuplicatesPoolLimit <= 0:
		return fmt.Errorf("%w: duplicates_pool_limit must be > 0", ErrInvalidConfig)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
}

// SourceCheckInterval returns the checker interval, 0 when disabled.
func (c *Config) SourceCheckInterval() time.Duration {
	return time.Duration(c.SourceCheckIntervalSec) * time.Second
}

// ImportDir returns where imported corpora are written.
func (c *Config) ImportDir() string {
	if c.ImportOutputDir != "" {
		return c.ImportOutputDir
	}
	return c.CorporaDir
}
