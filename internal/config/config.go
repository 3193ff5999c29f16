package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"swingboard/internal/model"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

// StoreBackend selects where the record snapshot is loaded from.
type StoreBackend string

const (
	StoreFeed     StoreBackend = "feed"
	StorePostgres StoreBackend = "postgres"
)

// StoreConfig describes the record source.
type StoreConfig struct {
	// Backend is "feed" (hosted JSON export) or "postgres".
	Backend StoreBackend `yaml:"backend" json:"backend"`

	// FeedURL is the JSON feed endpoint (feed backend).
	FeedURL string `yaml:"feed_url,omitempty" json:"feed_url,omitempty"`

	// CacheDir is the feed disk-cache directory.
	CacheDir string `yaml:"cache_dir,omitempty" json:"cache_dir,omitempty"`

	// DSN is the Postgres connection string (postgres backend).
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
}

// IngestConfig describes the candidate scraping sources.
type IngestConfig struct {
	// Sources are announcement page URLs to extract candidates from.
	Sources []string `yaml:"sources" json:"sources"`

	// TimeoutSeconds bounds a single page scrape.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is "debug", "info" or "error".
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for periodic snapshot refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays is how far ahead weekly recurring records are
	// materialized into concrete dates.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// GenreWeights biases the fair-exposure sampler per primary genre.
	// Absent genres weigh 1.0; non-positive values are floored, not
	// rejected.
	GenreWeights model.GenreWeights `yaml:"genre_weights" json:"genre_weights"`

	Store  StoreConfig  `yaml:"store" json:"store"`
	Ingest IngestConfig `yaml:"ingest" json:"ingest"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		LogLevel:     "info",
		RefreshCron:  "*/15 * * * *",
		HorizonDays:  60,
		GenreWeights: model.DefaultGenreWeights(),
		Store: StoreConfig{
			Backend:  StoreFeed,
			CacheDir: "./var/feed-cache",
		},
		Ingest: IngestConfig{
			Sources:        []string{},
			TimeoutSeconds: 30,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 60
	}
	if c.GenreWeights == nil {
		c.GenreWeights = model.DefaultGenreWeights()
	}
	switch c.Store.Backend {
	case StoreFeed, StorePostgres:
		// ok
	default:
		// Unknown backend; fall back to the feed to avoid surprising
		// connection attempts.
		c.Store.Backend = StoreFeed
	}
	if c.Store.CacheDir == "" {
		c.Store.CacheDir = "./var/feed-cache"
	}
	if c.Ingest.Sources == nil {
		c.Ingest.Sources = []string{}
	}
	if c.Ingest.TimeoutSeconds <= 0 {
		c.Ingest.TimeoutSeconds = 30
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".swingboard-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the
// package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
