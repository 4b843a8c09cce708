// Package config handles configuration for the sigfeed CLI, including
// defaults, JSON overlay, and command-line flags.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/sigfeed/internal/syncx"
)

// Config holds runtime settings for the sigfeed CLI.
//
// Fields:
//   - ServerURL: base URL of the sigfeed server, e.g. "http://127.0.0.1:8080".
//   - KeyringDir: directory holding sealed signing keys.
//   - Prefetch: how many item fetches the pull pipeline keeps in flight.
//   - PageSize: page size used when enumerating item listings.
//   - RequestTimeout: per-request timeout for server calls.
type Config struct {
	ServerURL      string
	KeyringDir     string
	Prefetch       int
	PageSize       int
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.Prefetch = syncx.DefaultPrefetch
	c.PageSize = syncx.DefaultPageSize
	c.RequestTimeout = 10 * time.Second

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	c.KeyringDir = filepath.Join(home, ".sigfeed", "keys")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}
