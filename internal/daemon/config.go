// Package daemon wires the settlement engine together and runs it: config,
// store, registry, treasury, HTTP server.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration, loaded from ~/.parlor/config.toml.
type Config struct {
	API        APIConfig        `toml:"api"`
	Store      StoreConfig      `toml:"store"`
	Signer     SignerConfig     `toml:"signer"`
	Settlement SettlementConfig `toml:"settlement"`
	Operator   OperatorConfig   `toml:"operator"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// APIConfig controls the HTTP listener.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StoreConfig controls where the sqlite database lives.
type StoreConfig struct {
	Dir string `toml:"dir"` // Empty means ~/.parlor
}

// SignerConfig is the typed-data signing domain and the trusted arbiter.
type SignerConfig struct {
	Name     string `toml:"name"`
	Version  string `toml:"version"`
	ChainID  int64  `toml:"chain_id"`
	Contract string `toml:"contract"`
	Operator string `toml:"operator"` // 0x address of the arbiter key
}

// SettlementConfig controls the wager lifecycle.
type SettlementConfig struct {
	ExpiryWindow string `toml:"expiry_window"` // Go duration, e.g. "24h"
}

// OperatorConfig gates the operator HTTP endpoints.
type OperatorConfig struct {
	Token string `toml:"token"` // Empty leaves them open (dev only)
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8480,
		},
		Signer: SignerConfig{
			Name:    "parlor",
			Version: "1",
			ChainID: 1,
		},
		Settlement: SettlementConfig{
			ExpiryWindow: "24h",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads the config file at path, applying defaults for anything unset.
// A missing file is not an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultConfigPath returns ~/.parlor/config.toml, honoring PARLOR_HOME.
func DefaultConfigPath() string {
	return filepath.Join(HomeDir(), "config.toml")
}

// HomeDir returns the parlor data directory.
func HomeDir() string {
	if env := os.Getenv("PARLOR_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".parlor")
}

// ExpiryWindow parses the configured window, falling back to 24h.
func (c Config) ExpiryWindow() time.Duration {
	d, err := time.ParseDuration(c.Settlement.ExpiryWindow)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// StoreDir returns the directory holding the sqlite database.
func (c Config) StoreDir() string {
	if c.Store.Dir != "" {
		return c.Store.Dir
	}
	return HomeDir()
}

// ListenAddr returns the host:port the HTTP server binds.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}
