// Package config loads the TOML configuration file and layers it over the
// built-in defaults, so a partial file only overrides what it names.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"stockscreen/internal/analysis/divergence"
	"stockscreen/internal/logger"
	"stockscreen/internal/screener"
)

// StoreConfig selects the candle store backend.
type StoreConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `json:"backend" toml:"backend"`
	Path    string `json:"path" toml:"path"`
	// MaxCandles trims per-symbol history on import; zero keeps everything.
	MaxCandles int `json:"max_candles" toml:"max_candles"`
}

// ServerConfig shapes the HTTP surface.
type ServerConfig struct {
	Addr string `json:"addr" toml:"addr"`
}

type Config struct {
	Store      StoreConfig       `json:"store" toml:"store"`
	Server     ServerConfig      `json:"server" toml:"server"`
	Log        logger.Config     `json:"log" toml:"log"`
	Screen     screener.Options  `json:"screen" toml:"screen"`
	Divergence divergence.Config `json:"divergence" toml:"divergence"`
}

func Default() Config {
	return Config{
		Store:      StoreConfig{Backend: "sqlite", Path: "stockscreen.db"},
		Server:     ServerConfig{Addr: ":8089"},
		Log:        logger.DefaultConfig(),
		Screen:     screener.DefaultOptions(),
		Divergence: divergence.DefaultConfig(),
	}
}

// Load reads path over the defaults. A missing file is not an error: the
// defaults stand as-is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == "sqlite" && c.Store.Path == "" {
		return errors.New("config: sqlite backend needs store.path")
	}
	return c.Divergence.Validate()
}
