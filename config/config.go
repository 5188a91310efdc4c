// Package config loads plasmite's TOML configuration file.
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"

	"github.com/sandover/plasmite/pool"
)

// Config is the top-level plasmite configuration (SPEC_FULL.md §6.1).
type Config struct {
	// RegistryDir is the directory under which name:X pool references are
	// resolved (spec §4.8).
	RegistryDir string `toml:"registry_dir"`

	// DefaultSizeBytes is used by `plasmite create` when --size-bytes is
	// not given on the command line.
	DefaultSizeBytes uint64 `toml:"default_size_bytes"`

	// DefaultDurability is "fast" or "flush" (spec §4.5).
	DefaultDurability string `toml:"default_durability"`

	// HTTPAddr is the listen address for the HTTP adapter (server/).
	HTTPAddr string `toml:"http_addr"`

	Logging LoggingConfig `toml:"logging"`
}

// LoggingConfig mirrors logging.Config with a plain string level so it
// round-trips through TOML without a custom (un)marshaler.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// ZapLevel parses Level, defaulting to info on an empty or invalid value.
func (l LoggingConfig) ZapLevel() zapcore.Level {
	var lvl zapcore.Level
	if l.Level == "" {
		return zapcore.InfoLevel
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Default returns the configuration used when no config file is given.
func Default() Config {
	return Config{
		RegistryDir:       "./plasmite-data",
		DefaultSizeBytes:  64 << 20,
		DefaultDurability: "fast",
		HTTPAddr:          ":8420",
		Logging:           LoggingConfig{Level: "info"},
	}
}

// Durability parses DefaultDurability into a pool.Durability value.
func (c Config) Durability() pool.Durability {
	if c.DefaultDurability == "flush" {
		return pool.Flush
	}
	return pool.Fast
}

// Load reads and parses a TOML config file, filling in defaults for any
// field the file leaves zero.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
