// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

// Package tomlconfig loads a Tree's operating parameters from a TOML file,
// grounded on cmd/gossamer/configcmd.go's loadConfig (toml.NewDecoder(f)
// .Decode(&config)) and validated the way dot/rpc/helpers.go validates
// incoming requests, with go-playground/validator struct tags.
package tomlconfig

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/naoina/toml"
)

// Config is the on-disk shape of a Tree's configuration.
type Config struct {
	Store StoreConfig `toml:"store"`
	Cache CacheConfig `toml:"cache"`
	Log   LogConfig   `toml:"log"`
}

// StoreConfig selects and configures the node store backend.
type StoreConfig struct {
	// Backend is "memory" or "badger".
	Backend string `toml:"backend" validate:"required,oneof=memory badger"`
	// DataDir is required when Backend is "badger".
	DataDir string `toml:"data-dir" validate:"required_if=Backend badger"`
	InMemory bool  `toml:"in-memory"`
}

// CacheConfig configures the optional ristretto read-through node cache.
type CacheConfig struct {
	Enabled  bool  `toml:"enabled"`
	MaxNodes int64 `toml:"max-nodes" validate:"required_if=Enabled true,gte=0"`
}

// LogConfig configures the Tree's logger.
type LogConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Colour bool   `toml:"colour"`
}

// Default returns a Config suitable for a standalone, ephemeral tree: an
// in-memory store, no cache, info-level logging.
func Default() Config {
	return Config{
		Store: StoreConfig{Backend: "memory"},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads and validates a Config from the TOML file at path.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("tomlconfig: open %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("tomlconfig: decode %s: %w", path, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("tomlconfig: %s: %w", path, err)
	}

	return cfg, nil
}
