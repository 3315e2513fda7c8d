// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

package tomlconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadValidMemoryConfig(t *testing.T) {
	path := writeConfig(t, `
[store]
backend = "memory"

[log]
level = "debug"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadValidBadgerConfigRequiresDataDir(t *testing.T) {
	path := writeConfig(t, `
[store]
backend = "badger"
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadBadgerConfigWithDataDir(t *testing.T) {
	path := writeConfig(t, `
[store]
backend = "badger"
data-dir = "/tmp/statechain-data"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "badger", cfg.Store.Backend)
	assert.Equal(t, "/tmp/statechain-data", cfg.Store.DataDir)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
[store]
backend = "postgres"
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, validator.New().Struct(cfg))
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
}
