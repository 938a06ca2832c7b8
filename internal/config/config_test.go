package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[store]
backend = "memory"

[screen]
interval = "4h"
min_price = 2.5

[divergence]
window = 7
min_swing_points = 3
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Store.Backend)
	require.Equal(t, "4h", cfg.Screen.Interval)
	require.Equal(t, 2.5, cfg.Screen.MinPrice)
	require.Equal(t, 7, cfg.Divergence.Window)
	require.Equal(t, 3, cfg.Divergence.MinSwingPoints)
	// Untouched knobs keep their defaults.
	require.Equal(t, Default().Divergence.Lookback, cfg.Divergence.Lookback)
	require.Equal(t, Default().Server.Addr, cfg.Server.Addr)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "badstore.toml")
	require.NoError(t, os.WriteFile(path, []byte("[store]\nbackend = \"redis\"\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)

	path = filepath.Join(dir, "baddiv.toml")
	require.NoError(t, os.WriteFile(path, []byte("[divergence]\nwindow = -1\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)

	path = filepath.Join(dir, "syntax.toml")
	require.NoError(t, os.WriteFile(path, []byte("not toml ==="), 0o644))
	_, err = Load(path)
	require.Error(t, err)
}
