package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadSeedsDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, got, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, path, got)
	require.FileExists(t, path)
	require.Equal(t, Default(), cfg)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("CHATRELAY_ADDR", ":9999")
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, _, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.Addr)
}

func TestUpdateFromOverridesOnlySetFields(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1234", LogLevel: "debug"})

	require.Equal(t, ":1234", cfg.Addr)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, Default().DatabasePath, cfg.DatabasePath)
	require.Equal(t, Default().RoomIdleTimeout, cfg.RoomIdleTimeout)
}
