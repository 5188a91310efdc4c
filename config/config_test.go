package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/sandover/plasmite/config"
	"github.com/sandover/plasmite/pool"
)

func TestDefaultDurability(t *testing.T) {
	cfg := config.Default()
	require.Equal(t, pool.Fast, cfg.Durability())
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plasmite.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
registry_dir = "/var/lib/plasmite"
default_durability = "flush"

[logging]
level = "debug"
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/plasmite", cfg.RegistryDir)
	require.Equal(t, pool.Flush, cfg.Durability())
	require.Equal(t, zapcore.DebugLevel, cfg.Logging.ZapLevel())

	// Fields left out of the file keep their defaults.
	require.Equal(t, config.Default().DefaultSizeBytes, cfg.DefaultSizeBytes)
}

func TestZapLevelFallsBackToInfo(t *testing.T) {
	cfg := config.LoggingConfig{Level: "not-a-level"}
	require.Equal(t, zapcore.InfoLevel, cfg.ZapLevel())
}
