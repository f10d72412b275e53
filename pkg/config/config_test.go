package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "default", cfg.Partition.ID)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
partition:
  id: my-partition
  data_dir: /var/lib/graphstore
cache:
  enabled: false
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "my-partition", cfg.Partition.ID)
	assert.Equal(t, "/var/lib/graphstore", cfg.Partition.DataDir)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "./backups", cfg.Backup.Dir) // untouched field keeps its default
}

func TestLoadFromEnvOrFileEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
partition:
  id: from-file
`), 0o644))

	t.Setenv("GRAPHSTORE_PARTITION_ID", "from-env")
	t.Setenv("GRAPHSTORE_IN_MEMORY", "true")
	t.Setenv("GRAPHSTORE_CACHE_ENABLED", "false")

	cfg, err := LoadFromEnvOrFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Partition.ID)
	assert.True(t, cfg.Partition.InMemory)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadFromEnvOrFileInvalidBoolFallsBackToExisting(t *testing.T) {
	t.Setenv("GRAPHSTORE_IN_MEMORY", "not-a-bool")

	cfg, err := LoadFromEnvOrFile("")
	require.NoError(t, err)
	assert.False(t, cfg.Partition.InMemory)
}
