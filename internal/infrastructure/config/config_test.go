package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1<<20, cfg.Storage.ChunkSize)
	assert.Equal(t, int64(100<<20), cfg.Quota.MaxStorageSize)
	assert.Equal(t, int64(10<<20), cfg.Quota.MaxFileSize)
	assert.Equal(t, 24*time.Hour, cfg.Quota.TombstoneTTL)
	assert.Equal(t, "/VirtualMacros", cfg.Dirs.Save)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VFS_CHUNK_SIZE", "256")
	t.Setenv("VFS_MAX_STORAGE_SIZE", "1024")
	t.Setenv("VFS_TOMBSTONE_TTL", "1h")
	t.Setenv("VFS_DIR_SAVE", "/Macros")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 256, cfg.Storage.ChunkSize)
	assert.Equal(t, int64(1024), cfg.Quota.MaxStorageSize)
	assert.Equal(t, time.Hour, cfg.Quota.TombstoneTTL)
	assert.Equal(t, "/Macros", cfg.Dirs.Save)
	// Untouched fields keep their defaults.
	assert.Equal(t, int64(10<<20), cfg.Quota.MaxFileSize)
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	t.Setenv("VFS_CHUNK_SIZE", "not-a-number")

	cfg := LoadOrDefault()
	assert.Equal(t, 1<<20, cfg.Storage.ChunkSize)
}
