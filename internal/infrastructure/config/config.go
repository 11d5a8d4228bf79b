// Package config loads engine configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all engine configuration.
type Config struct {
	Storage StorageConfig
	Quota   QuotaConfig
	Dirs    DirConfig
	Logging LogConfig
}

// StorageConfig holds backing-store and chunking configuration.
type StorageConfig struct {
	// ChunkSize bounds the byte length of a single stored chunk.
	ChunkSize int `envconfig:"VFS_CHUNK_SIZE" default:"1048576"`
	// BoltPath is the database file used by the bbolt backend.
	BoltPath string `envconfig:"VFS_BOLT_PATH" default:"vfs.db"`
}

// QuotaConfig holds size limits and tombstone retention.
type QuotaConfig struct {
	// MaxStorageSize is the soft cap on the sum of all file sizes.
	// Exceeding it triggers least-recently-accessed eviction.
	MaxStorageSize int64 `envconfig:"VFS_MAX_STORAGE_SIZE" default:"104857600"`
	// MaxFileSize caps a single file's byte length.
	MaxFileSize int64 `envconfig:"VFS_MAX_FILE_SIZE" default:"10485760"`
	// TombstoneTTL bounds how long deletion records are retained.
	TombstoneTTL time.Duration `envconfig:"VFS_TOMBSTONE_TTL" default:"24h"`
}

// DirConfig holds the four auto-created default directory paths.
type DirConfig struct {
	Save     string `envconfig:"VFS_DIR_SAVE" default:"/VirtualMacros"`
	Data     string `envconfig:"VFS_DIR_DATA" default:"/VirtualData"`
	Download string `envconfig:"VFS_DIR_DOWNLOAD" default:"/VirtualDownloads"`
	Log      string `envconfig:"VFS_DIR_LOG" default:"/VirtualLogs"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"VFS_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"VFS_LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			ChunkSize: 1 << 20,
			BoltPath:  "vfs.db",
		},
		Quota: QuotaConfig{
			MaxStorageSize: 100 << 20,
			MaxFileSize:    10 << 20,
			TombstoneTTL:   24 * time.Hour,
		},
		Dirs: DirConfig{
			Save:     "/VirtualMacros",
			Data:     "/VirtualData",
			Download: "/VirtualDownloads",
			Log:      "/VirtualLogs",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
