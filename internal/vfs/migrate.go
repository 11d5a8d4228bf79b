package vfs

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/virtualmacros/vfs/internal/infrastructure/logging"
	"github.com/virtualmacros/vfs/internal/shared/paths"
	"github.com/virtualmacros/vfs/internal/storage"
)

// Legacy single-blob format: one JSON document holding every entry with
// file content inline, plus sibling config and stats blobs.
type legacyEntry struct {
	Kind     string    `json:"kind"` // "dir" or "file"
	Content  string    `json:"content,omitempty"`
	Modified time.Time `json:"modified"`
}

type legacyStats struct {
	LastAccess map[string]time.Time `json:"lastAccess"`
}

// Migrator converts the legacy format into the chunked layout. It runs at
// most once, at initialization, and only when the current-format tree is
// absent while legacy keys are present.
type Migrator struct {
	backend  storage.Backend
	chunks   *ChunkStore
	defaults Config
	log      *logging.Logger
}

// NewMigrator creates a migrator that writes converted file bodies through
// the given chunk store.
func NewMigrator(backend storage.Backend, chunks *ChunkStore, defaults Config, log *logging.Logger) *Migrator {
	return &Migrator{backend: backend, chunks: chunks, defaults: defaults, log: log}
}

// Detect reports whether a legacy-format tree exists in the backing store.
func (m *Migrator) Detect(ctx context.Context) (bool, error) {
	_, ok, err := storage.GetOne(ctx, m.backend, legacyKeyTree)
	if err != nil {
		return false, backendErr("legacy detect", err)
	}
	return ok, nil
}

// Run converts the legacy blobs into a new tree and config. The caller
// must persist the result before invoking DeleteLegacy; the legacy keys
// survive until the new structure is durable.
func (m *Migrator) Run(ctx context.Context) (*Tree, Config, error) {
	raw, err := m.backend.Get(ctx, []string{legacyKeyTree, legacyKeyConfig, legacyKeyStats})
	if err != nil {
		return nil, Config{}, backendErr("legacy read", err)
	}

	legacy := make(map[string]legacyEntry)
	if blob, ok := raw[legacyKeyTree]; ok {
		if err := sonic.Unmarshal(blob, &legacy); err != nil {
			return nil, Config{}, fmt.Errorf("decode legacy tree: %w", err)
		}
	}

	conf := m.defaults
	if blob, ok := raw[legacyKeyConfig]; ok {
		var legacyConf Config
		if err := sonic.Unmarshal(blob, &legacyConf); err != nil {
			m.log.Warn("legacy config unreadable, keeping defaults", zap.Error(err))
		} else if legacyConf != (Config{}) {
			conf = normalizeConfig(legacyConf)
		}
	}

	var oldStats legacyStats
	if blob, ok := raw[legacyKeyStats]; ok {
		if err := sonic.Unmarshal(blob, &oldStats); err != nil {
			m.log.Warn("legacy stats unreadable, access history dropped", zap.Error(err))
		}
	}

	tree := NewTree()
	for rawPath, old := range legacy {
		path, err := paths.Normalize(rawPath)
		if err != nil {
			m.log.Warn("skipping unmigratable legacy path",
				zap.String("path", rawPath), zap.Error(err))
			continue
		}
		if paths.IsRoot(path) {
			continue
		}

		if old.Kind == string(KindDirectory) {
			tree.Set(path, DirEntry(old.Modified))
			continue
		}

		content := []byte(old.Content)
		chunkIDs, err := m.chunks.Write(ctx, content)
		if err != nil {
			return nil, Config{}, fmt.Errorf("migrate %s: %w", path, err)
		}
		tree.Set(path, FileEntry(int64(len(content)), chunkIDs, old.Modified))
	}

	m.ensureDefaultDirs(ctx, tree, conf)
	tree.recomputeStats()

	// Carry access history forward for paths that survived conversion.
	for rawPath, at := range oldStats.LastAccess {
		if path, err := paths.Normalize(rawPath); err == nil {
			if _, ok := tree.Get(path); ok {
				tree.stats.LastAccess[path] = at
			}
		}
	}

	m.log.Info("migrated legacy filesystem", zap.Int("entries", tree.Len()))
	return tree, conf, nil
}

// ensureDefaultDirs recreates missing default directories. A legacy file
// squatting on a default-directory path loses: its chunks are freed and
// the path becomes a directory.
func (m *Migrator) ensureDefaultDirs(ctx context.Context, tree *Tree, conf Config) {
	for _, raw := range conf.Paths() {
		path, err := paths.Normalize(raw)
		if err != nil || paths.IsRoot(path) {
			continue
		}

		if entry, ok := tree.Get(path); ok {
			if entry.IsDir() {
				continue
			}
			m.log.Warn("legacy file conflicts with default directory, replacing",
				zap.String("path", path))
			if err := m.chunks.Remove(ctx, entry.ChunkIDs); err != nil {
				m.log.Warn("failed to free conflicting file's chunks", zap.Error(err))
			}
		}
		for _, anc := range paths.Ancestors(path) {
			if _, ok := tree.Get(anc); !ok {
				tree.Set(anc, DirEntry(time.Now()))
			}
		}
		tree.Set(path, DirEntry(time.Now()))
	}
}

// DeleteLegacy removes the legacy key group. Call only after the new
// structure has been persisted.
func (m *Migrator) DeleteLegacy(ctx context.Context) error {
	err := m.backend.Remove(ctx, []string{legacyKeyTree, legacyKeyConfig, legacyKeyStats})
	return backendErr("legacy delete", err)
}
