package vfs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/virtualmacros/vfs/internal/shared/paths"
)

// ExportTree serializes the whole filesystem, full file contents plus
// config and stats, into one bundle.
func (s *Service) ExportTree(ctx context.Context) (b *Bundle, err error) {
	defer func() { s.metrics.RecordOp("export", err) }()
	if err = s.Init(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files := make(map[string]string)
	for p, entry := range s.tree.entries {
		if entry.Kind != KindFile {
			continue
		}
		data, rerr := s.chunks.Read(ctx, p, entry.ChunkIDs)
		if rerr != nil {
			return nil, rerr
		}
		files[p] = string(data)
	}

	return &Bundle{
		ExportedAt: time.Now(),
		Config:     s.conf,
		Stats:      s.tree.Stats(),
		Files:      files,
	}, nil
}

// ImportTree replaces the entire filesystem with the bundle's contents:
// the default structure is rebuilt first, discarding all prior content,
// then the bundle's files are replayed through the normal write path.
func (s *Service) ImportTree(ctx context.Context, b *Bundle) (err error) {
	defer func() { s.metrics.RecordOp("import", err) }()
	if b == nil {
		return fmt.Errorf("nil bundle")
	}
	if err = s.Init(ctx); err != nil {
		return err
	}

	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	// Free every existing file's chunks before discarding the tree.
	for p, entry := range s.tree.entries {
		if entry.Kind != KindFile {
			continue
		}
		if rerr := s.chunks.Remove(ctx, entry.ChunkIDs); rerr != nil {
			s.log.Warn("failed to free chunks during import",
				zap.String("path", p), zap.Error(rerr))
		}
	}

	if b.Config != (Config{}) {
		s.conf = normalizeConfig(b.Config)
	}
	s.tree = NewTree()
	for _, p := range s.conf.Paths() {
		if _, derr := s.ensureDirLocked(p); derr != nil {
			s.log.Warn("default directory unusable", zap.String("path", p), zap.Error(derr))
		}
	}

	// Deterministic replay order; ancestors auto-create so order only
	// affects event/timestamp sequencing.
	replay := make([]string, 0, len(b.Files))
	for raw := range b.Files {
		replay = append(replay, raw)
	}
	sort.Strings(replay)

	for _, raw := range replay {
		p, perr := paths.Normalize(raw)
		if perr != nil || paths.IsRoot(p) {
			s.log.Warn("skipping unimportable bundle path",
				zap.String("path", raw), zap.Error(perr))
			continue
		}
		if err = s.writeFileLocked(ctx, p, []byte(b.Files[raw])); err != nil {
			return fmt.Errorf("import %s: %w", p, err)
		}
	}

	// Carry the bundle's access history for paths that made it in.
	for raw, at := range b.Stats.LastAccess {
		if p, perr := paths.Normalize(raw); perr == nil {
			if _, ok := s.tree.Get(p); ok {
				s.tree.stats.LastAccess[p] = at
			}
		}
	}

	if err = s.persistLocked(ctx); err != nil {
		return err
	}
	s.queueEventLocked(EventImport, paths.Root)
	return nil
}
