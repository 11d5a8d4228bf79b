package vfs

import (
	"context"
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/virtualmacros/vfs/internal/shared/paths"
)

// DirsOnlyFilter is the reserved ListDir filter token restricting results
// to directories.
const DirsOnlyFilter = "{dirs}"

// Exists reports whether any entry exists at path.
func (s *Service) Exists(ctx context.Context, path string) (ok bool, err error) {
	defer func() { s.metrics.RecordOp("exists", err) }()
	if err = s.Init(ctx); err != nil {
		return false, err
	}
	p, err := paths.Normalize(path)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok = s.tree.Get(p)
	return ok, nil
}

// Stat returns metadata for the entry at path.
func (s *Service) Stat(ctx context.Context, path string) (info NodeInfo, err error) {
	defer func() { s.metrics.RecordOp("stat", err) }()
	if err = s.Init(ctx); err != nil {
		return NodeInfo{}, err
	}
	p, err := paths.Normalize(path)
	if err != nil {
		return NodeInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tree.Get(p)
	if !ok {
		return NodeInfo{}, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return NodeInfo{
		Name:     paths.Base(p),
		Path:     p,
		IsDir:    entry.IsDir(),
		Size:     entry.Size,
		Modified: entry.Modified,
	}, nil
}

// ReadTextFile returns the full content of the file at path and records
// the access for eviction ordering.
func (s *Service) ReadTextFile(ctx context.Context, path string) (content string, err error) {
	defer func() { s.metrics.RecordOp("read", err) }()
	if err = s.Init(ctx); err != nil {
		return "", err
	}
	p, err := paths.Normalize(path)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tree.Get(p)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if entry.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrTypeConflict, p)
	}

	data, err := s.chunks.Read(ctx, p, entry.ChunkIDs)
	if err != nil {
		return "", err
	}

	s.tree.Touch(p)
	// Recency survives restarts only if persisted; the read itself must
	// not fail because that persist could not happen.
	if perr := s.persistLocked(ctx); perr != nil {
		s.log.Warn("persist after read failed", zap.Error(perr))
	}
	return string(data), nil
}

// WriteTextFile stores content at path, auto-creating missing ancestor
// directories and enforcing per-file and total-size limits.
func (s *Service) WriteTextFile(ctx context.Context, path, content string) (err error) {
	defer func() { s.metrics.RecordOp("write", err) }()
	if err = s.Init(ctx); err != nil {
		return err
	}
	p, err := paths.Normalize(path)
	if err != nil {
		return err
	}

	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.writeFileLocked(ctx, p, []byte(content)); err != nil {
		return err
	}
	if err = s.persistLocked(ctx); err != nil {
		return err
	}
	s.queueEventLocked(EventWrite, p)
	return nil
}

// AppendTextFile appends content to the file at path, creating it if
// absent. Read-then-write: not atomic with respect to concurrent writers.
func (s *Service) AppendTextFile(ctx context.Context, path, content string) (err error) {
	defer func() { s.metrics.RecordOp("append", err) }()
	if err = s.Init(ctx); err != nil {
		return err
	}
	p, err := paths.Normalize(path)
	if err != nil {
		return err
	}

	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	var prior []byte
	if entry, ok := s.tree.Get(p); ok {
		if entry.IsDir() {
			return fmt.Errorf("%w: %s is a directory", ErrTypeConflict, p)
		}
		prior, err = s.chunks.Read(ctx, p, entry.ChunkIDs)
		if err != nil {
			return err
		}
	}

	if err = s.writeFileLocked(ctx, p, append(prior, content...)); err != nil {
		return err
	}
	if err = s.persistLocked(ctx); err != nil {
		return err
	}
	s.queueEventLocked(EventWrite, p)
	return nil
}

// MakeDirectory creates path and any missing ancestors as directories.
// Creating an existing directory is a no-op.
func (s *Service) MakeDirectory(ctx context.Context, path string) (err error) {
	defer func() { s.metrics.RecordOp("mkdir", err) }()
	if err = s.Init(ctx); err != nil {
		return err
	}
	p, err := paths.Normalize(path)
	if err != nil {
		return err
	}

	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.ensureDirLocked(p)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	if err = s.persistLocked(ctx); err != nil {
		return err
	}
	s.queueEventLocked(EventMkdir, p)
	return nil
}

// Remove deletes the entry at path; directories are removed recursively,
// every descendant's chunks are freed, and each removed path gets one
// tombstone.
func (s *Service) Remove(ctx context.Context, path string) (err error) {
	defer func() { s.metrics.RecordOp("remove", err) }()
	if err = s.Init(ctx); err != nil {
		return err
	}
	p, err := paths.Normalize(path)
	if err != nil {
		return err
	}
	if paths.IsRoot(p) {
		return fmt.Errorf("%w: cannot remove the root directory", ErrInvalidPath)
	}

	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tree.Get(p); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if _, err = s.removeSubtreeLocked(ctx, p); err != nil {
		return err
	}
	if err = s.persistLocked(ctx); err != nil {
		return err
	}
	s.queueEventLocked(EventDelete, p)
	return nil
}

// CopyTo copies the entry at src to dst. Directories recurse by relative
// remainder; files are read then rewritten through the chunk store.
func (s *Service) CopyTo(ctx context.Context, src, dst string) (err error) {
	defer func() { s.metrics.RecordOp("copy", err) }()
	if err = s.Init(ctx); err != nil {
		return err
	}
	from, err := paths.Normalize(src)
	if err != nil {
		return err
	}
	to, err := paths.Normalize(dst)
	if err != nil {
		return err
	}

	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.copySubtreeLocked(ctx, from, to); err != nil {
		return err
	}
	if err = s.persistLocked(ctx); err != nil {
		return err
	}
	s.queueEventLocked(EventWrite, to)
	return nil
}

// MoveTo moves the entry at src to dst: a copy followed by a remove of
// the source, not an atomic rename.
func (s *Service) MoveTo(ctx context.Context, src, dst string) (err error) {
	defer func() { s.metrics.RecordOp("move", err) }()
	if err = s.Init(ctx); err != nil {
		return err
	}
	from, err := paths.Normalize(src)
	if err != nil {
		return err
	}
	to, err := paths.Normalize(dst)
	if err != nil {
		return err
	}
	if paths.IsRoot(from) {
		return fmt.Errorf("%w: cannot move the root directory", ErrInvalidPath)
	}

	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	if from == to {
		if _, ok := s.tree.Get(from); !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, from)
		}
		return nil
	}
	if err = s.copySubtreeLocked(ctx, from, to); err != nil {
		return err
	}
	if _, err = s.removeSubtreeLocked(ctx, from); err != nil {
		return err
	}
	if err = s.persistLocked(ctx); err != nil {
		return err
	}
	s.queueEventLocked(EventWrite, to)
	s.queueEventLocked(EventDelete, from)
	return nil
}

// copySubtreeLocked copies src onto dst without persisting.
func (s *Service) copySubtreeLocked(ctx context.Context, src, dst string) error {
	entry, ok := s.tree.Get(src)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, src)
	}
	if src == dst {
		return nil
	}

	if !entry.IsDir() {
		data, err := s.chunks.Read(ctx, src, entry.ChunkIDs)
		if err != nil {
			return err
		}
		return s.writeFileLocked(ctx, dst, data)
	}

	if paths.IsDescendant(src, dst) {
		return fmt.Errorf("%w: cannot copy %s into itself", ErrInvalidPath, src)
	}
	if _, err := s.ensureDirLocked(dst); err != nil {
		return err
	}
	// ChildrenOf is sorted, so parents always precede their children.
	for _, d := range s.tree.ChildrenOf(src) {
		target := paths.Join(dst, paths.Relative(src, d))
		child, _ := s.tree.Get(d)
		if child.IsDir() {
			if _, err := s.ensureDirLocked(target); err != nil {
				return err
			}
			continue
		}
		data, err := s.chunks.Read(ctx, d, child.ChunkIDs)
		if err != nil {
			return err
		}
		if err := s.writeFileLocked(ctx, target, data); err != nil {
			return err
		}
	}
	return nil
}

// ListDir lists the immediate children of a directory. The filter is a
// glob pattern matched against child names, or DirsOnlyFilter to return
// directories only. A missing default directory is created on access.
func (s *Service) ListDir(ctx context.Context, path, filter string) (infos []NodeInfo, err error) {
	defer func() { s.metrics.RecordOp("list", err) }()
	if err = s.Init(ctx); err != nil {
		return nil, err
	}
	p, err := paths.Normalize(path)
	if err != nil {
		return nil, err
	}

	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tree.Get(p)
	switch {
	case !ok && s.isDefaultDirLocked(p):
		if _, err = s.ensureDirLocked(p); err != nil {
			return nil, err
		}
		if err = s.persistLocked(ctx); err != nil {
			return nil, err
		}
		s.queueEventLocked(EventMkdir, p)
	case !ok:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	case !entry.IsDir():
		return nil, fmt.Errorf("%w: %s is a file", ErrNotADirectory, p)
	}

	dirsOnly := filter == DirsOnlyFilter
	infos = []NodeInfo{}
	for _, child := range s.tree.ChildrenOf(p) {
		if !paths.IsImmediateChild(p, child) {
			continue
		}
		e, _ := s.tree.Get(child)
		if dirsOnly && !e.IsDir() {
			continue
		}
		if filter != "" && !dirsOnly {
			matched, merr := doublestar.Match(filter, paths.Base(child))
			if merr != nil {
				return nil, fmt.Errorf("invalid filter pattern %q: %w", filter, merr)
			}
			if !matched {
				continue
			}
		}
		infos = append(infos, NodeInfo{
			Name:     paths.Base(child),
			Path:     child,
			IsDir:    e.IsDir(),
			Size:     e.Size,
			Modified: e.Modified,
		})
	}

	s.tree.Touch(p)
	return infos, nil
}

// DefaultDir returns the configured path for one of the four default
// directories, creating it on first access.
func (s *Service) DefaultDir(ctx context.Context, kind DirKind) (path string, err error) {
	defer func() { s.metrics.RecordOp("default_dir", err) }()
	if err = s.Init(ctx); err != nil {
		return "", err
	}

	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.conf.PathFor(kind)
	if p == "" {
		return "", fmt.Errorf("unknown default directory kind %q", kind)
	}
	created, err := s.ensureDirLocked(p)
	if err != nil {
		return "", err
	}
	if created {
		if err = s.persistLocked(ctx); err != nil {
			return "", err
		}
		s.queueEventLocked(EventMkdir, p)
	}
	return p, nil
}

// SetDefaultDir overrides one of the default directory paths and creates
// the new location.
func (s *Service) SetDefaultDir(ctx context.Context, kind DirKind, path string) (err error) {
	defer func() { s.metrics.RecordOp("set_default_dir", err) }()
	if err = s.Init(ctx); err != nil {
		return err
	}
	p, err := paths.Normalize(path)
	if err != nil {
		return err
	}
	if paths.IsRoot(p) {
		return fmt.Errorf("%w: a default directory cannot be the root", ErrInvalidPath)
	}

	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case DirSave:
		s.conf.SavePath = p
	case DirData:
		s.conf.DataPath = p
	case DirDownload:
		s.conf.DownloadPath = p
	case DirLog:
		s.conf.LogPath = p
	default:
		return fmt.Errorf("unknown default directory kind %q", kind)
	}

	created, err := s.ensureDirLocked(p)
	if err != nil {
		return err
	}
	if err = s.persistLocked(ctx); err != nil {
		return err
	}
	if created {
		s.queueEventLocked(EventMkdir, p)
	}
	return nil
}

// Stats returns a copy of the current tree statistics.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if err := s.Init(ctx); err != nil {
		return Stats{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Stats(), nil
}

// RecentlyDeleted returns the tombstone log, newest last.
func (s *Service) RecentlyDeleted(ctx context.Context) ([]Tombstone, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Tombstone, len(s.tombstones))
	copy(out, s.tombstones)
	return out, nil
}

// IsNotFound reports whether err is a missing-path failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
