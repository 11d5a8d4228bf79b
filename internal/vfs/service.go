package vfs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/virtualmacros/vfs/internal/infrastructure/config"
	"github.com/virtualmacros/vfs/internal/infrastructure/logging"
	"github.com/virtualmacros/vfs/internal/infrastructure/monitoring"
	"github.com/virtualmacros/vfs/internal/shared/id"
	"github.com/virtualmacros/vfs/internal/shared/paths"
	"github.com/virtualmacros/vfs/internal/storage"
)

// Fallback default-directory paths, used when configuration supplies
// nothing usable.
const (
	defaultSaveDir     = "/VirtualMacros"
	defaultDataDir     = "/VirtualData"
	defaultDownloadDir = "/VirtualDownloads"
	defaultLogDir      = "/VirtualLogs"
)

// Service is the virtual filesystem façade. All public operations ensure
// initialization first, normalize their path arguments, mutate the
// in-memory tree, persist the full metadata snapshot, and finally emit a
// change event.
type Service struct {
	backend  storage.Backend
	chunks   *ChunkStore
	notifier *Notifier
	quota    *QuotaManager
	migrator *Migrator
	log      *logging.Logger
	metrics  *monitoring.Metrics
	idGen    *id.Generator

	maxFileSize  int64
	tombstoneTTL time.Duration
	defaults     Config

	mu         sync.Mutex
	tree       *Tree
	conf       Config
	tombstones []Tombstone
	pending    []Event

	initGroup   singleflight.Group
	initialized atomic.Bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *logging.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithMetrics wires a metrics collector.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithIDGenerator overrides the chunk id generator. Tests use this to get
// deterministic ids.
func WithIDGenerator(g *id.Generator) Option {
	return func(s *Service) { s.idGen = g }
}

// New creates a service persisting to backend. The service is usable
// immediately; loading happens lazily on the first operation.
func New(backend storage.Backend, cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Service{
		backend:      backend,
		log:          logging.NewNop(),
		maxFileSize:  cfg.Quota.MaxFileSize,
		tombstoneTTL: cfg.Quota.TombstoneTTL,
	}
	s.defaults = normalizeConfig(Config{
		SavePath:     cfg.Dirs.Save,
		DataPath:     cfg.Dirs.Data,
		DownloadPath: cfg.Dirs.Download,
		LogPath:      cfg.Dirs.Log,
	})

	for _, opt := range opts {
		opt(s)
	}

	s.chunks = NewChunkStore(backend, s.idGen, cfg.Storage.ChunkSize, s.metrics)
	s.notifier = NewNotifier()
	s.migrator = NewMigrator(backend, s.chunks, s.defaults, s.log)
	s.quota = NewQuotaManager(
		cfg.Quota.MaxStorageSize,
		func(ctx context.Context, path string) (int64, error) {
			freed, err := s.removeSubtreeLocked(ctx, path)
			if err == nil {
				s.queueEventLocked(EventDelete, path)
			}
			return freed, err
		},
		s.persistLocked,
		s.log,
		s.metrics,
	)

	s.tree = NewTree()
	s.conf = s.defaults
	return s
}

// Init loads state from the backing store, migrating the legacy format if
// present, or builds the default structure. It is idempotent and safe for
// concurrent callers: the load runs at most once, and callers arriving
// while it is in flight share its outcome. On load failure the service
// falls back to the default structure rather than becoming unusable.
func (s *Service) Init(ctx context.Context) error {
	if s.initialized.Load() {
		return nil
	}
	_, err, _ := s.initGroup.Do("init", func() (interface{}, error) {
		if s.initialized.Load() {
			return nil, nil
		}
		if err := s.load(ctx); err != nil {
			s.log.Warn("load failed, falling back to default structure", zap.Error(err))
			s.mu.Lock()
			s.buildDefaultLocked()
			if perr := s.persistLocked(ctx); perr != nil {
				s.log.Error("persist of default structure failed", zap.Error(perr))
			}
			s.mu.Unlock()
		}
		s.initialized.Store(true)
		return nil, nil
	})
	return err
}

// On subscribes to every change event; the returned func unsubscribes.
func (s *Service) On(h Handler) func() {
	return s.notifier.On(h)
}

// WatchPath subscribes to change events at or below the given path.
func (s *Service) WatchPath(path string, h Handler) (func(), error) {
	return s.notifier.WatchPath(path, h)
}

// ----------------------------------------------------------------------
// Lifecycle internals
// ----------------------------------------------------------------------

func (s *Service) load(ctx context.Context) error {
	raw, err := s.backend.Get(ctx, []string{keyTree, keyConfig, keyStats, keyDeleted})
	if err != nil {
		return backendErr("load", err)
	}

	if blob, ok := raw[keyTree]; ok {
		return s.restore(ctx, raw, blob)
	}

	hasLegacy, err := s.migrator.Detect(ctx)
	if err != nil {
		return err
	}
	if hasLegacy {
		tree, conf, err := s.migrator.Run(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.tree, s.conf, s.tombstones = tree, conf, nil
		err = s.persistLocked(ctx)
		s.mu.Unlock()
		if err != nil {
			return err
		}
		// Legacy keys go away only once the new structure is durable.
		if err := s.migrator.DeleteLegacy(ctx); err != nil {
			s.log.Warn("legacy cleanup failed", zap.Error(err))
		}
		s.metrics.RecordMigration()
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.buildDefaultLocked()
	return s.persistLocked(ctx)
}

func (s *Service) restore(ctx context.Context, raw map[string][]byte, treeBlob []byte) error {
	entries := make(map[string]Entry)
	if err := sonic.Unmarshal(treeBlob, &entries); err != nil {
		return fmt.Errorf("decode tree snapshot: %w", err)
	}

	tree := &Tree{
		entries: entries,
		stats:   Stats{LastAccess: make(map[string]time.Time)},
	}
	if _, ok := entries[paths.Root]; !ok {
		entries[paths.Root] = DirEntry(time.Now())
	}

	if blob, ok := raw[keyStats]; ok {
		var st Stats
		if err := sonic.Unmarshal(blob, &st); err != nil {
			s.log.Warn("stats snapshot unreadable, recomputing", zap.Error(err))
			tree.recomputeStats()
		} else {
			if st.LastAccess == nil {
				st.LastAccess = make(map[string]time.Time)
			}
			tree.stats = st
		}
	} else {
		s.log.Warn("stats snapshot missing, recomputing")
		tree.recomputeStats()
	}

	conf := s.defaults
	if blob, ok := raw[keyConfig]; ok {
		var stored Config
		if err := sonic.Unmarshal(blob, &stored); err != nil {
			s.log.Warn("config snapshot unreadable, keeping defaults", zap.Error(err))
		} else if stored != (Config{}) {
			conf = normalizeConfig(stored)
		}
	}

	var tombs []Tombstone
	if blob, ok := raw[keyDeleted]; ok {
		if err := sonic.Unmarshal(blob, &tombs); err != nil {
			s.log.Warn("tombstone snapshot unreadable, dropping", zap.Error(err))
			tombs = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree, s.conf, s.tombstones = tree, conf, tombs

	if purged := s.purgeTombstonesLocked(); purged > 0 {
		s.metrics.RecordTombstonePurge(purged)
		if err := s.persistLocked(ctx); err != nil {
			s.log.Warn("persist after tombstone purge failed", zap.Error(err))
		}
	}
	return nil
}

// buildDefaultLocked resets to the default structure: the root plus the
// four configured default directories.
func (s *Service) buildDefaultLocked() {
	s.tree = NewTree()
	s.conf = s.defaults
	s.tombstones = nil
	for _, p := range s.conf.Paths() {
		if _, err := s.ensureDirLocked(p); err != nil {
			s.log.Warn("default directory unusable", zap.String("path", p), zap.Error(err))
		}
	}
}

// purgeTombstonesLocked drops tombstones older than the TTL and returns
// how many were removed.
func (s *Service) purgeTombstonesLocked() int {
	if s.tombstoneTTL <= 0 || len(s.tombstones) == 0 {
		return 0
	}
	cutoff := time.Now().Add(-s.tombstoneTTL)
	kept := s.tombstones[:0]
	for _, t := range s.tombstones {
		if t.RemovedAt.After(cutoff) {
			kept = append(kept, t)
		}
	}
	purged := len(s.tombstones) - len(kept)
	s.tombstones = kept
	return purged
}

// persistLocked rewrites the full metadata snapshot: tree, config, stats,
// tombstones. Chunk bodies are already durable by the time this runs.
func (s *Service) persistLocked(ctx context.Context) error {
	treeBlob, err := sonic.Marshal(s.tree.entries)
	if err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	confBlob, err := sonic.Marshal(s.conf)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	statsBlob, err := sonic.Marshal(s.tree.stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	tombs := s.tombstones
	if tombs == nil {
		tombs = []Tombstone{}
	}
	deletedBlob, err := sonic.Marshal(tombs)
	if err != nil {
		return fmt.Errorf("encode tombstones: %w", err)
	}

	err = s.backend.Set(ctx, map[string][]byte{
		keyTree:    treeBlob,
		keyConfig:  confBlob,
		keyStats:   statsBlob,
		keyDeleted: deletedBlob,
	})
	return backendErr("persist", err)
}

// ----------------------------------------------------------------------
// Event plumbing
// ----------------------------------------------------------------------

func (s *Service) queueEventLocked(kind EventKind, path string) {
	s.pending = append(s.pending, Event{Kind: kind, Path: path, Time: time.Now()})
}

// flushEvents delivers queued events outside the state lock, so handlers
// may call back into the service.
func (s *Service) flushEvents() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, e := range pending {
		s.notifier.Emit(e)
	}
}

// ----------------------------------------------------------------------
// Shared mutation internals (callers hold s.mu)
// ----------------------------------------------------------------------

// ensureAncestorsLocked creates every missing ancestor directory of path.
// An ancestor occupied by a file fails the whole operation.
func (s *Service) ensureAncestorsLocked(path string) error {
	for _, anc := range paths.Ancestors(path) {
		if entry, ok := s.tree.Get(anc); ok {
			if !entry.IsDir() {
				return fmt.Errorf("%w: ancestor %s is a file", ErrNotADirectory, anc)
			}
			continue
		}
		s.tree.Set(anc, DirEntry(time.Now()))
	}
	return nil
}

// ensureDirLocked makes path a directory, creating missing ancestors.
// Reports whether anything new was created.
func (s *Service) ensureDirLocked(path string) (bool, error) {
	if paths.IsRoot(path) {
		return false, nil
	}
	if err := s.ensureAncestorsLocked(path); err != nil {
		return false, err
	}
	if entry, ok := s.tree.Get(path); ok {
		if !entry.IsDir() {
			return false, fmt.Errorf("%w: %s is a file", ErrTypeConflict, path)
		}
		return false, nil
	}
	s.tree.Set(path, DirEntry(time.Now()))
	return true, nil
}

// writeFileLocked is the single write path: size cap, ancestor checks,
// quota enforcement, chunk write, entry replacement. Does not persist.
// Ancestor directories come into being only after every check has
// passed, so a rejected write leaves no trace in the tree.
func (s *Service) writeFileLocked(ctx context.Context, path string, data []byte) error {
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, cap is %d",
			ErrFileTooLarge, path, len(data), s.maxFileSize)
	}
	if paths.IsRoot(path) {
		return fmt.Errorf("%w: cannot write to the root directory", ErrTypeConflict)
	}
	for _, anc := range paths.Ancestors(path) {
		if entry, ok := s.tree.Get(anc); ok && !entry.IsDir() {
			return fmt.Errorf("%w: ancestor %s is a file", ErrNotADirectory, anc)
		}
	}

	var oldSize int64
	if old, ok := s.tree.Get(path); ok {
		if old.IsDir() {
			return fmt.Errorf("%w: %s is a directory", ErrTypeConflict, path)
		}
		oldSize = old.Size
	}

	delta := int64(len(data)) - oldSize
	if err := s.quota.Check(ctx, s.tree, delta); err != nil {
		return err
	}

	chunkIDs, err := s.chunks.Write(ctx, data)
	if err != nil {
		return err
	}
	if err := s.ensureAncestorsLocked(path); err != nil {
		return err
	}
	// Re-read: eviction inside the quota check may have removed the old
	// version already.
	if old, ok := s.tree.Get(path); ok && !old.IsDir() {
		if err := s.chunks.Remove(ctx, old.ChunkIDs); err != nil {
			s.log.Warn("failed to free replaced chunks",
				zap.String("path", path), zap.Error(err))
		}
	}

	s.tree.Set(path, FileEntry(int64(len(data)), chunkIDs, time.Now()))
	return nil
}

// removeSubtreeLocked removes path and, for directories, every descendant
// in deepest-first then longest-path-first order, so no directory ever
// goes before its remaining children. Returns the file bytes freed.
func (s *Service) removeSubtreeLocked(ctx context.Context, path string) (int64, error) {
	entry, ok := s.tree.Get(path)
	if !ok {
		return 0, nil
	}

	var freed int64
	if entry.IsDir() {
		desc := s.tree.ChildrenOf(path)
		sort.Slice(desc, func(i, j int) bool {
			di, dj := paths.Depth(desc[i]), paths.Depth(desc[j])
			if di != dj {
				return di > dj
			}
			if len(desc[i]) != len(desc[j]) {
				return len(desc[i]) > len(desc[j])
			}
			return desc[i] < desc[j]
		})
		for _, d := range desc {
			freed += s.removeOneLocked(ctx, d)
		}
	}
	freed += s.removeOneLocked(ctx, path)
	return freed, nil
}

// removeOneLocked removes a single entry, freeing its chunks and
// appending exactly one tombstone.
func (s *Service) removeOneLocked(ctx context.Context, path string) int64 {
	entry, ok := s.tree.Get(path)
	if !ok {
		return 0
	}
	var freed int64
	if entry.Kind == KindFile {
		if err := s.chunks.Remove(ctx, entry.ChunkIDs); err != nil {
			s.log.Warn("failed to free chunks of removed file",
				zap.String("path", path), zap.Error(err))
		}
		freed = entry.Size
	}
	s.tree.Delete(path)
	s.tombstones = append(s.tombstones, Tombstone{Path: path, RemovedAt: time.Now()})
	return freed
}

// isDefaultDirLocked reports whether path is one of the configured
// default directories.
func (s *Service) isDefaultDirLocked(path string) bool {
	for _, p := range s.conf.Paths() {
		if p == path {
			return true
		}
	}
	return false
}

// normalizeConfig canonicalizes all four directory paths, substituting
// built-in fallbacks for anything unusable.
func normalizeConfig(c Config) Config {
	norm := func(p, fallback string) string {
		n, err := paths.Normalize(p)
		if err != nil || paths.IsRoot(n) {
			return fallback
		}
		return n
	}
	return Config{
		SavePath:     norm(c.SavePath, defaultSaveDir),
		DataPath:     norm(c.DataPath, defaultDataDir),
		DownloadPath: norm(c.DownloadPath, defaultDownloadDir),
		LogPath:      norm(c.LogPath, defaultLogDir),
	}
}
