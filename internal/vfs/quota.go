package vfs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/virtualmacros/vfs/internal/infrastructure/logging"
	"github.com/virtualmacros/vfs/internal/infrastructure/monitoring"
)

// QuotaManager enforces the soft total-size cap through least-recently-
// accessed eviction. Eviction runs synchronously on the caller that
// needed the space.
type QuotaManager struct {
	maxStorage int64

	// evict removes one path through the full recursive-remove routine
	// and reports the bytes it freed.
	evict func(ctx context.Context, path string) (int64, error)
	// persist writes the metadata snapshot after an eviction batch so the
	// freed chunks can never be referenced by a stale snapshot.
	persist func(ctx context.Context) error

	log     *logging.Logger
	metrics *monitoring.Metrics
}

// NewQuotaManager creates a quota manager. maxStorage <= 0 disables the cap.
func NewQuotaManager(
	maxStorage int64,
	evict func(ctx context.Context, path string) (int64, error),
	persist func(ctx context.Context) error,
	log *logging.Logger,
	metrics *monitoring.Metrics,
) *QuotaManager {
	return &QuotaManager{
		maxStorage: maxStorage,
		evict:      evict,
		persist:    persist,
		log:        log,
		metrics:    metrics,
	}
}

// Check verifies that adding delta bytes keeps the tree within the cap,
// running one cleanup pass if not. If the prospective total still exceeds
// the cap after cleanup, the caller's write must not proceed.
func (q *QuotaManager) Check(ctx context.Context, t *Tree, delta int64) error {
	if q.maxStorage <= 0 || delta <= 0 {
		return nil
	}
	if t.TotalSize()+delta <= q.maxStorage {
		return nil
	}

	q.cleanupOldFiles(ctx, t, delta)

	if t.TotalSize()+delta > q.maxStorage {
		return fmt.Errorf("%w: %d bytes needed, %d of %d in use",
			ErrQuotaExceeded, delta, t.TotalSize(), q.maxStorage)
	}
	return nil
}

// cleanupOldFiles removes least-recently-accessed files until required
// bytes are free or a batch target of max(required, 20% of cap) has been
// freed. The 20% floor keeps the very next write from triggering another
// pass.
func (q *QuotaManager) cleanupOldFiles(ctx context.Context, t *Tree, required int64) {
	target := required
	if floor := q.maxStorage / 5; floor > target {
		target = floor
	}

	var freed int64
	for _, path := range t.FilesByLastAccess() {
		if freed >= target {
			break
		}
		n, err := q.evict(ctx, path)
		if err != nil {
			q.log.Warn("eviction failed", zap.String("path", path), zap.Error(err))
			continue
		}
		freed += n
		q.metrics.RecordEviction(n)
		q.log.Info("evicted file to reclaim space",
			zap.String("path", path), zap.Int64("freed", n))
	}

	if freed > 0 {
		if err := q.persist(ctx); err != nil {
			q.log.Error("persist after eviction failed", zap.Error(err))
		}
	}
	if freed < required {
		q.log.Warn("cleanup could not free required space",
			zap.Int64("required", required), zap.Int64("freed", freed))
	}
}
