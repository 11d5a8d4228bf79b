package vfs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualmacros/vfs/internal/infrastructure/logging"
)

func newQuotaFixture(maxStorage int64) (*QuotaManager, *Tree, *[]string) {
	tr := NewTree()
	evicted := &[]string{}

	qm := NewQuotaManager(
		maxStorage,
		func(ctx context.Context, path string) (int64, error) {
			entry, _ := tr.Get(path)
			tr.Delete(path)
			*evicted = append(*evicted, path)
			return entry.Size, nil
		},
		func(ctx context.Context) error { return nil },
		logging.NewNop(),
		nil,
	)
	return qm, tr, evicted
}

func seedFiles(tr *Tree, count int, size int64) {
	base := time.Now().Add(-time.Duration(count) * time.Minute)
	for i := 0; i < count; i++ {
		path := fmt.Sprintf("/f%02d", i)
		tr.Set(path, FileEntry(size, nil, time.Now()))
		// Older index, older access.
		tr.stats.LastAccess[path] = base.Add(time.Duration(i) * time.Minute)
	}
}

func TestQuotaCheckWithinCap(t *testing.T) {
	qm, tr, evicted := newQuotaFixture(100)
	seedFiles(tr, 5, 10)

	require.NoError(t, qm.Check(context.Background(), tr, 50))
	assert.Empty(t, *evicted)
}

func TestQuotaCheckUnlimited(t *testing.T) {
	qm, tr, evicted := newQuotaFixture(0)
	seedFiles(tr, 2, 1000)

	require.NoError(t, qm.Check(context.Background(), tr, 1<<30))
	assert.Empty(t, *evicted)
}

func TestQuotaCleanupHonorsBatchFloor(t *testing.T) {
	qm, tr, evicted := newQuotaFixture(100)
	seedFiles(tr, 10, 10) // exactly at cap

	// Only 5 bytes are needed, but the batch target is 20% of the cap,
	// so two 10-byte files go instead of one.
	require.NoError(t, qm.Check(context.Background(), tr, 5))
	assert.Equal(t, []string{"/f00", "/f01"}, *evicted)
	assert.Equal(t, int64(80), tr.TotalSize())
}

func TestQuotaCleanupEvictsOldestFirst(t *testing.T) {
	qm, tr, evicted := newQuotaFixture(100)
	seedFiles(tr, 4, 25) // at cap

	require.NoError(t, qm.Check(context.Background(), tr, 30))
	assert.Equal(t, []string{"/f00", "/f01"}, *evicted)
}

func TestQuotaExceededAfterCleanup(t *testing.T) {
	qm, tr, evicted := newQuotaFixture(100)
	seedFiles(tr, 2, 30)

	err := qm.Check(context.Background(), tr, 500)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	// Cleanup still ran and emptied the tree of files.
	assert.Len(t, *evicted, 2)
}

func TestQuotaNegativeDeltaNeverEvicts(t *testing.T) {
	qm, tr, evicted := newQuotaFixture(10)
	seedFiles(tr, 2, 50) // far over cap already

	require.NoError(t, qm.Check(context.Background(), tr, -20))
	assert.Empty(t, *evicted)
}
