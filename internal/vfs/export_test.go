package vfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualmacros/vfs/internal/storage"
)

func TestExportTree(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	require.NoError(t, svc.WriteTextFile(ctx, "/VirtualMacros/a.iim", "macro a"))
	require.NoError(t, svc.WriteTextFile(ctx, "/VirtualData/rows.csv", "1,2,3"))

	b, err := svc.ExportTree(ctx)
	require.NoError(t, err)

	assert.False(t, b.ExportedAt.IsZero())
	assert.Equal(t, "/VirtualMacros", b.Config.SavePath)
	assert.Equal(t, map[string]string{
		"/VirtualMacros/a.iim":  "macro a",
		"/VirtualData/rows.csv": "1,2,3",
	}, b.Files)
	assert.Equal(t, int64(len("macro a")+len("1,2,3")), b.Stats.TotalSize)
}

func TestImportTreeReplacesContent(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t, nil)

	require.NoError(t, svc.WriteTextFile(ctx, "/VirtualMacros/stale.iim", "about to vanish"))

	require.NoError(t, svc.ImportTree(ctx, &Bundle{
		Files: map[string]string{"/VirtualMacros/new.iim": "hi"},
	}))

	got, err := svc.ReadTextFile(ctx, "/VirtualMacros/new.iim")
	require.NoError(t, err)
	assert.Equal(t, "hi", got)

	// Files absent from the bundle no longer exist, and their chunks are gone.
	exists, err := svc.Exists(ctx, "/VirtualMacros/stale.iim")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Len(t, chunkKeys(mem), 1)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.TotalSize)
}

func TestImportTreeAppliesConfig(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	require.NoError(t, svc.ImportTree(ctx, &Bundle{
		Config: Config{
			SavePath:     "/Macros",
			DataPath:     "/Data",
			DownloadPath: "/Downloads",
			LogPath:      "/Logs",
		},
		Files: map[string]string{"/Macros/x.iim": "x"},
	}))

	p, err := svc.DefaultDir(ctx, DirSave)
	require.NoError(t, err)
	assert.Equal(t, "/Macros", p)

	for _, dir := range []string{"/Macros", "/Data", "/Downloads", "/Logs"} {
		info, serr := svc.Stat(ctx, dir)
		require.NoError(t, serr)
		assert.True(t, info.IsDir, dir)
	}
}

func TestImportTreeEmitsImportEvent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)
	require.NoError(t, svc.Init(ctx))

	var kinds []EventKind
	unsub := svc.On(func(e Event) { kinds = append(kinds, e.Kind) })
	defer unsub()

	require.NoError(t, svc.ImportTree(ctx, &Bundle{Files: map[string]string{"/a.txt": "1"}}))
	assert.Equal(t, []EventKind{EventImport}, kinds)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, _ := newTestService(t, nil)

	require.NoError(t, src.WriteTextFile(ctx, "/VirtualMacros/one.iim", "first"))
	require.NoError(t, src.WriteTextFile(ctx, "/deep/nested/two.txt", "sécond ✓"))

	b, err := src.ExportTree(ctx)
	require.NoError(t, err)

	dst := New(storage.NewMemory(), testConfig())
	require.NoError(t, dst.ImportTree(ctx, b))

	got, err := dst.ReadTextFile(ctx, "/VirtualMacros/one.iim")
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	got, err = dst.ReadTextFile(ctx, "/deep/nested/two.txt")
	require.NoError(t, err)
	assert.Equal(t, "sécond ✓", got)

	srcStats, err := src.Stats(ctx)
	require.NoError(t, err)
	dstStats, err := dst.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, srcStats.TotalSize, dstStats.TotalSize)
}

func TestImportNilBundle(t *testing.T) {
	svc, _ := newTestService(t, nil)
	assert.Error(t, svc.ImportTree(context.Background(), nil))
}
