package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"relstore/storage/diskmgr"
)

func newTestPool(t *testing.T) (*Pool, *diskmgr.Manager, uint32) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "t.rec")
	disk := diskmgr.New()
	require.NoError(t, disk.CreateFile(path))
	fileID, err := disk.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { disk.CloseAll() })

	pool, err := New(disk, 16)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool, disk, fileID
}

func TestNewPageIsPinnedAndDirty(t *testing.T) {
	pool, _, fileID := newTestPool(t)

	pg, err := pool.NewPage(fileID)
	require.NoError(t, err)
	require.True(t, pg.IsDirty)
	require.Equal(t, int32(1), pg.PinCount)
}

func TestUnpinThenFetchHitsPinnedOrCold(t *testing.T) {
	pool, _, fileID := newTestPool(t)

	pg, err := pool.NewPage(fileID)
	require.NoError(t, err)
	copy(pg.Data, []byte("payload"))

	require.NoError(t, pool.UnpinPage(pg.ID, true))
	pool.cold.Wait()

	got, err := pool.FetchPage(fileID, pg.PageNo)
	require.NoError(t, err)
	require.Equal(t, byte('p'), got.Data[0])
}

func TestFlushAllWritesDirtyPages(t *testing.T) {
	pool, disk, fileID := newTestPool(t)

	pg, err := pool.NewPage(fileID)
	require.NoError(t, err)
	copy(pg.Data, []byte("dirty"))

	require.NoError(t, pool.FlushAll())

	onDisk, err := disk.ReadPage(fileID, pg.PageNo)
	require.NoError(t, err)
	require.Equal(t, byte('d'), onDisk.Data[0])
}

func TestUnpinUnknownPage(t *testing.T) {
	pool, _, _ := newTestPool(t)
	err := pool.UnpinPage(999, false)
	require.Error(t, err)
}
