package diskmgr

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"relstore/storage/page"
	"relstore/types"
)

func TestCreateOpenWriteReadPage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.rec")

	m := New()
	require.NoError(t, m.CreateFile(path))

	fileID, err := m.OpenFile(path)
	require.NoError(t, err)
	defer m.CloseAll()

	pageNo, err := m.AllocatePage(fileID)
	require.NoError(t, err)
	require.Equal(t, int32(0), pageNo)

	pg := page.New(fileID, pageNo)
	for i := range pg.Data {
		pg.Data[i] = byte(i % 251)
	}
	require.NoError(t, m.WritePage(pg))

	got, err := m.ReadPage(fileID, pageNo)
	require.NoError(t, err)
	require.Equal(t, pg.Data, got.Data)
}

func TestReadPageOutOfRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.rec")
	m := New()
	require.NoError(t, m.CreateFile(path))
	fileID, err := m.OpenFile(path)
	require.NoError(t, err)
	defer m.CloseAll()

	_, err = m.ReadPage(fileID, 0)
	require.Error(t, err)
	require.Equal(t, types.KindPageNotExist, types.KindOf(err))
}

func TestCreateFileAlreadyExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.rec")
	m := New()
	require.NoError(t, m.CreateFile(path))
	err := m.CreateFile(path)
	require.Error(t, err)
	require.Equal(t, types.KindFileExists, types.KindOf(err))
}

func TestDestroyFileStillOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.rec")
	m := New()
	require.NoError(t, m.CreateFile(path))
	_, err := m.OpenFile(path)
	require.NoError(t, err)
	defer m.CloseAll()

	err = m.DestroyFile(path)
	require.Error(t, err)
	require.Equal(t, types.KindFileStillOpen, types.KindOf(err))
}

func TestOpenFileIdempotentByPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.rec")
	m := New()
	require.NoError(t, m.CreateFile(path))
	id1, err := m.OpenFile(path)
	require.NoError(t, err)
	id2, err := m.OpenFile(path)
	require.NoError(t, err)
	require.Equal(t, id1, id2)
	defer m.CloseAll()
}

func TestLogAppendReadSync(t *testing.T) {
	dir := t.TempDir()
	m := New()
	require.NoError(t, m.OpenLog(filepath.Join(dir, "wal.log")))
	defer m.CloseAll()

	off1, err := m.WriteLog([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, int64(0), off1)

	off2, err := m.WriteLog([]byte("world"))
	require.NoError(t, err)
	require.Equal(t, int64(5), off2)

	require.NoError(t, m.SyncLog())

	got, err := m.ReadLog(off2, 5)
	require.NoError(t, err)
	require.Equal(t, "world", string(got))
}
