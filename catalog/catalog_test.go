package catalog

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"relstore/storage/cache"
	"relstore/storage/diskmgr"
	"relstore/types"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	dir := t.TempDir()
	disk := diskmgr.New()
	pool, err := cache.New(disk, 64)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close(); disk.CloseAll() })

	cat, err := New(dir, disk, pool)
	require.NoError(t, err)
	return cat
}

func studentCols() []types.ColMeta {
	return []types.ColMeta{
		{Name: "id", Type: types.TagInt32, Len: 4},
		{Name: "name", Type: types.TagString, Len: 8},
	}
}

func TestCreateOpenDropDB(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.CreateDB("d1"))
	err := cat.CreateDB("d1")
	require.Error(t, err)
	require.Equal(t, types.KindDatabaseExists, types.KindOf(err))

	require.NoError(t, cat.OpenDB("d1"))
	require.NoError(t, cat.CloseDB())

	require.NoError(t, cat.DropDB("d1"))
	err = cat.DropDB("d1")
	require.Error(t, err)
	require.Equal(t, types.KindDatabaseNotFound, types.KindOf(err))
}

// TestCreateDBWritesLogFile: spec §4.4/§6 — create_db produces a LOG file
// alongside catalog.json, and OpenDB makes it writable through the disk
// manager's log slot.
func TestCreateDBWritesLogFile(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.CreateDB("d1"))

	_, err := os.Stat(cat.logPath("d1"))
	require.NoError(t, err)

	require.NoError(t, cat.OpenDB("d1"))
	_, err = cat.disk.WriteLog([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, cat.CloseDB())
}

func TestCreateTableThenDropLeavesCatalogUnchanged(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.CreateDB("d1"))
	require.NoError(t, cat.OpenDB("d1"))

	before := len(cat.ShowTables())
	require.NoError(t, cat.CreateTable("students", studentCols(), nil))
	require.NoError(t, cat.DropTable("students"))
	require.Len(t, cat.ShowTables(), before)
}

func TestCloseOpenRoundTripPreservesSchemaAndRows(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.CreateDB("d1"))
	require.NoError(t, cat.OpenDB("d1"))
	require.NoError(t, cat.CreateTable("students", studentCols(), nil))

	tm, hf, _, err := cat.Table("students")
	require.NoError(t, err)
	idCol, _ := tm.GetCol("id")
	nameCol, _ := tm.GetCol("name")
	rec := types.NewRecord(tm.RecordSize())
	require.NoError(t, rec.Set(idCol, types.IntValue(1)))
	require.NoError(t, rec.Set(nameCol, types.StringValue("alice")))
	rid, err := hf.Insert(rec.Data, nil)
	require.NoError(t, err)

	require.NoError(t, cat.CloseDB())
	require.NoError(t, cat.OpenDB("d1"))

	tm2, hf2, _, err := cat.Table("students")
	require.NoError(t, err)
	require.Equal(t, tm.Cols, tm2.Cols)

	got, err := hf2.Get(rid, nil)
	require.NoError(t, err)
	require.Equal(t, rec.Data, got.Data)
}

// TestLocksSharedAcrossOpenTables: every table opened by the same catalog
// shares one lock manager, since fileID already scopes resources uniquely.
func TestLocksSharedAcrossOpenTables(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.CreateDB("d1"))
	require.NoError(t, cat.OpenDB("d1"))
	require.NoError(t, cat.CreateTable("students", studentCols(), nil))
	require.NoError(t, cat.CreateTable("courses", studentCols(), nil))

	require.NotNil(t, cat.Locks())
	require.Same(t, cat.Locks(), cat.Locks())
}

func TestCreateTableWithoutOpenDBFails(t *testing.T) {
	cat := newTestCatalog(t)
	err := cat.CreateTable("students", studentCols(), nil)
	require.Error(t, err)
	require.Equal(t, types.KindDatabaseNotFound, types.KindOf(err))
}

func TestTableNotFound(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.CreateDB("d1"))
	require.NoError(t, cat.OpenDB("d1"))
	_, _, _, err := cat.Table("missing")
	require.Error(t, err)
	require.Equal(t, types.KindTableNotFound, types.KindOf(err))
}
