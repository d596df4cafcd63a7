package heap

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"relstore/concurrency/lock"
	"relstore/storage/cache"
	"relstore/storage/diskmgr"
	"relstore/types"
)

func newTestFile(t *testing.T, recordSize int) *File {
	t.Helper()
	dir := t.TempDir()
	disk := diskmgr.New()
	pool, err := cache.New(disk, 64)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close(); disk.CloseAll() })

	f, err := Create(disk, pool, filepath.Join(dir, "t.rec"), recordSize)
	require.NoError(t, err)
	return f
}

func TestInsertGetRoundTrip(t *testing.T) {
	f := newTestFile(t, 8)
	rid, err := f.Insert([]byte("ab......"), nil)
	require.NoError(t, err)
	require.Equal(t, FirstRecordPageNo, rid.PageNo)

	rec, err := f.Get(rid, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("ab......"), rec.Data)
}

func TestUpdateThenGetReflectsUpdate(t *testing.T) {
	f := newTestFile(t, 4)
	rid, err := f.Insert([]byte("abcd"), nil)
	require.NoError(t, err)

	require.NoError(t, f.Update(rid, []byte("wxyz"), nil))
	rec, err := f.Get(rid, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("wxyz"), rec.Data)
}

func TestGetAfterDeleteNotFound(t *testing.T) {
	f := newTestFile(t, 4)
	rid, err := f.Insert([]byte("abcd"), nil)
	require.NoError(t, err)
	require.NoError(t, f.Delete(rid, nil))

	_, err = f.Get(rid, nil)
	require.Error(t, err)
	require.Equal(t, types.KindRecordNotFound, types.KindOf(err))
}

func TestDeleteTwiceNotFound(t *testing.T) {
	f := newTestFile(t, 4)
	rid, err := f.Insert([]byte("abcd"), nil)
	require.NoError(t, err)
	require.NoError(t, f.Delete(rid, nil))

	err = f.Delete(rid, nil)
	require.Error(t, err)
	require.Equal(t, types.KindRecordNotFound, types.KindOf(err))
}

func TestInsertAtOccupiedSlotFails(t *testing.T) {
	f := newTestFile(t, 4)
	rid, err := f.Insert([]byte("abcd"), nil)
	require.NoError(t, err)

	err = f.InsertAt(rid, []byte("wxyz"), nil)
	require.Error(t, err)
	require.Equal(t, types.KindSlotOccupied, types.KindOf(err))
}

func TestInsertAtFreeSlotSucceeds(t *testing.T) {
	f := newTestFile(t, 4)
	rid, err := f.Insert([]byte("abcd"), nil)
	require.NoError(t, err)
	require.NoError(t, f.Delete(rid, nil))

	require.NoError(t, f.InsertAt(rid, []byte("wxyz"), nil))
	rec, err := f.Get(rid, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("wxyz"), rec.Data)
}

// TestFillPageThenSpill: inserting exactly N records fills page 1; record
// N+1 allocates page 2 (boundary behavior, spec.md §8).
func TestFillPageThenSpill(t *testing.T) {
	f := newTestFile(t, 4)
	n := int(f.hdr.NumRecsPerPage)
	require.Greater(t, n, 0)

	var lastRid types.Rid
	for i := 0; i < n; i++ {
		rid, err := f.Insert([]byte("aaaa"), nil)
		require.NoError(t, err)
		require.Equal(t, FirstRecordPageNo, rid.PageNo)
		lastRid = rid
	}
	_ = lastRid

	spill, err := f.Insert([]byte("bbbb"), nil)
	require.NoError(t, err)
	require.Equal(t, FirstRecordPageNo+1, spill.PageNo)
}

// TestFreeListReuseAfterFullPageDelete: deleting a record on a full page
// pushes it back onto the free list; the next insert reuses it (S2).
func TestFreeListReuseAfterFullPageDelete(t *testing.T) {
	f := newTestFile(t, 4)
	n := int(f.hdr.NumRecsPerPage)
	require.GreaterOrEqual(t, n, 2)

	rids := make([]types.Rid, 0, n)
	for i := 0; i < n; i++ {
		rid, err := f.Insert([]byte("aaaa"), nil)
		require.NoError(t, err)
		rids = append(rids, rid)
	}
	// page 1 is now full and unlinked from the free list.
	require.NoError(t, f.Delete(rids[1], nil))

	reused, err := f.Insert([]byte("bbbb"), nil)
	require.NoError(t, err)
	require.Equal(t, FirstRecordPageNo, reused.PageNo)
	require.Equal(t, rids[1].SlotNo, reused.SlotNo)
}

func TestScanEmptyFileIsEndImmediately(t *testing.T) {
	f := newTestFile(t, 4)
	s := NewScan(f, nil)
	require.NoError(t, s.Begin())
	require.True(t, s.IsEnd())
}

// TestScanVisitsLiveRecordsOnce: S1 — insert two records, scan yields both
// exactly once, get-by-rid reproduces the inserted payload byte for byte.
func TestScanVisitsLiveRecordsOnce(t *testing.T) {
	f := newTestFile(t, 4)
	r1, err := f.Insert([]byte("1ab\x00"), nil)
	require.NoError(t, err)
	r2, err := f.Insert([]byte("2cd\x00"), nil)
	require.NoError(t, err)

	s := NewScan(f, nil)
	require.NoError(t, s.Begin())
	seen := map[types.Rid][]byte{}
	for !s.IsEnd() {
		rec, err := s.Record()
		require.NoError(t, err)
		seen[s.Rid()] = append([]byte{}, rec.Data...)
		require.NoError(t, s.Advance())
	}
	require.Len(t, seen, 2)
	require.Equal(t, []byte("1ab\x00"), seen[r1])
	require.Equal(t, []byte("2cd\x00"), seen[r2])
}

func TestRecordSizeConstantOverLifetime(t *testing.T) {
	f := newTestFile(t, 8)
	before := f.RecordSize()
	_, err := f.Insert([]byte("12345678"), nil)
	require.NoError(t, err)
	require.Equal(t, before, f.RecordSize())
}

// TestGetWithLockCtxAcquiresAndReleasesSharedLock: a supplied *lock.Ctx
// takes and drops the record's shared lock around Get, leaving nothing
// held once the call returns.
func TestGetWithLockCtxAcquiresAndReleasesSharedLock(t *testing.T) {
	f := newTestFile(t, 4)
	rid, err := f.Insert([]byte("abcd"), nil)
	require.NoError(t, err)

	locks := lock.NewManager()
	lc := &lock.Ctx{TxnID: 1, Locks: locks}
	_, err = f.Get(rid, lc)
	require.NoError(t, err)

	// A second, unrelated transaction can still take the same record's
	// exclusive lock immediately — proof the first Get released its
	// shared hold rather than leaking it.
	acquired := make(chan struct{})
	go func() {
		locks.LockExclusiveOnRecord(2, f.fileID, rid)
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("exclusive lock never granted — Get's shared lock leaked")
	}
	locks.UnlockRecord(2, f.fileID, rid)
}

// TestInsertWithLockCtxTakesTableLock: Insert takes an exclusive
// table-level lock, so a concurrent insert on the same file blocks until
// the first completes.
func TestInsertWithLockCtxTakesTableLock(t *testing.T) {
	f := newTestFile(t, 4)
	locks := lock.NewManager()

	locks.LockExclusiveOnTable(1, f.fileID)
	done := make(chan struct{})
	go func() {
		lc := &lock.Ctx{TxnID: 2, Locks: locks}
		_, err := f.Insert([]byte("abcd"), lc)
		require.NoError(t, err)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("insert proceeded while the table lock was held by another txn")
	case <-time.After(50 * time.Millisecond):
	}

	locks.UnlockTable(1, f.fileID)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("insert never proceeded after the table lock was released")
	}
}
