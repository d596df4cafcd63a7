// Package heap implements the record file / heap component: fixed-width
// record storage over bitmap-based slotted pages, grounded on the
// reference record manager's file-header-on-page-0 layout.
package heap

import (
	"encoding/binary"

	"github.com/rs/zerolog/log"

	"relstore/concurrency/lock"
	"relstore/storage/cache"
	"relstore/storage/diskmgr"
	"relstore/storage/page"
	"relstore/types"
)

// FirstRecordPageNo is the first page usable for records; page 0 holds
// only the file header.
const FirstRecordPageNo int32 = 1

// File-header byte layout, stored in page 0:
const (
	hdrOffRecordSize      = 0
	hdrOffNumRecsPerPage  = 4
	hdrOffBitmapSize      = 8
	hdrOffNumPages        = 12
	hdrOffFirstFreePageNo = 16
	hdrSize               = 20
)

// FileHeader mirrors the reference file_hdr_: record size, slots per page
// (N), bitmap size in bytes (B), total page count, and the head of the
// intrusive free-page list. N and B are fixed for the life of the file,
// chosen at create time so that hdrSize-worth of page-0 space and
// HeapHdrSize+B+N*recordSize all fit within one page.
type FileHeader struct {
	RecordSize      int32
	NumRecsPerPage  int32
	BitmapSize      int32
	NumPages        int32
	FirstFreePageNo int32
}

func decodeHeader(buf []byte) FileHeader {
	return FileHeader{
		RecordSize:      int32(binary.LittleEndian.Uint32(buf[hdrOffRecordSize:])),
		NumRecsPerPage:  int32(binary.LittleEndian.Uint32(buf[hdrOffNumRecsPerPage:])),
		BitmapSize:      int32(binary.LittleEndian.Uint32(buf[hdrOffBitmapSize:])),
		NumPages:        int32(binary.LittleEndian.Uint32(buf[hdrOffNumPages:])),
		FirstFreePageNo: int32(binary.LittleEndian.Uint32(buf[hdrOffFirstFreePageNo:])),
	}
}

func encodeHeader(buf []byte, h FileHeader) {
	binary.LittleEndian.PutUint32(buf[hdrOffRecordSize:], uint32(h.RecordSize))
	binary.LittleEndian.PutUint32(buf[hdrOffNumRecsPerPage:], uint32(h.NumRecsPerPage))
	binary.LittleEndian.PutUint32(buf[hdrOffBitmapSize:], uint32(h.BitmapSize))
	binary.LittleEndian.PutUint32(buf[hdrOffNumPages:], uint32(h.NumPages))
	binary.LittleEndian.PutUint32(buf[hdrOffFirstFreePageNo:], uint32(h.FirstFreePageNo))
}

// layoutFor picks N (records per page) and B (bitmap bytes) so that a
// heap page header, its bitmap, and N records of recordSize bytes all fit
// in one page — mirroring the reference disk manager's fixed per-file
// layout computed once at CREATE TABLE time.
func layoutFor(recordSize int) (n, bitmapSize int) {
	available := page.Size - page.HeapHdrSize
	// n*recordSize + ceil(n/8) <= available; solve conservatively then trim.
	n = (available * 8) / (8*recordSize + 1)
	for n > 0 {
		bitmapSize = (n + 7) / 8
		if n*recordSize+bitmapSize <= available {
			break
		}
		n--
	}
	return n, bitmapSize
}

// File is one open heap file: fixed-width records over bitmap slotted
// pages, backed by a disk manager and cache pair rather than a global
// buffer-pool singleton.
type File struct {
	fileID uint32
	disk   *diskmgr.Manager
	cache  cache.PageCache
	hdr    FileHeader
}

// Create makes a brand-new, empty heap file at path sized for recordSize
// byte records.
func Create(disk *diskmgr.Manager, c cache.PageCache, path string, recordSize int) (*File, error) {
	if err := disk.CreateFile(path); err != nil {
		return nil, err
	}
	fileID, err := disk.OpenFile(path)
	if err != nil {
		return nil, err
	}

	n, b := layoutFor(recordSize)
	if n <= 0 {
		return nil, types.Errorf(types.KindNoSpace, "record size %d too large for page size %d", recordSize, page.Size)
	}

	hdrPage, err := c.NewPage(fileID) // page 0
	if err != nil {
		return nil, err
	}
	hdr := FileHeader{
		RecordSize:      int32(recordSize),
		NumRecsPerPage:  int32(n),
		BitmapSize:      int32(b),
		NumPages:        1,
		FirstFreePageNo: types.NoPage,
	}
	encodeHeader(hdrPage.Data, hdr)
	if err := c.UnpinPage(hdrPage.ID, true); err != nil {
		return nil, err
	}

	log.Info().Str("component", "heap").Str("path", path).Int("record_size", recordSize).Int("n", n).Int("bitmap_size", b).Msg("create_file")

	return &File{fileID: fileID, disk: disk, cache: c, hdr: hdr}, nil
}

// Open loads an existing heap file's header.
func Open(disk *diskmgr.Manager, c cache.PageCache, path string) (*File, error) {
	fileID, err := disk.OpenFile(path)
	if err != nil {
		return nil, err
	}
	hdrPage, err := c.FetchPage(fileID, 0)
	if err != nil {
		return nil, err
	}
	hdr := decodeHeader(hdrPage.Data)
	if err := c.UnpinPage(hdrPage.ID, false); err != nil {
		return nil, err
	}
	return &File{fileID: fileID, disk: disk, cache: c, hdr: hdr}, nil
}

func (f *File) flushHeader() error {
	hdrPage, err := f.cache.FetchPage(f.fileID, 0)
	if err != nil {
		return err
	}
	encodeHeader(hdrPage.Data, f.hdr)
	return f.cache.UnpinPage(hdrPage.ID, true)
}

// RecordSize returns the fixed record width for this file.
func (f *File) RecordSize() int { return int(f.hdr.RecordSize) }

// fetchPage validates pageNo is within range and fetches it pinned.
func (f *File) fetchPage(pageNo int32) (*page.Page, error) {
	if pageNo < FirstRecordPageNo || pageNo >= f.hdr.NumPages {
		return nil, types.Errorf(types.KindPageNotExist, "page %d does not exist", pageNo)
	}
	return f.cache.FetchPage(f.fileID, pageNo)
}

// createNewPage allocates and zero-initializes a new record page, chained
// onto the head of the free-page list, and updates NumPages.
func (f *File) createNewPage() (*page.Page, error) {
	pg, err := f.cache.NewPage(f.fileID)
	if err != nil {
		return nil, err
	}
	page.InitHeapPage(pg, int(f.hdr.BitmapSize))
	page.SetNextFreePageNo(pg, f.hdr.FirstFreePageNo)
	f.hdr.NumPages++
	f.hdr.FirstFreePageNo = pg.PageNo
	if err := f.flushHeader(); err != nil {
		f.cache.UnpinPage(pg.ID, true)
		return nil, err
	}
	return pg, nil
}

// acquireFreePage returns a page with at least one free slot, creating one
// if the free list is empty.
func (f *File) acquireFreePage() (*page.Page, error) {
	if f.hdr.FirstFreePageNo == types.NoPage {
		return f.createNewPage()
	}
	return f.fetchPage(f.hdr.FirstFreePageNo)
}

// Insert appends buf as a new record at the first available slot and
// returns its Rid, mirroring insert_record(buf) without an explicit
// position. When lc is non-nil it takes an exclusive lock on the whole
// file for the duration of the call, per the locking surface's rule that
// insert does not yet know which rid it will land on.
func (f *File) Insert(buf []byte, lc *lock.Ctx) (types.Rid, error) {
	if len(buf) != int(f.hdr.RecordSize) {
		return types.NilRid, types.Errorf(types.KindIncompatibleType, "record size %d != file record size %d", len(buf), f.hdr.RecordSize)
	}
	if lc != nil {
		lc.Locks.LockExclusiveOnTable(lc.TxnID, f.fileID)
		defer lc.Locks.UnlockTable(lc.TxnID, f.fileID)
	}

	pg, err := f.acquireFreePage()
	if err != nil {
		return types.NilRid, err
	}

	bm := page.Bitmap(pg, int(f.hdr.BitmapSize))
	slotNo := page.BitmapFirstBit(false, bm, int(f.hdr.NumRecsPerPage))
	copy(page.Slot(pg, slotNo, int(f.hdr.BitmapSize), int(f.hdr.RecordSize)), buf)
	page.BitmapSet(bm, slotNo)
	numRecords := page.GetNumRecords(pg) + 1
	page.SetNumRecords(pg, numRecords)

	rid := types.Rid{PageNo: pg.PageNo, SlotNo: int32(slotNo)}

	if numRecords == f.hdr.NumRecsPerPage {
		f.hdr.FirstFreePageNo = page.GetNextFreePageNo(pg)
		if err := f.flushHeader(); err != nil {
			f.cache.UnpinPage(pg.ID, true)
			return types.NilRid, err
		}
	}

	if err := f.cache.UnpinPage(pg.ID, true); err != nil {
		return types.NilRid, err
	}
	log.Debug().Str("component", "heap").Str("rid", rid.String()).Msg("insert")
	return rid, nil
}

// InsertAt writes buf at an explicit, previously-reserved rid. It fails
// with SlotOccupied if that slot already holds a live record. It shares
// Insert's table-level exclusive locking, since it is still logically an
// insert even though the caller (WAL replay, index rebuild) already knows
// the target slot.
func (f *File) InsertAt(rid types.Rid, buf []byte, lc *lock.Ctx) error {
	if len(buf) != int(f.hdr.RecordSize) {
		return types.Errorf(types.KindIncompatibleType, "record size %d != file record size %d", len(buf), f.hdr.RecordSize)
	}
	if lc != nil {
		lc.Locks.LockExclusiveOnTable(lc.TxnID, f.fileID)
		defer lc.Locks.UnlockTable(lc.TxnID, f.fileID)
	}
	pg, err := f.fetchPage(rid.PageNo)
	if err != nil {
		return err
	}
	bm := page.Bitmap(pg, int(f.hdr.BitmapSize))
	if page.BitmapIsSet(bm, int(rid.SlotNo)) {
		f.cache.UnpinPage(pg.ID, false)
		return types.Errorf(types.KindSlotOccupied, "slot %s already occupied", rid.String())
	}
	copy(page.Slot(pg, int(rid.SlotNo), int(f.hdr.BitmapSize), int(f.hdr.RecordSize)), buf)
	page.BitmapSet(bm, int(rid.SlotNo))
	numRecords := page.GetNumRecords(pg) + 1
	page.SetNumRecords(pg, numRecords)

	if numRecords == f.hdr.NumRecsPerPage {
		f.hdr.FirstFreePageNo = page.GetNextFreePageNo(pg)
		if err := f.flushHeader(); err != nil {
			f.cache.UnpinPage(pg.ID, true)
			return err
		}
	}
	return f.cache.UnpinPage(pg.ID, true)
}

// Get reads the record at rid. When lc is non-nil it takes a shared lock
// on (fileID, rid) for the duration of the call.
func (f *File) Get(rid types.Rid, lc *lock.Ctx) (types.Record, error) {
	if lc != nil {
		lc.Locks.LockSharedOnRecord(lc.TxnID, f.fileID, rid)
		defer lc.Locks.UnlockRecord(lc.TxnID, f.fileID, rid)
	}
	pg, err := f.fetchPage(rid.PageNo)
	if err != nil {
		return types.Record{}, err
	}
	defer f.cache.UnpinPage(pg.ID, false)

	bm := page.Bitmap(pg, int(f.hdr.BitmapSize))
	if !page.BitmapIsSet(bm, int(rid.SlotNo)) {
		return types.Record{}, types.Errorf(types.KindRecordNotFound, "record %s not found", rid.String())
	}
	slot := page.Slot(pg, int(rid.SlotNo), int(f.hdr.BitmapSize), int(f.hdr.RecordSize))
	rec := types.NewRecord(len(slot))
	copy(rec.Data, slot)
	return rec, nil
}

// Update overwrites the record at rid in place. When lc is non-nil it
// takes an exclusive lock on (fileID, rid) for the duration of the call.
func (f *File) Update(rid types.Rid, buf []byte, lc *lock.Ctx) error {
	if len(buf) != int(f.hdr.RecordSize) {
		return types.Errorf(types.KindIncompatibleType, "record size %d != file record size %d", len(buf), f.hdr.RecordSize)
	}
	if lc != nil {
		lc.Locks.LockExclusiveOnRecord(lc.TxnID, f.fileID, rid)
		defer lc.Locks.UnlockRecord(lc.TxnID, f.fileID, rid)
	}
	pg, err := f.fetchPage(rid.PageNo)
	if err != nil {
		return err
	}
	bm := page.Bitmap(pg, int(f.hdr.BitmapSize))
	if !page.BitmapIsSet(bm, int(rid.SlotNo)) {
		f.cache.UnpinPage(pg.ID, false)
		return types.Errorf(types.KindRecordNotFound, "record %s not found", rid.String())
	}
	copy(page.Slot(pg, int(rid.SlotNo), int(f.hdr.BitmapSize), int(f.hdr.RecordSize)), buf)
	return f.cache.UnpinPage(pg.ID, true)
}

// Delete clears rid's slot, adding the page back onto the free list if it
// was previously full. When lc is non-nil it takes an exclusive lock on
// (fileID, rid) for the duration of the call.
func (f *File) Delete(rid types.Rid, lc *lock.Ctx) error {
	if lc != nil {
		lc.Locks.LockExclusiveOnRecord(lc.TxnID, f.fileID, rid)
		defer lc.Locks.UnlockRecord(lc.TxnID, f.fileID, rid)
	}
	pg, err := f.fetchPage(rid.PageNo)
	if err != nil {
		return err
	}
	bm := page.Bitmap(pg, int(f.hdr.BitmapSize))
	if !page.BitmapIsSet(bm, int(rid.SlotNo)) {
		f.cache.UnpinPage(pg.ID, false)
		return types.Errorf(types.KindRecordNotFound, "record %s not found", rid.String())
	}
	page.BitmapReset(bm, int(rid.SlotNo))
	wasFull := page.GetNumRecords(pg) == f.hdr.NumRecsPerPage
	page.SetNumRecords(pg, page.GetNumRecords(pg)-1)

	if wasFull {
		page.SetNextFreePageNo(pg, f.hdr.FirstFreePageNo)
		f.hdr.FirstFreePageNo = pg.PageNo
		if err := f.flushHeader(); err != nil {
			f.cache.UnpinPage(pg.ID, true)
			return err
		}
	}
	log.Debug().Str("component", "heap").Str("rid", rid.String()).Msg("delete")
	return f.cache.UnpinPage(pg.ID, true)
}

// Close flushes the header, then every dirty page the cache is holding for
// this file (data pages are unpinned into the cache on every insert/update/
// delete and are otherwise only written back on eviction), before closing
// the underlying file. Skipping this step leaves the physical file exactly
// as small as CreateFile left it — a reopen would find no data at all.
func (f *File) Close() error {
	if err := f.flushHeader(); err != nil {
		return err
	}
	if err := f.cache.FlushAll(); err != nil {
		return err
	}
	return f.disk.CloseFile(f.fileID)
}
