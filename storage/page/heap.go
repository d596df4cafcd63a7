package page

import "encoding/binary"

// Byte layout of a heap page:
//
//	[0:4)   next_free_page_no (int32, little-endian) — intrusive free list
//	[4:8)   num_records       (int32, little-endian) — live record count
//	[8:8+B) bitmap            (B bytes, one bit per slot, LSB first)
//	[8+B:]  N fixed-width record slots, back to back
//
// B and the record size/N are fixed per file at creation time and live in
// the file header on page 0 (see storage/heap), not on each page.
const (
	HeapHdrOffNextFreePageNo = 0
	HeapHdrOffNumRecords     = 4
	HeapHdrSize              = 8
)

func GetNextFreePageNo(pg *Page) int32 {
	return int32(binary.LittleEndian.Uint32(pg.Data[HeapHdrOffNextFreePageNo:]))
}

func SetNextFreePageNo(pg *Page, v int32) {
	binary.LittleEndian.PutUint32(pg.Data[HeapHdrOffNextFreePageNo:], uint32(v))
	pg.IsDirty = true
}

func GetNumRecords(pg *Page) int32 {
	return int32(binary.LittleEndian.Uint32(pg.Data[HeapHdrOffNumRecords:]))
}

func SetNumRecords(pg *Page, v int32) {
	binary.LittleEndian.PutUint32(pg.Data[HeapHdrOffNumRecords:], uint32(v))
	pg.IsDirty = true
}

// Bitmap returns the page's B-byte occupancy bitmap as a sub-slice of Data —
// mutations through it are mutations of the page.
func Bitmap(pg *Page, bitmapSize int) []byte {
	return pg.Data[HeapHdrSize : HeapHdrSize+bitmapSize]
}

// RecordsStart is the byte offset of slot 0 within the page.
func RecordsStart(bitmapSize int) int {
	return HeapHdrSize + bitmapSize
}

// Slot returns the byte span holding slot slotNo's record, given the file's
// fixed bitmapSize and recordSize.
func Slot(pg *Page, slotNo int, bitmapSize, recordSize int) []byte {
	start := RecordsStart(bitmapSize) + slotNo*recordSize
	return pg.Data[start : start+recordSize]
}

// InitHeapPage zero-fills a freshly allocated page's header and bitmap,
// mirroring the reference file handle's create_new_page_handle: no free
// records yet, bitmap all-clear, next_free_page_no chained by the caller.
func InitHeapPage(pg *Page, bitmapSize int) {
	SetNumRecords(pg, 0)
	BitmapInit(Bitmap(pg, bitmapSize), bitmapSize)
}
