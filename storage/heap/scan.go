package heap

import (
	"relstore/concurrency/lock"
	"relstore/storage/page"
	"relstore/types"
)

// Scan is a forward-only cursor over every live record in a heap file,
// grounded on the reference RmScan: begin() sets rid to (FirstRecordPageNo,
// NoSlot) then calls advance() once; advance() finds the next occupied bit
// on the current page before rolling onto the next page.
type Scan struct {
	file *File
	rid  types.Rid
	lc   *lock.Ctx
}

// NewScan builds a scan positioned before the first record; call Advance
// once to reach it (mirroring begin()+next() in the reference scan). lc,
// if non-nil, is forwarded to every Record() call's underlying Get, taking
// a shared record lock per row the way a scanning get_record would.
func NewScan(f *File, lc *lock.Ctx) *Scan {
	return &Scan{file: f, rid: types.Rid{PageNo: FirstRecordPageNo, SlotNo: types.NoSlot}, lc: lc}
}

// Begin positions the scan at the first live record, if any.
func (s *Scan) Begin() error {
	s.rid = types.Rid{PageNo: FirstRecordPageNo, SlotNo: types.NoSlot}
	return s.Advance()
}

// Advance moves the cursor to the next live record, or to the end-of-scan
// sentinel (PageNo == NoPage) if none remains.
func (s *Scan) Advance() error {
	for s.rid.PageNo < s.file.hdr.NumPages {
		pg, err := s.file.fetchPage(s.rid.PageNo)
		if err != nil {
			return err
		}
		bm := page.Bitmap(pg, int(s.file.hdr.BitmapSize))
		next := page.BitmapNextBit(true, bm, int(s.file.hdr.NumRecsPerPage), int(s.rid.SlotNo))
		if err := s.file.cache.UnpinPage(pg.ID, false); err != nil {
			return err
		}

		if next < int(s.file.hdr.NumRecsPerPage) {
			s.rid.SlotNo = int32(next)
			return nil
		}
		s.rid.PageNo++
		s.rid.SlotNo = types.NoSlot
	}
	s.rid = types.NilRid
	return nil
}

// IsEnd reports whether the scan has run past the last page.
func (s *Scan) IsEnd() bool { return s.rid.PageNo == types.NoPage }

// Rid returns the cursor's current position.
func (s *Scan) Rid() types.Rid { return s.rid }

// Record fetches the record the cursor currently points at.
func (s *Scan) Record() (types.Record, error) {
	return s.file.Get(s.rid, s.lc)
}
