package exec

import (
	"relstore/concurrency/lock"
	"relstore/storage/heap"
	"relstore/types"
)

// SeqScan walks every live record of a heap file, skipping any that fail
// its filter conditions — grounded on the reference SeqScanExecutor's
// beginTuple/nextTuple loop that re-tests eval_conds after every step.
type SeqScan struct {
	file  *heap.File
	cols  []types.ColMeta
	conds []Condition
	scan  *heap.Scan
	rid   types.Rid
	rec   types.Record
	end   bool
	lc    *lock.Ctx
}

// NewSeqScan builds a scan over file's live records. lc, when non-nil, is
// forwarded to every underlying get_record call so a shared lock is held
// per row while it's read.
func NewSeqScan(file *heap.File, cols []types.ColMeta, conds []Condition, lc *lock.Ctx) *SeqScan {
	return &SeqScan{file: file, cols: cols, conds: conds, lc: lc}
}

func (s *SeqScan) Begin() error {
	s.scan = heap.NewScan(s.file, s.lc)
	if err := s.scan.Begin(); err != nil {
		return err
	}
	return s.seekMatch()
}

func (s *SeqScan) Advance() error {
	if err := s.scan.Advance(); err != nil {
		return err
	}
	return s.seekMatch()
}

// seekMatch advances scan_ until it finds a record satisfying every
// condition, or runs off the end.
func (s *SeqScan) seekMatch() error {
	for !s.scan.IsEnd() {
		rec, err := s.scan.Record()
		if err != nil {
			return err
		}
		ok, err := EvalConds(s.cols, s.conds, rec)
		if err != nil {
			return err
		}
		if ok {
			s.rid = s.scan.Rid()
			s.rec = rec
			s.end = false
			return nil
		}
		if err := s.scan.Advance(); err != nil {
			return err
		}
	}
	s.end = true
	return nil
}

func (s *SeqScan) IsEnd() bool { return s.scan == nil || s.end }

func (s *SeqScan) Record() (types.Record, error) { return s.rec, nil }

func (s *SeqScan) Columns() []types.ColMeta { return s.cols }

func (s *SeqScan) TupleLen() int { return columnsLen(s.cols) }

func (s *SeqScan) Rid() types.Rid { return s.rid }
