package exec

import (
	"sort"

	"relstore/types"
)

// Sort materializes every tuple from its child once, then orders them
// with sort.SliceStable. A naive selection-sort approach that re-scans the
// child from the start for every output tuple and pulls two tuples per
// comparison is O(n^2) and can drop a tuple entirely once a child cursor
// is advanced past a row it already compared. This implementation avoids
// both problems: one pass to materialize, one stable sort, done.
type Sort struct {
	cols    []types.ColMeta
	sortCol types.ColMeta
	desc    bool
	rows    []sortedRow
	idx     int
}

type sortedRow struct {
	rec types.Record
	rid types.Rid
}

func NewSort(prev Operator, sortCol ColRef, desc bool) (*Sort, error) {
	col, ok := findCol(prev.Columns(), sortCol)
	if !ok {
		return nil, types.Errorf(types.KindColumnNotFound, "column %s not found", sortCol.Name)
	}
	s := &Sort{cols: prev.Columns(), sortCol: *col, desc: desc}

	if err := prev.Begin(); err != nil {
		return nil, err
	}
	for !prev.IsEnd() {
		rec, err := prev.Record()
		if err != nil {
			return nil, err
		}
		s.rows = append(s.rows, sortedRow{rec: rec, rid: prev.Rid()})
		if err := prev.Advance(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Sort) Begin() error {
	sort.SliceStable(s.rows, func(i, j int) bool {
		a := s.rows[i].rec.Get(&s.sortCol)
		b := s.rows[j].rec.Get(&s.sortCol)
		cmp := types.CompareValues(a, b)
		if s.desc {
			return cmp > 0
		}
		return cmp < 0
	})
	s.idx = 0
	return nil
}

func (s *Sort) Advance() error {
	s.idx++
	return nil
}

func (s *Sort) IsEnd() bool { return s.idx >= len(s.rows) }

func (s *Sort) Record() (types.Record, error) {
	if s.IsEnd() {
		return types.Record{}, types.Errorf(types.KindRecordNotFound, "sort cursor past end")
	}
	return s.rows[s.idx].rec, nil
}

func (s *Sort) Columns() []types.ColMeta { return s.cols }
func (s *Sort) TupleLen() int            { return columnsLen(s.cols) }
func (s *Sort) Rid() types.Rid {
	if s.IsEnd() {
		return types.NilRid
	}
	return s.rows[s.idx].rid
}
