package exec

import (
	"relstore/concurrency/lock"
	"relstore/index"
	"relstore/storage/heap"
	"relstore/types"
)

// SetClause is one `column = value` assignment in an UPDATE statement.
type SetClause struct {
	Col string
	Val types.Value
}

// Update applies a batch of set-clauses to a fixed list of rids —
// grounded on the reference UpdateExecutor's Next(), which is a one-shot
// action over rids_ rather than a row-producing iterator: for every rid it
// deletes the old index entries, applies the set clauses (numeric values
// are coerced between INT32 and FLOAT32 the way the reference update does
// with set_int/set_float), reinserts the new index entries, then rewrites
// the record in place.
type Update struct {
	table   *types.TabMeta
	file    *heap.File
	indexes map[string]*index.BTreeIndex
	rids    []types.Rid
	sets    []SetClause
	lc      *lock.Ctx
}

// NewUpdate builds an update over a fixed list of rids. lc, when non-nil,
// is forwarded to every row's Get/Update call, taking the shared-then-
// exclusive lock pair the locking surface prescribes for a read-modify-
// write.
func NewUpdate(table *types.TabMeta, file *heap.File, indexes map[string]*index.BTreeIndex, rids []types.Rid, sets []SetClause, lc *lock.Ctx) *Update {
	return &Update{table: table, file: file, indexes: indexes, rids: rids, sets: sets, lc: lc}
}

// Run performs the update and returns how many rows were touched.
func (u *Update) Run() (int, error) {
	for _, rid := range u.rids {
		old, err := u.file.Get(rid, u.lc)
		if err != nil {
			return 0, err
		}
		newRec := types.NewRecord(len(old.Data))
		copy(newRec.Data, old.Data)

		u.applyIndex(old, rid, (*index.BTreeIndex).DeleteEntry)

		for _, sc := range u.sets {
			col, err := u.table.GetCol(sc.Col)
			if err != nil {
				return 0, err
			}
			val := sc.Val
			if val.Tag != col.Type {
				val, err = coerce(val, col.Type)
				if err != nil {
					return 0, err
				}
			}
			if err := newRec.Set(col, val); err != nil {
				return 0, err
			}
		}

		u.applyIndex(newRec, rid, (*index.BTreeIndex).InsertEntry)

		if err := u.file.Update(rid, newRec.Data, u.lc); err != nil {
			return 0, err
		}
	}
	return len(u.rids), nil
}

// coerce mirrors the reference update executor's numeric widening: an
// INT32 value assigned to a FLOAT32 column (or vice versa) is converted
// rather than rejected; any other mismatch is IncompatibleType.
func coerce(v types.Value, want types.Tag) (types.Value, error) {
	switch {
	case v.Tag == types.TagInt32 && want == types.TagFloat32:
		return types.FloatValue(float32(v.I)), nil
	case v.Tag == types.TagFloat32 && want == types.TagInt32:
		return types.IntValue(int32(v.F)), nil
	default:
		return v, types.Errorf(types.KindIncompatibleType, "cannot assign %s value to %s column", v.Tag, want)
	}
}

func (u *Update) applyIndex(rec types.Record, rid types.Rid, op func(*index.BTreeIndex, types.Value, types.Rid)) {
	for _, indexCols := range u.table.IndexCols {
		name := types.IndexName(u.table.Name, indexCols)
		idx, ok := u.indexes[name]
		if !ok || len(indexCols) == 0 {
			continue
		}
		key, err := compositeKey(u.table, rec, indexCols)
		if err != nil {
			continue
		}
		op(idx, key, rid)
	}
}

// compositeKey builds the index key for a (possibly multi-column) declared
// index. A single-column index keys on that column's own Value, unchanged,
// so numeric comparisons in the index still order the way CompareValues
// does for that type. A composite index instead keys on the raw bytes of
// every column concatenated in declaration order — the tree only needs
// entries for equal tuples to collide and unequal ones not to, and a
// packed-record's per-column byte ranges already given a stable encoding
// to concatenate.
func compositeKey(table *types.TabMeta, rec types.Record, colNames []string) (types.Value, error) {
	if len(colNames) == 1 {
		col, err := table.GetCol(colNames[0])
		if err != nil {
			return types.Value{}, err
		}
		return rec.Get(col), nil
	}
	buf := make([]byte, 0, len(rec.Data))
	for _, name := range colNames {
		col, err := table.GetCol(name)
		if err != nil {
			return types.Value{}, err
		}
		buf = append(buf, rec.Data[col.Offset:col.Offset+col.Len]...)
	}
	return types.StringValue(string(buf)), nil
}
