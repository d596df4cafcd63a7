package exec

import "relstore/types"

// NLJoin is a nested-loop join: for every left tuple it walks the entire
// right child, testing the join conditions against the concatenated
// column list — grounded on the reference NestedLoopJoinExecutor's
// left/right stepping discipline (advance right; on right's end, advance
// left and restart right).
type NLJoin struct {
	left, right Operator
	conds       []Condition
	cols        []types.ColMeta
	leftLen     int
	end         bool
	rec         types.Record
}

func NewNLJoin(left, right Operator, conds []Condition) *NLJoin {
	leftLen := left.TupleLen()
	cols := append([]types.ColMeta{}, left.Columns()...)
	for _, c := range right.Columns() {
		c.Offset += leftLen
		cols = append(cols, c)
	}
	return &NLJoin{left: left, right: right, conds: conds, cols: cols, leftLen: leftLen}
}

func (j *NLJoin) Begin() error {
	if err := j.left.Begin(); err != nil {
		return err
	}
	if j.left.IsEnd() {
		j.end = true
		return nil
	}
	if err := j.right.Begin(); err != nil {
		return err
	}
	j.end = false
	return j.seekMatch()
}

func (j *NLJoin) Advance() error {
	if j.end {
		return nil
	}
	if !j.right.IsEnd() {
		if err := j.right.Advance(); err != nil {
			return err
		}
	}
	return j.seekMatch()
}

// seekMatch steps the (left, right) cursor pair forward until the
// concatenated row satisfies every join condition or both children are
// exhausted. It never reads a right record while the inner child is
// exhausted — an empty (or fully consumed) right side advances left and
// restarts right instead, mirroring the reference join's
// "if (!left_rec || !right_rec) advance" guard rather than reading past
// the inner's end.
func (j *NLJoin) seekMatch() error {
	for {
		if j.left.IsEnd() {
			j.end = true
			return nil
		}
		if j.right.IsEnd() {
			if err := j.left.Advance(); err != nil {
				return err
			}
			if j.left.IsEnd() {
				j.end = true
				return nil
			}
			if err := j.right.Begin(); err != nil {
				return err
			}
			continue
		}

		lrec, err := j.left.Record()
		if err != nil {
			return err
		}
		rrec, err := j.right.Record()
		if err != nil {
			return err
		}
		joined := concat(lrec, rrec, j.leftLen)
		ok, err := EvalConds(j.cols, j.conds, joined)
		if err != nil {
			return err
		}
		if ok {
			j.rec = joined
			return nil
		}

		if err := j.right.Advance(); err != nil {
			return err
		}
	}
}

func concat(left, right types.Record, leftLen int) types.Record {
	rec := types.NewRecord(leftLen + len(right.Data))
	copy(rec.Data, left.Data)
	copy(rec.Data[leftLen:], right.Data)
	return rec
}

func (j *NLJoin) IsEnd() bool { return j.end }

func (j *NLJoin) Record() (types.Record, error) { return j.rec, nil }

func (j *NLJoin) Columns() []types.ColMeta { return j.cols }

func (j *NLJoin) TupleLen() int { return j.leftLen + j.right.TupleLen() }

func (j *NLJoin) Rid() types.Rid { return types.NilRid }
