package exec

import "relstore/types"

// Op is a comparison operator in a predicate.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
)

// ColRef names a column, optionally qualified by table (used to resolve a
// join's concatenated column list).
type ColRef struct {
	Table string
	Name  string
}

// Condition is a single predicate: lhsCol <op> rhsCol, or lhsCol <op>
// rhsVal when RhsIsVal is set — mirrors the reference Condition/eval_cond
// shape exactly.
type Condition struct {
	Lhs      ColRef
	Op       Op
	RhsIsVal bool
	RhsVal   types.Value
	Rhs      ColRef
}

func findCol(cols []types.ColMeta, ref ColRef) (*types.ColMeta, bool) {
	for i := range cols {
		if cols[i].Name == ref.Name && (ref.Table == "" || cols[i].Table == ref.Table) {
			return &cols[i], true
		}
	}
	return nil, false
}

func compare(cmp int, op Op) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpGt:
		return cmp > 0
	case OpLe:
		return cmp <= 0
	case OpGe:
		return cmp >= 0
	default:
		return false
	}
}

// EvalCond evaluates a single condition against rec, whose columns are
// cols in record order.
func EvalCond(cols []types.ColMeta, cond Condition, rec types.Record) (bool, error) {
	lhsCol, ok := findCol(cols, cond.Lhs)
	if !ok {
		return false, types.Errorf(types.KindColumnNotFound, "column %s not found", cond.Lhs.Name)
	}
	lhsVal := rec.Get(lhsCol)

	var rhsVal types.Value
	if cond.RhsIsVal {
		rhsVal = cond.RhsVal
	} else {
		rhsCol, ok := findCol(cols, cond.Rhs)
		if !ok {
			return false, types.Errorf(types.KindColumnNotFound, "column %s not found", cond.Rhs.Name)
		}
		rhsVal = rec.Get(rhsCol)
	}

	lhsVal, rhsVal, ok = types.PromoteNumeric(lhsVal, rhsVal)
	if !ok {
		return false, types.Errorf(types.KindIncompatibleType, "%s is %s, comparand is %s", lhsCol.Name, lhsVal.Tag, rhsVal.Tag)
	}
	return compare(types.CompareValues(lhsVal, rhsVal), cond.Op), nil
}

// EvalConds is the conjunction of every condition in conds.
func EvalConds(cols []types.ColMeta, conds []Condition, rec types.Record) (bool, error) {
	for _, c := range conds {
		ok, err := EvalCond(cols, c, rec)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
