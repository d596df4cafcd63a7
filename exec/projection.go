package exec

import "relstore/types"

// Projection gathers a subset of its child's columns into a tightly
// packed output record — grounded on the reference ProjectionExecutor's
// sel_idxs_ gather-copy.
type Projection struct {
	prev    Operator
	cols    []types.ColMeta // output columns, offsets reassigned
	srcCols []types.ColMeta // matching source column (for offset/len)
}

func NewProjection(prev Operator, names []ColRef) (*Projection, error) {
	prevCols := prev.Columns()
	cols := make([]types.ColMeta, 0, len(names))
	srcCols := make([]types.ColMeta, 0, len(names))
	offset := 0
	for _, ref := range names {
		src, ok := findCol(prevCols, ref)
		if !ok {
			return nil, types.Errorf(types.KindColumnNotFound, "column %s not found", ref.Name)
		}
		out := *src
		out.Offset = offset
		offset += out.Len
		cols = append(cols, out)
		srcCols = append(srcCols, *src)
	}
	return &Projection{prev: prev, cols: cols, srcCols: srcCols}, nil
}

func (p *Projection) Begin() error   { return p.prev.Begin() }
func (p *Projection) Advance() error { return p.prev.Advance() }
func (p *Projection) IsEnd() bool    { return p.prev.IsEnd() }

func (p *Projection) Record() (types.Record, error) {
	src, err := p.prev.Record()
	if err != nil {
		return types.Record{}, err
	}
	out := types.NewRecord(columnsLen(p.cols))
	for i := range p.cols {
		copy(out.Data[p.cols[i].Offset:p.cols[i].Offset+p.cols[i].Len],
			src.Data[p.srcCols[i].Offset:p.srcCols[i].Offset+p.srcCols[i].Len])
	}
	return out, nil
}

func (p *Projection) Columns() []types.ColMeta { return p.cols }
func (p *Projection) TupleLen() int            { return columnsLen(p.cols) }
func (p *Projection) Rid() types.Rid           { return p.prev.Rid() }
