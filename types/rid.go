package types

import "fmt"

// NoPage and NoSlot are the sentinel values for "no page"/"no slot". A Rid
// with PageNo == NoPage marks end-of-scan.
const (
	NoPage int32 = -1
	NoSlot int32 = -1
)

// Rid identifies a record's physical location: a page number within a
// heap file and a slot number within that page.
type Rid struct {
	PageNo int32
	SlotNo int32
}

// NilRid is the sentinel "no record" value.
var NilRid = Rid{PageNo: NoPage, SlotNo: NoSlot}

func (r Rid) IsNil() bool { return r.PageNo == NoPage }

func (r Rid) String() string { return fmt.Sprintf("(%d,%d)", r.PageNo, r.SlotNo) }
