package types

import (
	"encoding/binary"
	"math"
	"strings"
)

// Value is a typed, decoded column value. Exactly one of I/F/S is
// meaningful, selected by Tag.
type Value struct {
	Tag Tag
	I   int32
	F   float32
	S   string
}

func IntValue(i int32) Value     { return Value{Tag: TagInt32, I: i} }
func FloatValue(f float32) Value { return Value{Tag: TagFloat32, F: f} }
func StringValue(s string) Value { return Value{Tag: TagString, S: s} }

// Record is a packed, fixed-width row buffer. Column values live at the
// byte offsets assigned by AssignOffsets — no length prefixes, no
// alignment padding, exactly like the teacher's ValueToBytes/BytesToValue
// pairing but fixed-width throughout instead of length-prefixed VARCHAR.
type Record struct {
	Data []byte
}

// NewRecord allocates a zero-filled record buffer of the given size.
func NewRecord(size int) Record {
	return Record{Data: make([]byte, size)}
}

// PutInt32 writes a little-endian int32 at the column's offset.
func PutInt32(buf []byte, col *ColMeta, v int32) {
	binary.LittleEndian.PutUint32(buf[col.Offset:col.Offset+4], uint32(v))
}

// GetInt32 reads a little-endian int32 from the column's offset.
func GetInt32(buf []byte, col *ColMeta) int32 {
	return int32(binary.LittleEndian.Uint32(buf[col.Offset : col.Offset+4]))
}

// PutFloat32 writes a little-endian float32 at the column's offset.
func PutFloat32(buf []byte, col *ColMeta, v float32) {
	binary.LittleEndian.PutUint32(buf[col.Offset:col.Offset+4], math.Float32bits(v))
}

// GetFloat32 reads a little-endian float32 from the column's offset.
func GetFloat32(buf []byte, col *ColMeta) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[col.Offset : col.Offset+4]))
}

// PutString writes s into the column's declared span, NUL-padded to the
// full declared length. If s is longer than col.Len it is truncated —
// callers validate length at INSERT time so this should never trigger.
func PutString(buf []byte, col *ColMeta, s string) {
	span := buf[col.Offset : col.Offset+col.Len]
	n := copy(span, s)
	for i := n; i < len(span); i++ {
		span[i] = 0
	}
}

// GetString reads the column's declared span with the trailing NUL padding
// PutString added stripped off. Embedded NUL bytes before the last non-NUL
// byte are kept, so comparison still sees them byte-for-byte.
func GetString(buf []byte, col *ColMeta) string {
	return strings.TrimRight(string(buf[col.Offset:col.Offset+col.Len]), "\x00")
}

// Get decodes the value at col out of the record.
func (r Record) Get(col *ColMeta) Value {
	switch col.Type {
	case TagInt32:
		return IntValue(GetInt32(r.Data, col))
	case TagFloat32:
		return FloatValue(GetFloat32(r.Data, col))
	default:
		return StringValue(GetString(r.Data, col))
	}
}

// Set encodes v into col's span of the record, returning IncompatibleType
// if v's tag doesn't match the column's declared type.
func (r Record) Set(col *ColMeta, v Value) error {
	if v.Tag != col.Type {
		return Errorf(KindIncompatibleType, "column %s is %s, value is %s", col.Name, col.Type, v.Tag)
	}
	switch col.Type {
	case TagInt32:
		PutInt32(r.Data, col, v.I)
	case TagFloat32:
		PutFloat32(r.Data, col, v.F)
	default:
		if len(v.S) > col.Len {
			return Errorf(KindIncompatibleType, "string value exceeds declared length %d for column %s", col.Len, col.Name)
		}
		PutString(r.Data, col, v.S)
	}
	return nil
}

// PromoteNumeric coerces a and b to a common comparable tag before a
// predicate compares them. INT32 and FLOAT32 are mutually comparable — the
// INT32 operand is promoted to FLOAT32 — but any other tag mismatch (a
// STRING against a numeric type, for instance) is reported via ok=false so
// the caller can raise its own IncompatibleType.
func PromoteNumeric(a, b Value) (pa, pb Value, ok bool) {
	if a.Tag == b.Tag {
		return a, b, true
	}
	switch {
	case a.Tag == TagInt32 && b.Tag == TagFloat32:
		return FloatValue(float32(a.I)), b, true
	case a.Tag == TagFloat32 && b.Tag == TagInt32:
		return a, FloatValue(float32(b.I)), true
	default:
		return a, b, false
	}
}

// CompareValues returns -1, 0, or 1 for a versus b, both assumed to share a
// Tag. FLOAT32 uses a total order where NaN compares greater than every
// non-NaN value and equal to itself — this keeps x <= x reflexive for all
// non-NaN inputs without imposing IEEE-754 unordered comparisons on Sort.
func CompareValues(a, b Value) int {
	switch a.Tag {
	case TagInt32:
		switch {
		case a.I < b.I:
			return -1
		case a.I > b.I:
			return 1
		default:
			return 0
		}
	case TagFloat32:
		return compareFloat32(a.F, b.F)
	default:
		if a.S < b.S {
			return -1
		}
		if a.S > b.S {
			return 1
		}
		return 0
	}
}

func compareFloat32(a, b float32) int {
	aNaN, bNaN := isNaN32(a), isNaN32(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func isNaN32(f float32) bool { return f != f }
