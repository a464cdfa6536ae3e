package params

import "fmt"

// Kind enumerates the wire encodings a field can take.
type Kind int

const (
	KindInt32 Kind = iota + 1
	KindUint16
	KindFloat32
	KindBool32
	KindBytes
	KindArray
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "i32"
	case KindUint16:
		return "u16"
	case KindFloat32:
		return "f32"
	case KindBool32:
		return "bool32"
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	case KindRecord:
		return "record"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Type describes the wire layout of one field.
//
// Len is the byte count for KindBytes and the element count for KindArray.
// Elem is set for KindArray and Schema for KindRecord.
type Type struct {
	Kind   Kind
	Len    int
	Elem   *Type
	Schema *Schema
}

var (
	Int32   = Type{Kind: KindInt32}
	Uint16  = Type{Kind: KindUint16}
	Float32 = Type{Kind: KindFloat32}
	// Bool32 is a gboolean: 0 or 1 stored in a full 4-byte slot.
	Bool32 = Type{Kind: KindBool32}
)

// Bytes returns a fixed-width raw buffer type of n bytes.
func Bytes(n int) Type {
	return Type{Kind: KindBytes, Len: n}
}

// ArrayOf returns a fixed-length array of n elements of elem.
func ArrayOf(elem Type, n int) Type {
	e := elem
	return Type{Kind: KindArray, Len: n, Elem: &e}
}

// RecordOf embeds another schema inline.
func RecordOf(s *Schema) Type {
	return Type{Kind: KindRecord, Schema: s}
}

// Scalar reports whether the type holds a single number that a sweep can
// step through.
func (t Type) Scalar() bool {
	switch t.Kind {
	case KindFloat32, KindInt32, KindUint16, KindBool32:
		return true
	}
	return false
}

// Size returns the encoded width of the type in bytes.
func (t Type) Size() int {
	switch t.Kind {
	case KindInt32, KindFloat32, KindBool32:
		return 4
	case KindUint16:
		return 2
	case KindBytes:
		return t.Len
	case KindArray:
		if t.Elem == nil {
			return 0
		}
		return t.Len * t.Elem.Size()
	case KindRecord:
		if t.Schema == nil {
			return 0
		}
		return t.Schema.Size()
	default:
		return 0
	}
}

func (t Type) String() string {
	switch t.Kind {
	case KindBytes:
		return fmt.Sprintf("bytes[%d]", t.Len)
	case KindArray:
		if t.Elem == nil {
			return fmt.Sprintf("[%d]?", t.Len)
		}
		return fmt.Sprintf("[%d]%s", t.Len, t.Elem)
	case KindRecord:
		if t.Schema == nil {
			return "record(?)"
		}
		return "record(" + t.Schema.Name() + ")"
	default:
		return t.Kind.String()
	}
}
