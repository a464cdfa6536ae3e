package params

import (
	"encoding/binary"
	"encoding/hex"
	"math"
)

// canonicalNaN is the quiet NaN darktable's own presets carry (0000c07f on
// the wire).
const canonicalNaN = 0x7fc00000

var le = binary.LittleEndian

// NaN returns the canonical quiet NaN used for "unused" float fields.
func NaN() float32 {
	return math.Float32frombits(canonicalNaN)
}

// Buffer is a fixed-width byte buffer passed to Encode as a bare value. Data
// must hold exactly Size bytes.
type Buffer struct {
	Size int
	Data []byte
}

// RawBool is a Bool32 slot read with a value other than 0 or 1. Decode
// keeps it as read so the block re-encodes byte for byte.
type RawBool uint32

// Bool reports the truth value darktable reads from the slot.
func (b RawBool) Bool() bool { return b != 0 }

// Encode serializes v into darktable's little-endian wire layout.
//
// Supported values are *Record, float32, float64 (narrowed to float32),
// int32, uint16, bool (4 bytes), RawBool (4 bytes, verbatim), []byte (copied verbatim), Buffer, and
// slices of those including []any. Sequences are encoded element by element
// and concatenated. Any other type yields an UnsupportedTypeError; a Buffer or
// fixed-width record field of the wrong length yields a
// BufferLengthMismatchError. On error no partial output is returned.
func Encode(v any) ([]byte, error) {
	buf, err := appendValue(nil, v, "")
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// ToHex encodes v and renders every byte as two lowercase hex digits.
func ToHex(v any) (string, error) {
	buf, err := Encode(v)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func appendValue(buf []byte, v any, path string) ([]byte, error) {
	switch val := v.(type) {
	case *Record:
		if val == nil {
			return nil, unsupported(v, path, nil)
		}
		return appendRecord(buf, val, joinPath(path, val.schema.name))
	case float32:
		return appendFloat32(buf, val), nil
	case float64:
		return appendFloat64(buf, val), nil
	case int32:
		return le.AppendUint32(buf, uint32(val)), nil
	case uint16:
		return le.AppendUint16(buf, val), nil
	case bool:
		return appendBool(buf, val), nil
	case RawBool:
		return le.AppendUint32(buf, uint32(val)), nil
	case []byte:
		return append(buf, val...), nil
	case Buffer:
		if len(val.Data) != val.Size {
			return nil, &BufferLengthMismatchError{Field: path, Want: val.Size, Got: len(val.Data)}
		}
		return append(buf, val.Data...), nil
	}
	elems, ok := sequence(v)
	if !ok {
		return nil, unsupported(v, path, nil)
	}
	var err error
	for _, e := range elems {
		if buf, err = appendValue(buf, e, path); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendRecord(buf []byte, r *Record, path string) ([]byte, error) {
	var err error
	for i, f := range r.schema.fields {
		if buf, err = encodeTyped(buf, f.Type, r.values[i], joinPath(path, f.Name)); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// encodeTyped encodes v as the declared type t. The kind is fixed by the
// schema; v only has to carry a matching Go type.
func encodeTyped(buf []byte, t Type, v any, path string) ([]byte, error) {
	switch t.Kind {
	case KindInt32:
		val, ok := v.(int32)
		if !ok {
			return nil, unsupported(v, path, &t)
		}
		return le.AppendUint32(buf, uint32(val)), nil
	case KindUint16:
		val, ok := v.(uint16)
		if !ok {
			return nil, unsupported(v, path, &t)
		}
		return le.AppendUint16(buf, val), nil
	case KindFloat32:
		switch val := v.(type) {
		case float32:
			return appendFloat32(buf, val), nil
		case float64:
			return appendFloat64(buf, val), nil
		default:
			return nil, unsupported(v, path, &t)
		}
	case KindBool32:
		switch val := v.(type) {
		case bool:
			return appendBool(buf, val), nil
		case RawBool:
			return le.AppendUint32(buf, uint32(val)), nil
		default:
			return nil, unsupported(v, path, &t)
		}
	case KindBytes:
		var data []byte
		switch val := v.(type) {
		case []byte:
			data = val
		case Buffer:
			data = val.Data
		default:
			return nil, unsupported(v, path, &t)
		}
		if len(data) != t.Len {
			return nil, &BufferLengthMismatchError{Field: path, Want: t.Len, Got: len(data)}
		}
		return append(buf, data...), nil
	case KindArray:
		elems, ok := sequence(v)
		if !ok || t.Elem == nil {
			return nil, unsupported(v, path, &t)
		}
		if len(elems) != t.Len {
			return nil, &BufferLengthMismatchError{Field: path, Want: t.Len, Got: len(elems)}
		}
		var err error
		for _, e := range elems {
			if buf, err = encodeTyped(buf, *t.Elem, e, path); err != nil {
				return nil, err
			}
		}
		return buf, nil
	case KindRecord:
		rec, ok := v.(*Record)
		if !ok || rec == nil || rec.schema != t.Schema {
			return nil, unsupported(v, path, &t)
		}
		return appendRecord(buf, rec, path)
	default:
		return nil, unsupported(v, path, &t)
	}
}

func appendFloat32(buf []byte, f float32) []byte {
	// Float32bits keeps NaN payloads, so decoded blocks re-encode unchanged.
	return le.AppendUint32(buf, math.Float32bits(f))
}

func appendFloat64(buf []byte, f float64) []byte {
	if math.IsNaN(f) {
		return le.AppendUint32(buf, canonicalNaN)
	}
	return le.AppendUint32(buf, math.Float32bits(float32(f)))
}

func appendBool(buf []byte, b bool) []byte {
	if b {
		return le.AppendUint32(buf, 1)
	}
	return le.AppendUint32(buf, 0)
}

// sequence flattens the supported slice types into []any.
func sequence(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case []float32:
		return toAny(val), true
	case []float64:
		return toAny(val), true
	case []int32:
		return toAny(val), true
	case []uint16:
		return toAny(val), true
	case []bool:
		return toAny(val), true
	case []*Record:
		return toAny(val), true
	default:
		return nil, false
	}
}

func toAny[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
