package params

import (
	"encoding/hex"
	"fmt"
	"math"
)

// Decode reads a block produced by Encode back into a record of schema s.
// data must be exactly s.Size() bytes. Bool32 slots holding 0 or 1 decode
// as bool; any other value decodes as RawBool.
func Decode(s *Schema, data []byte) (*Record, error) {
	if len(data) != s.Size() {
		return nil, &BufferLengthMismatchError{Field: s.name, Want: s.Size(), Got: len(data)}
	}
	return decodeRecord(s, data), nil
}

// DecodeHex decodes a hex string (as written into darktable:params) into a
// record of schema s.
func DecodeHex(s *Schema, text string) (*Record, error) {
	data, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("params: decode %s hex: %w", s.name, err)
	}
	return Decode(s, data)
}

func decodeRecord(s *Schema, data []byte) *Record {
	values := make([]any, len(s.fields))
	for i, f := range s.fields {
		values[i] = decodeTyped(f.Type, data[f.Offset:f.Offset+f.Type.Size()])
	}
	return &Record{schema: s, values: values}
}

func decodeTyped(t Type, data []byte) any {
	switch t.Kind {
	case KindInt32:
		return int32(le.Uint32(data))
	case KindUint16:
		return le.Uint16(data)
	case KindFloat32:
		return math.Float32frombits(le.Uint32(data))
	case KindBool32:
		switch v := le.Uint32(data); v {
		case 0, 1:
			return v == 1
		default:
			return RawBool(v)
		}
	case KindBytes:
		return append([]byte(nil), data...)
	case KindRecord:
		return decodeRecord(t.Schema, data)
	case KindArray:
		width := t.Elem.Size()
		switch t.Elem.Kind {
		case KindFloat32:
			out := make([]float32, t.Len)
			for i := range out {
				out[i] = math.Float32frombits(le.Uint32(data[i*width:]))
			}
			return out
		case KindInt32:
			out := make([]int32, t.Len)
			for i := range out {
				out[i] = int32(le.Uint32(data[i*width:]))
			}
			return out
		case KindUint16:
			out := make([]uint16, t.Len)
			for i := range out {
				out[i] = le.Uint16(data[i*width:])
			}
			return out
		default:
			out := make([]any, t.Len)
			for i := range out {
				out[i] = decodeTyped(*t.Elem, data[i*width:(i+1)*width])
			}
			return out
		}
	default:
		return nil
	}
}
