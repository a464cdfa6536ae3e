package params

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field is one named, typed slot in a parameter block.
type Field struct {
	Name    string
	Type    Type
	Default any
	// Offset is the byte offset of the field inside the encoded block.
	Offset int
}

// Schema is the ordered field list of one parameter block.
type Schema struct {
	name   string
	fields []Field
	index  map[string]int
	size   int
}

// NewSchema builds a schema from fields in wire order. It panics on duplicate
// names or defaults that cannot be encoded as their declared type, since a
// schema is static program data.
func NewSchema(name string, fields ...Field) *Schema {
	s := &Schema{
		name:   name,
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	offset := 0
	for i, f := range fields {
		if _, dup := s.index[f.Name]; dup {
			panic(fmt.Sprintf("params: schema %s: duplicate field %q", name, f.Name))
		}
		f.Offset = offset
		if _, err := encodeTyped(nil, f.Type, f.Default, name+"."+f.Name); err != nil {
			panic(fmt.Sprintf("params: schema %s: default for %s: %v", name, f.Name, err))
		}
		s.fields[i] = f
		s.index[f.Name] = i
		offset += f.Type.Size()
	}
	s.size = offset
	return s
}

// Name returns the schema's name.
func (s *Schema) Name() string { return s.name }

// Size returns the encoded size of the block in bytes.
func (s *Schema) Size() int { return s.size }

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Fields returns a copy of the field list in wire order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// New returns a record holding a private copy of every default.
func (s *Schema) New() *Record {
	values := make([]any, len(s.fields))
	for i, f := range s.fields {
		values[i] = cloneValue(f.Default)
	}
	return &Record{schema: s, values: values}
}

// Record is one instance of a schema. The zero value is not usable; obtain
// records from Schema.New or Defaults.
type Record struct {
	schema *Schema
	values []any
}

// Schema returns the record's schema.
func (r *Record) Schema() *Schema { return r.schema }

// Get returns the current value of a field.
func (r *Record) Get(name string) (any, bool) {
	i, ok := r.schema.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Set stores value in the named field. The value is not checked against the
// field type here; a mismatch surfaces as an UnsupportedTypeError at encode
// time.
func (r *Record) Set(name string, value any) error {
	i, ok := r.schema.index[name]
	if !ok {
		return fmt.Errorf("%s.%s: %w", r.schema.name, name, ErrUnknownField)
	}
	r.values[i] = value
	return nil
}

// SetNumber converts v to the field's scalar kind and stores it. Int32 and
// Uint16 fields take the value rounded toward zero; Bool32 fields store
// v != 0.
func (r *Record) SetNumber(name string, v float64) error {
	f, ok := r.schema.Field(name)
	if !ok {
		return fmt.Errorf("%s.%s: %w", r.schema.name, name, ErrUnknownField)
	}
	value, err := numberFor(f.Type, v)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", r.schema.name, name, err)
	}
	return r.Set(name, value)
}

// SetText parses text according to the field's kind and stores the result.
// Arrays take comma-separated elements.
func (r *Record) SetText(name, text string) error {
	f, ok := r.schema.Field(name)
	if !ok {
		return fmt.Errorf("%s.%s: %w", r.schema.name, name, ErrUnknownField)
	}
	value, err := parseText(f.Type, text)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", r.schema.name, name, err)
	}
	return r.Set(name, value)
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	values := make([]any, len(r.values))
	for i, v := range r.values {
		values[i] = cloneValue(v)
	}
	return &Record{schema: r.schema, values: values}
}

// Equal reports whether both records share a schema and encode to the same
// bytes. Records that fail to encode are never equal.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.schema != other.schema {
		return false
	}
	a, err := Encode(r)
	if err != nil {
		return false
	}
	b, err := Encode(other)
	if err != nil {
		return false
	}
	return string(a) == string(b)
}

func numberFor(t Type, v float64) (any, error) {
	switch t.Kind {
	case KindFloat32:
		return float32(v), nil
	case KindInt32:
		if math.IsNaN(v) || v < math.MinInt32 || v > math.MaxInt32 {
			return nil, fmt.Errorf("value %v out of range for i32", v)
		}
		return int32(v), nil
	case KindUint16:
		if math.IsNaN(v) || v < 0 || v > math.MaxUint16 {
			return nil, fmt.Errorf("value %v out of range for u16", v)
		}
		return uint16(v), nil
	case KindBool32:
		return v != 0, nil
	default:
		return nil, fmt.Errorf("field of type %s is not numeric", t)
	}
}

func parseText(t Type, text string) (any, error) {
	text = strings.TrimSpace(text)
	switch t.Kind {
	case KindFloat32:
		if strings.EqualFold(text, "nan") {
			return NaN(), nil
		}
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, err
		}
		return float32(v), nil
	case KindInt32:
		v, err := strconv.ParseInt(text, 0, 32)
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case KindUint16:
		v, err := strconv.ParseUint(text, 0, 16)
		if err != nil {
			return nil, err
		}
		return uint16(v), nil
	case KindBool32:
		return strconv.ParseBool(text)
	case KindBytes:
		buf := []byte(text)
		if len(buf) < t.Len {
			// darktable stores operation names NUL-padded.
			padded := make([]byte, t.Len)
			copy(padded, buf)
			buf = padded
		}
		return buf, nil
	case KindArray:
		parts := strings.Split(text, ",")
		out := make([]any, 0, len(parts))
		for _, part := range parts {
			v, err := parseText(*t.Elem, part)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot parse text into %s", t)
	}
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return append([]byte(nil), val...)
	case []float32:
		return append([]float32(nil), val...)
	case []int32:
		return append([]int32(nil), val...)
	case []uint16:
		return append([]uint16(nil), val...)
	case []bool:
		return append([]bool(nil), val...)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case *Record:
		if val == nil {
			return val
		}
		return val.Clone()
	default:
		return v
	}
}
