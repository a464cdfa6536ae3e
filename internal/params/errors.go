package params

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrUnknownField is returned by Record setters when the schema does not
// declare the requested field.
var ErrUnknownField = errors.New("unknown field")

// UnsupportedTypeError reports a value whose Go type has no wire encoding, or
// does not match the kind of the field it was stored in.
type UnsupportedTypeError struct {
	// Type is the offending value's type. It is nil for an untyped nil.
	Type reflect.Type
	// Field is the dotted path of the field being encoded, empty when
	// encoding a bare value.
	Field string
	// Want is the field's declared type when the value sat in a schema field.
	Want *Type
}

func (e *UnsupportedTypeError) Error() string {
	typeName := "<nil>"
	if e.Type != nil {
		typeName = e.Type.String()
	}
	switch {
	case e.Field != "" && e.Want != nil:
		return fmt.Sprintf("params: unsupported type %s for field %s (want %s)", typeName, e.Field, e.Want)
	case e.Field != "":
		return fmt.Sprintf("params: unsupported type %s for field %s", typeName, e.Field)
	default:
		return fmt.Sprintf("params: unsupported type %s", typeName)
	}
}

// BufferLengthMismatchError reports a fixed-width byte buffer supplied with
// the wrong number of bytes. The encoder never pads or truncates.
type BufferLengthMismatchError struct {
	Field string
	Want  int
	Got   int
}

func (e *BufferLengthMismatchError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("params: buffer length %d, want %d", e.Got, e.Want)
	}
	return fmt.Sprintf("params: field %s: buffer length %d, want %d", e.Field, e.Got, e.Want)
}

func unsupported(v any, field string, want *Type) error {
	return &UnsupportedTypeError{Type: reflect.TypeOf(v), Field: field, Want: want}
}
