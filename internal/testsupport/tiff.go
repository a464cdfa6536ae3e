package testsupport

import (
	"encoding/binary"
	"fmt"

	tiff "github.com/garyhouston/tiff66"
)

// TIFFBuilder makes tiff66 fields in one byte order and encodes them into a
// TIFF file.
type TIFFBuilder struct {
	Order binary.ByteOrder
}

func (b TIFFBuilder) order() binary.ByteOrder {
	if b.Order == nil {
		return binary.LittleEndian
	}
	return b.Order
}

// Long returns a LONG field.
func (b TIFFBuilder) Long(tag tiff.Tag, v ...uint32) tiff.Field {
	f := tiff.Field{Tag: tag, Type: tiff.LONG, Count: uint32(len(v)), Data: make([]byte, 4*len(v))}
	for i, x := range v {
		f.PutLong(x, uint32(i), b.order())
	}
	return f
}

// Short returns a SHORT field.
func (b TIFFBuilder) Short(tag tiff.Tag, v ...uint16) tiff.Field {
	f := tiff.Field{Tag: tag, Type: tiff.SHORT, Count: uint32(len(v)), Data: make([]byte, 2*len(v))}
	for i, x := range v {
		f.PutShort(x, uint32(i), b.order())
	}
	return f
}

// Rational returns a RATIONAL field from numerator, denominator pairs.
func (b TIFFBuilder) Rational(tag tiff.Tag, pairs ...uint32) tiff.Field {
	n := len(pairs) / 2
	f := tiff.Field{Tag: tag, Type: tiff.RATIONAL, Count: uint32(n), Data: make([]byte, 8*n)}
	for i := range n {
		f.PutRational(pairs[2*i], pairs[2*i+1], uint32(i), b.order())
	}
	return f
}

// ASCII returns a NUL-terminated ASCII field.
func (b TIFFBuilder) ASCII(tag tiff.Tag, s string) tiff.Field {
	f := tiff.Field{Tag: tag, Type: tiff.ASCII}
	f.PutASCII(s)
	f.Count = uint32(len(f.Data))
	return f
}

// Encode writes ifd0 as the first directory and each of subIFDs as a
// SubIFD of it.
func (b TIFFBuilder) Encode(ifd0 []tiff.Field, subIFDs ...[]tiff.Field) ([]byte, error) {
	root := b.node(ifd0)
	if len(subIFDs) > 0 {
		root.AddFields([]tiff.Field{b.Long(tiff.SubIFDs, make([]uint32, len(subIFDs))...)})
		for _, fields := range subIFDs {
			root.SubIFDs = append(root.SubIFDs, tiff.SubIFD{Tag: tiff.SubIFDs, Node: b.node(fields)})
		}
	}
	root.Fix()
	buf := make([]byte, tiff.HeaderSize+root.TreeSize())
	tiff.PutHeader(buf, b.order(), tiff.HeaderSize)
	end, err := root.PutIFDTree(buf, tiff.HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("encode tiff: %w", err)
	}
	return buf[:end], nil
}

func (b TIFFBuilder) node(fields []tiff.Field) *tiff.IFDNode {
	node := tiff.NewIFDNode(tiff.TIFFSpace)
	node.Order = b.order()
	node.AddFields(append([]tiff.Field(nil), fields...))
	return node
}
