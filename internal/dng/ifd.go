package dng

import (
	"encoding/binary"
	"errors"
	"fmt"

	tiff "github.com/garyhouston/tiff66"
)

var errNotTIFF = errors.New("not a TIFF file")

// dir is one parsed IFD with its fields indexed by tag.
type dir struct {
	order  binary.ByteOrder
	fields map[tiff.Tag]tiff.Field
}

func (d dir) field(tag tiff.Tag) (tiff.Field, bool) {
	f, ok := d.fields[tag]
	return f, ok
}

// parseTree decodes the IFD tree of a TIFF file and flattens it into
// directory order: each IFD, then its SubIFDs, then the next IFD in the
// chain. Exif and GPS sub-directories are left out.
func parseTree(data []byte) ([]dir, error) {
	ok, order, pos := tiff.GetHeader(data)
	if !ok {
		return nil, errNotTIFF
	}
	root, err := tiff.GetIFDTree(data, order, pos, tiff.TIFFSpace)
	if root == nil {
		return nil, fmt.Errorf("read IFD tree: %w", err)
	}
	var dirs []dir
	var walk func(node *tiff.IFDNode)
	walk = func(node *tiff.IFDNode) {
		for ; node != nil; node = node.Next {
			if len(node.Fields) > 0 {
				d := dir{order: node.Order, fields: make(map[tiff.Tag]tiff.Field, len(node.Fields))}
				for _, f := range node.Fields {
					d.fields[f.Tag] = f
				}
				dirs = append(dirs, d)
			}
			for _, sub := range node.SubIFDs {
				if sub.Tag == tiff.SubIFDs && sub.Node != nil {
					walk(sub.Node)
				}
			}
		}
	}
	walk(root)
	return dirs, err
}

// numbers decodes any numeric field as float64 values.
func numbers(f tiff.Field, order binary.ByteOrder) ([]float64, error) {
	t := f.Type
	if !t.IsIntegral() && !t.IsRational() && !t.IsFloat() && t != tiff.IFD {
		return nil, fmt.Errorf("tag 0x%04x: field type %s is not numeric", uint16(f.Tag), t.Name())
	}
	if uint64(len(f.Data)) < uint64(t.Size())*uint64(f.Count) {
		return nil, fmt.Errorf("tag 0x%04x: truncated value", uint16(f.Tag))
	}
	out := make([]float64, f.Count)
	for i := range f.Count {
		switch {
		case t.IsIntegral():
			out[i] = float64(f.AnyInteger(i, order))
		case t.IsRational():
			num, den := f.AnyRational(i, order)
			out[i] = ratio(float64(num), float64(den))
		case t.IsFloat():
			out[i] = f.AnyFloat(i, order)
		default:
			out[i] = float64(f.Long(i, order))
		}
	}
	return out, nil
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
