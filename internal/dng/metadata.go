package dng

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	tiff "github.com/garyhouston/tiff66"

	"rawsweep/internal/params"
)

// DNG tags that tiff66 does not name.
const (
	tagBlackLevelRepeatDim tiff.Tag = 0xC619
	tagBlackLevel          tiff.Tag = 0xC61A
	tagWhiteLevel          tiff.Tag = 0xC61D
	tagDefaultCropOrigin   tiff.Tag = 0xC61F
	tagDefaultCropSize     tiff.Tag = 0xC620
	tagAsShotNeutral       tiff.Tag = 0xC628
)

// ErrNoRawImage is returned when no IFD holds full-resolution raw data.
var ErrNoRawImage = errors.New("no raw image IFD")

// Metadata is what rawsweep reads from a DNG.
type Metadata struct {
	Make  string
	Model string
	// Width and Height are the raw image dimensions in photosites.
	Width  int
	Height int
	// BlackLevels are per CFA position, in row-major 2x2 order.
	BlackLevels [4]uint16
	WhiteLevel  uint16
	// WhiteBalance holds red, green and blue multipliers with green at 1.
	// HasWhiteBalance is false when AsShotNeutral is absent.
	WhiteBalance    [3]float64
	HasWhiteBalance bool
	// Crop margins left, top, right, bottom in photosites.
	CropLeft   int
	CropTop    int
	CropRight  int
	CropBottom int
}

// ReadFile reads metadata from the DNG at path.
func ReadFile(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open dng: %w", err)
	}
	meta, err := Read(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return meta, nil
}

// Read decodes the metadata of a DNG held in memory. IFD tree errors are
// only reported when they keep the raw IFD from being found.
func Read(data []byte) (*Metadata, error) {
	dirs, treeErr := parseTree(data)
	if errors.Is(treeErr, errNotTIFF) || len(dirs) == 0 {
		if treeErr == nil {
			treeErr = errors.New("no IFDs")
		}
		return nil, treeErr
	}
	raw, ok := findRaw(dirs)
	if !ok {
		if treeErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoRawImage, treeErr)
		}
		return nil, ErrNoRawImage
	}
	return decodeMetadata(dirs[0], raw)
}

// findRaw returns the full-resolution raw IFD: NewSubFileType 0, or failing
// that the first IFD without NewSubFileType that carries a WhiteLevel.
func findRaw(dirs []dir) (dir, bool) {
	for _, d := range dirs {
		f, ok := d.field(tiff.NewSubfileType)
		if !ok {
			continue
		}
		if v, err := numbers(f, d.order); err == nil && len(v) > 0 && v[0] == 0 {
			return d, true
		}
	}
	for _, d := range dirs {
		if _, ok := d.field(tiff.NewSubfileType); ok {
			continue
		}
		if _, ok := d.field(tagWhiteLevel); ok {
			return d, true
		}
	}
	return dir{}, false
}

func decodeMetadata(root, raw dir) (*Metadata, error) {
	meta := &Metadata{WhiteLevel: math.MaxUint16}
	// Raw-IFD values win over IFD0.
	lookup := func(tag tiff.Tag) ([]float64, bool, error) {
		for _, d := range []dir{raw, root} {
			if f, ok := d.field(tag); ok {
				v, err := numbers(f, d.order)
				return v, true, err
			}
		}
		return nil, false, nil
	}

	if f, ok := root.field(tiff.Make); ok && f.Type == tiff.ASCII {
		meta.Make = strings.TrimSpace(strings.TrimRight(f.ASCII(), "\x00"))
	}
	if f, ok := root.field(tiff.Model); ok && f.Type == tiff.ASCII {
		meta.Model = strings.TrimSpace(strings.TrimRight(f.ASCII(), "\x00"))
	}

	width, err := firstNumber(raw, tiff.ImageWidth)
	if err != nil {
		return nil, err
	}
	height, err := firstNumber(raw, tiff.ImageLength)
	if err != nil {
		return nil, err
	}
	meta.Width, meta.Height = int(width), int(height)

	levels, ok, err := lookup(tagBlackLevel)
	if err != nil {
		return nil, err
	}
	if ok {
		if len(levels) == 0 {
			return nil, errors.New("empty BlackLevel")
		}
		repeat, _, err := lookup(tagBlackLevelRepeatDim)
		if err != nil {
			return nil, err
		}
		meta.BlackLevels = spreadBlackLevels(levels, repeat)
	}

	white, ok, err := lookup(tagWhiteLevel)
	if err != nil {
		return nil, err
	}
	if ok && len(white) > 0 {
		meta.WhiteLevel = clampUint16(white[0])
	}

	if f, ok := root.field(tagAsShotNeutral); ok {
		neutral, err := numbers(f, root.order)
		if err != nil {
			return nil, err
		}
		if len(neutral) >= 3 && neutral[0] > 0 && neutral[1] > 0 && neutral[2] > 0 {
			green := 1 / neutral[1]
			for i := range meta.WhiteBalance {
				meta.WhiteBalance[i] = (1 / neutral[i]) / green
			}
			meta.HasWhiteBalance = true
		}
	}

	origin, okOrigin := raw.field(tagDefaultCropOrigin)
	size, okSize := raw.field(tagDefaultCropSize)
	if okOrigin && okSize {
		o, err := numbers(origin, raw.order)
		if err != nil {
			return nil, err
		}
		s, err := numbers(size, raw.order)
		if err != nil {
			return nil, err
		}
		if len(o) >= 2 && len(s) >= 2 {
			meta.CropLeft = int(math.Round(o[0]))
			meta.CropTop = int(math.Round(o[1]))
			meta.CropRight = max(meta.Width-meta.CropLeft-int(math.Round(s[0])), 0)
			meta.CropBottom = max(meta.Height-meta.CropTop-int(math.Round(s[1])), 0)
		}
	}
	return meta, nil
}

// spreadBlackLevels maps BlackLevel values onto the 2x2 CFA grid using
// BlackLevelRepeatDim (rows, cols; 1x1 when absent). Values are stored
// row-major over the repeat pattern, so a 2x1 pattern [a b] becomes
// a a b b.
func spreadBlackLevels(levels, repeat []float64) [4]uint16 {
	rows, cols := 1, 1
	if len(repeat) >= 2 && repeat[0] >= 1 && repeat[1] >= 1 {
		rows, cols = int(repeat[0]), int(repeat[1])
	}
	var out [4]uint16
	for r := range 2 {
		for c := range 2 {
			i := (r%rows)*cols + c%cols
			if i >= len(levels) {
				i %= len(levels)
			}
			out[r*2+c] = clampUint16(levels[i])
		}
	}
	return out
}

func firstNumber(d dir, tag tiff.Tag) (float64, error) {
	f, ok := d.field(tag)
	if !ok {
		return 0, fmt.Errorf("raw IFD missing tag 0x%04x", uint16(tag))
	}
	v, err := numbers(f, d.order)
	if err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return 0, fmt.Errorf("tag 0x%04x is empty", uint16(tag))
	}
	return v[0], nil
}

func clampUint16(v float64) uint16 {
	switch {
	case v <= 0:
		return 0
	case v >= math.MaxUint16:
		return math.MaxUint16
	default:
		return uint16(math.Round(v))
	}
}

// RawPrepare returns a rawprepare record carrying the black and white
// levels and the default crop.
func (m *Metadata) RawPrepare() *params.Record {
	rec := params.Defaults(params.RawPrepare)
	mustSet(rec, "x", int32(m.CropLeft))
	mustSet(rec, "y", int32(m.CropTop))
	mustSet(rec, "width", int32(m.CropRight))
	mustSet(rec, "height", int32(m.CropBottom))
	mustSet(rec, "black_levels", append([]uint16(nil), m.BlackLevels[:]...))
	mustSet(rec, "white_point", int32(m.WhiteLevel))
	return rec
}

// Temperature returns a temperature record with the as-shot multipliers.
// g2 stays NaN. Without AsShotNeutral the defaults are returned.
func (m *Metadata) Temperature() *params.Record {
	rec := params.Defaults(params.Temperature)
	if !m.HasWhiteBalance {
		return rec
	}
	mustSet(rec, "red", float32(m.WhiteBalance[0]))
	mustSet(rec, "green", float32(m.WhiteBalance[1]))
	mustSet(rec, "blue", float32(m.WhiteBalance[2]))
	return rec
}

func mustSet(rec *params.Record, name string, value any) {
	if err := rec.Set(name, value); err != nil {
		panic(err)
	}
}
