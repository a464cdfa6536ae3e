package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	tiff "github.com/garyhouston/tiff66"
)

// WriteDNG writes a minimal little-endian DNG holding only the tags rawsweep
// reads: a 64x48 raw IFD with black level 512, white level 16383 and an
// as-shot neutral of 0.5 1 0.75. There is no image data.
func WriteDNG(t testing.TB, path string) {
	t.Helper()

	var b TIFFBuilder
	data, err := b.Encode([]tiff.Field{
		b.Long(tiff.NewSubfileType, 0),
		b.Long(tiff.ImageWidth, 64),
		b.Long(tiff.ImageLength, 48),
		b.ASCII(tiff.Make, "rawsweep"),
		b.ASCII(tiff.Model, "test"),
		b.Short(0xC61A, 512),
		b.Short(0xC61D, 16383),
		b.Rational(0xC628, 1, 2, 1, 1, 3, 4),
	})
	if err != nil {
		t.Fatalf("encode dng: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
