package tmpdump_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	tiff66 "github.com/garyhouston/tiff66"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/image/tiff"

	"rawsweep/internal/tmpdump"
)

func sampleImage(channels int) *tmpdump.Image {
	im := &tmpdump.Image{Width: 3, Height: 2, Frames: 1, Channels: channels}
	im.Data = make([]float32, 3*2*channels)
	for c := 0; c < channels; c++ {
		for y := 0; y < 2; y++ {
			for x := 0; x < 3; x++ {
				im.Data[(c*2+y)*3+x] = float32(c+1) * 0.1 * float32(x+y*3)
			}
		}
	}
	return im
}

func TestReadWriteRoundTrip(t *testing.T) {
	im := sampleImage(4)
	var buf bytes.Buffer
	if err := tmpdump.Write(&buf, im); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.Len() != 5*4+len(im.Data)*4 {
		t.Fatalf("dump is %d bytes", buf.Len())
	}
	header := buf.Bytes()[:20]
	if binary.LittleEndian.Uint32(header[0:]) != 3 || binary.LittleEndian.Uint32(header[12:]) != 4 {
		t.Fatalf("unexpected header % x", header)
	}
	got, err := tmpdump.Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Width != 3 || got.Height != 2 || got.Channels != 4 {
		t.Fatalf("geometry = %+v", got)
	}
	if got.At(0, 2, 1, 1) != im.At(0, 2, 1, 1) {
		t.Fatalf("sample mismatch %v vs %v", got.At(0, 2, 1, 1), im.At(0, 2, 1, 1))
	}
}

func TestReadRejectsBadDumps(t *testing.T) {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, [5]int32{2, 2, 1, 1, 1})
	if _, err := tmpdump.Read(&buf); !errors.Is(err, tmpdump.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}

	buf.Reset()
	_ = binary.Write(&buf, binary.LittleEndian, [5]int32{0, 2, 1, 1, 0})
	if _, err := tmpdump.Read(&buf); err == nil {
		t.Fatal("expected geometry error")
	}

	buf.Reset()
	_ = binary.Write(&buf, binary.LittleEndian, [5]int32{2, 2, 1, 1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, []float32{1, 2})
	if _, err := tmpdump.Read(&buf); err == nil {
		t.Fatal("expected truncated data error")
	}
}

func TestToImageClipsChannels(t *testing.T) {
	rgb := tmpdump.ToImage(sampleImage(4), tmpdump.Options{})
	nrgba, ok := rgb.(*image.NRGBA64)
	if !ok {
		t.Fatalf("4-channel dump gave %T", rgb)
	}
	px := nrgba.NRGBA64At(1, 0)
	if px.R != uint16(math.Round(0.1*65535)) || px.A != math.MaxUint16 {
		t.Fatalf("pixel = %+v", px)
	}

	gray := tmpdump.ToImage(sampleImage(1), tmpdump.Options{Scale: 2})
	g, ok := gray.(*image.Gray16)
	if !ok {
		t.Fatalf("1-channel dump gave %T", gray)
	}
	if g.Gray16At(2, 1).Y != math.MaxUint16 {
		t.Fatalf("scaled value should clip, got %d", g.Gray16At(2, 1).Y)
	}
	if g.Gray16At(0, 0).Y != 0 {
		t.Fatalf("zero sample = %d", g.Gray16At(0, 0).Y)
	}
}

func TestWriteQuantizedTIFFDecodes(t *testing.T) {
	for _, compress := range []bool{false, true} {
		var buf bytes.Buffer
		if err := tmpdump.WriteTIFF(&buf, sampleImage(3), tmpdump.Options{Compress: compress, Quantize: true}); err != nil {
			t.Fatalf("WriteTIFF: %v", err)
		}
		img, err := tiff.Decode(&buf)
		if err != nil {
			t.Fatalf("decode tiff: %v", err)
		}
		if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
			t.Fatalf("bounds = %v", img.Bounds())
		}
	}
}

// floatTIFF is a decoded single-strip float TIFF.
type floatTIFF struct {
	width, height, spp uint32
	formats            []uint32
	photometric        uint32
	samples            []float32
}

func readFloatTIFF(t *testing.T, data []byte) floatTIFF {
	t.Helper()
	ok, order, pos := tiff66.GetHeader(data)
	if !ok {
		t.Fatal("output is not a TIFF")
	}
	root, err := tiff66.GetIFDTree(data, order, pos, tiff66.TIFFSpace)
	if err != nil {
		t.Fatalf("GetIFDTree: %v", err)
	}
	get := func(tag tiff66.Tag) []uint32 {
		fields := root.FindFields([]tiff66.Tag{tag})
		if len(fields) != 1 {
			t.Fatalf("tag 0x%X missing", uint16(tag))
		}
		f := fields[0]
		out := make([]uint32, f.Count)
		for i := range out {
			out[i] = uint32(f.AnyInteger(uint32(i), order))
		}
		return out
	}
	offset, size := get(tiff66.StripOffsets)[0], get(tiff66.StripByteCounts)[0]
	strip := data[offset : offset+size]
	if get(tiff66.Compression)[0] == 8 {
		zr, err := zlib.NewReader(bytes.NewReader(strip))
		if err != nil {
			t.Fatalf("zlib: %v", err)
		}
		if strip, err = io.ReadAll(zr); err != nil {
			t.Fatalf("inflate strip: %v", err)
		}
	}
	out := floatTIFF{
		width:       get(tiff66.ImageWidth)[0],
		height:      get(tiff66.ImageLength)[0],
		spp:         get(tiff66.SamplesPerPixel)[0],
		formats:     get(tiff66.SampleFormat),
		photometric: get(tiff66.PhotometricInterpretation)[0],
	}
	for i := 0; i+4 <= len(strip); i += 4 {
		out.samples = append(out.samples, math.Float32frombits(order.Uint32(strip[i:])))
	}
	return out
}

func TestWriteFloatTIFFKeepsRange(t *testing.T) {
	im := sampleImage(4)
	im.Data[0] = 7
	im.Data[1] = -0.5
	for _, compress := range []bool{false, true} {
		var buf bytes.Buffer
		if err := tmpdump.WriteTIFF(&buf, im, tmpdump.Options{Compress: compress, Scale: 2}); err != nil {
			t.Fatalf("WriteTIFF: %v", err)
		}
		got := readFloatTIFF(t, buf.Bytes())
		if got.width != 3 || got.height != 2 || got.spp != 3 || got.photometric != 2 {
			t.Fatalf("geometry = %+v", got)
		}
		if len(got.formats) != 3 || got.formats[0] != 3 {
			t.Fatalf("sample format = %v", got.formats)
		}
		if len(got.samples) != 3*2*3 {
			t.Fatalf("got %d samples", len(got.samples))
		}
		// Pixel (0,0) red, pixel (1,0) red, then pixel (2,1) blue.
		if got.samples[0] != 14 || got.samples[3] != -1 {
			t.Fatalf("out-of-range samples clipped: %v", got.samples[:6])
		}
		want := float32(2 * float64(im.At(0, 2, 2, 1)))
		if got.samples[len(got.samples)-1] != want {
			t.Fatalf("last sample = %v, want %v", got.samples[len(got.samples)-1], want)
		}
	}
}

func TestWriteFloatTIFFChannelLayout(t *testing.T) {
	for _, tc := range []struct {
		channels    int
		spp         uint32
		photometric uint32
	}{
		{1, 1, 1},
		{2, 3, 2},
		{3, 3, 2},
	} {
		var buf bytes.Buffer
		if err := tmpdump.WriteTIFF(&buf, sampleImage(tc.channels), tmpdump.Options{}); err != nil {
			t.Fatalf("WriteTIFF(%d channels): %v", tc.channels, err)
		}
		got := readFloatTIFF(t, buf.Bytes())
		if got.spp != tc.spp || got.photometric != tc.photometric || len(got.samples) != 6*int(tc.spp) {
			t.Fatalf("%d channels: %+v", tc.channels, got)
		}
		if tc.channels == 2 && got.samples[5] != 0 {
			t.Fatalf("missing blue channel should be zero, got %v", got.samples[5])
		}
	}
}

func TestConvertDir(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, filepath.Join(dir, "exposure_in.tmp"), sampleImage(4))
	writeDump(t, filepath.Join(dir, "exposure_out.tmp"), sampleImage(4))
	if err := os.WriteFile(filepath.Join(dir, "sharpen_in.tmp"), []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("write corrupt dump: %v", err)
	}

	outDir := t.TempDir()
	prefix := filepath.Join(outDir, "a0001.dng_contrast=[0.200]")
	results, err := tmpdump.ConvertDir(dir, []string{"exposure", "sharpen"}, prefix, tmpdump.Options{})
	if err == nil {
		t.Fatal("expected error for the corrupt dump")
	}
	if len(results) != 4 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Output != prefix+"_exposure_in.tif" || results[0].Channels != 3 {
		t.Fatalf("unexpected first result %+v", results[0])
	}
	if _, statErr := os.Stat(results[1].Output); statErr != nil {
		t.Fatalf("exposure_out not written: %v", statErr)
	}
	if results[2].Err == nil {
		t.Fatal("corrupt sharpen_in should fail")
	}
	if !results[3].Missing {
		t.Fatal("sharpen_out should be reported missing")
	}

	inPlace, err := tmpdump.ConvertDir(dir, []string{"exposure"}, "", tmpdump.Options{Compress: true})
	if err != nil {
		t.Fatalf("ConvertDir in place: %v", err)
	}
	if inPlace[0].Output != filepath.Join(dir, "exposure_in.tif") {
		t.Fatalf("in-place output = %q", inPlace[0].Output)
	}
}

func writeDump(t *testing.T, path string, im *tmpdump.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create dump: %v", err)
	}
	defer f.Close()
	if err := tmpdump.Write(f, im); err != nil {
		t.Fatalf("write dump: %v", err)
	}
}
