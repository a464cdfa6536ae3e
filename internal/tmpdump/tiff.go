package tmpdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	tiff66 "github.com/garyhouston/tiff66"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/image/tiff"
)

// MaxChannels is the most channels written to a TIFF; extra channels (alpha
// or mask planes) are dropped.
const MaxChannels = 3

// Options controls TIFF conversion.
type Options struct {
	// Scale multiplies samples before writing. Zero means 1.
	Scale float64
	// Compress writes Deflate-compressed strips.
	Compress bool
	// Quantize writes 16-bit integer samples clipped to [0,1] instead of
	// 32-bit floats.
	Quantize bool
}

func (o Options) scale() float64 {
	if o.Scale == 0 {
		return 1
	}
	return o.Scale
}

// ToImage quantizes the first frame of im to a 16-bit image. One channel
// becomes grayscale; two or three become opaque RGB with missing channels
// left at zero.
func ToImage(im *Image, opts Options) image.Image {
	scale := opts.scale()
	rect := image.Rect(0, 0, im.Width, im.Height)
	channels := min(im.Channels, MaxChannels)

	if channels == 1 {
		out := image.NewGray16(rect)
		for y := 0; y < im.Height; y++ {
			for x := 0; x < im.Width; x++ {
				out.SetGray16(x, y, color.Gray16{Y: quantize(im.At(0, 0, x, y), scale)})
			}
		}
		return out
	}

	out := image.NewNRGBA64(rect)
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			var rgb [3]uint16
			for c := 0; c < channels; c++ {
				rgb[c] = quantize(im.At(0, c, x, y), scale)
			}
			out.SetNRGBA64(x, y, color.NRGBA64{R: rgb[0], G: rgb[1], B: rgb[2], A: math.MaxUint16})
		}
	}
	return out
}

func quantize(v float32, scale float64) uint16 {
	f := float64(v) * scale
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= 1:
		return math.MaxUint16
	default:
		return uint16(math.Round(f * math.MaxUint16))
	}
}

// WriteTIFF writes the first frame of im as a TIFF. Samples are 32-bit
// floats unless opts.Quantize is set.
func WriteTIFF(w io.Writer, im *Image, opts Options) error {
	if !opts.Quantize {
		return writeFloatTIFF(w, im, opts)
	}
	tiffOpts := &tiff.Options{Compression: tiff.Uncompressed}
	if opts.Compress {
		tiffOpts = &tiff.Options{Compression: tiff.Deflate, Predictor: true}
	}
	if err := tiff.Encode(w, ToImage(im, opts), tiffOpts); err != nil {
		return fmt.Errorf("encode tiff: %w", err)
	}
	return nil
}

const (
	compressionNone    = 1
	compressionDeflate = 8
	photometricGray    = 1
	photometricRGB     = 2
	sampleFormatFloat  = 3
)

// floatSamples interleaves frame 0 as little-endian float32 with spp
// samples per pixel. Channels past the dump's own are zero.
func floatSamples(im *Image, spp int, scale float64) []byte {
	have := min(im.Channels, spp)
	out := make([]byte, 0, im.Width*im.Height*spp*4)
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			for c := 0; c < spp; c++ {
				var v float32
				if c < have {
					v = float32(float64(im.At(0, c, x, y)) * scale)
				}
				out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
			}
		}
	}
	return out
}

// writeFloatTIFF writes a single-strip chunky TIFF with SampleFormat 3:
// gray for one channel, RGB otherwise.
func writeFloatTIFF(w io.Writer, im *Image, opts Options) error {
	channels, photometric := MaxChannels, uint16(photometricRGB)
	if im.Channels == 1 {
		channels, photometric = 1, photometricGray
	}
	strip := floatSamples(im, channels, opts.scale())

	compression := uint16(compressionNone)
	if opts.Compress {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(strip); err != nil {
			return fmt.Errorf("deflate tiff strip: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("deflate tiff strip: %w", err)
		}
		strip = buf.Bytes()
		compression = compressionDeflate
	}

	order := binary.LittleEndian
	bits := make([]uint16, channels)
	formats := make([]uint16, channels)
	for i := range bits {
		bits[i] = 32
		formats[i] = sampleFormatFloat
	}
	node := tiff66.NewIFDNode(tiff66.TIFFSpace)
	node.Order = order
	node.AddFields([]tiff66.Field{
		longField(order, tiff66.ImageWidth, uint32(im.Width)),
		longField(order, tiff66.ImageLength, uint32(im.Height)),
		shortField(order, tiff66.BitsPerSample, bits...),
		shortField(order, tiff66.Compression, compression),
		shortField(order, tiff66.PhotometricInterpretation, photometric),
		longField(order, tiff66.StripOffsets, 0),
		shortField(order, tiff66.SamplesPerPixel, uint16(channels)),
		longField(order, tiff66.RowsPerStrip, uint32(im.Height)),
		longField(order, tiff66.StripByteCounts, uint32(len(strip))),
		shortField(order, tiff66.PlanarConfiguration, 1),
		shortField(order, tiff66.SampleFormat, formats...),
	})
	node.Fix()

	// The strip follows the IFD; its offset is known once the tree is sized.
	offset := tiff66.Align(tiff66.HeaderSize + node.TreeSize())
	node.FindFields([]tiff66.Tag{tiff66.StripOffsets})[0].PutLong(offset, 0, order)
	buf := make([]byte, int(offset)+len(strip))
	tiff66.PutHeader(buf, order, tiff66.HeaderSize)
	if _, err := node.PutIFDTree(buf, tiff66.HeaderSize); err != nil {
		return fmt.Errorf("encode tiff: %w", err)
	}
	copy(buf[offset:], strip)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write tiff: %w", err)
	}
	return nil
}

func longField(order binary.ByteOrder, tag tiff66.Tag, v ...uint32) tiff66.Field {
	f := tiff66.Field{Tag: tag, Type: tiff66.LONG, Count: uint32(len(v)), Data: make([]byte, 4*len(v))}
	for i, x := range v {
		f.PutLong(x, uint32(i), order)
	}
	return f
}

func shortField(order binary.ByteOrder, tag tiff66.Tag, v ...uint16) tiff66.Field {
	f := tiff66.Field{Tag: tag, Type: tiff66.SHORT, Count: uint32(len(v)), Data: make([]byte, 2*len(v))}
	for i, x := range v {
		f.PutShort(x, uint32(i), order)
	}
	return f
}

// ConvertFile converts the dump at src into a TIFF at dst.
func ConvertFile(src, dst string, opts Options) (*Image, error) {
	im, err := ReadFile(src)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("create tiff directory: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("create tiff: %w", err)
	}
	if err := WriteTIFF(f, im, opts); err != nil {
		f.Close()
		os.Remove(dst)
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close tiff: %w", err)
	}
	return im, nil
}
