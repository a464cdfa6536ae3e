package tmpdump

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	headerWords = 5
	typeFloat32 = 0
	// maxSamples caps allocations for corrupt headers (a 100 MP, 4 channel dump).
	maxSamples = 400_000_000
)

// ErrUnsupportedType is returned for dumps whose sample type is not float32.
var ErrUnsupportedType = errors.New("unsupported dump sample type")

// Image is a decoded dump. Data is planar: frame, then channel, then rows.
type Image struct {
	Width    int
	Height   int
	Frames   int
	Channels int
	Data     []float32
}

// At returns the sample of channel c at (x, y) in frame f.
func (im *Image) At(f, c, x, y int) float32 {
	return im.Data[((f*im.Channels+c)*im.Height+y)*im.Width+x]
}

// Read decodes a dump from r.
func Read(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)
	var header [headerWords]int32
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read dump header: %w", err)
	}
	im := &Image{
		Width:    int(header[0]),
		Height:   int(header[1]),
		Frames:   int(header[2]),
		Channels: int(header[3]),
	}
	if header[4] != typeFloat32 {
		return nil, fmt.Errorf("%w %d", ErrUnsupportedType, header[4])
	}
	if im.Width <= 0 || im.Height <= 0 || im.Frames <= 0 || im.Channels <= 0 {
		return nil, fmt.Errorf("invalid dump geometry %dx%d, %d frame(s), %d channel(s)", im.Width, im.Height, im.Frames, im.Channels)
	}
	n := int64(im.Width) * int64(im.Height) * int64(im.Frames) * int64(im.Channels)
	if n > maxSamples {
		return nil, fmt.Errorf("dump of %d samples exceeds limit", n)
	}
	im.Data = make([]float32, n)
	if err := binary.Read(br, binary.LittleEndian, im.Data); err != nil {
		return nil, fmt.Errorf("read dump samples: %w", err)
	}
	return im, nil
}

// ReadFile decodes the dump at path.
func ReadFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	im, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return im, nil
}

// Write encodes im in the dump format.
func Write(w io.Writer, im *Image) error {
	bw := bufio.NewWriter(w)
	header := [headerWords]int32{int32(im.Width), int32(im.Height), int32(im.Frames), int32(im.Channels), typeFloat32}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write dump header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, im.Data); err != nil {
		return fmt.Errorf("write dump samples: %w", err)
	}
	return bw.Flush()
}
