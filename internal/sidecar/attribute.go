package sidecar

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// compressThreshold matches darktable's "only large entries" policy: blobs up
// to this many bytes stay plain hex.
const compressThreshold = 100

// EncodeAttribute renders a parameter blob the way darktable writes
// darktable:params and darktable:blendop_params. With compress set, blobs
// larger than 100 bytes become "gzNN" followed by base64 zlib data, where NN
// is the compression factor capped at 99.
func EncodeAttribute(data []byte, compress bool) (string, error) {
	if !compress || len(data) <= compressThreshold {
		return hex.EncodeToString(data), nil
	}
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return "", fmt.Errorf("create zlib writer: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		return "", fmt.Errorf("compress params: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress params: %w", err)
	}
	factor := min(len(data)/buf.Len()+1, 99)
	return fmt.Sprintf("gz%02d%s", factor, base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// DecodeAttribute reverses EncodeAttribute for both the hex and gzNN forms.
func DecodeAttribute(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "gz") {
		data, err := hex.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("decode hex attribute: %w", err)
		}
		return data, nil
	}
	if len(text) < 4 {
		return nil, fmt.Errorf("compressed attribute %q too short", text)
	}
	if _, err := strconv.Atoi(text[2:4]); err != nil {
		return nil, fmt.Errorf("compressed attribute factor %q: %w", text[2:4], err)
	}
	raw, err := base64.StdEncoding.DecodeString(text[4:])
	if err != nil {
		return nil, fmt.Errorf("decode base64 attribute: %w", err)
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open zlib stream: %w", err)
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("inflate attribute: %w", err)
	}
	return data, nil
}
