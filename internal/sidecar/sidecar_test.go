package sidecar_test

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rawsweep/internal/params"
	"rawsweep/internal/pipeline"
	"rawsweep/internal/sidecar"
)

func TestDecodeAttributeMatchesBlendPresets(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		stage   params.Stage
	}{
		{"plain", "gz14eJxjYIAACQYYOOHEgAZY0QVwggZ7CB6pfNoAAE8gGQg=", params.Temperature},
		{"highlights", "gz13eJxjYGBgYARiCQYYOOHEgAZY0QVwggZ7CB6pfNoAAFDAGQk=", params.Highlights},
		{"sharpen", "gz13eJxjYGBgYAJiCQYYOOHEgAZY0QVwggZ7CB6pfNoAAFJgGQo=", params.Sharpen},
		{"scene", "gz10eJxjYGBgYAFiCQYYOOHEgAZY0QVwggZ7CB6pfOygYtaVAyCMi08IAAB/xiOk", params.Exposure},
		{"filmic", "gz10eJxjYGBgYAFiCQYYOOHEgAZY0QVwggZ7CB6pfOygYtaVAyCMi08IAAB/xiOk", params.FilmicRGB},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sidecar.DecodeAttribute(tc.payload)
			if err != nil {
				t.Fatalf("DecodeAttribute: %v", err)
			}
			want, err := params.Encode(params.BlendDefaults(tc.stage))
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("blend mismatch:\n got %x\nwant %x", got, want)
			}
		})
	}
}

func TestEncodeAttributeCompressesLargeBlobs(t *testing.T) {
	blend, _ := params.Encode(params.BlendDefaults(params.Exposure))
	text, err := sidecar.EncodeAttribute(blend, true)
	if err != nil {
		t.Fatalf("EncodeAttribute: %v", err)
	}
	if !strings.HasPrefix(text, "gz") {
		t.Fatalf("expected compressed form, got %q", text[:8])
	}
	back, err := sidecar.DecodeAttribute(text)
	if err != nil {
		t.Fatalf("DecodeAttribute: %v", err)
	}
	if !bytes.Equal(back, blend) {
		t.Fatal("compressed round trip changed the blob")
	}

	plain, _ := sidecar.EncodeAttribute(blend, false)
	if plain != hex.EncodeToString(blend) {
		t.Fatal("uncompressed form should be plain hex")
	}

	small, _ := params.Encode(params.Defaults(params.Temperature))
	text, _ = sidecar.EncodeAttribute(small, true)
	if text != "28d9b53f0000803f000000400000c07f" {
		t.Fatalf("small blob should stay hex, got %q", text)
	}
}

func TestDecodeAttributeErrors(t *testing.T) {
	for _, in := range []string{"zz", "gz", "gzxxAAAA", "gz10!!!!", "gz10AAAA"} {
		if _, err := sidecar.DecodeAttribute(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestBuildRenderAndReadBack(t *testing.T) {
	p := pipeline.Minimal()
	entries, err := p.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	doc, err := sidecar.Build(entries, sidecar.Options{Compress: true, ImportTime: time.Unix(1651274350, 0)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(doc.Items) != len(sidecar.HistoryOrder) {
		t.Fatalf("got %d items", len(doc.Items))
	}

	var buf bytes.Buffer
	if err := sidecar.Render(&buf, doc); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `darktable:import_timestamp="1651274350"`) {
		t.Fatal("missing import timestamp")
	}
	if !strings.Contains(out, `darktable:history_end="1000"`) {
		t.Fatal("missing history_end")
	}

	items, err := sidecar.ReadHistory(&buf)
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(items) != len(doc.Items) {
		t.Fatalf("read %d items", len(items))
	}
	for i, item := range items {
		if item.Num != i || item.Operation != sidecar.HistoryOrder[i] {
			t.Fatalf("item %d = %+v", i, item)
		}
		if item != doc.Items[i] {
			t.Fatalf("item %d changed in round trip:\n got %+v\nwant %+v", i, item, doc.Items[i])
		}
	}

	byOp := map[string]sidecar.Item{}
	for _, item := range items {
		byOp[item.Operation] = item
	}
	if !byOp["temperature"].Enabled || byOp["sharpen"].Enabled {
		t.Fatal("enable flags not carried into the sidecar")
	}
	if byOp["temperature"].Params != "28d9b53f0000803f000000400000c07f" {
		t.Fatalf("temperature params = %s", byOp["temperature"].Params)
	}
	filmic, err := sidecar.DecodeAttribute(byOp["filmicrgb"].Params)
	if err != nil {
		t.Fatalf("decode filmic: %v", err)
	}
	if len(filmic) != params.DeclaredByteLength(params.FilmicRGB) {
		t.Fatalf("filmic params %d bytes", len(filmic))
	}
	if !byOp["flip"].Enabled || byOp["flip"].Params != "ffffffff" {
		t.Fatalf("unexpected flip item %+v", byOp["flip"])
	}
}

func TestBuildRequiresEveryStage(t *testing.T) {
	entries, _ := pipeline.New().Resolve()
	if _, err := sidecar.Build(entries[:3], sidecar.Options{}); err == nil {
		t.Fatal("expected error for missing stages")
	}
}

func TestWriteTemp(t *testing.T) {
	entries, _ := pipeline.New().Resolve()
	doc, err := sidecar.Build(entries, sidecar.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	dir := t.TempDir()
	path, err := sidecar.WriteTemp(dir, doc)
	if err != nil {
		t.Fatalf("WriteTemp: %v", err)
	}
	if filepath.Dir(path) != dir || filepath.Ext(path) != ".xmp" {
		t.Fatalf("unexpected path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	if !strings.HasPrefix(string(data), "<?xml") {
		t.Fatal("sidecar does not start with an XML declaration")
	}
}
