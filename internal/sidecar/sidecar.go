package sidecar

import (
	"bytes"
	_ "embed"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/template"
	"time"

	"rawsweep/internal/pipeline"
)

//go:embed history.xmp.tmpl
var historyTemplateText string

var historyTemplate = template.Must(template.New("history").Parse(historyTemplateText))

const (
	darktableNS = "http://darktable.sf.net/"
	// historyEnd past the last item applies the whole history.
	historyEnd = 1000
)

// defaultBlend is darktable's plain blendop block (blend_cst 0), shared by
// the fixed stages.
const defaultBlend = "gz14eJxjYIAACQYYOOHEgAZY0QVwggZ7CB6pfNoAAE8gGQg="

// fixedItems are the stages this tool never reconfigures, with the exact
// blobs darktable 3.8 writes for them by default.
var fixedItems = map[string]Item{
	"demosaic": {Operation: "demosaic", Enabled: true, Version: 4, Params: "0000000000000000000000000500000001000000cdcc4c3e", BlendVersion: 11, BlendParams: defaultBlend},
	"colorin":  {Operation: "colorin", Enabled: true, Version: 7, Params: "gz48eJzjYhgFowABWAbaAaNgwAEANOwADw==", BlendVersion: 11, BlendParams: defaultBlend},
	"colorout": {Operation: "colorout", Enabled: true, Version: 5, Params: "gz35eJxjZBgFo4CBAQAEEAAC", BlendVersion: 11, BlendParams: defaultBlend},
	"gamma":    {Operation: "gamma", Enabled: true, Version: 1, Params: "0000000000000000", BlendVersion: 11, BlendParams: defaultBlend},
	"flip":     {Operation: "flip", Enabled: true, Version: 2, Params: "ffffffff", BlendVersion: 11, BlendParams: defaultBlend},
}

// HistoryOrder is the order history items are written in. darktable sorts
// them into pipeline order itself using iop_order_version.
var HistoryOrder = []string{
	"rawprepare",
	"demosaic",
	"colorin",
	"colorout",
	"gamma",
	"temperature",
	"highlights",
	"sharpen",
	"filmicrgb",
	"exposure",
	"flip",
	"colorbalancergb",
}

// Item is one darktable:history entry with attribute values already encoded.
type Item struct {
	Num          int
	Operation    string
	Enabled      bool
	Version      int
	Params       string
	BlendVersion int
	BlendParams  string
}

// Document is a complete history sidecar.
type Document struct {
	ImportTimestamp int64
	HistoryEnd      int
	Items           []Item
}

// Options controls attribute encoding.
type Options struct {
	// Compress writes blobs over 100 bytes in darktable's gzNN form.
	Compress bool
	// ImportTime stamps darktable:import_timestamp. Zero means now.
	ImportTime time.Time
}

// Build merges resolved pipeline entries with the fixed stages into a
// history document.
func Build(entries []pipeline.Entry, opts Options) (Document, error) {
	byOp := make(map[string]pipeline.Entry, len(entries))
	for _, e := range entries {
		byOp[e.Operation] = e
	}
	stamp := opts.ImportTime
	if stamp.IsZero() {
		stamp = time.Now()
	}
	doc := Document{ImportTimestamp: stamp.Unix(), HistoryEnd: historyEnd}
	for _, op := range HistoryOrder {
		if item, ok := fixedItems[op]; ok {
			item.Num = len(doc.Items)
			doc.Items = append(doc.Items, item)
			continue
		}
		e, ok := byOp[op]
		if !ok {
			return Document{}, fmt.Errorf("history is missing stage %s", op)
		}
		paramsText, err := EncodeAttribute(e.Params, opts.Compress)
		if err != nil {
			return Document{}, fmt.Errorf("%s params: %w", op, err)
		}
		blendText, err := EncodeAttribute(e.Blend, opts.Compress)
		if err != nil {
			return Document{}, fmt.Errorf("%s blend params: %w", op, err)
		}
		doc.Items = append(doc.Items, Item{
			Num:          len(doc.Items),
			Operation:    e.Operation,
			Enabled:      e.Enabled,
			Version:      e.Version,
			Params:       paramsText,
			BlendVersion: e.BlendVersion,
			BlendParams:  blendText,
		})
	}
	return doc, nil
}

// Render writes doc as XMP.
func Render(w io.Writer, doc Document) error {
	if err := historyTemplate.Execute(w, doc); err != nil {
		return fmt.Errorf("render sidecar: %w", err)
	}
	return nil
}

// WriteTemp renders doc into a new .xmp file under dir (the system temp
// directory when dir is empty) and returns its path. The caller removes it.
func WriteTemp(dir string, doc Document) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, doc); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, "rawsweep-*.xmp")
	if err != nil {
		return "", fmt.Errorf("create sidecar: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write sidecar: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close sidecar: %w", err)
	}
	return f.Name(), nil
}

// ReadHistory parses the darktable:history items of an XMP document.
// Attribute values are returned as written; use DecodeAttribute for blobs.
func ReadHistory(r io.Reader) ([]Item, error) {
	dec := xml.NewDecoder(r)
	var items []Item
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse sidecar: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "li" {
			continue
		}
		item, ok, err := itemFromAttrs(start.Attr)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func itemFromAttrs(attrs []xml.Attr) (Item, bool, error) {
	var item Item
	found := false
	for _, a := range attrs {
		if a.Name.Space != darktableNS {
			continue
		}
		var err error
		switch a.Name.Local {
		case "num":
			item.Num, err = strconv.Atoi(a.Value)
		case "operation":
			item.Operation = a.Value
			found = true
		case "enabled":
			item.Enabled = a.Value == "1"
		case "modversion":
			item.Version, err = strconv.Atoi(a.Value)
		case "params":
			item.Params = a.Value
		case "blendop_version":
			item.BlendVersion, err = strconv.Atoi(a.Value)
		case "blendop_params":
			item.BlendParams = a.Value
		}
		if err != nil {
			return Item{}, false, fmt.Errorf("history attribute %s=%q: %w", a.Name.Local, a.Value, err)
		}
	}
	return item, found, nil
}
