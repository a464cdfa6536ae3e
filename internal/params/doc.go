// Package params defines darktable's per-stage parameter blocks and encodes
// them byte-for-byte.
//
// Every stage (rawprepare, temperature, highlights, exposure, sharpen,
// colorbalancergb, filmicrgb and the shared blendop block) is described by a
// Schema: an explicit ordered list of fields, each with a wire Type and a
// default. The order of that list is the order darktable's C struct lays the
// fields out in memory, and darktable reads the XMP history blob straight into
// that struct, so the schema is the wire contract. Declared byte lengths are
// checked against the computed schema size when the package initializes.
//
// Records are plain values: build one with Defaults, change fields with
// Record.Set, and serialize with Encode or ToHex. Nothing here performs I/O,
// and records that are not shared may be encoded concurrently.
//
// A disabled stage still needs a syntactically valid block because the
// history format cannot express "no parameters"; callers encode the stage's
// defaults and carry the enabled flag separately (see internal/pipeline).
package params
