package params

import (
	"fmt"
	"strings"
)

// Stage identifies one parameter block the encoder knows how to emit.
type Stage int

const (
	RawPrepare Stage = iota + 1
	Temperature
	Highlights
	Exposure
	Sharpen
	ColorBalanceRGB
	FilmicRGB
	// Blend is the per-stage blendop block, not a pipeline stage of its own.
	Blend
)

// Definition binds a stage to its darktable operation and wire layout.
type Definition struct {
	Stage      Stage
	Operation  string
	Version    int
	ByteLength int
	Schema     *Schema
}

func (s Stage) String() string {
	if def, ok := registry[s]; ok {
		return def.Operation
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

func f32(name string, def float32) Field { return Field{Name: name, Type: Float32, Default: def} }
func i32(name string, def int32) Field   { return Field{Name: name, Type: Int32, Default: def} }
func b32(name string, def bool) Field    { return Field{Name: name, Type: Bool32, Default: def} }

var rawPrepareSchema = NewSchema("rawprepare",
	i32("x", 0),
	i32("y", 0),
	i32("width", 0),
	i32("height", 0),
	Field{Name: "black_levels", Type: ArrayOf(Uint16, 4), Default: []uint16{0, 0, 0, 0}},
	// uint16 in darktable, padded to 4 bytes by struct alignment.
	i32("white_point", 0),
)

var temperatureSchema = NewSchema("temperature",
	f32("red", 1.420689582824707),
	f32("green", 1),
	f32("blue", 2),
	f32("g2", NaN()),
)

var highlightsSchema = NewSchema("highlights",
	i32("mode", 0),
	f32("blend_l", 1),
	f32("blend_c", 0),
	f32("blend_h", 0),
	f32("clip", 1),
)

var exposureSchema = NewSchema("exposure",
	i32("mode", 0),
	f32("black", 0),
	f32("exposure", 0),
	f32("deflicker_percentile", 50),
	f32("deflicker_target_level", -4),
	b32("compensate_exposure_bias", false),
)

var sharpenSchema = NewSchema("sharpen",
	f32("radius", 2),
	f32("amount", 0.5),
	f32("threshold", 0.5),
)

var filmicRGBSchema = NewSchema("filmicrgb",
	f32("grey_point_source", 18.45),
	f32("black_point_source", -7.75),
	f32("white_point_source", 4.400000095367432),
	f32("reconstruct_threshold", 3),
	f32("reconstruct_feather", 3),
	f32("reconstruct_bloom_vs_details", 100),
	f32("reconstruct_grey_vs_color", 100),
	f32("reconstruct_structure_vs_texture", 0),
	f32("security_factor", 0),
	f32("grey_point_target", 18.45),
	f32("black_point_target", 0.01517634),
	f32("white_point_target", 100),
	f32("output_power", 3.75882887840271),
	f32("latitude", 50),
	f32("contrast", 1.1),
	f32("saturation", 0),
	f32("balance", 0),
	f32("noise_level", 0.2),
	i32("preserve_color", 3),
	i32("version", 2),
	b32("auto_hardness", true),
	b32("custom_grey", false),
	i32("high_quality_reconstruction", 1),
	i32("noise_distribution", 1),
	i32("shadows", 2),
	i32("highlights", 2),
	b32("compensate_icc_black", false),
	i32("spline_version", 2),
)

var colorBalanceRGBSchema = NewSchema("colorbalancergb",
	// v1
	f32("shadows_y", 0),
	f32("shadows_c", 0),
	f32("shadows_h", 0),
	f32("midtones_y", 0),
	f32("midtones_c", 0),
	f32("midtones_h", 0),
	f32("highlights_y", 0),
	f32("highlights_c", 0),
	f32("highlights_h", 0),
	f32("global_y", 0),
	f32("global_c", 0),
	f32("global_h", 0),
	f32("shadows_weight", 1),
	f32("white_fulcrum", 0),
	f32("highlights_weight", 1),
	f32("chroma_shadows", 0),
	f32("chroma_highlights", 0),
	f32("chroma_global", 0),
	f32("chroma_midtones", 0),
	f32("saturation_global", 0),
	f32("saturation_highlights", 0),
	f32("saturation_midtones", 0),
	f32("saturation_shadows", 0),
	f32("hue_angle", 0),
	// v2
	f32("brilliance_global", 0),
	f32("brilliance_highlights", 0),
	f32("brilliance_midtones", 0),
	f32("brilliance_shadows", 0),
	// v3
	f32("mask_grey_fulcrum", 0.1845),
	// v4
	f32("vibrance", 0),
	f32("grey_fulcrum", 0.1845),
	f32("contrast", 0),
)

var blendSchema = NewSchema("blendop",
	i32("mask_mode", 0),
	i32("blend_cst", BlendCSNone),
	i32("blend_mode", BlendModeNormalBounded),
	f32("blend_parameter", 0),
	f32("opacity", 100),
	i32("mask_combine", 0),
	i32("mask_id", 0),
	i32("blendif", 0),
	f32("feathering_radius", 0),
	i32("feathering_guide", MaskGuideInAfterBlur),
	f32("blur_radius", 0),
	f32("contrast", 0),
	f32("brightness", 0),
	f32("details", 0),
	Field{Name: "reserved", Type: ArrayOf(Int32, 3), Default: []int32{0, 0, 0}},
	Field{Name: "blendif_parameters", Type: ArrayOf(Float32, 4*blendifChannels), Default: defaultBlendifParameters()},
	Field{Name: "blendif_boost_factors", Type: ArrayOf(Float32, blendifChannels), Default: make([]float32, blendifChannels)},
	Field{Name: "raster_mask_source", Type: Bytes(20), Default: make([]byte, 20)},
	i32("raster_mask_instance", 0),
	i32("raster_mask_id", 0),
	b32("raster_mask_invert", false),
)

var (
	registry = map[Stage]Definition{}
	order    []Stage
)

func register(stage Stage, op string, version, length int, schema *Schema) {
	if schema.Size() != length {
		panic(fmt.Sprintf("params: %s schema is %d bytes, declared %d", op, schema.Size(), length))
	}
	registry[stage] = Definition{Stage: stage, Operation: op, Version: version, ByteLength: length, Schema: schema}
	order = append(order, stage)
}

func init() {
	register(RawPrepare, "rawprepare", 1, 28, rawPrepareSchema)
	register(Temperature, "temperature", 3, 16, temperatureSchema)
	register(Highlights, "highlights", 2, 20, highlightsSchema)
	register(Exposure, "exposure", 6, 24, exposureSchema)
	register(Sharpen, "sharpen", 1, 12, sharpenSchema)
	register(ColorBalanceRGB, "colorbalancergb", 4, 128, colorBalanceRGBSchema)
	register(FilmicRGB, "filmicrgb", 5, 112, filmicRGBSchema)
	register(Blend, "blendop", BlendVersion, 420, blendSchema)
}

// Definition returns the registry entry of s.
func (s Stage) Definition() (Definition, bool) {
	def, ok := registry[s]
	return def, ok
}

// Stages lists every registered block in pipeline order, Blend last.
func Stages() []Stage {
	return append([]Stage(nil), order...)
}

// Lookup resolves a stage from its darktable operation name (case-insensitive).
func Lookup(name string) (Stage, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range order {
		if registry[s].Operation == name {
			return s, true
		}
	}
	return 0, false
}

// SchemaFor returns the schema of stage, or nil for an unknown stage.
func SchemaFor(stage Stage) *Schema {
	return registry[stage].Schema
}

// Defaults returns a fresh record holding the canonical defaults of stage.
// Records returned by separate calls never share mutable state.
func Defaults(stage Stage) *Record {
	def, ok := registry[stage]
	if !ok {
		panic(fmt.Sprintf("params: unknown stage %d", int(stage)))
	}
	return def.Schema.New()
}

// DeclaredByteLength reports the fixed encoded size of stage, or 0 for an
// unknown stage.
func DeclaredByteLength(stage Stage) int {
	return registry[stage].ByteLength
}
