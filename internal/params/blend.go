package params

import "fmt"

// Blend colour spaces (dt_develop_blend_colorspace_t).
const (
	BlendCSNone     = 0
	BlendCSRaw      = 1
	BlendCSLab      = 2
	BlendCSRGBDisp  = 3
	BlendCSRGBScene = 4
)

const (
	// BlendModeNormalBounded is DEVELOP_BLEND_NORMAL2.
	BlendModeNormalBounded = 0x18
	// MaskGuideInAfterBlur is DEVELOP_MASK_GUIDE_IN_AFTER_BLUR.
	MaskGuideInAfterBlur = 5
	// BlendVersion is the blendop_version written next to every history item.
	BlendVersion = 11
)

const blendifChannels = 16

// sceneBoost is darktable's default boost for the scene-referred RGB
// channels, log2(0.01).
const sceneBoost float32 = -6.64385619

// Boost factor slots raised by the scene-referred preset: the in/out pairs of
// the first and fifth channel groups.
var sceneBoostSlots = []int{8, 9, 12, 13}

func defaultBlendifParameters() []float32 {
	out := make([]float32, 4*blendifChannels)
	for i := 0; i < blendifChannels; i++ {
		out[4*i+2] = 1
		out[4*i+3] = 1
	}
	return out
}

// BlendDefaults returns the blendop record darktable writes for stage when
// the stage is applied with its default, unmasked blending.
func BlendDefaults(stage Stage) *Record {
	r := blendSchema.New()
	switch stage {
	case Highlights:
		r.mustSet("blend_cst", int32(BlendCSRaw))
	case Sharpen:
		r.mustSet("blend_cst", int32(BlendCSLab))
	case Exposure, FilmicRGB, ColorBalanceRGB:
		r.mustSet("blend_cst", int32(BlendCSRGBScene))
		boost := make([]float32, blendifChannels)
		for _, slot := range sceneBoostSlots {
			boost[slot] = sceneBoost
		}
		r.mustSet("blendif_boost_factors", boost)
	}
	return r
}

// mustSet is Set for values fixed at compile time; a failure is a schema bug.
func (r *Record) mustSet(name string, value any) {
	if err := r.Set(name, value); err != nil {
		panic(fmt.Sprintf("params: set %s: %v", name, err))
	}
}
