package entity

import "fmt"

// MixerFeature is a post-processing stage the hardware mixer may implement.
type MixerFeature string

const (
	FeatureDeinterlaceTemporal        MixerFeature = "deinterlace_temporal"
	FeatureDeinterlaceTemporalSpatial MixerFeature = "deinterlace_temporal_spatial"
	FeatureInverseTelecine            MixerFeature = "inverse_telecine"
	FeatureNoiseReduction             MixerFeature = "noise_reduction"
	FeatureSharpness                  MixerFeature = "sharpness"
)

// MaxScalingLevel is the highest high-quality scaling level a mixer can expose.
const MaxScalingLevel = 9

// ScalingFeature returns the feature for high-quality scaling at level 1-9.
func ScalingFeature(level int) MixerFeature {
	return MixerFeature(fmt.Sprintf("hq_scaling_l%d", level))
}

// AllMixerFeatures lists every feature the negotiator queries, scaling levels included.
func AllMixerFeatures() []MixerFeature {
	features := []MixerFeature{
		FeatureDeinterlaceTemporal,
		FeatureDeinterlaceTemporalSpatial,
		FeatureInverseTelecine,
		FeatureNoiseReduction,
		FeatureSharpness,
	}
	for l := 1; l <= MaxScalingLevel; l++ {
		features = append(features, ScalingFeature(l))
	}
	return features
}

// InterlaceMethod selects how interlaced content is turned into progressive output.
type InterlaceMethod string

const (
	InterlaceAuto                InterlaceMethod = "auto"
	InterlaceNone                InterlaceMethod = "none"
	InterlaceBob                 InterlaceMethod = "bob"
	InterlaceTemporal            InterlaceMethod = "temporal"
	InterlaceTemporalHalf        InterlaceMethod = "temporal_half"
	InterlaceTemporalSpatial     InterlaceMethod = "temporal_spatial"
	InterlaceTemporalSpatialHalf InterlaceMethod = "temporal_spatial_half"
	InterlaceInverseTelecine     InterlaceMethod = "inverse_telecine"
)

// ParseInterlaceMethod normalizes a config string, falling back to auto.
func ParseInterlaceMethod(s string) InterlaceMethod {
	switch m := InterlaceMethod(s); m {
	case InterlaceNone, InterlaceBob, InterlaceTemporal, InterlaceTemporalHalf,
		InterlaceTemporalSpatial, InterlaceTemporalSpatialHalf, InterlaceInverseTelecine:
		return m
	default:
		return InterlaceAuto
	}
}

// RequiredFeature returns the mixer feature a method depends on, if any.
// Bob and none are always available.
func (m InterlaceMethod) RequiredFeature() (MixerFeature, bool) {
	switch m {
	case InterlaceTemporal, InterlaceTemporalHalf:
		return FeatureDeinterlaceTemporal, true
	case InterlaceTemporalSpatial, InterlaceTemporalSpatialHalf:
		return FeatureDeinterlaceTemporalSpatial, true
	case InterlaceInverseTelecine:
		return FeatureInverseTelecine, true
	default:
		return "", false
	}
}

// Temporal reports whether the method reads past and future fields.
func (m InterlaceMethod) Temporal() bool {
	_, ok := m.RequiredFeature()
	return ok
}

// FieldRate reports whether the method emits one picture per field.
func (m InterlaceMethod) FieldRate() bool {
	switch m {
	case InterlaceBob, InterlaceTemporal, InterlaceTemporalSpatial:
		return true
	default:
		return false
	}
}

// FeatureRequest is what the user configured. Values are hints; the
// negotiator degrades anything the hardware lacks.
type FeatureRequest struct {
	Interlace      InterlaceMethod
	ScalingLevel   int
	NoiseReduction float64
	Sharpness      float64
	PostProcessing bool
	SkipChroma     bool
	Procamp        Procamp
	StudioLevels   bool
}

// DefaultFeatureRequest mirrors the out-of-the-box video settings.
func DefaultFeatureRequest() FeatureRequest {
	return FeatureRequest{
		Interlace:      InterlaceAuto,
		PostProcessing: true,
		Procamp:        DefaultProcamp(),
	}
}

// Capabilities is the snapshot of what the current device reported.
type Capabilities struct {
	Features        map[MixerFeature]bool
	Decoders        map[DecoderProfile]DecoderCaps
	MaxScalingLevel int
}

// Has reports whether the snapshot lists a feature as supported.
func (c *Capabilities) Has(f MixerFeature) bool {
	if c == nil {
		return false
	}
	return c.Features[f]
}

// FeatureSet is the negotiated, read-only configuration the mixer applies.
type FeatureSet struct {
	Version uint64

	Interlace      InterlaceMethod
	NoiseReduction float64
	Sharpness      float64
	ScalingLevel   int
	PostProcessing bool
	SkipChroma     bool

	Procamp   Procamp
	Standard  ColorStandard
	Studio    bool
	CSCMatrix CSCMatrix
}

// Temporal reports whether rendering needs future frames in the window.
func (f *FeatureSet) Temporal() bool {
	return f != nil && f.PostProcessing && f.Interlace.Temporal()
}

// FieldRate reports whether each interlaced frame yields two pictures.
func (f *FeatureSet) FieldRate() bool {
	return f != nil && f.PostProcessing && f.Interlace.FieldRate()
}

// Lookahead is the number of future frames that must be queued before the
// current frame can be mixed.
func (f *FeatureSet) Lookahead() int {
	if f.Temporal() {
		return 2
	}
	return 0
}

// Enables returns the on/off map handed to the mixer.
func (f *FeatureSet) Enables() map[MixerFeature]bool {
	enables := make(map[MixerFeature]bool, len(AllMixerFeatures()))
	for _, feat := range AllMixerFeatures() {
		enables[feat] = false
	}
	if f == nil || !f.PostProcessing {
		return enables
	}
	if feat, ok := f.Interlace.RequiredFeature(); ok {
		enables[feat] = true
	}
	enables[FeatureNoiseReduction] = f.NoiseReduction > 0
	enables[FeatureSharpness] = f.Sharpness != 0
	if f.ScalingLevel > 0 {
		enables[ScalingFeature(f.ScalingLevel)] = true
	}
	return enables
}

// MixerAttributes are the tunables applied alongside feature enables.
type MixerAttributes struct {
	NoiseReduction float64
	Sharpness      float64
	SkipChroma     bool
	CSCMatrix      CSCMatrix
}

// Attributes returns the attribute values for the mixer.
func (f *FeatureSet) Attributes() MixerAttributes {
	return MixerAttributes{
		NoiseReduction: f.NoiseReduction,
		Sharpness:      f.Sharpness,
		SkipChroma:     f.SkipChroma,
		CSCMatrix:      f.CSCMatrix,
	}
}
