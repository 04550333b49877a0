package features

import (
	"github.com/rs/zerolog"

	"github.com/bnema/vidpipe/internal/domain/entity"
)

// Environment is the stream and output context a request is resolved in.
type Environment struct {
	Stream         entity.StreamFormat
	OutputWidth    int
	FullHDWidth    int
	DisableScaling bool
	PostProcOff    bool
}

// degradeOrder lists the fallbacks tried when a method is unsupported.
var degradeOrder = map[entity.InterlaceMethod][]entity.InterlaceMethod{
	entity.InterlaceTemporalSpatial:     {entity.InterlaceTemporal, entity.InterlaceBob},
	entity.InterlaceTemporalSpatialHalf: {entity.InterlaceTemporalHalf, entity.InterlaceBob},
	entity.InterlaceTemporal:            {entity.InterlaceBob},
	entity.InterlaceTemporalHalf:        {entity.InterlaceBob},
	entity.InterlaceInverseTelecine:     {entity.InterlaceTemporal, entity.InterlaceBob},
}

// Resolve intersects a request with capabilities. It never fails: anything
// unsupported is switched off with a warning.
func Resolve(logger *zerolog.Logger, caps *entity.Capabilities, req entity.FeatureRequest, env Environment) *entity.FeatureSet {
	set := &entity.FeatureSet{
		PostProcessing: req.PostProcessing && !env.PostProcOff,
		SkipChroma:     req.SkipChroma,
		Studio:         req.StudioLevels,
	}

	set.Interlace = resolveInterlace(logger, caps, req.Interlace, env)

	set.NoiseReduction = clamp(req.NoiseReduction, 0, 1)
	if set.NoiseReduction > 0 && !caps.Has(entity.FeatureNoiseReduction) {
		logger.Warn().Float64("requested", set.NoiseReduction).Msg("noise reduction unsupported, disabled")
		set.NoiseReduction = 0
	}

	set.Sharpness = clamp(req.Sharpness, -1, 1)
	if set.Sharpness != 0 && !caps.Has(entity.FeatureSharpness) {
		logger.Warn().Float64("requested", set.Sharpness).Msg("sharpness unsupported, disabled")
		set.Sharpness = 0
	}

	set.ScalingLevel = resolveScaling(logger, caps, req.ScalingLevel, env)

	set.Procamp = entity.Procamp{
		Brightness: clamp(req.Procamp.Brightness, -1, 1),
		Contrast:   clamp(req.Procamp.Contrast, 0, 10),
		Saturation: clamp(req.Procamp.Saturation, 0, 10),
		Hue:        clamp(req.Procamp.Hue, -3.14159, 3.14159),
	}
	set.Standard = entity.StandardForHeight(env.Stream.Height)
	set.CSCMatrix = entity.GenerateCSCMatrix(set.Standard, set.Procamp, set.Studio)
	return set
}

func resolveInterlace(logger *zerolog.Logger, caps *entity.Capabilities, m entity.InterlaceMethod, env Environment) entity.InterlaceMethod {
	if m == "" || m == entity.InterlaceAuto {
		if !env.Stream.Interlaced {
			return entity.InterlaceNone
		}
		fullHD := env.FullHDWidth > 0 && env.Stream.Width >= env.FullHDWidth
		switch {
		case !fullHD && caps.Has(entity.FeatureDeinterlaceTemporalSpatial):
			return entity.InterlaceTemporalSpatial
		case caps.Has(entity.FeatureDeinterlaceTemporal):
			return entity.InterlaceTemporal
		default:
			return entity.InterlaceBob
		}
	}

	if f, ok := m.RequiredFeature(); !ok || caps.Has(f) {
		return m
	}
	for _, fallback := range degradeOrder[m] {
		if f, ok := fallback.RequiredFeature(); !ok || caps.Has(f) {
			logger.Warn().Str("requested", string(m)).Str("using", string(fallback)).Msg("deinterlace method unsupported, degrading")
			return fallback
		}
	}
	return entity.InterlaceBob
}

func resolveScaling(logger *zerolog.Logger, caps *entity.Capabilities, level int, env Environment) int {
	if level <= 0 || env.DisableScaling {
		return 0
	}
	if level > entity.MaxScalingLevel {
		level = entity.MaxScalingLevel
	}
	if env.OutputWidth > 0 && env.Stream.Width >= env.OutputWidth {
		logger.Debug().Int("video_width", env.Stream.Width).Int("output_width", env.OutputWidth).Msg("no upscaling, hq scaling off")
		return 0
	}
	for l := level; l >= 1; l-- {
		if caps.Has(entity.ScalingFeature(l)) {
			if l != level {
				logger.Warn().Int("requested", level).Int("using", l).Msg("hq scaling level clamped")
			}
			return l
		}
	}
	logger.Warn().Int("requested", level).Msg("hq scaling unsupported, disabled")
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
