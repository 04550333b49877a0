package config

import (
	"time"

	"github.com/bnema/vidpipe/internal/domain/entity"
	"github.com/bnema/vidpipe/internal/infrastructure/simdevice"
	"github.com/bnema/vidpipe/internal/video"
	"github.com/bnema/vidpipe/internal/video/surfacepool"
)

// FeatureRequest maps the video section to what the negotiator consumes.
func (c *Config) FeatureRequest() entity.FeatureRequest {
	v := c.Video
	return entity.FeatureRequest{
		Interlace:      entity.ParseInterlaceMethod(string(v.Deinterlace)),
		ScalingLevel:   v.ScalingLevel,
		NoiseReduction: v.NoiseReduction,
		Sharpness:      v.Sharpness,
		PostProcessing: v.PostProcessing,
		SkipChroma:     v.SkipChromaDeinterlace,
		Procamp: entity.Procamp{
			Brightness: v.Brightness,
			Contrast:   v.Contrast,
			Saturation: v.Saturation,
			Hue:        v.Hue,
		},
		StudioLevels: v.StudioLevels,
	}
}

// Limits returns the pool sizes.
func (c *Config) Limits() video.Limits {
	l := c.Video.Limits
	return video.Limits{
		OutputPictures:   l.OutputPictures,
		FlipSlots:        l.FlipSlots,
		OutputSurfaces:   l.OutputSurfaces,
		MaxPictureQueue:  l.MaxPictureQueue,
		MaxVideoSurfaces: l.MaxVideoSurfaces,
		FullHDWidth:      l.FullHDWidth,
	}
}

// DecoderOptions builds the pipeline options.
func (c *Config) DecoderOptions() video.Options {
	opts := video.DefaultOptions()
	opts.Limits = c.Limits()
	opts.Features = c.FeatureRequest()
	opts.OutputMethod = entity.ParseOutputMethod(string(c.Video.OutputMethod))
	opts.StrictInterop = c.Video.StrictInterop
	opts.TieBreak = surfacepool.ParseTieBreak(string(c.Video.TieBreak))
	opts.RecoveryAttempts = c.Video.RecoveryAttempts
	opts.RecoveryBackoff = time.Duration(c.Video.RecoveryBackoffMs) * time.Millisecond
	return opts
}

// SimulatedDevice returns the simulated GPU configuration.
func (c *Config) SimulatedDevice() simdevice.Config {
	cfg := simdevice.DefaultConfig()
	for _, f := range c.Simulation.DisabledFeatures {
		cfg.Features[entity.MixerFeature(f)] = false
	}
	cfg.MaxScalingLevel = c.Simulation.MaxScalingLevel
	cfg.RenderLatency = time.Duration(c.Simulation.RenderLatencyMs) * time.Millisecond
	return cfg
}

// SimulatedMethods returns the output methods the simulated consumer accepts.
func (c *Config) SimulatedMethods() []entity.OutputMethod {
	methods := make([]entity.OutputMethod, 0, len(c.Simulation.Methods))
	for _, m := range c.Simulation.Methods {
		if parsed := entity.ParseOutputMethod(m); parsed != entity.OutputNone {
			methods = append(methods, parsed)
		}
	}
	return methods
}
