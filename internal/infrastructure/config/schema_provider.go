package config

import (
	"fmt"
	"strings"

	"github.com/bnema/vidpipe/internal/domain/entity"
)

// Section names for grouping config keys.
const (
	SectionVideo      = "Video"
	SectionLimits     = "Limits"
	SectionLogging    = "Logging"
	SectionSimulation = "Simulation"
)

// SchemaProvider documents every configuration key.
type SchemaProvider struct{}

// NewSchemaProvider creates a new SchemaProvider.
func NewSchemaProvider() *SchemaProvider {
	return &SchemaProvider{}
}

// GetSchema returns all configuration keys with their metadata.
func (p *SchemaProvider) GetSchema() []entity.ConfigKeyInfo {
	defaults := DefaultConfig()

	keys := make([]entity.ConfigKeyInfo, 0, 40)
	keys = append(keys, p.getVideoKeys(defaults)...)
	keys = append(keys, p.getLimitsKeys(defaults)...)
	keys = append(keys, p.getLoggingKeys(defaults)...)
	keys = append(keys, p.getSimulationKeys(defaults)...)
	return keys
}

func deinterlaceValues() []string {
	return []string{
		string(DeinterlaceAuto), string(DeinterlaceNone), string(DeinterlaceBob),
		string(DeinterlaceTemporal), string(DeinterlaceTemporalHalf),
		string(DeinterlaceTemporalSpatial), string(DeinterlaceTemporalSpatialHalf),
		string(DeinterlaceInverseTelecine),
	}
}

func (*SchemaProvider) getVideoKeys(defaults *Config) []entity.ConfigKeyInfo {
	v := defaults.Video
	return []entity.ConfigKeyInfo{
		{
			Key:         "video.deinterlace",
			Type:        "string",
			Default:     string(v.Deinterlace),
			Description: "Deinterlacer; unsupported methods degrade to the best available one",
			Values:      deinterlaceValues(),
			Section:     SectionVideo,
		},
		{
			Key:         "video.scaling_level",
			Type:        "int",
			Default:     fmt.Sprintf("%d", v.ScalingLevel),
			Description: "High-quality scaling level, applied only when upscaling below full HD",
			Range:       "0-9",
			Section:     SectionVideo,
		},
		{
			Key:         "video.noise_reduction",
			Type:        "float64",
			Default:     fmt.Sprintf("%.2f", v.NoiseReduction),
			Description: "Noise reduction strength; 0 disables it",
			Range:       "0.0-1.0",
			Section:     SectionVideo,
		},
		{
			Key:         "video.sharpness",
			Type:        "float64",
			Default:     fmt.Sprintf("%.2f", v.Sharpness),
			Description: "Sharpen (positive) or blur (negative)",
			Range:       "-1.0-1.0",
			Section:     SectionVideo,
		},
		{
			Key:         "video.post_processing",
			Type:        "bool",
			Default:     fmt.Sprintf("%t", v.PostProcessing),
			Description: "Master switch for deinterlacing, noise reduction, sharpness and scaling",
			Section:     SectionVideo,
		},
		{
			Key:         "video.skip_chroma_deinterlace",
			Type:        "bool",
			Default:     fmt.Sprintf("%t", v.SkipChromaDeinterlace),
			Description: "Deinterlace luma only",
			Section:     SectionVideo,
		},
		{
			Key:         "video.brightness",
			Type:        "float64",
			Default:     fmt.Sprintf("%.2f", v.Brightness),
			Description: "Procamp brightness offset",
			Range:       "-1.0-1.0",
			Section:     SectionVideo,
		},
		{
			Key:         "video.contrast",
			Type:        "float64",
			Default:     fmt.Sprintf("%.2f", v.Contrast),
			Description: "Procamp contrast multiplier",
			Range:       "0.0-10.0",
			Section:     SectionVideo,
		},
		{
			Key:         "video.saturation",
			Type:        "float64",
			Default:     fmt.Sprintf("%.2f", v.Saturation),
			Description: "Procamp saturation multiplier",
			Range:       "0.0-10.0",
			Section:     SectionVideo,
		},
		{
			Key:         "video.hue",
			Type:        "float64",
			Default:     fmt.Sprintf("%.2f", v.Hue),
			Description: "Procamp hue rotation in radians",
			Range:       "-3.15-3.15",
			Section:     SectionVideo,
		},
		{
			Key:         "video.studio_levels",
			Type:        "bool",
			Default:     fmt.Sprintf("%t", v.StudioLevels),
			Description: "Keep limited range output (16-235) in the color conversion",
			Section:     SectionVideo,
		},
		{
			Key:         "video.output_method",
			Type:        "string",
			Default:     string(v.OutputMethod),
			Description: "Preferred presentation path; auto tries interop RGB, interop YUV, then pixmap",
			Values:      []string{string(OutputAuto), string(OutputPixmap), string(OutputInteropRGB), string(OutputInteropYUV)},
			Section:     SectionVideo,
		},
		{
			Key:         "video.strict_interop",
			Type:        "bool",
			Default:     fmt.Sprintf("%t", v.StrictInterop),
			Description: "Panic on interop map/unmap bracket violations (debug builds)",
			Section:     SectionVideo,
		},
		{
			Key:         "video.tie_break",
			Type:        "string",
			Default:     string(v.TieBreak),
			Description: "Free surface choice among equally idle surfaces",
			Values:      []string{string(TieBreakLowestIndex), string(TieBreakMostRecent)},
			Section:     SectionVideo,
		},
		{
			Key:         "video.allow_frame_dropping",
			Type:        "bool",
			Default:     fmt.Sprintf("%t", v.AllowFrameDropping),
			Description: "Let the player skip rendering to catch up",
			Section:     SectionVideo,
		},
		{
			Key:         "video.recovery_attempts",
			Type:        "int",
			Default:     fmt.Sprintf("%d", v.RecoveryAttempts),
			Description: "Device rebuild attempts after a preemption before giving up",
			Range:       "1+",
			Section:     SectionVideo,
		},
		{
			Key:         "video.recovery_backoff_ms",
			Type:        "int",
			Default:     fmt.Sprintf("%d", v.RecoveryBackoffMs),
			Description: "Pause between rebuild attempts",
			Range:       "0+",
			Section:     SectionVideo,
		},
	}
}

func (*SchemaProvider) getLimitsKeys(defaults *Config) []entity.ConfigKeyInfo {
	l := defaults.Video.Limits
	key := func(name string, value int, desc string) entity.ConfigKeyInfo {
		return entity.ConfigKeyInfo{
			Key:         "video.limits." + name,
			Type:        "int",
			Default:     fmt.Sprintf("%d", value),
			Description: desc,
			Section:     SectionLimits,
		}
	}
	return []entity.ConfigKeyInfo{
		key("output_pictures", l.OutputPictures, "Size of the output picture arena"),
		key("flip_slots", l.FlipSlots, "Pictures the texture consumer can hold at once"),
		key("output_surfaces", l.OutputSurfaces, "Mixer output surfaces; caps the arena for mixed methods"),
		key("max_picture_queue", l.MaxPictureQueue, "Capacity of the mixer input queue"),
		key("max_video_surfaces", l.MaxVideoSurfaces, "Upper bound on decode surfaces"),
		key("full_hd_width", l.FullHDWidth, "Output width at which HQ scaling stops"),
	}
}

func (*SchemaProvider) getLoggingKeys(defaults *Config) []entity.ConfigKeyInfo {
	return []entity.ConfigKeyInfo{
		{
			Key:         "logging.level",
			Type:        "string",
			Default:     defaults.Logging.Level,
			Description: "Log verbosity (VIDPIPE_LOG_LEVEL)",
			Values:      []string{"trace", "debug", "info", "warn", "error"},
			Section:     SectionLogging,
		},
		{
			Key:         "logging.format",
			Type:        "string",
			Default:     defaults.Logging.Format,
			Description: "Log output format (VIDPIPE_LOG_FORMAT)",
			Values:      []string{"text", "json", "console"},
			Section:     SectionLogging,
		},
	}
}

func (*SchemaProvider) getSimulationKeys(defaults *Config) []entity.ConfigKeyInfo {
	s := defaults.Simulation
	features := make([]string, 0, len(entity.AllMixerFeatures()))
	for _, f := range entity.AllMixerFeatures() {
		features = append(features, string(f))
	}
	return []entity.ConfigKeyInfo{
		{
			Key:         "simulation.disabled_features",
			Type:        "[]string",
			Default:     "[" + strings.Join(s.DisabledFeatures, ", ") + "]",
			Description: "Mixer features the simulated device reports as unsupported",
			Values:      features,
			Section:     SectionSimulation,
		},
		{
			Key:         "simulation.max_scaling_level",
			Type:        "int",
			Default:     fmt.Sprintf("%d", s.MaxScalingLevel),
			Description: "Highest HQ scaling level the simulated device implements",
			Range:       "0-9",
			Section:     SectionSimulation,
		},
		{
			Key:         "simulation.render_latency_ms",
			Type:        "int",
			Default:     fmt.Sprintf("%d", s.RenderLatencyMs),
			Description: "Time each simulated mixer render takes",
			Range:       "0+",
			Section:     SectionSimulation,
		},
		{
			Key:         "simulation.output_width",
			Type:        "int",
			Default:     fmt.Sprintf("%d", s.OutputWidth),
			Description: "Render target width reported by the simulated consumer",
			Section:     SectionSimulation,
		},
		{
			Key:         "simulation.output_height",
			Type:        "int",
			Default:     fmt.Sprintf("%d", s.OutputHeight),
			Description: "Render target height reported by the simulated consumer",
			Section:     SectionSimulation,
		},
		{
			Key:         "simulation.methods",
			Type:        "[]string",
			Default:     "[" + strings.Join(s.Methods, ", ") + "]",
			Description: "Output methods the simulated consumer can register",
			Values:      []string{string(OutputPixmap), string(OutputInteropRGB), string(OutputInteropYUV)},
			Section:     SectionSimulation,
		},
	}
}
