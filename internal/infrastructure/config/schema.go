// Package config loads the vidpipe configuration with viper: TOML file,
// VIDPIPE_* environment overrides, defaults, validation and live reload.
package config

// File permission constants
const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Config represents the complete configuration for vidpipe.
type Config struct {
	// Video holds the pipeline feature requests and pool limits.
	Video   VideoConfig   `mapstructure:"video" toml:"video" json:"video"`
	Logging LoggingConfig `mapstructure:"logging" toml:"logging" json:"logging"`
	// Simulation configures the software device the CLI runs against.
	Simulation SimulationConfig `mapstructure:"simulation" toml:"simulation" json:"simulation"`
}

// DeinterlaceMode is the configured deinterlacer.
type DeinterlaceMode string

const (
	DeinterlaceAuto                DeinterlaceMode = "auto"
	DeinterlaceNone                DeinterlaceMode = "none"
	DeinterlaceBob                 DeinterlaceMode = "bob"
	DeinterlaceTemporal            DeinterlaceMode = "temporal"
	DeinterlaceTemporalHalf        DeinterlaceMode = "temporal_half"
	DeinterlaceTemporalSpatial     DeinterlaceMode = "temporal_spatial"
	DeinterlaceTemporalSpatialHalf DeinterlaceMode = "temporal_spatial_half"
	DeinterlaceInverseTelecine     DeinterlaceMode = "inverse_telecine"
)

// OutputMethod is the configured presentation path.
type OutputMethod string

const (
	OutputAuto       OutputMethod = "auto"
	OutputPixmap     OutputMethod = "pixmap"
	OutputInteropRGB OutputMethod = "interop_rgb"
	OutputInteropYUV OutputMethod = "interop_yuv"
)

// TieBreak names the free-surface selection policy.
type TieBreak string

const (
	TieBreakLowestIndex TieBreak = "lowest-index"
	TieBreakMostRecent  TieBreak = "most-recent"
)

// VideoConfig controls mixer features and output selection.
type VideoConfig struct {
	Deinterlace DeinterlaceMode `mapstructure:"deinterlace" toml:"deinterlace" json:"deinterlace" jsonschema:"enum=auto,enum=none,enum=bob,enum=temporal,enum=temporal_half,enum=temporal_spatial,enum=temporal_spatial_half,enum=inverse_telecine"`
	// ScalingLevel requests high-quality scaling 0-9. 0 disables it.
	ScalingLevel   int     `mapstructure:"scaling_level" toml:"scaling_level" json:"scaling_level" jsonschema:"minimum=0,maximum=9"`
	NoiseReduction float64 `mapstructure:"noise_reduction" toml:"noise_reduction" json:"noise_reduction" jsonschema:"minimum=0,maximum=1"`
	Sharpness      float64 `mapstructure:"sharpness" toml:"sharpness" json:"sharpness" jsonschema:"minimum=-1,maximum=1"`
	PostProcessing bool    `mapstructure:"post_processing" toml:"post_processing" json:"post_processing"`
	// SkipChromaDeinterlace deinterlaces luma only.
	SkipChromaDeinterlace bool    `mapstructure:"skip_chroma_deinterlace" toml:"skip_chroma_deinterlace" json:"skip_chroma_deinterlace"`
	Brightness            float64 `mapstructure:"brightness" toml:"brightness" json:"brightness" jsonschema:"minimum=-1,maximum=1"`
	Contrast              float64 `mapstructure:"contrast" toml:"contrast" json:"contrast" jsonschema:"minimum=0,maximum=10"`
	Saturation            float64 `mapstructure:"saturation" toml:"saturation" json:"saturation" jsonschema:"minimum=0,maximum=10"`
	Hue                   float64 `mapstructure:"hue" toml:"hue" json:"hue" jsonschema:"minimum=-3.15,maximum=3.15"`
	// StudioLevels keeps the 16-235 range instead of expanding to full range.
	StudioLevels bool `mapstructure:"studio_levels" toml:"studio_levels" json:"studio_levels"`

	OutputMethod OutputMethod `mapstructure:"output_method" toml:"output_method" json:"output_method" jsonschema:"enum=auto,enum=pixmap,enum=interop_rgb,enum=interop_yuv"`
	// StrictInterop panics on map/unmap bracket violations instead of logging.
	StrictInterop bool     `mapstructure:"strict_interop" toml:"strict_interop" json:"strict_interop"`
	TieBreak      TieBreak `mapstructure:"tie_break" toml:"tie_break" json:"tie_break" jsonschema:"enum=lowest-index,enum=most-recent"`
	// AllowFrameDropping lets the player put the mixer in drop state.
	AllowFrameDropping bool `mapstructure:"allow_frame_dropping" toml:"allow_frame_dropping" json:"allow_frame_dropping"`

	RecoveryAttempts  int `mapstructure:"recovery_attempts" toml:"recovery_attempts" json:"recovery_attempts" jsonschema:"minimum=1"`
	RecoveryBackoffMs int `mapstructure:"recovery_backoff_ms" toml:"recovery_backoff_ms" json:"recovery_backoff_ms" jsonschema:"minimum=0"`

	Limits LimitsConfig `mapstructure:"limits" toml:"limits" json:"limits"`
}

// LimitsConfig sizes the fixed pools.
type LimitsConfig struct {
	OutputPictures   int `mapstructure:"output_pictures" toml:"output_pictures" json:"output_pictures" jsonschema:"minimum=2"`
	FlipSlots        int `mapstructure:"flip_slots" toml:"flip_slots" json:"flip_slots" jsonschema:"minimum=1"`
	OutputSurfaces   int `mapstructure:"output_surfaces" toml:"output_surfaces" json:"output_surfaces" jsonschema:"minimum=2"`
	MaxPictureQueue  int `mapstructure:"max_picture_queue" toml:"max_picture_queue" json:"max_picture_queue" jsonschema:"minimum=2"`
	MaxVideoSurfaces int `mapstructure:"max_video_surfaces" toml:"max_video_surfaces" json:"max_video_surfaces" jsonschema:"minimum=6"`
	// FullHDWidth is the output width at which HQ scaling stops applying.
	FullHDWidth int `mapstructure:"full_hd_width" toml:"full_hd_width" json:"full_hd_width" jsonschema:"minimum=1"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" toml:"level" json:"level" jsonschema:"enum=trace,enum=debug,enum=info,enum=warn,enum=error"`
	Format string `mapstructure:"format" toml:"format" json:"format" jsonschema:"enum=text,enum=json,enum=console"`
}

// SimulationConfig describes the simulated GPU.
type SimulationConfig struct {
	// DisabledFeatures lists mixer features the device reports as missing.
	DisabledFeatures []string `mapstructure:"disabled_features" toml:"disabled_features" json:"disabled_features"`
	MaxScalingLevel  int      `mapstructure:"max_scaling_level" toml:"max_scaling_level" json:"max_scaling_level" jsonschema:"minimum=0,maximum=9"`
	RenderLatencyMs  int      `mapstructure:"render_latency_ms" toml:"render_latency_ms" json:"render_latency_ms" jsonschema:"minimum=0"`
	OutputWidth      int      `mapstructure:"output_width" toml:"output_width" json:"output_width" jsonschema:"minimum=1"`
	OutputHeight     int      `mapstructure:"output_height" toml:"output_height" json:"output_height" jsonschema:"minimum=1"`
	// Methods restricts the output methods the simulated renderer accepts.
	Methods []string `mapstructure:"methods" toml:"methods" json:"methods"`
}
