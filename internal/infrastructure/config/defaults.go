package config

// Default configuration constants
const (
	defaultOutputPictures   = 11
	defaultFlipSlots        = 4
	defaultOutputSurfaces   = 11
	defaultMaxPictureQueue  = 20
	defaultMaxVideoSurfaces = 32
	defaultFullHDWidth      = 1920

	defaultRecoveryAttempts  = 3
	defaultRecoveryBackoffMs = 100

	defaultOutputWidth  = 1920
	defaultOutputHeight = 1080
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Video: VideoConfig{
			Deinterlace:        DeinterlaceAuto,
			PostProcessing:     true,
			Contrast:           1,
			Saturation:         1,
			OutputMethod:       OutputAuto,
			TieBreak:           TieBreakLowestIndex,
			AllowFrameDropping: true,
			RecoveryAttempts:   defaultRecoveryAttempts,
			RecoveryBackoffMs:  defaultRecoveryBackoffMs,
			Limits: LimitsConfig{
				OutputPictures:   defaultOutputPictures,
				FlipSlots:        defaultFlipSlots,
				OutputSurfaces:   defaultOutputSurfaces,
				MaxPictureQueue:  defaultMaxPictureQueue,
				MaxVideoSurfaces: defaultMaxVideoSurfaces,
				FullHDWidth:      defaultFullHDWidth,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Simulation: SimulationConfig{
			DisabledFeatures: []string{},
			MaxScalingLevel:  9,
			OutputWidth:      defaultOutputWidth,
			OutputHeight:     defaultOutputHeight,
			Methods:          []string{string(OutputInteropRGB), string(OutputInteropYUV), string(OutputPixmap)},
		},
	}
}
