package config

import (
	"fmt"
	"strings"

	"github.com/bnema/vidpipe/internal/domain/entity"
)

// validateConfig performs comprehensive validation of configuration values
func validateConfig(config *Config) error {
	var validationErrors []string

	validationErrors = append(validationErrors, validateVideo(config)...)
	validationErrors = append(validationErrors, validateLimits(config)...)
	validationErrors = append(validationErrors, validateLogging(config)...)
	validationErrors = append(validationErrors, validateSimulation(config)...)

	if len(validationErrors) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(validationErrors, "\n  - "))
	}
	return nil
}

func validateVideo(config *Config) []string {
	var validationErrors []string
	v := config.Video
	if v.ScalingLevel < 0 || v.ScalingLevel > entity.MaxScalingLevel {
		validationErrors = append(validationErrors, fmt.Sprintf("video.scaling_level must be between 0 and %d", entity.MaxScalingLevel))
	}
	if v.NoiseReduction < 0 || v.NoiseReduction > 1 {
		validationErrors = append(validationErrors, "video.noise_reduction must be between 0.0 and 1.0")
	}
	if v.Sharpness < -1 || v.Sharpness > 1 {
		validationErrors = append(validationErrors, "video.sharpness must be between -1.0 and 1.0")
	}
	if v.Brightness < -1 || v.Brightness > 1 {
		validationErrors = append(validationErrors, "video.brightness must be between -1.0 and 1.0")
	}
	if v.Contrast < 0 || v.Contrast > 10 {
		validationErrors = append(validationErrors, "video.contrast must be between 0.0 and 10.0")
	}
	if v.Saturation < 0 || v.Saturation > 10 {
		validationErrors = append(validationErrors, "video.saturation must be between 0.0 and 10.0")
	}
	if v.RecoveryAttempts < 1 {
		validationErrors = append(validationErrors, "video.recovery_attempts must be at least 1")
	}
	if v.RecoveryBackoffMs < 0 {
		validationErrors = append(validationErrors, "video.recovery_backoff_ms must be non-negative")
	}
	return validationErrors
}

// validateLimits applies the pool sizing rules the pipeline itself enforces.
func validateLimits(config *Config) []string {
	l := config.Video.Limits
	var validationErrors []string
	if l.FullHDWidth < 1 {
		validationErrors = append(validationErrors, "video.limits.full_hd_width must be positive")
	}
	if l.OutputSurfaces < 1 {
		validationErrors = append(validationErrors, "video.limits.output_surfaces must be positive")
	}
	pixmap := min(l.OutputPictures, l.OutputSurfaces)
	for _, c := range []struct {
		method string
		n      int
	}{{"mixer", pixmap}, {"interop_yuv", l.OutputPictures}} {
		if l.FlipSlots < 1 || l.FlipSlots >= c.n {
			validationErrors = append(validationErrors,
				fmt.Sprintf("video.limits.flip_slots must be between 1 and %d for %s output", c.n-1, c.method))
		}
		if c.n > l.MaxPictureQueue {
			validationErrors = append(validationErrors,
				fmt.Sprintf("video.limits.max_picture_queue must be at least %d for %s output", c.n, c.method))
		}
	}
	if l.MaxVideoSurfaces < entity.ReferenceWindowSize+1 {
		validationErrors = append(validationErrors,
			fmt.Sprintf("video.limits.max_video_surfaces must be at least %d", entity.ReferenceWindowSize+1))
	}
	return validationErrors
}

func validateLogging(config *Config) []string {
	var validationErrors []string
	switch config.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		validationErrors = append(validationErrors,
			fmt.Sprintf("logging.level must be one of trace, debug, info, warn, error (got %q)", config.Logging.Level))
	}
	switch config.Logging.Format {
	case "text", "json", "console":
	default:
		validationErrors = append(validationErrors,
			fmt.Sprintf("logging.format must be one of text, json, console (got %q)", config.Logging.Format))
	}
	return validationErrors
}

func validateSimulation(config *Config) []string {
	var validationErrors []string
	s := config.Simulation
	known := make(map[string]bool)
	for _, f := range entity.AllMixerFeatures() {
		known[string(f)] = true
	}
	for _, f := range s.DisabledFeatures {
		if !known[f] {
			validationErrors = append(validationErrors, fmt.Sprintf("simulation.disabled_features: unknown feature %q", f))
		}
	}
	for _, meth := range s.Methods {
		switch OutputMethod(meth) {
		case OutputPixmap, OutputInteropRGB, OutputInteropYUV:
		default:
			validationErrors = append(validationErrors, fmt.Sprintf("simulation.methods: unknown output method %q", meth))
		}
	}
	if s.MaxScalingLevel < 0 || s.MaxScalingLevel > entity.MaxScalingLevel {
		validationErrors = append(validationErrors, fmt.Sprintf("simulation.max_scaling_level must be between 0 and %d", entity.MaxScalingLevel))
	}
	if s.RenderLatencyMs < 0 {
		validationErrors = append(validationErrors, "simulation.render_latency_ms must be non-negative")
	}
	if s.OutputWidth < 1 || s.OutputHeight < 1 {
		validationErrors = append(validationErrors, "simulation.output_width and output_height must be positive")
	}
	return validationErrors
}
