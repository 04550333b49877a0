package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateConfig_Defaults(t *testing.T) {
	assert.NoError(t, validateConfig(DefaultConfig()))
}

func TestValidateLimits(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LimitsConfig)
		want   string
	}{
		{"ring too large for mixer arena", func(l *LimitsConfig) { l.OutputSurfaces = 4 }, "flip_slots must be between 1 and 3 for mixer output"},
		{"no ring", func(l *LimitsConfig) { l.FlipSlots = 0 }, "flip_slots must be between 1"},
		{"queue shorter than arena", func(l *LimitsConfig) { l.MaxPictureQueue = 10 }, "max_picture_queue must be at least 11"},
		{"window does not fit", func(l *LimitsConfig) { l.MaxVideoSurfaces = 3 }, "max_video_surfaces must be at least 6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg.Video.Limits)
			msgs := validateLimits(cfg)
			assert.NotEmpty(t, msgs)
			assert.Contains(t, strings.Join(msgs, "\n"), tt.want)
		})
	}
}

func TestValidateVideoRanges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Video.NoiseReduction = 1.5
	cfg.Video.Sharpness = -2
	cfg.Video.RecoveryAttempts = 0

	msgs := validateVideo(cfg)
	assert.Len(t, msgs, 3)
}

func TestValidateSimulation_UnknownNames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Simulation.DisabledFeatures = []string{"noise_reduction", "warp_drive"}
	cfg.Simulation.Methods = []string{"pixmap", "dmabuf"}

	msgs := validateSimulation(cfg)
	assert.Equal(t, []string{
		`simulation.disabled_features: unknown feature "warp_drive"`,
		`simulation.methods: unknown output method "dmabuf"`,
	}, msgs)
}

func TestValidateLogging(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "loud"
	assert.Len(t, validateLogging(cfg), 1)
}
