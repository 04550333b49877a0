package styles_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/vidpipe/internal/application/usecase"
	"github.com/bnema/vidpipe/internal/cli/styles"
	"github.com/bnema/vidpipe/internal/domain/entity"
	"github.com/bnema/vidpipe/internal/infrastructure/config"
)

func TestPlaybackRenderer_Render(t *testing.T) {
	r := styles.NewPlaybackRenderer(styles.NewTheme())

	out := r.Render(&usecase.RunPlaybackOutput{
		RunID:     "run-1",
		Decoded:   30,
		Presented: 28,
		Health:    entity.HealthOK,
		Method:    entity.OutputGLInteropRGB,
		Features:  &entity.FeatureSet{Interlace: entity.InterlaceTemporal, PostProcessing: true, ScalingLevel: 2},
		Elapsed:   1500 * time.Millisecond,
	}, nil)

	require.Contains(t, out, "run-1")
	assert.Contains(t, out, "interop_rgb")
	assert.Contains(t, out, "order preserved")
	assert.Contains(t, out, "hq scaling L2")
}

func TestPlaybackRenderer_RenderFailure(t *testing.T) {
	r := styles.NewPlaybackRenderer(styles.NewTheme())

	out := r.Render(&usecase.RunPlaybackOutput{Health: entity.HealthFailed, OutOfOrder: 2}, errors.New("device recovery failed"))

	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "2 pictures out of order")
	assert.Contains(t, out, "device recovery failed")
	assert.Contains(t, r.Render(nil, errors.New("boom")), "boom")
}

func TestFeatureSummary(t *testing.T) {
	assert.Equal(t, "none", styles.FeatureSummary(nil))
	assert.Equal(t, "post-processing off", styles.FeatureSummary(&entity.FeatureSet{}))
	assert.Equal(t, "deinterlace bob, denoise 0.50, skip chroma",
		styles.FeatureSummary(&entity.FeatureSet{Interlace: entity.InterlaceBob, PostProcessing: true, NoiseReduction: 0.5, SkipChroma: true}))
}

func TestCapsRenderer_Render(t *testing.T) {
	r := styles.NewCapsRenderer(styles.NewTheme())

	out := r.Render(&usecase.ProbeCapabilitiesOutput{
		Capabilities: &entity.Capabilities{MaxScalingLevel: 3},
		Supported:    []entity.MixerFeature{entity.FeatureDeinterlaceTemporal, entity.ScalingFeature(1)},
		Missing:      []entity.MixerFeature{entity.FeatureNoiseReduction},
		Profiles:     []entity.DecoderProfile{entity.ProfileH264High},
		Methods:      []entity.OutputMethod{entity.OutputPixmap},
	})

	assert.Contains(t, out, "deinterlace_temporal")
	assert.Contains(t, out, "noise_reduction")
	assert.NotContains(t, out, "hq_scaling_l1")
	assert.Contains(t, out, "h264_high")
	assert.Contains(t, out, "Max HQ scaling level: 3")
}

func TestConfigSchemaRenderer_Render(t *testing.T) {
	r := styles.NewConfigSchemaRenderer(styles.NewTheme())
	keys := config.NewSchemaProvider().GetSchema()

	out := r.Render(keys)
	assert.Contains(t, out, "video.deinterlace")
	assert.Contains(t, out, "video.limits.flip_slots")
	assert.Contains(t, out, "Simulation")

	js, err := r.RenderJSON(keys[:1])
	require.NoError(t, err)
	assert.Contains(t, js, `"video.deinterlace"`)
}
