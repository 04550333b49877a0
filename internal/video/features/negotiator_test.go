package features

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/vidpipe/internal/application/port"
	"github.com/bnema/vidpipe/internal/domain/entity"
	"github.com/bnema/vidpipe/internal/infrastructure/simdevice"
)

var sdInterlaced = entity.StreamFormat{Codec: entity.CodecMPEG2, Width: 720, Height: 576, Interlaced: true}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func openDevice(t *testing.T, cfg simdevice.Config) port.Device {
	t.Helper()
	dev, err := simdevice.NewFactory(cfg).Open(context.Background())
	require.NoError(t, err)
	return dev
}

func withoutFeatures(fs ...entity.MixerFeature) simdevice.Config {
	cfg := simdevice.DefaultConfig()
	for _, f := range fs {
		cfg.Features[f] = false
	}
	return cfg
}

func TestNegotiate_NoiseReductionUnsupported(t *testing.T) {
	dev := openDevice(t, withoutFeatures(entity.FeatureNoiseReduction))
	n := New(nil, Config{})

	req := entity.DefaultFeatureRequest()
	req.NoiseReduction = 0.8

	set, err := n.Negotiate(context.Background(), dev, req, sdInterlaced)
	require.NoError(t, err)
	assert.Zero(t, set.NoiseReduction)
	assert.False(t, set.Enables()[entity.FeatureNoiseReduction])
	assert.False(t, n.Supports(entity.FeatureNoiseReduction))
}

func TestNegotiate_NoiseReductionSupported(t *testing.T) {
	dev := openDevice(t, simdevice.DefaultConfig())
	n := New(nil, Config{})

	req := entity.DefaultFeatureRequest()
	req.NoiseReduction = 0.8

	set, err := n.Negotiate(context.Background(), dev, req, sdInterlaced)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, set.NoiseReduction, 1e-9)
	assert.True(t, set.Enables()[entity.FeatureNoiseReduction])
}

func TestNegotiate_AutoDeinterlace(t *testing.T) {
	tests := []struct {
		name    string
		cfg     simdevice.Config
		stream  entity.StreamFormat
		want    entity.InterlaceMethod
		lookahd int
	}{
		{
			name:    "sd prefers temporal spatial",
			cfg:     simdevice.DefaultConfig(),
			stream:  sdInterlaced,
			want:    entity.InterlaceTemporalSpatial,
			lookahd: 2,
		},
		{
			name:    "full hd stops at temporal",
			cfg:     simdevice.DefaultConfig(),
			stream:  entity.StreamFormat{Codec: entity.CodecH264, Width: 1920, Height: 1080, Interlaced: true},
			want:    entity.InterlaceTemporal,
			lookahd: 2,
		},
		{
			name:   "no temporal falls back to bob",
			cfg:    withoutFeatures(entity.FeatureDeinterlaceTemporal, entity.FeatureDeinterlaceTemporalSpatial),
			stream: sdInterlaced,
			want:   entity.InterlaceBob,
		},
		{
			name:   "progressive gets none",
			cfg:    simdevice.DefaultConfig(),
			stream: entity.StreamFormat{Codec: entity.CodecH264, Width: 1280, Height: 720},
			want:   entity.InterlaceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(nil, Config{FullHDWidth: 1920})
			set, err := n.Negotiate(context.Background(), openDevice(t, tt.cfg), entity.DefaultFeatureRequest(), tt.stream)
			require.NoError(t, err)
			assert.Equal(t, tt.want, set.Interlace)
			assert.Equal(t, tt.lookahd, set.Lookahead())
		})
	}
}

func TestNegotiate_ExplicitMethodDegrades(t *testing.T) {
	dev := openDevice(t, withoutFeatures(entity.FeatureDeinterlaceTemporalSpatial))
	n := New(nil, Config{})

	req := entity.DefaultFeatureRequest()
	req.Interlace = entity.InterlaceTemporalSpatialHalf

	set, err := n.Negotiate(context.Background(), dev, req, sdInterlaced)
	require.NoError(t, err)
	assert.Equal(t, entity.InterlaceTemporalHalf, set.Interlace)
	assert.False(t, set.FieldRate())
	assert.False(t, n.SupportsInterlace(entity.InterlaceTemporalSpatial))
	assert.True(t, n.SupportsInterlace(entity.InterlaceBob))
}

func TestNegotiate_ScalingLevels(t *testing.T) {
	cfg := simdevice.DefaultConfig()
	for l := 4; l <= entity.MaxScalingLevel; l++ {
		cfg.Features[entity.ScalingFeature(l)] = false
	}
	dev := openDevice(t, cfg)
	n := New(nil, Config{})

	req := entity.DefaultFeatureRequest()
	req.ScalingLevel = 7

	set, err := n.Negotiate(context.Background(), dev, req, sdInterlaced)
	require.NoError(t, err)
	assert.Equal(t, 3, set.ScalingLevel)
	assert.Equal(t, 3, n.Capabilities().MaxScalingLevel)

	// Output narrower than the video: no upscaling.
	set = n.SetOutputSize(640, 360)
	assert.Zero(t, set.ScalingLevel)

	set = n.SetOutputSize(1920, 1080)
	assert.Equal(t, 3, set.ScalingLevel)

	set = n.DisableHQScaling()
	assert.Zero(t, set.ScalingLevel)
}

func TestNegotiate_PostProcToggle(t *testing.T) {
	dev := openDevice(t, simdevice.DefaultConfig())
	n := New(nil, Config{})

	set, err := n.Negotiate(context.Background(), dev, entity.DefaultFeatureRequest(), sdInterlaced)
	require.NoError(t, err)
	require.True(t, set.Temporal())
	v := set.Version

	off := n.PostProcOff()
	assert.False(t, off.Temporal())
	assert.Zero(t, off.Lookahead())
	assert.Greater(t, off.Version, v)
	for f, on := range off.Enables() {
		assert.False(t, on, "feature %s", f)
	}

	on := n.SetPostProc(true)
	assert.True(t, on.Temporal())
	assert.Same(t, on, n.Current())
}

func TestNegotiate_QueryFailureKeepsSnapshot(t *testing.T) {
	factory := simdevice.NewFactory(simdevice.DefaultConfig())
	dev, err := factory.Open(context.Background())
	require.NoError(t, err)
	n := New(nil, Config{})
	_, err = n.Negotiate(context.Background(), dev, entity.DefaultFeatureRequest(), sdInterlaced)
	require.NoError(t, err)

	factory.Current().Preempt()
	_, err = n.Negotiate(context.Background(), dev, entity.DefaultFeatureRequest(), sdInterlaced)
	require.ErrorIs(t, err, entity.ErrDevicePreempted)
	assert.True(t, n.Supports(entity.FeatureNoiseReduction), "snapshot survives")
}

func TestCheckDecoder(t *testing.T) {
	cfg := simdevice.DefaultConfig()
	cfg.Decoders[entity.ProfileHEVCMain] = entity.DecoderCaps{}
	cfg.Decoders[entity.ProfileH264High] = entity.DecoderCaps{Supported: true, MaxWidth: 1920, MaxHeight: 1088}
	dev := openDevice(t, cfg)

	n := New(nil, Config{})
	_, err := n.Probe(context.Background(), dev)
	require.NoError(t, err)

	require.NoError(t, n.CheckDecoder(entity.StreamFormat{Codec: entity.CodecH264, Width: 1920, Height: 1080}))
	assert.ErrorIs(t, n.CheckDecoder(entity.StreamFormat{Codec: entity.CodecH264, Width: 3840, Height: 2160}), entity.ErrDeviceCreationFailed)
	assert.ErrorIs(t, n.CheckDecoder(entity.StreamFormat{Codec: entity.CodecHEVC, Width: 1280, Height: 720}), entity.ErrDeviceCreationFailed)
	assert.ErrorIs(t, n.CheckDecoder(entity.StreamFormat{Codec: "theora", Width: 1280, Height: 720}), entity.ErrDeviceCreationFailed)
}

func TestResolve_ColorStandardByHeight(t *testing.T) {
	logger := testLogger()
	caps := &entity.Capabilities{}
	sd := Resolve(logger, caps, entity.DefaultFeatureRequest(), Environment{Stream: entity.StreamFormat{Height: 576}})
	hd := Resolve(logger, caps, entity.DefaultFeatureRequest(), Environment{Stream: entity.StreamFormat{Height: 720}})
	assert.Equal(t, entity.StandardBT601, sd.Standard)
	assert.Equal(t, entity.StandardBT709, hd.Standard)
	assert.NotEqual(t, sd.CSCMatrix, hd.CSCMatrix)
}
