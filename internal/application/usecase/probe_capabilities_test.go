package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/bnema/vidpipe/internal/application/port/mocks"
	"github.com/bnema/vidpipe/internal/application/usecase"
	"github.com/bnema/vidpipe/internal/domain/entity"
)

func TestProbeCapabilitiesUseCase_Execute(t *testing.T) {
	caps := &entity.Capabilities{
		Features: map[entity.MixerFeature]bool{
			entity.FeatureDeinterlaceTemporal: true,
			entity.FeatureSharpness:           true,
		},
		Decoders: map[entity.DecoderProfile]entity.DecoderCaps{
			entity.ProfileMPEG2Main: {Supported: true},
			entity.ProfileH264High:  {Supported: true},
			entity.ProfileVC1Adv:    {Supported: false},
		},
		MaxScalingLevel: 2,
	}

	t.Run("reports capabilities without configuring", func(t *testing.T) {
		// Arrange
		ctrl := gomock.NewController(t)
		pipeline := mocks.NewMockVideoPipeline(ctrl)
		renderer := mocks.NewMockRendererCaps(ctrl)

		pipeline.EXPECT().Capabilities().Return(caps)
		pipeline.EXPECT().Features().Return(nil)
		pipeline.EXPECT().Method().Return(entity.OutputNone)
		pipeline.EXPECT().Check(gomock.Any()).Return(entity.HealthOK)
		renderer.EXPECT().SupportsOutputMethod(entity.OutputGLInteropRGB).Return(false)
		renderer.EXPECT().SupportsOutputMethod(entity.OutputGLInteropYUV).Return(true)
		renderer.EXPECT().SupportsOutputMethod(entity.OutputPixmap).Return(true)

		uc := usecase.NewProbeCapabilitiesUseCase(pipeline, renderer)

		// Act
		out, err := uc.Execute(context.Background(), usecase.ProbeCapabilitiesInput{})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []entity.OutputMethod{entity.OutputGLInteropYUV, entity.OutputPixmap}, out.Methods)
		assert.Equal(t, []entity.MixerFeature{entity.FeatureDeinterlaceTemporal, entity.FeatureSharpness}, out.Supported)
		assert.Contains(t, out.Missing, entity.FeatureNoiseReduction)
		assert.Equal(t, []entity.DecoderProfile{entity.ProfileH264High, entity.ProfileMPEG2Main}, out.Profiles)
		assert.Equal(t, entity.HealthOK, out.Health)
	})

	t.Run("configures the stream first", func(t *testing.T) {
		// Arrange
		ctrl := gomock.NewController(t)
		pipeline := mocks.NewMockVideoPipeline(ctrl)
		renderer := mocks.NewMockRendererCaps(ctrl)
		stream := entity.StreamFormat{Codec: entity.CodecMPEG2, Width: 720, Height: 576, RefFrames: 2, Interlaced: true}
		fs := &entity.FeatureSet{Interlace: entity.InterlaceTemporal, PostProcessing: true}

		gomock.InOrder(
			pipeline.EXPECT().Configure(gomock.Any(), stream).Return(nil),
			pipeline.EXPECT().Capabilities().Return(caps),
		)
		pipeline.EXPECT().Features().Return(fs)
		pipeline.EXPECT().Method().Return(entity.OutputPixmap)
		pipeline.EXPECT().Check(gomock.Any()).Return(entity.HealthOK)
		renderer.EXPECT().SupportsOutputMethod(gomock.Any()).Return(true).Times(3)

		uc := usecase.NewProbeCapabilitiesUseCase(pipeline, renderer)

		// Act
		out, err := uc.Execute(context.Background(), usecase.ProbeCapabilitiesInput{Stream: &stream})

		// Assert
		require.NoError(t, err)
		assert.Same(t, fs, out.Features)
		assert.Equal(t, entity.OutputPixmap, out.Method)
		assert.Len(t, out.Methods, 3)
	})

	t.Run("returns configure errors", func(t *testing.T) {
		// Arrange
		ctrl := gomock.NewController(t)
		pipeline := mocks.NewMockVideoPipeline(ctrl)
		renderer := mocks.NewMockRendererCaps(ctrl)
		stream := entity.StreamFormat{Codec: entity.CodecHEVC, Width: 8192, Height: 4320}
		pipeline.EXPECT().Configure(gomock.Any(), stream).Return(entity.ErrCapabilityUnsupported)

		uc := usecase.NewProbeCapabilitiesUseCase(pipeline, renderer)

		// Act
		out, err := uc.Execute(context.Background(), usecase.ProbeCapabilitiesInput{Stream: &stream})

		// Assert
		require.Error(t, err)
		assert.Nil(t, out)
		assert.True(t, errors.Is(err, entity.ErrCapabilityUnsupported))
	})
}
