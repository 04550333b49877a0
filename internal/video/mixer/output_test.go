package mixer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/bnema/vidpipe/internal/application/port/mocks"
	"github.com/bnema/vidpipe/internal/domain/entity"
)

func TestConfigureOutput_FallsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRendererCaps(ctrl)
	renderer.EXPECT().SupportsOutputMethod(gomock.Any()).Return(true).AnyTimes()

	var tried []entity.OutputMethod
	method, err := ConfigureOutput(context.Background(), nopLogger(), entity.OutputNone, renderer,
		func(_ context.Context, m entity.OutputMethod) error {
			tried = append(tried, m)
			if m == entity.OutputPixmap {
				return nil
			}
			return errors.New("registration refused")
		})
	require.NoError(t, err)
	assert.Equal(t, entity.OutputPixmap, method)
	assert.Equal(t, []entity.OutputMethod{
		entity.OutputGLInteropRGB,
		entity.OutputGLInteropYUV,
		entity.OutputPixmap,
	}, tried)
}

func TestConfigureOutput_PreferredFirstAndUnsupportedSkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRendererCaps(ctrl)
	renderer.EXPECT().SupportsOutputMethod(entity.OutputPixmap).Return(true)
	renderer.EXPECT().SupportsOutputMethod(entity.OutputGLInteropRGB).Return(false).AnyTimes()
	renderer.EXPECT().SupportsOutputMethod(entity.OutputGLInteropYUV).Return(false).AnyTimes()

	var tried []entity.OutputMethod
	method, err := ConfigureOutput(context.Background(), nopLogger(), entity.OutputPixmap, renderer,
		func(_ context.Context, m entity.OutputMethod) error {
			tried = append(tried, m)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, entity.OutputPixmap, method)
	assert.Equal(t, []entity.OutputMethod{entity.OutputPixmap}, tried)
}

func TestConfigureOutput_EmptyPreferenceUsesDefaultOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRendererCaps(ctrl)
	renderer.EXPECT().SupportsOutputMethod(gomock.Any()).Return(true).AnyTimes()

	var tried []entity.OutputMethod
	method, err := ConfigureOutput(context.Background(), nopLogger(), "", renderer,
		func(_ context.Context, m entity.OutputMethod) error {
			tried = append(tried, m)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, entity.OutputGLInteropRGB, method)
	assert.Equal(t, []entity.OutputMethod{entity.OutputGLInteropRGB}, tried)
}

func TestConfigureOutput_AllFail(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRendererCaps(ctrl)
	renderer.EXPECT().SupportsOutputMethod(gomock.Any()).Return(true).AnyTimes()

	method, err := ConfigureOutput(context.Background(), nopLogger(), entity.OutputNone, renderer,
		func(context.Context, entity.OutputMethod) error { return errors.New("nope") })
	assert.Equal(t, entity.OutputNone, method)
	assert.ErrorIs(t, err, entity.ErrOutputUnavailable)
	assert.ErrorIs(t, err, entity.ErrOutputBindingFailed)
}

func TestConfigureOutput_PreemptionStops(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRendererCaps(ctrl)
	renderer.EXPECT().SupportsOutputMethod(gomock.Any()).Return(true).AnyTimes()

	calls := 0
	method, err := ConfigureOutput(context.Background(), nopLogger(), entity.OutputNone, renderer,
		func(context.Context, entity.OutputMethod) error {
			calls++
			return fmt.Errorf("create output surface: %w", entity.ErrDevicePreempted)
		})
	assert.Equal(t, entity.OutputNone, method)
	assert.ErrorIs(t, err, entity.ErrDevicePreempted)
	assert.Equal(t, 1, calls)
}
