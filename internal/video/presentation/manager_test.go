package presentation

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/bnema/vidpipe/internal/application/port"
	"github.com/bnema/vidpipe/internal/application/port/mocks"
	"github.com/bnema/vidpipe/internal/domain/entity"
	"github.com/bnema/vidpipe/internal/infrastructure/simdevice"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type recordingDetacher struct {
	detached []*entity.VideoSurface
}

func (d *recordingDetacher) Detach(s *entity.VideoSurface) {
	s.Attached--
	d.detached = append(d.detached, s)
}

type fixture struct {
	factory *simdevice.Factory
	gl      *simdevice.GL
	session port.DeviceSession
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	factory := simdevice.NewFactory(simdevice.DefaultConfig())
	dev, err := factory.Open(context.Background())
	require.NoError(t, err)
	return &fixture{
		factory: factory,
		gl:      simdevice.NewGL(factory),
		session: port.DeviceSession{Device: dev, Generation: 1},
	}
}

func (f *fixture) pixmapManager(t *testing.T, pictures, slots int) *Manager {
	t.Helper()
	m := New(nopLogger(), Config{Pictures: pictures, FlipSlots: slots}, nil, nil)
	backend := NewPixmapBackend(nopLogger(), f.gl, 1280, 720)
	require.NoError(t, m.Prepare(context.Background(), f.session, backend, 1280, 720))
	return m
}

func claimAll(t *testing.T, m *Manager) []*entity.OutputPicture {
	t.Helper()
	var pics []*entity.OutputPicture
	for {
		pic, ok := m.TryClaim()
		if !ok {
			return pics
		}
		pics = append(pics, pic)
	}
}

func TestManager_PrepareCreatesArena(t *testing.T) {
	f := newFixture(t)
	m := f.pixmapManager(t, 3, 2)

	assert.Equal(t, entity.OutputPixmap, m.Method())
	assert.Equal(t, 3, m.FreeCount())
	assert.Equal(t, 3, f.gl.Pixmaps())
	assert.Equal(t, 3, f.factory.Current().LiveOutputSurfaces())

	m.Teardown()
	assert.Equal(t, 0, f.gl.Pixmaps())
	assert.Equal(t, 0, f.factory.Current().LiveOutputSurfaces())
	assert.Equal(t, entity.OutputNone, m.Method())
}

func TestManager_PrepareFailureReleasesSurfaces(t *testing.T) {
	f := newFixture(t)
	f.gl.FailOn("create pixmap", errors.New("no pixmaps"))

	m := New(nopLogger(), Config{Pictures: 3, FlipSlots: 2}, nil, nil)
	err := m.Prepare(context.Background(), f.session, NewPixmapBackend(nopLogger(), f.gl, 64, 64), 64, 64)
	require.ErrorIs(t, err, entity.ErrOutputBindingFailed)
	assert.Equal(t, 0, f.factory.Current().LiveOutputSurfaces())
	assert.Equal(t, 0, m.FreeCount())
	assert.Equal(t, entity.OutputNone, m.Method())
}

func TestManager_FlipRingLifecycle(t *testing.T) {
	f := newFixture(t)
	m := f.pixmapManager(t, 3, 2)
	ctx := context.Background()

	pics := claimAll(t, m)
	require.Len(t, pics, 3)
	assert.Equal(t, 0, m.FreeCount())

	slot0, err := m.Present(ctx, pics[0])
	require.NoError(t, err)
	slot1, err := m.Present(ctx, pics[1])
	require.NoError(t, err)
	assert.Equal(t, 0, slot0)
	assert.Equal(t, 1, slot1)
	assert.Equal(t, entity.PictureInFlip, pics[0].State)

	tex, err := m.AcquireTexture(slot0)
	require.NoError(t, err)
	assert.Equal(t, 1, tex.Planes)
	assert.NotZero(t, tex.Textures[0])

	again, err := m.AcquireTexture(slot0)
	require.NoError(t, err)
	assert.Equal(t, tex.Textures, again.Textures, "acquire is idempotent")

	require.NoError(t, m.ReleaseTexture(slot0))
	assert.Equal(t, 1, m.FreeCount())
	assert.Equal(t, entity.PictureFree, pics[0].State)
	assert.False(t, m.IsSlotValid(slot0))
	assert.True(t, m.IsSlotValid(slot1))

	// The third picture lands in slot 0 again. Slot 1's picture was never
	// acquired and is dropped when overwritten later.
	slot, err := m.Present(ctx, pics[2])
	require.NoError(t, err)
	assert.Equal(t, 0, slot)

	pic, ok := m.TryClaim()
	require.True(t, ok)
	_, err = m.Present(ctx, pic)
	require.NoError(t, err)
	assert.Equal(t, entity.PictureFree, pics[1].State)
	assert.Equal(t, uint64(1), m.Stats().Dropped)
}

func TestManager_HeldPictureRetires(t *testing.T) {
	f := newFixture(t)
	m := f.pixmapManager(t, 4, 2)
	ctx := context.Background()

	pics := claimAll(t, m)
	slot, err := m.Present(ctx, pics[0])
	require.NoError(t, err)
	_, err = m.AcquireTexture(slot)
	require.NoError(t, err)

	_, err = m.Present(ctx, pics[1])
	require.NoError(t, err)
	_, err = m.Present(ctx, pics[2])
	require.NoError(t, err)

	assert.Equal(t, entity.PictureRetired, pics[0].State, "held picture must not be freed under the consumer")
	assert.Equal(t, 0, m.FreeCount())
	assert.Equal(t, 1, m.Stats().Retired)

	require.NoError(t, m.ReleaseTexture(slot))
	assert.Equal(t, entity.PictureFree, pics[0].State)
	assert.Equal(t, 1, m.FreeCount())
	assert.True(t, m.IsSlotValid(slot), "the slot keeps its new occupant")
}

func TestManager_AcquireEmptySlot(t *testing.T) {
	f := newFixture(t)
	m := f.pixmapManager(t, 2, 2)

	_, err := m.AcquireTexture(1)
	assert.ErrorIs(t, err, entity.ErrSlotEmpty)
	assert.NoError(t, m.ReleaseTexture(1), "pixmap release without acquire is a no-op")
}

func TestManager_FreeDetachesVideoSurface(t *testing.T) {
	f := newFixture(t)
	det := &recordingDetacher{}
	m := New(nopLogger(), Config{Pictures: 2, FlipSlots: 2}, nil, det)
	require.NoError(t, m.Prepare(context.Background(), f.session, NewPixmapBackend(nopLogger(), f.gl, 64, 64), 64, 64))

	pic, ok := m.TryClaim()
	require.True(t, ok)
	vs := &entity.VideoSurface{Index: 3, Attached: 1}
	pic.VideoSurface = vs

	m.Free(pic)
	require.Len(t, det.detached, 1)
	assert.Same(t, vs, det.detached[0])
	assert.Nil(t, pic.VideoSurface)
	assert.Zero(t, vs.Attached)
}

func TestManager_Discard(t *testing.T) {
	f := newFixture(t)
	m := f.pixmapManager(t, 2, 2)
	ctx := context.Background()

	assert.False(t, m.Discard())

	pic, _ := m.TryClaim()
	slot, err := m.Present(ctx, pic)
	require.NoError(t, err)
	assert.True(t, m.Discard())
	assert.False(t, m.IsSlotValid(slot))
	assert.Equal(t, 2, m.FreeCount())

	pic, _ = m.TryClaim()
	slot, err = m.Present(ctx, pic)
	require.NoError(t, err)
	_, err = m.AcquireTexture(slot)
	require.NoError(t, err)
	assert.False(t, m.Discard(), "a held picture cannot be discarded")
}

func TestManager_ResetFreesEverything(t *testing.T) {
	f := newFixture(t)
	m := f.pixmapManager(t, 3, 2)
	ctx := context.Background()

	pics := claimAll(t, m)
	slot, err := m.Present(ctx, pics[0])
	require.NoError(t, err)
	_, err = m.AcquireTexture(slot)
	require.NoError(t, err)
	_, err = m.Present(ctx, pics[1])
	require.NoError(t, err)
	_, err = m.Present(ctx, pics[2])
	require.NoError(t, err)

	m.Reset()
	assert.Equal(t, 3, m.FreeCount())
	st := m.Stats()
	assert.Zero(t, st.Held)
	assert.Zero(t, st.InFlip)
	assert.Zero(t, st.Retired)
}

func TestManager_PauseBlocksPresentation(t *testing.T) {
	f := newFixture(t)
	m := f.pixmapManager(t, 2, 2)
	ctx := context.Background()

	require.NoError(t, m.Pause(ctx))
	_, ok := m.TryClaim()
	assert.False(t, ok, "no claims while paused")

	_, err := m.AcquireTexture(0)
	assert.ErrorIs(t, err, ErrPaused)

	m.Resume()
	pic, ok := m.TryClaim()
	require.True(t, ok)
	_, err = m.Present(ctx, pic)
	assert.NoError(t, err)
}

func TestManager_PauseNests(t *testing.T) {
	f := newFixture(t)
	m := f.pixmapManager(t, 2, 2)

	require.NoError(t, m.Pause(context.Background()))
	require.NoError(t, m.Pause(context.Background()))
	m.Resume()
	_, ok := m.TryClaim()
	assert.False(t, ok, "outer pause still holds")

	m.Resume()
	_, ok = m.TryClaim()
	assert.True(t, ok)

	t.Run("cancelled pause holds nothing", func(t *testing.T) {
		pic, ok := m.TryClaim()
		require.True(t, ok)
		// An in-flight call keeps Pause waiting.
		require.NoError(t, m.enter())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, m.Pause(ctx), context.Canceled)
		m.exit()

		_, err := m.Present(context.Background(), pic)
		assert.NoError(t, err)
	})
}

func TestManager_StalePictureIgnored(t *testing.T) {
	f := newFixture(t)
	m := f.pixmapManager(t, 2, 2)

	pic, _ := m.TryClaim()
	m.Teardown()

	m.Free(pic)
	assert.Zero(t, m.FreeCount())
	_, err := m.Present(context.Background(), pic)
	assert.ErrorIs(t, err, entity.ErrOutputUnavailable)
}

func TestManager_TeardownMarksHeldSlotsStale(t *testing.T) {
	f := newFixture(t)
	m := f.pixmapManager(t, 2, 2)
	ctx := context.Background()

	pic, _ := m.TryClaim()
	slot, err := m.Present(ctx, pic)
	require.NoError(t, err)
	_, err = m.AcquireTexture(slot)
	require.NoError(t, err)

	m.Teardown()
	f.session.Generation = 2
	require.NoError(t, m.Prepare(ctx, f.session, NewPixmapBackend(nopLogger(), f.gl, 64, 64), 64, 64))

	assert.NoError(t, m.ReleaseTexture(slot), "release of a torn-down texture is swallowed")
	assert.Equal(t, 2, m.FreeCount())
}

func interopManager(t *testing.T, ctrl *gomock.Controller, strict bool) (*Manager, *mocks.MockGLInterop, *fixture) {
	t.Helper()
	f := newFixture(t)
	gl := mocks.NewMockGLInterop(ctrl)
	gl.EXPECT().Init(gomock.Any()).Return(nil)
	var n entity.InteropHandle
	gl.EXPECT().RegisterOutputSurface(gomock.Any()).Times(2).DoAndReturn(
		func(entity.OutputSurfaceHandle) (port.InteropRegistration, error) {
			n++
			return port.InteropRegistration{
				Handle:   n,
				Textures: [entity.MaxPlanes]entity.TextureHandle{entity.TextureHandle(100 + n)},
				Planes:   1,
			}, nil
		})

	m := New(nopLogger(), Config{Pictures: 2, FlipSlots: 2, Strict: strict}, nil, nil)
	require.NoError(t, m.Prepare(context.Background(), f.session, NewInteropBackend(nopLogger(), gl, false), 64, 64))
	return m, gl, f
}

func TestManager_InteropBracket(t *testing.T) {
	ctrl := gomock.NewController(t)
	m, gl, _ := interopManager(t, ctrl, false)
	ctx := context.Background()

	pic, _ := m.TryClaim()
	slot, err := m.Present(ctx, pic)
	require.NoError(t, err)

	err = m.ReleaseTexture(slot)
	assert.ErrorIs(t, err, entity.ErrInteropBracket, "release without acquire")

	gl.EXPECT().Map(pic.Interop).Return(nil)
	tex, err := m.AcquireTexture(slot)
	require.NoError(t, err)
	assert.Equal(t, pic.Textures, tex.Textures)
	assert.True(t, pic.Mapped)

	gl.EXPECT().Unmap(pic.Interop).Return(nil)
	require.NoError(t, m.ReleaseTexture(slot))
	assert.False(t, pic.Mapped)
	assert.Equal(t, 2, m.FreeCount())

	gl.EXPECT().Unregister(gomock.Any()).Times(2).Return(nil)
	gl.EXPECT().Fini().Return(nil)
	m.Teardown()
}

func TestManager_ForgetVideoSurfaceUnregistersOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := newFixture(t)
	gl := mocks.NewMockGLInterop(ctrl)
	gl.EXPECT().Init(gomock.Any()).Return(nil)
	m := New(nopLogger(), Config{Pictures: 2, FlipSlots: 2}, nil, &recordingDetacher{})
	require.NoError(t, m.Prepare(context.Background(), f.session, NewInteropBackend(nopLogger(), gl, true), 64, 64))

	pic, ok := m.TryClaim()
	require.True(t, ok)
	pic.VideoSurface = &entity.VideoSurface{Handle: 7, Attached: 1}
	slot, err := m.Present(context.Background(), pic)
	require.NoError(t, err)

	gl.EXPECT().RegisterVideoSurface(entity.VideoSurfaceHandle(7)).Return(port.InteropRegistration{Handle: 42, Planes: entity.MaxPlanes}, nil)
	gl.EXPECT().Map(entity.InteropHandle(42)).Return(nil)
	gl.EXPECT().Unmap(entity.InteropHandle(42)).Return(nil)
	_, err = m.AcquireTexture(slot)
	require.NoError(t, err)
	require.NoError(t, m.ReleaseTexture(slot))

	gl.EXPECT().Unregister(entity.InteropHandle(42)).Return(nil)
	m.ForgetVideoSurface(7)
	m.ForgetVideoSurface(7)
	m.ForgetVideoSurface(8)

	// Nothing left to unregister at teardown.
	gl.EXPECT().Fini().Return(nil)
	m.Teardown()
	m.ForgetVideoSurface(7)
}

func TestManager_InteropStrictPanics(t *testing.T) {
	ctrl := gomock.NewController(t)
	m, _, _ := interopManager(t, ctrl, true)

	pic, _ := m.TryClaim()
	slot, err := m.Present(context.Background(), pic)
	require.NoError(t, err)

	assert.Panics(t, func() { _ = m.ReleaseTexture(slot) })
}

func TestManager_InteropMapFailureClearsHold(t *testing.T) {
	ctrl := gomock.NewController(t)
	m, gl, _ := interopManager(t, ctrl, false)

	pic, _ := m.TryClaim()
	slot, err := m.Present(context.Background(), pic)
	require.NoError(t, err)

	gl.EXPECT().Map(gomock.Any()).Return(errors.New("gl error"))
	_, err = m.AcquireTexture(slot)
	require.Error(t, err)
	assert.Zero(t, m.Stats().Held)

	gl.EXPECT().Map(gomock.Any()).Return(nil)
	_, err = m.AcquireTexture(slot)
	assert.NoError(t, err)
}

func TestManager_ClaimWaitsForFree(t *testing.T) {
	f := newFixture(t)
	m := f.pixmapManager(t, 1, 2)

	pic, ok := m.TryClaim()
	require.True(t, ok)

	got := make(chan *entity.OutputPicture, 1)
	go func() {
		p, err := m.Claim(context.Background())
		if err == nil {
			got <- p
		}
	}()
	m.Free(pic)
	assert.Same(t, pic, <-got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Claim(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPixmapBackend_WithMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	px := mocks.NewMockPixmapSurface(ctrl)
	b := NewPixmapBackend(nopLogger(), px, 32, 32)
	pic := &entity.OutputPicture{Index: 0, OutputSurface: 7}

	px.EXPECT().CreatePixmap(32, 32).Return(entity.PixmapHandle(9), nil)
	require.NoError(t, b.BindPixmap(pic))
	require.NoError(t, b.BindPixmap(pic), "bind is idempotent")

	px.EXPECT().DisplaySurface(gomock.Any(), entity.OutputSurfaceHandle(7), entity.PixmapHandle(9)).Return(nil)
	require.NoError(t, b.Display(context.Background(), pic))

	px.EXPECT().BindTexImage(entity.PixmapHandle(9)).Return(entity.TextureHandle(11), nil)
	tex, err := b.Acquire(pic)
	require.NoError(t, err)
	assert.Equal(t, entity.TextureHandle(11), tex.Textures[0])
	_, err = b.Acquire(pic)
	require.NoError(t, err)

	px.EXPECT().ReleaseTexImage(entity.PixmapHandle(9)).Return(nil)
	require.NoError(t, b.Release(pic))
	require.NoError(t, b.Release(pic))

	px.EXPECT().DestroyPixmap(entity.PixmapHandle(9)).Return(nil)
	b.ReleasePixmap(pic)
	b.ReleasePixmap(pic)
	assert.Zero(t, pic.Pixmap)
}
