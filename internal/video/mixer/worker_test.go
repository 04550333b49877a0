package mixer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/vidpipe/internal/application/port"
	"github.com/bnema/vidpipe/internal/domain/entity"
	"github.com/bnema/vidpipe/internal/infrastructure/simdevice"
	"github.com/bnema/vidpipe/internal/video/features"
	"github.com/bnema/vidpipe/internal/video/notify"
	"github.com/bnema/vidpipe/internal/video/presentation"
	"github.com/bnema/vidpipe/internal/video/surfacepool"
)

var (
	progressive = entity.StreamFormat{Codec: entity.CodecH264, Width: 1280, Height: 720, RefFrames: 10}
	interlaced  = entity.StreamFormat{Codec: entity.CodecMPEG2, Width: 720, Height: 576, RefFrames: 10, Interlaced: true}
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type harness struct {
	t        *testing.T
	dev      *simdevice.Device
	pool     *surfacepool.Pool
	pictures *presentation.Manager
	worker   *Worker
	stream   entity.StreamFormat

	mu          sync.Mutex
	maxRender   int
	renderCalls []port.RenderRequest
}

func newHarness(t *testing.T, stream entity.StreamFormat, pictures int, faults FaultObserver) *harness {
	t.Helper()
	h := &harness{t: t, stream: stream}
	ctx := context.Background()

	cfg := simdevice.DefaultConfig()
	cfg.RenderHook = func(_ context.Context, req port.RenderRequest) {
		render := h.pool.Stats().Render
		h.mu.Lock()
		if render > h.maxRender {
			h.maxRender = render
		}
		h.renderCalls = append(h.renderCalls, req)
		h.mu.Unlock()
	}
	factory := simdevice.NewFactory(cfg)
	dev, err := factory.Open(ctx)
	require.NoError(t, err)
	h.dev = factory.Current()
	session := port.DeviceSession{Device: dev, Generation: 1}

	neg := features.New(nopLogger(), features.Config{})
	_, err = neg.Negotiate(ctx, dev, entity.DefaultFeatureRequest(), stream)
	require.NoError(t, err)

	h.pool = surfacepool.New(nopLogger(), surfacepool.Config{MaxSurfaces: 32})
	h.pool.Configure(session, stream, entity.Chroma420)

	signal := notify.New()
	h.pictures = presentation.New(nopLogger(), presentation.Config{Pictures: pictures, FlipSlots: 2}, signal, h.pool)
	gl := simdevice.NewGL(factory)
	require.NoError(t, h.pictures.Prepare(ctx, session, presentation.NewPixmapBackend(nopLogger(), gl, 1280, 720), 1280, 720))

	mx, err := dev.CreateMixer(port.MixerConfig{Width: stream.Width, Height: stream.Height, Chroma: entity.Chroma420})
	require.NoError(t, err)

	h.worker = New(nopLogger(), Config{QueueLength: 20, ClaimSlice: 5 * time.Millisecond}, h.pool, h.pictures, neg, faults, signal)
	h.worker.SetTarget(Target{Mixer: mx, Device: dev, Generation: 1, Method: entity.OutputPixmap})

	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = h.worker.Run(runCtx) }()
	require.Eventually(t, func() bool { return h.worker.started.Load() }, time.Second, time.Millisecond)
	t.Cleanup(func() {
		cancel()
		<-h.worker.Done()
	})
	return h
}

func (h *harness) feed(seq uint64, cost int) *entity.VideoSurface {
	h.t.Helper()
	s, err := h.pool.Acquire(true)
	require.NoError(h.t, err)
	require.NoError(h.t, h.dev.WriteFrame(s.Handle, seq))
	require.NoError(h.t, h.pool.Enqueue(s))
	h.pool.Reclaim(s)
	msg := &entity.DecodeMessage{
		Picture: entity.PictureInfo{
			Sequence:      seq,
			Interlaced:    h.stream.Interlaced,
			TopFieldFirst: true,
		},
		Surface:    s,
		DstRect:    entity.NewRect(1280, 720),
		Generation: 1,
	}
	require.NoError(h.t, h.worker.Submit(msg, cost))
	return s
}

type shown struct {
	tag   uint64
	field entity.Field
}

func (h *harness) take(timeout time.Duration) (shown, bool) {
	select {
	case pic := <-h.worker.Output():
		tag, field, ok := h.dev.ContentOf(pic.OutputSurface)
		require.True(h.t, ok)
		assert.Equal(h.t, pic.Field, field)
		h.pictures.Free(pic)
		return shown{tag: tag, field: field}, true
	case <-time.After(timeout):
		return shown{}, false
	}
}

func TestWorker_PreservesOrder(t *testing.T) {
	h := newHarness(t, progressive, 4, nil)

	done := make(chan []shown)
	go func() {
		var got []shown
		for len(got) < 12 {
			s, ok := h.take(2 * time.Second)
			if !ok {
				break
			}
			got = append(got, s)
		}
		done <- got
	}()
	for i := uint64(0); i < 12; i++ {
		h.feed(i, 1)
	}

	got := <-done
	require.Len(t, got, 12)
	for i, s := range got {
		assert.Equal(t, uint64(i), s.tag)
		assert.Equal(t, entity.FieldFrame, s.field)
	}
	assert.Eventually(t, func() bool { return h.worker.Pending() == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, uint64(12), h.worker.Stats().Rendered)
}

func TestWorker_FieldRateWithLookahead(t *testing.T) {
	h := newHarness(t, interlaced, 4, nil)

	done := make(chan []shown)
	go func() {
		var got []shown
		for len(got) < 16 {
			s, ok := h.take(2 * time.Second)
			if !ok {
				break
			}
			got = append(got, s)
		}
		done <- got
	}()
	for i := uint64(0); i < 8; i++ {
		h.feed(i, 2)
	}
	require.NoError(t, h.worker.Drain(context.Background(), true))

	got := <-done
	require.Len(t, got, 16, "two fields per frame, lookahead drained")
	for i, s := range got {
		assert.Equal(t, uint64(i/2), s.tag)
		want := entity.FieldTop
		if i%2 == 1 {
			want = entity.FieldBottom
		}
		assert.Equal(t, want, s.field)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.LessOrEqual(t, h.maxRender, entity.ReferenceWindowSize)
	// Frame 2 renders with two past and two future references.
	var mid *port.RenderRequest
	for i := range h.renderCalls {
		if tag, _ := h.dev.VideoContentOf(h.renderCalls[i].Current); tag == 2 {
			mid = &h.renderCalls[i]
			break
		}
	}
	require.NotNil(t, mid)
	assert.NotZero(t, mid.Past[0])
	assert.NotZero(t, mid.Past[1])
	assert.NotZero(t, mid.Future[0])
	assert.NotZero(t, mid.Future[1])
}

func TestWorker_FlushDiscardsEverything(t *testing.T) {
	h := newHarness(t, progressive, 1, nil)

	for i := uint64(0); i < 5; i++ {
		h.feed(i, 1)
	}
	// One picture: the first frame is published, the second waits to claim.
	require.Eventually(t, func() bool { return len(h.worker.Output()) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, h.worker.Flush(context.Background()))
	assert.Zero(t, h.worker.Pending())
	assert.Zero(t, len(h.worker.Output()))
	assert.Equal(t, 1, h.pictures.FreeCount())

	st := h.pool.Stats()
	assert.Zero(t, st.Queued)
	assert.Zero(t, st.Render)
}

func TestWorker_DropState(t *testing.T) {
	h := newHarness(t, progressive, 2, nil)
	h.worker.SetDropState(true)

	for i := uint64(0); i < 3; i++ {
		h.feed(i, 1)
	}
	require.Eventually(t, func() bool { return h.worker.Stats().Dropped == 3 }, time.Second, time.Millisecond)
	assert.Zero(t, h.dev.Renders())
	assert.Zero(t, h.worker.Pending())
	assert.Zero(t, h.pool.Stats().Render, "progressive drops release their surface at once")

	h.worker.SetDropState(false)
	h.feed(3, 1)
	s, ok := h.take(time.Second)
	require.True(t, ok)
	assert.Equal(t, uint64(3), s.tag)
}

func TestWorker_HardDrainDropsWithoutPictures(t *testing.T) {
	h := newHarness(t, progressive, 1, nil)

	for i := uint64(0); i < 3; i++ {
		h.feed(i, 1)
	}
	require.Eventually(t, func() bool { return len(h.worker.Output()) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, h.worker.Drain(context.Background(), false))
	assert.Equal(t, uint64(2), h.worker.Stats().Dropped)
	assert.Zero(t, h.worker.Pending())
}

func TestWorker_QueueFull(t *testing.T) {
	w := New(nopLogger(), Config{QueueLength: 2}, nil, nil, nil, nil, nil)

	require.NoError(t, w.Submit(&entity.DecodeMessage{}, 1))
	require.NoError(t, w.Submit(&entity.DecodeMessage{}, 2))
	assert.ErrorIs(t, w.Submit(&entity.DecodeMessage{}, 1), entity.ErrQueueFull)
	assert.Equal(t, 3, w.Pending())
	assert.Equal(t, 2, w.Queued())
}

type fakeFaults struct {
	mu      sync.Mutex
	pending bool
	seen    []error
}

func (f *fakeFaults) Observe(err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, err)
	if entity.IsPreempted(err) {
		f.pending = true
		return true
	}
	return false
}

func (f *fakeFaults) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

func TestWorker_PreemptionObservedAndStaleDiscarded(t *testing.T) {
	faults := &fakeFaults{}
	h := newHarness(t, progressive, 4, faults)

	h.feed(0, 1)
	_, ok := h.take(time.Second)
	require.True(t, ok)

	s, err := h.pool.Acquire(true)
	require.NoError(t, err)
	h.dev.Preempt()
	require.NoError(t, h.pool.Enqueue(s))
	require.NoError(t, h.worker.Submit(&entity.DecodeMessage{Surface: s, Generation: 1}, 1))

	require.Eventually(t, faults.Pending, time.Second, time.Millisecond)
	faults.mu.Lock()
	require.NotEmpty(t, faults.seen)
	assert.True(t, errors.Is(faults.seen[0], entity.ErrDevicePreempted))
	faults.mu.Unlock()

	// With recovery pending every new message is discarded unrendered.
	require.NoError(t, h.worker.Submit(&entity.DecodeMessage{Generation: 1}, 1))
	require.Eventually(t, func() bool { return h.worker.Pending() == 0 }, time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, h.worker.Stats().Discarded, uint64(1))
}

func TestWorker_PauseAndResume(t *testing.T) {
	h := newHarness(t, progressive, 2, nil)
	ctx := context.Background()

	require.NoError(t, h.worker.Pause(ctx))
	h.feed(0, 1)
	_, ok := h.take(50 * time.Millisecond)
	assert.False(t, ok, "paused worker renders nothing")

	h.worker.Resume()
	s, ok := h.take(time.Second)
	require.True(t, ok)
	assert.Equal(t, uint64(0), s.tag)
}
