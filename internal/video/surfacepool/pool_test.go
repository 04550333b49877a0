package surfacepool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/vidpipe/internal/application/port"
	"github.com/bnema/vidpipe/internal/domain/entity"
	"github.com/bnema/vidpipe/internal/infrastructure/simdevice"
)

func newTestPool(t *testing.T, refFrames int, tie TieBreak) (*Pool, *simdevice.Device) {
	t.Helper()
	factory := simdevice.NewFactory(simdevice.DefaultConfig())
	dev, err := factory.Open(context.Background())
	require.NoError(t, err)

	p := New(nil, Config{MaxSurfaces: 32, TieBreak: tie})
	p.Configure(port.DeviceSession{Device: dev, Generation: 1},
		entity.StreamFormat{Codec: entity.CodecH264, Width: 720, Height: 576, RefFrames: refFrames},
		entity.Chroma420)
	return p, factory.Current()
}

func renderCount(p *Pool) int {
	return p.Stats().Render
}

func TestPool_CapacityFromReferenceFrames(t *testing.T) {
	p, _ := newTestPool(t, 4, TieBreakLowestIndex)
	assert.Equal(t, 4+entity.ReferenceWindowSize+1, p.Capacity())

	big := New(nil, Config{MaxSurfaces: 8})
	factory := simdevice.NewFactory(simdevice.DefaultConfig())
	dev, err := factory.Open(context.Background())
	require.NoError(t, err)
	big.Configure(port.DeviceSession{Device: dev, Generation: 1},
		entity.StreamFormat{Width: 64, Height: 64, RefFrames: 16}, entity.Chroma420)
	assert.Equal(t, 8, big.Capacity())
}

func TestPool_AcquireUntilExhausted(t *testing.T) {
	p, dev := newTestPool(t, 0, TieBreakLowestIndex)
	capacity := p.Capacity()

	var got []*entity.VideoSurface
	for i := 0; i < capacity; i++ {
		s, err := p.Acquire(true)
		require.NoError(t, err)
		assert.NotZero(t, s.Handle)
		assert.Equal(t, entity.Generation(1), s.Generation)
		got = append(got, s)
	}
	assert.Equal(t, capacity, dev.LiveVideoSurfaces())

	_, err := p.Acquire(false)
	require.ErrorIs(t, err, entity.ErrPoolExhausted)

	p.Reclaim(got[0])
	s, err := p.Acquire(false)
	require.NoError(t, err)
	assert.Same(t, got[0], s)
	assert.Equal(t, capacity, dev.LiveVideoSurfaces(), "handles are reused")
}

func TestPool_TieBreakPolicies(t *testing.T) {
	t.Run("lowest index", func(t *testing.T) {
		p, _ := newTestPool(t, 0, TieBreakLowestIndex)
		a, _ := p.Acquire(true)
		b, _ := p.Acquire(true)
		p.Reclaim(b)
		p.Reclaim(a)
		s, err := p.Acquire(true)
		require.NoError(t, err)
		assert.Equal(t, 0, s.Index)
	})

	t.Run("most recent", func(t *testing.T) {
		p, _ := newTestPool(t, 0, TieBreakMostRecent)
		a, _ := p.Acquire(true)
		b, _ := p.Acquire(true)
		p.Reclaim(a)
		p.Reclaim(b)
		s, err := p.Acquire(true)
		require.NoError(t, err)
		assert.Same(t, b, s)
	})

	t.Run("longest idle wins over policy", func(t *testing.T) {
		p, _ := newTestPool(t, 0, TieBreakMostRecent)
		a, _ := p.Acquire(true)
		b, _ := p.Acquire(true)
		p.Reclaim(a)
		// a ages one frame while b is still held.
		p.ShiftReferences(nil, 0)
		p.Reclaim(b)
		s, err := p.Acquire(true)
		require.NoError(t, err)
		assert.Same(t, a, s)
	})
}

func TestPool_AgeCounters(t *testing.T) {
	p, _ := newTestPool(t, 2, TieBreakLowestIndex)

	i1, _ := p.Acquire(true)
	p1, _ := p.Acquire(true)
	b1, _ := p.Acquire(false)
	b2, _ := p.Acquire(false)
	p2, _ := p.Acquire(true)

	never := entity.NewPictureAge().IP[0]
	assert.Equal(t, never, i1.Age)
	assert.Equal(t, never+1, p1.Age)
	assert.Equal(t, never+2, b1.Age)
	assert.Equal(t, 1, b2.Age)
	assert.Equal(t, 4, p2.Age)
}

func TestPool_ShiftReferences_WindowBounded(t *testing.T) {
	for _, lookahead := range []int{0, 2} {
		p, _ := newTestPool(t, 4, TieBreakLowestIndex)
		for i := 0; i < 40; i++ {
			s, err := p.Acquire(true)
			require.NoError(t, err, "frame %d", i)
			require.NoError(t, p.Enqueue(s))
			p.Reclaim(s)

			set := p.ShiftReferences(s, lookahead)
			assert.LessOrEqual(t, renderCount(p), entity.ReferenceWindowSize)
			if lookahead == 0 {
				assert.Same(t, s, set.Current)
			} else {
				assert.Same(t, s, set.Future[1])
			}
		}
		// Without lookahead the future slots stay empty.
		want := entity.ReferenceWindowSize
		if lookahead == 0 {
			want = 3
		}
		assert.Equal(t, want, renderCount(p))
	}
}

func TestPool_ShiftReferences_Positions(t *testing.T) {
	p, _ := newTestPool(t, 4, TieBreakLowestIndex)
	var frames []*entity.VideoSurface
	for i := 0; i < 5; i++ {
		s, err := p.Acquire(true)
		require.NoError(t, err)
		frames = append(frames, s)
		p.ShiftReferences(s, 2)
	}
	set := p.References()
	assert.Same(t, frames[0], set.Past[1])
	assert.Same(t, frames[1], set.Past[0])
	assert.Same(t, frames[2], set.Current)
	assert.Same(t, frames[3], set.Future[0])
	assert.Same(t, frames[4], set.Future[1])

	// Drain pushes the lookahead out with nil entries.
	set = p.ShiftReferences(nil, 2)
	assert.Same(t, frames[3], set.Current)
	set = p.ShiftReferences(nil, 2)
	assert.Same(t, frames[4], set.Current)
	assert.False(t, frames[0].UsedForRender)
	assert.False(t, frames[1].UsedForRender)
}

func TestPool_ReleaseAttachedSurface(t *testing.T) {
	p, _ := newTestPool(t, 0, TieBreakLowestIndex)
	s, err := p.Acquire(true)
	require.NoError(t, err)
	p.ShiftReferences(s, 0)
	require.NoError(t, p.Attach(s))

	err = p.Release(s)
	require.ErrorIs(t, err, entity.ErrSurfaceAttached)
	assert.True(t, s.UsedForRender)

	p.Detach(s)
	require.NoError(t, p.Release(s))
	assert.False(t, s.UsedForRender)
}

func TestPool_AttachedSurfaceSurvivesWindowExit(t *testing.T) {
	p, _ := newTestPool(t, 0, TieBreakLowestIndex)
	s, _ := p.Acquire(true)
	p.Reclaim(s)
	p.ShiftReferences(s, 0)
	require.NoError(t, p.Attach(s))
	for i := 0; i < entity.ReferenceWindowSize; i++ {
		p.ShiftReferences(nil, 0)
	}
	assert.False(t, s.UsedForRender)
	assert.False(t, s.Free(), "attached picture keeps surface")
	p.Detach(s)
	assert.True(t, s.Free())
}

func TestPool_ResetFreesEverything(t *testing.T) {
	p, _ := newTestPool(t, 0, TieBreakLowestIndex)
	for i := 0; i < p.Capacity(); i++ {
		s, err := p.Acquire(true)
		require.NoError(t, err)
		require.NoError(t, p.Enqueue(s))
		if i%2 == 0 {
			p.ShiftReferences(s, 0)
		}
	}
	_, err := p.Acquire(true)
	require.ErrorIs(t, err, entity.ErrPoolExhausted)

	p.Reset()
	st := p.Stats()
	assert.Equal(t, st.Capacity, st.Free)
	assert.Zero(t, st.Render)
	assert.Zero(t, st.Reference)
	assert.Zero(t, st.Queued)

	_, err = p.Acquire(true)
	require.NoError(t, err)
}

func TestPool_GeometryChangeInvalidates(t *testing.T) {
	p, dev := newTestPool(t, 0, TieBreakLowestIndex)
	s, err := p.Acquire(true)
	require.NoError(t, err)
	require.Equal(t, 1, dev.LiveVideoSurfaces())

	reconfigured := p.Configure(port.DeviceSession{Device: dev, Generation: 1},
		entity.StreamFormat{Width: 1280, Height: 720}, entity.Chroma420)
	assert.True(t, reconfigured)
	assert.Zero(t, dev.LiveVideoSurfaces())
	assert.False(t, p.Valid(s))

	// Stale reclaim is ignored.
	p.Reclaim(s)
	assert.Equal(t, p.Capacity(), p.Stats().Free)
}

func TestPool_TrimDropsFreeHandles(t *testing.T) {
	p, dev := newTestPool(t, 0, TieBreakLowestIndex)
	a, _ := p.Acquire(true)
	b, _ := p.Acquire(true)
	p.Reclaim(a)
	require.Equal(t, 2, dev.LiveVideoSurfaces())

	assert.Equal(t, 1, p.Trim())
	assert.Equal(t, 1, dev.LiveVideoSurfaces())
	assert.True(t, p.Valid(b))

	s, err := p.Acquire(true)
	require.NoError(t, err)
	assert.NotZero(t, s.Handle)
	assert.Empty(t, dev.Violations())
}

func TestPool_OnDestroyReportsForgottenHandles(t *testing.T) {
	factory := simdevice.NewFactory(simdevice.DefaultConfig())
	dev, err := factory.Open(context.Background())
	require.NoError(t, err)
	sim := factory.Current()
	var (
		forgotten []entity.VideoSurfaceHandle
		liveSeen  []int
	)
	p := New(nil, Config{MaxSurfaces: 32, OnDestroy: func(h entity.VideoSurfaceHandle) {
		forgotten = append(forgotten, h)
		liveSeen = append(liveSeen, sim.LiveVideoSurfaces())
	}})
	p.Configure(port.DeviceSession{Device: dev, Generation: 1},
		entity.StreamFormat{Codec: entity.CodecH264, Width: 720, Height: 576}, entity.Chroma420)

	a, _ := p.Acquire(true)
	b, _ := p.Acquire(true)
	ha, hb := a.Handle, b.Handle
	p.Reclaim(a)

	t.Run("trim", func(t *testing.T) {
		require.Equal(t, 1, p.Trim())
		assert.Equal(t, []entity.VideoSurfaceHandle{ha}, forgotten)
		// reported before the device handle went away
		assert.Equal(t, []int{2}, liveSeen)
		assert.Equal(t, 1, sim.LiveVideoSurfaces())
	})

	t.Run("invalidate without destroy", func(t *testing.T) {
		forgotten = nil
		p.Invalidate(false)
		assert.Equal(t, []entity.VideoSurfaceHandle{hb}, forgotten)
	})
}

func TestPool_EvictReturnsSurface(t *testing.T) {
	p, _ := newTestPool(t, 0, TieBreakLowestIndex)
	s, _ := p.Acquire(true)
	p.Reclaim(s)
	p.ShiftReferences(s, 0)
	require.False(t, s.Free())
	p.Evict(s)
	assert.True(t, s.Free())
	assert.Nil(t, p.References().Current)
}
