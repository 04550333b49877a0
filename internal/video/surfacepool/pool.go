// Package surfacepool owns the hardware decode surfaces and the mixer's
// past/current/future reference window.
package surfacepool

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bnema/vidpipe/internal/application/port"
	"github.com/bnema/vidpipe/internal/domain/entity"
)

// TieBreak picks among free surfaces that have been idle equally long.
type TieBreak string

const (
	// TieBreakLowestIndex prefers the surface earliest in the arena.
	TieBreakLowestIndex TieBreak = "lowest-index"
	// TieBreakMostRecent prefers the surface freed last.
	TieBreakMostRecent TieBreak = "most-recent"
)

// ParseTieBreak normalizes a config value, defaulting to lowest-index.
func ParseTieBreak(s string) TieBreak {
	if TieBreak(s) == TieBreakMostRecent {
		return TieBreakMostRecent
	}
	return TieBreakLowestIndex
}

// Window slot positions.
const (
	slotPast1 = iota
	slotPast0
	slotCurrent
	slotFuture0
	slotFuture1
)

// Stats is a snapshot of pool occupancy.
type Stats struct {
	Capacity   int
	Allocated  int
	Free       int
	Reference  int
	Render     int
	Queued     int
	Attached   int
	Generation entity.Generation
}

// Pool is a fixed-capacity arena of video surfaces. Surfaces are created
// on the device lazily and reused until the pool is invalidated.
type Pool struct {
	mu sync.Mutex

	logger      *zerolog.Logger
	maxSurfaces int
	tieBreak    TieBreak
	onDestroy   func(entity.VideoSurfaceHandle)

	session  port.DeviceSession
	format   entity.StreamFormat
	chroma   entity.ChromaType
	capacity int

	surfaces []*entity.VideoSurface
	freedAt  []uint64
	freeSeq  uint64
	window   [entity.ReferenceWindowSize]*entity.VideoSurface
	age      entity.PictureAge
}

// Config configures a pool.
type Config struct {
	// MaxSurfaces caps capacity regardless of the stream's reference count.
	MaxSurfaces int
	TieBreak    TieBreak
	// OnDestroy is called for every handle the pool forgets, before the
	// handle is destroyed on the device.
	OnDestroy func(entity.VideoSurfaceHandle)
}

// New returns an unconfigured pool.
func New(logger *zerolog.Logger, cfg Config) *Pool {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.MaxSurfaces <= 0 {
		cfg.MaxSurfaces = 32
	}
	return &Pool{
		logger:      logger,
		maxSurfaces: cfg.MaxSurfaces,
		tieBreak:    cfg.TieBreak,
		onDestroy:   cfg.OnDestroy,
		age:         entity.NewPictureAge(),
	}
}

// Capacity returns the number of surfaces the pool may hand out.
func (p *Pool) Capacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capacity
}

// Configure sizes the pool for a stream. A change of dimensions or chroma
// drops every surface; reconfigured reports whether that happened.
func (p *Pool) Configure(session port.DeviceSession, format entity.StreamFormat, chroma entity.ChromaType) (reconfigured bool) {
	capacity := format.RefFrames + entity.ReferenceWindowSize + 1
	if capacity > p.maxSurfaces {
		capacity = p.maxSurfaces
	}

	p.mu.Lock()
	reconfigured = p.capacity > 0 &&
		(format.Width != p.format.Width || format.Height != p.format.Height || chroma != p.chroma)
	var stale []*entity.VideoSurface
	if reconfigured || session.Generation != p.session.Generation {
		stale = p.dropAllLocked()
	}
	old := p.session
	p.session = session
	p.format = format
	p.chroma = chroma
	p.growLocked(capacity)
	p.mu.Unlock()

	p.destroy(old, stale)
	if reconfigured {
		p.logger.Info().
			Int("width", format.Width).
			Int("height", format.Height).
			Str("chroma", chroma.String()).
			Msg("stream geometry changed, surface pool invalidated")
	}
	p.logger.Debug().Int("capacity", capacity).Uint64("generation", uint64(session.Generation)).Msg("surface pool configured")
	return reconfigured
}

// growLocked resizes the arena to capacity, keeping surfaces still in use.
func (p *Pool) growLocked(capacity int) {
	for len(p.surfaces) < capacity {
		p.surfaces = append(p.surfaces, &entity.VideoSurface{Index: len(p.surfaces)})
		p.freedAt = append(p.freedAt, 0)
	}
	p.capacity = capacity
}

// Acquire hands a free surface to the decoder with its reference bit set.
// reference marks a frame other frames predict from, which drives the age
// bookkeeping.
func (p *Pool) Acquire(reference bool) (*entity.VideoSurface, error) {
	p.mu.Lock()
	if p.session.Device == nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("acquire surface: %w", entity.ErrClosed)
	}
	s := p.pickLocked()
	if s == nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("acquire surface (capacity %d): %w", p.capacity, entity.ErrPoolExhausted)
	}
	s.UsedForReference = true
	s.Idle = 0
	s.Age = p.age.Advance(reference)
	needsHandle := s.Handle == 0
	session := p.session
	width, height, chroma := p.format.Width, p.format.Height, p.chroma
	p.mu.Unlock()

	if !needsHandle {
		return s, nil
	}

	h, err := session.Device.CreateVideoSurface(chroma, width, height)
	if err != nil {
		p.mu.Lock()
		s.UsedForReference = false
		p.mu.Unlock()
		return nil, fmt.Errorf("create video surface: %w", err)
	}

	p.mu.Lock()
	if p.session.Generation != session.Generation || p.surfaces[s.Index] != s {
		// The pool was invalidated while the handle was being created.
		s.UsedForReference = false
		p.mu.Unlock()
		p.destroy(session, []*entity.VideoSurface{{Handle: h}})
		return nil, fmt.Errorf("create video surface: %w", entity.ErrStaleGeneration)
	}
	s.Handle = h
	s.Generation = session.Generation
	s.Chroma = chroma
	s.Width, s.Height = width, height
	p.mu.Unlock()
	return s, nil
}

// pickLocked returns the free surface that has been idle longest.
func (p *Pool) pickLocked() *entity.VideoSurface {
	var best *entity.VideoSurface
	for i := 0; i < p.capacity; i++ {
		s := p.surfaces[i]
		if !s.Free() {
			continue
		}
		switch {
		case best == nil:
			best = s
		case s.Idle > best.Idle:
			best = s
		case s.Idle == best.Idle && p.tieBreak == TieBreakMostRecent && p.freedAt[i] > p.freedAt[best.Index]:
			best = s
		}
	}
	return best
}

// Reclaim clears the decoder's reference bit. Surfaces from a previous
// generation are ignored.
func (p *Pool) Reclaim(s *entity.VideoSurface) {
	if s == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ownsLocked(s) {
		p.logger.Debug().Stringer("surface", s).Msg("reclaim of stale surface ignored")
		return
	}
	s.UsedForReference = false
	p.markFreedLocked(s)
}

// Release clears the render bit of a surface leaving the reference window.
// It refuses surfaces still attached to an output picture.
func (p *Pool) Release(s *entity.VideoSurface) error {
	if s == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.releaseLocked(s)
}

func (p *Pool) releaseLocked(s *entity.VideoSurface) error {
	if !p.ownsLocked(s) {
		return fmt.Errorf("release %s: %w", s, entity.ErrStaleGeneration)
	}
	if s.Attached > 0 {
		p.logger.Warn().Stringer("surface", s).Int("attached", s.Attached).Msg("surface released while attached to output picture")
		return fmt.Errorf("release %s: %w", s, entity.ErrSurfaceAttached)
	}
	s.UsedForRender = false
	p.markFreedLocked(s)
	return nil
}

func (p *Pool) markFreedLocked(s *entity.VideoSurface) {
	if s.Free() {
		p.freeSeq++
		p.freedAt[s.Index] = p.freeSeq
		s.Idle = 0
	}
}

// ownsLocked reports whether s is an arena surface of the current generation.
func (p *Pool) ownsLocked(s *entity.VideoSurface) bool {
	return s.Index >= 0 && s.Index < len(p.surfaces) && p.surfaces[s.Index] == s &&
		s.Handle != 0 && s.Generation == p.session.Generation
}

// Valid reports whether s may still be submitted to the current device.
func (p *Pool) Valid(s *entity.VideoSurface) bool {
	if s == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ownsLocked(s)
}

// Enqueue records that a decode message referencing s waits for the mixer.
func (p *Pool) Enqueue(s *entity.VideoSurface) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ownsLocked(s) {
		return fmt.Errorf("enqueue %s: %w", s, entity.ErrStaleGeneration)
	}
	s.Queued++
	return nil
}

// Dequeue undoes Enqueue for a message that will never enter the window.
func (p *Pool) Dequeue(s *entity.VideoSurface) {
	if s == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ownsLocked(s) && s.Queued > 0 {
		s.Queued--
		p.markFreedLocked(s)
	}
}

// ShiftReferences moves s into the reference window and advances it by
// one frame. With lookahead 2 the new surface enters as the far future
// and the frame two steps back becomes current; with 0 it enters as
// current. A nil s pushes the window forward during drain. The surface
// leaving past1 is released and every free surface ages by one.
func (p *Pool) ShiftReferences(s *entity.VideoSurface, lookahead int) entity.ReferenceSet {
	if lookahead < 0 {
		lookahead = 0
	}
	if lookahead > 2 {
		lookahead = 2
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if s != nil && !p.ownsLocked(s) {
		p.logger.Debug().Stringer("surface", s).Msg("stale surface kept out of reference window")
		s = nil
	}

	insert := slotCurrent + lookahead
	if out := p.window[slotPast1]; out != nil {
		p.window[slotPast1] = nil
		p.leaveWindowLocked(out)
	}
	copy(p.window[:insert], p.window[1:insert+1])
	p.window[insert] = s
	for i := insert + 1; i < len(p.window); i++ {
		if old := p.window[i]; old != nil {
			p.window[i] = nil
			p.leaveWindowLocked(old)
		}
	}

	if s != nil {
		if s.Queued > 0 {
			s.Queued--
		}
		s.UsedForRender = true
	}

	for _, surf := range p.surfaces[:p.capacity] {
		if surf.Free() {
			surf.Idle++
		}
	}
	return p.referenceSetLocked()
}

// leaveWindowLocked drops the render bit of a surface that left the
// window. An attached surface stays allocated until its picture detaches.
func (p *Pool) leaveWindowLocked(s *entity.VideoSurface) {
	if p.inWindowLocked(s) || !p.ownsLocked(s) {
		return
	}
	s.UsedForRender = false
	if s.Attached > 0 {
		p.logger.Trace().Stringer("surface", s).Msg("surface left window while attached")
	}
	p.markFreedLocked(s)
}

func (p *Pool) inWindowLocked(s *entity.VideoSurface) bool {
	for _, w := range p.window {
		if w == s {
			return true
		}
	}
	return false
}

func (p *Pool) referenceSetLocked() entity.ReferenceSet {
	return entity.ReferenceSet{
		Past:    [2]*entity.VideoSurface{p.window[slotPast0], p.window[slotPast1]},
		Current: p.window[slotCurrent],
		Future:  [2]*entity.VideoSurface{p.window[slotFuture0], p.window[slotFuture1]},
	}
}

// Evict takes s out of the reference window early. Dropped frames that no
// temporal stage will read again go back to the pool this way.
func (p *Pool) Evict(s *entity.VideoSurface) {
	if s == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, w := range p.window {
		if w == s {
			p.window[i] = nil
		}
	}
	p.leaveWindowLocked(s)
}

// References returns the current window without advancing it.
func (p *Pool) References() entity.ReferenceSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.referenceSetLocked()
}

// ClearWindow releases every surface in the reference window.
func (p *Pool) ClearWindow() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.window {
		p.window[i] = nil
		if s != nil {
			p.leaveWindowLocked(s)
		}
	}
}

// Attach records an output picture displaying s directly.
func (p *Pool) Attach(s *entity.VideoSurface) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ownsLocked(s) {
		return fmt.Errorf("attach %s: %w", s, entity.ErrStaleGeneration)
	}
	s.Attached++
	return nil
}

// Detach undoes Attach once the output picture is freed.
func (p *Pool) Detach(s *entity.VideoSurface) {
	if s == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ownsLocked(s) && s.Attached > 0 {
		s.Attached--
		p.markFreedLocked(s)
	}
}

// Reset returns every surface to the free state and empties the window.
// Device handles are kept.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.window = [entity.ReferenceWindowSize]*entity.VideoSurface{}
	for _, s := range p.surfaces {
		s.UsedForReference = false
		s.UsedForRender = false
		s.Queued = 0
		s.Attached = 0
		s.Idle = 0
	}
	p.age = entity.NewPictureAge()
}

// Trim destroys the device handles of free surfaces. They are recreated on
// the next Acquire.
func (p *Pool) Trim() int {
	p.mu.Lock()
	var victims []*entity.VideoSurface
	for _, s := range p.surfaces {
		if s.Handle != 0 && s.Free() {
			victims = append(victims, &entity.VideoSurface{Handle: s.Handle})
			s.Handle = 0
		}
	}
	session := p.session
	p.mu.Unlock()

	p.destroy(session, victims)
	return len(victims)
}

// Invalidate forgets every surface created under the current generation.
// Handles are destroyed on the old device only when destroyOld is set;
// after a preemption the device is gone and destroying is pointless.
func (p *Pool) Invalidate(destroyOld bool) {
	p.mu.Lock()
	stale := p.dropAllLocked()
	session := p.session
	p.mu.Unlock()

	if !destroyOld {
		p.forget(stale)
		return
	}
	p.destroy(session, stale)
}

// dropAllLocked replaces the arena with fresh entries and returns the old
// surfaces that held handles.
func (p *Pool) dropAllLocked() []*entity.VideoSurface {
	var stale []*entity.VideoSurface
	for i, s := range p.surfaces {
		if s.Handle != 0 {
			stale = append(stale, s)
		}
		p.surfaces[i] = &entity.VideoSurface{Index: i}
		p.freedAt[i] = 0
	}
	p.window = [entity.ReferenceWindowSize]*entity.VideoSurface{}
	p.age = entity.NewPictureAge()
	return stale
}

func (p *Pool) forget(surfaces []*entity.VideoSurface) {
	if p.onDestroy == nil {
		return
	}
	for _, s := range surfaces {
		p.onDestroy(s.Handle)
	}
}

func (p *Pool) destroy(session port.DeviceSession, surfaces []*entity.VideoSurface) {
	p.forget(surfaces)
	if session.Device == nil {
		return
	}
	for _, s := range surfaces {
		if err := session.Device.DestroyVideoSurface(s.Handle); err != nil {
			p.logger.Debug().Err(err).Uint32("handle", uint32(s.Handle)).Msg("destroy video surface failed")
		}
	}
}

// Close destroys every handle and detaches the pool from its device.
func (p *Pool) Close() {
	p.Invalidate(true)
	p.mu.Lock()
	p.session = port.DeviceSession{}
	p.capacity = 0
	p.mu.Unlock()
}

// Stats returns an occupancy snapshot.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Stats{Capacity: p.capacity, Generation: p.session.Generation}
	for _, s := range p.surfaces[:p.capacity] {
		if s.Handle != 0 {
			st.Allocated++
		}
		if s.Free() {
			st.Free++
		}
		if s.UsedForReference {
			st.Reference++
		}
		if s.UsedForRender {
			st.Render++
		}
		if s.Queued > 0 {
			st.Queued++
		}
		if s.Attached > 0 {
			st.Attached++
		}
	}
	return st
}
