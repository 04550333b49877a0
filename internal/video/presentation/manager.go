// Package presentation owns the output picture arena and the flip ring
// the GPU texture consumer reads from.
package presentation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bnema/vidpipe/internal/application/port"
	"github.com/bnema/vidpipe/internal/domain/entity"
	"github.com/bnema/vidpipe/internal/video/notify"
)

// ErrPaused is returned while recovery holds the presentation side.
var ErrPaused = errors.New("presentation paused for recovery")

// SurfaceDetacher gives decode surfaces back when a YUV picture is freed.
type SurfaceDetacher interface {
	Detach(s *entity.VideoSurface)
}

// Config sizes the arena and the flip ring.
type Config struct {
	Pictures  int
	FlipSlots int
	// Strict turns interop bracket violations into panics.
	Strict bool
}

// Stats is a snapshot of the arena.
type Stats struct {
	Method     entity.OutputMethod
	Generation entity.Generation
	Pictures   int
	Free       int
	Used       int
	InFlip     int
	Retired    int
	Held       int
	Presented  uint64
	Dropped    uint64
	Discarded  uint64
}

type flipSlot struct {
	pic     *entity.OutputPicture
	held    bool
	heldPic *entity.OutputPicture
	// stale marks a slot the consumer still held when the arena was torn
	// down; its release is swallowed.
	stale bool
}

// Manager hands free pictures to the mixer worker and presented pictures
// to the consumer.
type Manager struct {
	logger   *zerolog.Logger
	cfg      Config
	signal   *notify.Broadcaster
	detacher SurfaceDetacher

	mu      sync.Mutex
	session port.DeviceSession
	backend Backend
	pics    []*entity.OutputPicture
	free    []int
	ring    []flipSlot
	next    int
	last    int

	// pauses counts nested Pause calls.
	pauses   int
	inflight int
	// drained is closed when inflight drops to zero.
	drained chan struct{}

	presented uint64
	dropped   uint64
	discarded uint64
}

// New creates an unprepared manager. signal is broadcast whenever a
// picture returns to the free deque.
func New(logger *zerolog.Logger, cfg Config, signal *notify.Broadcaster, detacher SurfaceDetacher) *Manager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if signal == nil {
		signal = notify.New()
	}
	return &Manager{
		logger:   logger,
		cfg:      cfg,
		signal:   signal,
		detacher: detacher,
		last:     -1,
	}
}

// SetCapacity changes the arena size used by the next Prepare.
func (m *Manager) SetCapacity(pictures int) {
	m.mu.Lock()
	m.cfg.Pictures = pictures
	m.mu.Unlock()
}

// Prepare builds the arena for a backend. Mixer methods get one output
// surface per picture. Any failure leaves the manager unprepared and is
// reported as ErrOutputBindingFailed.
func (m *Manager) Prepare(ctx context.Context, session port.DeviceSession, backend Backend, width, height int) error {
	m.mu.Lock()
	count := m.cfg.Pictures
	m.mu.Unlock()
	pics := make([]*entity.OutputPicture, count)
	for i := range pics {
		pics[i] = &entity.OutputPicture{Index: i, Slot: -1, Generation: session.Generation}
	}

	if backend.Method().UsesMixer() {
		for _, pic := range pics {
			h, err := session.Device.CreateOutputSurface(width, height)
			if err != nil {
				m.destroySurfaces(session, pics)
				return fmt.Errorf("create output surface %d: %w: %w", pic.Index, entity.ErrOutputBindingFailed, err)
			}
			pic.OutputSurface = h
		}
	}

	if err := backend.Prepare(ctx, pics); err != nil {
		backend.Teardown(pics)
		m.destroySurfaces(session, pics)
		return fmt.Errorf("prepare %s backend: %w: %w", backend.Method(), entity.ErrOutputBindingFailed, err)
	}

	m.mu.Lock()
	m.session = session
	m.backend = backend
	m.pics = pics
	m.free = make([]int, 0, len(pics))
	for i := range pics {
		m.free = append(m.free, i)
	}
	ring := make([]flipSlot, m.cfg.FlipSlots)
	for i := range ring {
		if i < len(m.ring) {
			ring[i].stale = m.ring[i].stale
		}
	}
	m.ring = ring
	m.next = 0
	m.last = -1
	m.mu.Unlock()

	m.logger.Info().
		Str("method", string(backend.Method())).
		Int("pictures", len(pics)).
		Int("flip_slots", m.cfg.FlipSlots).
		Uint64("generation", uint64(session.Generation)).
		Msg("presentation prepared")
	m.signal.Broadcast()
	return nil
}

func (m *Manager) destroySurfaces(session port.DeviceSession, pics []*entity.OutputPicture) {
	for _, pic := range pics {
		if pic.OutputSurface == 0 {
			continue
		}
		if err := session.Device.DestroyOutputSurface(pic.OutputSurface); err != nil {
			m.logger.Debug().Err(err).Int("picture", pic.Index).Msg("destroy output surface failed")
		}
		pic.OutputSurface = 0
	}
}

// Teardown unbinds and destroys every device and GPU resource of the
// current arena. Slots the consumer holds are marked stale.
func (m *Manager) Teardown() {
	m.mu.Lock()
	pics := m.pics
	backend := m.backend
	session := m.session
	for i := range m.ring {
		s := &m.ring[i]
		s.stale = s.held
		s.pic, s.heldPic, s.held = nil, nil, false
	}
	m.pics = nil
	m.free = nil
	m.backend = nil
	m.session = port.DeviceSession{}
	m.last = -1
	m.mu.Unlock()

	if backend == nil {
		return
	}
	backend.Teardown(pics)
	for _, pic := range pics {
		if vs := pic.VideoSurface; vs != nil && m.detacher != nil {
			m.detacher.Detach(vs)
		}
		pic.VideoSurface = nil
		pic.State = entity.PictureFree
	}
	m.destroySurfaces(session, pics)
	m.logger.Debug().Uint64("generation", uint64(session.Generation)).Msg("presentation torn down")
	m.signal.Broadcast()
}

// Method returns the active output method, or OutputNone when unprepared.
func (m *Manager) Method() entity.OutputMethod {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backend == nil {
		return entity.OutputNone
	}
	return m.backend.Method()
}

// FreeCount returns the number of pictures in the free deque.
func (m *Manager) FreeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.free)
}

// Signal returns the broadcaster fired when pictures are freed.
func (m *Manager) Signal() *notify.Broadcaster { return m.signal }

// TryClaim takes a free picture for the mixer worker without blocking.
func (m *Manager) TryClaim() (*entity.OutputPicture, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pauses > 0 || len(m.free) == 0 {
		return nil, false
	}
	idx := m.free[0]
	m.free = m.free[1:]
	pic := m.pics[idx]
	if pic.State != entity.PictureFree {
		panic(fmt.Sprintf("presentation: picture %d claimed while %s", pic.Index, pic.State))
	}
	pic.State = entity.PictureUsed
	pic.Reported = false
	pic.Field = entity.FieldFrame
	pic.Meta = entity.PictureInfo{}
	pic.Generation = m.session.Generation
	return pic, true
}

// Claim waits for a free picture until ctx is done.
func (m *Manager) Claim(ctx context.Context) (*entity.OutputPicture, error) {
	for {
		ch := m.signal.Wait()
		if pic, ok := m.TryClaim(); ok {
			return pic, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (m *Manager) ownsLocked(pic *entity.OutputPicture) bool {
	return pic != nil && pic.Index >= 0 && pic.Index < len(m.pics) && m.pics[pic.Index] == pic
}

// Free returns a picture to the free deque. Pictures of a torn-down arena
// are ignored.
func (m *Manager) Free(pic *entity.OutputPicture) {
	m.mu.Lock()
	if !m.ownsLocked(pic) {
		m.mu.Unlock()
		return
	}
	if pic.State == entity.PictureFree {
		m.mu.Unlock()
		m.logger.Error().Int("picture", pic.Index).Msg("picture freed twice")
		return
	}
	vs := pic.VideoSurface
	pic.VideoSurface = nil
	pic.State = entity.PictureFree
	pic.Slot = -1
	m.free = append(m.free, pic.Index)
	m.mu.Unlock()

	if vs != nil && m.detacher != nil {
		m.detacher.Detach(vs)
	}
	m.signal.Broadcast()
}

func (m *Manager) enter() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pauses > 0 {
		return ErrPaused
	}
	if m.backend == nil {
		return fmt.Errorf("presentation: %w", entity.ErrOutputUnavailable)
	}
	m.inflight++
	return nil
}

func (m *Manager) exit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight--
	if m.inflight == 0 && m.drained != nil {
		close(m.drained)
		m.drained = nil
	}
}

// Present displays a Used picture and moves it into the next flip slot,
// returning the slot index. The slot's previous occupant is freed unless
// the consumer holds it, in which case it retires until ReleaseTexture.
func (m *Manager) Present(ctx context.Context, pic *entity.OutputPicture) (int, error) {
	if err := m.enter(); err != nil {
		return -1, err
	}
	defer m.exit()

	m.mu.Lock()
	if !m.ownsLocked(pic) || pic.Generation != m.session.Generation {
		m.mu.Unlock()
		return -1, fmt.Errorf("present %s: %w", pic, entity.ErrStaleGeneration)
	}
	if pic.State != entity.PictureUsed {
		m.mu.Unlock()
		panic(fmt.Sprintf("presentation: present of picture %d in state %s", pic.Index, pic.State))
	}
	backend := m.backend
	m.mu.Unlock()

	if err := backend.Display(ctx, pic); err != nil {
		return -1, err
	}

	m.mu.Lock()
	idx := m.next
	m.next = (m.next + 1) % len(m.ring)
	s := &m.ring[idx]
	var evict *entity.OutputPicture
	if old := s.pic; old != nil {
		if s.held && s.heldPic == old {
			old.State = entity.PictureRetired
		} else {
			evict = old
		}
		if !old.Reported {
			old.Reported = true
			m.dropped++
		}
	}
	s.pic = pic
	pic.State = entity.PictureInFlip
	pic.Slot = idx
	m.last = idx
	m.presented++
	m.mu.Unlock()

	if evict != nil {
		m.logger.Trace().Int("slot", idx).Int("picture", evict.Index).Msg("flip slot evicted")
		m.Free(evict)
	}
	return idx, nil
}

// AcquireTexture binds or maps the picture in slot and returns its
// texture. Acquiring a held slot again returns the same texture.
func (m *Manager) AcquireTexture(slot int) (entity.Texture, error) {
	if err := m.enter(); err != nil {
		return entity.Texture{}, err
	}
	defer m.exit()

	m.mu.Lock()
	if slot < 0 || slot >= len(m.ring) {
		m.mu.Unlock()
		return entity.Texture{}, fmt.Errorf("acquire slot %d: out of range", slot)
	}
	s := &m.ring[slot]
	pic := s.pic
	if pic == nil {
		m.mu.Unlock()
		return entity.Texture{}, fmt.Errorf("acquire slot %d: %w", slot, entity.ErrSlotEmpty)
	}
	if s.held {
		if s.heldPic == pic {
			tex := textureOf(pic, slot, m.backend.Bracketed())
			m.mu.Unlock()
			return tex, nil
		}
		m.mu.Unlock()
		return entity.Texture{}, m.violation(fmt.Errorf("acquire slot %d before releasing picture %d: %w",
			slot, s.heldPic.Index, entity.ErrInteropBracket))
	}
	s.held = true
	s.heldPic = pic
	s.stale = false
	pic.Reported = true
	backend := m.backend
	m.mu.Unlock()

	tex, err := backend.Acquire(pic)
	if err != nil {
		m.mu.Lock()
		if s.heldPic == pic {
			s.held, s.heldPic = false, nil
		}
		m.mu.Unlock()
		if errors.Is(err, entity.ErrInteropBracket) {
			return entity.Texture{}, m.violation(err)
		}
		return entity.Texture{}, err
	}
	tex.Slot = slot
	tex.Field = pic.Field
	tex.Meta = pic.Meta
	return tex, nil
}

func textureOf(pic *entity.OutputPicture, slot int, bracketed bool) entity.Texture {
	planes := 1
	if bracketed && pic.VideoSurface != nil {
		planes = entity.MaxPlanes
	}
	return entity.Texture{
		Slot:     slot,
		Pixmap:   pic.Pixmap,
		Textures: pic.Textures,
		Planes:   planes,
		Field:    pic.Field,
		Meta:     pic.Meta,
	}
}

// ReleaseTexture ends the consumer's use of slot: the texture is unbound
// or unmapped and the picture returns to the free deque.
func (m *Manager) ReleaseTexture(slot int) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()

	m.mu.Lock()
	if slot < 0 || slot >= len(m.ring) {
		m.mu.Unlock()
		return fmt.Errorf("release slot %d: out of range", slot)
	}
	s := &m.ring[slot]
	if s.stale {
		s.stale = false
		m.mu.Unlock()
		return nil
	}
	if !s.held {
		bracketed := m.backend.Bracketed()
		m.mu.Unlock()
		if bracketed {
			return m.violation(fmt.Errorf("release of slot %d without acquire: %w", slot, entity.ErrInteropBracket))
		}
		return nil
	}
	pic := s.heldPic
	s.held, s.heldPic = false, nil
	if s.pic == pic {
		s.pic = nil
	}
	backend := m.backend
	m.mu.Unlock()

	err := backend.Release(pic)
	m.Free(pic)
	if err != nil {
		if errors.Is(err, entity.ErrInteropBracket) {
			return m.violation(err)
		}
		return err
	}
	return nil
}

// violation handles a broken map/unmap bracket: fatal in strict mode,
// otherwise logged and the frame skipped.
func (m *Manager) violation(err error) error {
	if m.cfg.Strict {
		panic(err.Error())
	}
	m.logger.Error().Err(err).Msg("interop bracket violated, frame skipped")
	return err
}

// IsSlotValid reports whether slot holds a picture of the live arena.
func (m *Manager) IsSlotValid(slot int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slot < 0 || slot >= len(m.ring) {
		return false
	}
	pic := m.ring[slot].pic
	return pic != nil && m.ownsLocked(pic) && pic.Generation == m.session.Generation
}

// Discard frees the most recently presented picture if the consumer has
// not acquired it.
func (m *Manager) Discard() bool {
	m.mu.Lock()
	if m.last < 0 || m.last >= len(m.ring) {
		m.mu.Unlock()
		return false
	}
	s := &m.ring[m.last]
	pic := s.pic
	if pic == nil || (s.held && s.heldPic == pic) {
		m.mu.Unlock()
		return false
	}
	s.pic = nil
	m.discarded++
	m.mu.Unlock()

	m.Free(pic)
	return true
}

// Reset empties the flip ring and frees every presented or retired
// picture. Held textures are released first.
func (m *Manager) Reset() {
	m.mu.Lock()
	backend := m.backend
	var held, flipped []*entity.OutputPicture
	for i := range m.ring {
		s := &m.ring[i]
		if s.held && s.heldPic != nil {
			held = append(held, s.heldPic)
		}
		s.pic, s.heldPic, s.held, s.stale = nil, nil, false, false
	}
	for _, pic := range m.pics {
		if pic.State == entity.PictureInFlip || pic.State == entity.PictureRetired {
			flipped = append(flipped, pic)
		}
	}
	m.next = 0
	m.last = -1
	m.mu.Unlock()

	for _, pic := range held {
		if err := backend.Release(pic); err != nil {
			m.logger.Debug().Err(err).Int("picture", pic.Index).Msg("release on reset failed")
		}
	}
	for _, pic := range flipped {
		m.Free(pic)
	}
}

type videoSurfaceForgetter interface {
	Forget(h entity.VideoSurfaceHandle)
}

// ForgetVideoSurface drops whatever the active backend registered for a
// decode surface handle that is being destroyed.
func (m *Manager) ForgetVideoSurface(h entity.VideoSurfaceHandle) {
	m.mu.Lock()
	backend := m.backend
	m.mu.Unlock()
	if f, ok := backend.(videoSurfaceForgetter); ok {
		f.Forget(h)
	}
}

// Pause blocks new presentation calls and waits for in-flight ones.
// Pauses nest; each successful Pause needs one Resume. A Pause cut short
// by ctx holds nothing.
func (m *Manager) Pause(ctx context.Context) error {
	m.mu.Lock()
	m.pauses++
	if m.inflight == 0 {
		m.mu.Unlock()
		return nil
	}
	if m.drained == nil {
		m.drained = make(chan struct{})
	}
	drained := m.drained
	m.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		m.Resume()
		return ctx.Err()
	}
}

// Resume reopens presentation after Pause.
func (m *Manager) Resume() {
	m.mu.Lock()
	if m.pauses > 0 {
		m.pauses--
	}
	m.mu.Unlock()
	m.signal.Broadcast()
}

// Stats returns an arena snapshot.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Stats{
		Method:     entity.OutputNone,
		Generation: m.session.Generation,
		Pictures:   len(m.pics),
		Presented:  m.presented,
		Dropped:    m.dropped,
		Discarded:  m.discarded,
	}
	if m.backend != nil {
		st.Method = m.backend.Method()
	}
	for _, pic := range m.pics {
		switch pic.State {
		case entity.PictureFree:
			st.Free++
		case entity.PictureUsed:
			st.Used++
		case entity.PictureInFlip:
			st.InFlip++
		case entity.PictureRetired:
			st.Retired++
		}
	}
	for _, s := range m.ring {
		if s.held {
			st.Held++
		}
	}
	return st
}
