// Package video is the hardware presentation pipeline facade. A Decoder
// ties the surface pool, feature negotiation, the mixer worker, the flip
// ring and device recovery together behind the calls a decode library and
// a GPU texture consumer make.
package video

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/bnema/vidpipe/internal/application/port"
	"github.com/bnema/vidpipe/internal/domain/entity"
	"github.com/bnema/vidpipe/internal/logging"
	"github.com/bnema/vidpipe/internal/video/features"
	"github.com/bnema/vidpipe/internal/video/mixer"
	"github.com/bnema/vidpipe/internal/video/notify"
	"github.com/bnema/vidpipe/internal/video/presentation"
	"github.com/bnema/vidpipe/internal/video/recovery"
	"github.com/bnema/vidpipe/internal/video/surfacepool"
)

// Deps are the hardware and GPU ports the pipeline runs against.
type Deps struct {
	Factory  port.DeviceFactory
	Renderer port.RendererCaps
	Pixmaps  port.PixmapSurface
	Interop  port.GLInterop
}

// Options configure a Decoder.
type Options struct {
	Limits        Limits
	Features      entity.FeatureRequest
	OutputMethod  entity.OutputMethod
	StrictInterop bool
	TieBreak      surfacepool.TieBreak

	// WaitSlice bounds every internal wait between safe-point checks.
	WaitSlice time.Duration

	RecoveryAttempts int
	RecoveryBackoff  time.Duration
	OnStateChange    func(entity.RecoveryState)
}

// DefaultOptions returns stock limits and feature settings.
func DefaultOptions() Options {
	return Options{
		Limits:           DefaultLimits(),
		Features:         entity.DefaultFeatureRequest(),
		TieBreak:         surfacepool.TieBreakLowestIndex,
		WaitSlice:        50 * time.Millisecond,
		RecoveryAttempts: 3,
	}
}

// Stats is a snapshot of the whole pipeline.
type Stats struct {
	Health     entity.Health
	Method     entity.OutputMethod
	Generation entity.Generation
	Features   *entity.FeatureSet
	Pool       surfacepool.Stats
	Pictures   presentation.Stats
	Worker     mixer.Stats
	Recovery   recovery.Stats
}

var _ port.VideoPipeline = (*Decoder)(nil)

// liveState is the configuration the frame path checks against.
type liveState struct {
	configured bool
	method     entity.OutputMethod
	generation entity.Generation
}

// Decoder is one configured pipeline instance.
type Decoder struct {
	logger *zerolog.Logger
	opts   Options
	deps   Deps

	signal   *notify.Broadcaster
	pool     *surfacepool.Pool
	neg      *features.Negotiator
	pictures *presentation.Manager
	worker   *mixer.Worker
	recovery *recovery.Controller

	// mu serializes configuration and recovery. Frame-path calls read
	// live instead.
	mu         sync.Mutex
	session    port.DeviceSession
	mx         port.Mixer
	stream     entity.StreamFormat
	method     entity.OutputMethod
	configured bool

	live      atomic.Pointer[liveState]
	allowDrop atomic.Bool
	closed    atomic.Bool
	cancel    context.CancelFunc
}

// New opens the device and starts the mixer worker. The logger is taken
// from ctx. Device creation failures are fatal.
func New(ctx context.Context, deps Deps, opts Options) (*Decoder, error) {
	if deps.Factory == nil || deps.Renderer == nil {
		return nil, errors.New("video: device factory and renderer are required")
	}
	if err := opts.Limits.Validate(); err != nil {
		return nil, err
	}
	if opts.WaitSlice <= 0 {
		opts.WaitSlice = 50 * time.Millisecond
	}

	logger := logging.Component(ctx, "video")
	dev, err := deps.Factory.Open(ctx)
	if err != nil {
		if !errors.Is(err, entity.ErrDeviceCreationFailed) {
			err = fmt.Errorf("%w: %w", entity.ErrDeviceCreationFailed, err)
		}
		return nil, err
	}

	d := &Decoder{
		logger:  logger,
		opts:    opts,
		deps:    deps,
		signal:  notify.New(),
		session: port.DeviceSession{Device: dev, Generation: 1},
		method:  entity.OutputNone,
	}
	d.allowDrop.Store(true)
	d.publishLocked()

	d.pool = surfacepool.New(logging.Component(ctx, "surfacepool"), surfacepool.Config{
		MaxSurfaces: opts.Limits.MaxVideoSurfaces,
		TieBreak:    opts.TieBreak,
		OnDestroy:   func(h entity.VideoSurfaceHandle) { d.pictures.ForgetVideoSurface(h) },
	})
	d.neg = features.New(logging.Component(ctx, "features"), features.Config{FullHDWidth: opts.Limits.FullHDWidth})
	d.pictures = presentation.New(logging.Component(ctx, "presentation"), presentation.Config{
		Pictures:  opts.Limits.OutputPictures,
		FlipSlots: opts.Limits.FlipSlots,
		Strict:    opts.StrictInterop,
	}, d.signal, d.pool)
	d.recovery = recovery.New(logging.Component(ctx, "recovery"), recovery.Config{
		MaxAttempts: opts.RecoveryAttempts,
		Backoff:     opts.RecoveryBackoff,
		Observer:    opts.OnStateChange,
	}, recovery.RebuildFunc(d.rebuild), d.session.Generation)
	d.worker = mixer.New(logging.Component(ctx, "mixer"), mixer.Config{
		QueueLength: opts.Limits.MaxPictureQueue,
		ClaimSlice:  opts.WaitSlice,
	}, d.pool, d.pictures, d.neg, d.recovery, d.signal)
	d.recovery.Register(d.worker, d.pictures)

	if err := dev.RegisterPreemption(d.recovery.OnPreempted); err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("register preemption callback: %w: %w", entity.ErrDeviceCreationFailed, err)
	}
	if _, err := d.neg.Probe(ctx, dev); err != nil {
		logger.Warn().Err(err).Msg("initial capability probe failed")
	}

	// The worker outlives the caller's ctx; Close stops it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel
	go func() {
		if err := d.worker.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("mixer worker stopped")
		}
	}()

	logger.Info().Str("device", dev.Name()).Msg("video pipeline created")
	return d, nil
}

// publishLocked makes the current configuration visible to the frame
// path. d.mu must be held.
func (d *Decoder) publishLocked() {
	d.live.Store(&liveState{
		configured: d.configured,
		method:     d.method,
		generation: d.session.Generation,
	})
}

func (d *Decoder) snapshot() *liveState { return d.live.Load() }

// safePoint runs a pending recovery. It is called at the top of every
// public operation.
func (d *Decoder) safePoint(ctx context.Context) error {
	if d.closed.Load() {
		return entity.ErrClosed
	}
	return d.recovery.CheckRecover(ctx, false)
}

// observe latches a preemption seen in a call error.
func (d *Decoder) observe(err error) bool {
	return err != nil && d.recovery.Observe(err)
}

// Configure sets the pipeline up for a stream: decoder caps check,
// feature negotiation, pool sizing and output method selection.
func (d *Decoder) Configure(ctx context.Context, stream entity.StreamFormat) error {
	if err := d.safePoint(ctx); err != nil {
		return err
	}
	if err := d.neg.CheckDecoder(stream); err != nil {
		return err
	}

	d.mu.Lock()
	d.stream = stream
	d.configured = true
	err := d.configureLocked(ctx, d.method)
	if err != nil && !entity.IsPreempted(err) {
		d.configured = false
	}
	d.publishLocked()
	d.mu.Unlock()

	if err != nil {
		if d.observe(err) {
			// Recovery rebuilds the configuration on a fresh device.
			return d.safePoint(ctx)
		}
		return err
	}
	return nil
}

// configureLocked (re)builds every device resource for d.stream on
// d.session. d.mu must be held.
func (d *Decoder) configureLocked(ctx context.Context, preferred entity.OutputMethod) error {
	session := d.session
	log := d.logger.With().Uint64("generation", uint64(session.Generation)).Logger()

	if _, err := d.neg.Negotiate(ctx, session.Device, d.opts.Features, d.stream); err != nil {
		return fmt.Errorf("negotiate features: %w", err)
	}
	_, chroma, _ := entity.ReadFormatOf(d.stream.Codec)

	if err := d.worker.Flush(ctx); err != nil {
		return fmt.Errorf("flush mixer worker: %w", err)
	}
	// The consumer may be inside Present or AcquireTexture on the old
	// arena.
	if err := d.pictures.Pause(ctx); err != nil {
		return fmt.Errorf("pause presentation: %w", err)
	}
	defer d.pictures.Resume()
	d.teardownOutputLocked()
	d.pool.Configure(session, d.stream, chroma)

	if preferred == "" || preferred == entity.OutputNone {
		preferred = d.opts.OutputMethod
	}
	method, err := mixer.ConfigureOutput(ctx, &log, preferred, d.deps.Renderer, func(ctx context.Context, m entity.OutputMethod) error {
		return d.bindOutputLocked(ctx, session, m, chroma)
	})
	if err != nil {
		return err
	}
	d.method = method

	w, h := d.deps.Renderer.OutputSize()
	d.neg.SetOutputSize(w, h)
	d.worker.SetTarget(mixer.Target{Mixer: d.mx, Device: session.Device, Generation: session.Generation, Method: method})
	log.Info().
		Str("codec", string(d.stream.Codec)).
		Int("width", d.stream.Width).
		Int("height", d.stream.Height).
		Str("method", string(method)).
		Msg("pipeline configured")
	return nil
}

func (d *Decoder) backendFor(m entity.OutputMethod, width, height int) (presentation.Backend, error) {
	switch m {
	case entity.OutputPixmap:
		if d.deps.Pixmaps == nil {
			return nil, errors.New("no pixmap surface available")
		}
		return presentation.NewPixmapBackend(d.logger, d.deps.Pixmaps, width, height), nil
	case entity.OutputGLInteropRGB, entity.OutputGLInteropYUV:
		if d.deps.Interop == nil {
			return nil, errors.New("no gl interop available")
		}
		return presentation.NewInteropBackend(d.logger, d.deps.Interop, m == entity.OutputGLInteropYUV), nil
	default:
		return nil, fmt.Errorf("unknown output method %q", m)
	}
}

// bindOutputLocked tries one output method: mixer creation for the mixed
// methods, then the picture arena.
func (d *Decoder) bindOutputLocked(ctx context.Context, session port.DeviceSession, m entity.OutputMethod, chroma entity.ChromaType) error {
	width, height := d.deps.Renderer.OutputSize()
	backend, err := d.backendFor(m, width, height)
	if err != nil {
		return err
	}

	var mx port.Mixer
	if m.UsesMixer() {
		// Every supported feature is created up front so later feature
		// changes only toggle enables.
		caps := d.neg.Capabilities()
		var required []entity.MixerFeature
		for _, f := range entity.AllMixerFeatures() {
			if caps.Has(f) {
				required = append(required, f)
			}
		}
		mx, err = session.Device.CreateMixer(port.MixerConfig{
			Width:    d.stream.Width,
			Height:   d.stream.Height,
			Chroma:   chroma,
			Features: required,
		})
		if err != nil {
			return fmt.Errorf("create mixer: %w", err)
		}
	}

	d.pictures.SetCapacity(d.opts.Limits.Pictures(m))
	if err := d.pictures.Prepare(ctx, session, backend, width, height); err != nil {
		if mx != nil {
			_ = mx.Destroy()
		}
		return err
	}
	d.mx = mx
	return nil
}

func (d *Decoder) teardownOutputLocked() {
	d.pictures.Teardown()
	if d.mx != nil {
		if err := d.mx.Destroy(); err != nil {
			d.logger.Debug().Err(err).Msg("destroy mixer failed")
		}
		d.mx = nil
	}
}

// rebuild is the recovery step: everything on the lost device is dropped
// and rebuilt on a new one carrying gen.
func (d *Decoder) rebuild(ctx context.Context, gen entity.Generation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.publishLocked()

	old := d.session
	d.teardownOutputLocked()
	d.pool.Invalidate(false)
	if old.Device != nil {
		if err := old.Device.Close(); err != nil {
			d.logger.Debug().Err(err).Msg("close lost device failed")
		}
	}
	d.session = port.DeviceSession{}

	dev, err := d.deps.Factory.Open(ctx)
	if err != nil {
		return fmt.Errorf("reopen device: %w", err)
	}
	d.session = port.DeviceSession{Device: dev, Generation: gen}
	if err := dev.RegisterPreemption(d.recovery.OnPreempted); err != nil {
		return fmt.Errorf("register preemption callback: %w", err)
	}
	if !d.configured {
		d.worker.SetTarget(mixer.Target{Device: dev, Generation: gen})
		return nil
	}
	return d.configureLocked(ctx, d.method)
}

// Decode queues a decoded frame for mixing. The frame's surface must come
// from SupplySurface on the live generation.
func (d *Decoder) Decode(ctx context.Context, msg *entity.DecodeMessage) error {
	if err := d.safePoint(ctx); err != nil {
		return err
	}
	live := d.snapshot()
	configured, method, gen := live.configured, live.method, live.generation
	if !configured || method == entity.OutputNone {
		return fmt.Errorf("decode: %w", entity.ErrOutputUnavailable)
	}

	if msg == nil || msg.Surface == nil {
		return errors.New("decode: message carries no surface")
	}
	msg.Generation = gen
	if err := d.pool.Enqueue(msg.Surface); err != nil {
		return err
	}
	if err := d.worker.Submit(msg, d.cost(method, msg)); err != nil {
		d.pool.Dequeue(msg.Surface)
		return err
	}
	return nil
}

// cost is the number of output pictures a message will produce.
func (d *Decoder) cost(method entity.OutputMethod, msg *entity.DecodeMessage) int {
	if method.UsesMixer() && msg.Picture.Interlaced && d.neg.Current().FieldRate() {
		return 2
	}
	return 1
}

// QueueIsFull reports whether every free picture is already promised to
// a queued message. With wait it blocks until that is no longer true or
// ctx ends.
func (d *Decoder) QueueIsFull(ctx context.Context, wait bool) bool {
	for {
		ch := d.signal.Wait()
		if d.closed.Load() {
			return false
		}
		full := d.pictures.FreeCount() <= d.worker.Pending()
		if !full || !wait {
			return full
		}
		t := time.NewTimer(d.opts.WaitSlice)
		select {
		case <-ch:
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return true
		}
		t.Stop()
	}
}

// SupplySurface hands the decode library a free surface. reference marks
// a frame other frames predict from.
func (d *Decoder) SupplySurface(ctx context.Context, reference bool) (*entity.VideoSurface, error) {
	if err := d.safePoint(ctx); err != nil {
		return nil, err
	}
	s, err := d.pool.Acquire(reference)
	if err != nil {
		d.observe(err)
		return nil, err
	}
	return s, nil
}

// ReclaimSurface returns a surface the decode library no longer needs.
func (d *Decoder) ReclaimSurface(s *entity.VideoSurface) {
	d.pool.Reclaim(s)
}

// GetPicture presents the next rendered picture and returns its flip
// slot. It waits until a picture arrives or ctx ends.
func (d *Decoder) GetPicture(ctx context.Context) (int, error) {
	for {
		if err := d.safePoint(ctx); err != nil {
			return -1, err
		}
		t := time.NewTimer(d.opts.WaitSlice)
		select {
		case pic := <-d.worker.Output():
			t.Stop()
			if pic.Generation != d.snapshot().generation {
				d.pictures.Free(pic)
				continue
			}
			slot, err := d.pictures.Present(ctx, pic)
			if err == nil {
				return slot, nil
			}
			d.pictures.Free(pic)
			if d.observe(err) || errors.Is(err, presentation.ErrPaused) || errors.Is(err, entity.ErrStaleGeneration) {
				continue
			}
			return -1, err
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return -1, ctx.Err()
		}
	}
}

// AcquireTexture binds the picture in slot for GPU reads.
func (d *Decoder) AcquireTexture(ctx context.Context, slot int) (entity.Texture, error) {
	if err := d.safePoint(ctx); err != nil {
		return entity.Texture{}, err
	}
	tex, err := d.pictures.AcquireTexture(slot)
	if d.observe(err) {
		if rerr := d.safePoint(ctx); rerr != nil {
			return entity.Texture{}, rerr
		}
		return d.pictures.AcquireTexture(slot)
	}
	return tex, err
}

// ReleaseTexture ends the GPU's use of slot and recycles its picture.
func (d *Decoder) ReleaseTexture(ctx context.Context, slot int) error {
	if err := d.safePoint(ctx); err != nil {
		return err
	}
	err := d.pictures.ReleaseTexture(slot)
	if d.observe(err) {
		return d.safePoint(ctx)
	}
	return err
}

// Drain delivers every queued frame; see mixer.Worker.Drain.
func (d *Decoder) Drain(ctx context.Context, soft bool) error {
	if err := d.safePoint(ctx); err != nil {
		return err
	}
	return d.worker.Drain(ctx, soft)
}

// Reset discards every queued and presented frame and returns all
// surfaces and pictures to free.
func (d *Decoder) Reset(ctx context.Context) error {
	if d.closed.Load() {
		return entity.ErrClosed
	}
	if err := d.worker.Flush(ctx); err != nil {
		return fmt.Errorf("flush mixer worker: %w", err)
	}
	d.pictures.Reset()
	d.pool.Reset()
	d.logger.Debug().Msg("pipeline reset")
	d.signal.Broadcast()
	return nil
}

// Check runs a pending recovery and reports the resulting health.
func (d *Decoder) Check(ctx context.Context) entity.Health {
	if err := d.safePoint(ctx); err != nil && !errors.Is(err, entity.ErrClosed) {
		d.logger.Debug().Err(err).Msg("check")
	}
	return d.recovery.Health()
}

// ForceRecover rebuilds every device resource even without a preemption.
func (d *Decoder) ForceRecover(ctx context.Context) error {
	if d.closed.Load() {
		return entity.ErrClosed
	}
	return d.recovery.CheckRecover(ctx, true)
}

// ApplyFeatureChange renegotiates features with a new request. The mixer
// worker picks the new set up before its next frame. Before Configure the
// request is only kept for it and ErrOutputUnavailable is returned.
func (d *Decoder) ApplyFeatureChange(ctx context.Context, req entity.FeatureRequest) (*entity.FeatureSet, error) {
	if err := d.safePoint(ctx); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opts.Features = req
	if !d.configured {
		return nil, fmt.Errorf("apply feature change: %w", entity.ErrOutputUnavailable)
	}
	set, err := d.neg.Negotiate(ctx, d.session.Device, req, d.stream)
	if err != nil {
		d.observe(err)
		return nil, err
	}
	return set, nil
}

// SetDropState makes the worker skip rendering while the window keeps
// moving. It has no effect while frame dropping is disallowed.
func (d *Decoder) SetDropState(drop bool) {
	d.worker.SetDropState(drop && d.allowDrop.Load())
}

// AllowFrameDropping enables or disables SetDropState.
func (d *Decoder) AllowFrameDropping(allow bool) {
	d.allowDrop.Store(allow)
	if !allow {
		d.worker.SetDropState(false)
	}
}

// FreeResources destroys the handles of every idle decode surface.
func (d *Decoder) FreeResources() int {
	n := d.pool.Trim()
	d.logger.Debug().Int("surfaces", n).Msg("idle surfaces released")
	return n
}

// SetOutputSize tells the pipeline the render target size, which decides
// whether HQ scaling applies.
func (d *Decoder) SetOutputSize(width, height int) *entity.FeatureSet {
	return d.neg.SetOutputSize(width, height)
}

// IsBufferValid reports whether slot still holds a picture of the live
// device generation.
func (d *Decoder) IsBufferValid(slot int) bool {
	return d.pictures.IsSlotValid(slot)
}

// DiscardPresentPicture drops the most recent picture if the consumer has
// not acquired it.
func (d *Decoder) DiscardPresentPicture() bool {
	return d.pictures.Discard()
}

// Supports reports whether the device implements a mixer feature.
func (d *Decoder) Supports(f entity.MixerFeature) bool { return d.neg.Supports(f) }

// SupportsInterlace reports whether a deinterlace method runs unchanged.
func (d *Decoder) SupportsInterlace(m entity.InterlaceMethod) bool {
	return d.neg.SupportsInterlace(m)
}

// Features returns the live feature set.
func (d *Decoder) Features() *entity.FeatureSet { return d.neg.Current() }

// Capabilities returns the device capability snapshot.
func (d *Decoder) Capabilities() *entity.Capabilities { return d.neg.Capabilities() }

// Method returns the selected output method.
func (d *Decoder) Method() entity.OutputMethod {
	return d.snapshot().method
}

// Stats returns a pipeline snapshot.
func (d *Decoder) Stats() Stats {
	return Stats{
		Health:     d.recovery.Health(),
		Method:     d.Method(),
		Generation: d.snapshot().generation,
		Features:   d.neg.Current(),
		Pool:       d.pool.Stats(),
		Pictures:   d.pictures.Stats(),
		Worker:     d.worker.Stats(),
		Recovery:   d.recovery.Stats(),
	}
}

// Close stops the worker and destroys every device resource.
func (d *Decoder) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	d.cancel()
	<-d.worker.Done()

	d.mu.Lock()
	defer d.mu.Unlock()
	// Never resumed: every later call fails on closed first.
	if err := d.pictures.Pause(context.Background()); err != nil {
		d.logger.Debug().Err(err).Msg("pause presentation on close")
	}
	d.teardownOutputLocked()
	d.pool.Close()
	var err error
	if d.session.Device != nil {
		err = d.session.Device.Close()
	}
	d.configured = false
	d.method = entity.OutputNone
	d.publishLocked()
	d.logger.Info().Msg("video pipeline closed")
	return err
}
