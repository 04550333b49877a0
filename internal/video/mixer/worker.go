package mixer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/bnema/vidpipe/internal/application/port"
	"github.com/bnema/vidpipe/internal/domain/entity"
	"github.com/bnema/vidpipe/internal/video/notify"
)

// SurfaceWindow is the part of the surface pool the worker drives.
type SurfaceWindow interface {
	ShiftReferences(s *entity.VideoSurface, lookahead int) entity.ReferenceSet
	Evict(s *entity.VideoSurface)
	ClearWindow()
	Dequeue(s *entity.VideoSurface)
	Attach(s *entity.VideoSurface) error
}

// PictureSource hands out and takes back output pictures.
type PictureSource interface {
	TryClaim() (*entity.OutputPicture, bool)
	Free(pic *entity.OutputPicture)
}

// FeatureSource returns the live feature set.
type FeatureSource interface {
	Current() *entity.FeatureSet
}

// FaultObserver is told about hardware errors and asked whether a
// recovery is pending.
type FaultObserver interface {
	Observe(err error) bool
	Pending() bool
}

// Target is what the worker renders with. It changes on configure and
// after every recovery.
type Target struct {
	Mixer      port.Mixer
	Device     port.Device
	Generation entity.Generation
	Method     entity.OutputMethod
}

// Config tunes the worker.
type Config struct {
	// QueueLength bounds both the input and output channels.
	QueueLength int
	// ClaimSlice is how long a claim waits before re-checking commands
	// and recovery.
	ClaimSlice time.Duration
}

// Stats is a counter snapshot.
type Stats struct {
	Queued    int
	Pending   int
	Rendered  uint64
	Dropped   uint64
	Discarded uint64
}

type commandKind int

const (
	cmdFlush commandKind = iota
	cmdDrainSoft
	cmdDrainHard
	cmdPause
	cmdResume
)

func (k commandKind) String() string {
	switch k {
	case cmdFlush:
		return "flush"
	case cmdDrainSoft:
		return "drain_soft"
	case cmdDrainHard:
		return "drain_hard"
	case cmdPause:
		return "pause"
	case cmdResume:
		return "resume"
	default:
		return "unknown"
	}
}

type command struct {
	kind commandKind
	done chan struct{}
}

type queued struct {
	msg *entity.DecodeMessage
	// remaining is the number of pictures still promised to this message.
	remaining int
}

// Worker owns the render goroutine. The input channel carries decode
// messages; rendered pictures come out of Output in submission order.
type Worker struct {
	logger   *zerolog.Logger
	cfg      Config
	surfaces SurfaceWindow
	pictures PictureSource
	features FeatureSource
	faults   FaultObserver
	signal   *notify.Broadcaster

	in   chan *queued
	out  chan *entity.OutputPicture
	cmds chan command
	done chan struct{}

	started   atomic.Bool
	pending   atomic.Int64
	rendered  atomic.Uint64
	drops     atomic.Uint64
	discarded atomic.Uint64
	dropState atomic.Bool
	reapply   atomic.Bool

	targetMu sync.Mutex
	target   Target

	// Loop-owned state.
	fifo      []*queued
	lookahead int
	applied   uint64
	paused    bool
	hard      bool
	abort     bool
	deferred  []command
}

// New creates a stopped worker. signal is broadcast whenever the pending
// count drops.
func New(
	logger *zerolog.Logger,
	cfg Config,
	surfaces SurfaceWindow,
	pictures PictureSource,
	features FeatureSource,
	faults FaultObserver,
	signal *notify.Broadcaster,
) *Worker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.QueueLength <= 0 {
		cfg.QueueLength = 20
	}
	if cfg.ClaimSlice <= 0 {
		cfg.ClaimSlice = 50 * time.Millisecond
	}
	if signal == nil {
		signal = notify.New()
	}
	return &Worker{
		logger:   logger,
		cfg:      cfg,
		surfaces: surfaces,
		pictures: pictures,
		features: features,
		faults:   faults,
		signal:   signal,
		in:       make(chan *queued, cfg.QueueLength),
		out:      make(chan *entity.OutputPicture, cfg.QueueLength),
		cmds:     make(chan command),
		done:     make(chan struct{}),
	}
}

// SetTarget swaps the mixer and device the worker renders with.
func (w *Worker) SetTarget(t Target) {
	w.targetMu.Lock()
	w.target = t
	w.targetMu.Unlock()
	w.reapply.Store(true)
}

func (w *Worker) currentTarget() Target {
	w.targetMu.Lock()
	defer w.targetMu.Unlock()
	return w.target
}

// Output delivers rendered pictures to the presentation side.
func (w *Worker) Output() <-chan *entity.OutputPicture { return w.out }

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Pending returns the pictures promised to accepted messages.
func (w *Worker) Pending() int { return int(w.pending.Load()) }

// Queued returns the messages waiting in the input channel.
func (w *Worker) Queued() int { return len(w.in) }

// SetDropState makes the worker advance the window without rendering.
func (w *Worker) SetDropState(drop bool) { w.dropState.Store(drop) }

// Stats returns the worker counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Queued:    len(w.in),
		Pending:   w.Pending(),
		Rendered:  w.rendered.Load(),
		Dropped:   w.drops.Load(),
		Discarded: w.discarded.Load(),
	}
}

// Submit queues msg promising cost pictures. It never blocks; a full
// channel returns ErrQueueFull with nothing recorded.
func (w *Worker) Submit(msg *entity.DecodeMessage, cost int) error {
	if cost < 1 {
		cost = 1
	}
	w.pending.Add(int64(cost))
	select {
	case w.in <- &queued{msg: msg, remaining: cost}:
		return nil
	default:
		w.pending.Add(-int64(cost))
		return entity.ErrQueueFull
	}
}

// Flush discards every queued message, the lookahead and the reference
// window. Nothing is presented.
func (w *Worker) Flush(ctx context.Context) error { return w.send(ctx, cmdFlush) }

// Drain delivers every queued message. A soft drain then pushes the
// lookahead out; a hard one runs with post-processing off and drops
// frames instead of waiting for pictures.
func (w *Worker) Drain(ctx context.Context, soft bool) error {
	if soft {
		return w.send(ctx, cmdDrainSoft)
	}
	return w.send(ctx, cmdDrainHard)
}

// Pause stops rendering once the in-flight call returns. Lookahead
// frames and undelivered pictures are discarded.
func (w *Worker) Pause(ctx context.Context) error { return w.send(ctx, cmdPause) }

// Resume restarts rendering after Pause.
func (w *Worker) Resume() {
	if err := w.send(context.Background(), cmdResume); err != nil && !errors.Is(err, entity.ErrClosed) {
		w.logger.Warn().Err(err).Msg("resume mixer worker failed")
	}
}

func (w *Worker) send(ctx context.Context, kind commandKind) error {
	if !w.started.Load() {
		return nil
	}
	c := command{kind: kind, done: make(chan struct{})}
	select {
	case w.cmds <- c:
	case <-w.done:
		return entity.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-c.done:
		return nil
	case <-w.done:
		return entity.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the render loop. It returns when ctx is done, after discarding
// whatever is still queued.
func (w *Worker) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("mixer worker already running")
	}
	defer close(w.done)
	defer w.flush()

	w.logger.Debug().Int("queue_length", w.cfg.QueueLength).Msg("mixer worker started")
	for {
		if len(w.deferred) > 0 {
			c := w.deferred[0]
			w.deferred = w.deferred[1:]
			w.abort = false
			w.handle(ctx, c)
			continue
		}
		if w.paused {
			select {
			case c := <-w.cmds:
				w.handle(ctx, c)
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		select {
		case c := <-w.cmds:
			w.handle(ctx, c)
			continue
		default:
		}

		select {
		case c := <-w.cmds:
			w.handle(ctx, c)
		case q := <-w.in:
			w.process(ctx, q)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Worker) handle(ctx context.Context, c command) {
	defer close(c.done)
	w.logger.Debug().Stringer("command", c.kind).Msg("mixer command")
	switch c.kind {
	case cmdFlush:
		w.flush()
	case cmdDrainSoft:
		w.drain(ctx, false)
	case cmdDrainHard:
		w.hard = true
		w.drain(ctx, true)
		w.hard = false
		w.reapply.Store(true)
	case cmdPause:
		w.paused = true
		w.dropLookahead()
		w.freeOutput()
	case cmdResume:
		w.paused = false
		w.reapply.Store(true)
	}
}

// interrupt queues a command that arrives while a message is being
// rendered. It reports whether the current message must be abandoned;
// the command itself runs once the message is released.
func (w *Worker) interrupt(c command) bool {
	w.deferred = append(w.deferred, c)
	switch c.kind {
	case cmdFlush, cmdPause:
		w.abort = true
	case cmdDrainHard:
		w.hard = true
	}
	return w.abort
}

func (w *Worker) drain(ctx context.Context, hard bool) {
	if hard {
		w.postProcOff()
	}
	for {
		select {
		case q := <-w.in:
			w.process(ctx, q)
			if w.abort {
				return
			}
			continue
		default:
		}
		break
	}
	for i := 0; i < w.lookahead && !w.abort; i++ {
		refs := w.surfaces.ShiftReferences(nil, w.lookahead)
		if len(w.fifo) == 0 {
			continue
		}
		q := w.fifo[0]
		w.fifo = w.fifo[1:]
		w.render(ctx, q, refs)
	}
	if !w.abort {
		w.dropLookahead()
	}
}

func (w *Worker) postProcOff() {
	t := w.currentTarget()
	fs := w.features.Current()
	if t.Mixer == nil || fs == nil {
		return
	}
	off := *fs
	off.PostProcessing = false
	if err := t.Mixer.SetFeatureEnables(off.Enables()); err != nil {
		w.observe(err)
		w.logger.Warn().Err(err).Msg("disable post-processing for drain failed")
	}
	w.applied = 0
}

// release gives back the pictures a message will not produce.
func (w *Worker) release(q *queued) {
	if q.remaining > 0 {
		w.pending.Add(-int64(q.remaining))
		q.remaining = 0
		w.signal.Broadcast()
	}
}

func (w *Worker) discard(q *queued) {
	w.surfaces.Dequeue(q.msg.Surface)
	w.release(q)
	w.discarded.Add(1)
}

func (w *Worker) flush() {
	for {
		select {
		case q := <-w.in:
			w.discard(q)
			continue
		default:
		}
		break
	}
	w.dropLookahead()
	w.freeOutput()
}

func (w *Worker) dropLookahead() {
	for _, q := range w.fifo {
		w.release(q)
		w.discarded.Add(1)
	}
	w.fifo = w.fifo[:0]
	w.surfaces.ClearWindow()
}

func (w *Worker) freeOutput() {
	for {
		select {
		case pic := <-w.out:
			w.pictures.Free(pic)
			continue
		default:
		}
		return
	}
}

func (w *Worker) observe(err error) {
	if w.faults != nil {
		w.faults.Observe(err)
	}
}

func (w *Worker) recoveryPending() bool {
	return w.faults != nil && w.faults.Pending()
}

// applyFeatures pushes a new feature set to the mixer and adjusts the
// lookahead. A lookahead change restarts the window.
func (w *Worker) applyFeatures(t Target) *entity.FeatureSet {
	fs := w.features.Current()
	if fs == nil {
		fs = &entity.FeatureSet{}
	}

	lookahead := 0
	if t.Method.UsesMixer() {
		lookahead = fs.Lookahead()
	}
	if lookahead != w.lookahead {
		w.logger.Debug().Int("from", w.lookahead).Int("to", lookahead).Msg("lookahead changed, window restarted")
		w.dropLookahead()
		w.lookahead = lookahead
	}

	if t.Mixer == nil || w.hard {
		return fs
	}
	if fs.Version == w.applied && !w.reapply.Load() {
		return fs
	}
	w.reapply.Store(false)
	if err := t.Mixer.SetFeatureEnables(fs.Enables()); err != nil {
		w.observe(err)
		w.logger.Warn().Err(err).Msg("set mixer features failed")
		return fs
	}
	if err := t.Mixer.SetAttributes(fs.Attributes()); err != nil {
		w.observe(err)
		w.logger.Warn().Err(err).Msg("set mixer attributes failed")
		return fs
	}
	w.applied = fs.Version
	w.logger.Debug().
		Uint64("version", fs.Version).
		Str("interlace", string(fs.Interlace)).
		Int("scaling", fs.ScalingLevel).
		Msg("mixer features applied")
	return fs
}

func (w *Worker) process(ctx context.Context, q *queued) {
	t := w.currentTarget()
	if w.recoveryPending() || q.msg.Generation != t.Generation {
		w.logger.Trace().
			Uint64("seq", q.msg.Picture.Sequence).
			Uint64("generation", uint64(q.msg.Generation)).
			Msg("stale decode message discarded")
		w.discard(q)
		return
	}

	w.applyFeatures(t)
	refs := w.surfaces.ShiftReferences(q.msg.Surface, w.lookahead)
	w.fifo = append(w.fifo, q)
	if len(w.fifo) <= w.lookahead {
		return
	}
	cur := w.fifo[0]
	w.fifo = w.fifo[1:]
	w.render(ctx, cur, refs)
}

func handleOf(s *entity.VideoSurface) entity.VideoSurfaceHandle {
	if s == nil {
		return 0
	}
	return s.Handle
}

func (w *Worker) render(ctx context.Context, q *queued, refs entity.ReferenceSet) {
	defer w.release(q)

	t := w.currentTarget()
	fs := w.features.Current()
	if fs == nil {
		fs = &entity.FeatureSet{}
	}
	cur := q.msg.Surface
	if cur == nil || refs.Current != cur {
		// The pool refused the surface into the window.
		w.discarded.Add(1)
		return
	}

	if w.dropState.Load() || q.msg.Picture.Drop {
		if !fs.Temporal() {
			w.surfaces.Evict(cur)
		}
		w.release(q)
		w.drops.Add(1)
		return
	}

	fields := []entity.Field{entity.FieldFrame}
	if t.Method.UsesMixer() {
		fields = q.msg.Picture.Fields(fs.FieldRate() && !w.hard)
	}

	for _, field := range fields {
		pic, ok := w.claim(ctx)
		if !ok {
			if w.hard {
				w.drops.Add(1)
				w.logger.Trace().Uint64("seq", q.msg.Picture.Sequence).Msg("no free picture during hard drain, frame dropped")
			}
			return
		}
		if q.remaining > 0 {
			q.remaining--
			w.pending.Add(-1)
		}
		w.signal.Broadcast()

		pic.Field = field
		pic.Meta = q.msg.Picture

		var err error
		if t.Method.UsesMixer() {
			err = w.mix(ctx, t, pic, refs, cur, q.msg.DstRect)
		} else {
			err = w.surfaces.Attach(cur)
			if err == nil {
				pic.VideoSurface = cur
			}
		}
		if err != nil {
			w.pictures.Free(pic)
			w.logger.Warn().Err(err).Uint64("seq", q.msg.Picture.Sequence).Msg("render failed, frame skipped")
			return
		}

		select {
		case c := <-w.cmds:
			if w.interrupt(c) {
				w.pictures.Free(pic)
				return
			}
		default:
		}
		if w.recoveryPending() {
			w.pictures.Free(pic)
			return
		}

		select {
		case w.out <- pic:
			w.rendered.Add(1)
		case <-ctx.Done():
			w.pictures.Free(pic)
			return
		}
	}
}

func (w *Worker) mix(
	ctx context.Context,
	t Target,
	pic *entity.OutputPicture,
	refs entity.ReferenceSet,
	cur *entity.VideoSurface,
	dst entity.Rect,
) error {
	req := port.RenderRequest{
		Field:   pic.Field,
		Past:    [2]entity.VideoSurfaceHandle{handleOf(refs.Past[0]), handleOf(refs.Past[1])},
		Current: cur.Handle,
		Future:  [2]entity.VideoSurfaceHandle{handleOf(refs.Future[0]), handleOf(refs.Future[1])},
		SrcRect: entity.NewRect(cur.Width, cur.Height),
		DstRect: dst,
		Target:  pic.OutputSurface,
	}
	if !w.temporalRefs() {
		req.Past = [2]entity.VideoSurfaceHandle{}
		req.Future = [2]entity.VideoSurfaceHandle{}
	}
	err := t.Mixer.Render(ctx, req)
	if err == nil {
		err = t.Device.Status()
	}
	if err != nil {
		w.observe(err)
		return err
	}
	return nil
}

func (w *Worker) temporalRefs() bool {
	return w.lookahead > 0 && !w.hard
}

// claim waits for a free picture in ClaimSlice steps, re-checking
// commands, cancellation and recovery between steps. During a hard drain
// it never waits.
func (w *Worker) claim(ctx context.Context) (*entity.OutputPicture, bool) {
	timer := time.NewTimer(w.cfg.ClaimSlice)
	defer timer.Stop()
	for {
		ch := w.signal.Wait()
		if pic, ok := w.pictures.TryClaim(); ok {
			return pic, true
		}
		if w.hard {
			return nil, false
		}
		if w.recoveryPending() {
			return nil, false
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.cfg.ClaimSlice)
		select {
		case <-ch:
		case <-timer.C:
		case c := <-w.cmds:
			if w.interrupt(c) {
				return nil, false
			}
		case <-ctx.Done():
			return nil, false
		}
	}
}
