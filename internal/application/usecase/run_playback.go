// Package usecase holds the application operations the CLI runs.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/vidpipe/internal/application/port"
	"github.com/bnema/vidpipe/internal/domain/entity"
	"github.com/bnema/vidpipe/internal/logging"
)

const defaultIdleTimeout = 250 * time.Millisecond

// RunPlaybackUseCase plays a synthetic stream through a video pipeline:
// one goroutine decodes, one renders, and an optional one applies
// configuration changes while frames flow.
type RunPlaybackUseCase struct {
	pipeline port.VideoPipeline
	writer   port.FrameWriter
	faults   port.FaultInjector
}

// NewRunPlaybackUseCase creates a new RunPlaybackUseCase. faults may be nil
// when no preemption is injected.
func NewRunPlaybackUseCase(pipeline port.VideoPipeline, writer port.FrameWriter, faults port.FaultInjector) *RunPlaybackUseCase {
	return &RunPlaybackUseCase{
		pipeline: pipeline,
		writer:   writer,
		faults:   faults,
	}
}

// RunPlaybackInput contains input parameters for a playback run.
type RunPlaybackInput struct {
	Stream entity.StreamFormat
	Frames int

	// Lossless makes the producer wait for queue room instead of skipping
	// frames while the queue is full.
	Lossless bool
	// DropEvery marks every Nth frame as droppable. Zero disables it.
	DropEvery int
	// PreemptAfter lists frame sequences after which the device is lost.
	PreemptAfter []uint64
	// FrameInterval paces the producer. Zero decodes as fast as possible.
	FrameInterval time.Duration
	// IdleTimeout ends the render loop once decoding finished and no
	// picture arrived for this long.
	IdleTimeout time.Duration

	// Reloads carries feature requests from the config watcher.
	Reloads <-chan entity.FeatureRequest
	// OnPresent is called from the render goroutine for every picture.
	OnPresent func(entity.Texture)
}

// RunPlaybackOutput summarizes a playback run.
type RunPlaybackOutput struct {
	RunID string

	Decoded    int
	Skipped    int
	Presented  int
	OutOfOrder int
	Reloads    int

	Health   entity.Health
	Method   entity.OutputMethod
	Features *entity.FeatureSet
	Elapsed  time.Duration
}

type playbackCounters struct {
	decoded    atomic.Int64
	skipped    atomic.Int64
	presented  atomic.Int64
	outOfOrder atomic.Int64
	reloads    atomic.Int64
}

// Execute configures the pipeline and runs the stream to completion. The
// output is returned even when the run fails so callers can report how
// far it got.
func (uc *RunPlaybackUseCase) Execute(ctx context.Context, input RunPlaybackInput) (*RunPlaybackOutput, error) {
	if input.Frames <= 0 {
		return nil, fmt.Errorf("frames must be positive, got %d", input.Frames)
	}
	if input.IdleTimeout <= 0 {
		input.IdleTimeout = defaultIdleTimeout
	}

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	log := logging.FromContext(ctx)

	start := time.Now()
	if err := uc.pipeline.Configure(ctx, input.Stream); err != nil {
		return nil, fmt.Errorf("configure pipeline: %w", err)
	}
	log.Info().
		Str("codec", string(input.Stream.Codec)).
		Int("width", input.Stream.Width).
		Int("height", input.Stream.Height).
		Bool("interlaced", input.Stream.Interlaced).
		Int("frames", input.Frames).
		Str("method", string(uc.pipeline.Method())).
		Msg("playback started")

	var counters playbackCounters
	produced := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(produced)
		return uc.produce(gctx, input, &counters)
	})
	g.Go(func() error {
		return uc.render(gctx, input, produced, &counters)
	})
	if input.Reloads != nil {
		g.Go(func() error {
			return uc.applyReloads(gctx, input.Reloads, produced, &counters)
		})
	}
	err := g.Wait()

	out := &RunPlaybackOutput{
		RunID:      runID,
		Decoded:    int(counters.decoded.Load()),
		Skipped:    int(counters.skipped.Load()),
		Presented:  int(counters.presented.Load()),
		OutOfOrder: int(counters.outOfOrder.Load()),
		Reloads:    int(counters.reloads.Load()),
		Health:     uc.pipeline.Check(context.WithoutCancel(ctx)),
		Method:     uc.pipeline.Method(),
		Features:   uc.pipeline.Features(),
		Elapsed:    time.Since(start),
	}
	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Int("decoded", out.Decoded).
		Int("skipped", out.Skipped).
		Int("presented", out.Presented).
		Str("health", out.Health.String()).
		Dur("elapsed", out.Elapsed).
		Msg("playback finished")
	if err != nil {
		return out, fmt.Errorf("playback run %s: %w", runID, err)
	}
	return out, nil
}

func (uc *RunPlaybackUseCase) produce(ctx context.Context, input RunPlaybackInput, c *playbackCounters) error {
	log := logging.FromContext(ctx)
	preempt := make(map[uint64]bool, len(input.PreemptAfter))
	for _, seq := range input.PreemptAfter {
		preempt[seq] = true
	}

	var tick *time.Ticker
	if input.FrameInterval > 0 {
		tick = time.NewTicker(input.FrameInterval)
		defer tick.Stop()
	}

	for seq := uint64(0); seq < uint64(input.Frames); seq++ {
		if tick != nil {
			select {
			case <-tick.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if uc.pipeline.QueueIsFull(ctx, input.Lossless) {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.skipped.Add(1)
			log.Trace().Uint64("seq", seq).Msg("queue full, frame skipped")
			continue
		}

		err := uc.decodeOne(ctx, input, seq)
		switch {
		case err == nil:
			c.decoded.Add(1)
		case entity.IsFatal(err), errors.Is(err, entity.ErrClosed), ctx.Err() != nil:
			return err
		default:
			c.skipped.Add(1)
			log.Debug().Err(err).Uint64("seq", seq).Msg("frame not decoded")
		}

		if preempt[seq] && uc.faults != nil {
			log.Warn().Uint64("seq", seq).Msg("injecting device preemption")
			uc.faults.Preempt()
		}
	}
	return uc.pipeline.Drain(ctx, true)
}

func (uc *RunPlaybackUseCase) decodeOne(ctx context.Context, input RunPlaybackInput, seq uint64) error {
	s, err := uc.pipeline.SupplySurface(ctx, true)
	if err != nil {
		return err
	}
	defer uc.pipeline.ReclaimSurface(s)

	if err := uc.writer.WriteFrame(s, seq); err != nil {
		return err
	}
	return uc.pipeline.Decode(ctx, &entity.DecodeMessage{
		Picture: entity.PictureInfo{
			Sequence:      seq,
			PTS:           time.Duration(seq) * 40 * time.Millisecond,
			Interlaced:    input.Stream.Interlaced,
			TopFieldFirst: true,
			Drop:          input.DropEvery > 0 && seq%uint64(input.DropEvery) == uint64(input.DropEvery-1),
		},
		Surface: s,
		DstRect: entity.NewRect(input.Stream.Width, input.Stream.Height),
	})
}

func (uc *RunPlaybackUseCase) render(ctx context.Context, input RunPlaybackInput, produced <-chan struct{}, c *playbackCounters) error {
	log := logging.FromContext(ctx)
	var (
		last    uint64
		started bool
	)
	for {
		pctx, cancel := context.WithTimeout(ctx, input.IdleTimeout)
		slot, err := uc.pipeline.GetPicture(pctx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				select {
				case <-produced:
					return nil
				default:
					continue
				}
			}
			if ctx.Err() != nil {
				return nil
			}
			if entity.IsFatal(err) || errors.Is(err, entity.ErrClosed) {
				return fmt.Errorf("get picture: %w", err)
			}
			log.Debug().Err(err).Msg("no picture presented")
			select {
			case <-produced:
				return nil
			default:
				continue
			}
		}

		tex, err := uc.pipeline.AcquireTexture(ctx, slot)
		if err != nil {
			if entity.IsFatal(err) {
				return fmt.Errorf("acquire texture: %w", err)
			}
			log.Debug().Err(err).Int("slot", slot).Msg("texture unavailable")
			continue
		}

		seq := tex.Meta.Sequence
		if started && seq < last {
			c.outOfOrder.Add(1)
			log.Warn().Uint64("seq", seq).Uint64("previous", last).Msg("picture presented out of order")
		}
		last, started = seq, true
		c.presented.Add(1)
		if input.OnPresent != nil {
			input.OnPresent(tex)
		}

		if err := uc.pipeline.ReleaseTexture(ctx, slot); err != nil {
			if entity.IsFatal(err) {
				return fmt.Errorf("release texture: %w", err)
			}
			log.Debug().Err(err).Int("slot", slot).Msg("release texture")
		}
	}
}

func (uc *RunPlaybackUseCase) applyReloads(ctx context.Context, reloads <-chan entity.FeatureRequest, produced <-chan struct{}, c *playbackCounters) error {
	log := logging.FromContext(ctx)
	for {
		select {
		case req, ok := <-reloads:
			if !ok {
				return nil
			}
			fs, err := uc.pipeline.ApplyFeatureChange(ctx, req)
			if err != nil {
				if entity.IsFatal(err) {
					return fmt.Errorf("apply feature change: %w", err)
				}
				log.Warn().Err(err).Msg("feature change rejected")
				continue
			}
			c.reloads.Add(1)
			log.Info().Str("interlace", string(fs.Interlace)).Bool("temporal", fs.Temporal()).Msg("features renegotiated")
		case <-produced:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}
