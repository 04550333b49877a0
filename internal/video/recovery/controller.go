// Package recovery supervises device loss: it latches the preemption
// signal, quiesces the pipeline and rebuilds every device resource under
// a new generation.
package recovery

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/bnema/vidpipe/internal/domain/entity"
)

// Quiescer is a pipeline stage that can be stopped around a rebuild.
type Quiescer interface {
	Pause(ctx context.Context) error
	Resume()
}

// Rebuilder recreates the device and everything built on it. gen is the
// generation the new resources must carry.
type Rebuilder interface {
	Rebuild(ctx context.Context, gen entity.Generation) error
}

// RebuildFunc adapts a function to Rebuilder.
type RebuildFunc func(ctx context.Context, gen entity.Generation) error

func (f RebuildFunc) Rebuild(ctx context.Context, gen entity.Generation) error { return f(ctx, gen) }

// Config tunes recovery.
type Config struct {
	MaxAttempts int
	Backoff     time.Duration
	// Observer is called on every state change.
	Observer func(entity.RecoveryState)
}

// Controller runs the Healthy → PreemptionDetected → Recovering →
// Healthy|Failed state machine.
type Controller struct {
	logger    *zerolog.Logger
	cfg       Config
	rebuilder Rebuilder

	preempted atomic.Bool
	state     atomic.Int32
	gen       atomic.Uint64

	mu        sync.Mutex
	quiescers []Quiescer
	attempts  uint64
	recovered uint64
}

// New creates a healthy controller at generation initial.
func New(logger *zerolog.Logger, cfg Config, rebuilder Rebuilder, initial entity.Generation) *Controller {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	c := &Controller{logger: logger, cfg: cfg, rebuilder: rebuilder}
	c.gen.Store(uint64(initial))
	return c
}

// Register adds stages to pause, in order, before a rebuild. They resume
// in reverse order.
func (c *Controller) Register(q ...Quiescer) {
	c.mu.Lock()
	c.quiescers = append(c.quiescers, q...)
	c.mu.Unlock()
}

// OnPreempted is the driver callback. It only stores flags.
func (c *Controller) OnPreempted() {
	c.preempted.Store(true)
	c.state.CompareAndSwap(int32(entity.StateHealthy), int32(entity.StatePreemptionDetected))
}

// Observe latches a preemption seen as a call error. It reports whether
// err was one.
func (c *Controller) Observe(err error) bool {
	if !entity.IsPreempted(err) {
		return false
	}
	if !c.preempted.Load() {
		c.logger.Warn().Err(err).Msg("device preemption detected from call error")
	}
	c.OnPreempted()
	return true
}

// Pending reports whether a recovery is waiting for a safe point.
func (c *Controller) Pending() bool { return c.preempted.Load() }

// State returns the current recovery state.
func (c *Controller) State() entity.RecoveryState {
	return entity.RecoveryState(c.state.Load())
}

// Health collapses State for the decode library.
func (c *Controller) Health() entity.Health { return entity.HealthOf(c.State()) }

// Generation returns the live device generation.
func (c *Controller) Generation() entity.Generation { return entity.Generation(c.gen.Load()) }

// Stats is a recovery counter snapshot.
type Stats struct {
	State      entity.RecoveryState
	Generation entity.Generation
	Attempts   uint64
	Recoveries uint64
}

// Stats returns the counters. It waits for a running recovery.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		State:      c.State(),
		Generation: c.Generation(),
		Attempts:   c.attempts,
		Recoveries: c.recovered,
	}
}

func (c *Controller) setState(s entity.RecoveryState) {
	if entity.RecoveryState(c.state.Swap(int32(s))) == s {
		return
	}
	c.logger.Info().Stringer("state", s).Uint64("generation", c.gen.Load()).Msg("recovery state changed")
	if c.cfg.Observer != nil {
		c.cfg.Observer(s)
	}
}

// CheckRecover runs a pending recovery, or a forced one. Callers are
// serialized; a caller arriving after a recovery finished returns without
// rebuilding. Once Failed, every call returns ErrRecoveryFailed.
func (c *Controller) CheckRecover(ctx context.Context, force bool) error {
	if !force && !c.preempted.Load() {
		if c.State() == entity.StateFailed {
			return entity.ErrRecoveryFailed
		}
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == entity.StateFailed {
		return entity.ErrRecoveryFailed
	}
	if !force && !c.preempted.Load() {
		return nil
	}

	c.setState(entity.StateRecovering)
	log := c.logger.With().Uint64("generation", c.gen.Load()).Logger()
	log.Warn().Bool("forced", force).Msg("recovering device")

	paused := make([]Quiescer, 0, len(c.quiescers))
	for _, q := range c.quiescers {
		if err := q.Pause(ctx); err != nil {
			log.Error().Err(err).Msg("pause pipeline stage failed")
			c.resume(paused)
			c.setState(entity.StatePreemptionDetected)
			return fmt.Errorf("pause for recovery: %w", err)
		}
		paused = append(paused, q)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		// A preemption during the rebuild lands on the new device and
		// triggers the next attempt.
		c.preempted.Store(false)
		next := entity.Generation(c.gen.Load() + 1)
		c.attempts++

		err := c.rebuilder.Rebuild(ctx, next)
		// The generation advances on every attempt so nothing built by a
		// failed one is accepted later.
		c.gen.Store(uint64(next))
		if err == nil && !c.preempted.Load() {
			c.recovered++
			c.setState(entity.StateHealthy)
			c.resume(paused)
			log.Info().Uint64("new_generation", uint64(next)).Int("attempt", attempt).Msg("device recovered")
			return nil
		}
		if err == nil {
			err = entity.ErrDevicePreempted
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("device rebuild failed")

		if ctx.Err() != nil {
			break
		}
		if c.cfg.Backoff > 0 && attempt < c.cfg.MaxAttempts {
			t := time.NewTimer(c.cfg.Backoff)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
			}
		}
	}

	c.setState(entity.StateFailed)
	c.resume(paused)
	log.Error().Err(lastErr).Int("attempts", c.cfg.MaxAttempts).Msg("device recovery failed")
	return fmt.Errorf("%w: %w", entity.ErrRecoveryFailed, lastErr)
}

func (c *Controller) resume(paused []Quiescer) {
	for i := len(paused) - 1; i >= 0; i-- {
		paused[i].Resume()
	}
}
