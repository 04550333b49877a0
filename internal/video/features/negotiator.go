// Package features turns hardware capability bits and user settings into
// the mixer feature set.
package features

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/bnema/vidpipe/internal/application/port"
	"github.com/bnema/vidpipe/internal/domain/entity"
)

// Config configures a Negotiator.
type Config struct {
	// FullHDWidth is the stream width from which auto deinterlacing stops
	// short of the temporal-spatial method.
	FullHDWidth int
}

// Negotiator owns the capability snapshot and the active FeatureSet. Reads
// are lock-free; negotiations are serialized.
type Negotiator struct {
	logger      *zerolog.Logger
	fullHDWidth int

	caps    atomic.Pointer[entity.Capabilities]
	current atomic.Pointer[entity.FeatureSet]
	version atomic.Uint64

	mu          sync.Mutex
	request     entity.FeatureRequest
	stream      entity.StreamFormat
	outputWidth int
	hqDisabled  bool
	postProcOff bool
}

// New creates a negotiator with an empty capability snapshot.
func New(logger *zerolog.Logger, cfg Config) *Negotiator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.FullHDWidth <= 0 {
		cfg.FullHDWidth = 1920
	}
	n := &Negotiator{
		logger:      logger,
		fullHDWidth: cfg.FullHDWidth,
		request:     entity.DefaultFeatureRequest(),
	}
	n.caps.Store(&entity.Capabilities{})
	return n
}

// Probe queries the device for mixer features and decoder profiles and
// stores the result as the capability snapshot.
func (n *Negotiator) Probe(_ context.Context, dev port.Device) (*entity.Capabilities, error) {
	all := entity.AllMixerFeatures()
	supported, err := dev.QueryFeatures(all)
	if err != nil {
		return nil, fmt.Errorf("query mixer features: %w", err)
	}

	caps := &entity.Capabilities{
		Features: make(map[entity.MixerFeature]bool, len(all)),
		Decoders: make(map[entity.DecoderProfile]entity.DecoderCaps),
	}
	for _, f := range all {
		caps.Features[f] = supported[f]
	}
	for l := entity.MaxScalingLevel; l >= 1; l-- {
		if caps.Features[entity.ScalingFeature(l)] {
			caps.MaxScalingLevel = l
			break
		}
	}
	for _, codec := range []entity.Codec{entity.CodecMPEG2, entity.CodecH264, entity.CodecVC1, entity.CodecWMV3, entity.CodecHEVC} {
		profile, _, _ := entity.ReadFormatOf(codec)
		dc, err := dev.QueryDecoder(profile)
		if err != nil {
			return nil, fmt.Errorf("query decoder %s: %w", profile, err)
		}
		caps.Decoders[profile] = dc
	}

	n.caps.Store(caps)
	n.spew(dev, caps)
	return caps, nil
}

// spew logs the decoder profile table at debug level.
func (n *Negotiator) spew(dev port.Device, caps *entity.Capabilities) {
	if n.logger.GetLevel() > zerolog.DebugLevel {
		return
	}
	profiles := make([]string, 0, len(caps.Decoders))
	for p := range caps.Decoders {
		profiles = append(profiles, string(p))
	}
	sort.Strings(profiles)
	for _, p := range profiles {
		dc := caps.Decoders[entity.DecoderProfile(p)]
		n.logger.Debug().
			Str("device", dev.Name()).
			Str("profile", p).
			Bool("supported", dc.Supported).
			Int("max_level", dc.MaxLevel).
			Int("max_macroblocks", dc.MaxMacroblk).
			Int("max_width", dc.MaxWidth).
			Int("max_height", dc.MaxHeight).
			Msg("decoder capability")
	}
	n.logger.Debug().Int("max_scaling_level", caps.MaxScalingLevel).Msg("mixer capability")
}

// CheckDecoder verifies the hardware can decode the stream.
func (n *Negotiator) CheckDecoder(stream entity.StreamFormat) error {
	profile, _, ok := entity.ReadFormatOf(stream.Codec)
	if !ok {
		return fmt.Errorf("codec %q has no decoder profile: %w", stream.Codec, entity.ErrDeviceCreationFailed)
	}
	dc := n.caps.Load().Decoders[profile]
	if !dc.Fits(stream.Width, stream.Height) {
		return fmt.Errorf("decoder %s cannot handle %dx%d: %w", profile, stream.Width, stream.Height, entity.ErrDeviceCreationFailed)
	}
	return nil
}

// Negotiate refreshes the capability snapshot from dev and swaps in a new
// FeatureSet built from req. When the query fails the previous snapshot is
// used; unsupported requests degrade rather than fail.
func (n *Negotiator) Negotiate(ctx context.Context, dev port.Device, req entity.FeatureRequest, stream entity.StreamFormat) (*entity.FeatureSet, error) {
	if dev != nil {
		if _, err := n.Probe(ctx, dev); err != nil {
			if entity.IsPreempted(err) {
				return nil, err
			}
			n.logger.Warn().Err(err).Msg("capability query failed, using previous snapshot")
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.request = req
	n.stream = stream
	return n.rebuildLocked(), nil
}

// Current returns the active feature set, or nil before negotiation.
func (n *Negotiator) Current() *entity.FeatureSet {
	return n.current.Load()
}

// Capabilities returns the last capability snapshot.
func (n *Negotiator) Capabilities() *entity.Capabilities {
	return n.caps.Load()
}

// Supports reports whether the hardware implements f. It never touches
// the device.
func (n *Negotiator) Supports(f entity.MixerFeature) bool {
	return n.caps.Load().Has(f)
}

// SupportsInterlace reports whether a deinterlace method can run as is.
func (n *Negotiator) SupportsInterlace(m entity.InterlaceMethod) bool {
	f, ok := m.RequiredFeature()
	if !ok {
		return true
	}
	return n.Supports(f)
}

// SetOutputSize records the render target size; HQ scaling applies only
// when the video is narrower than the target.
func (n *Negotiator) SetOutputSize(width, height int) *entity.FeatureSet {
	n.mu.Lock()
	defer n.mu.Unlock()
	if width == n.outputWidth {
		return n.current.Load()
	}
	n.outputWidth = width
	n.logger.Debug().Int("width", width).Int("height", height).Msg("output size changed")
	return n.rebuildLocked()
}

// DisableHQScaling turns HQ scaling off until the next SetPostProc(true).
func (n *Negotiator) DisableHQScaling() *entity.FeatureSet {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hqDisabled = true
	return n.rebuildLocked()
}

// PostProcOff disables every post-processing stage, used by hard drain.
func (n *Negotiator) PostProcOff() *entity.FeatureSet {
	return n.SetPostProc(false)
}

// SetPostProc toggles post-processing without changing the request.
func (n *Negotiator) SetPostProc(on bool) *entity.FeatureSet {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.postProcOff = !on
	if on {
		n.hqDisabled = false
	}
	return n.rebuildLocked()
}

func (n *Negotiator) rebuildLocked() *entity.FeatureSet {
	set := Resolve(n.logger, n.caps.Load(), n.request, Environment{
		Stream:         n.stream,
		OutputWidth:    n.outputWidth,
		FullHDWidth:    n.fullHDWidth,
		DisableScaling: n.hqDisabled,
		PostProcOff:    n.postProcOff,
	})
	set.Version = n.version.Add(1)
	n.current.Store(set)

	n.logger.Debug().
		Uint64("version", set.Version).
		Str("interlace", string(set.Interlace)).
		Float64("noise_reduction", set.NoiseReduction).
		Float64("sharpness", set.Sharpness).
		Int("scaling_level", set.ScalingLevel).
		Bool("post_processing", set.PostProcessing).
		Msg("feature set negotiated")
	return set
}
