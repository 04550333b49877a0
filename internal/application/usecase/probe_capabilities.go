package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/bnema/vidpipe/internal/application/port"
	"github.com/bnema/vidpipe/internal/domain/entity"
	"github.com/bnema/vidpipe/internal/logging"
)

// outputPreference is the order methods are listed in, best first.
var outputPreference = []entity.OutputMethod{
	entity.OutputGLInteropRGB,
	entity.OutputGLInteropYUV,
	entity.OutputPixmap,
}

// ProbeCapabilitiesUseCase reports what the hardware and the renderer can
// do, optionally for a specific stream.
type ProbeCapabilitiesUseCase struct {
	pipeline port.VideoPipeline
	renderer port.RendererCaps
}

// NewProbeCapabilitiesUseCase creates a new ProbeCapabilitiesUseCase.
func NewProbeCapabilitiesUseCase(pipeline port.VideoPipeline, renderer port.RendererCaps) *ProbeCapabilitiesUseCase {
	return &ProbeCapabilitiesUseCase{
		pipeline: pipeline,
		renderer: renderer,
	}
}

// ProbeCapabilitiesInput contains input parameters for a probe.
type ProbeCapabilitiesInput struct {
	// Stream, when set, is configured so the negotiated feature set and
	// output method reflect it.
	Stream *entity.StreamFormat
}

// ProbeCapabilitiesOutput contains the probe results.
type ProbeCapabilitiesOutput struct {
	Capabilities *entity.Capabilities
	Features     *entity.FeatureSet
	Method       entity.OutputMethod
	Methods      []entity.OutputMethod
	Supported    []entity.MixerFeature
	Missing      []entity.MixerFeature
	Profiles     []entity.DecoderProfile
	Health       entity.Health
}

// Execute probes the pipeline.
func (uc *ProbeCapabilitiesUseCase) Execute(ctx context.Context, input ProbeCapabilitiesInput) (*ProbeCapabilitiesOutput, error) {
	log := logging.FromContext(ctx)

	if input.Stream != nil {
		if err := uc.pipeline.Configure(ctx, *input.Stream); err != nil {
			return nil, fmt.Errorf("configure %s stream: %w", input.Stream.Codec, err)
		}
	}

	caps := uc.pipeline.Capabilities()
	out := &ProbeCapabilitiesOutput{
		Capabilities: caps,
		Features:     uc.pipeline.Features(),
		Method:       uc.pipeline.Method(),
		Health:       uc.pipeline.Check(ctx),
	}
	for _, m := range outputPreference {
		if uc.renderer.SupportsOutputMethod(m) {
			out.Methods = append(out.Methods, m)
		}
	}
	for _, f := range entity.AllMixerFeatures() {
		if caps.Has(f) {
			out.Supported = append(out.Supported, f)
		} else {
			out.Missing = append(out.Missing, f)
		}
	}
	if caps != nil {
		for p, dc := range caps.Decoders {
			if dc.Supported {
				out.Profiles = append(out.Profiles, p)
			}
		}
		sort.Slice(out.Profiles, func(i, j int) bool { return out.Profiles[i] < out.Profiles[j] })
	}

	log.Debug().
		Int("supported", len(out.Supported)).
		Int("missing", len(out.Missing)).
		Int("profiles", len(out.Profiles)).
		Msg("capabilities probed")
	return out, nil
}
