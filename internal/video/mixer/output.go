// Package mixer runs the render stage: it moves decoded surfaces through
// the reference window and the hardware mixer into output pictures.
package mixer

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/bnema/vidpipe/internal/application/port"
	"github.com/bnema/vidpipe/internal/domain/entity"
)

// methodOrder is the fallback order after the preferred method.
var methodOrder = []entity.OutputMethod{
	entity.OutputGLInteropRGB,
	entity.OutputGLInteropYUV,
	entity.OutputPixmap,
}

// ConfigureOutput walks the output method state machine out of None. The
// preferred method is tried first, then the rest in methodOrder, skipping
// what the renderer cannot register. try binds one method; its failure
// moves on to the next. Preemption stops the walk. A preference that is
// not a real method ("" or none) is ignored.
func ConfigureOutput(
	ctx context.Context,
	logger *zerolog.Logger,
	preferred entity.OutputMethod,
	renderer port.RendererCaps,
	try func(ctx context.Context, method entity.OutputMethod) error,
) (entity.OutputMethod, error) {
	candidates := make([]entity.OutputMethod, 0, len(methodOrder)+1)
	if slices.Contains(methodOrder, preferred) {
		candidates = append(candidates, preferred)
	}
	for _, m := range methodOrder {
		if m != preferred {
			candidates = append(candidates, m)
		}
	}

	var lastErr error
	for _, method := range candidates {
		if err := ctx.Err(); err != nil {
			return entity.OutputNone, err
		}
		if !renderer.SupportsOutputMethod(method) {
			logger.Debug().Str("method", string(method)).Msg("renderer cannot register output method")
			continue
		}
		err := try(ctx, method)
		if err == nil {
			logger.Info().Str("method", string(method)).Msg("output method selected")
			return method, nil
		}
		if entity.IsPreempted(err) {
			return entity.OutputNone, err
		}
		lastErr = fmt.Errorf("%s: %w: %w", method, entity.ErrOutputBindingFailed, err)
		logger.Warn().Err(err).Str("method", string(method)).Msg("output method failed, trying next")
	}

	if lastErr != nil {
		return entity.OutputNone, fmt.Errorf("%w: %w", entity.ErrOutputUnavailable, lastErr)
	}
	return entity.OutputNone, entity.ErrOutputUnavailable
}
