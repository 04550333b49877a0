package port

import (
	"context"

	"github.com/bnema/vidpipe/internal/domain/entity"
)

//go:generate mockgen -source=pipeline.go -destination=mocks/mock_pipeline.go -package=mocks

// VideoPipeline is the presentation pipeline as seen by a player: the
// decode library feeds it surfaces and the renderer pulls textures.
type VideoPipeline interface {
	Configure(ctx context.Context, stream entity.StreamFormat) error

	// QueueIsFull reports backpressure; with wait it blocks until the
	// queue has room or ctx ends.
	QueueIsFull(ctx context.Context, wait bool) bool
	SupplySurface(ctx context.Context, reference bool) (*entity.VideoSurface, error)
	ReclaimSurface(s *entity.VideoSurface)
	Decode(ctx context.Context, msg *entity.DecodeMessage) error
	Drain(ctx context.Context, soft bool) error

	GetPicture(ctx context.Context) (int, error)
	AcquireTexture(ctx context.Context, slot int) (entity.Texture, error)
	ReleaseTexture(ctx context.Context, slot int) error

	ApplyFeatureChange(ctx context.Context, req entity.FeatureRequest) (*entity.FeatureSet, error)
	Check(ctx context.Context) entity.Health

	Method() entity.OutputMethod
	Features() *entity.FeatureSet
	Capabilities() *entity.Capabilities
}

// FrameWriter stands in for the decode library writing a frame into a
// surface it was handed.
type FrameWriter interface {
	WriteFrame(s *entity.VideoSurface, tag uint64) error
}

// FaultInjector loses the current device on demand.
type FaultInjector interface {
	Preempt()
}
