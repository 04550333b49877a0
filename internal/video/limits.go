package video

import (
	"fmt"
	"strings"

	"github.com/bnema/vidpipe/internal/domain/entity"
)

// Limits sizes the fixed pools of the pipeline.
type Limits struct {
	OutputPictures   int
	FlipSlots        int
	OutputSurfaces   int
	MaxPictureQueue  int
	MaxVideoSurfaces int
	FullHDWidth      int
}

// DefaultLimits returns the stock pool sizes.
func DefaultLimits() Limits {
	return Limits{
		OutputPictures:   11,
		FlipSlots:        4,
		OutputSurfaces:   11,
		MaxPictureQueue:  20,
		MaxVideoSurfaces: 32,
		FullHDWidth:      1920,
	}
}

// Pictures returns the picture arena size for an output method. Mixer
// methods need one output surface per picture.
func (l Limits) Pictures(method entity.OutputMethod) int {
	if method.UsesMixer() && l.OutputSurfaces < l.OutputPictures {
		return l.OutputSurfaces
	}
	return l.OutputPictures
}

// Validate checks that the flip ring fits in the arena and the arena in
// the picture queue, for every output method.
func (l Limits) Validate() error {
	var problems []string
	if l.FlipSlots < 1 {
		problems = append(problems, "flip_slots must be at least 1")
	}
	if l.MaxVideoSurfaces < entity.ReferenceWindowSize+1 {
		problems = append(problems, fmt.Sprintf("max_video_surfaces must be at least %d", entity.ReferenceWindowSize+1))
	}
	for _, m := range []entity.OutputMethod{entity.OutputPixmap, entity.OutputGLInteropYUV} {
		n := l.Pictures(m)
		if l.FlipSlots >= n {
			problems = append(problems, fmt.Sprintf("flip_slots (%d) must be below the %s picture count (%d)", l.FlipSlots, m, n))
		}
		if n > l.MaxPictureQueue {
			problems = append(problems, fmt.Sprintf("%s picture count (%d) exceeds max_picture_queue (%d)", m, n, l.MaxPictureQueue))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid limits: %s", strings.Join(problems, "; "))
	}
	return nil
}
