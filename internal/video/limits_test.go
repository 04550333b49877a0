package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bnema/vidpipe/internal/domain/entity"
)

func TestLimits_Pictures(t *testing.T) {
	l := DefaultLimits()
	l.OutputSurfaces = 6

	assert.Equal(t, 6, l.Pictures(entity.OutputPixmap))
	assert.Equal(t, 6, l.Pictures(entity.OutputGLInteropRGB))
	assert.Equal(t, 11, l.Pictures(entity.OutputGLInteropYUV), "YUV needs no output surfaces")
}

func TestLimits_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Limits)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Limits) {}},
		{name: "no flip slots", mutate: func(l *Limits) { l.FlipSlots = 0 }, wantErr: "flip_slots must be at least 1"},
		{name: "ring as large as arena", mutate: func(l *Limits) { l.OutputSurfaces = 4 }, wantErr: "must be below the pixmap picture count"},
		{name: "arena beyond queue", mutate: func(l *Limits) { l.MaxPictureQueue = 8 }, wantErr: "exceeds max_picture_queue"},
		{name: "tiny surface pool", mutate: func(l *Limits) { l.MaxVideoSurfaces = 4 }, wantErr: "max_video_surfaces"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := DefaultLimits()
			tt.mutate(&l)
			err := l.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
