package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/vidpipe/internal/application/usecase"
	"github.com/bnema/vidpipe/internal/cli"
	"github.com/bnema/vidpipe/internal/domain/entity"
	"github.com/bnema/vidpipe/internal/infrastructure/config"
	"github.com/bnema/vidpipe/internal/logging"
)

// streamFlags are shared by the commands that play a synthetic stream.
type streamFlags struct {
	frames       int
	codec        string
	width        int
	height       int
	refFrames    int
	interlaced   bool
	preemptAfter []uint
	dropEvery    int
	lossless     bool
	method       string
	fps          float64
	watchConfig  bool
}

func (f *streamFlags) register(cmd *cobra.Command, defaultFPS float64) {
	fl := cmd.Flags()
	fl.IntVarP(&f.frames, "frames", "n", 120, "number of frames to decode")
	fl.StringVar(&f.codec, "codec", string(entity.CodecH264), "stream codec (mpeg2, h264, vc1, wmv3, hevc)")
	fl.IntVar(&f.width, "width", 1280, "stream width")
	fl.IntVar(&f.height, "height", 720, "stream height")
	fl.IntVar(&f.refFrames, "ref-frames", 10, "reference frames the codec keeps")
	fl.BoolVarP(&f.interlaced, "interlaced", "i", false, "interlaced stream, forces temporal deinterlacing")
	fl.UintSliceVar(&f.preemptAfter, "preempt-after", nil, "lose the device after these frame sequences")
	fl.IntVar(&f.dropEvery, "drop-every", 0, "mark every Nth frame droppable")
	fl.BoolVar(&f.lossless, "lossless", true, "wait for queue space instead of skipping frames")
	fl.StringVarP(&f.method, "method", "m", "", "preferred output method (pixmap, interop_rgb, interop_yuv)")
	fl.Float64Var(&f.fps, "fps", defaultFPS, "producer frame rate, 0 decodes as fast as possible")
	fl.BoolVarP(&f.watchConfig, "watch", "w", false, "apply video config changes while playing")
}

func (f *streamFlags) overrides() (cli.PipelineOverrides, error) {
	var ov cli.PipelineOverrides
	if f.method != "" {
		ov.Method = entity.ParseOutputMethod(f.method)
		if ov.Method == entity.OutputNone {
			return ov, fmt.Errorf("unknown output method %q", f.method)
		}
	}
	ov.Interlaced = f.interlaced
	return ov, nil
}

func (f *streamFlags) input() usecase.RunPlaybackInput {
	in := usecase.RunPlaybackInput{
		Stream: entity.StreamFormat{
			Codec:      entity.Codec(strings.ToLower(f.codec)),
			Width:      f.width,
			Height:     f.height,
			RefFrames:  f.refFrames,
			Interlaced: f.interlaced,
		},
		Frames:    f.frames,
		Lossless:  f.lossless,
		DropEvery: f.dropEvery,
	}
	for _, seq := range f.preemptAfter {
		in.PreemptAfter = append(in.PreemptAfter, uint64(seq))
	}
	if f.fps > 0 {
		in.FrameInterval = time.Duration(float64(time.Second) / f.fps)
	}
	return in
}

// watchReloads forwards validated config changes as feature requests until
// ctx ends.
func watchReloads(ctx context.Context, mgr *config.Manager) (<-chan entity.FeatureRequest, error) {
	reloads := make(chan entity.FeatureRequest, 1)
	mgr.OnConfigChange(func(cfg *config.Config) {
		req := cfg.FeatureRequest()
		select {
		case reloads <- req:
		case <-ctx.Done():
		default:
			logging.FromContext(ctx).Warn().Msg("feature change still pending, dropping config reload")
		}
	})
	if err := mgr.Watch(); err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}
	logging.FromContext(ctx).Info().Str("file", mgr.GetConfigFile()).Msg("watching config for feature changes")
	return reloads, nil
}
