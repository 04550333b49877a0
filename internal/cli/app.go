// Package cli wires the configuration, the simulated device and the video
// pipeline for the command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/bnema/vidpipe/internal/cli/styles"
	"github.com/bnema/vidpipe/internal/domain/build"
	"github.com/bnema/vidpipe/internal/domain/entity"
	"github.com/bnema/vidpipe/internal/infrastructure/config"
	"github.com/bnema/vidpipe/internal/infrastructure/simdevice"
	"github.com/bnema/vidpipe/internal/logging"
	"github.com/bnema/vidpipe/internal/video"
)

// App holds CLI dependencies.
type App struct {
	Config    *config.Config
	Manager   *config.Manager
	Theme     *styles.Theme
	BuildInfo build.Info

	// Context with logger
	ctx context.Context
}

// Options override what the config file says.
type Options struct {
	// ConfigPath selects an explicit config file instead of the XDG one.
	ConfigPath string
	LogLevel   string
}

// NewApp loads the configuration and builds the logger.
func NewApp(opts Options) (*App, error) {
	var (
		mgr *config.Manager
		err error
	)
	if opts.ConfigPath != "" {
		mgr, err = config.NewManagerForFile(opts.ConfigPath)
	} else {
		mgr, err = config.NewManager()
	}
	if err != nil {
		return nil, fmt.Errorf("create config manager: %w", err)
	}
	if err := mgr.Load(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := mgr.Get()

	logLevel := cfg.Logging.Level
	if envLevel := os.Getenv(logging.EnvLogLevel); envLevel != "" {
		logLevel = envLevel
	}
	if opts.LogLevel != "" {
		logLevel = opts.LogLevel
	}
	logger := logging.NewFromConfigValues(logLevel, cfg.Logging.Format)
	ctx := logging.WithContext(context.Background(), logger)

	logger.Debug().Str("config_file", mgr.GetConfigFile()).Msg("configuration loaded")

	return &App{
		Config:  cfg,
		Manager: mgr,
		Theme:   styles.NewTheme(),
		ctx:     ctx,
	}, nil
}

// Ctx returns the application context with logger.
func (a *App) Ctx() context.Context {
	return a.ctx
}

// Pipeline is a decoder bound to the simulated device it runs on.
type Pipeline struct {
	*video.Decoder
	Device *simdevice.Factory
	GL     *simdevice.GL
}

// PipelineOverrides adjust the configured pipeline for one command.
type PipelineOverrides struct {
	Method entity.OutputMethod
	// Interlaced forces temporal deinterlacing on.
	Interlaced bool
}

// NewPipeline opens a decoder on a fresh simulated device.
func (a *App) NewPipeline(ov PipelineOverrides) (*Pipeline, error) {
	cfg := a.Config
	factory := simdevice.NewFactory(cfg.SimulatedDevice())
	gl := simdevice.NewGL(factory)
	if methods := cfg.SimulatedMethods(); len(methods) > 0 {
		gl.SetMethods(methods...)
	}
	gl.SetOutputSize(cfg.Simulation.OutputWidth, cfg.Simulation.OutputHeight)

	opts := cfg.DecoderOptions()
	if ov.Method != "" && ov.Method != entity.OutputNone {
		opts.OutputMethod = ov.Method
	}
	if ov.Interlaced {
		opts.Features.PostProcessing = true
		if !opts.Features.Interlace.Temporal() {
			opts.Features.Interlace = entity.InterlaceTemporal
		}
	}

	ctx := logging.WithComponent(a.ctx, "pipeline")
	dec, err := video.New(ctx, video.Deps{Factory: factory, Renderer: gl, Pixmaps: gl, Interop: gl}, opts)
	if err != nil {
		return nil, fmt.Errorf("open pipeline: %w", err)
	}
	dec.AllowFrameDropping(cfg.Video.AllowFrameDropping)
	return &Pipeline{Decoder: dec, Device: factory, GL: gl}, nil
}

// Close releases all resources.
func (a *App) Close() error {
	return nil
}
