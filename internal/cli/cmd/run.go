package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bnema/vidpipe/internal/application/usecase"
	"github.com/bnema/vidpipe/internal/cli/styles"
	"github.com/bnema/vidpipe/internal/logging"
)

var runFlags streamFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play a synthetic stream through the pipeline",
	Long: `Decode a synthetic stream on the simulated device, mix every frame and
present the pictures in order, then print a report.

Examples:
  vidpipe run                              # 120 progressive 720p frames
  vidpipe run -i -n 300                    # interlaced, temporal deinterlacing
  vidpipe run --preempt-after 40,80        # lose the device twice
  vidpipe run --drop-every 3 --method pixmap
  vidpipe run -w --fps 25                  # live-reload [video] settings`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runFlags.register(runCmd, 0)
}

func runRun(cmd *cobra.Command, _ []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	ov, err := runFlags.overrides()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(app.Ctx(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithComponent(ctx, "run")

	pipeline, err := app.NewPipeline(ov)
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	input := runFlags.input()
	if runFlags.watchConfig {
		if input.Reloads, err = watchReloads(ctx, app.Manager); err != nil {
			return err
		}
	}

	uc := usecase.NewRunPlaybackUseCase(pipeline, pipeline.Device, pipeline.Device)
	out, runErr := uc.Execute(ctx, input)

	renderer := styles.NewPlaybackRenderer(app.Theme)
	fmt.Fprintln(cmd.OutOrStdout(), renderer.Render(out, runErr))

	if violations := pipeline.Device.Violations(); len(violations) > 0 {
		for _, v := range violations {
			logging.FromContext(ctx).Error().Str("violation", v).Msg("device contract violated")
		}
		return fmt.Errorf("%d device contract violations", len(violations))
	}
	return runErr
}
