package cmd

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/bnema/vidpipe/internal/application/usecase"
	"github.com/bnema/vidpipe/internal/cli/model"
	"github.com/bnema/vidpipe/internal/cli/styles"
	"github.com/bnema/vidpipe/internal/logging"
)

var monitorFlags streamFlags

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch pipeline stats live while a stream plays",
	Long: `Play a paced synthetic stream and show the surface pool, the mixer
queue, the output pictures and recovery counters as they change.

Press q to stop.

Examples:
  vidpipe monitor
  vidpipe monitor -i --fps 50 --preempt-after 100`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorFlags.register(monitorCmd, 25)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	ov, err := monitorFlags.overrides()
	if err != nil {
		return err
	}
	pipeline, err := app.NewPipeline(ov)
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	input := monitorFlags.input()
	ctx := logging.WithComponent(app.Ctx(), "monitor")
	if monitorFlags.watchConfig {
		if input.Reloads, err = watchReloads(ctx, app.Manager); err != nil {
			return err
		}
	}

	uc := usecase.NewRunPlaybackUseCase(pipeline, pipeline.Device, pipeline.Device)
	run := func(ctx context.Context) (*usecase.RunPlaybackOutput, error) {
		return uc.Execute(ctx, input)
	}

	m := model.NewMonitorModel(ctx, app.Theme, pipeline, run, model.MonitorConfig{Frames: input.Frames})
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("run monitor: %w", err)
	}

	mm, ok := final.(model.MonitorModel)
	if !ok {
		return nil
	}
	out, runErr := mm.Result()
	if errors.Is(runErr, context.Canceled) {
		// stopped from the keyboard
		runErr = nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.NewPlaybackRenderer(app.Theme).Render(out, runErr))
	return runErr
}
