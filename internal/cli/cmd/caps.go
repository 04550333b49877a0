package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/vidpipe/internal/application/usecase"
	"github.com/bnema/vidpipe/internal/cli"
	"github.com/bnema/vidpipe/internal/cli/styles"
	"github.com/bnema/vidpipe/internal/domain/entity"
)

var (
	capsCodec      string
	capsWidth      int
	capsHeight     int
	capsInterlaced bool
	capsMethod     string
)

var capsCmd = &cobra.Command{
	Use:   "caps",
	Short: "Show device capabilities and the negotiated feature set",
	Long: `Probe the simulated device for mixer features, decoder profiles and the
output methods the renderer accepts.

With --codec, a stream of that format is configured first so the report
also shows the feature set and output method it negotiates.

Examples:
  vidpipe caps
  vidpipe caps --codec h264 --width 1920 --height 1080 -i`,
	RunE: runCaps,
}

func init() {
	rootCmd.AddCommand(capsCmd)
	capsCmd.Flags().StringVar(&capsCodec, "codec", "", "configure a stream of this codec before probing")
	capsCmd.Flags().IntVar(&capsWidth, "width", 1280, "stream width")
	capsCmd.Flags().IntVar(&capsHeight, "height", 720, "stream height")
	capsCmd.Flags().BoolVarP(&capsInterlaced, "interlaced", "i", false, "interlaced stream")
	capsCmd.Flags().StringVarP(&capsMethod, "method", "m", "", "preferred output method")
}

func runCaps(cmd *cobra.Command, _ []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	ov := cli.PipelineOverrides{Interlaced: capsInterlaced}
	if capsMethod != "" {
		if ov.Method = entity.ParseOutputMethod(capsMethod); ov.Method == entity.OutputNone {
			return fmt.Errorf("unknown output method %q", capsMethod)
		}
	}

	pipeline, err := app.NewPipeline(ov)
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	var input usecase.ProbeCapabilitiesInput
	if capsCodec != "" {
		input.Stream = &entity.StreamFormat{
			Codec:      entity.Codec(strings.ToLower(capsCodec)),
			Width:      capsWidth,
			Height:     capsHeight,
			Interlaced: capsInterlaced,
		}
	}

	uc := usecase.NewProbeCapabilitiesUseCase(pipeline, pipeline.GL)
	out, err := uc.Execute(app.Ctx(), input)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), styles.NewCapsRenderer(app.Theme).Render(out))
	return nil
}
