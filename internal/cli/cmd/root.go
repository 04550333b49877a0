// Package cmd provides Cobra CLI commands for vidpipe.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bnema/vidpipe/internal/cli"
	"github.com/bnema/vidpipe/internal/domain/build"
)

var (
	app        *cli.App
	buildInfo  build.Info
	configPath string
	logLevel   string
	rootCmd    = &cobra.Command{
		Use:   "vidpipe",
		Short: "Hardware-accelerated video output pipeline",
		Long: `vidpipe drives a decode, mix and present pipeline against a simulated GPU.

It manages the decoder surface pool, the asynchronous mixer worker, the
output picture ring and device-loss recovery, and reports what happened.

Use 'vidpipe run' to play a synthetic stream, 'vidpipe caps' to inspect
what the device supports, or 'vidpipe monitor' for a live view.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip initialization for commands that don't need app context
			switch cmd.Name() {
			case "help", "completion", "gen-docs", "version":
				return nil
			}

			var err error
			app, err = cli.NewApp(cli.Options{ConfigPath: configPath, LogLevel: logLevel})
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			// Set build info from main.go
			app.BuildInfo = buildInfo
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if app != nil {
				_ = app.Close()
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/vidpipe/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (trace, debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GetApp returns the initialized app (for use by subcommands).
func GetApp() *cli.App {
	return app
}

// SetBuildInfo sets the build information (called from main.go before Execute).
func SetBuildInfo(info build.Info) {
	buildInfo = info
}
