// Command vidpipe runs the video output pipeline against a simulated GPU.
package main

import (
	"context"
	"runtime"

	"github.com/bnema/vidpipe/internal/cli/cmd"
	"github.com/bnema/vidpipe/internal/domain/build"
	"github.com/bnema/vidpipe/internal/logging"
)

// Build-time variables (set via ldflags).
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	enableCrashForensics()
	logCoreDumpLimits(logging.WithContext(context.Background(), logging.NewFromEnv()))

	// Pass build info to CLI
	cmd.SetBuildInfo(build.Info{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
	})

	cmd.Execute()
}
