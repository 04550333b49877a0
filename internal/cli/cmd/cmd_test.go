package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/vidpipe/internal/domain/entity"
	"github.com/bnema/vidpipe/internal/infrastructure/config"
	"github.com/bnema/vidpipe/internal/logging"
)

// execute runs the root command with a config file in a temp dir.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile := filepath.Join(t.TempDir(), "config.toml")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgFile, "--log-level", "error"}, args...))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestStreamFlags_Input(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	var f streamFlags
	f.register(cmd, 0)
	require.NoError(t, cmd.ParseFlags([]string{"-n", "50", "--codec", "MPEG2", "-i", "--preempt-after", "10,20", "--drop-every", "4", "--fps", "25"}))

	in := f.input()
	assert.Equal(t, 50, in.Frames)
	assert.Equal(t, entity.CodecMPEG2, in.Stream.Codec)
	assert.True(t, in.Stream.Interlaced)
	assert.Equal(t, []uint64{10, 20}, in.PreemptAfter)
	assert.Equal(t, 4, in.DropEvery)
	assert.Equal(t, 40*time.Millisecond, in.FrameInterval)
	assert.True(t, in.Lossless)
}

func TestStreamFlags_Overrides(t *testing.T) {
	f := streamFlags{method: "pixmap", interlaced: true}
	ov, err := f.overrides()
	require.NoError(t, err)
	assert.Equal(t, entity.OutputPixmap, ov.Method)
	assert.True(t, ov.Interlaced)

	f.method = "vdpau"
	_, err = f.overrides()
	assert.Error(t, err)
}

func TestWatchReloads_ForwardsFeatureRequests(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[video]\nnoise_reduction = 0.1\n"), 0o644))
	mgr, err := config.NewManagerForFile(path)
	require.NoError(t, err)
	require.NoError(t, mgr.Load())

	ctx, cancel := context.WithCancel(logging.WithContext(context.Background(), logging.NewFromConfigValues("error", "text")))
	defer cancel()
	reloads, err := watchReloads(ctx, mgr)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[video]\nnoise_reduction = 0.7\n"), 0o644))
	select {
	case req := <-reloads:
		assert.InDelta(t, 0.7, req.NoiseReduction, 0.001)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload forwarded")
	}
}

func TestRunCommand_PlaysStream(t *testing.T) {
	out, err := execute(t, "run", "-n", "12", "--drop-every", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Playback")
	assert.Contains(t, out, "presentation order preserved")
}

func TestCapsCommand(t *testing.T) {
	out, err := execute(t, "caps", "--codec", "h264")
	require.NoError(t, err)
	assert.Contains(t, out, "Hardware capabilities")
	assert.Contains(t, out, "Negotiated")
}

func TestConfigKeysCommand(t *testing.T) {
	out, err := execute(t, "config", "keys", "--section", "logging", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"logging.level"`)
	assert.NotContains(t, out, "video.deinterlace")
}

func TestGenerateMarkdown(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateMarkdown(dir))
	_, err := os.Stat(filepath.Join(dir, "vidpipe_run.md"))
	assert.NoError(t, err)
}
