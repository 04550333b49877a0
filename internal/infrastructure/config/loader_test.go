package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), filePerm))
	return path
}

func TestSetVideoDefaults(t *testing.T) {
	mgr := &Manager{viper: viper.New()}
	mgr.setDefaults()

	assert.Equal(t, "auto", mgr.viper.GetString("video.deinterlace"))
	assert.True(t, mgr.viper.GetBool("video.post_processing"))
	assert.Equal(t, 11, mgr.viper.GetInt("video.limits.output_pictures"))
	assert.Equal(t, 4, mgr.viper.GetInt("video.limits.flip_slots"))
}

func TestLoad_MissingExplicitFileUsesDefaults(t *testing.T) {
	mgr, err := NewManagerForFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.NoError(t, mgr.Load())

	defaults := DefaultConfig()
	assert.Equal(t, defaults.Video, mgr.Get().Video)
	assert.Equal(t, defaults.Logging, mgr.Get().Logging)
	assert.Equal(t, defaults.Simulation.Methods, mgr.Get().Simulation.Methods)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
[video]
deinterlace = "TEMPORAL_SPATIAL"
noise_reduction = 0.4
output_method = "pixmap"

[video.limits]
output_pictures = 6
flip_slots = 2
output_surfaces = 6
`)
	mgr, err := NewManagerForFile(path)
	require.NoError(t, err)
	require.NoError(t, mgr.Load())

	cfg := mgr.Get()
	assert.Equal(t, DeinterlaceTemporalSpatial, cfg.Video.Deinterlace)
	assert.InDelta(t, 0.4, cfg.Video.NoiseReduction, 1e-9)
	assert.Equal(t, OutputPixmap, cfg.Video.OutputMethod)
	assert.Equal(t, 6, cfg.Video.Limits.OutputPictures)
	assert.Equal(t, 20, cfg.Video.Limits.MaxPictureQueue, "unset keys keep defaults")
	assert.Equal(t, path, mgr.GetConfigFile())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("VIDPIPE_VIDEO_SCALING_LEVEL", "3")
	t.Setenv("VIDPIPE_LOG_LEVEL", "debug")

	mgr, err := NewManagerForFile(writeFile(t, "[video]\nscaling_level = 1\n"))
	require.NoError(t, err)
	require.NoError(t, mgr.Load())

	assert.Equal(t, 3, mgr.Get().Video.ScalingLevel)
	assert.Equal(t, "debug", mgr.Get().Logging.Level)
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	mgr, err := NewManagerForFile(writeFile(t, "[video]\nscaling_level = 12\n\n[video.limits]\nflip_slots = 11\n"))
	require.NoError(t, err)

	err = mgr.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "video.scaling_level must be between 0 and 9")
	assert.Contains(t, err.Error(), "video.limits.flip_slots")
}

func TestLoad_MalformedFile(t *testing.T) {
	mgr, err := NewManagerForFile(writeFile(t, "[video\nbroken"))
	require.NoError(t, err)
	assert.ErrorContains(t, mgr.Load(), "must be valid TOML")
}

func TestLoad_CreatesDefaultFile(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	mgr, err := NewManager()
	require.NoError(t, err)
	require.NoError(t, mgr.Load())

	path, err := GetConfigFile()
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, DefaultConfig().Video, mgr.Get().Video)
}

func TestNormalizeConfig_UnknownEnumsFallBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Video.Deinterlace = "weave"
	cfg.Video.OutputMethod = "vulkan"
	cfg.Video.TieBreak = "random"
	cfg.Logging.Level = " INFO "

	normalizeConfig(cfg)

	assert.Equal(t, DeinterlaceAuto, cfg.Video.Deinterlace)
	assert.Equal(t, OutputAuto, cfg.Video.OutputMethod)
	assert.Equal(t, TieBreakLowestIndex, cfg.Video.TieBreak)
	assert.Equal(t, "info", cfg.Logging.Level)
}
