package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Manager handles configuration loading, watching, and reloading.
type Manager struct {
	config    *Config
	viper     *viper.Viper
	mu        sync.RWMutex
	callbacks []func(*Config)
	watching  bool
	// createMissing writes a default file on first run.
	createMissing bool
}

// NewManager creates a manager reading config.toml from the XDG config
// directory, then the working directory.
func NewManager() (*Manager, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")

	configDir, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine config directory: %w\nCheck XDG_CONFIG_HOME environment variable or HOME directory", err)
	}
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	m := &Manager{viper: v, createMissing: true}
	if err := m.bindEnv(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewManagerForFile creates a manager bound to one explicit file. A
// missing file is not created; defaults apply.
func NewManagerForFile(path string) (*Manager, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	m := &Manager{viper: v}
	if err := m.bindEnv(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) bindEnv() error {
	// Nested keys map to VIDPIPE_VIDEO_SCALING_LEVEL and so on.
	m.viper.SetEnvPrefix("VIDPIPE")
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()

	if err := m.viper.BindEnv("logging.level", "VIDPIPE_LOG_LEVEL"); err != nil {
		return fmt.Errorf("failed to bind VIDPIPE_LOG_LEVEL: %w", err)
	}
	if err := m.viper.BindEnv("logging.format", "VIDPIPE_LOG_FORMAT"); err != nil {
		return fmt.Errorf("failed to bind VIDPIPE_LOG_FORMAT: %w", err)
	}
	return nil
}

// Load loads the configuration from file and environment variables.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setDefaults()

	if err := m.readConfigFile(); err != nil {
		return err
	}

	config, err := m.unmarshalConfig()
	if err != nil {
		return err
	}
	normalizeConfig(config)

	if err := validateConfig(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	m.config = config
	return nil
}

func (m *Manager) readConfigFile() error {
	err := m.viper.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
	if !missing {
		configFile := m.viper.ConfigFileUsed()
		return fmt.Errorf("failed to read config file at %s: %w\nCheck the file format (must be valid TOML) and permissions", configFile, err)
	}
	if !m.createMissing {
		return nil
	}

	if createErr := m.createDefaultConfig(); createErr != nil {
		configDir, _ := GetConfigDir()
		return fmt.Errorf("failed to create default config at %s: %w\nTry creating the directory manually or check permissions", configDir, createErr)
	}
	if rereadErr := m.viper.ReadInConfig(); rereadErr != nil {
		return fmt.Errorf("failed to read newly created config file: %w", rereadErr)
	}
	return nil
}

func (m *Manager) unmarshalConfig() (*Config, error) {
	config := &Config{}
	if err := m.viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf(
			"failed to parse config file at %s: %w\nCheck for syntax errors, invalid values, or type mismatches",
			m.viper.ConfigFileUsed(),
			err,
		)
	}
	return config, nil
}

func normalizeConfig(config *Config) {
	switch mode := DeinterlaceMode(strings.ToLower(string(config.Video.Deinterlace))); mode {
	case DeinterlaceNone, DeinterlaceBob, DeinterlaceTemporal, DeinterlaceTemporalHalf,
		DeinterlaceTemporalSpatial, DeinterlaceTemporalSpatialHalf, DeinterlaceInverseTelecine:
		config.Video.Deinterlace = mode
	default:
		config.Video.Deinterlace = DeinterlaceAuto
	}

	switch method := OutputMethod(strings.ToLower(string(config.Video.OutputMethod))); method {
	case OutputPixmap, OutputInteropRGB, OutputInteropYUV:
		config.Video.OutputMethod = method
	default:
		config.Video.OutputMethod = OutputAuto
	}

	switch TieBreak(strings.ToLower(string(config.Video.TieBreak))) {
	case TieBreakMostRecent:
		config.Video.TieBreak = TieBreakMostRecent
	default:
		config.Video.TieBreak = TieBreakLowestIndex
	}

	config.Logging.Level = strings.ToLower(strings.TrimSpace(config.Logging.Level))
	config.Logging.Format = strings.ToLower(strings.TrimSpace(config.Logging.Format))
	for i, f := range config.Simulation.DisabledFeatures {
		config.Simulation.DisabledFeatures[i] = strings.ToLower(strings.TrimSpace(f))
	}
	for i, meth := range config.Simulation.Methods {
		config.Simulation.Methods[i] = strings.ToLower(strings.TrimSpace(meth))
	}
}

// Get returns the current configuration (thread-safe).
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return DefaultConfig()
	}
	configCopy := *m.config
	return &configCopy
}

// GetConfigFile returns the path to the configuration file being used.
func (m *Manager) GetConfigFile() string {
	return m.viper.ConfigFileUsed()
}

// createDefaultConfig writes the defaults to the XDG config file.
func (m *Manager) createDefaultConfig() error {
	configFile, err := GetConfigFile()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configFile), dirPerm); err != nil {
		return err
	}
	if err := WriteConfigOrdered(DefaultConfig(), configFile); err != nil {
		return err
	}
	m.viper.SetConfigFile(configFile)
	fmt.Fprintf(os.Stderr, "Created default configuration file: %s\n", configFile)
	return nil
}

// setDefaults sets default configuration values in Viper.
func (m *Manager) setDefaults() {
	defaults := DefaultConfig()

	m.setVideoDefaults(defaults)
	m.setLimitsDefaults(defaults)
	m.setLoggingDefaults(defaults)
	m.setSimulationDefaults(defaults)
}

func (m *Manager) setVideoDefaults(defaults *Config) {
	v := defaults.Video
	m.viper.SetDefault("video.deinterlace", string(v.Deinterlace))
	m.viper.SetDefault("video.scaling_level", v.ScalingLevel)
	m.viper.SetDefault("video.noise_reduction", v.NoiseReduction)
	m.viper.SetDefault("video.sharpness", v.Sharpness)
	m.viper.SetDefault("video.post_processing", v.PostProcessing)
	m.viper.SetDefault("video.skip_chroma_deinterlace", v.SkipChromaDeinterlace)
	m.viper.SetDefault("video.brightness", v.Brightness)
	m.viper.SetDefault("video.contrast", v.Contrast)
	m.viper.SetDefault("video.saturation", v.Saturation)
	m.viper.SetDefault("video.hue", v.Hue)
	m.viper.SetDefault("video.studio_levels", v.StudioLevels)
	m.viper.SetDefault("video.output_method", string(v.OutputMethod))
	m.viper.SetDefault("video.strict_interop", v.StrictInterop)
	m.viper.SetDefault("video.tie_break", string(v.TieBreak))
	m.viper.SetDefault("video.allow_frame_dropping", v.AllowFrameDropping)
	m.viper.SetDefault("video.recovery_attempts", v.RecoveryAttempts)
	m.viper.SetDefault("video.recovery_backoff_ms", v.RecoveryBackoffMs)
}

func (m *Manager) setLimitsDefaults(defaults *Config) {
	l := defaults.Video.Limits
	m.viper.SetDefault("video.limits.output_pictures", l.OutputPictures)
	m.viper.SetDefault("video.limits.flip_slots", l.FlipSlots)
	m.viper.SetDefault("video.limits.output_surfaces", l.OutputSurfaces)
	m.viper.SetDefault("video.limits.max_picture_queue", l.MaxPictureQueue)
	m.viper.SetDefault("video.limits.max_video_surfaces", l.MaxVideoSurfaces)
	m.viper.SetDefault("video.limits.full_hd_width", l.FullHDWidth)
}

func (m *Manager) setLoggingDefaults(defaults *Config) {
	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)
}

func (m *Manager) setSimulationDefaults(defaults *Config) {
	s := defaults.Simulation
	m.viper.SetDefault("simulation.disabled_features", s.DisabledFeatures)
	m.viper.SetDefault("simulation.max_scaling_level", s.MaxScalingLevel)
	m.viper.SetDefault("simulation.render_latency_ms", s.RenderLatencyMs)
	m.viper.SetDefault("simulation.output_width", s.OutputWidth)
	m.viper.SetDefault("simulation.output_height", s.OutputHeight)
	m.viper.SetDefault("simulation.methods", s.Methods)
}
