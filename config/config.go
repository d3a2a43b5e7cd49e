// Package config holds the settings shared by the bridge CLI and its sessions.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-world/logging"
)

// EnvPrefix prefixes every environment override, e.g. WORLD_SAMPLE_RATE.
const EnvPrefix = "WORLD"

// Estimator names accepted by Config.Estimator.
const (
	EstimatorDio     = "dio"
	EstimatorHarvest = "harvest"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config contains analysis and runtime settings.
type Config struct {
	SampleRate  int     `json:"sample_rate" mapstructure:"sample_rate"`
	FramePeriod float64 `json:"frame_period" mapstructure:"frame_period"` // ms
	F0Floor     float64 `json:"f0_floor" mapstructure:"f0_floor"`
	F0Ceil      float64 `json:"f0_ceil" mapstructure:"f0_ceil"`
	Estimator   string  `json:"estimator" mapstructure:"estimator"`
	Refine      bool    `json:"refine" mapstructure:"refine"`
	BitDepth    int     `json:"bit_depth" mapstructure:"bit_depth"`
	LogLevel    string  `json:"log_level" mapstructure:"log_level"`
	Metrics     bool    `json:"metrics" mapstructure:"metrics"`
	FFmpegPath  string  `json:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	FFprobePath string  `json:"ffprobe_path" mapstructure:"ffprobe_path"`
}

// DefaultConfig returns the WORLD defaults at 48 kHz.
func DefaultConfig() *Config {
	return &Config{
		SampleRate:  48000,
		FramePeriod: 5.0,
		F0Floor:     71.0,
		F0Ceil:      800.0,
		Estimator:   EstimatorDio,
		Refine:      true,
		BitDepth:    16,
		LogLevel:    "info",
		Metrics:     false,
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
	}
}

// Validate checks every field.
func (c *Config) Validate() error {
	var errs []error
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate))
	}
	if c.FramePeriod <= 0 {
		errs = append(errs, fmt.Errorf("frame_period must be positive, got %v", c.FramePeriod))
	}
	if c.F0Floor <= 0 {
		errs = append(errs, fmt.Errorf("f0_floor must be positive, got %v", c.F0Floor))
	}
	if c.F0Ceil <= c.F0Floor {
		errs = append(errs, fmt.Errorf("f0_ceil %v must exceed f0_floor %v", c.F0Ceil, c.F0Floor))
	}
	switch c.Estimator {
	case EstimatorDio, EstimatorHarvest:
	default:
		errs = append(errs, fmt.Errorf("unknown estimator %q", c.Estimator))
	}
	switch c.BitDepth {
	case 16, 24, 32:
	default:
		errs = append(errs, fmt.Errorf("unsupported bit_depth %d", c.BitDepth))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() logging.Level {
	level, _ := logging.ParseLevel(c.LogLevel)
	return level
}

// SetDefaults registers every key with its default value on v.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("sample_rate", d.SampleRate)
	v.SetDefault("frame_period", d.FramePeriod)
	v.SetDefault("f0_floor", d.F0Floor)
	v.SetDefault("f0_ceil", d.F0Ceil)
	v.SetDefault("estimator", d.Estimator)
	v.SetDefault("refine", d.Refine)
	v.SetDefault("bit_depth", d.BitDepth)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("metrics", d.Metrics)
	v.SetDefault("ffmpeg_path", d.FFmpegPath)
	v.SetDefault("ffprobe_path", d.FFprobePath)
}

// Load reads settings in increasing precedence: defaults, the YAML file at
// path (or worldbridge.yaml in the working directory when path is empty),
// WORLD_* environment variables and any flags already bound to v.
// A missing config file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("worldbridge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
