package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-world/logging"
)

func memViper(t *testing.T, files map[string]string) *viper.Viper {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	v := viper.New()
	v.SetFs(fs)
	return v
}

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, logging.InfoLevel, cfg.Level())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(memViper(t, nil), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load(memViper(t, nil), "/missing.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	v := memViper(t, map[string]string{
		"/etc/world.yaml": "sample_rate: 16000\nframe_period: 10\nestimator: harvest\nrefine: false\n",
	})
	cfg, err := Load(v, "/etc/world.yaml")
	require.NoError(t, err)
	assert.Equal(t, 16000, cfg.SampleRate)
	assert.InDelta(t, 10.0, cfg.FramePeriod, 0)
	assert.Equal(t, EstimatorHarvest, cfg.Estimator)
	assert.False(t, cfg.Refine)
	assert.InDelta(t, 71.0, cfg.F0Floor, 0, "unset keys keep defaults")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("WORLD_SAMPLE_RATE", "22050")
	t.Setenv("WORLD_LOG_LEVEL", "debug")

	cfg, err := Load(memViper(t, nil), "")
	require.NoError(t, err)
	assert.Equal(t, 22050, cfg.SampleRate)
	assert.Equal(t, logging.DebugLevel, cfg.Level())
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	t.Parallel()

	v := memViper(t, map[string]string{"/bad.yaml": "estimator: crepe\n"})
	_, err := Load(v, "/bad.yaml")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"negative frame period", func(c *Config) { c.FramePeriod = -5 }},
		{"zero floor", func(c *Config) { c.F0Floor = 0 }},
		{"ceil below floor", func(c *Config) { c.F0Ceil = 50 }},
		{"unknown estimator", func(c *Config) { c.Estimator = "yin" }},
		{"bit depth", func(c *Config) { c.BitDepth = 12 }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
