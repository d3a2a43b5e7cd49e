package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-world/config"
	"github.com/RyanBlaney/sonido-world/host"
	"github.com/RyanBlaney/sonido-world/logging"
	"github.com/RyanBlaney/sonido-world/memory"
	"github.com/RyanBlaney/sonido-world/transcode"
)

// app is the state shared by every subcommand.
type app struct {
	fs         afero.Fs
	v          *viper.Viper
	configPath string

	cfg      *config.Config
	logger   logging.Logger
	registry *prometheus.Registry
	metrics  *memory.Metrics
}

// rootCommand builds the command tree. Files are read and written through fs.
func rootCommand(fs afero.Fs, v *viper.Viper) *cobra.Command {
	v.SetFs(fs)
	a := &app{fs: fs, v: v}

	rootCmd := &cobra.Command{
		Use:          "worldbridge",
		Short:        "WORLD vocoder bridge CLI",
		SilenceUsage: true,
	}

	if err := setupFlags(rootCmd, a); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		analyzeCommand(a),
		resynthCommand(a),
		infoCommand(a),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.initialize(cmd.ErrOrStderr())
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return a.dumpMetrics(cmd.ErrOrStderr())
	}
	return rootCmd
}

// setupFlags defines the global flags and binds them to their config keys.
func setupFlags(rootCmd *cobra.Command, a *app) error {
	d := config.DefaultConfig()
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to a YAML config file (default ./worldbridge.yaml)")
	flags.Int("sample-rate", d.SampleRate, "Sample rate used when no file supplies one")
	flags.Float64P("frame-period", "p", d.FramePeriod, "Analysis frame period in milliseconds")
	flags.Float64("f0-floor", d.F0Floor, "Lowest f0 searched, in Hz")
	flags.Float64("f0-ceil", d.F0Ceil, "Highest f0 searched, in Hz")
	flags.StringP("estimator", "e", d.Estimator, "Pitch estimator: dio or harvest")
	flags.Bool("refine", d.Refine, "Refine f0 with StoneMask")
	flags.Int("bit-depth", d.BitDepth, "Sample width of written WAV files: 16, 24 or 32")
	flags.String("log-level", d.LogLevel, "Log level: debug, info, warn, error")
	flags.Bool("metrics", d.Metrics, "Print allocation metrics to stderr on exit")

	bindings := map[string]string{
		"sample_rate":  "sample-rate",
		"frame_period": "frame-period",
		"f0_floor":     "f0-floor",
		"f0_ceil":      "f0-ceil",
		"estimator":    "estimator",
		"refine":       "refine",
		"bit_depth":    "bit-depth",
		"log_level":    "log-level",
		"metrics":      "metrics",
	}
	for key, name := range bindings {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}

// initialize loads the configuration and sets up logging and metrics.
func (a *app) initialize(stderr io.Writer) error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger := logging.NewDefaultLoggerWithWriters(stderr, stderr)
	logger.SetLevel(cfg.Level())
	a.logger = logger.WithFields(logging.Fields{"component": "cli"})

	if cfg.Metrics {
		a.registry = prometheus.NewRegistry()
		a.metrics, err = memory.NewMetrics(a.registry)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return nil
}

func (a *app) newWorld() *host.World {
	return host.New(
		host.WithLogger(a.logger),
		host.WithMetrics(a.metrics),
		host.WithPitchRange(a.cfg.F0Floor, a.cfg.F0Ceil),
		host.WithBitDepth(a.cfg.BitDepth),
		host.WithSampleRate(a.cfg.SampleRate),
	)
}

// dumpMetrics writes the registry in the Prometheus text format.
func (a *app) dumpMetrics(w io.Writer) error {
	if a.registry == nil {
		return nil
	}
	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	return nil
}

// readAudio loads path into w. Files that are not PCM WAV are converted with
// ffmpeg first.
func (a *app) readAudio(ctx context.Context, w *host.World, path string) (host.Audio, error) {
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return host.Audio{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !transcode.IsWAV(data) {
		cfg := transcode.DefaultConfig()
		cfg.FFmpegPath = a.cfg.FFmpegPath
		cfg.FFprobePath = a.cfg.FFprobePath
		cfg.BitDepth = a.cfg.BitDepth
		a.logger.Debug("transcoding input", logging.Fields{"path": path})
		if data, err = transcode.NewTranscoder(cfg, a.logger).ToWAV(ctx, data); err != nil {
			return host.Audio{}, fmt.Errorf("failed to transcode %s: %w", path, err)
		}
	}
	audio, err := w.WavRead(data)
	if err != nil {
		return host.Audio{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	a.logger.Debug("audio loaded", logging.Fields{
		"path":      path,
		"fs":        audio.FS,
		"bit_depth": audio.NBit,
		"samples":   len(audio.X),
	})
	return audio, nil
}

// analyse runs the configured estimator followed by CheapTrick and D4C.
func (a *app) analyse(w *host.World, audio host.Audio) (host.Result, error) {
	var (
		pitch host.DioResult
		err   error
	)
	switch a.cfg.Estimator {
	case config.EstimatorHarvest:
		pitch, err = w.Harvest(audio.X, audio.FS, a.cfg.FramePeriod, a.cfg.Refine)
	default:
		pitch, err = w.Dio(audio.X, audio.FS, a.cfg.FramePeriod, a.cfg.Refine)
	}
	if err != nil {
		return host.Result{}, fmt.Errorf("%s: %w", a.cfg.Estimator, err)
	}

	envelope, err := w.CheapTrick(audio.X, pitch.F0, pitch.TimeAxis, audio.FS)
	if err != nil {
		return host.Result{}, fmt.Errorf("cheaptrick: %w", err)
	}
	ap, err := w.D4C(audio.X, pitch.F0, pitch.TimeAxis, audio.FS, envelope.FFTSize)
	if err != nil {
		return host.Result{}, fmt.Errorf("d4c: %w", err)
	}

	voiced := 0
	for _, f := range pitch.F0 {
		if f > 0 {
			voiced++
		}
	}
	a.logger.Info("analysis complete", logging.Fields{
		"estimator": a.cfg.Estimator,
		"frames":    len(pitch.F0),
		"voiced":    voiced,
		"fft_size":  envelope.FFTSize,
	})
	return host.Result{DioResult: pitch, CheapTrickResult: envelope, D4CResult: ap}, nil
}
