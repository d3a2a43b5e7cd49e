package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-world/channel"
	"github.com/RyanBlaney/sonido-world/host"
	"github.com/RyanBlaney/sonido-world/logging"
)

func resynthCommand(a *app) *cobra.Command {
	var fromReport string

	cmd := &cobra.Command{
		Use:   "resynth [input.wav] [output.wav]",
		Short: "Analyse a WAV file and resynthesize it",
		Long: `Analyse input.wav and write the resynthesized waveform to output.wav.
With --from, the analysis is taken from a report written by analyze and
input.wav is not read; pass only output.wav.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := a.newWorld()

			var (
				res host.Result
				fs  int
				err error
			)
			out := args[len(args)-1]
			if fromReport != "" {
				res, fs, err = a.resultFromReport(fromReport)
			} else {
				if len(args) != 2 {
					return fmt.Errorf("resynth needs an input and an output path")
				}
				var audio host.Audio
				audio, err = a.readAudio(cmd.Context(), w, args[0])
				if err == nil {
					fs = audio.FS
					res, err = a.analyse(w, audio)
				}
			}
			if err != nil {
				return err
			}

			y, err := w.Synthesis(res.F0, res.Spectrogram, res.Aperiodicity, fs, a.cfg.FramePeriod)
			if err != nil {
				return fmt.Errorf("synthesis: %w", err)
			}
			data, err := w.WavWrite(y, fs)
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", out, err)
			}
			if err := afero.WriteFile(a.fs, out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			a.logger.Info("resynthesis written", logging.Fields{"path": out, "samples": len(y)})
			return nil
		},
	}

	cmd.Flags().StringVar(&fromReport, "from", "", "Resynthesize from an analyze report instead of a WAV file")
	return cmd
}

func (a *app) resultFromReport(path string) (host.Result, int, error) {
	report, err := readReport(a.fs, path)
	if err != nil {
		return host.Result{}, 0, err
	}
	sp, err := channel.Unpack(report.Spectrogram)
	if err != nil {
		return host.Result{}, 0, fmt.Errorf("spectrogram: %w", err)
	}
	ap, err := channel.Unpack(report.Aperiodicity)
	if err != nil {
		return host.Result{}, 0, fmt.Errorf("aperiodicity: %w", err)
	}
	if report.FramePeriod > 0 {
		a.cfg.FramePeriod = report.FramePeriod
	}
	return host.Result{
		DioResult:        host.DioResult{F0: report.F0, TimeAxis: report.TimeAxis},
		CheapTrickResult: host.CheapTrickResult{FFTSize: report.FFTSize, Spectrogram: sp},
		D4CResult:        host.D4CResult{Aperiodicity: ap},
	}, report.SampleRate, nil
}
