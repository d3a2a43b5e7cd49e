package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-world/channel"
)

// analysisReport is the JSON document written by analyze. Grids are packed.
type analysisReport struct {
	SampleRate   int            `json:"sample_rate"`
	BitDepth     int            `json:"bit_depth"`
	Estimator    string         `json:"estimator"`
	FramePeriod  float64        `json:"frame_period"`
	FFTSize      int            `json:"fft_size"`
	TimeAxis     []float64      `json:"time_axis"`
	F0           []float64      `json:"f0"`
	Spectrogram  channel.Packed `json:"spectrogram"`
	Aperiodicity channel.Packed `json:"aperiodicity"`
}

func analyzeCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "analyze [input.wav]",
		Short: "Extract f0, spectral envelope and aperiodicity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := a.newWorld()
			audio, err := a.readAudio(cmd.Context(), w, args[0])
			if err != nil {
				return err
			}
			res, err := a.analyse(w, audio)
			if err != nil {
				return err
			}

			report := analysisReport{
				SampleRate:   audio.FS,
				BitDepth:     audio.NBit,
				Estimator:    a.cfg.Estimator,
				FramePeriod:  a.cfg.FramePeriod,
				FFTSize:      res.FFTSize,
				TimeAxis:     res.TimeAxis,
				F0:           res.F0,
				Spectrogram:  res.Spectrogram.Pack(),
				Aperiodicity: res.Aperiodicity.Pack(),
			}

			if output == "" {
				return writeReport(cmd.OutOrStdout(), report)
			}
			f, err := a.fs.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := writeReport(f, report); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the JSON report to this path instead of stdout")
	return cmd
}

func writeReport(w io.Writer, report analysisReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// readReport decodes a report written by analyze.
func readReport(fs afero.Fs, path string) (*analysisReport, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	var report analysisReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", path, err)
	}
	return &report, nil
}
