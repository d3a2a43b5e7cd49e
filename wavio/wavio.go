// Package wavio decodes and encodes the WAV files the bridge exchanges with
// its host. Samples cross the bridge as float64 in [-1, 1); only the first
// channel of a multi-channel file is kept.
package wavio

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	// ErrInvalidFile is returned when the input is not a RIFF/WAVE file.
	ErrInvalidFile = errors.New("wavio: invalid WAV file")
	// ErrUnsupportedFormat is returned for encodings the codec cannot handle.
	ErrUnsupportedFormat = errors.New("wavio: unsupported format")
)

const pcmFormat = 1

// Info describes a decoded stream.
type Info struct {
	SampleRate int
	BitDepth   int
	Channels   int
	Frames     int // samples per channel
}

func readInfo(r io.ReadSeeker) (*wav.Decoder, Info, error) {
	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, Info{}, ErrInvalidFile
	}
	if decoder.WavAudioFormat != pcmFormat {
		return nil, Info{}, fmt.Errorf("audio format %d: %w", decoder.WavAudioFormat, ErrUnsupportedFormat)
	}
	if _, err := divisor(int(decoder.BitDepth)); err != nil {
		return nil, Info{}, err
	}
	if decoder.NumChans == 0 {
		return nil, Info{}, fmt.Errorf("no channels: %w", ErrUnsupportedFormat)
	}
	return decoder, Info{
		SampleRate: int(decoder.SampleRate),
		BitDepth:   int(decoder.BitDepth),
		Channels:   int(decoder.NumChans),
	}, nil
}

// Length returns the number of samples per channel without decoding them.
func Length(r io.ReadSeeker) (Info, error) {
	decoder, info, err := readInfo(r)
	if err != nil {
		return Info{}, err
	}
	if err := decoder.FwdToPCM(); err != nil {
		return Info{}, fmt.Errorf("seek to PCM data: %w", err)
	}
	bytesPerFrame := int64(info.BitDepth/8) * int64(info.Channels)
	info.Frames = int(decoder.PCMLen() / bytesPerFrame)
	return info, nil
}

// Decode reads the first channel of a PCM WAV stream.
func Decode(r io.ReadSeeker) ([]float64, Info, error) {
	decoder, info, err := readInfo(r)
	if err != nil {
		return nil, Info{}, err
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, Info{}, fmt.Errorf("read PCM data: %w", err)
	}

	div, _ := divisor(info.BitDepth)
	info.Frames = len(buf.Data) / info.Channels
	samples := make([]float64, info.Frames)
	for i := range samples {
		samples[i] = float64(buf.Data[i*info.Channels]) / div
	}
	return samples, info, nil
}

// Encode writes x as a mono PCM WAV stream of the given bit depth.
// Samples are clipped to the representable range.
func Encode(w io.WriteSeeker, x []float64, sampleRate, bitDepth int) error {
	div, err := divisor(bitDepth)
	if err != nil {
		return err
	}
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate %d: %w", sampleRate, ErrUnsupportedFormat)
	}

	peak := div - 1
	data := make([]int, len(x))
	for i, v := range x {
		scaled := math.Trunc(v * peak)
		data[i] = int(math.Max(-div, math.Min(peak, scaled)))
	}

	enc := wav.NewEncoder(w, sampleRate, bitDepth, 1, pcmFormat)
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write to WAV encoder: %w", err)
	}
	return enc.Close()
}

// divisor is the full-scale value of a signed sample of bitDepth bits.
func divisor(bitDepth int) (float64, error) {
	switch bitDepth {
	case 16, 24, 32:
		return math.Exp2(float64(bitDepth - 1)), nil
	default:
		return 0, fmt.Errorf("bit depth %d: %w", bitDepth, ErrUnsupportedFormat)
	}
}
