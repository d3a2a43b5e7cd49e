package pipeline

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-world/algorithms/vocoder"
	"github.com/RyanBlaney/sonido-world/channel"
	"github.com/RyanBlaney/sonido-world/logging"
	"github.com/RyanBlaney/sonido-world/memory"
)

// Init resets the four option records for sample rate fs and returns the
// CheapTrick FFT size. Positive f0Floor and f0Ceil override the pitch range.
func (s *Session) Init(fs int, f0Floor, f0Ceil float64) (int, error) {
	if err := s.validate("init", intParam("fs", fs)); err != nil {
		return 0, err
	}
	s.opts = DefaultOptions(fs).withPitchRange(f0Floor, f0Ceil)
	s.logger.Debug("options reset", logging.Fields{
		"fs":       fs,
		"f0_floor": s.opts.Dio.F0Floor,
		"f0_ceil":  s.opts.Dio.F0Ceil,
		"fft_size": s.opts.CheapTrick.FFTSize,
	})
	return s.opts.CheapTrick.FFTSize, nil
}

// Dio estimates f0 from the waveform on channel 0 and writes the time axis
// to channel 1 and the (optionally refined) track to channel 2. It returns
// the frame count.
func (s *Session) Dio(xLength, fs int, framePeriod float64, refine bool) (int, error) {
	if err := s.validate("dio", intParam("x_length", xLength), intParam("fs", fs), realParam("frame_period", framePeriod)); err != nil {
		return 0, err
	}
	s.opts.Dio.FramePeriod = framePeriod
	opt := s.opts.Dio
	n := vocoder.SamplesForDio(fs, xLength, opt.FramePeriod)
	return s.estimate("dio", xLength, fs, n, refine, func(x, timeAxis, f0 []float64) {
		s.lib.Dio(x, fs, opt, timeAxis, f0)
	})
}

// Harvest is Dio with the Harvest estimator. Its frame count follows its own
// frame period.
func (s *Session) Harvest(xLength, fs int, framePeriod float64, refine bool) (int, error) {
	if err := s.validate("harvest", intParam("x_length", xLength), intParam("fs", fs), realParam("frame_period", framePeriod)); err != nil {
		return 0, err
	}
	s.opts.Harvest.FramePeriod = framePeriod
	opt := s.opts.Harvest
	n := vocoder.SamplesForHarvest(fs, xLength, opt.FramePeriod)
	return s.estimate("harvest", xLength, fs, n, refine, func(x, timeAxis, f0 []float64) {
		s.lib.Harvest(x, fs, opt, timeAxis, f0)
	})
}

func (s *Session) estimate(stage string, xLength, fs, n int, refine bool, run func(x, timeAxis, f0 []float64)) (int, error) {
	x, err := s.registry.BufferFrom(s.host, channel.Waveform, xLength)
	if err != nil {
		return 0, s.fail(stage, err)
	}
	defer s.release(x)

	timeAxis, err := s.registry.NewBuffer(n)
	if err != nil {
		return 0, s.fail(stage, err)
	}
	defer s.release(timeAxis)
	f0, err := s.registry.NewBuffer(n)
	if err != nil {
		return 0, s.fail(stage, err)
	}
	defer s.release(f0)

	run(x.Data(), timeAxis.Data(), f0.Data())
	if err := timeAxis.Write(s.host, channel.TimeAxis); err != nil {
		return 0, s.fail(stage, err)
	}

	out := f0
	if refine {
		refined, err := s.registry.NewBuffer(n)
		if err != nil {
			return 0, s.fail(stage, err)
		}
		defer s.release(refined)
		s.lib.StoneMask(x.Data(), fs, timeAxis.Data(), f0.Data(), refined.Data())
		out = refined
	}
	if err := out.Write(s.host, channel.F0); err != nil {
		return 0, s.fail(stage, err)
	}
	return n, nil
}

// analysisInputs reads the waveform, time axis and f0 track shared by the
// refinement, envelope and aperiodicity stages. The caller releases them.
func (s *Session) analysisInputs(xLength, f0Length int) (x, timeAxis, f0 *memory.Buffer, err error) {
	x, err = s.registry.BufferFrom(s.host, channel.Waveform, xLength)
	if err != nil {
		return nil, nil, nil, err
	}
	timeAxis, err = s.registry.BufferFrom(s.host, channel.TimeAxis, f0Length)
	if err != nil {
		s.release(x)
		return nil, nil, nil, err
	}
	f0, err = s.registry.BufferFrom(s.host, channel.F0, f0Length)
	if err != nil {
		s.release(x, timeAxis)
		return nil, nil, nil, err
	}
	return x, timeAxis, f0, nil
}

// StoneMask refines the track on channel 2 in isolation and overwrites it.
func (s *Session) StoneMask(xLength, fs, f0Length int) error {
	if err := s.validate("stonemask", intParam("x_length", xLength), intParam("fs", fs), intParam("f0_length", f0Length)); err != nil {
		return err
	}
	x, timeAxis, f0, err := s.analysisInputs(xLength, f0Length)
	if err != nil {
		return s.fail("stonemask", err)
	}
	defer s.release(x, timeAxis, f0)

	refined, err := s.registry.NewBuffer(f0Length)
	if err != nil {
		return s.fail("stonemask", err)
	}
	defer s.release(refined)

	s.lib.StoneMask(x.Data(), fs, timeAxis.Data(), f0.Data(), refined.Data())
	if err := refined.Write(s.host, channel.F0); err != nil {
		return s.fail("stonemask", err)
	}
	return nil
}

// CheapTrick writes an f0Length x fft_size/2+1 spectral envelope to
// channel 3 and returns fft_size. The size is recomputed from fs and the
// current envelope floor on every call.
func (s *Session) CheapTrick(xLength, fs, f0Length int) (int, error) {
	if err := s.validate("cheaptrick", intParam("x_length", xLength), intParam("fs", fs), intParam("f0_length", f0Length)); err != nil {
		return 0, err
	}
	x, timeAxis, f0, err := s.analysisInputs(xLength, f0Length)
	if err != nil {
		return 0, s.fail("cheaptrick", err)
	}
	defer s.release(x, timeAxis, f0)

	s.opts.CheapTrick.FFTSize = vocoder.FFTSizeForCheapTrick(fs, s.opts.CheapTrick.F0Floor)
	opt := s.opts.CheapTrick
	spectrogram, err := s.registry.NewGrid(f0Length, vocoder.EnvelopeBins(opt.FFTSize))
	if err != nil {
		return 0, s.fail("cheaptrick", err)
	}
	defer s.release(spectrogram)

	s.lib.CheapTrick(x.Data(), fs, timeAxis.Data(), f0.Data(), opt, spectrogram.Rows())
	if err := spectrogram.Write(s.host, channel.Spectrogram); err != nil {
		return 0, s.fail("cheaptrick", err)
	}
	return opt.FFTSize, nil
}

// D4C writes an f0Length x fft_size/2+1 aperiodicity grid to channel 4. A
// non-positive fftSize is recomputed from fs and the current envelope floor.
func (s *Session) D4C(xLength, fs, f0Length, fftSize int) (int, error) {
	if err := s.validate("d4c", intParam("x_length", xLength), intParam("fs", fs), intParam("f0_length", f0Length)); err != nil {
		return 0, err
	}
	if fftSize <= 0 {
		fftSize = vocoder.FFTSizeForCheapTrick(fs, s.opts.CheapTrick.F0Floor)
	}
	x, timeAxis, f0, err := s.analysisInputs(xLength, f0Length)
	if err != nil {
		return 0, s.fail("d4c", err)
	}
	defer s.release(x, timeAxis, f0)

	aperiodicity, err := s.registry.NewGrid(f0Length, vocoder.EnvelopeBins(fftSize))
	if err != nil {
		return 0, s.fail("d4c", err)
	}
	defer s.release(aperiodicity)

	s.lib.D4C(x.Data(), fs, timeAxis.Data(), f0.Data(), fftSize, s.opts.D4C, aperiodicity.Rows())
	if err := aperiodicity.Write(s.host, channel.Aperiodicity); err != nil {
		return 0, s.fail("d4c", err)
	}
	return fftSize, nil
}

// Synthesis reads f0, spectrogram and aperiodicity from channels 2, 3 and 4
// and writes the resynthesized waveform to channel 0. It returns the output
// length, floor((f0Length-1)*framePeriod/1000*fs)+1.
func (s *Session) Synthesis(f0Length, fftSize, fs int, framePeriod float64) (int, error) {
	if err := s.validate("synthesis", intParam("f0_length", f0Length), intParam("fft_size", fftSize), intParam("fs", fs), realParam("frame_period", framePeriod)); err != nil {
		return 0, err
	}
	yLength := vocoder.SynthesisLength(f0Length, framePeriod, fs)
	if yLength <= 0 || yLength > memory.MaxElements {
		s.logger.Debug("stage rejected", logging.Fields{"stage": "synthesis", "param": "frame_period", "value": framePeriod})
		return 0, fmt.Errorf("synthesis: output of %d frames at %v ms is too long: %w", f0Length, framePeriod, ErrInvalidArgument)
	}
	bins := vocoder.EnvelopeBins(fftSize)

	f0, err := s.registry.BufferFrom(s.host, channel.F0, f0Length)
	if err != nil {
		return 0, s.fail("synthesis", err)
	}
	defer s.release(f0)
	spectrogram, err := s.registry.GridFrom(s.host, channel.Spectrogram, f0Length, bins)
	if err != nil {
		return 0, s.fail("synthesis", err)
	}
	defer s.release(spectrogram)
	aperiodicity, err := s.registry.GridFrom(s.host, channel.Aperiodicity, f0Length, bins)
	if err != nil {
		return 0, s.fail("synthesis", err)
	}
	defer s.release(aperiodicity)

	y, err := s.registry.NewBuffer(yLength)
	if err != nil {
		return 0, s.fail("synthesis", err)
	}
	defer s.release(y)

	s.lib.Synthesis(f0.Data(), spectrogram.Rows(), aperiodicity.Rows(), fftSize, framePeriod, fs, y.Data())
	if err := y.Write(s.host, channel.Waveform); err != nil {
		return 0, s.fail("synthesis", err)
	}
	return yLength, nil
}

// AllocateBuffer registers a zeroed buffer that outlives the call. The host
// must release it through its handle.
func (s *Session) AllocateBuffer(length int) (memory.Handle, error) {
	b, err := s.registry.NewBuffer(length)
	if err != nil {
		s.logger.Debug("allocation rejected", logging.Fields{"length": length})
		return memory.InvalidHandle, errors.Join(ErrInvalidArgument, err)
	}
	return b.Handle(), nil
}

// AllocateGrid registers a zeroed width x height grid that outlives the call.
func (s *Session) AllocateGrid(width, height int) (memory.Handle, error) {
	g, err := s.registry.NewGrid(width, height)
	if err != nil {
		s.logger.Debug("allocation rejected", logging.Fields{"width": width, "height": height})
		return memory.InvalidHandle, errors.Join(ErrInvalidArgument, err)
	}
	return g.Handle(), nil
}

// Release frees the allocation registered under h.
func (s *Session) Release(h memory.Handle) error {
	if err := s.registry.Release(h); err != nil {
		s.logger.Warn("release rejected", logging.Fields{"handle": uint32(h)})
		return err
	}
	return nil
}
