package pipeline

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-world/channel"
	"github.com/RyanBlaney/sonido-world/logging"
	"github.com/RyanBlaney/sonido-world/vfs"
	"github.com/RyanBlaney/sonido-world/wavio"
)

// Library identity reported by Info.
const (
	Name    = "sonido-world"
	Version = "0.3.0"
)

// Estimators lists the pitch estimators a Session can run.
var Estimators = []string{"dio", "harvest"}

// ioFailure reports err on the stdout role, the only place a host sees
// codec messages, and wraps it in ErrIO.
func (s *Session) ioFailure(stage string, err error) error {
	if perr := s.files.Printf(vfs.RoleStdout, "%s: %v\n", stage, err); perr != nil {
		s.logger.Warn("stdout unavailable", logging.Fields{"error": perr.Error()})
	}
	s.logger.Error(err, "audio file failed", logging.Fields{"stage": stage})
	return fmt.Errorf("%s: %w: %w", stage, ErrIO, err)
}

// WavReadLength returns the number of samples per channel of the audio file.
func (s *Session) WavReadLength() (int, error) {
	f, err := s.files.Open(vfs.RoleAudio)
	if err != nil {
		return 0, s.ioFailure("wavreadlength", err)
	}
	defer f.Close()

	info, err := wavio.Length(f)
	if err != nil {
		return 0, s.ioFailure("wavreadlength", err)
	}
	return info.Frames, nil
}

// WavRead decodes xLength samples of the audio file to channel 0 and sends
// [fs, nbit] to channel 1 as a two-value prefix write. It returns fs. A file
// shorter than xLength is zero padded.
func (s *Session) WavRead(xLength int) (int, error) {
	if err := s.validate("wavread", intParam("x_length", xLength)); err != nil {
		return 0, err
	}
	f, err := s.files.Open(vfs.RoleAudio)
	if err != nil {
		return 0, s.ioFailure("wavread", err)
	}
	defer f.Close()

	samples, info, err := wavio.Decode(f)
	if err != nil {
		return 0, s.ioFailure("wavread", err)
	}

	x, err := s.registry.NewBuffer(max(xLength, 2))
	if err != nil {
		return 0, s.fail("wavread", err)
	}
	defer s.release(x)

	copy(x.Data(), samples[:min(len(samples), xLength)])
	if err := x.WriteN(s.host, channel.Waveform, xLength); err != nil {
		return 0, s.fail("wavread", err)
	}

	// the waveform has been sent, so its leading slots can carry the header
	x.Data()[0] = float64(info.SampleRate)
	x.Data()[1] = float64(info.BitDepth)
	if err := x.WriteN(s.host, channel.TimeAxis, 2); err != nil {
		return 0, s.fail("wavread", err)
	}
	return info.SampleRate, nil
}

// WavWrite encodes xLength samples from channel 0 into the audio file.
func (s *Session) WavWrite(xLength, fs int) error {
	if err := s.validate("wavwrite", intParam("x_length", xLength), intParam("fs", fs)); err != nil {
		return err
	}
	x, err := s.registry.BufferFrom(s.host, channel.Waveform, xLength)
	if err != nil {
		return s.fail("wavwrite", err)
	}
	defer s.release(x)

	f, err := s.files.Create(vfs.RoleAudio)
	if err != nil {
		return s.ioFailure("wavwrite", err)
	}
	if err := wavio.Encode(f, x.Data(), fs, s.bitDepth); err != nil {
		f.Close()
		return s.ioFailure("wavwrite", err)
	}
	if err := f.Close(); err != nil {
		return s.ioFailure("wavwrite", err)
	}
	return nil
}

// Info writes the library name, version and estimators to the stdout role.
func (s *Session) Info() error {
	msg := fmt.Sprintf("%s %s\nestimators: %s\nfft_size: %d\n",
		Name, Version, strings.Join(Estimators, ", "), s.opts.CheapTrick.FFTSize)
	if err := s.files.Append(vfs.RoleStdout, []byte(msg)); err != nil {
		return s.ioFailure("info", err)
	}
	return nil
}
