// Package pipeline orchestrates the vocoder stages across the host boundary.
//
// A Session replaces process-wide option records with an explicit context
// object. Each stage validates its integer and real parameters before any
// transfer or allocation, pulls its inputs from host channels into
// registered buffers, runs the Library and pushes its outputs back. Buffers
// that do not outlive the stage are released before it returns.
//
// A Session is not safe for concurrent use; stages must be invoked one at a
// time, in dependency order.
package pipeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-world/algorithms/vocoder"
	"github.com/RyanBlaney/sonido-world/channel"
	"github.com/RyanBlaney/sonido-world/logging"
	"github.com/RyanBlaney/sonido-world/memory"
	"github.com/RyanBlaney/sonido-world/vfs"
)

var (
	// ErrInvalidArgument is returned when a size or rate fails validation.
	ErrInvalidArgument = errors.New("pipeline: invalid argument")
	// ErrIO is returned when the audio file cannot be read or written.
	ErrIO = errors.New("pipeline: audio file i/o failed")
)

// DefaultSampleRate seeds the option records of a new Session.
const DefaultSampleRate = 48000

// Session holds the option records, allocation registry and collaborators
// of one bridge instance.
type Session struct {
	id       uuid.UUID
	host     channel.Host
	lib      Library
	registry *memory.Registry
	files    *vfs.Table
	logger   logging.Logger
	opts     Options
	bitDepth int
}

// Option configures a Session.
type Option func(*Session)

// WithLibrary replaces the reference vocoder.
func WithLibrary(lib Library) Option {
	return func(s *Session) {
		s.lib = lib
	}
}

// WithRegistry installs a registry, typically one carrying a Notifier or Metrics.
func WithRegistry(r *memory.Registry) Option {
	return func(s *Session) {
		s.registry = r
	}
}

// WithFiles installs the file collaborator used by the WAV and info stages.
func WithFiles(t *vfs.Table) Option {
	return func(s *Session) {
		s.files = t
	}
}

// WithLogger sets the base logger. Session fields are added to it.
func WithLogger(l logging.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithSampleRate seeds the option records for fs instead of DefaultSampleRate.
func WithSampleRate(fs int) Option {
	return func(s *Session) {
		if fs > 0 {
			s.opts = DefaultOptions(fs)
		}
	}
}

// WithBitDepth sets the sample width of files written by WavWrite.
func WithBitDepth(bits int) Option {
	return func(s *Session) {
		s.bitDepth = bits
	}
}

// NewSession creates a session bound to host.
func NewSession(host channel.Host, opts ...Option) *Session {
	s := &Session{
		id:       uuid.New(),
		host:     host,
		opts:     DefaultOptions(DefaultSampleRate),
		bitDepth: 16,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.lib == nil {
		s.lib = vocoder.NewAnalyzer()
	}
	if s.registry == nil {
		s.registry = memory.NewRegistry()
	}
	if s.files == nil {
		s.files = vfs.NewTable()
	}
	if s.logger == nil {
		s.logger = logging.GetGlobalLogger()
	}
	s.logger = s.logger.WithFields(logging.Fields{
		"component": "pipeline",
		"session":   s.id.String(),
	})
	return s
}

// ID returns the session identity used in log fields.
func (s *Session) ID() string { return s.id.String() }

// Options returns a copy of the current option records.
func (s *Session) Options() Options { return s.opts }

// Registry returns the allocation registry.
func (s *Session) Registry() *memory.Registry { return s.registry }

// Files returns the file collaborator.
func (s *Session) Files() *vfs.Table { return s.files }


type param struct {
	name  string
	value float64
}

func intParam(name string, v int) param { return param{name, float64(v)} }

func realParam(name string, v float64) param { return param{name, v} }

// validate rejects any non-positive or non-finite parameter.
func (s *Session) validate(stage string, params ...param) error {
	for _, p := range params {
		if !(p.value > 0) || math.IsInf(p.value, 0) {
			err := fmt.Errorf("%s: %s must be positive, got %v: %w", stage, p.name, p.value, ErrInvalidArgument)
			s.logger.Debug("stage rejected", logging.Fields{"stage": stage, "param": p.name, "value": p.value})
			return err
		}
	}
	return nil
}

// fail logs a stage failure after validation passed.
func (s *Session) fail(stage string, err error) error {
	s.logger.Error(err, "stage failed", logging.Fields{"stage": stage})
	return fmt.Errorf("%s: %w", stage, err)
}

type releaser interface {
	Release() error
}

// release frees stage-local allocations. A failure here means the object
// was already released through its handle, which the registry reports.
func (s *Session) release(objs ...releaser) {
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		if err := obj.Release(); err != nil {
			s.logger.Warn("release failed", logging.Fields{"error": err.Error()})
		}
	}
}
