// Package memory owns every numeric allocation the bridge hands across the
// host boundary.
//
// The host cannot see bridge allocations, so each one is entered in a Registry
// under an opaque Handle and announced through a Notifier before the
// constructor has any other observable effect. Storage is released exactly
// once, either by the stage that created it or later by the host through its
// handle. Handles are never reused, so a second release of the same handle is
// reported as ErrUnknownHandle instead of touching freed storage.
//
// A Registry is single-threaded: the bridge runs one stage at a time.
package memory

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Handle is the opaque identity of a registered allocation. Zero is never issued.
type Handle uint32

// InvalidHandle is the zero handle.
const InvalidHandle Handle = 0

// Kind distinguishes 1-D buffers from 2-D grids.
type Kind string

const (
	KindBuffer Kind = "buffer"
	KindGrid   Kind = "grid"
)

// MaxElements bounds the float64 count of a single allocation.
const MaxElements = math.MaxInt32

var (
	// ErrInvalidLength is returned for negative sizes or out-of-range counts.
	ErrInvalidLength = errors.New("memory: invalid length")
	// ErrReleased is returned when an object is used after its storage was freed.
	ErrReleased = errors.New("memory: object already released")
	// ErrUnknownHandle is returned for handles that are not registered.
	ErrUnknownHandle = errors.New("memory: unknown handle")
)

// Object is a registered allocation.
type Object interface {
	Handle() Handle
	Kind() Kind
	// Elements is the number of float64 values owned by the object.
	Elements() int
	free()
}

// Notifier receives the registrar protocol: ConstructNotify runs before a new
// object is usable, DestructNotify after its storage is gone.
type Notifier interface {
	ConstructNotify(h Handle)
	DestructNotify(h Handle)
}

// NotifyFuncs adapts plain functions to Notifier. Nil fields are skipped.
type NotifyFuncs struct {
	Construct func(h Handle)
	Destruct  func(h Handle)
}

func (n NotifyFuncs) ConstructNotify(h Handle) {
	if n.Construct != nil {
		n.Construct(h)
	}
}

func (n NotifyFuncs) DestructNotify(h Handle) {
	if n.Destruct != nil {
		n.Destruct(h)
	}
}

// Stats is a snapshot of registry accounting.
type Stats struct {
	Allocated    int // objects ever registered
	Released     int // objects released
	Live         int // objects currently registered
	LiveElements int // float64 values currently owned
}

// Registry maps handles to owned objects.
type Registry struct {
	next     Handle
	objects  map[Handle]Object
	notifier Notifier
	metrics  *Metrics
	stats    Stats
}

// Option configures a Registry.
type Option func(*Registry)

// WithNotifier installs the registrar notification sink.
func WithNotifier(n Notifier) Option {
	return func(r *Registry) {
		r.notifier = n
	}
}

// WithMetrics records allocations and releases in m.
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{objects: make(map[Handle]Object)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// reserve issues the next handle and announces it.
func (r *Registry) reserve() Handle {
	r.next++
	h := r.next
	if r.notifier != nil {
		r.notifier.ConstructNotify(h)
	}
	return h
}

func (r *Registry) track(obj Object) {
	r.objects[obj.Handle()] = obj
	r.stats.Allocated++
	r.stats.Live++
	r.stats.LiveElements += obj.Elements()
	r.metrics.allocated(obj)
}

// Lookup returns the object registered under h.
func (r *Registry) Lookup(h Handle) (Object, bool) {
	obj, ok := r.objects[h]
	return obj, ok
}

// Buffer returns the buffer registered under h.
func (r *Registry) Buffer(h Handle) (*Buffer, bool) {
	b, ok := r.objects[h].(*Buffer)
	return b, ok
}

// Grid returns the grid registered under h.
func (r *Registry) Grid(h Handle) (*Grid, bool) {
	g, ok := r.objects[h].(*Grid)
	return g, ok
}

// Release deregisters h and frees its storage.
func (r *Registry) Release(h Handle) error {
	obj, ok := r.objects[h]
	if !ok {
		return fmt.Errorf("release %d: %w", h, ErrUnknownHandle)
	}
	delete(r.objects, h)
	elements := obj.Elements()
	obj.free()

	r.stats.Released++
	r.stats.Live--
	r.stats.LiveElements -= elements
	r.metrics.released(obj.Kind(), elements)

	if r.notifier != nil {
		r.notifier.DestructNotify(h)
	}
	return nil
}

// Live returns the registered handles in allocation order.
func (r *Registry) Live() []Handle {
	handles := make([]Handle, 0, len(r.objects))
	for h := range r.objects {
		handles = append(handles, h)
	}
	slices.Sort(handles)
	return handles
}

// Stats returns the current accounting snapshot.
func (r *Registry) Stats() Stats {
	return r.stats
}
