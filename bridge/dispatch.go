package bridge

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownExport is returned by Call for names outside the table.
var ErrUnknownExport = errors.New("bridge: unknown export")

// ErrArity is returned by Call when the argument count does not match.
var ErrArity = errors.New("bridge: wrong number of arguments")

type export struct {
	arity int
	call  func(e *Exports, a []float64) int
}

// exports maps host-visible names onto entry points. Integer parameters are
// truncated toward zero, as a host number converted to a C int would be.
var exports = map[string]export{
	"_init": {3, func(e *Exports, a []float64) int {
		return e.InitWorld(int(a[0]), a[1], a[2])
	}},
	"_dio": {4, func(e *Exports, a []float64) int {
		return e.Dio(int(a[0]), int(a[1]), a[2], int(a[3]))
	}},
	"_harvest": {4, func(e *Exports, a []float64) int {
		return e.Harvest(int(a[0]), int(a[1]), a[2], int(a[3]))
	}},
	"_stonemask": {3, func(e *Exports, a []float64) int {
		return e.StoneMask(int(a[0]), int(a[1]), int(a[2]))
	}},
	"_cheaptrick": {3, func(e *Exports, a []float64) int {
		return e.CheapTrick(int(a[0]), int(a[1]), int(a[2]))
	}},
	"_d4c": {4, func(e *Exports, a []float64) int {
		return e.D4C(int(a[0]), int(a[1]), int(a[2]), int(a[3]))
	}},
	"_synthesis": {4, func(e *Exports, a []float64) int {
		return e.Synthesis(int(a[0]), int(a[1]), int(a[2]), a[3])
	}},
	"_wavreadlength": {0, func(e *Exports, _ []float64) int {
		return e.WavReadLength()
	}},
	"_wavread": {1, func(e *Exports, a []float64) int {
		return e.WavRead(int(a[0]))
	}},
	"_wavwrite": {2, func(e *Exports, a []float64) int {
		return e.WavWrite(int(a[0]), int(a[1]))
	}},
	"_getinfo": {0, func(e *Exports, _ []float64) int {
		return e.GetInfo()
	}},
	"createFloat64Array": {1, func(e *Exports, a []float64) int {
		return e.CreateFloat64Array(int(a[0]))
	}},
	"createFloat64Array2D": {2, func(e *Exports, a []float64) int {
		return e.CreateFloat64Array2D(int(a[0]), int(a[1]))
	}},
	"destruct": {1, func(e *Exports, a []float64) int {
		return e.Destruct(int(a[0]))
	}},
}

// Names returns the export names in sorted order.
func Names() []string {
	names := make([]string, 0, len(exports))
	for name := range exports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes an entry point by its host-visible name.
func (e *Exports) Call(name string, args ...float64) (int, error) {
	ex, ok := exports[name]
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownExport)
	}
	if len(args) != ex.arity {
		return 0, fmt.Errorf("%q takes %d arguments, got %d: %w", name, ex.arity, len(args), ErrArity)
	}
	return ex.call(e, args), nil
}
