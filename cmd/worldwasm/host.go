//go:build js && wasm

package main

import (
	"errors"
	"fmt"
	"syscall/js"

	"github.com/RyanBlaney/sonido-world/channel"
	"github.com/RyanBlaney/sonido-world/memory"
)

var errDetached = errors.New("worldwasm: no host attached")

// jsHost forwards channel transfers to the attached JavaScript object. Values
// are staged in a channel.Context so reads follow the same shape rules as the
// in-process host.
type jsHost struct {
	obj     js.Value
	scratch *channel.Context
}

func newJSHost() *jsHost {
	return &jsHost{obj: js.Undefined(), scratch: channel.NewContext()}
}

func (h *jsHost) attach(obj js.Value) {
	h.obj = obj
}

func (h *jsHost) attached() bool {
	return h.obj.Truthy()
}

// fetch loads the host value of ch into the scratch slot.
func (h *jsHost) fetch(ch channel.ID, twoD bool) error {
	if !h.attached() {
		return errDetached
	}
	h.scratch.Reset()
	v := h.obj.Call("readFloat64Array", int(ch))
	if v.IsNull() || v.IsUndefined() {
		return channel.ErrEmptySlot
	}
	m, err := channel.Unpack(packedFromJS(v))
	if err != nil {
		return err
	}
	if twoD {
		h.scratch.SetMatrix(ch, m)
	} else {
		h.scratch.Set(ch, m.Data)
	}
	return nil
}

func (h *jsHost) send(ch channel.ID, m *channel.Matrix) error {
	if !h.attached() {
		return errDetached
	}
	h.obj.Call("writeFloat64Array", int(ch), packedToJS(m.Pack()))
	return nil
}

func (h *jsHost) ReadFloat64Array(ch channel.ID, dst []float64) error {
	if err := h.fetch(ch, false); err != nil {
		return err
	}
	return h.scratch.ReadFloat64Array(ch, dst)
}

func (h *jsHost) WriteFloat64Array(ch channel.ID, src []float64) error {
	return h.send(ch, &channel.Matrix{Rows: 1, Cols: len(src), Data: src})
}

func (h *jsHost) ReadFloat64Array2D(ch channel.ID, dst [][]float64) error {
	if err := h.fetch(ch, true); err != nil {
		return err
	}
	return h.scratch.ReadFloat64Array2D(ch, dst)
}

func (h *jsHost) WriteFloat64Array2D(ch channel.ID, src [][]float64) error {
	m, err := channel.MatrixFromRows(src)
	if err != nil {
		return err
	}
	return h.send(ch, m)
}

func (h *jsHost) constructNotify(handle memory.Handle) {
	if h.attached() {
		h.obj.Call("constructNotify", int(handle))
	}
}

func (h *jsHost) destructNotify(handle memory.Handle) {
	if h.attached() {
		h.obj.Call("destructNotify", int(handle))
	}
}

func packedFromJS(v js.Value) channel.Packed {
	shape := v.Get("shape")
	p := channel.Packed{DType: v.Get("dtype").String(), Buffer: bytesFromJS(v.Get("buffer"))}
	for i := range shape.Length() {
		p.Shape = append(p.Shape, shape.Index(i).Int())
	}
	return p
}

func packedToJS(p channel.Packed) js.Value {
	shape := js.Global().Get("Array").New()
	for _, n := range p.Shape {
		shape.Call("push", n)
	}
	obj := js.Global().Get("Object").New()
	obj.Set("shape", shape)
	obj.Set("dtype", p.DType)
	obj.Set("buffer", bytesToJS(p.Buffer))
	return obj
}

func bytesFromJS(v js.Value) []byte {
	buf := make([]byte, v.Get("byteLength").Int())
	if n := js.CopyBytesToGo(buf, v); n != len(buf) {
		panic(fmt.Sprintf("worldwasm: copied %d of %d bytes", n, len(buf)))
	}
	return buf
}

func bytesToJS(b []byte) js.Value {
	arr := js.Global().Get("Uint8Array").New(len(b))
	js.CopyBytesToJS(arr, b)
	return arr
}
