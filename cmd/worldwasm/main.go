//go:build js && wasm

// Command worldwasm exposes the bridge entry points to a JavaScript host as
// the global object worldBridge.
//
// The host calls attach(host) once with an object providing
//
//	readFloat64Array(ch)        -> packed value or null
//	writeFloat64Array(ch, p)
//	constructNotify(handle)
//	destructNotify(handle)
//
// where a packed value is {shape: [rows, cols], dtype: "float64", buffer: Uint8Array}.
// 1-D values use shape [1, n]. The audio file and stdout roles are reached
// through writeAudio, readAudio and readStdout.
package main

import (
	"syscall/js"

	"github.com/RyanBlaney/sonido-world/bridge"
	"github.com/RyanBlaney/sonido-world/logging"
	"github.com/RyanBlaney/sonido-world/memory"
	"github.com/RyanBlaney/sonido-world/pipeline"
	"github.com/RyanBlaney/sonido-world/vfs"
)

var funcs []js.Func

func main() {
	host := newJSHost()
	files := vfs.NewTable()
	registry := memory.NewRegistry(memory.WithNotifier(memory.NotifyFuncs{
		Construct: host.constructNotify,
		Destruct:  host.destructNotify,
	}))
	exports := bridge.NewWithHost(host,
		pipeline.WithRegistry(registry),
		pipeline.WithFiles(files),
		pipeline.WithLogger(&logging.NoOpLogger{}),
	)

	api := js.Global().Get("Object").New()
	api.Set("attach", export(func(args []js.Value) any {
		if len(args) < 1 {
			return jsError("attach needs a host object")
		}
		host.attach(args[0])
		return js.Null()
	}))

	for _, name := range bridge.Names() {
		api.Set(name, export(func(args []js.Value) any {
			nums := make([]float64, len(args))
			for i, a := range args {
				nums[i] = a.Float()
			}
			ret, err := exports.Call(name, nums...)
			if err != nil {
				return jsError(err.Error())
			}
			return ret
		}))
	}

	api.Set("writeAudio", export(func(args []js.Value) any {
		if len(args) < 1 {
			return jsError("writeAudio needs a Uint8Array")
		}
		if err := files.WriteFile(vfs.RoleAudio, bytesFromJS(args[0])); err != nil {
			return jsError(err.Error())
		}
		return js.Null()
	}))

	api.Set("readAudio", export(func(args []js.Value) any {
		data, err := files.ReadFile(vfs.RoleAudio)
		if err != nil {
			return jsError(err.Error())
		}
		return bytesToJS(data)
	}))

	api.Set("readStdout", export(func(args []js.Value) any {
		out, err := files.Drain(vfs.RoleStdout)
		if err != nil {
			return jsError(err.Error())
		}
		return string(out)
	}))

	js.Global().Set("worldBridge", api)
	select {}
}

func export(fn func([]js.Value) any) js.Func {
	f := js.FuncOf(func(_ js.Value, args []js.Value) any {
		return fn(args)
	})
	funcs = append(funcs, f)
	return f
}

func jsError(msg string) js.Value {
	return js.Global().Get("Error").New(msg)
}
