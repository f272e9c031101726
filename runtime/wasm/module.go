package wasm

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/synnaxlabs/arc/ir"
	"github.com/synnaxlabs/arc/telem"
)

// dirtyBitsPerWord is the width of one dirty-bitmap word. The original
// runtime assumed a single u64 word (64 outputs max); per spec §4.4's Open
// Question this implementation generalizes to ceil(numOutputs/64) words.
const dirtyBitsPerWord = 64

// Function is the narrow interface wasm.Node depends on, abstracting a
// single compiled WASM export. Production code gets one from Module.Func;
// tests inject a fake to exercise Node's tick algorithm without a real
// guest binary.
type Function interface {
	// Call invokes the function once with inputs and returns one Result per
	// declared output, Changed reporting whether that output's dirty bit
	// was set.
	Call(ctx context.Context, inputs []telem.SampleValue) ([]Result, error)
}

// Result is one output slot's value after a Function.Call.
type Result struct {
	Value   telem.SampleValue
	Changed bool
}

// Module wraps a compiled, instantiated WASM binary: the wazero runtime, the
// guest instance, and the output-memory-base table the loader derived at
// compile time (spec §4.4, §7 module.output_memory_bases).
type Module struct {
	runtime  wazero.Runtime
	bindings *Bindings
	guest    api.Module
	bases    map[string]uint32
}

// OpenModule compiles wasmBytes, instantiates the "arc" host module built
// from bindings, and instantiates the guest module against it. bases is the
// compiled module's output_memory_bases table (spec §7).
func OpenModule(ctx context.Context, wasmBytes []byte, bases map[string]uint32, bindings *Bindings) (*Module, error) {
	if len(wasmBytes) == 0 {
		return nil, fmt.Errorf("arc.runtime.wasm_empty: wasm bytes are empty")
	}
	rt := wazero.NewRuntime(ctx)
	if _, err := bindings.Export(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("arc.runtime.wasm_init: host module: %w", err)
	}
	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("arc.runtime.wasm_init: compile: %w", err)
	}
	guest, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("arc.runtime.wasm_init: instantiate: %w", err)
	}
	bindings.setModule(guest)

	return &Module{runtime: rt, bindings: bindings, guest: guest, bases: bases}, nil
}

// Close releases the wazero runtime and all guest resources.
func (m *Module) Close(ctx context.Context) error { return m.runtime.Close(ctx) }

// HasFunc reports whether the guest exports a function with the given name.
func (m *Module) HasFunc(name string) bool { return m.guest.ExportedFunction(name) != nil }

// Func returns a Function wrapper for the named guest export, binding its
// declared output params and dirty-bitmap base (0 if the function has no
// memory-resident outputs, e.g. a single scalar return).
func (m *Module) Func(name string, outputs []ir.ParamType) (Function, error) {
	fn := m.guest.ExportedFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("arc.runtime.wasm_not_found: export %q", name)
	}
	base := m.bases[name]
	return &wasmFunction{module: m, fn: fn, outputs: outputs, base: base}, nil
}

type wasmFunction struct {
	module  *Module
	fn      api.Function
	outputs []ir.ParamType
	base    uint32
}

func (f *wasmFunction) Call(ctx context.Context, inputs []telem.SampleValue) ([]Result, error) {
	args := make([]uint64, len(inputs))
	for i, v := range inputs {
		args[i] = sampleToRaw(v)
	}
	rawResults, err := f.fn.Call(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("WASM execution failed: %w", err)
	}

	results := make([]Result, len(f.outputs))
	if f.base == 0 {
		if len(results) > 0 && len(rawResults) > 0 {
			results[0] = Result{Value: rawToSample(rawResults[0], f.outputs[0].Kind), Changed: true}
		}
		return results, nil
	}

	numWords := (len(f.outputs) + dirtyBitsPerWord - 1) / dirtyBitsPerWord
	mem := f.module.guest.Memory()
	dirtyBytes, ok := mem.Read(f.base, uint32(numWords*8))
	if !ok {
		return nil, fmt.Errorf("arc.runtime.wasm_oob: dirty bitmap at base %d out of bounds", f.base)
	}
	words := make([]uint64, numWords)
	for i := 0; i < numWords; i++ {
		words[i] = uint64(dirtyBytes[i*8]) | uint64(dirtyBytes[i*8+1])<<8 | uint64(dirtyBytes[i*8+2])<<16 |
			uint64(dirtyBytes[i*8+3])<<24 | uint64(dirtyBytes[i*8+4])<<32 | uint64(dirtyBytes[i*8+5])<<40 |
			uint64(dirtyBytes[i*8+6])<<48 | uint64(dirtyBytes[i*8+7])<<56
	}

	offset := f.base + uint32(numWords*8)
	for i, out := range f.outputs {
		word, bit := i/dirtyBitsPerWord, uint(i%dirtyBitsPerWord)
		density := typeDensity(out.Kind)
		if word >= len(words) || words[word]&(1<<bit) == 0 {
			offset += density
			continue
		}
		raw, ok := mem.Read(offset, density)
		if !ok {
			offset += density
			continue
		}
		results[i] = Result{Value: bitsToSample(raw, out.Kind), Changed: true}
		offset += density
	}
	return results, nil
}

// typeDensity returns the byte width of kind's memory-resident slot.
func typeDensity(kind telem.TypeKind) uint32 {
	switch kind {
	case telem.TypeUint8, telem.TypeInt8:
		return 1
	case telem.TypeUint16, telem.TypeInt16:
		return 2
	case telem.TypeUint32, telem.TypeInt32, telem.TypeFloat32:
		return 4
	default:
		return 8
	}
}

func sampleToRaw(v telem.SampleValue) uint64 {
	switch v.Kind {
	case telem.TypeFloat32:
		return uint64(api.EncodeF32(float32(v.AsFloat64())))
	case telem.TypeFloat64:
		return api.EncodeF64(v.AsFloat64())
	default:
		return v.AsUint64()
	}
}

func rawToSample(raw uint64, kind telem.TypeKind) telem.SampleValue {
	switch kind {
	case telem.TypeFloat32:
		return telem.Float32Value(api.DecodeF32(raw))
	case telem.TypeFloat64:
		return telem.Float64Value(api.DecodeF64(raw))
	case telem.TypeUint8:
		return telem.Uint8Value(uint8(raw))
	case telem.TypeUint16:
		return telem.Uint16Value(uint16(raw))
	case telem.TypeUint32:
		return telem.Uint32Value(uint32(raw))
	case telem.TypeUint64:
		return telem.Uint64Value(raw)
	case telem.TypeInt8:
		return telem.Int8Value(int8(raw))
	case telem.TypeInt16:
		return telem.Int16Value(int16(raw))
	case telem.TypeInt32:
		return telem.Int32Value(int32(raw))
	case telem.TypeTimeStamp:
		return telem.TimeStampValue(telem.TimeStamp(raw))
	default:
		return telem.Int64Value(int64(raw))
	}
}

func bitsToSample(raw []byte, kind telem.TypeKind) telem.SampleValue {
	var bits uint64
	for i := 0; i < len(raw) && i < 8; i++ {
		bits |= uint64(raw[i]) << (8 * i)
	}
	return rawToSample(bits, kind)
}
