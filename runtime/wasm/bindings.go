// Package wasm hosts the sandboxed WASM execution node: the typed host-call
// surface (Bindings), the compiled module wrapper (Module), and the Node
// implementation that drives a compiled function once or every tick per
// spec §4.3-4.4.
package wasm

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/synnaxlabs/arc/runtime/errs"
	"github.com/synnaxlabs/arc/runtime/state"
	"github.com/synnaxlabs/arc/telem"
)

// numKind pairs a host-call name suffix with the semantic type it carries.
type numKind struct {
	suffix string
	kind   telem.TypeKind
}

var (
	int32Kinds = []numKind{
		{"u8", telem.TypeUint8}, {"u16", telem.TypeUint16}, {"u32", telem.TypeUint32},
		{"i8", telem.TypeInt8}, {"i16", telem.TypeInt16}, {"i32", telem.TypeInt32},
	}
	int64Kinds   = []numKind{{"u64", telem.TypeUint64}, {"i64", telem.TypeInt64}}
	float32Kinds = []numKind{{"f32", telem.TypeFloat32}}
	float64Kinds = []numKind{{"f64", telem.TypeFloat64}}
)

func sampleFromU32(kind telem.TypeKind, raw uint32) telem.SampleValue {
	switch kind {
	case telem.TypeUint8:
		return telem.Uint8Value(uint8(raw))
	case telem.TypeUint16:
		return telem.Uint16Value(uint16(raw))
	case telem.TypeUint32:
		return telem.Uint32Value(raw)
	case telem.TypeInt8:
		return telem.Int8Value(int8(raw))
	case telem.TypeInt16:
		return telem.Int16Value(int16(raw))
	default:
		return telem.Int32Value(int32(raw))
	}
}

func sampleFromU64(kind telem.TypeKind, raw uint64) telem.SampleValue {
	if kind == telem.TypeUint64 {
		return telem.Uint64Value(raw)
	}
	return telem.Int64Value(int64(raw))
}

// tickTimestampKey scopes the context value carrying the current tick's
// output timestamp, set by wasm.Node.Next before invoking the guest
// function so that any channel_write_* host call made during that
// invocation stamps its write with the node's output timestamp (spec §4.2)
// rather than wall-clock time.
type tickTimestampKey struct{}

// WithTickTimestamp returns a context carrying ts as the current tick's
// output timestamp, for channel_write_* host calls made during the guest
// invocation wrapped in ctx.
func WithTickTimestamp(ctx context.Context, ts telem.TimeStamp) context.Context {
	return context.WithValue(ctx, tickTimestampKey{}, ts)
}

// tickTimestampFromContext returns the tick timestamp carried by ctx, or
// telem.Now() if none was set (e.g. a host call made outside of a
// wasm.Node.Next invocation, such as a test harness).
func tickTimestampFromContext(ctx context.Context) telem.TimeStamp {
	if ts, ok := ctx.Value(tickTimestampKey{}).(telem.TimeStamp); ok {
		return ts
	}
	return telem.Now()
}

// Bindings implements the WASM-to-Go bridge described in spec §4.4. All
// state storage lives in state.State; Bindings only converts ABI values,
// manages the per-module series/string arenas, and routes calls.
type Bindings struct {
	st      *state.State
	series  *seriesArena
	strings *stringArena
	mod     api.Module
	onError func(error)
}

// NewBindings constructs Bindings over the process-wide State. Channel and
// state ops are scoped globally by channel key / (func id, var id), so no
// per-node rebinding is needed between calls.
func NewBindings(st *state.State) *Bindings {
	return &Bindings{
		st:      st,
		series:  newArena[*telem.Series](),
		strings: newArena[string](),
	}
}

// OnError installs the callback invoked when a guest traps (calls the
// arc module's panic host function). The callback is read at call time, so
// it may be installed before or after Export; runtime.Load installs it.
func (b *Bindings) OnError(fn func(error)) { b.onError = fn }

func (b *Bindings) setModule(m api.Module) { b.mod = m }

func (b *Bindings) readMemory(ptr, size uint32) ([]byte, bool) {
	if b.mod == nil {
		return nil, false
	}
	return b.mod.Memory().Read(ptr, size)
}

func (b *Bindings) panic(ctx context.Context, ptr, length uint32) {
	msg := "wasm panic"
	if buf, ok := b.readMemory(ptr, length); ok {
		msg = string(buf)
	}
	if b.onError != nil {
		b.onError(errs.Execution("wasm_trap", "%s", msg))
	}
}

// Export builds the "arc" host module and instantiates it against runtime.
func (b *Bindings) Export(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	builder := rt.NewHostModuleBuilder("arc")

	for _, nk := range int32Kinds {
		nk := nk
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, channelID uint32) uint32 {
			v, _ := b.st.ReadChannel(telem.ChannelKey(channelID))
			return uint32(v.AsUint64())
		}).Export("channel_read_" + nk.suffix)
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, channelID, value uint32) {
			_ = b.st.WriteChannel(telem.ChannelKey(channelID), sampleFromU32(nk.kind, value), tickTimestampFromContext(ctx))
		}).Export("channel_write_" + nk.suffix)
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, funcID, varID, initVal uint32) uint32 {
			return uint32(state.LoadState(b.st, state.MakeStateKey(funcID, varID), sampleFromU32(nk.kind, initVal)).AsUint64())
		}).Export("state_load_" + nk.suffix)
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, funcID, varID, value uint32) {
			_ = state.StoreState(b.st, state.MakeStateKey(funcID, varID), sampleFromU32(nk.kind, value))
		}).Export("state_store_" + nk.suffix)
	}

	for _, nk := range int64Kinds {
		nk := nk
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, channelID uint32) uint64 {
			v, _ := b.st.ReadChannel(telem.ChannelKey(channelID))
			return v.AsUint64()
		}).Export("channel_read_" + nk.suffix)
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, channelID uint32, value uint64) {
			_ = b.st.WriteChannel(telem.ChannelKey(channelID), sampleFromU64(nk.kind, value), tickTimestampFromContext(ctx))
		}).Export("channel_write_" + nk.suffix)
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, funcID, varID uint32, initVal uint64) uint64 {
			return state.LoadState(b.st, state.MakeStateKey(funcID, varID), sampleFromU64(nk.kind, initVal)).AsUint64()
		}).Export("state_load_" + nk.suffix)
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, funcID, varID uint32, value uint64) {
			_ = state.StoreState(b.st, state.MakeStateKey(funcID, varID), sampleFromU64(nk.kind, value))
		}).Export("state_store_" + nk.suffix)
	}

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, channelID uint32) float32 {
		v, _ := b.st.ReadChannel(telem.ChannelKey(channelID))
		return float32(v.AsFloat64())
	}).Export("channel_read_f32")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, channelID uint32, value float32) {
		_ = b.st.WriteChannel(telem.ChannelKey(channelID), telem.Float32Value(value), tickTimestampFromContext(ctx))
	}).Export("channel_write_f32")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, funcID, varID uint32, initVal float32) float32 {
		return float32(state.LoadState(b.st, state.MakeStateKey(funcID, varID), telem.Float32Value(initVal)).AsFloat64())
	}).Export("state_load_f32")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, funcID, varID uint32, value float32) {
		_ = state.StoreState(b.st, state.MakeStateKey(funcID, varID), telem.Float32Value(value))
	}).Export("state_store_f32")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, channelID uint32) float64 {
		v, _ := b.st.ReadChannel(telem.ChannelKey(channelID))
		return v.AsFloat64()
	}).Export("channel_read_f64")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, channelID uint32, value float64) {
		_ = b.st.WriteChannel(telem.ChannelKey(channelID), telem.Float64Value(value), tickTimestampFromContext(ctx))
	}).Export("channel_write_f64")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, funcID, varID uint32, initVal float64) float64 {
		return state.LoadState(b.st, state.MakeStateKey(funcID, varID), telem.Float64Value(initVal)).AsFloat64()
	}).Export("state_load_f64")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, funcID, varID uint32, value float64) {
		_ = state.StoreState(b.st, state.MakeStateKey(funcID, varID), telem.Float64Value(value))
	}).Export("state_store_f64")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, channelID uint32) uint32 {
		v, _ := b.st.ReadChannel(telem.ChannelKey(channelID))
		return b.strings.alloc(v.AsString())
	}).Export("channel_read_str")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, channelID, strHandle uint32) {
		s, _ := b.strings.get(strHandle)
		_ = b.st.WriteChannel(telem.ChannelKey(channelID), telem.StringValue(s), tickTimestampFromContext(ctx))
	}).Export("channel_write_str")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, funcID, varID, initHandle uint32) uint32 {
		init, _ := b.strings.get(initHandle)
		v := state.LoadState(b.st, state.MakeStateKey(funcID, varID), telem.StringValue(init))
		return b.strings.alloc(v.AsString())
	}).Export("state_load_str")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, funcID, varID, strHandle uint32) {
		s, _ := b.strings.get(strHandle)
		_ = state.StoreState(b.st, state.MakeStateKey(funcID, varID), telem.StringValue(s))
	}).Export("state_store_str")

	b.exportSeriesOps(builder)
	b.exportStringOps(builder)
	b.exportMisc(builder)

	return builder.Instantiate(ctx)
}
