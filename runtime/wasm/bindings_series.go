package wasm

import (
	"context"
	"math"

	"github.com/tetratelabs/wazero"

	"github.com/synnaxlabs/arc/runtime/state"
	"github.com/synnaxlabs/arc/telem"
)

// exportSeriesOps registers the series_*_<T> family: the elementwise series
// algebra guest code uses for vectorized computation over aligned inputs
// (spec §4.4). Every arithmetic op is functional: it allocates a new series
// and returns a fresh arena handle rather than mutating its operand.
func (b *Bindings) exportSeriesOps(builder wazero.HostModuleBuilder) {
	allKinds := make([]numKind, 0, len(int32Kinds)+len(int64Kinds)+len(float32Kinds)+len(float64Kinds))
	allKinds = append(allKinds, int32Kinds...)
	allKinds = append(allKinds, int64Kinds...)
	allKinds = append(allKinds, float32Kinds...)
	allKinds = append(allKinds, float64Kinds...)

	for _, nk := range allKinds {
		nk := nk
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, length uint32) uint32 {
			s := telem.NewSeries(nk.kind)
			s.Resize(int(length))
			return b.series.alloc(s)
		}).Export("series_create_empty_" + nk.suffix)

		switch nk.kind {
		case telem.TypeUint64, telem.TypeInt64:
			registerWideSeriesOps(builder, b, nk, false)
		case telem.TypeFloat32:
			registerFloat32SeriesOps(builder, b, nk)
		case telem.TypeFloat64:
			registerFloat64SeriesOps(builder, b, nk)
		default:
			register32SeriesOps(builder, b, nk)
		}
	}

	for _, nk := range []numKind{
		{"i8", telem.TypeInt8}, {"i16", telem.TypeInt16}, {"i32", telem.TypeInt32},
	} {
		nk := nk
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle uint32) uint32 {
			s, _ := b.series.get(handle)
			out := mapSeries(s, func(v telem.SampleValue) telem.SampleValue {
				return sampleFromU32(nk.kind, uint32(-v.AsInt64()))
			})
			return b.series.alloc(out)
		}).Export("series_negate_" + nk.suffix)
	}
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle uint32) uint32 {
		s, _ := b.series.get(handle)
		out := mapSeries(s, func(v telem.SampleValue) telem.SampleValue { return telem.Int64Value(-v.AsInt64()) })
		return b.series.alloc(out)
	}).Export("series_negate_i64")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle uint32) uint32 {
		s, _ := b.series.get(handle)
		out := mapSeries(s, func(v telem.SampleValue) telem.SampleValue { return telem.Float32Value(float32(-v.AsFloat64())) })
		return b.series.alloc(out)
	}).Export("series_negate_f32")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle uint32) uint32 {
		s, _ := b.series.get(handle)
		out := mapSeries(s, func(v telem.SampleValue) telem.SampleValue { return telem.Float64Value(-v.AsFloat64()) })
		return b.series.alloc(out)
	}).Export("series_negate_f64")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle uint32) uint32 {
		s, _ := b.series.get(handle)
		out := mapSeries(s, func(v telem.SampleValue) telem.SampleValue {
			if v.Truthy() {
				return telem.Uint8Value(0)
			}
			return telem.Uint8Value(1)
		})
		return b.series.alloc(out)
	}).Export("series_not_u8")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle uint32) uint64 {
		s, _ := b.series.get(handle)
		return uint64(s.Len())
	}).Export("series_len")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle, start, end uint32) uint32 {
		s, _ := b.series.get(handle)
		if s == nil {
			return 0
		}
		return b.series.alloc(s.Slice(int(start), int(end)))
	}).Export("series_slice")
}

func isWide64(k telem.TypeKind) bool { return k == telem.TypeUint64 || k == telem.TypeInt64 }

// mapSeries applies f elementwise, returning a new series of the same kind.
func mapSeries(s *telem.Series, f func(telem.SampleValue) telem.SampleValue) *telem.Series {
	if s == nil {
		return telem.NewSeries(telem.TypeUnknown)
	}
	out := telem.NewSeries(s.Kind)
	out.Resize(s.Len())
	for i := 0; i < s.Len(); i++ {
		out.Set(i, f(s.At(i)))
	}
	return out
}

// zipSeries applies f elementwise across a and b, broadcasting the shorter
// series via AtMod, matching the original's series-series arithmetic.
func zipSeries(a, b *telem.Series, kind telem.TypeKind, f func(x, y telem.SampleValue) telem.SampleValue) *telem.Series {
	n := a.Len()
	if b.Len() > n {
		n = b.Len()
	}
	out := telem.NewSeries(kind)
	out.Resize(n)
	for i := 0; i < n; i++ {
		out.Set(i, f(a.AtMod(i), b.AtMod(i)))
	}
	return out
}

func wrapInt(kind telem.TypeKind, v int64) telem.SampleValue {
	switch kind {
	case telem.TypeUint8:
		return telem.Uint8Value(uint8(v))
	case telem.TypeUint16:
		return telem.Uint16Value(uint16(v))
	case telem.TypeUint32:
		return telem.Uint32Value(uint32(v))
	case telem.TypeUint64:
		return telem.Uint64Value(uint64(v))
	case telem.TypeInt8:
		return telem.Int8Value(int8(v))
	case telem.TypeInt16:
		return telem.Int16Value(int16(v))
	case telem.TypeInt32:
		return telem.Int32Value(int32(v))
	default:
		return telem.Int64Value(v)
	}
}

func wrapFloat(kind telem.TypeKind, v float64) telem.SampleValue {
	if kind == telem.TypeFloat32 {
		return telem.Float32Value(float32(v))
	}
	return telem.Float64Value(v)
}

// register32SeriesOps registers the full arithmetic/comparison family for the
// six types whose ABI value width is a 32-bit word (u8, u16, u32, i8, i16,
// i32).
func register32SeriesOps(builder wazero.HostModuleBuilder, b *Bindings, nk numKind) {
	wrap := func(v int64) telem.SampleValue { return wrapInt(nk.kind, v) }

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle, index uint32) uint32 {
		s, _ := b.series.get(handle)
		return uint32(s.At(int(index)).AsUint64())
	}).Export("series_index_" + nk.suffix)

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle, index, value uint32) uint32 {
		s, _ := b.series.get(handle)
		s.Set(int(index), sampleFromU32(nk.kind, value))
		return handle
	}).Export("series_set_element_" + nk.suffix)

	type binOp struct {
		name string
		f    func(x, y int64) int64
	}
	ops := []binOp{
		{"add", func(x, y int64) int64 { return x + y }},
		{"sub", func(x, y int64) int64 { return x - y }},
		{"mul", func(x, y int64) int64 { return x * y }},
		{"div", func(x, y int64) int64 { if y == 0 { return 0 }; return x / y }},
		{"mod", func(x, y int64) int64 { if y == 0 { return 0 }; return x % y }},
	}
	for _, op := range ops {
		op := op
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle, value uint32) uint32 {
			s, _ := b.series.get(handle)
			out := mapSeries(s, func(v telem.SampleValue) telem.SampleValue {
				return wrap(op.f(v.AsInt64(), int64(value)))
			})
			return b.series.alloc(out)
		}).Export("series_element_" + op.name + "_" + nk.suffix)
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, value, handle uint32) uint32 {
			s, _ := b.series.get(handle)
			out := mapSeries(s, func(v telem.SampleValue) telem.SampleValue {
				return wrap(op.f(int64(value), v.AsInt64()))
			})
			return b.series.alloc(out)
		}).Export("series_element_r" + op.name + "_" + nk.suffix)
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, ah, bh uint32) uint32 {
			as, _ := b.series.get(ah)
			bs, _ := b.series.get(bh)
			out := zipSeries(as, bs, nk.kind, func(x, y telem.SampleValue) telem.SampleValue {
				return wrap(op.f(x.AsInt64(), y.AsInt64()))
			})
			return b.series.alloc(out)
		}).Export("series_series_" + op.name + "_" + nk.suffix)
	}

	registerCompareOps32(builder, b, nk)

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, funcID, varID, initHandle uint32) uint32 {
		init, _ := b.series.get(initHandle)
		v := state.LoadState(b.st, state.MakeStateKey(funcID, varID), init)
		return b.series.alloc(v)
	}).Export("state_load_series_" + nk.suffix)
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, funcID, varID, handle uint32) {
		s, _ := b.series.get(handle)
		_ = state.StoreState(b.st, state.MakeStateKey(funcID, varID), s)
	}).Export("state_store_series_" + nk.suffix)

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, base, exp uint32) uint32 {
		return wrapPowInt(nk.kind, base, exp)
	}).Export("math_pow_" + nk.suffix)
}

func registerCompareOps32(builder wazero.HostModuleBuilder, b *Bindings, nk numKind) {
	type cmpOp struct {
		name string
		f    func(x, y int64) bool
	}
	ops := []cmpOp{
		{"gt", func(x, y int64) bool { return x > y }},
		{"lt", func(x, y int64) bool { return x < y }},
		{"ge", func(x, y int64) bool { return x >= y }},
		{"le", func(x, y int64) bool { return x <= y }},
		{"eq", func(x, y int64) bool { return x == y }},
		{"ne", func(x, y int64) bool { return x != y }},
	}
	boolVal := func(v bool) telem.SampleValue {
		if v {
			return telem.Uint8Value(1)
		}
		return telem.Uint8Value(0)
	}
	for _, op := range ops {
		op := op
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, ah, bh uint32) uint32 {
			as, _ := b.series.get(ah)
			bs, _ := b.series.get(bh)
			out := zipSeries(as, bs, telem.TypeUint8, func(x, y telem.SampleValue) telem.SampleValue {
				return boolVal(op.f(x.AsInt64(), y.AsInt64()))
			})
			return b.series.alloc(out)
		}).Export("series_compare_" + op.name + "_" + nk.suffix)
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle, value uint32) uint32 {
			s, _ := b.series.get(handle)
			out := mapSeries(s, func(v telem.SampleValue) telem.SampleValue {
				return boolVal(op.f(v.AsInt64(), int64(value)))
			})
			out.Kind = telem.TypeUint8
			return b.series.alloc(out)
		}).Export("series_compare_" + op.name + "_scalar_" + nk.suffix)
	}
}

func wrapPowInt(kind telem.TypeKind, base, exp uint32) uint32 {
	r := math.Pow(float64(int64FromKind(kind, base)), float64(exp))
	return uint32(int64(r))
}

func int64FromKind(kind telem.TypeKind, raw uint32) int64 {
	return sampleFromU32(kind, raw).AsInt64()
}

// registerWideSeriesOps registers the 64-bit-width family (u64, i64).
func registerWideSeriesOps(builder wazero.HostModuleBuilder, b *Bindings, nk numKind, _ bool) {
	wrap := func(v int64) telem.SampleValue { return wrapInt(nk.kind, v) }

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle, index uint32) uint64 {
		s, _ := b.series.get(handle)
		return s.At(int(index)).AsUint64()
	}).Export("series_index_" + nk.suffix)
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle, index uint32, value uint64) uint32 {
		s, _ := b.series.get(handle)
		s.Set(int(index), sampleFromU64(nk.kind, value))
		return handle
	}).Export("series_set_element_" + nk.suffix)

	type binOp struct {
		name string
		f    func(x, y int64) int64
	}
	ops := []binOp{
		{"add", func(x, y int64) int64 { return x + y }},
		{"sub", func(x, y int64) int64 { return x - y }},
		{"mul", func(x, y int64) int64 { return x * y }},
		{"div", func(x, y int64) int64 { if y == 0 { return 0 }; return x / y }},
		{"mod", func(x, y int64) int64 { if y == 0 { return 0 }; return x % y }},
	}
	for _, op := range ops {
		op := op
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle uint32, value uint64) uint32 {
			s, _ := b.series.get(handle)
			out := mapSeries(s, func(v telem.SampleValue) telem.SampleValue { return wrap(op.f(v.AsInt64(), int64(value))) })
			return b.series.alloc(out)
		}).Export("series_element_" + op.name + "_" + nk.suffix)
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, value uint64, handle uint32) uint32 {
			s, _ := b.series.get(handle)
			out := mapSeries(s, func(v telem.SampleValue) telem.SampleValue { return wrap(op.f(int64(value), v.AsInt64())) })
			return b.series.alloc(out)
		}).Export("series_element_r" + op.name + "_" + nk.suffix)
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, ah, bh uint32) uint32 {
			as, _ := b.series.get(ah)
			bs, _ := b.series.get(bh)
			out := zipSeries(as, bs, nk.kind, func(x, y telem.SampleValue) telem.SampleValue {
				return wrap(op.f(x.AsInt64(), y.AsInt64()))
			})
			return b.series.alloc(out)
		}).Export("series_series_" + op.name + "_" + nk.suffix)
	}

	type cmpOp struct {
		name string
		f    func(x, y int64) bool
	}
	boolVal := func(v bool) telem.SampleValue {
		if v {
			return telem.Uint8Value(1)
		}
		return telem.Uint8Value(0)
	}
	cmps := []cmpOp{
		{"gt", func(x, y int64) bool { return x > y }}, {"lt", func(x, y int64) bool { return x < y }},
		{"ge", func(x, y int64) bool { return x >= y }}, {"le", func(x, y int64) bool { return x <= y }},
		{"eq", func(x, y int64) bool { return x == y }}, {"ne", func(x, y int64) bool { return x != y }},
	}
	for _, op := range cmps {
		op := op
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, ah, bh uint32) uint32 {
			as, _ := b.series.get(ah)
			bs, _ := b.series.get(bh)
			out := zipSeries(as, bs, telem.TypeUint8, func(x, y telem.SampleValue) telem.SampleValue {
				return boolVal(op.f(x.AsInt64(), y.AsInt64()))
			})
			return b.series.alloc(out)
		}).Export("series_compare_" + op.name + "_" + nk.suffix)
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle uint32, value uint64) uint32 {
			s, _ := b.series.get(handle)
			out := mapSeries(s, func(v telem.SampleValue) telem.SampleValue { return boolVal(op.f(v.AsInt64(), int64(value))) })
			out.Kind = telem.TypeUint8
			return b.series.alloc(out)
		}).Export("series_compare_" + op.name + "_scalar_" + nk.suffix)
	}

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, funcID, varID, initHandle uint32) uint32 {
		init, _ := b.series.get(initHandle)
		v := state.LoadState(b.st, state.MakeStateKey(funcID, varID), init)
		return b.series.alloc(v)
	}).Export("state_load_series_" + nk.suffix)
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, funcID, varID, handle uint32) {
		s, _ := b.series.get(handle)
		_ = state.StoreState(b.st, state.MakeStateKey(funcID, varID), s)
	}).Export("state_store_series_" + nk.suffix)

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, base, exp uint64) uint64 {
		r := math.Pow(float64(int64(base)), float64(exp))
		return uint64(int64(r))
	}).Export("math_pow_" + nk.suffix)
}

func registerFloatSeriesCommon(builder wazero.HostModuleBuilder, b *Bindings, nk numKind, wrap func(float64) telem.SampleValue) {
	type binOp struct {
		name string
		f    func(x, y float64) float64
	}
	ops := []binOp{
		{"add", func(x, y float64) float64 { return x + y }},
		{"sub", func(x, y float64) float64 { return x - y }},
		{"mul", func(x, y float64) float64 { return x * y }},
		{"div", func(x, y float64) float64 { if y == 0 { return 0 }; return x / y }},
		{"mod", func(x, y float64) float64 { if y == 0 { return 0 }; return math.Mod(x, y) }},
	}
	type cmpOp struct {
		name string
		f    func(x, y float64) bool
	}
	cmps := []cmpOp{
		{"gt", func(x, y float64) bool { return x > y }}, {"lt", func(x, y float64) bool { return x < y }},
		{"ge", func(x, y float64) bool { return x >= y }}, {"le", func(x, y float64) bool { return x <= y }},
		{"eq", func(x, y float64) bool { return x == y }}, {"ne", func(x, y float64) bool { return x != y }},
	}
	boolVal := func(v bool) telem.SampleValue {
		if v {
			return telem.Uint8Value(1)
		}
		return telem.Uint8Value(0)
	}

	for _, op := range ops {
		op := op
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, ah, bh uint32) uint32 {
			as, _ := b.series.get(ah)
			bs, _ := b.series.get(bh)
			out := zipSeries(as, bs, nk.kind, func(x, y telem.SampleValue) telem.SampleValue {
				return wrap(op.f(x.AsFloat64(), y.AsFloat64()))
			})
			return b.series.alloc(out)
		}).Export("series_series_" + op.name + "_" + nk.suffix)
	}
	for _, op := range cmps {
		op := op
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, ah, bh uint32) uint32 {
			as, _ := b.series.get(ah)
			bs, _ := b.series.get(bh)
			out := zipSeries(as, bs, telem.TypeUint8, func(x, y telem.SampleValue) telem.SampleValue {
				return boolVal(op.f(x.AsFloat64(), y.AsFloat64()))
			})
			return b.series.alloc(out)
		}).Export("series_compare_" + op.name + "_" + nk.suffix)
	}

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, funcID, varID, initHandle uint32) uint32 {
		init, _ := b.series.get(initHandle)
		v := state.LoadState(b.st, state.MakeStateKey(funcID, varID), init)
		return b.series.alloc(v)
	}).Export("state_load_series_" + nk.suffix)
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, funcID, varID, handle uint32) {
		s, _ := b.series.get(handle)
		_ = state.StoreState(b.st, state.MakeStateKey(funcID, varID), s)
	}).Export("state_store_series_" + nk.suffix)
}

func registerFloat32SeriesOps(builder wazero.HostModuleBuilder, b *Bindings, nk numKind) {
	wrap := func(v float64) telem.SampleValue { return telem.Float32Value(float32(v)) }

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle, index uint32) float32 {
		s, _ := b.series.get(handle)
		return float32(s.At(int(index)).AsFloat64())
	}).Export("series_index_f32")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle, index uint32, value float32) uint32 {
		s, _ := b.series.get(handle)
		s.Set(int(index), telem.Float32Value(value))
		return handle
	}).Export("series_set_element_f32")

	type binOp struct {
		name string
		f    func(x, y float64) float64
	}
	ops := []binOp{
		{"add", func(x, y float64) float64 { return x + y }}, {"sub", func(x, y float64) float64 { return x - y }},
		{"mul", func(x, y float64) float64 { return x * y }},
		{"div", func(x, y float64) float64 { if y == 0 { return 0 }; return x / y }},
		{"mod", func(x, y float64) float64 { if y == 0 { return 0 }; return math.Mod(x, y) }},
	}
	for _, op := range ops {
		op := op
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle uint32, value float32) uint32 {
			s, _ := b.series.get(handle)
			out := mapSeries(s, func(v telem.SampleValue) telem.SampleValue { return wrap(op.f(v.AsFloat64(), float64(value))) })
			return b.series.alloc(out)
		}).Export("series_element_" + op.name + "_f32")
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, value float32, handle uint32) uint32 {
			s, _ := b.series.get(handle)
			out := mapSeries(s, func(v telem.SampleValue) telem.SampleValue { return wrap(op.f(float64(value), v.AsFloat64())) })
			return b.series.alloc(out)
		}).Export("series_element_r" + op.name + "_f32")
	}
	type cmpOp struct {
		name string
		f    func(x, y float64) bool
	}
	cmps := []cmpOp{
		{"gt", func(x, y float64) bool { return x > y }}, {"lt", func(x, y float64) bool { return x < y }},
		{"ge", func(x, y float64) bool { return x >= y }}, {"le", func(x, y float64) bool { return x <= y }},
		{"eq", func(x, y float64) bool { return x == y }}, {"ne", func(x, y float64) bool { return x != y }},
	}
	for _, op := range cmps {
		op := op
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle uint32, value float32) uint32 {
			s, _ := b.series.get(handle)
			out := mapSeries(s, func(v telem.SampleValue) telem.SampleValue {
				if op.f(v.AsFloat64(), float64(value)) {
					return telem.Uint8Value(1)
				}
				return telem.Uint8Value(0)
			})
			out.Kind = telem.TypeUint8
			return b.series.alloc(out)
		}).Export("series_compare_" + op.name + "_scalar_f32")
	}
	registerFloatSeriesCommon(builder, b, nk, wrap)

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, base, exp float32) float32 {
		return float32(math.Pow(float64(base), float64(exp)))
	}).Export("math_pow_f32")
}

func registerFloat64SeriesOps(builder wazero.HostModuleBuilder, b *Bindings, nk numKind) {
	wrap := func(v float64) telem.SampleValue { return telem.Float64Value(v) }

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle, index uint32) float64 {
		s, _ := b.series.get(handle)
		return s.At(int(index)).AsFloat64()
	}).Export("series_index_f64")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle, index uint32, value float64) uint32 {
		s, _ := b.series.get(handle)
		s.Set(int(index), telem.Float64Value(value))
		return handle
	}).Export("series_set_element_f64")

	type binOp struct {
		name string
		f    func(x, y float64) float64
	}
	ops := []binOp{
		{"add", func(x, y float64) float64 { return x + y }}, {"sub", func(x, y float64) float64 { return x - y }},
		{"mul", func(x, y float64) float64 { return x * y }},
		{"div", func(x, y float64) float64 { if y == 0 { return 0 }; return x / y }},
		{"mod", func(x, y float64) float64 { if y == 0 { return 0 }; return math.Mod(x, y) }},
	}
	for _, op := range ops {
		op := op
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle uint32, value float64) uint32 {
			s, _ := b.series.get(handle)
			out := mapSeries(s, func(v telem.SampleValue) telem.SampleValue { return wrap(op.f(v.AsFloat64(), value)) })
			return b.series.alloc(out)
		}).Export("series_element_" + op.name + "_f64")
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, value float64, handle uint32) uint32 {
			s, _ := b.series.get(handle)
			out := mapSeries(s, func(v telem.SampleValue) telem.SampleValue { return wrap(op.f(value, v.AsFloat64())) })
			return b.series.alloc(out)
		}).Export("series_element_r" + op.name + "_f64")
	}
	type cmpOp struct {
		name string
		f    func(x, y float64) bool
	}
	cmps := []cmpOp{
		{"gt", func(x, y float64) bool { return x > y }}, {"lt", func(x, y float64) bool { return x < y }},
		{"ge", func(x, y float64) bool { return x >= y }}, {"le", func(x, y float64) bool { return x <= y }},
		{"eq", func(x, y float64) bool { return x == y }}, {"ne", func(x, y float64) bool { return x != y }},
	}
	for _, op := range cmps {
		op := op
		builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle uint32, value float64) uint32 {
			s, _ := b.series.get(handle)
			out := mapSeries(s, func(v telem.SampleValue) telem.SampleValue {
				if op.f(v.AsFloat64(), value) {
					return telem.Uint8Value(1)
				}
				return telem.Uint8Value(0)
			})
			out.Kind = telem.TypeUint8
			return b.series.alloc(out)
		}).Export("series_compare_" + op.name + "_scalar_f64")
	}
	registerFloatSeriesCommon(builder, b, nk, wrap)

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, base, exp float64) float64 {
		return math.Pow(base, exp)
	}).Export("math_pow_f64")
}
