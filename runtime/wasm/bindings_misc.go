package wasm

import (
	"context"
	"time"

	"github.com/tetratelabs/wazero"
)

// exportStringOps registers the handle-based string operations: guest code
// never manipulates string bytes directly, only opaque arena handles.
func (b *Bindings) exportStringOps(builder wazero.HostModuleBuilder) {
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, ptr, length uint32) uint32 {
		buf, ok := b.readMemory(ptr, length)
		if !ok {
			return 0
		}
		return b.strings.alloc(string(buf))
	}).Export("string_from_literal")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, h1, h2 uint32) uint32 {
		s1, _ := b.strings.get(h1)
		s2, _ := b.strings.get(h2)
		return b.strings.alloc(s1 + s2)
	}).Export("string_concat")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, h1, h2 uint32) uint32 {
		s1, _ := b.strings.get(h1)
		s2, _ := b.strings.get(h2)
		if s1 == s2 {
			return 1
		}
		return 0
	}).Export("string_equal")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle uint32) uint32 {
		s, _ := b.strings.get(handle)
		return uint32(len(s))
	}).Export("string_len")
}

// exportMisc registers the ungrouped host calls: now, len, and panic. The
// string_create/string_get pair from bindings.h is not a host call here; it
// is the Go-only StringCreate/StringGet below.
func (b *Bindings) exportMisc(builder wazero.HostModuleBuilder) {
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context) uint64 {
		return uint64(time.Now().UnixNano())
	}).Export("now")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, handle uint32) uint64 {
		if s, ok := b.series.get(handle); ok {
			return uint64(s.Len())
		}
		if s, ok := b.strings.get(handle); ok {
			return uint64(len(s))
		}
		return 0
	}).Export("len")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, ptr, length uint32) {
		b.panic(ctx, ptr, length)
	}).Export("panic")
}

// StringCreate allocates a string handle directly, bypassing guest memory.
// Used by tests that exercise Bindings without a compiled module.
func (b *Bindings) StringCreate(s string) uint32 { return b.strings.alloc(s) }

// StringGet returns the string backing a handle, used by tests.
func (b *Bindings) StringGet(handle uint32) string {
	s, _ := b.strings.get(handle)
	return s
}
