package wasm

import "github.com/synnaxlabs/arc/telem"

// arena is a per-module handle table for series and strings that guest code
// addresses by opaque u32 handle, per spec §4.4 ("Series are passed by
// handle (u32) allocated in a per-module arena"). Handle 0 is never issued,
// so it can double as a null/"not found" sentinel at call sites.
type arena[T any] struct {
	slots []T
}

func newArena[T any]() *arena[T] {
	var zero T
	return &arena[T]{slots: []T{zero}} // index 0 reserved
}

func (a *arena[T]) alloc(v T) uint32 {
	a.slots = append(a.slots, v)
	return uint32(len(a.slots) - 1)
}

func (a *arena[T]) get(h uint32) (T, bool) {
	var zero T
	if h == 0 || int(h) >= len(a.slots) {
		return zero, false
	}
	return a.slots[h], true
}

func (a *arena[T]) set(h uint32, v T) {
	if int(h) < len(a.slots) {
		a.slots[h] = v
	}
}

// seriesArena and stringArena are the two arenas a Bindings instance owns.
type seriesArena = arena[*telem.Series]
type stringArena = arena[string]
