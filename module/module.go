// Package module defines Module, the compiled-program artifact the
// embedder hands to runtime.Load: the IR, the compiled WASM bytecode, and
// the output-memory-base table the compiler derived for each guest
// function (spec §6).
package module

import (
	"github.com/synnaxlabs/arc/ir"
)

// Module is the unit of deployment: everything runtime.Load needs to stand
// up a running Runtime, with no further compilation step.
type Module struct {
	// IR is the serialized dataflow program: nodes, edges, strata,
	// sequences, and function signatures.
	IR ir.IR

	// Wasm is the compiled guest bytecode exporting one function per
	// Arc stage/function name.
	Wasm []byte

	// OutputMemoryBases maps a guest export name to the u32 offset of its
	// dirty-bitmap region; the region [base, base+8) holds the first dirty
	// word, with successive words and typed output slots following it.
	// A function with no memory-resident outputs (a single scalar return)
	// is absent from this map.
	OutputMemoryBases map[string]uint32
}

// Validate checks the module's IR by running ir.IR.Validate; it performs no
// further checks. Whether a node type matches a WASM export is not checked
// here: at runtime.Load the WASM factory declines any type the compiled
// module does not export, and such nodes are skipped.
func (m *Module) Validate() error {
	return m.IR.Validate()
}
