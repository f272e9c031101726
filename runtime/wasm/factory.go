package wasm

import (
	"fmt"

	"github.com/synnaxlabs/arc/ir"
	"github.com/synnaxlabs/arc/runtime/node"
	"github.com/synnaxlabs/arc/runtime/state"
)

// Factory treats n.Type as the name of a compiled WASM export and binds it.
// It declines (ok=false) any node whose type the guest module does not
// export, so it participates correctly in a node.MultiFactory chain
// regardless of registration order; any type it does claim is assumed to be
// a compiler-emitted function (mirroring wasm::Factory::create).
type Factory struct {
	mod *Module
}

// NewFactory builds a Factory bound to mod.
func NewFactory(mod *Module) *Factory { return &Factory{mod: mod} }

func (f *Factory) Create(n ir.Node, ns *state.NodeState) (node.Node, bool, error) {
	if !f.mod.HasFunc(n.Type) {
		return nil, false, nil
	}
	fn, err := f.mod.Func(n.Type, n.Outputs)
	if err != nil {
		return nil, true, fmt.Errorf("arc.module.unknown_node_type: %q for node %q: %w", n.Type, n.Key, err)
	}
	return NewNode(n, ns, fn), true, nil
}
