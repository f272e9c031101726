// Package node defines the executable-unit contract shared by every node
// variant (WASM, interval, constant, operator, time, IO) and the factory
// machinery the module loader uses to instantiate IR nodes into concrete
// implementations.
package node

import (
	"time"

	"github.com/synnaxlabs/arc/ir"
	"github.com/synnaxlabs/arc/runtime/state"
)

// Context is passed to a node's Next call. Its three callbacks are bound
// once by the scheduler at construction time — never per tick — so that
// node execution never allocates a Context on the hot path (spec §9).
type Context struct {
	// Elapsed is the duration since runtime start.
	Elapsed time.Duration

	// MarkChanged records that the named output param produced new data
	// this tick, driving change propagation to the next stratum.
	MarkChanged func(param string)

	// ReportError surfaces a non-fatal per-node/per-sample error. The tick
	// continues after it is called.
	ReportError func(error)

	// ActivateStage makes the calling node's target stage (from the
	// `entry_<seq>_<stage>` naming convention) the active stage of its
	// sequence, deactivating whatever stage was previously active.
	ActivateStage func()
}

// Node is the executable unit driven by the scheduler. Implementations must
// never block and must not allocate on the hot path; all buffers should be
// pre-sized in the constructor or on Reset.
type Node interface {
	// Next executes one tick of the node.
	Next(ctx *Context) error

	// Reset clears internal state when the node's stage is (re-)entered.
	Reset()

	// IsOutputTruthy reports whether the named output is currently truthy,
	// for OneShot edge evaluation.
	IsOutputTruthy(param string) bool
}

// Factory constructs a Node implementation for a single IR node. A factory
// that does not recognize the node's Type returns (nil, false, nil) so that
// MultiFactory can fall through to the next factory — unknown types are
// permitted and skipped with an info log (spec §9), not treated as errors.
type Factory interface {
	Create(n ir.Node, ns *state.NodeState) (Node, bool, error)
}

// FactoryFunc adapts a plain function to the Factory interface.
type FactoryFunc func(n ir.Node, ns *state.NodeState) (Node, bool, error)

func (f FactoryFunc) Create(n ir.Node, ns *state.NodeState) (Node, bool, error) {
	return f(n, ns)
}

// MultiFactory tries each registered Factory in order and returns the first
// match, mirroring the C++ runtime's `node::MultiFactory`.
type MultiFactory struct {
	factories []Factory
}

// NewMultiFactory builds a MultiFactory trying factories in the given order.
func NewMultiFactory(factories ...Factory) *MultiFactory {
	return &MultiFactory{factories: factories}
}

// Create tries each factory in registration order.
func (m *MultiFactory) Create(n ir.Node, ns *state.NodeState) (Node, error) {
	for _, f := range m.factories {
		impl, ok, err := f.Create(n, ns)
		if err != nil {
			return nil, err
		}
		if ok {
			return impl, nil
		}
	}
	return nil, nil
}
