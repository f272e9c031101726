// Package interval implements the periodic tick-emitter node variant.
package interval

import (
	"fmt"
	"time"

	"github.com/synnaxlabs/arc/ir"
	"github.com/synnaxlabs/arc/runtime/node"
	"github.com/synnaxlabs/arc/runtime/state"
	"github.com/synnaxlabs/arc/telem"
)

const TypeName = "interval"

// Node emits `1` (u8) to its configured output channel every Period,
// mirroring `arc::interval::Node` in the original runtime.
type Node struct {
	ns        *state.NodeState
	outputCh  telem.ChannelKey
	period    time.Duration
	lastExec  time.Time
	hasOutput bool
}

// Period returns the node's configured tick period, used by the loop to
// decide event-driven vs. high-rate execution mode.
func (n *Node) Period() time.Duration { return n.period }

func (n *Node) Next(ctx *node.Context) error {
	now := time.Now()
	if now.Sub(n.lastExec) < n.period {
		return nil
	}
	if n.hasOutput {
		if err := n.ns.WriteChannel(n.outputCh, telem.Uint8Value(1), telem.Now()); err != nil {
			return err
		}
	}
	ctx.MarkChanged("output")
	n.lastExec = now
	return nil
}

func (n *Node) Reset() { n.lastExec = time.Time{} }

func (n *Node) IsOutputTruthy(param string) bool {
	return param == "output"
}

// Factory builds interval.Node instances from IR nodes of type "interval".
type Factory struct{}

func (Factory) Create(n ir.Node, ns *state.NodeState) (node.Node, bool, error) {
	if n.Type != TypeName {
		return nil, false, nil
	}
	periodRaw, ok := n.ConfigValues["period"]
	if !ok {
		return nil, true, fmt.Errorf("arc.module.invalid_interval: node %q missing 'period' in config_values", n.Key)
	}
	periodF, ok := toFloat(periodRaw)
	if !ok || periodF <= 0 {
		return nil, true, fmt.Errorf("arc.module.invalid_interval: node %q has non-positive period", n.Key)
	}
	outCh, hasOutput := n.Channels.Write["output"]
	if !hasOutput {
		return nil, true, fmt.Errorf("arc.module.invalid_interval: node %q missing 'output' in channels.write", n.Key)
	}
	return &Node{
		ns:        ns,
		outputCh:  outCh,
		period:    time.Duration(periodF), // config_values["period"] is already nanoseconds
		lastExec:  time.Now(),
		hasOutput: hasOutput,
	}, true, nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
