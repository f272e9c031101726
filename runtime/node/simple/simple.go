// Package simple implements the trivial node variants described in spec
// §4.3 as "analogous but trivial" to IntervalNode: ConstantNode, OperatorNode,
// TimeNode, and IONode. Each exposes a single output param and calls
// ctx.MarkChanged("output") only when that output's value actually changes.
package simple

import (
	"fmt"
	"strings"

	"github.com/synnaxlabs/arc/ir"
	"github.com/synnaxlabs/arc/runtime/node"
	"github.com/synnaxlabs/arc/runtime/state"
	"github.com/synnaxlabs/arc/telem"
)

// ConstantNode emits a single literal value from its IR config, once, the
// first time it runs (or after Reset).
type ConstantNode struct {
	ns      *state.NodeState
	value   telem.SampleValue
	emitted bool
}

func (n *ConstantNode) Next(ctx *node.Context) error {
	if n.emitted {
		return nil
	}
	n.ns.Output(0).Append(n.value)
	n.ns.OutputTime(0).Append(telem.TimeStampValue(telem.Now()))
	n.emitted = true
	ctx.MarkChanged("output")
	return nil
}

func (n *ConstantNode) Reset()                         { n.emitted = false }
func (n *ConstantNode) IsOutputTruthy(param string) bool {
	return param == "output" && n.emitted && n.value.Truthy()
}

// ConstantFactory builds ConstantNode instances from IR nodes of type
// "constant".
type ConstantFactory struct{}

func (ConstantFactory) Create(n ir.Node, ns *state.NodeState) (node.Node, bool, error) {
	if n.Type != "constant" {
		return nil, false, nil
	}
	v, ok := n.ConfigValues["value"]
	if !ok {
		return nil, true, fmt.Errorf("arc.module.invalid_constant: node %q missing value", n.Key)
	}
	sv, err := sampleFromConfig(v)
	if err != nil {
		return nil, true, fmt.Errorf("arc.module.invalid_constant: node %q: %w", n.Key, err)
	}
	return &ConstantNode{ns: ns, value: sv}, true, nil
}

// OperatorNode applies a binary arithmetic or comparison operator over its
// two inputs, propagating only when the computed result differs from the
// last value written.
type OperatorNode struct {
	ns      *state.NodeState
	op      string
	hasLast bool
	last    telem.SampleValue
}

func (n *OperatorNode) Next(ctx *node.Context) error {
	if !n.ns.RefreshInputs() {
		return nil
	}
	a := n.ns.Input(0).At(-1)
	b := n.ns.Input(1).At(-1)
	result, err := applyOperator(n.op, a, b)
	if err != nil {
		return err
	}
	if n.hasLast && sameValue(n.last, result) {
		return nil
	}
	n.ns.Output(0).Append(result)
	n.ns.OutputTime(0).Append(n.ns.InputTime(0).At(-1))
	n.last, n.hasLast = result, true
	ctx.MarkChanged("output")
	return nil
}

func (n *OperatorNode) Reset()                         { n.hasLast = false }
func (n *OperatorNode) IsOutputTruthy(param string) bool {
	return param == "output" && n.hasLast && n.last.Truthy()
}

// OperatorFactory builds OperatorNode instances from IR nodes of type
// "operator".
type OperatorFactory struct{}

func (OperatorFactory) Create(n ir.Node, ns *state.NodeState) (node.Node, bool, error) {
	if n.Type != "operator" {
		return nil, false, nil
	}
	op, ok := n.ConfigValues["op"].(string)
	if !ok || op == "" {
		return nil, true, fmt.Errorf("arc.module.invalid_operator: node %q missing op", n.Key)
	}
	return &OperatorNode{ns: ns, op: op}, true, nil
}

// TimeNode writes the current timestamp to its output on every tick; since
// wall-clock time always advances, it always marks its output changed.
type TimeNode struct {
	ns *state.NodeState
}

func (n *TimeNode) Next(ctx *node.Context) error {
	now := telem.Now()
	n.ns.Output(0).Append(telem.TimeStampValue(now))
	n.ns.OutputTime(0).Append(telem.TimeStampValue(now))
	ctx.MarkChanged("output")
	return nil
}

func (n *TimeNode) Reset()                         {}
func (n *TimeNode) IsOutputTruthy(param string) bool { return param == "output" }

// TimeFactory builds TimeNode instances from IR nodes of type "time". It
// reads no config; the loop's execution mode is derived by runtime.Load
// from interval-node periods only, so time nodes do not affect it.
type TimeFactory struct{}

func (TimeFactory) Create(n ir.Node, ns *state.NodeState) (node.Node, bool, error) {
	if n.Type != "time" {
		return nil, false, nil
	}
	return &TimeNode{ns: ns}, true, nil
}

// IONode is a pass-through for a single externally bound channel: it
// propagates whenever ReadChannel surfaces a sample newer than the last one
// it emitted.
type IONode struct {
	ns       *state.NodeState
	inputCh  telem.ChannelKey
	lastTS   telem.TimeStamp
	hasLast  bool
}

func (n *IONode) Next(ctx *node.Context) error {
	ts, hasVal, err := n.ns.ReadChannelTimestamp(n.inputCh)
	if err != nil {
		return err
	}
	if !hasVal {
		return nil
	}
	if n.hasLast && ts == n.lastTS {
		return nil
	}
	v, err := n.ns.ReadChannel(n.inputCh)
	if err != nil {
		return err
	}
	n.ns.Output(0).Append(v)
	n.ns.OutputTime(0).Append(telem.TimeStampValue(ts))
	n.lastTS, n.hasLast = ts, true
	ctx.MarkChanged("output")
	return nil
}

func (n *IONode) Reset()                         { n.hasLast = false }
func (n *IONode) IsOutputTruthy(param string) bool { return param == "output" && n.hasLast }

// IOFactory builds IONode instances from IR nodes of type "io".
type IOFactory struct{}

func (IOFactory) Create(n ir.Node, ns *state.NodeState) (node.Node, bool, error) {
	if n.Type != "io" {
		return nil, false, nil
	}
	ch, ok := firstChannelKey(n)
	if !ok {
		return nil, true, fmt.Errorf("arc.module.invalid_io: node %q has no bound channel", n.Key)
	}
	return &IONode{ns: ns, inputCh: ch}, true, nil
}

// EntryNode is the activator for a sequence's stage: every time it executes
// it calls ctx.ActivateStage(), deactivating whatever stage was previously
// active in its sequence and activating its own (spec §4.5's
// `entry_<seq>_<stage>` convention). It has no outputs of its own.
type EntryNode struct{}

func (EntryNode) Next(ctx *node.Context) error {
	ctx.ActivateStage()
	return nil
}

func (EntryNode) Reset()                         {}
func (EntryNode) IsOutputTruthy(string) bool { return false }

// EntryFactory builds EntryNode instances for any node key matching the
// `entry_<seq>_<stage>` naming convention, regardless of declared Type.
type EntryFactory struct{}

func (EntryFactory) Create(n ir.Node, ns *state.NodeState) (node.Node, bool, error) {
	if !strings.HasPrefix(n.Key, "entry_") {
		return nil, false, nil
	}
	return EntryNode{}, true, nil
}

func firstChannelKey(n ir.Node) (telem.ChannelKey, bool) {
	for k := range n.Channels.Read {
		return k, true
	}
	return 0, false
}

func sameValue(a, b telem.SampleValue) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == telem.TypeString {
		return a.AsString() == b.AsString()
	}
	return a.AsFloat64() == b.AsFloat64()
}

func sampleFromConfig(v any) (telem.SampleValue, error) {
	switch t := v.(type) {
	case float64:
		return telem.Float64Value(t), nil
	case float32:
		return telem.Float32Value(t), nil
	case int:
		return telem.Int64Value(int64(t)), nil
	case int64:
		return telem.Int64Value(t), nil
	case uint64:
		return telem.Uint64Value(t), nil
	case string:
		return telem.StringValue(t), nil
	case bool:
		if t {
			return telem.Uint8Value(1), nil
		}
		return telem.Uint8Value(0), nil
	default:
		return telem.SampleValue{}, fmt.Errorf("unsupported constant value type %T", v)
	}
}

func applyOperator(op string, a, b telem.SampleValue) (telem.SampleValue, error) {
	af, bf := a.AsFloat64(), b.AsFloat64()
	switch op {
	case "add":
		return telem.Float64Value(af + bf), nil
	case "sub":
		return telem.Float64Value(af - bf), nil
	case "mul":
		return telem.Float64Value(af * bf), nil
	case "div":
		if bf == 0 {
			return telem.SampleValue{}, fmt.Errorf("arc.runtime.divide_by_zero")
		}
		return telem.Float64Value(af / bf), nil
	case "gt":
		return boolValue(af > bf), nil
	case "lt":
		return boolValue(af < bf), nil
	case "ge":
		return boolValue(af >= bf), nil
	case "le":
		return boolValue(af <= bf), nil
	case "eq":
		return boolValue(af == bf), nil
	case "ne":
		return boolValue(af != bf), nil
	default:
		return telem.SampleValue{}, fmt.Errorf("arc.module.unknown_operator: %q", op)
	}
}

func boolValue(b bool) telem.SampleValue {
	if b {
		return telem.Uint8Value(1)
	}
	return telem.Uint8Value(0)
}
