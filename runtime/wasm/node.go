package wasm

import (
	"context"
	"fmt"
	"strings"

	"github.com/synnaxlabs/arc/ir"
	"github.com/synnaxlabs/arc/runtime/node"
	"github.com/synnaxlabs/arc/runtime/state"
	"github.com/synnaxlabs/arc/telem"
)

// expressionPrefix marks nodes that must re-run their compiled function
// every tick rather than once per stage activation (spec §4.3).
const expressionPrefix = "expression_"

// Node drives a single compiled WASM export: refresh its aligned inputs,
// broadcast shorter series across the tick's max length, call the guest
// function once per sample, and propagate only the outputs whose dirty bit
// was set.
type Node struct {
	ns           *state.NodeState
	key          string
	fn           Function
	outputNames  []string
	isExpression bool
	initialized  bool

	inputs  []telem.SampleValue
	offsets []int
}

// NewNode binds fn to n's NodeState. fn is usually produced by
// Module.Func, but may be a test fake.
func NewNode(n ir.Node, ns *state.NodeState, fn Function) *Node {
	names := make([]string, len(n.Outputs))
	for i, o := range n.Outputs {
		names[i] = o.Name
	}
	return &Node{
		ns:           ns,
		key:          n.Key,
		fn:           fn,
		outputNames:  names,
		isExpression: strings.HasPrefix(n.Key, expressionPrefix),
		inputs:       make([]telem.SampleValue, len(n.Inputs)),
		offsets:      make([]int, len(n.Outputs)),
	}
}

func (n *Node) Next(ctx *node.Context) error {
	if !n.isExpression {
		if n.initialized {
			return nil
		}
		n.initialized = true
	}

	if !n.ns.RefreshInputs() {
		return nil
	}

	maxLength := 0
	longestIdx := 0
	for i := 0; i < n.ns.NumInputs(); i++ {
		l := n.ns.Input(i).Len()
		if l > maxLength {
			maxLength, longestIdx = l, i
		}
	}
	if n.ns.NumInputs() == 0 {
		maxLength = 1
	}
	if maxLength <= 0 {
		return nil
	}

	for i := range n.offsets {
		n.offsets[i] = 0
	}
	for i := 0; i < n.ns.NumOutputs(); i++ {
		n.ns.Output(i).Resize(maxLength)
		n.ns.OutputTime(i).Resize(maxLength)
	}

	var longestInputTime *telem.Series
	if n.ns.NumInputs() > 0 {
		longestInputTime = n.ns.InputTime(longestIdx)
	}

	for i := 0; i < maxLength; i++ {
		for j := 0; j < n.ns.NumInputs(); j++ {
			n.inputs[j] = n.ns.Input(j).AtMod(i)
		}

		var ts telem.TimeStamp
		if n.ns.NumInputs() > 0 && longestInputTime != nil && !longestInputTime.Empty() {
			ts = longestInputTime.At(i % longestInputTime.Len()).AsTimeStamp()
		} else {
			ts = telem.Now()
		}

		// ts is this sample's output timestamp; channel_write_* host calls the
		// guest makes during Call must stamp writes with it, not wall-clock
		// time, so it rides along on the context (spec §4.2).
		callCtx := WithTickTimestamp(context.Background(), ts)
		results, err := n.fn.Call(callCtx, n.inputs)
		if err != nil {
			ctx.ReportError(fmt.Errorf(
				"WASM execution failed in node %s at sample %d/%d: %w", n.key, i, maxLength, err,
			))
			continue
		}

		for j, r := range results {
			if !r.Changed {
				continue
			}
			n.ns.Output(j).Set(n.offsets[j], r.Value)
			n.ns.OutputTime(j).Set(n.offsets[j], telem.TimeStampValue(ts))
			n.offsets[j]++
		}
	}

	for j := 0; j < n.ns.NumOutputs(); j++ {
		off := n.offsets[j]
		n.ns.Output(j).Resize(off)
		n.ns.OutputTime(j).Resize(off)
		if off > 0 {
			ctx.MarkChanged(n.outputNames[j])
		}
	}

	return nil
}

func (n *Node) Reset() { n.initialized = false }

func (n *Node) IsOutputTruthy(param string) bool { return n.ns.IsOutputTruthy(param) }
