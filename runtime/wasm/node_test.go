package wasm_test

import (
	"context"
	"testing"

	"github.com/synnaxlabs/arc/ir"
	"github.com/synnaxlabs/arc/runtime/node"
	"github.com/synnaxlabs/arc/runtime/state"
	"github.com/synnaxlabs/arc/runtime/wasm"
	"github.com/synnaxlabs/arc/telem"
)

// fakeFunction doubles its single input on every call and always reports
// the output changed.
type fakeFunction struct {
	calls int
}

func (f *fakeFunction) Call(_ context.Context, inputs []telem.SampleValue) ([]wasm.Result, error) {
	f.calls++
	return []wasm.Result{{Value: telem.Float64Value(inputs[0].AsFloat64() * 2), Changed: true}}, nil
}

func newTestNode(t *testing.T, key string, fn wasm.Function) (*wasm.Node, *node.Context, func(v float64)) {
	t.Helper()
	s := state.New()
	irNode := ir.Node{
		Key:     key,
		Inputs:  []ir.ParamType{{Name: "x", Kind: telem.TypeFloat64}},
		Outputs: []ir.ParamType{{Name: "y", Kind: telem.TypeFloat64}},
	}
	s.RegisterNode(ir.Node{Key: "src", Outputs: []ir.ParamType{{Name: "out", Kind: telem.TypeFloat64}}})
	s.RegisterNode(irNode)
	s.AddEdge(ir.Edge{Source: ir.Handle{Node: "src", Param: "out"}, Target: ir.Handle{Node: key, Param: "x"}})

	src, err := s.Node("src")
	if err != nil {
		t.Fatalf("Node(src): %v", err)
	}
	ns, err := s.Node(key)
	if err != nil {
		t.Fatalf("Node(%s): %v", key, err)
	}

	n := wasm.NewNode(irNode, ns, fn)
	changed := make([]string, 0)
	ctx := &node.Context{
		MarkChanged: func(p string) { changed = append(changed, p) },
		ReportError: func(error) {},
	}
	feed := func(v float64) {
		src.Output(0).Append(telem.Float64Value(v))
		src.OutputTime(0).Append(telem.TimeStampValue(telem.Now()))
	}
	return n, ctx, feed
}

func TestNodeCallsFunctionAndMarksChanged(t *testing.T) {
	fn := &fakeFunction{}
	n, _, feed := newTestNode(t, "expression_double", fn)
	feed(3)

	var marked []string
	ctx := &node.Context{
		MarkChanged: func(p string) { marked = append(marked, p) },
		ReportError: func(error) {},
	}
	if err := n.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if fn.calls != 1 {
		t.Fatalf("fn.calls = %d, want 1", fn.calls)
	}
	if !n.IsOutputTruthy("y") {
		t.Fatal("expected output y truthy after a nonzero result")
	}
	if len(marked) != 1 || marked[0] != "y" {
		t.Fatalf("MarkChanged calls = %v, want [y]", marked)
	}
}

func TestNodeNotReadyWithoutInput(t *testing.T) {
	fn := &fakeFunction{}
	n, ctx, _ := newTestNode(t, "expression_double", fn)

	if err := n.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if fn.calls != 0 {
		t.Fatalf("fn.calls = %d, want 0 (node should not be ready yet)", fn.calls)
	}
}

func TestNodeRunsOncePerActivationWithoutExpressionPrefix(t *testing.T) {
	fn := &fakeFunction{}
	n, ctx, feed := newTestNode(t, "double", fn)
	feed(1)

	if err := n.Next(ctx); err != nil {
		t.Fatalf("Next (1st): %v", err)
	}
	if fn.calls != 1 {
		t.Fatalf("fn.calls after 1st Next = %d, want 1", fn.calls)
	}

	feed(2)
	if err := n.Next(ctx); err != nil {
		t.Fatalf("Next (2nd): %v", err)
	}
	if fn.calls != 1 {
		t.Fatalf("fn.calls after 2nd Next = %d, want still 1 (no expression_ prefix)", fn.calls)
	}

	n.Reset()
	if err := n.Next(ctx); err != nil {
		t.Fatalf("Next (after Reset): %v", err)
	}
	if fn.calls != 2 {
		t.Fatalf("fn.calls after Reset+Next = %d, want 2", fn.calls)
	}
}

func TestNodeReportsCallError(t *testing.T) {
	erroringFn := wasm.Function(errFunc{})
	n, _, feed := newTestNode(t, "expression_err", erroringFn)
	feed(1)

	var reported error
	ctx := &node.Context{
		MarkChanged: func(string) {},
		ReportError: func(err error) { reported = err },
	}
	if err := n.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if reported == nil {
		t.Fatal("expected ReportError to be called when the guest function errors")
	}
}

type errFunc struct{}

func (errFunc) Call(context.Context, []telem.SampleValue) ([]wasm.Result, error) {
	return nil, context.DeadlineExceeded
}
