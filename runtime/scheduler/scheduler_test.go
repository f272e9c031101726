package scheduler_test

import (
	"testing"
	"time"

	"github.com/synnaxlabs/arc/ir"
	"github.com/synnaxlabs/arc/runtime/node"
	"github.com/synnaxlabs/arc/runtime/scheduler"
)

// fakeNode is a minimal node.Node used to observe scheduler behavior. Each
// call to Next appends the node's key to a shared trace, marks every output
// in marks, and answers IsOutputTruthy from truthy.
type fakeNode struct {
	key    string
	trace  *[]string
	marks  []string
	truthy bool
	resets *int
}

func (f fakeNode) Next(ctx *node.Context) error {
	*f.trace = append(*f.trace, f.key)
	for _, out := range f.marks {
		ctx.MarkChanged(out)
	}
	return nil
}

func (f fakeNode) Reset() {
	if f.resets != nil {
		*f.resets++
	}
}

func (f fakeNode) IsOutputTruthy(string) bool { return f.truthy }

func TestNextRunsGlobalStrataInOrder(t *testing.T) {
	var trace []string
	prog := &ir.IR{
		Strata: ir.Strata{{"a"}, {"b"}},
		Edges: []ir.Edge{
			{Source: ir.Handle{Node: "a", Param: "out"}, Target: ir.Handle{Node: "b", Param: "in"}, Kind: ir.Continuous},
		},
	}
	impls := map[string]node.Node{
		"a": fakeNode{key: "a", trace: &trace, marks: []string{"out"}},
		"b": fakeNode{key: "b", trace: &trace},
	}
	s := scheduler.New(prog, impls)
	s.Next(time.Millisecond)

	if len(trace) != 2 || trace[0] != "a" || trace[1] != "b" {
		t.Fatalf("trace = %v, want [a b]", trace)
	}
}

func TestNextSkipsUnchangedLaterStratum(t *testing.T) {
	var trace []string
	prog := &ir.IR{
		Strata: ir.Strata{{"a"}, {"b"}},
	}
	impls := map[string]node.Node{
		"a": fakeNode{key: "a", trace: &trace}, // marks nothing
		"b": fakeNode{key: "b", trace: &trace},
	}
	s := scheduler.New(prog, impls)
	s.Next(time.Millisecond)

	if len(trace) != 1 || trace[0] != "a" {
		t.Fatalf("trace = %v, want [a] (b should be skipped, unchanged)", trace)
	}
}

func TestOneShotEdgeFiresOnce(t *testing.T) {
	var trace []string
	prog := &ir.IR{
		Strata: ir.Strata{{"a"}, {"b"}},
		Edges: []ir.Edge{
			{Source: ir.Handle{Node: "a", Param: "out"}, Target: ir.Handle{Node: "b", Param: "in"}, Kind: ir.OneShot},
		},
	}
	impls := map[string]node.Node{
		"a": fakeNode{key: "a", trace: &trace, marks: []string{"out"}, truthy: true},
		"b": fakeNode{key: "b", trace: &trace},
	}
	s := scheduler.New(prog, impls)

	s.Next(time.Millisecond)
	if len(trace) != 2 {
		t.Fatalf("tick 1 trace = %v, want [a b]", trace)
	}

	trace = nil
	s.Next(time.Millisecond)
	if len(trace) != 1 || trace[0] != "a" {
		t.Fatalf("tick 2 trace = %v, want [a] (one-shot already fired)", trace)
	}
}

func TestContinuousEdgeFiresEveryTick(t *testing.T) {
	var trace []string
	prog := &ir.IR{
		Strata: ir.Strata{{"a"}, {"b"}},
		Edges: []ir.Edge{
			{Source: ir.Handle{Node: "a", Param: "out"}, Target: ir.Handle{Node: "b", Param: "in"}, Kind: ir.Continuous},
		},
	}
	impls := map[string]node.Node{
		"a": fakeNode{key: "a", trace: &trace, marks: []string{"out"}},
		"b": fakeNode{key: "b", trace: &trace},
	}
	s := scheduler.New(prog, impls)

	for i := 0; i < 3; i++ {
		trace = nil
		s.Next(time.Millisecond)
		if len(trace) != 2 {
			t.Fatalf("tick %d trace = %v, want [a b]", i, trace)
		}
	}
}

func TestNoStageStrataRunWithoutActiveStage(t *testing.T) {
	var trace []string
	resetsB := 0
	prog := &ir.IR{
		Sequences: []ir.Sequence{
			{Key: "seq", Stages: []ir.Stage{
				{Key: "s1", Strata: ir.Strata{{"entry_seq_s1"}}},
				{Key: "s2", Strata: ir.Strata{{"b"}}},
			}},
		},
	}
	impls := map[string]node.Node{
		"entry_seq_s1": fakeNode{key: "entry_seq_s1", trace: &trace},
		"b":            fakeNode{key: "b", trace: &trace, resets: &resetsB},
	}
	s := scheduler.New(prog, impls)

	// Activate stage s1 explicitly via the scheduler's own ActivateStage
	// path would require executing the entry node first, which requires
	// the entry node's own stage to already be active. Exercise the public
	// surface instead: a freshly constructed scheduler has no active
	// stage, so Next should run neither stage's strata.
	s.Next(time.Millisecond)
	if len(trace) != 0 {
		t.Fatalf("expected no stage execution before activation, got %v", trace)
	}
}

func TestResetClearsStateAndOneShots(t *testing.T) {
	var trace []string
	resetsA := 0
	prog := &ir.IR{
		Strata: ir.Strata{{"a"}, {"b"}},
		Edges: []ir.Edge{
			{Source: ir.Handle{Node: "a", Param: "out"}, Target: ir.Handle{Node: "b", Param: "in"}, Kind: ir.OneShot},
		},
	}
	impls := map[string]node.Node{
		"a": fakeNode{key: "a", trace: &trace, marks: []string{"out"}, truthy: true, resets: &resetsA},
		"b": fakeNode{key: "b", trace: &trace},
	}
	s := scheduler.New(prog, impls)
	s.Next(time.Millisecond) // fires the one-shot once

	s.Reset()
	if resetsA != 1 {
		t.Fatalf("Reset() should call node.Reset(), resetsA = %d", resetsA)
	}

	trace = nil
	s.Next(time.Millisecond)
	if len(trace) != 2 {
		t.Fatalf("after Reset() the one-shot should be able to fire again, trace = %v", trace)
	}
}
