package simple_test

import (
	"testing"

	"github.com/synnaxlabs/arc/ir"
	"github.com/synnaxlabs/arc/runtime/node"
	"github.com/synnaxlabs/arc/runtime/node/simple"
	"github.com/synnaxlabs/arc/runtime/state"
	"github.com/synnaxlabs/arc/telem"
)

func noopCtx() *node.Context {
	return &node.Context{MarkChanged: func(string) {}, ReportError: func(error) {}}
}

func TestConstantFactoryRejectsOtherTypes(t *testing.T) {
	if _, ok, _ := (simple.ConstantFactory{}).Create(ir.Node{Type: "operator"}, nil); ok {
		t.Fatal("expected ConstantFactory to decline a non-constant node")
	}
}

func TestConstantFactoryRequiresValue(t *testing.T) {
	_, ok, err := (simple.ConstantFactory{}).Create(ir.Node{Type: "constant", Key: "k"}, nil)
	if !ok {
		t.Fatal("expected ConstantFactory to claim a constant-typed node")
	}
	if err == nil {
		t.Fatal("expected error for a constant node missing its value")
	}
}

func TestConstantNodeEmitsOnceThenSilent(t *testing.T) {
	s := state.New()
	irNode := ir.Node{Key: "c", Type: "constant", Outputs: []ir.ParamType{{Name: "output", Kind: telem.TypeFloat64}},
		ConfigValues: map[string]any{"value": float64(7)}}
	s.RegisterNode(irNode)
	ns, err := s.Node("c")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	impl, ok, err := (simple.ConstantFactory{}).Create(irNode, ns)
	if !ok || err != nil {
		t.Fatalf("Create: ok=%v err=%v", ok, err)
	}

	marks := 0
	ctx := &node.Context{MarkChanged: func(string) { marks++ }, ReportError: func(error) {}}
	if err := impl.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if marks != 1 {
		t.Fatalf("marks after first Next = %d, want 1", marks)
	}
	if err := impl.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if marks != 1 {
		t.Fatalf("marks after second Next = %d, want still 1", marks)
	}
	if !impl.IsOutputTruthy("output") {
		t.Fatal("expected output truthy after emitting 7")
	}

	impl.Reset()
	if err := impl.Next(ctx); err != nil {
		t.Fatalf("Next after Reset: %v", err)
	}
	if marks != 2 {
		t.Fatalf("marks after Reset+Next = %d, want 2", marks)
	}
}

func buildOperatorNode(t *testing.T, op string) (node.Node, func(a, b float64), *state.NodeState) {
	t.Helper()
	s := state.New()
	s.RegisterNode(ir.Node{Key: "a", Outputs: []ir.ParamType{{Name: "out", Kind: telem.TypeFloat64}}})
	s.RegisterNode(ir.Node{Key: "b", Outputs: []ir.ParamType{{Name: "out", Kind: telem.TypeFloat64}}})
	opNode := ir.Node{
		Key:  "op", Type: "operator",
		Inputs:       []ir.ParamType{{Name: "x", Kind: telem.TypeFloat64}, {Name: "y", Kind: telem.TypeFloat64}},
		Outputs:      []ir.ParamType{{Name: "output", Kind: telem.TypeFloat64}},
		ConfigValues: map[string]any{"op": op},
	}
	s.RegisterNode(opNode)
	s.AddEdge(ir.Edge{Source: ir.Handle{Node: "a", Param: "out"}, Target: ir.Handle{Node: "op", Param: "x"}})
	s.AddEdge(ir.Edge{Source: ir.Handle{Node: "b", Param: "out"}, Target: ir.Handle{Node: "op", Param: "y"}})

	na, _ := s.Node("a")
	nb, _ := s.Node("b")
	ns, err := s.Node("op")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	impl, ok, err := (simple.OperatorFactory{}).Create(opNode, ns)
	if !ok || err != nil {
		t.Fatalf("Create: ok=%v err=%v", ok, err)
	}

	feed := func(a, b float64) {
		na.Output(0).Append(telem.Float64Value(a))
		na.OutputTime(0).Append(telem.TimeStampValue(telem.Now()))
		nb.Output(0).Append(telem.Float64Value(b))
		nb.OutputTime(0).Append(telem.TimeStampValue(telem.Now()))
	}
	return impl, feed, ns
}

func TestOperatorNodeComputesAndPropagates(t *testing.T) {
	impl, feed, ns := buildOperatorNode(t, "add")
	feed(2, 3)
	if err := impl.Next(noopCtx()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got := ns.Output(0).At(-1).AsFloat64(); got != 5 {
		t.Fatalf("output = %v, want 5", got)
	}
}

func TestOperatorNodeSuppressesUnchangedOutput(t *testing.T) {
	impl, feed, _ := buildOperatorNode(t, "add")
	feed(2, 3)
	marks := 0
	ctx := &node.Context{MarkChanged: func(string) { marks++ }, ReportError: func(error) {}}
	if err := impl.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	feed(2, 3) // identical sum
	if err := impl.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if marks != 1 {
		t.Fatalf("marks = %d, want 1 (second tick's identical result should not propagate)", marks)
	}
}

func TestOperatorDivideByZero(t *testing.T) {
	impl, feed, _ := buildOperatorNode(t, "div")
	feed(1, 0)
	if err := impl.Next(noopCtx()); err == nil {
		t.Fatal("expected divide-by-zero error")
	}
}

func TestOperatorFactoryRequiresOp(t *testing.T) {
	_, ok, err := (simple.OperatorFactory{}).Create(ir.Node{Type: "operator", Key: "k"}, nil)
	if !ok {
		t.Fatal("expected OperatorFactory to claim an operator-typed node")
	}
	if err == nil {
		t.Fatal("expected error for an operator node missing its op")
	}
}

func TestTimeNodeAlwaysMarksChanged(t *testing.T) {
	s := state.New()
	irNode := ir.Node{Key: "t", Type: "time", Outputs: []ir.ParamType{{Name: "output", Kind: telem.TypeTimeStamp}}}
	s.RegisterNode(irNode)
	ns, err := s.Node("t")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	impl, ok, err := (simple.TimeFactory{}).Create(irNode, ns)
	if !ok || err != nil {
		t.Fatalf("Create: ok=%v err=%v", ok, err)
	}
	marks := 0
	ctx := &node.Context{MarkChanged: func(string) { marks++ }, ReportError: func(error) {}}
	for i := 0; i < 3; i++ {
		if err := impl.Next(ctx); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	if marks != 3 {
		t.Fatalf("marks = %d, want 3 (time node marks changed every tick)", marks)
	}
}

func TestEntryNodeActivatesStage(t *testing.T) {
	activated := false
	ctx := &node.Context{
		MarkChanged:   func(string) {},
		ReportError:   func(error) {},
		ActivateStage: func() { activated = true },
	}
	if err := (simple.EntryNode{}).Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !activated {
		t.Fatal("expected EntryNode.Next to call ctx.ActivateStage")
	}
}

func TestEntryFactoryMatchesPrefixOnly(t *testing.T) {
	if _, ok, _ := (simple.EntryFactory{}).Create(ir.Node{Key: "entry_seq_stageA"}, nil); !ok {
		t.Fatal("expected EntryFactory to claim an entry_-prefixed key")
	}
	if _, ok, _ := (simple.EntryFactory{}).Create(ir.Node{Key: "regular_node"}, nil); ok {
		t.Fatal("expected EntryFactory to decline a non-entry key")
	}
}

func TestIOFactoryRequiresBoundChannel(t *testing.T) {
	_, ok, err := (simple.IOFactory{}).Create(ir.Node{Type: "io", Key: "io1"}, nil)
	if !ok {
		t.Fatal("expected IOFactory to claim an io-typed node")
	}
	if err == nil {
		t.Fatal("expected error for an io node with no bound channel")
	}
}

func TestIONodePropagatesChannelValue(t *testing.T) {
	s := state.New()
	const chanKey telem.ChannelKey = 9
	s.RegisterChannel(state.ChannelDigest{Key: chanKey, Kind: telem.TypeFloat64})
	irNode := ir.Node{
		Key: "io1", Type: "io",
		Outputs:  []ir.ParamType{{Name: "output", Kind: telem.TypeFloat64}},
		Channels: ir.Channels{Read: map[telem.ChannelKey]string{chanKey: "in"}},
	}
	s.RegisterNode(irNode)
	ns, err := s.Node("io1")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	impl, ok, err := (simple.IOFactory{}).Create(irNode, ns)
	if !ok || err != nil {
		t.Fatalf("Create: ok=%v err=%v", ok, err)
	}

	frame := telem.NewFrame(1)
	series := telem.NewSeries(telem.TypeFloat64)
	series.Append(telem.Float64Value(11))
	frame.Emplace(chanKey, series)
	s.Ingest(frame)

	if err := impl.Next(noopCtx()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got := ns.Output(0).At(-1).AsFloat64(); got != 11 {
		t.Fatalf("output = %v, want 11", got)
	}
}

func TestIONodeSuppressesWithoutNewIngest(t *testing.T) {
	s := state.New()
	const chanKey telem.ChannelKey = 9
	s.RegisterChannel(state.ChannelDigest{Key: chanKey, Kind: telem.TypeFloat64})
	irNode := ir.Node{
		Key: "io1", Type: "io",
		Outputs:  []ir.ParamType{{Name: "output", Kind: telem.TypeFloat64}},
		Channels: ir.Channels{Read: map[telem.ChannelKey]string{chanKey: "in"}},
	}
	s.RegisterNode(irNode)
	ns, err := s.Node("io1")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	impl, ok, err := (simple.IOFactory{}).Create(irNode, ns)
	if !ok || err != nil {
		t.Fatalf("Create: ok=%v err=%v", ok, err)
	}

	frame := telem.NewFrame(1)
	series := telem.NewSeries(telem.TypeFloat64)
	series.Append(telem.Float64Value(11))
	frame.Emplace(chanKey, series)
	s.Ingest(frame)

	marks := 0
	ctx := &node.Context{MarkChanged: func(string) { marks++ }, ReportError: func(error) {}}
	if err := impl.Next(ctx); err != nil {
		t.Fatalf("Next (1st): %v", err)
	}
	if marks != 1 {
		t.Fatalf("marks after 1st Next = %d, want 1", marks)
	}

	// No new Ingest between calls: the channel's ingest timestamp hasn't
	// moved, so the second Next should not mark the output changed again.
	if err := impl.Next(ctx); err != nil {
		t.Fatalf("Next (2nd): %v", err)
	}
	if marks != 1 {
		t.Fatalf("marks after 2nd Next = %d, want still 1 (no new ingest)", marks)
	}
}
