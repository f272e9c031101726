package interval_test

import (
	"testing"
	"time"

	"github.com/synnaxlabs/arc/ir"
	"github.com/synnaxlabs/arc/runtime/node"
	"github.com/synnaxlabs/arc/runtime/node/interval"
	"github.com/synnaxlabs/arc/runtime/state"
	"github.com/synnaxlabs/arc/telem"
)

func buildNode(t *testing.T, periodNanos float64) (*interval.Node, *state.State) {
	t.Helper()
	s := state.New()
	const outCh telem.ChannelKey = 3
	s.RegisterChannel(state.ChannelDigest{Key: outCh, Kind: telem.TypeUint8})
	irNode := ir.Node{
		Key: "tick", Type: interval.TypeName,
		ConfigValues: map[string]any{"period": periodNanos},
		Channels:     ir.Channels{Write: map[string]telem.ChannelKey{"output": outCh}},
	}
	s.RegisterNode(irNode)
	ns, err := s.Node("tick")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	impl, ok, err := (interval.Factory{}).Create(irNode, ns)
	if !ok || err != nil {
		t.Fatalf("Create: ok=%v err=%v", ok, err)
	}
	n, ok := impl.(*interval.Node)
	if !ok {
		t.Fatalf("Create returned %T, want *interval.Node", impl)
	}
	return n, s
}

func TestFactoryRejectsMissingPeriod(t *testing.T) {
	_, ok, err := (interval.Factory{}).Create(ir.Node{Type: interval.TypeName, Key: "k"}, nil)
	if !ok {
		t.Fatal("expected Factory to claim an interval-typed node")
	}
	if err == nil {
		t.Fatal("expected error for a missing period")
	}
}

func TestFactoryRejectsMissingOutputChannel(t *testing.T) {
	_, ok, err := (interval.Factory{}).Create(ir.Node{
		Type: interval.TypeName, Key: "k", ConfigValues: map[string]any{"period": float64(time.Millisecond)},
	}, nil)
	if !ok {
		t.Fatal("expected Factory to claim an interval-typed node")
	}
	if err == nil {
		t.Fatal("expected error for a node with no output channel binding")
	}
}

func TestPeriodReflectsConfiguredValue(t *testing.T) {
	n, _ := buildNode(t, float64(250*time.Millisecond))
	if n.Period() != 250*time.Millisecond {
		t.Fatalf("Period() = %v, want 250ms", n.Period())
	}
}

func TestNextSuppressesBeforePeriodElapses(t *testing.T) {
	n, _ := buildNode(t, float64(time.Hour))
	marks := 0
	ctx := &node.Context{MarkChanged: func(string) { marks++ }, ReportError: func(error) {}}
	if err := n.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if marks != 0 {
		t.Fatalf("marks = %d, want 0 (period not yet elapsed since construction)", marks)
	}
}

func TestNextFiresAfterReset(t *testing.T) {
	n, s := buildNode(t, float64(time.Hour))
	n.Reset() // zeroes lastExec, so the next tick always fires regardless of period

	marks := 0
	ctx := &node.Context{MarkChanged: func(string) { marks++ }, ReportError: func(error) {}}
	if err := n.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if marks != 1 {
		t.Fatalf("marks = %d, want 1 after Reset", marks)
	}

	out := s.Flush()
	if _, ok := out[telem.ChannelKey(3)]; !ok {
		t.Fatal("expected a pending write on the configured output channel")
	}
}

func TestIsOutputTruthy(t *testing.T) {
	n, _ := buildNode(t, float64(time.Millisecond))
	if !n.IsOutputTruthy("output") {
		t.Fatal("interval node's output is always truthy")
	}
	if n.IsOutputTruthy("other") {
		t.Fatal("expected false for an unrecognized param name")
	}
}
