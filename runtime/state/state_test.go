package state_test

import (
	"testing"

	"github.com/synnaxlabs/arc/ir"
	"github.com/synnaxlabs/arc/runtime/state"
	"github.com/synnaxlabs/arc/telem"
)

func TestIngestFeedsBoundInput(t *testing.T) {
	s := state.New()
	const chanKey telem.ChannelKey = 1
	s.RegisterChannel(state.ChannelDigest{Key: chanKey, Kind: telem.TypeFloat64})
	s.RegisterNode(ir.Node{
		Key:      "consumer",
		Inputs:   []ir.ParamType{{Name: "in", Kind: telem.TypeFloat64}},
		Channels: ir.Channels{Read: map[telem.ChannelKey]string{chanKey: "in"}},
	})

	series := telem.NewSeries(telem.TypeFloat64)
	series.Append(telem.Float64Value(42))
	frame := telem.NewFrame(1)
	frame.Emplace(chanKey, series)

	s.Ingest(frame)

	v, err := s.ReadChannel(chanKey)
	if err != nil {
		t.Fatalf("ReadChannel: %v", err)
	}
	if v.AsFloat64() != 42 {
		t.Fatalf("ReadChannel() = %v, want 42", v.AsFloat64())
	}
}

func TestReadChannelUnknownErrors(t *testing.T) {
	s := state.New()
	if _, err := s.ReadChannel(telem.ChannelKey(99)); err == nil {
		t.Fatal("expected error reading an unregistered channel")
	}
}

func TestWriteChannelUnknownErrors(t *testing.T) {
	s := state.New()
	err := s.WriteChannel(telem.ChannelKey(99), telem.Float64Value(1), telem.Now())
	if err == nil {
		t.Fatal("expected error writing an unregistered channel")
	}
}

func TestWriteThenFlushDrainsPending(t *testing.T) {
	s := state.New()
	const chanKey telem.ChannelKey = 5
	s.RegisterChannel(state.ChannelDigest{Key: chanKey, Kind: telem.TypeFloat64})

	if err := s.WriteChannel(chanKey, telem.Float64Value(1), telem.Now()); err != nil {
		t.Fatalf("WriteChannel: %v", err)
	}
	if err := s.WriteChannel(chanKey, telem.Float64Value(2), telem.Now()); err != nil {
		t.Fatalf("WriteChannel: %v", err)
	}

	out := s.Flush()
	vp, ok := out[chanKey]
	if !ok {
		t.Fatalf("expected channel %d in Flush() output", chanKey)
	}
	if vp.Data.Len() != 2 {
		t.Fatalf("Data.Len() = %d, want 2", vp.Data.Len())
	}
	if vp.Time.Len() != 2 {
		t.Fatalf("Time.Len() = %d, want 2", vp.Time.Len())
	}

	if again := s.Flush(); again != nil {
		t.Fatalf("second Flush() should be empty, got %v", again)
	}
}

func TestLoadStoreStateRoundTrip(t *testing.T) {
	s := state.New()
	key := state.MakeStateKey(1, 2)

	if got := state.LoadState(s, key, 7); got != 7 {
		t.Fatalf("LoadState() before Store = %d, want init 7", got)
	}
	if err := state.StoreState(s, key, 99); err != nil {
		t.Fatalf("StoreState: %v", err)
	}
	if got := state.LoadState(s, key, 7); got != 99 {
		t.Fatalf("LoadState() after Store = %d, want 99", got)
	}
}

func TestStoreStateRejectsTypeMismatch(t *testing.T) {
	s := state.New()
	key := state.MakeStateKey(1, 2)
	if err := state.StoreState(s, key, 99); err != nil {
		t.Fatalf("StoreState: %v", err)
	}
	if err := state.StoreState(s, key, "oops"); err == nil {
		t.Fatal("expected type mismatch error storing a string over an int slot")
	}
}

func TestStateKeyPacksFuncAndVarID(t *testing.T) {
	key := state.MakeStateKey(7, 13)
	if key.FuncID() != 7 {
		t.Fatalf("FuncID() = %d, want 7", key.FuncID())
	}
	if key.VarID() != 13 {
		t.Fatalf("VarID() = %d, want 13", key.VarID())
	}
}

func TestNodeUnregisteredErrors(t *testing.T) {
	s := state.New()
	if _, err := s.Node("missing"); err == nil {
		t.Fatal("expected error for an unregistered node key")
	}
}

func TestNodeRefreshInputsSourceless(t *testing.T) {
	s := state.New()
	s.RegisterNode(ir.Node{Key: "source", Outputs: []ir.ParamType{{Name: "out", Kind: telem.TypeFloat64}}})
	ns, err := s.Node("source")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if !ns.RefreshInputs() {
		t.Fatal("a node with zero inputs should always be ready")
	}
}

func TestNodeOutputAndIsOutputTruthy(t *testing.T) {
	s := state.New()
	s.RegisterNode(ir.Node{Key: "src", Outputs: []ir.ParamType{{Name: "out", Kind: telem.TypeFloat64}}})
	ns, err := s.Node("src")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if ns.IsOutputTruthy("out") {
		t.Fatal("expected output not truthy before any value is written")
	}
	ns.Output(0).Append(telem.Float64Value(1))
	ns.OutputTime(0).Append(telem.TimeStampValue(telem.Now()))
	if !ns.IsOutputTruthy("out") {
		t.Fatal("expected output truthy after writing a nonzero value")
	}
}

func TestRefreshInputsAlignsOnTrigger(t *testing.T) {
	s := state.New()
	s.RegisterNode(ir.Node{Key: "a", Outputs: []ir.ParamType{{Name: "out", Kind: telem.TypeFloat64}}})
	s.RegisterNode(ir.Node{Key: "b", Outputs: []ir.ParamType{{Name: "out", Kind: telem.TypeFloat64}}})
	s.RegisterNode(ir.Node{Key: "c", Inputs: []ir.ParamType{
		{Name: "x", Kind: telem.TypeFloat64}, {Name: "y", Kind: telem.TypeFloat64},
	}})
	s.AddEdge(ir.Edge{Source: ir.Handle{Node: "a", Param: "out"}, Target: ir.Handle{Node: "c", Param: "x"}})
	s.AddEdge(ir.Edge{Source: ir.Handle{Node: "b", Param: "out"}, Target: ir.Handle{Node: "c", Param: "y"}})

	na, _ := s.Node("a")
	nb, _ := s.Node("b")
	nc, err := s.Node("c")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}

	if nc.RefreshInputs() {
		t.Fatal("expected c not ready before both inputs produce data")
	}

	na.Output(0).Append(telem.Float64Value(1))
	na.OutputTime(0).Append(telem.TimeStampValue(1000))
	if nc.RefreshInputs() {
		t.Fatal("expected c still not ready: b has produced nothing")
	}

	nb.Output(0).Append(telem.Float64Value(2))
	nb.OutputTime(0).Append(telem.TimeStampValue(2000))
	if !nc.RefreshInputs() {
		t.Fatal("expected c ready once both inputs have data")
	}
	if nc.Input(0).At(-1).AsFloat64() != 1 {
		t.Fatalf("Input(0) = %v, want 1", nc.Input(0).At(-1).AsFloat64())
	}
	if nc.Input(1).At(-1).AsFloat64() != 2 {
		t.Fatalf("Input(1) = %v, want 2", nc.Input(1).At(-1).AsFloat64())
	}
}
