package state

import (
	"github.com/synnaxlabs/arc/ir"
	"github.com/synnaxlabs/arc/telem"
)

// inputEntry is the per-input accumulation buffer used for temporal
// alignment: every source ValuePair whose last timestamp exceeds the
// input's watermark is appended here until all inputs have at least one
// entry, at which point refreshInputs picks a trigger and prunes.
type inputEntry struct {
	data      []*telem.Series
	time      []*telem.Series
	watermark telem.TimeStamp
}

func (e *inputEntry) empty() bool { return len(e.data) == 0 }

// NodeState is one node's view of State: its incoming edges, its output
// handles, and the pre-allocated alignment buffers described in spec §4.2.
// NodeState is owned by State and outlives individual ticks; it is never
// reconstructed on the hot path.
type NodeState struct {
	state   *State
	nodeKey string

	inputs  []ir.Edge
	outputs []ir.Handle

	accumulated []inputEntry
	alignedData []*telem.Series
	alignedTime []*telem.Series
}

func newNodeState(s *State, nodeKey string, inputs []ir.Edge, outputs []ir.Handle) *NodeState {
	return &NodeState{
		state:       s,
		nodeKey:     nodeKey,
		inputs:      inputs,
		outputs:     outputs,
		accumulated: make([]inputEntry, len(inputs)),
		alignedData: make([]*telem.Series, len(inputs)),
		alignedTime: make([]*telem.Series, len(inputs)),
	}
}

// NodeKey returns the bound node's identifier.
func (ns *NodeState) NodeKey() string { return ns.nodeKey }

// NumInputs returns the number of input edges.
func (ns *NodeState) NumInputs() int { return len(ns.inputs) }

// NumOutputs returns the number of output params.
func (ns *NodeState) NumOutputs() int { return len(ns.outputs) }

// RefreshInputs implements the watermark-based temporal alignment algorithm
// from spec §4.2:
//  1. Accumulate: append any source series whose last timestamp exceeds this
//     input's watermark.
//  2. Readiness: if any input has nothing accumulated, the node is not ready.
//  3. Trigger selection: the input with the smallest new last-timestamp
//     becomes the trigger.
//  4. Align: the trigger input gets its triggering series; every other input
//     holds its most recently accumulated series (catch-up). All watermarks
//     advance to the trigger timestamp.
//  5. Prune: drop accumulated series that are now at or before the
//     watermark.
//
// A sourceless node (zero inputs) is always ready — callers distinguish the
// "run once per activation" vs. "run every tick" cases themselves (see
// wasm.Node).
func (ns *NodeState) RefreshInputs() bool {
	if len(ns.inputs) == 0 {
		return true
	}

	for i, edge := range ns.inputs {
		src := ns.state.getOutput(edge.Source)
		if src.Data == nil || src.Data.Empty() || src.Time == nil || src.Time.Empty() {
			continue
		}
		lastTS := src.Time.LastTimeStamp()
		if lastTS <= ns.accumulated[i].watermark {
			continue
		}
		ns.accumulated[i].data = append(ns.accumulated[i].data, src.Data)
		ns.accumulated[i].time = append(ns.accumulated[i].time, src.Time)
	}

	for i := range ns.accumulated {
		if ns.accumulated[i].empty() {
			return false
		}
	}

	triggerIdx := -1
	triggerSeriesIdx := -1
	var triggerTS telem.TimeStamp
	for i := range ns.accumulated {
		entry := &ns.accumulated[i]
		for j, t := range entry.time {
			if t.Empty() {
				continue
			}
			ts := t.LastTimeStamp()
			if ts > entry.watermark {
				if triggerIdx == -1 || ts < triggerTS {
					triggerIdx, triggerSeriesIdx, triggerTS = i, j, ts
				}
				break
			}
		}
	}
	if triggerIdx == -1 {
		return false
	}

	for i := range ns.accumulated {
		entry := &ns.accumulated[i]
		if i == triggerIdx {
			ns.alignedData[i] = entry.data[triggerSeriesIdx]
			ns.alignedTime[i] = entry.time[triggerSeriesIdx]
		} else {
			last := len(entry.data) - 1
			ns.alignedData[i] = entry.data[last]
			ns.alignedTime[i] = entry.time[last]
		}
		entry.watermark = triggerTS
	}

	for i := range ns.accumulated {
		entry := &ns.accumulated[i]
		keepFrom := 0
		for j, t := range entry.time {
			if t.Empty() {
				continue
			}
			if t.LastTimeStamp() > entry.watermark {
				keepFrom = j
				break
			}
			keepFrom = j + 1
		}
		if keepFrom > 0 {
			entry.data = append([]*telem.Series{}, entry.data[keepFrom:]...)
			entry.time = append([]*telem.Series{}, entry.time[keepFrom:]...)
		}
	}

	return true
}

// Input returns the aligned input data series at index i (valid only after
// RefreshInputs returns true).
func (ns *NodeState) Input(i int) *telem.Series { return ns.alignedData[i] }

// InputTime returns the aligned input timestamp series at index i.
func (ns *NodeState) InputTime(i int) *telem.Series { return ns.alignedTime[i] }

// Output lazily allocates and returns this node's mutable output data series
// at index i.
func (ns *NodeState) Output(i int) *telem.Series {
	vp := ns.state.getOutput(ns.outputs[i])
	if vp.Data == nil {
		vp.Data = telem.NewSeries(telem.TypeUnknown)
	}
	return vp.Data
}

// OutputTime lazily allocates and returns this node's mutable output
// timestamp series at index i.
func (ns *NodeState) OutputTime(i int) *telem.Series {
	vp := ns.state.getOutput(ns.outputs[i])
	if vp.Time == nil {
		vp.Time = telem.NewSeries(telem.TypeTimeStamp)
	}
	return vp.Time
}

// IsOutputTruthy reports whether the named output's most recent sample is
// truthy, per the OneShot edge rule.
func (ns *NodeState) IsOutputTruthy(param string) bool {
	for _, h := range ns.outputs {
		if h.Param == param {
			vp := ns.state.getOutput(h)
			if vp.Data == nil || vp.Data.Empty() {
				return false
			}
			return vp.Data.At(-1).Truthy()
		}
	}
	return false
}

// ReadChannel reads the latest sample for an external channel.
func (ns *NodeState) ReadChannel(key telem.ChannelKey) (telem.SampleValue, error) {
	return ns.state.ReadChannel(key)
}

// ReadChannelTimestamp returns the ingest timestamp of the latest sample for
// an external channel, and whether any sample has arrived yet.
func (ns *NodeState) ReadChannelTimestamp(key telem.ChannelKey) (telem.TimeStamp, bool, error) {
	return ns.state.ChannelTimestamp(key)
}

// WriteChannel enqueues a channel write using ts as the sample's timestamp.
func (ns *NodeState) WriteChannel(key telem.ChannelKey, value telem.SampleValue, ts telem.TimeStamp) error {
	return ns.state.WriteChannel(key, value, ts)
}

// LoadVar loads a typed state variable scoped to funcID (this node's
// compiled function id, stable across ticks) and varID.
func LoadVar[T any](ns *NodeState, funcID, varID uint32, init T) T {
	return LoadState(ns.state, MakeStateKey(funcID, varID), init)
}

// StoreVar stores a typed state variable scoped to funcID and varID.
func StoreVar[T any](ns *NodeState, funcID, varID uint32, value T) error {
	return StoreState(ns.state, MakeStateKey(funcID, varID), value)
}
