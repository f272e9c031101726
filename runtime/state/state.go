// Package state implements the process-wide dataflow store described in
// spec §4.1 and the per-node NodeState facade of §4.2. State owns every
// node's output ValuePairs, the typed state-variable map, the channel
// registry, and the pending outbound-write buffers; NodeState narrows that
// down to one node's incoming edges and output handles, and performs the
// watermark-based temporal alignment algorithm.
package state

import (
	"fmt"
	"sync"

	"github.com/synnaxlabs/arc/ir"
	"github.com/synnaxlabs/arc/telem"
)

// StateKey packs a (function id, variable id) pair into a single uint64,
// uniquely identifying a WASM-scoped state variable.
type StateKey uint64

// MakeStateKey packs funcID into the upper 32 bits and varID into the lower
// 32 bits.
func MakeStateKey(funcID, varID uint32) StateKey {
	return StateKey(uint64(funcID)<<32 | uint64(varID))
}

// FuncID extracts the function id from a packed StateKey.
func (k StateKey) FuncID() uint32 { return uint32(k >> 32) }

// VarID extracts the variable id from a packed StateKey.
func (k StateKey) VarID() uint32 { return uint32(k) }

// ValuePair is a node output: the data series and its parallel timestamp
// series, shared by reference to downstream consumers for the duration of a
// tick.
type ValuePair struct {
	Data *telem.Series
	Time *telem.Series
}

// ChannelDigest is the metadata the embedder's network client returns for a
// channel key: its data type and, if the channel is indexed, the channel
// key that carries its timestamps.
type ChannelDigest struct {
	Key   telem.ChannelKey
	Kind  telem.TypeKind
	Index telem.ChannelKey // 0 if the channel carries its own timestamps
}

type channelEntry struct {
	digest ChannelDigest
	latest telem.SampleValue
	ts     telem.TimeStamp
	hasVal bool
}

type stateVar struct {
	kind telem.TypeKind
	val  any
}

// State is the process-wide dataflow store. All mutation happens on the
// runtime goroutine; State applies no internal locking on the hot path,
// matching the single-mutator rule in spec §5 (the mutex below guards only
// the pending-writes buffer, which may be inspected by diagnostics code
// running off the runtime goroutine).
type State struct {
	outputs  map[ir.Handle]*ValuePair
	edgesIn  map[string][]ir.Edge // node key -> incoming edges
	nodeMeta map[string]ir.Node
	channels map[telem.ChannelKey]*channelEntry
	vars     map[StateKey]stateVar

	writesMu sync.Mutex
	pending  map[telem.ChannelKey]*telem.Series
	pendingT map[telem.ChannelKey]*telem.Series
}

// New constructs an empty State.
func New() *State {
	return &State{
		outputs:  make(map[ir.Handle]*ValuePair),
		edgesIn:  make(map[string][]ir.Edge),
		nodeMeta: make(map[string]ir.Node),
		channels: make(map[telem.ChannelKey]*channelEntry),
		vars:     make(map[StateKey]stateVar),
		pending:  make(map[telem.ChannelKey]*telem.Series),
		pendingT: make(map[telem.ChannelKey]*telem.Series),
	}
}

// RegisterChannel records a channel's data type and optional index channel.
// Idempotent: re-registering the same key is a no-op beyond overwriting the
// digest.
func (s *State) RegisterChannel(d ChannelDigest) {
	if ce, ok := s.channels[d.Key]; ok {
		ce.digest = d
		return
	}
	s.channels[d.Key] = &channelEntry{digest: d}
}

// RegisterNode reserves ValuePair slots for every output param of n.
func (s *State) RegisterNode(n ir.Node) {
	s.nodeMeta[n.Key] = n
	for _, out := range n.Outputs {
		h := ir.Handle{Node: n.Key, Param: out.Name}
		if _, ok := s.outputs[h]; !ok {
			s.outputs[h] = &ValuePair{}
		}
	}
}

// AddEdge records e in the incoming-edge set of its target node.
func (s *State) AddEdge(e ir.Edge) {
	s.edgesIn[e.Target.Node] = append(s.edgesIn[e.Target.Node], e)
}

// Node constructs (or returns) the NodeState facade bound to key's incoming
// edges and output handles. Both must already be registered via AddEdge /
// RegisterNode.
func (s *State) Node(key string) (*NodeState, error) {
	meta, ok := s.nodeMeta[key]
	if !ok {
		return nil, fmt.Errorf("arc.module.unknown_node: %q was never registered", key)
	}
	outputs := make([]ir.Handle, len(meta.Outputs))
	for i, out := range meta.Outputs {
		outputs[i] = ir.Handle{Node: key, Param: out.Name}
	}
	return newNodeState(s, key, s.edgesIn[key], outputs), nil
}

// getOutput returns the ValuePair for h, lazily allocating the slot if this
// is the first access (e.g. a channel-ingest target not listed as a node
// output).
func (s *State) getOutput(h ir.Handle) *ValuePair {
	vp, ok := s.outputs[h]
	if !ok {
		vp = &ValuePair{}
		s.outputs[h] = vp
	}
	return vp
}

// Ingest applies an inbound Frame: for each series in the frame, locates the
// target node/param through the channel's read-param mapping and appends to
// that input's ValuePair, exactly as if a source node had produced the
// series.
func (s *State) Ingest(f *telem.Frame) {
	f.Range(func(key telem.ChannelKey, series *telem.Series) {
		now := telem.Now()
		ce, ok := s.channels[key]
		if ok {
			ce.latest = series.At(-1)
			ce.ts = now
			ce.hasVal = true
		}
		for nodeKey, meta := range s.nodeMeta {
			param, ok := meta.Channels.Read[key]
			if !ok {
				continue
			}
			h := ir.Handle{Node: nodeKey, Param: param}
			vp := s.getOutput(h)
			if vp.Data == nil {
				vp.Data = telem.NewSeries(series.Kind)
				vp.Time = telem.NewSeries(telem.TypeTimeStamp)
			}
			for i := 0; i < series.Len(); i++ {
				vp.Data.Append(series.At(i))
				vp.Time.Append(telem.TimeStampValue(now))
			}
		}
	})
}

// ReadChannel returns the latest sample ingested for key.
func (s *State) ReadChannel(key telem.ChannelKey) (telem.SampleValue, error) {
	ce, ok := s.channels[key]
	if !ok {
		return telem.SampleValue{}, fmt.Errorf("arc.module.unknown_channel: %d", key)
	}
	if !ce.hasVal {
		return telem.SampleValue{}, nil
	}
	return ce.latest, nil
}

// ChannelTimestamp returns the timestamp at which the latest sample for key
// was ingested (zero value if nothing has arrived yet). Nodes that only
// propagate on new data, such as simple.IONode, compare against this instead
// of wall-clock time so that re-reading an unchanged channel on a later tick
// is correctly recognized as "no new data".
func (s *State) ChannelTimestamp(key telem.ChannelKey) (telem.TimeStamp, bool, error) {
	ce, ok := s.channels[key]
	if !ok {
		return 0, false, fmt.Errorf("arc.module.unknown_channel: %d", key)
	}
	return ce.ts, ce.hasVal, nil
}

// WriteChannel enqueues an outbound sample for key, to be drained by the
// next Flush. ts is the node's output timestamp for the tick producing this
// write (or "now" for sourceless nodes, per spec §4.2).
func (s *State) WriteChannel(key telem.ChannelKey, value telem.SampleValue, ts telem.TimeStamp) error {
	if _, ok := s.channels[key]; !ok {
		return fmt.Errorf("arc.module.unknown_channel: %d", key)
	}
	s.writesMu.Lock()
	defer s.writesMu.Unlock()
	data, ok := s.pending[key]
	if !ok {
		data = telem.NewSeries(value.Kind)
		s.pending[key] = data
		s.pendingT[key] = telem.NewSeries(telem.TypeTimeStamp)
	}
	data.Append(value)
	s.pendingT[key].Append(telem.TimeStampValue(ts))
	return nil
}

// Flush drains the accumulated outbound writes and returns them as a
// channel-key-to-ValuePair map, pairing each channel's data series with its
// parallel per-sample timestamp series; the caller forms a Frame carrying
// both and sends it.
func (s *State) Flush() map[telem.ChannelKey]*ValuePair {
	s.writesMu.Lock()
	defer s.writesMu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	out := make(map[telem.ChannelKey]*ValuePair, len(s.pending))
	for k, v := range s.pending {
		out[k] = &ValuePair{Data: v, Time: s.pendingT[k]}
	}
	s.pending = make(map[telem.ChannelKey]*telem.Series)
	s.pendingT = make(map[telem.ChannelKey]*telem.Series)
	return out
}

// LoadState returns the current value for key, or init if this is the first
// access. A type mismatch between the stored value and the requested type T
// is a fatal configuration error, but per spec §4.1 the load itself still
// returns init on first access — the mismatch is only surfaced on store.
func LoadState[T any](s *State, key StateKey, init T) T {
	if v, ok := s.vars[key]; ok {
		if tv, ok := v.val.(T); ok {
			return tv
		}
	}
	return init
}

// StoreState writes value for key. If a value of a different type was
// already stored under key, the write is rejected and an error returned
// rather than silently corrupting the slot.
func StoreState[T any](s *State, key StateKey, value T) error {
	if existing, ok := s.vars[key]; ok {
		if _, ok := existing.val.(T); !ok {
			return fmt.Errorf(
				"arc.module.state_type_mismatch: var %d/%d already holds %T, rejected %T",
				key.FuncID(), key.VarID(), existing.val, value,
			)
		}
	}
	s.vars[key] = stateVar{val: value}
	return nil
}
