// Package ir defines the intermediate representation produced by the Arc
// compiler: the node/edge graph, its stratification, and the stage/sequence
// state-machine topology. The IR is a pure data structure — the scheduler
// and node factories interpret it, but this package performs no execution.
package ir

import (
	"fmt"

	"github.com/synnaxlabs/arc/telem"
)

// Handle identifies an input or output port of a node: (node key, param
// name).
type Handle struct {
	Node  string
	Param string
}

func (h Handle) String() string { return h.Node + "." + h.Param }

// EdgeKind distinguishes edges that propagate on every change (Continuous)
// from edges that propagate at most once per activation scope (OneShot).
type EdgeKind uint8

const (
	Continuous EdgeKind = iota
	OneShot
)

func (k EdgeKind) String() string {
	if k == OneShot {
		return "one_shot"
	}
	return "continuous"
}

// Edge declares that Target's input changes when Source's output changes.
type Edge struct {
	Source Handle
	Target Handle
	Kind   EdgeKind
}

// Key returns a value suitable for using Edge as a map/set key (Edge is
// already comparable, but Key documents intent at call sites that build the
// fired-one-shot sets).
func (e Edge) Key() Edge { return e }

// Strata is an ordered list of independent node-key groups: stratum 0 is
// always eligible, and stratum k>0 executes a node only if it was marked
// changed while executing stratum k-1.
type Strata [][]string

// ParamType describes a single typed parameter of a node or function.
type ParamType struct {
	Name string
	Kind telem.TypeKind
}

// Param is a declared node parameter together with an optional literal
// configuration value (used for `config` params).
type Param struct {
	Name  string
	Kind  telem.TypeKind
	Value any // present only for config params with a literal value
}

// Channels records a node's external channel bindings: which input params
// are fed by a channel, and which output params write to one.
type Channels struct {
	Read  map[telem.ChannelKey]string // channel key -> input param name
	Write map[string]telem.ChannelKey // output param name -> channel key
}

// Node is the IR's description of a single executable unit.
type Node struct {
	Key          string
	Type         string
	Inputs       []ParamType
	Outputs      []ParamType
	Config       []Param
	Channels     Channels
	ConfigValues map[string]any
}

// Stage is a set of strata with its own local one-shot firing scope. A
// sequence's active stage is the only stage whose strata execute on a given
// tick.
type Stage struct {
	Key    string
	Strata Strata
}

// Sequence is an ordered list of stages, of which at most one is active at
// any instant.
type Sequence struct {
	Key    string
	Stages []Stage
}

// Function describes the typed signature of a compiled WASM export.
type Function struct {
	Name    string
	Params  []telem.TypeKind
	Results []telem.TypeKind
}

// IR is the complete compiled program: nodes, edges, the global strata, the
// sequence/stage topology, and the set of compiled function signatures.
type IR struct {
	Nodes     []Node
	Edges     []Edge
	Strata    Strata
	Sequences []Sequence
	Functions map[string]Function
}

// NodeByKey returns the IR node with the given key, or false if absent.
func (ir *IR) NodeByKey(key string) (Node, bool) {
	for _, n := range ir.Nodes {
		if n.Key == key {
			return n, true
		}
	}
	return Node{}, false
}

// EdgesFrom groups this IR's edges by their source node and output param
// name, mirroring the scheduler's `edges_from` lookup used to build each
// node's outgoing-edge table once at construction time.
func (ir *IR) EdgesFrom(nodeKey string) map[string][]Edge {
	out := make(map[string][]Edge)
	for _, e := range ir.Edges {
		if e.Source.Node == nodeKey {
			out[e.Source.Param] = append(out[e.Source.Param], e)
		}
	}
	return out
}

// Validate checks the structural invariants from the data model: every
// edge's endpoints reference existing nodes and params, and every node key
// referenced by a stratum exists.
func (ir *IR) Validate() error {
	nodes := make(map[string]Node, len(ir.Nodes))
	for _, n := range ir.Nodes {
		nodes[n.Key] = n
	}
	hasParam := func(n Node, name string, outputs bool) bool {
		params := n.Inputs
		if outputs {
			params = n.Outputs
		}
		for _, p := range params {
			if p.Name == name {
				return true
			}
		}
		return false
	}
	for _, e := range ir.Edges {
		src, ok := nodes[e.Source.Node]
		if !ok {
			return fmt.Errorf("arc.module.unknown_node: edge source %q not found", e.Source.Node)
		}
		if !hasParam(src, e.Source.Param, true) {
			return fmt.Errorf("arc.module.unknown_param: %q has no output %q", e.Source.Node, e.Source.Param)
		}
		tgt, ok := nodes[e.Target.Node]
		if !ok {
			return fmt.Errorf("arc.module.unknown_node: edge target %q not found", e.Target.Node)
		}
		if !hasParam(tgt, e.Target.Param, false) {
			return fmt.Errorf("arc.module.unknown_param: %q has no input %q", e.Target.Node, e.Target.Param)
		}
	}
	checkStrata := func(s Strata) error {
		for _, stratum := range s {
			for _, key := range stratum {
				if _, ok := nodes[key]; !ok {
					return fmt.Errorf("arc.module.unknown_node: stratum references %q", key)
				}
			}
		}
		return nil
	}
	if err := checkStrata(ir.Strata); err != nil {
		return err
	}
	for _, seq := range ir.Sequences {
		for _, stage := range seq.Stages {
			if err := checkStrata(stage.Strata); err != nil {
				return err
			}
		}
	}
	return nil
}

// EntryKey returns the conventional activator node key for (seq, stage):
// `entry_<seq>_<stage>`.
func EntryKey(seq, stage string) string {
	return "entry_" + seq + "_" + stage
}
