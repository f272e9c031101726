// Package scheduler drives the stratified node graph and the stage/sequence
// state machine described in spec §4.5, grounded on the original runtime's
// `scheduler::Scheduler`.
package scheduler

import (
	"time"

	"github.com/synnaxlabs/arc/ir"
	"github.com/synnaxlabs/arc/runtime/node"
	"github.com/synnaxlabs/arc/runtime/rlog"
)

const noIndex = ^uint(0)

type schedNode struct {
	outputEdges map[string][]ir.Edge
	impl        node.Node
}

type stage struct {
	strata        ir.Strata
	firedOneShots map[ir.Edge]struct{}
}

type sequence struct {
	stages        []stage
	activeStageIx uint
}

// Scheduler executes the global strata every tick, then drives each
// sequence's active stage to convergence, propagating changes between
// strata via mark_changed and between stages via ActivateStage.
type Scheduler struct {
	nodes       map[string]*schedNode
	globalStrata ir.Strata
	sequences   []sequence
	transitions map[string][2]int // entry key -> (seq idx, stage idx)
	maxConvergenceIterations int

	ctx                  node.Context
	changed              map[string]struct{}
	globalFiredOneShots  map[ir.Edge]struct{}
	currNodeKey          string
	currSeqIdx           uint
	currStageIdx         uint
}

// New constructs a Scheduler from prog and the already-instantiated node
// implementations keyed by node key.
func New(prog *ir.IR, impls map[string]node.Node) *Scheduler {
	s := &Scheduler{
		nodes:               make(map[string]*schedNode, len(impls)),
		globalStrata:        prog.Strata,
		transitions:         make(map[string][2]int),
		changed:             make(map[string]struct{}),
		globalFiredOneShots: make(map[ir.Edge]struct{}),
		currSeqIdx:          noIndex,
		currStageIdx:        noIndex,
	}
	for key, impl := range impls {
		s.nodes[key] = &schedNode{outputEdges: prog.EdgesFrom(key), impl: impl}
	}

	s.sequences = make([]sequence, len(prog.Sequences))
	for i, seqIR := range prog.Sequences {
		seq := &s.sequences[i]
		seq.activeStageIx = uint(noIndex)
		seq.stages = make([]stage, len(seqIR.Stages))
		s.maxConvergenceIterations += len(seqIR.Stages)
		for j, stageIR := range seqIR.Stages {
			seq.stages[j] = stage{strata: stageIR.Strata, firedOneShots: make(map[ir.Edge]struct{})}
			entryKey := ir.EntryKey(seqIR.Key, stageIR.Key)
			s.transitions[entryKey] = [2]int{i, j}
		}
	}

	s.ctx = node.Context{
		MarkChanged:   s.markChanged,
		ReportError:   s.reportError,
		ActivateStage: s.transitionStage,
	}
	return s
}

// Next advances the scheduler by one tick: execute the global strata, then
// run every sequence's active stage to convergence.
func (s *Scheduler) Next(elapsed time.Duration) {
	s.ctx.Elapsed = elapsed
	s.currSeqIdx = uint(noIndex)
	s.currStageIdx = uint(noIndex)
	s.executeStrata(s.globalStrata)
	s.execStages()
}

func (s *Scheduler) currNode() *schedNode { return s.nodes[s.currNodeKey] }

func (s *Scheduler) currStage() *stage {
	return &s.sequences[s.currSeqIdx].stages[s.currStageIdx]
}

// executeStrata clears changed, runs stratum 0 unconditionally, and runs
// stratum k>0 only for nodes marked changed while executing stratum k-1.
func (s *Scheduler) executeStrata(strata ir.Strata) {
	for k := range s.changed {
		delete(s.changed, k)
	}
	first := true
	for _, stratum := range strata {
		for _, key := range stratum {
			_, isChanged := s.changed[key]
			if first || isChanged {
				s.currNodeKey = key
				n := s.currNode()
				if n == nil {
					continue
				}
				if err := n.impl.Next(&s.ctx); err != nil {
					s.reportError(err)
				}
			}
		}
		first = false
	}
}

// execStages loops every sequence's active stage to convergence, bounded by
// maxConvergenceIterations (the sum of every sequence's stage count).
func (s *Scheduler) execStages() {
	for iter := 0; iter < s.maxConvergenceIterations; iter++ {
		stable := true
		for i := range s.sequences {
			s.currSeqIdx = uint(i)
			seq := &s.sequences[i]
			if seq.activeStageIx == uint(noIndex) {
				continue
			}
			s.currStageIdx = seq.activeStageIx
			s.executeStrata(seq.stages[s.currStageIdx].strata)
			if seq.activeStageIx != s.currStageIdx {
				stable = false
			}
		}
		if stable {
			break
		}
	}
}

// reportError logs a per-node error against whichever node is currently
// executing, bound as Context.ReportError.
func (s *Scheduler) reportError(err error) {
	rlog.NodeError(s.currNodeKey, err)
}

// markChanged implements the Continuous/OneShot edge propagation rule: a
// Continuous edge always propagates; a OneShot edge propagates only the
// first time it fires within its scope (stage-local if inside a stage,
// global otherwise) and only while its source output is truthy.
func (s *Scheduler) markChanged(param string) {
	n := s.currNode()
	if n == nil {
		return
	}
	for _, edge := range n.outputEdges[param] {
		if edge.Kind == ir.Continuous {
			s.changed[edge.Target.Node] = struct{}{}
			continue
		}
		if !n.impl.IsOutputTruthy(param) {
			continue
		}
		firedSet := s.globalFiredOneShots
		if s.currStageIdx != uint(noIndex) {
			firedSet = s.currStage().firedOneShots
		}
		if _, already := firedSet[edge]; already {
			continue
		}
		firedSet[edge] = struct{}{}
		s.changed[edge.Target.Node] = struct{}{}
	}
}

// resetStrata calls Reset on every node referenced by strata.
func (s *Scheduler) resetStrata(strata ir.Strata) {
	for _, stratum := range strata {
		for _, key := range stratum {
			if n := s.nodes[key]; n != nil {
				n.impl.Reset()
			}
		}
	}
}

// transitionStage deactivates the current sequence's stage, clears the
// target stage's one-shot firing set, resets its nodes, and activates it.
// Bound as Context.ActivateStage; invoked by a node (conventionally an
// `entry_<seq>_<stage>` node) during its own Next call.
func (s *Scheduler) transitionStage() {
	if s.currSeqIdx != uint(noIndex) {
		s.sequences[s.currSeqIdx].activeStageIx = uint(noIndex)
	}
	target, ok := s.transitions[s.currNodeKey]
	if !ok {
		rlog.Component("scheduler").Warn().
			Str("node", s.currNodeKey).
			Msg("activate_stage called from a node with no transition entry")
		return
	}
	targetSeqIdx, targetStageIdx := target[0], target[1]
	targetStage := &s.sequences[targetSeqIdx].stages[targetStageIdx]
	targetStage.firedOneShots = make(map[ir.Edge]struct{})
	s.resetStrata(targetStage.strata)
	s.sequences[targetSeqIdx].activeStageIx = uint(targetStageIdx)
}

// Reset returns every node and every sequence to its initial (inactive)
// state, matching the runtime-level reset described in spec §4.5.
func (s *Scheduler) Reset() {
	for _, n := range s.nodes {
		n.impl.Reset()
	}
	for i := range s.sequences {
		s.sequences[i].activeStageIx = uint(noIndex)
		for j := range s.sequences[i].stages {
			s.sequences[i].stages[j].firedOneShots = make(map[ir.Edge]struct{})
		}
	}
	for k := range s.globalFiredOneShots {
		delete(s.globalFiredOneShots, k)
	}
}
