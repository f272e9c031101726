// Package runtime assembles and drives a compiled Arc module: State,
// Bindings, the WASM engine, the node factories, the Scheduler, the Loop,
// and the breaker, wired together exactly as `runtime.h`'s `load`/`run`
// free functions do, expressed as Go's idiomatic Load/Start/Stop/Write/Read
// surface.
package runtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/synnaxlabs/arc/module"
	"github.com/synnaxlabs/arc/runtime/breaker"
	"github.com/synnaxlabs/arc/runtime/errs"
	"github.com/synnaxlabs/arc/runtime/loop"
	"github.com/synnaxlabs/arc/runtime/metrics"
	"github.com/synnaxlabs/arc/runtime/node"
	"github.com/synnaxlabs/arc/runtime/node/interval"
	"github.com/synnaxlabs/arc/runtime/node/simple"
	"github.com/synnaxlabs/arc/runtime/queue"
	"github.com/synnaxlabs/arc/runtime/rlog"
	"github.com/synnaxlabs/arc/runtime/scheduler"
	"github.com/synnaxlabs/arc/runtime/state"
	"github.com/synnaxlabs/arc/runtime/wasm"
	"github.com/synnaxlabs/arc/telem"
)

// periodic is satisfied by node implementations that self-report a tick
// period, used to drive the Loop's high-rate/event-driven mode selection.
// interval.Node is the only built-in implementation.
type periodic interface {
	Period() time.Duration
}

// Runtime drives one compiled module's worth of State and Scheduler on a
// single dedicated goroutine (spec §5: "one dedicated runtime thread
// performs all scheduler and state mutations").
type Runtime struct {
	// ID uniquely identifies this loaded instance, for correlating log
	// lines and metrics across a process hosting more than one module.
	ID uuid.UUID

	breaker   *breaker.Breaker
	mod       *wasm.Module
	bindings  *wasm.Bindings
	state     *state.State
	scheduler *scheduler.Scheduler
	loop      *loop.Loop
	inputs    *queue.Queue[*telem.Frame]
	outputs   *queue.Queue[*telem.Frame]
	metrics   *metrics.Metrics
	startTime telem.TimeStamp

	runWG   sync.WaitGroup
	started atomic.Bool
	stopped atomic.Bool

	// ReadChannels and WriteChannels are every channel key referenced by
	// the module's nodes, including index channels pulled in transitively,
	// exposed so the embedder knows what to subscribe to / expect writes
	// for.
	ReadChannels  []telem.ChannelKey
	WriteChannels []telem.ChannelKey
}

// Load assembles a Runtime from a compiled Module. It validates the IR,
// resolves channel digests via the embedder-supplied retriever, builds
// State, Bindings, and the WASM engine, instantiates every IR node through
// the factory chain (the entry-node factory first, then the WASM factory,
// then the remaining built-in factories), constructs the Scheduler, and
// selects the Loop's execution mode from the module's interval-node
// periods — mirroring `runtime.h`'s `load` exactly.
func Load(ctx context.Context, mod *module.Module, opts ...Option) (*Runtime, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	rlog.Init(rlog.Config{Level: cfg.logLevel})

	if err := mod.Validate(); err != nil {
		return nil, errs.Wrap(errs.CategoryModule, "invalid_ir", "module failed validation", err)
	}

	reads := make(map[telem.ChannelKey]struct{})
	writes := make(map[telem.ChannelKey]struct{})
	for _, n := range mod.IR.Nodes {
		for ch := range n.Channels.Read {
			reads[ch] = struct{}{}
		}
		for _, ch := range n.Channels.Write {
			writes[ch] = struct{}{}
		}
	}

	keys := make([]telem.ChannelKey, 0, len(reads)+len(writes))
	seen := make(map[telem.ChannelKey]struct{}, len(reads)+len(writes))
	for k := range reads {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for k := range writes {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}

	digests, err := cfg.retrieveChannels(keys)
	if err != nil {
		return nil, errs.Wrap(errs.CategoryModule, "retrieve_channels_failed", "embedder channel lookup failed", err)
	}
	for _, d := range digests {
		if d.Index == 0 {
			continue
		}
		if _, ok := reads[d.Key]; ok {
			reads[d.Index] = struct{}{}
		}
		if _, ok := writes[d.Key]; ok {
			writes[d.Index] = struct{}{}
		}
	}

	st := state.New()
	for _, d := range digests {
		st.RegisterChannel(d)
	}
	for _, n := range mod.IR.Nodes {
		st.RegisterNode(n)
	}
	for _, e := range mod.IR.Edges {
		st.AddEdge(e)
	}

	bindings := wasm.NewBindings(st)
	bindings.OnError(func(err error) { rlog.Trap("", err) })
	wasmMod, err := wasm.OpenModule(ctx, mod.Wasm, mod.OutputMemoryBases, bindings)
	if err != nil {
		return nil, errs.Wrap(errs.CategoryInit, "wasm_open_failed", "failed to open compiled module", err)
	}

	factory := node.NewMultiFactory(
		simple.EntryFactory{},
		wasm.NewFactory(wasmMod),
		simple.TimeFactory{},
		simple.OperatorFactory{},
		simple.IOFactory{},
		simple.ConstantFactory{},
		interval.Factory{},
	)

	impls := make(map[string]node.Node, len(mod.IR.Nodes))
	var periods []time.Duration
	for _, n := range mod.IR.Nodes {
		ns, err := st.Node(n.Key)
		if err != nil {
			wasmMod.Close(ctx)
			return nil, errs.Wrap(errs.CategoryModule, "node_state_failed", fmt.Sprintf("node %q", n.Key), err)
		}
		impl, err := factory.Create(n, ns)
		if err != nil {
			wasmMod.Close(ctx)
			return nil, err
		}
		if impl == nil {
			rlog.Component("runtime").Info().Str("node", n.Key).Str("type", n.Type).
				Msg("unrecognized node type, skipping")
			continue
		}
		impls[n.Key] = impl
		if p, ok := impl.(periodic); ok {
			periods = append(periods, p.Period())
		}
	}

	sched := scheduler.New(&mod.IR, impls)

	basePeriod := loop.CalculateBasePeriod(periods, loop.MinBasePeriod)
	mode := loop.SelectMode(len(periods) > 0, basePeriod)
	loopInterval := time.Duration(0)
	if len(periods) > 0 {
		loopInterval = basePeriod
	}
	lp := loop.New(loop.Config{
		Mode:        mode,
		Interval:    loopInterval,
		RTPriority:  cfg.rtPriority,
		CPUAffinity: cfg.cpuAffinity,
	})

	readKeys := setToSlice(reads)
	writeKeys := setToSlice(writes)

	id := uuid.New()
	rlog.Component("runtime").Info().Str("runtime_id", id.String()).
		Int("nodes", len(impls)).Str("loop_mode", modeString(mode)).
		Msg("module loaded")

	return &Runtime{
		ID:            id,
		breaker:       breaker.New(cfg.breaker),
		mod:           wasmMod,
		bindings:      bindings,
		state:         st,
		scheduler:     sched,
		loop:          lp,
		inputs:        queue.New[*telem.Frame](cfg.inputQueueCapacity),
		outputs:       queue.New[*telem.Frame](cfg.outputQueueCapacity),
		metrics:       metrics.New(cfg.metricsRegistry),
		ReadChannels:  readKeys,
		WriteChannels: writeKeys,
	}, nil
}

func modeString(m loop.Mode) string {
	if m == loop.HighRate {
		return "high_rate"
	}
	return "event_driven"
}

func setToSlice(m map[telem.ChannelKey]struct{}) []telem.ChannelKey {
	out := make([]telem.ChannelKey, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Start spawns the runtime goroutine. Returns false if already started.
func (r *Runtime) Start() bool {
	if !r.started.CompareAndSwap(false, true) {
		return false
	}
	r.runWG.Add(1)
	go r.run()
	return true
}

// run is the runtime goroutine's body, mirroring runtime.h's run():
// arm the loop, then until the breaker trips, wait for a timer or inbound
// data, drain every pending frame (at least once, to honor a timer-only
// wakeup), ingest it, tick the scheduler, and flush any resulting writes
// to the outbound queue.
func (r *Runtime) run() {
	defer r.runWG.Done()
	r.startTime = telem.Now()
	r.loop.Start()
	defer r.loop.Stop()

	for !r.breaker.Tripped() {
		r.loop.Wait(r.inputs.Signal(), r.breaker.Done())

		first := true
	drain:
		for {
			select {
			case frame, open := <-r.inputs.C():
				if !open {
					break drain
				}
				r.inputs.Received()
				r.state.Ingest(frame)
				r.tick()
				first = false
			default:
				break drain
			}
		}
		if first {
			r.tick()
		}
	}
}

func (r *Runtime) tick() {
	start := time.Now()
	elapsed := telem.Since(r.startTime).Duration()
	r.scheduler.Next(elapsed)
	r.metrics.ObserveTick(float64(time.Since(start).Microseconds()))

	writes := r.state.Flush()
	if len(writes) == 0 {
		return
	}
	out := telem.NewFrame(len(writes))
	for key, vp := range writes {
		out.EmplaceWithTime(key, vp.Data.DeepCopy(), vp.Time.DeepCopy())
	}
	if err := r.outputs.Push(out); err != nil {
		r.metrics.IncQueueDropped("outputs")
		rlog.Component("runtime").Warn().Err(err).Msg("outbound frame dropped, consumer not keeping up")
	}
}

// closedContext adapts a plain done channel to context.Context for Pop,
// since Pop's cancellation signal (the breaker tripping) isn't itself a
// context.
func closedContext(done <-chan struct{}) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}

// CloseOutputs closes the outbound queue, unblocking any pending Read calls
// without waiting for Stop to join the runtime goroutine — useful when a
// consumer loop reading Read must be unblocked before shutdown completes.
func (r *Runtime) CloseOutputs() { r.outputs.Close() }

// Stop trips the breaker, signals the loop, joins the runtime goroutine,
// and closes both queues. Returns false if the runtime was never started
// or is already stopped.
func (r *Runtime) Stop() bool {
	if !r.started.Load() || !r.stopped.CompareAndSwap(false, true) {
		return false
	}
	r.breaker.Trip()
	r.runWG.Wait()
	r.inputs.Close()
	r.outputs.Close()
	if err := r.mod.Close(context.Background()); err != nil {
		rlog.Component("runtime").Warn().Err(err).Msg("error closing wasm module")
	}
	return true
}

// Write enqueues an inbound frame for ingestion on the next tick. Returns
// errs.ErrQueueFull if the inbound queue is at capacity, or
// errs.ErrQueueClosed once the runtime has stopped.
func (r *Runtime) Write(frame *telem.Frame) error {
	return r.inputs.Push(frame)
}

// Read pops the next outbound frame, blocking until one is available or the
// outbound queue is closed (via Stop or CloseOutputs). ok is false in the
// latter case.
func (r *Runtime) Read(ctx context.Context) (*telem.Frame, bool) {
	return r.outputs.Pop(ctx)
}
