// Package loop implements the runtime's hosting loop (spec §4.6): the
// choice between event-driven and high-rate execution, the GCD-based base
// tick period for high-rate mode, and the OS thread priority and CPU
// affinity hints, which are logged but not applied. Grounded on `time_wheel.{h,cpp}`'s
// calculate_base_period/should_tick pair — the only timing logic the
// retrieved original source carries for this concern — generalized from a
// single polled `should_tick` into a channel the runtime selects on
// alongside its queue notifier and breaker.
package loop

import (
	"runtime"
	"time"
)

// Mode selects between waiting purely on data arrival and waiting on a
// hardware/OS timer tuned to the fastest interval node in the module.
type Mode int

const (
	// EventDriven waits only on the inbound queue's notifier; used when no
	// interval node is configured or all periods are coarse enough for
	// software timer resolution to suffice.
	EventDriven Mode = iota

	// HighRate additionally ticks a hardware/OS timer at the GCD of all
	// interval-node periods, for sub-threshold periods a software timer
	// cannot meet reliably.
	HighRate
)

// SoftwareTimerThreshold is the period below which a plain software timer
// (time.Timer backed by the Go runtime's netpoller) is considered
// unreliable and the Loop switches to HighRate mode. This is a reasonable
// default for typical OS scheduling granularity, not a value recovered from
// the original implementation (not present in the retrieved source). It is
// a fixed package constant; Config has no field to override it.
const SoftwareTimerThreshold = 15 * time.Millisecond

// MinBasePeriod is the floor runtime.Load passes to CalculateBasePeriod as
// minPeriod, preventing a
// degenerate GCD (e.g. from periods with no common factor) from producing
// a sub-millisecond tick storm.
const MinBasePeriod = 10 * time.Millisecond

// Config configures a Loop. Interval is the already-computed base tick
// period for HighRate mode (see CalculateBasePeriod); it is ignored in
// EventDriven mode.
type Config struct {
	Mode Mode
	Interval time.Duration

	// RTPriority is an advisory OS thread priority hint (higher = more
	// preferential scheduling). Start logs it at debug level via rlog when
	// non-zero; the thread's priority is not changed on any platform.
	RTPriority int

	// CPUAffinity names a CPU for the runtime goroutine's OS thread when
	// >= 0. Start logs it at debug level via rlog; the thread is not pinned
	// on any platform.
	CPUAffinity int
}

// CalculateBasePeriod returns the GCD of periods, clamped to minPeriod.
// With no periods it returns minPeriod. Mirrors TimeWheel::calculate_base_period:
// periods [100ms, 250ms, 1s] yield a 50ms base tick.
func CalculateBasePeriod(periods []time.Duration, minPeriod time.Duration) time.Duration {
	if len(periods) == 0 {
		return minPeriod
	}
	result := periods[0]
	for _, p := range periods[1:] {
		result = gcd(result, p)
	}
	if result < minPeriod {
		return minPeriod
	}
	return result
}

func gcd(a, b time.Duration) time.Duration {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

// SelectMode picks EventDriven or HighRate given whether the module has any
// interval nodes and, if so, their computed base period (spec §6: "Loop
// mode ... derived from the presence and periods of interval nodes").
func SelectMode(hasIntervals bool, basePeriod time.Duration) Mode {
	if hasIntervals && basePeriod < SoftwareTimerThreshold {
		return HighRate
	}
	return EventDriven
}

// Loop owns the runtime thread's wait-for-work logic: the optional
// high-rate ticker, and the thread priority/affinity hints logged once at
// Start.
type Loop struct {
	mode   Mode
	ticker *time.Ticker
	cfg    Config
}

// New constructs a Loop from cfg. It allocates no ticker; in HighRate mode
// Start creates and arms the periodic ticker.
func New(cfg Config) *Loop {
	return &Loop{mode: cfg.Mode, cfg: cfg}
}

// Start locks the calling goroutine to its OS thread, logs the
// priority/affinity hints (without applying them), and arms the high-rate
// ticker if configured. Must be
// called from the runtime goroutine before the first Wait.
func (l *Loop) Start() {
	runtime.LockOSThread()
	applyThreadTuning(l.cfg)
	if l.mode == HighRate && l.cfg.Interval > 0 {
		l.ticker = time.NewTicker(l.cfg.Interval)
	}
}

// Stop releases the ticker, if any. Safe to call even in EventDriven mode.
func (l *Loop) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
}

// Wait blocks until the high-rate ticker fires (HighRate mode only), the
// inbound queue's signal channel fires, or done (the breaker's trip
// channel) closes. It does not report which of those woke the loop; after
// every wakeup the caller re-checks the breaker and drains the queue
// without blocking, ticking at least once even when the queue is empty.
func (l *Loop) Wait(signal <-chan struct{}, done <-chan struct{}) {
	if l.mode == HighRate && l.ticker != nil {
		select {
		case <-l.ticker.C:
		case <-signal:
		case <-done:
		}
		return
	}
	select {
	case <-signal:
	case <-done:
	}
}
