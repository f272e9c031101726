// Package breaker implements the retry/backoff and cooperative-shutdown
// primitive owned by the runtime (spec §5): exponential backoff with jitter
// for transient I/O errors, and a trip signal the Loop selects on to exit
// promptly when Stop is called. Grounded on the teacher's
// `graph/policy.go` RetryPolicy/computeBackoff shape, generalized from a
// fixed 2^attempt exponent to a configurable Scale.
package breaker

import (
	"math/rand"
	"sync"
	"time"
)

// Config mirrors the compiled module's `breaker` block (spec §6): name,
// base_interval, max_retries, scale, max_interval.
type Config struct {
	// Name identifies the breaker in logs and metrics.
	Name string

	// BaseInterval is the delay before the first retry.
	BaseInterval time.Duration

	// MaxRetries is the number of retries permitted before the breaker
	// reports exhaustion. A value of 0 means no retries are attempted.
	MaxRetries int

	// Scale multiplies BaseInterval per attempt: delay(n) = BaseInterval *
	// Scale^n, capped at MaxInterval.
	Scale float64

	// MaxInterval caps the computed backoff delay.
	MaxInterval time.Duration
}

// Breaker tracks retry attempts for a single failure sequence and the
// runtime's tripped (shutting down) state. One Breaker is owned by the
// Runtime and shared between the Loop (for cooperative shutdown) and the I/O
// retry path (for transient-error backoff).
type Breaker struct {
	cfg Config

	mu      sync.Mutex
	attempt int
	rng     *rand.Rand

	tripped chan struct{}
	once    sync.Once
}

// New constructs a Breaker from cfg. A zero-value Scale defaults to 2
// (matching the teacher's exponential-backoff-with-jitter default).
func New(cfg Config) *Breaker {
	if cfg.Scale <= 0 {
		cfg.Scale = 2
	}
	return &Breaker{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		tripped: make(chan struct{}),
	}
}

// Trip signals cooperative shutdown. Safe to call more than once or from any
// goroutine; subsequent calls are no-ops.
func (b *Breaker) Trip() {
	b.once.Do(func() { close(b.tripped) })
}

// Tripped reports whether Trip has been called.
func (b *Breaker) Tripped() bool {
	select {
	case <-b.tripped:
		return true
	default:
		return false
	}
}

// Done returns the channel that closes when Trip is called, for use in a
// select alongside the Loop's timer and queue-notifier cases.
func (b *Breaker) Done() <-chan struct{} { return b.tripped }

// Reset clears the retry attempt counter, called after a successful I/O
// operation so the next transient failure starts backoff from BaseInterval.
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.attempt = 0
	b.mu.Unlock()
}

// Exhausted reports whether MaxRetries attempts have already been consumed.
func (b *Breaker) Exhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempt >= b.cfg.MaxRetries
}

// NextBackoff records one more attempt and returns the delay to wait before
// retrying, and whether a retry is still permitted. If ok is false the
// breaker's retry budget is exhausted and the caller should surface the
// error to the embedder (spec §7: "on exhaustion, the runtime stops").
func (b *Breaker) NextBackoff() (delay time.Duration, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.attempt >= b.cfg.MaxRetries {
		return 0, false
	}
	n := b.attempt
	b.attempt++

	exp := b.cfg.BaseInterval
	for i := 0; i < n; i++ {
		exp = time.Duration(float64(exp) * b.cfg.Scale)
		if b.cfg.MaxInterval > 0 && exp > b.cfg.MaxInterval {
			exp = b.cfg.MaxInterval
			break
		}
	}
	if b.cfg.MaxInterval > 0 && exp > b.cfg.MaxInterval {
		exp = b.cfg.MaxInterval
	}

	var jitter time.Duration
	if b.cfg.BaseInterval > 0 {
		jitter = time.Duration(b.rng.Int63n(int64(b.cfg.BaseInterval)))
	}
	return exp + jitter, true
}
