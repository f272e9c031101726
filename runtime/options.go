package runtime

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/synnaxlabs/arc/runtime/breaker"
	"github.com/synnaxlabs/arc/runtime/state"
	"github.com/synnaxlabs/arc/telem"
)

// ChannelRetriever is supplied by the embedder and resolves channel keys to
// their digests (data type, index channel) at load time (spec §6
// `retrieve_channels`).
type ChannelRetriever func(keys []telem.ChannelKey) ([]state.ChannelDigest, error)

// Option configures a Runtime at Load time, following the teacher's
// `graph.Option` functional-options pattern (chainable, self-documenting,
// each optional).
type Option func(*config) error

// config collects options before Load applies them; mirrors the teacher's
// engineConfig indirection so validation happens once, after every option
// has run.
type config struct {
	inputQueueCapacity  int
	outputQueueCapacity int
	breaker             breaker.Config
	retrieveChannels    ChannelRetriever
	rtPriority          int
	cpuAffinity         int
	metricsRegistry     prometheus.Registerer
	logLevel            string
}

func newConfig(opts ...Option) (*config, error) {
	cfg := &config{
		inputQueueCapacity:  256,
		outputQueueCapacity: 1024,
		cpuAffinity:         -1,
		rtPriority:          47,
		logLevel:            "info",
		breaker: breaker.Config{
			Name:         "runtime",
			BaseInterval: 100 * time.Millisecond,
			MaxRetries:   5,
			Scale:        2,
			MaxInterval:  30 * time.Second,
		},
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.retrieveChannels == nil {
		return nil, fmt.Errorf("arc.module.missing_retrieve_channels: WithChannelRetriever is required")
	}
	return cfg, nil
}

// WithInputQueueCapacity overrides the inbound SPSC queue's bound.
//
// Default: 256.
func WithInputQueueCapacity(n int) Option {
	return func(cfg *config) error {
		cfg.inputQueueCapacity = n
		return nil
	}
}

// WithOutputQueueCapacity overrides the outbound SPSC queue's bound.
//
// Default: 1024.
func WithOutputQueueCapacity(n int) Option {
	return func(cfg *config) error {
		cfg.outputQueueCapacity = n
		return nil
	}
}

// WithBreaker overrides the retry/backoff tuning for transient I/O errors.
func WithBreaker(b breaker.Config) Option {
	return func(cfg *config) error {
		cfg.breaker = b
		return nil
	}
}

// WithChannelRetriever supplies the embedder's channel-digest lookup,
// called once at Load. Required; Load fails without it.
func WithChannelRetriever(fn ChannelRetriever) Option {
	return func(cfg *config) error {
		cfg.retrieveChannels = fn
		return nil
	}
}

// WithRTPriority sets the advisory OS thread priority hint. The loop logs
// the hint at Start; it does not change the thread's priority.
//
// Default: 47.
func WithRTPriority(p int) Option {
	return func(cfg *config) error {
		cfg.rtPriority = p
		return nil
	}
}

// WithCPUAffinity sets the CPU affinity hint for the runtime goroutine's OS
// thread (cpu >= 0). The loop logs the hint at Start; it does not pin the
// thread.
//
// Default: -1 (no pinning).
func WithCPUAffinity(cpu int) Option {
	return func(cfg *config) error {
		cfg.cpuAffinity = cpu
		return nil
	}
}

// WithMetricsRegistry registers runtime metrics against registry instead of
// the Prometheus default registerer.
func WithMetricsRegistry(registry prometheus.Registerer) Option {
	return func(cfg *config) error {
		cfg.metricsRegistry = registry
		return nil
	}
}

// WithLogLevel sets the global zerolog level applied at Load.
//
// Default: "info".
func WithLogLevel(level string) Option {
	return func(cfg *config) error {
		cfg.logLevel = level
		return nil
	}
}
