package config

import (
	"time"

	"github.com/synnaxlabs/arc/runtime"
	"github.com/synnaxlabs/arc/runtime/breaker"
)

// RuntimeOptions translates Settings into the runtime.Option values Load
// expects, layering them under the embedder's own options (retriever,
// metrics registry) which the caller appends separately.
func (s Settings) RuntimeOptions() []runtime.Option {
	return []runtime.Option{
		runtime.WithInputQueueCapacity(s.InputQueueCapacity),
		runtime.WithOutputQueueCapacity(s.OutputQueueCapacity),
		runtime.WithRTPriority(s.RTPriority),
		runtime.WithCPUAffinity(s.CPUAffinity),
		runtime.WithLogLevel(s.LogLevel),
		runtime.WithBreaker(breaker.Config{
			Name:         "runtime",
			BaseInterval: time.Duration(s.BreakerBaseMs) * time.Millisecond,
			MaxRetries:   s.BreakerMaxRetries,
			Scale:        2,
			MaxInterval:  30 * time.Second,
		}),
	}
}
