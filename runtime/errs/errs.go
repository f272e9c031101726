// Package errs defines the namespaced error categories exposed to the
// embedder (spec §7): configuration, engine-init, runtime-execution, I/O,
// and protocol errors. Grounded on the teacher's `graph/errors.go` sentinel
// style, extended with a Coded wrapper since Arc's errors carry a
// stable namespaced prefix (e.g. "arc.runtime.load_failed") alongside the
// free-form message, for the embedder to branch on.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions with no per-instance detail.
var (
	// ErrRuntimeStopped names the stopped-runtime condition. No function in
	// this module returns it: after Stop, Runtime.Write returns
	// ErrQueueClosed and Runtime.Read reports ok=false.
	ErrRuntimeStopped = errors.New("arc.runtime.stopped")

	// ErrQueueFull is returned by a bounded queue's Push when the producer
	// would otherwise have to block (spec §5: "Push on a full queue returns
	// an error").
	ErrQueueFull = errors.New("arc.runtime.queue_full")

	// ErrQueueClosed is returned by Push once Close has been called; Pop
	// reports a closed queue with ok=false instead of an error.
	ErrQueueClosed = errors.New("arc.runtime.queue_closed")

	// ErrBreakerExhausted names the exhausted-retry-budget condition. No
	// function in this module returns it: Breaker.NextBackoff reports an
	// exhausted budget with ok=false.
	ErrBreakerExhausted = errors.New("arc.runtime.breaker_exhausted")
)

// Category is one of the namespaced error families from spec §7.
type Category string

const (
	// CategoryModule covers IR validation failures: missing function,
	// unknown channel, invalid interval period. Surfaced at load; the
	// runtime is not created.
	CategoryModule Category = "arc.module"

	// CategoryInit covers WASM engine or memory-allocation failures.
	// Surfaced at load or start.
	CategoryInit Category = "arc.runtime.init"

	// CategoryExecution covers guest traps and invalid returns during a
	// tick. Reported to the node context; the tick continues.
	CategoryExecution Category = "arc.runtime"

	// CategoryIO covers transport errors retried via the breaker.
	CategoryIO Category = "arc.runtime.io"

	// CategoryProtocol covers stream-closed/EOF conditions that trigger
	// cooperative shutdown.
	CategoryProtocol Category = "freighter"
)

// Coded is an error carrying a stable namespaced code alongside a free-form
// message, matching the "typed strings with a namespaced prefix" the
// embedder-facing API returns (spec §6).
type Coded struct {
	Category Category
	Code     string
	Message  string
	Err      error
}

func (e *Coded) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Category, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Category, e.Code, e.Message)
}

func (e *Coded) Unwrap() error { return e.Err }

// New builds a Coded error with no wrapped cause.
func New(category Category, code, message string) *Coded {
	return &Coded{Category: category, Code: code, Message: message}
}

// Wrap builds a Coded error around an existing cause.
func Wrap(category Category, code, message string, err error) *Coded {
	return &Coded{Category: category, Code: code, Message: message, Err: err}
}

// Module builds a configuration-category error (spec §7 arc.module.*).
func Module(code, format string, args ...any) *Coded {
	return New(CategoryModule, code, fmt.Sprintf(format, args...))
}

// Init builds an engine-init-category error (spec §7 arc.runtime.init_*).
func Init(code string, err error) *Coded {
	return Wrap(CategoryInit, code, "engine initialization failed", err)
}

// Execution builds a runtime-execution-category error (spec §7
// arc.runtime.wasm_trap / arc.runtime.call_failed).
func Execution(code, format string, args ...any) *Coded {
	return New(CategoryExecution, code, fmt.Sprintf(format, args...))
}
