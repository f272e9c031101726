// Package rlog wraps zerolog with the fields and helpers the runtime uses
// when reporting node traps, stage transitions, and tick timing, grounded
// on the logger package's Config/Init/WithComponent shape.
package rlog

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls the global logger's level and output.
type Config struct {
	// Level is one of zerolog's parseable levels (debug, info, warn, error).
	Level string

	// Console switches to a human-readable console writer on stdout;
	// otherwise zerolog's default global logger is kept, which writes JSON
	// lines to stderr.
	Console bool
}

// Init installs cfg as the global logger configuration. Call once at
// runtime load; safe to omit, in which case zerolog's defaults apply.
func Init(cfg Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Console {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).
			With().Timestamp().Logger()
	}
}

// Component returns a logger tagged with the given component name, for
// consistent filtering across scheduler/loop/breaker/wasm log lines.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// NodeError logs a per-node execution error, matching spec §7's "reported
// to the node context; the tick continues" policy — a local log, not a
// propagated failure.
func NodeError(nodeKey string, err error) {
	log.Error().Str("node", nodeKey).Err(err).Msg("node encountered error")
}

// Trap logs a guest WASM trap, distinct from NodeError so trap-rate
// dashboards can key on it independently (spec §7: "after a threshold of
// consecutive traps per node, the scheduler may mark the node disabled").
func Trap(nodeKey string, err error) {
	log.Error().Str("node", nodeKey).Err(err).Msg("wasm guest trap")
}

// Tick logs one runtime tick's timing at debug level.
func Tick(elapsedNanos int64) {
	log.Debug().Int64("elapsed_ns", elapsedNanos).Msg("tick")
}
