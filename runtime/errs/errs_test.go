package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/synnaxlabs/arc/runtime/errs"
)

func TestCodedErrorFormatsWithoutWrapped(t *testing.T) {
	e := errs.New(errs.CategoryModule, "bad_ir", "node references an unknown channel")
	want := "arc.module.bad_ir: node references an unknown channel"
	if e.Error() != want {
		t.Fatalf("Error() = %q, want %q", e.Error(), want)
	}
	if e.Unwrap() != nil {
		t.Fatal("expected Unwrap() to be nil with no wrapped cause")
	}
}

func TestCodedErrorFormatsWithWrapped(t *testing.T) {
	cause := errors.New("disk full")
	e := &errs.Coded{Category: errs.CategoryIO, Code: "write_failed", Message: "could not persist", Err: cause}
	want := fmt.Sprintf("%s.%s: %s: %v", errs.CategoryIO, "write_failed", "could not persist", cause)
	if e.Error() != want {
		t.Fatalf("Error() = %q, want %q", e.Error(), want)
	}
	if !errors.Is(e, cause) {
		t.Fatal("expected errors.Is to unwrap to the underlying cause")
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{errs.ErrRuntimeStopped, errs.ErrQueueFull, errs.ErrQueueClosed, errs.ErrBreakerExhausted}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Fatalf("sentinel %v should not match %v", a, b)
			}
		}
	}
}
