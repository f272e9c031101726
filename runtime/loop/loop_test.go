package loop_test

import (
	"testing"
	"time"

	"github.com/synnaxlabs/arc/runtime/loop"
)

func TestCalculateBasePeriodGCD(t *testing.T) {
	periods := []time.Duration{100 * time.Millisecond, 250 * time.Millisecond, time.Second}
	got := loop.CalculateBasePeriod(periods, time.Millisecond)
	want := 50 * time.Millisecond
	if got != want {
		t.Fatalf("CalculateBasePeriod() = %v, want %v", got, want)
	}
}

func TestCalculateBasePeriodEmptyReturnsMin(t *testing.T) {
	got := loop.CalculateBasePeriod(nil, loop.MinBasePeriod)
	if got != loop.MinBasePeriod {
		t.Fatalf("CalculateBasePeriod(nil) = %v, want %v", got, loop.MinBasePeriod)
	}
}

func TestCalculateBasePeriodClampsToMin(t *testing.T) {
	periods := []time.Duration{3 * time.Millisecond, 7 * time.Millisecond}
	got := loop.CalculateBasePeriod(periods, loop.MinBasePeriod)
	if got != loop.MinBasePeriod {
		t.Fatalf("CalculateBasePeriod() = %v, want clamp to %v", got, loop.MinBasePeriod)
	}
}

func TestSelectModeNoIntervals(t *testing.T) {
	if mode := loop.SelectMode(false, time.Millisecond); mode != loop.EventDriven {
		t.Fatalf("SelectMode(false, ...) = %v, want EventDriven", mode)
	}
}

func TestSelectModeCoarsePeriod(t *testing.T) {
	if mode := loop.SelectMode(true, 100*time.Millisecond); mode != loop.EventDriven {
		t.Fatalf("SelectMode(true, 100ms) = %v, want EventDriven", mode)
	}
}

func TestSelectModeFinePeriod(t *testing.T) {
	if mode := loop.SelectMode(true, time.Millisecond); mode != loop.HighRate {
		t.Fatalf("SelectMode(true, 1ms) = %v, want HighRate", mode)
	}
}

func TestWaitEventDrivenUnblocksOnSignal(t *testing.T) {
	l := loop.New(loop.Config{Mode: loop.EventDriven})
	l.Start()
	defer l.Stop()

	signal := make(chan struct{}, 1)
	signal <- struct{}{}
	done := make(chan struct{})

	waitDone := make(chan struct{})
	go func() {
		l.Wait(signal, done)
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after signal fired")
	}
}

func TestWaitUnblocksOnDone(t *testing.T) {
	l := loop.New(loop.Config{Mode: loop.EventDriven})
	l.Start()
	defer l.Stop()

	signal := make(chan struct{})
	done := make(chan struct{})
	close(done)

	waitDone := make(chan struct{})
	go func() {
		l.Wait(signal, done)
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after done closed")
	}
}

func TestWaitHighRateUnblocksOnTicker(t *testing.T) {
	l := loop.New(loop.Config{Mode: loop.HighRate, Interval: time.Millisecond})
	l.Start()
	defer l.Stop()

	signal := make(chan struct{})
	done := make(chan struct{})

	waitDone := make(chan struct{})
	go func() {
		l.Wait(signal, done)
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after ticker fired")
	}
}
