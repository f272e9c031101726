package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/synnaxlabs/arc/runtime/errs"
	"github.com/synnaxlabs/arc/runtime/queue"
)

func TestPushPop(t *testing.T) {
	q := queue.New[int](4)
	if err := q.Push(1); err != nil {
		t.Fatalf("Push: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, ok := q.Pop(ctx)
	if !ok || v != 1 {
		t.Fatalf("Pop() = %v, %v, want 1, true", v, ok)
	}
}

func TestPushFullReturnsError(t *testing.T) {
	q := queue.New[int](1)
	if err := q.Push(1); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := q.Push(2); !errors.Is(err, errs.ErrQueueFull) {
		t.Fatalf("Push() on full queue = %v, want ErrQueueFull", err)
	}
}

func TestPushClosedReturnsError(t *testing.T) {
	q := queue.New[int](1)
	q.Close()
	if err := q.Push(1); !errors.Is(err, errs.ErrQueueClosed) {
		t.Fatalf("Push() on closed queue = %v, want ErrQueueClosed", err)
	}
}

func TestPopClosedReturnsFalse(t *testing.T) {
	q := queue.New[int](1)
	q.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, ok := q.Pop(ctx); ok {
		t.Fatal("Pop() on closed empty queue should return ok=false")
	}
}

func TestPopContextCanceled(t *testing.T) {
	q := queue.New[int](1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := q.Pop(ctx); ok {
		t.Fatal("Pop() with canceled context should return ok=false")
	}
}

func TestSignalFiresOnPush(t *testing.T) {
	q := queue.New[int](4)
	if err := q.Push(1); err != nil {
		t.Fatalf("Push: %v", err)
	}
	select {
	case <-q.Signal():
	default:
		t.Fatal("expected signal to be pulsed after Push")
	}
}

func TestStatsTracksDepthAndDrops(t *testing.T) {
	q := queue.New[int](1)
	_ = q.Push(1)
	_ = q.Push(2) // dropped, queue full
	stats := q.Stats()
	if stats.Dropped != 1 {
		t.Fatalf("Dropped = %d, want 1", stats.Dropped)
	}
	if stats.Depth != 1 {
		t.Fatalf("Depth = %d, want 1", stats.Depth)
	}
}
