package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/affinity/internal/domain/model"
)

func job(id string) Job {
	return Job{Client: model.Client{ID: id}, Done: make(chan Result, 1)}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, job("c1")) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	j := <-q.Dequeue(ctx)
	if j.Client.ID != "c1" {
		t.Errorf("expected c1, got %v", j.Client.ID)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, job("c1")) || !q.Enqueue(ctx, job("c2")) {
		t.Fatal("expected enqueue to succeed")
	}

	if q.Enqueue(ctx, job("c3")) {
		t.Error("expected enqueue to fail when full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_FIFO(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		q.Enqueue(ctx, job(fmt.Sprintf("c%d", i)))
	}
	_ = q.Close()

	i := 0
	for j := range q.Dequeue(ctx) {
		if want := fmt.Sprintf("c%d", i); j.Client.ID != want {
			t.Errorf("expected %s, got %s", want, j.Client.ID)
		}
		i++
	}
	if i != 5 {
		t.Errorf("expected 5 jobs after close, got %d", i)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if !q.Enqueue(ctx, job(fmt.Sprintf("c%d-%d", id, j))) {
					t.Errorf("enqueue %d-%d rejected", id, j)
				}
			}
		}(i)
	}
	wg.Wait()

	if l := q.Len(ctx); l != 1000 {
		t.Errorf("expected length 1000, got %d", l)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	if q.IsClosed() {
		t.Error("new queue should be open")
	}
	if err := q.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, job("late")) {
		t.Error("expected enqueue on closed queue to fail")
	}

	select {
	case _, ok := <-q.Dequeue(ctx):
		if ok {
			t.Error("expected dequeue channel to be closed")
		}
	case <-time.After(time.Second):
		t.Error("dequeue channel was not closed")
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, job("c1")) {
		t.Error("expected enqueue with cancelled context to fail")
	}
}
