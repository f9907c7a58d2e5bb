package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSlotPoolImmediateAcquisition(t *testing.T) {
	sp := NewSlotPool(2)

	for i := 0; i < 2; i++ {
		if err := sp.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire returned error: %v", err)
		}
	}

	if sp.InUse() != 2 {
		t.Errorf("Expected 2 slots in use, got %d", sp.InUse())
	}
}

func TestSlotPoolBoundedness(t *testing.T) {
	sp := NewSlotPool(2)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sp.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire returned error: %v", err)
				return
			}
			if n := sp.InUse(); n < 1 || n > 2 {
				t.Errorf("In-use count out of bounds: %d", n)
			}
			time.Sleep(time.Millisecond)
			sp.Release()
		}()
	}

	wg.Wait()
	if sp.InUse() != 0 {
		t.Errorf("Expected 0 slots in use after all releases, got %d", sp.InUse())
	}
	if sp.Waiting() != 0 {
		t.Errorf("Expected empty wait queue, got %d", sp.Waiting())
	}
}

func TestSlotPoolFIFOOrdering(t *testing.T) {
	sp := NewSlotPool(1)

	if err := sp.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	// Enqueue three waiters, waiting for each to join the queue before
	// starting the next so the FIFO positions are deterministic.
	for i := 1; i <= 3; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := sp.Acquire(context.Background()); err != nil {
				t.Errorf("Waiter %d failed: %v", id, err)
				return
			}
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			sp.Release()
		}(i)

		deadline := time.Now().Add(time.Second)
		for sp.Waiting() < i {
			if time.Now().After(deadline) {
				t.Fatalf("Waiter %d never enqueued", i)
			}
			time.Sleep(time.Millisecond)
		}
	}

	sp.Release()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 {
		t.Fatalf("Expected 3 resumed waiters, got %d", len(order))
	}
	for i, id := range order {
		if id != i+1 {
			t.Errorf("Expected waiter %d at position %d, got %d", i+1, i, id)
		}
	}
}

func TestSlotPoolTransferKeepsCount(t *testing.T) {
	sp := NewSlotPool(1)

	if err := sp.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		if err := sp.Acquire(context.Background()); err == nil {
			close(acquired)
		}
	}()

	deadline := time.Now().Add(time.Second)
	for sp.Waiting() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("Waiter never enqueued")
		}
		time.Sleep(time.Millisecond)
	}

	// The release transfers the slot; in-use never dips to zero.
	sp.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Waiter was not resumed by release")
	}

	if sp.InUse() != 1 {
		t.Errorf("Expected 1 slot in use after transfer, got %d", sp.InUse())
	}
}

func TestSlotPoolCancellationRemovesWaiter(t *testing.T) {
	sp := NewSlotPool(1)

	if err := sp.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- sp.Acquire(ctx)
	}()

	deadline := time.Now().Add(time.Second)
	for sp.Waiting() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("Waiter never enqueued")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-errCh; err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if sp.Waiting() != 0 {
		t.Errorf("Expected cancelled waiter to be dequeued, got %d waiting", sp.Waiting())
	}

	// The slot must still be releasable and reusable.
	sp.Release()
	if sp.InUse() != 0 {
		t.Errorf("Expected 0 slots in use, got %d", sp.InUse())
	}
	if err := sp.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire after cancellation failed: %v", err)
	}
}
