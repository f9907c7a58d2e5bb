package ratelimit

import (
	"container/list"
	"context"
	"sync"
)

// SlotPool bounds the number of concurrent image downloads. It is a counting
// semaphore with a strict FIFO wait queue: a waiter with N waiters ahead of
// it is unblocked after exactly N releases.
type SlotPool struct {
	max     int
	inUse   int
	waiters *list.List // of chan struct{}
	mu      sync.Mutex
}

// NewSlotPool creates a pool allowing max concurrent holders.
func NewSlotPool(max int) *SlotPool {
	return &SlotPool{
		max:     max,
		waiters: list.New(),
	}
}

// Acquire obtains a slot, suspending the caller in FIFO order when the pool
// is full. On cancellation the waiter is removed from the queue so no
// phantom entry is ever resumed; if the slot was handed over concurrently
// with the cancellation it is passed on to the next waiter.
func (sp *SlotPool) Acquire(ctx context.Context) error {
	sp.mu.Lock()
	if sp.inUse < sp.max {
		sp.inUse++
		sp.mu.Unlock()
		return nil
	}

	ready := make(chan struct{})
	elem := sp.waiters.PushBack(ready)
	sp.mu.Unlock()

	select {
	case <-ready:
		// Slot was transferred by a releaser; inUse already accounts
		// for it.
		return nil
	case <-ctx.Done():
		sp.mu.Lock()
		select {
		case <-ready:
			// Lost the race: a release already handed us the slot.
			// Pass it along instead of leaking it.
			sp.handoffLocked()
			sp.mu.Unlock()
		default:
			sp.waiters.Remove(elem)
			sp.mu.Unlock()
		}
		return ctx.Err()
	}
}

// Release returns a slot. If anyone is waiting, the slot transfers directly
// to the head of the queue without touching the in-use count; the count only
// decreases when the queue is empty.
func (sp *SlotPool) Release() {
	sp.mu.Lock()
	sp.handoffLocked()
	sp.mu.Unlock()
}

// handoffLocked resumes the head waiter, or frees the slot when the queue is
// empty. Caller must hold mu.
func (sp *SlotPool) handoffLocked() {
	if front := sp.waiters.Front(); front != nil {
		sp.waiters.Remove(front)
		close(front.Value.(chan struct{}))
		return
	}
	sp.inUse--
}

// InUse reports the number of slots currently held.
func (sp *SlotPool) InUse() int {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.inUse
}

// Waiting reports the number of queued waiters.
func (sp *SlotPool) Waiting() int {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.waiters.Len()
}
