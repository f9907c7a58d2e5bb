// Package ratelimit paces ehgrab's traffic against the gallery service.
//
// Two independent resources are guarded:
//
// Token Bucket (API calls):
//   - Tokens refill continuously at a configured rate up to a burst cap
//   - Acquire never denies a call, it only delays it
//   - Waits carry ±20% jitter to avoid synchronized retry storms
//
// Slot Pool (image downloads):
//   - Counting semaphore bounding concurrent image fetches
//   - Strict FIFO wait queue; a release hands the slot directly to the
//     oldest waiter
//   - Cancellation removes the waiter from the queue without leaking a slot
//
// Both types are constructed once at startup and injected into their
// consumers; neither is a package-level singleton.
//
// Usage:
//
//	bucket := ratelimit.NewTokenBucket(10, 0.5) // burst 10, one call per 2s
//	if err := bucket.Acquire(ctx); err != nil {
//	    return err
//	}
//	// make API call
//
//	slots := ratelimit.NewSlotPool(3)
//	if err := slots.Acquire(ctx); err != nil {
//	    return err
//	}
//	defer slots.Release()
//	// download image
package ratelimit
