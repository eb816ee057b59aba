/*
Package pool provides object pools that let hot paths reuse report buffers
instead of allocating a fresh one per sample.

Two policies are available:

	bounded, _ := pool.NewBounded[Sample](64, nil) // fixed capacity
	if h, ok := bounded.Get(); ok {
		defer h.Release()
		*h.Value() = sample
	} else {
		// pool exhausted: drop the sample
	}

	unbounded := pool.NewUnbounded[Sample](16, nil) // grows on demand
	h := unbounded.Get()
	defer h.Release()

A Handle is owned by one holder at a time. Retain adds an owner, Release
drops one; the object goes back to the pool when the last owner releases
it. Handles keep their pool reachable, so pools may be dropped by their
creator while objects are still checked out.

Idle objects live in concurrent queues: a lock-free ring for bounded pools
and a mutex-guarded FIFO for unbounded pools. Get and Release may be
called from any goroutine and never block for longer than a queue
operation.

Pools never log. Exhaustion of a bounded pool is reported through the
boolean result of Get and the Misses counter of Stats.
*/
package pool
