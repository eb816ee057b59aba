package pool

import "sync/atomic"

const cacheLinePad = 64

// ring is a bounded MPMC queue built on per-cell sequence numbers
// (Vyukov). Enqueue and dequeue never block and never allocate.
type ring[T any] struct {
	head  atomic.Uint64
	_     [cacheLinePad]byte
	tail  atomic.Uint64
	_     [cacheLinePad]byte
	mask  uint64
	cells []ringCell[T]
}

type ringCell[T any] struct {
	sequence atomic.Uint64
	data     T
}

// newRing creates a ring able to hold at least capacity items. The real
// size is rounded up to a power of two.
func newRing[T any](capacity int) *ring[T] {
	if capacity < 2 {
		capacity = 2
	}
	size := 1
	for size < capacity {
		size <<= 1
	}

	r := &ring[T]{
		mask:  uint64(size - 1),
		cells: make([]ringCell[T], size),
	}
	for i := range r.cells {
		r.cells[i].sequence.Store(uint64(i))
	}
	return r
}

// enqueue adds val; returns false if the ring is full.
func (r *ring[T]) enqueue(val T) bool {
	for {
		tail := r.tail.Load()
		c := &r.cells[tail&r.mask]
		dif := int64(c.sequence.Load()) - int64(tail)

		switch {
		case dif == 0:
			if r.tail.CompareAndSwap(tail, tail+1) {
				c.data = val
				c.sequence.Store(tail + 1)
				return true
			}
		case dif < 0:
			return false
		}
		// tail moved, retry
	}
}

// dequeue removes the oldest item; ok is false if the ring is empty.
func (r *ring[T]) dequeue() (item T, ok bool) {
	for {
		head := r.head.Load()
		c := &r.cells[head&r.mask]
		dif := int64(c.sequence.Load()) - int64(head+1)

		switch {
		case dif == 0:
			if r.head.CompareAndSwap(head, head+1) {
				item = c.data
				var zero T
				c.data = zero
				c.sequence.Store(head + r.mask + 1)
				return item, true
			}
		case dif < 0:
			return item, false
		}
		// head moved, retry
	}
}

// len is a racy approximation of the number of queued items.
func (r *ring[T]) len() int {
	n := int64(r.tail.Load()) - int64(r.head.Load())
	if n < 0 {
		return 0
	}
	return int(n)
}
