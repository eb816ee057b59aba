package pool

import (
	"sync/atomic"

	"github.com/vnykmshr/metricbus/pkg/common/validation"
)

// Bounded is a fixed-capacity pool. All objects are constructed up front;
// Get never allocates and reports exhaustion instead of growing.
type Bounded[T any] struct {
	capacity int
	idle     *ring[*Handle[T]]
	reset    func(*T)
	misses   atomic.Uint64
}

// NewBounded creates a pool holding exactly capacity objects built by newFn.
// A nil newFn uses new(T).
func NewBounded[T any](capacity int, newFn func() *T, opts ...Option[T]) (*Bounded[T], error) {
	if err := validation.ValidatePositive("pool", "capacity", capacity); err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	build := constructor(newFn)

	p := &Bounded[T]{
		capacity: capacity,
		idle:     newRing[*Handle[T]](capacity),
		reset:    o.reset,
	}
	for i := 0; i < capacity; i++ {
		p.idle.enqueue(newHandle(build(), home[T](p)))
	}
	return p, nil
}

// Get checks out an idle object. It returns false when every object is in
// use; that is a normal condition and callers should drop their sample.
func (p *Bounded[T]) Get() (*Handle[T], bool) {
	h, ok := p.idle.dequeue()
	if !ok {
		p.misses.Add(1)
		return nil, false
	}
	return h.checkout(), true
}

// TryGet implements Source.
func (p *Bounded[T]) TryGet() (*Handle[T], bool) {
	return p.Get()
}

// Capacity returns the fixed number of objects owned by the pool.
func (p *Bounded[T]) Capacity() int {
	return p.capacity
}

// Stats returns a snapshot of the pool counters.
func (p *Bounded[T]) Stats() Stats {
	return Stats{
		Capacity:  p.capacity,
		Idle:      p.idle.len(),
		Allocated: p.capacity,
		Misses:    p.misses.Load(),
	}
}

func (p *Bounded[T]) put(h *Handle[T]) {
	if p.reset != nil {
		p.reset(h.value)
	}
	if !p.idle.enqueue(h) {
		// Only capacity handles exist and the ring holds at least that many.
		panic("pool: bounded pool overflow, handle returned twice")
	}
}
