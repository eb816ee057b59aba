package pool

import (
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// Unbounded is a pool that never refuses. When no idle object exists, Get
// allocates a new one; every object released later joins the idle set, so
// the pool grows to the peak number of concurrent checkouts and never
// shrinks.
type Unbounded[T any] struct {
	mu    sync.Mutex
	idle  *queue.Queue
	build func() *T
	reset func(*T)

	allocated atomic.Int64
	misses    atomic.Uint64
}

// NewUnbounded creates a pool primed with prime objects built by newFn.
// A nil newFn uses new(T); a negative prime is treated as zero.
func NewUnbounded[T any](prime int, newFn func() *T, opts ...Option[T]) *Unbounded[T] {
	o := buildOptions(opts)

	p := &Unbounded[T]{
		idle:  queue.New(),
		build: constructor(newFn),
		reset: o.reset,
	}
	for i := 0; i < prime; i++ {
		p.idle.Add(newHandle(p.build(), home[T](p)))
	}
	if prime > 0 {
		p.allocated.Store(int64(prime))
	}
	return p
}

// Get checks out an idle object, allocating one when the pool is empty.
func (p *Unbounded[T]) Get() *Handle[T] {
	p.mu.Lock()
	if p.idle.Length() > 0 {
		h := p.idle.Remove().(*Handle[T])
		p.mu.Unlock()
		return h.checkout()
	}
	p.mu.Unlock()

	p.misses.Add(1)
	p.allocated.Add(1)
	return newHandle(p.build(), home[T](p)).checkout()
}

// TryGet implements Source. It always succeeds.
func (p *Unbounded[T]) TryGet() (*Handle[T], bool) {
	return p.Get(), true
}

// Idle returns the number of objects waiting in the pool.
func (p *Unbounded[T]) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idle.Length()
}

// Stats returns a snapshot of the pool counters.
func (p *Unbounded[T]) Stats() Stats {
	return Stats{
		Idle:      p.Idle(),
		Allocated: int(p.allocated.Load()),
		Misses:    p.misses.Load(),
	}
}

func (p *Unbounded[T]) put(h *Handle[T]) {
	if p.reset != nil {
		p.reset(h.value)
	}
	p.mu.Lock()
	p.idle.Add(h)
	p.mu.Unlock()
}
