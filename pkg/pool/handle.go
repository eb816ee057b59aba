package pool

import "sync/atomic"

// Handle is exclusive ownership of one pooled object. The object goes back
// to its pool when the last owner calls Release. Handles are recycled along
// with their objects, so a holder must not touch a handle after releasing it.
type Handle[T any] struct {
	value *T
	refs  atomic.Int32
	home  home[T]
}

// home is the pool a handle returns to. Holding it from the handle keeps the
// pool reachable for as long as any object is checked out.
type home[T any] interface {
	put(h *Handle[T])
}

func newHandle[T any](value *T, h home[T]) *Handle[T] {
	return &Handle[T]{value: value, home: h}
}

// checkout marks the handle as owned by a single caller.
func (h *Handle[T]) checkout() *Handle[T] {
	h.refs.Store(1)
	return h
}

// Value returns the pooled object.
func (h *Handle[T]) Value() *T {
	return h.value
}

// Retain adds an owner. Every Retain must be paired with a Release.
func (h *Handle[T]) Retain() *Handle[T] {
	if h.refs.Add(1) <= 1 {
		panic("pool: retain on a released handle")
	}
	return h
}

// Release drops one owner and returns the object to its pool once no owner
// is left.
func (h *Handle[T]) Release() {
	switch n := h.refs.Add(-1); {
	case n == 0:
		h.home.put(h)
	case n < 0:
		panic("pool: handle released more times than it was retained")
	}
}
