package pool

// Source hands out pooled objects. A false result means no object is
// available and the caller should drop whatever it wanted to store.
type Source[T any] interface {
	TryGet() (*Handle[T], bool)
}

// Stats is a point-in-time view of a pool.
type Stats struct {
	// Capacity is the fixed size of a bounded pool, zero for unbounded pools.
	Capacity int

	// Idle is the approximate number of objects waiting in the pool.
	Idle int

	// Allocated is the number of objects the pool ever constructed.
	Allocated int

	// Misses counts Get calls that found the pool empty. For a bounded pool
	// these are refusals, for an unbounded pool they are growth events.
	Misses uint64
}

// Option configures a pool.
type Option[T any] func(*options[T])

type options[T any] struct {
	reset func(*T)
}

// WithReset installs a hook that clears an object before it re-enters the
// idle set.
func WithReset[T any](fn func(*T)) Option[T] {
	return func(o *options[T]) {
		o.reset = fn
	}
}

func buildOptions[T any](opts []Option[T]) options[T] {
	var o options[T]
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func constructor[T any](newFn func() *T) func() *T {
	if newFn != nil {
		return newFn
	}
	return func() *T { return new(T) }
}
