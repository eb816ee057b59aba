package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vnykmshr/metricbus/pkg/common/errors"
	"github.com/vnykmshr/metricbus/pkg/common/validation"
	"github.com/vnykmshr/metricbus/pkg/metrics"
)

// Task is work that takes a context and may fail.
type Task interface {
	Execute(ctx context.Context) error
}

// TaskFunc adapts a function to Task.
type TaskFunc func(ctx context.Context) error

func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// closure is the executor form of a task. Converting a func value to an
// interface does not allocate.
type closure func()

func (f closure) Execute(context.Context) error {
	f()
	return nil
}

// Stats is a point-in-time snapshot of a pool's counters.
type Stats struct {
	Workers   int
	Queued    int
	Active    int
	Accepted  int64
	Completed int64
	Rejected  int64
	Failed    int64
}

// Pool runs tasks on a fixed set of goroutines fed by a bounded queue.
type Pool interface {
	// Execute queues task without blocking and reports whether it was
	// accepted. This is the executor form used by the metric bus.
	Execute(task func()) bool

	// Submit queues a task without blocking. It returns errors.ErrRejected
	// when the queue is full and errors.ErrClosed after Shutdown.
	Submit(task Task) error

	// SubmitWithContext waits for queue space until ctx is done. The task
	// later runs with ctx.
	SubmitWithContext(ctx context.Context, task Task) error

	// Shutdown stops intake and drains the queue. The returned channel is
	// closed once every worker has exited.
	Shutdown() <-chan struct{}

	// ShutdownWithTimeout is Shutdown, but cancels the context of tasks
	// still queued or running when timeout expires.
	ShutdownWithTimeout(timeout time.Duration) <-chan struct{}

	Size() int
	Stats() Stats
}

// Config configures NewWithConfig.
type Config struct {
	// Name labels log lines and metrics. Defaults to "default".
	Name string

	// WorkerCount must be positive.
	WorkerCount int

	// QueueSize must be positive. A full queue rejects new tasks.
	QueueSize int

	// Logger receives recovered panics and failed tasks. Defaults to a
	// no-op logger.
	Logger *zap.Logger

	// Metrics enables Prometheus instrumentation when non-nil.
	Metrics *metrics.Registry
}

type queued struct {
	task Task
	ctx  context.Context
}

type workerPool struct {
	name    string
	workers int
	logger  *zap.Logger
	inst    *instruments

	queue chan queued

	// closing wakes submitters blocked in SubmitWithContext so that they
	// release mu before Shutdown takes the write lock.
	closing   chan struct{}
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup

	// base is the context of tasks queued without one. It is canceled when
	// a shutdown grace period runs out.
	base   context.Context
	cancel context.CancelFunc

	// mu guards closed and the close of queue. Senders hold it for reading.
	mu     sync.RWMutex
	closed bool

	active    atomic.Int32
	accepted  atomic.Int64
	completed atomic.Int64
	rejected  atomic.Int64
	failed    atomic.Int64
}

// New returns a pool with the given number of workers and queue slots.
func New(workerCount, queueSize int) (Pool, error) {
	return NewWithConfig(Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	})
}

func NewWithConfig(config Config) (Pool, error) {
	if err := validation.ValidatePositive("workerpool", "worker_count", config.WorkerCount); err != nil {
		return nil, err
	}
	if config.QueueSize <= 0 {
		return nil, errors.NewValidationError("workerpool", "queue_size", config.QueueSize, "must be positive").
			WithHint("the queue is bounded so that a saturated pool rejects work instead of blocking callers")
	}
	if config.Name == "" {
		config.Name = "default"
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	base, cancel := context.WithCancel(context.Background())
	p := &workerPool{
		name:    config.Name,
		workers: config.WorkerCount,
		logger:  logger.With(zap.String("pool", config.Name)),
		inst:    newInstruments(config.Metrics, config.Name),
		queue:   make(chan queued, config.QueueSize),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		base:    base,
		cancel:  cancel,
	}
	p.inst.size(config.WorkerCount)

	p.wg.Add(config.WorkerCount)
	for id := 0; id < config.WorkerCount; id++ {
		go p.work(id)
	}
	return p, nil
}
