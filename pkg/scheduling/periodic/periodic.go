package periodic

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vnykmshr/metricbus/pkg/bus"
	"github.com/vnykmshr/metricbus/pkg/common/errors"
)

// Controller asks every producer for a sample once per period.
//
// A Controller is idle until Start and returns to idle on Stop. Stop is a
// request flag checked by every fire: once Stop returns, no fire that has
// not yet begun will call a producer.
type Controller struct {
	name          string
	schedule      cron.Schedule
	exec          bus.Executor
	retry         time.Duration
	recoverPanics bool
	producers     []bus.Producer
	logger        *zap.Logger

	fireCount prometheus.Counter
	fireTime  prometheus.Observer

	fires   atomic.Uint64
	stopped atomic.Bool
	gen     atomic.Uint64

	mu    sync.Mutex
	timer *time.Timer
	next  time.Time
}

// New creates a controller driving producers in the given order. With a
// zero period and no schedule the controller is disabled and Start and
// Stop do nothing.
func New(cfg Config, producers ...bus.Producer) (*Controller, error) {
	schedule, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = "periodic"
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Controller{
		name:          cfg.Name,
		schedule:      schedule,
		exec:          cfg.Executor,
		retry:         cfg.RetryInterval,
		recoverPanics: cfg.RecoverProducers,
		producers:     append([]bus.Producer(nil), producers...),
		logger:        logger.With(zap.String("component", "periodic"), zap.String("controller", cfg.Name)),
	}
	if cfg.Metrics != nil {
		c.fireCount = cfg.Metrics.PeriodicFires.WithLabelValues(cfg.Name)
		c.fireTime = cfg.Metrics.PeriodicDuration.WithLabelValues(cfg.Name)
	}
	c.stopped.Store(true)
	return c, nil
}

// MustNew is like New but panics on invalid wiring.
func MustNew(cfg Config, producers ...bus.Producer) *Controller {
	c, err := New(cfg, producers...)
	if err != nil {
		panic(fmt.Sprintf("periodic: %v", err))
	}
	return c
}

// Factory adapts New to the manager's controller factory.
func Factory(cfg Config) bus.ControllerFactory {
	return func(producers []bus.Producer) (bus.Controller, error) {
		c, err := New(cfg, producers...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Enabled reports whether the controller samples at all.
func (c *Controller) Enabled() bool {
	return c.schedule != nil
}

// Start arms the timer and returns once it is armed.
func (c *Controller) Start() error {
	return c.StartContext(context.Background())
}

// StartContext is Start with a bound on how long to wait for the executor
// to accept and run the arming task. If ctx ends first the controller is
// left stopped.
func (c *Controller) StartContext(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}

	c.stopped.Store(false)
	gen := c.gen.Add(1)

	armed := make(chan struct{})
	arm := func() {
		defer close(armed)
		c.arm(gen, time.Now())
	}
	if err := c.submit(ctx, gen, arm); err != nil {
		c.Stop()
		return errors.NewOperationError("periodic", "start", err).WithContext(c.name)
	}

	select {
	case <-armed:
		c.logger.Info("periodic sampling started",
			zap.Int("producers", len(c.producers)),
			zap.Time("next", c.Next()))
		return nil
	case <-ctx.Done():
		c.Stop()
		return errors.NewOperationError("periodic", "start", ctx.Err()).WithContext(c.name)
	}
}

// Stop requests that no further fire run and stops the timer. A fire that
// already began finishes its pass. Stop is idempotent and safe before Start.
func (c *Controller) Stop() {
	if !c.Enabled() {
		return
	}
	if c.stopped.Swap(true) {
		return
	}

	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.next = time.Time{}
	c.mu.Unlock()

	c.logger.Info("periodic sampling stopped", zap.Uint64("fires", c.fires.Load()))
}

// Running reports whether the controller was started and not stopped.
func (c *Controller) Running() bool {
	return c.Enabled() && !c.stopped.Load()
}

// Fires returns the number of fires that called the producers.
func (c *Controller) Fires() uint64 {
	return c.fires.Load()
}

// Next returns when the timer is due, or the zero time when it is not armed.
func (c *Controller) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

func (c *Controller) stale(gen uint64) bool {
	return c.stopped.Load() || c.gen.Load() != gen
}

// submit hands task to the executor, retrying while it is rejected.
func (c *Controller) submit(ctx context.Context, gen uint64, task func()) error {
	for attempt := 0; !c.exec.Execute(task); attempt++ {
		if attempt == 0 {
			c.logger.Debug("executor rejected timer task, retrying")
		}
		if c.stale(gen) {
			return errors.ErrClosed
		}
		t := time.NewTimer(c.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// arm schedules the next fire relative to from.
func (c *Controller) arm(gen uint64, from time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stale(gen) {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	next := c.schedule.Next(from)
	if next.IsZero() {
		c.logger.Warn("schedule has no future activation, sampling halted")
		c.timer = nil
		c.next = time.Time{}
		return
	}
	c.next = next
	c.timer = time.AfterFunc(time.Until(next), func() { c.expire(gen) })
}

// expire runs on the timer goroutine and moves the fire onto the executor.
func (c *Controller) expire(gen uint64) {
	if c.stale(gen) {
		return
	}
	_ = c.submit(context.Background(), gen, func() { c.fire(gen) })
}

func (c *Controller) fire(gen uint64) {
	if c.stale(gen) {
		return
	}
	start := time.Now()

	// Rearm before any producer runs so a slow pass cannot lose a period.
	c.arm(gen, start)
	c.fires.Add(1)

	for _, p := range c.producers {
		c.call(p)
	}

	if c.fireCount != nil {
		c.fireCount.Inc()
		c.fireTime.Observe(time.Since(start).Seconds())
	}
}

func (c *Controller) call(p bus.Producer) {
	if c.recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("producer panicked", zap.Any("panic", r), zap.Stack("stack"))
			}
		}()
	}
	p.OnNewReportPeriod()
}
