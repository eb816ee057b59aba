package bus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vnykmshr/metricbus/pkg/metrics"
	"github.com/vnykmshr/metricbus/pkg/pool"
	"github.com/vnykmshr/metricbus/pkg/ratelimit/bucket"
)

// DispatchOption configures a dispatch strategy.
type DispatchOption func(*dispatchOptions)

type dispatchOptions struct {
	warn     bucket.Limiter
	metrics  *metrics.Registry
	poolName string
}

// WithWarnLimiter throttles the warning logged when a pool is exhausted.
// Without it every dropped sample is logged.
func WithWarnLimiter(l bucket.Limiter) DispatchOption {
	return func(o *dispatchOptions) {
		o.warn = l
	}
}

// WithPoolMetrics counts exhaustion drops and publishes the pool gauges
// under poolName.
func WithPoolMetrics(reg *metrics.Registry, poolName string) DispatchOption {
	return func(o *dispatchOptions) {
		o.metrics = reg
		o.poolName = poolName
	}
}

type statsSource interface {
	Stats() pool.Stats
}

// PooledDispatch copies each sample into a slot drawn from src and runs the
// consumers on the executor against that slot. The slot goes back to the
// pool once every consumer returned. R is the report struct; consumers
// receive a *R, and producers must notify with a *R as well.
//
// An empty pool drops the sample with a warning. A rejected task releases
// the slot, logs an error and drops the sample.
func PooledDispatch[R any, PR interface {
	*R
	Report
}](src pool.Source[R], opts ...DispatchOption) DispatchFunc {
	var o dispatchOptions
	for _, opt := range opts {
		opt(&o)
	}

	var (
		exhausted       *prometheus.CounterVec
		idle, allocated prometheus.Gauge
		stats           statsSource
	)
	if o.metrics != nil {
		exhausted = o.metrics.SamplesDropped
		idle = o.metrics.PoolIdle.WithLabelValues(o.poolName)
		allocated = o.metrics.PoolAllocated.WithLabelValues(o.poolName)
		stats, _ = src.(statsSource)
	}

	return func(report Report, consumers []Consumer, exec Executor, logger *zap.Logger) {
		h, ok := src.TryGet()
		if stats != nil {
			s := stats.Stats()
			idle.Set(float64(s.Idle))
			allocated.Set(float64(s.Allocated))
		}
		if !ok {
			if exhausted != nil {
				exhausted.WithLabelValues(report.Properties().Name(), metrics.DropPoolExhausted).Inc()
			}
			switch {
			case o.warn == nil:
				logger.Warn("report pool exhausted, dropping sample")
			case o.warn.Allow():
				logger.Warn("report pool exhausted, dropping sample",
					zap.Uint64("suppressed", o.warn.Suppressed()))
			}
			return
		}

		slot := h.Value()
		r, ok := report.(PR)
		if !ok {
			h.Release()
			panic(fmt.Sprintf("bus: pooled dispatch for %T received %T", slot, report))
		}
		*slot = *(*R)(r)

		task := func() {
			defer h.Release()
			rep := PR(slot)
			for _, c := range consumers {
				c.HandleMetric(rep)
			}
		}
		if !exec.Execute(task) {
			h.Release()
			logger.Error("failed to dispatch sample, executor rejected task")
		}
	}
}

// DirectDispatch hands the report itself to the consumers. Use it for
// reports that are immutable once produced.
func DirectDispatch() DispatchFunc {
	return func(report Report, consumers []Consumer, exec Executor, logger *zap.Logger) {
		task := func() {
			for _, c := range consumers {
				c.HandleMetric(report)
			}
		}
		if !exec.Execute(task) {
			logger.Error("failed to dispatch sample, executor rejected task")
		}
	}
}
