package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "metricbus"

// Drop reasons used as the "reason" label of SamplesDropped.
const (
	DropPoolExhausted = "pool_exhausted"
	DropRejected      = "rejected"
)

// Registry holds all metric instances for metricbus components.
type Registry struct {
	// Dispatch Metrics
	SamplesReceived   *prometheus.CounterVec
	SamplesDispatched *prometheus.CounterVec
	SamplesDropped    *prometheus.CounterVec
	ConsumerDuration  *prometheus.HistogramVec

	// Pool Metrics
	PoolIdle      *prometheus.GaugeVec
	PoolAllocated *prometheus.GaugeVec

	// Periodic Controller Metrics
	PeriodicFires    *prometheus.CounterVec
	PeriodicDuration *prometheus.HistogramVec

	// Worker Pool Metrics
	TasksExecuted         *prometheus.CounterVec
	TasksRejected         *prometheus.CounterVec
	TaskExecutionDuration *prometheus.HistogramVec
	WorkerPoolSize        *prometheus.GaugeVec
	WorkerPoolActive      *prometheus.GaugeVec
	WorkerPoolQueued      *prometheus.GaugeVec
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry bound to prometheus.DefaultRegisterer. It is
// created on first use so that importing the package has no side effects.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithConfig(Config{Registry: reg})
}

// NewRegistryWithConfig creates a registry honoring the namespace and
// constant labels of cfg.
func NewRegistryWithConfig(cfg Config) *Registry {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	labels := cfg.Labels
	factory := promauto.With(reg)

	return &Registry{
		// Dispatch Metrics
		SamplesReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "bus",
				Name:        "samples_received_total",
				Help:        "Total number of samples handed to the manager",
				ConstLabels: labels,
			},
			[]string{"metric"},
		),

		SamplesDispatched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "bus",
				Name:        "samples_dispatched_total",
				Help:        "Total number of samples scheduled onto a consumer executor",
				ConstLabels: labels,
			},
			[]string{"metric"},
		),

		SamplesDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "bus",
				Name:        "samples_dropped_total",
				Help:        "Total number of samples dropped before reaching consumers",
				ConstLabels: labels,
			},
			[]string{"metric", "reason"},
		),

		ConsumerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "bus",
				Name:        "consumer_duration_seconds",
				Help:        "Time spent running all consumers of one sample",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"metric"},
		),

		// Pool Metrics
		PoolIdle: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "pool",
				Name:        "idle_objects",
				Help:        "Approximate number of idle pooled reports",
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),

		PoolAllocated: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "pool",
				Name:        "allocated_objects",
				Help:        "Number of report objects constructed by a pool",
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),

		// Periodic Controller Metrics
		PeriodicFires: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "periodic",
				Name:        "fires_total",
				Help:        "Total number of report periods that invoked producers",
				ConstLabels: labels,
			},
			[]string{"controller"},
		),

		PeriodicDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "periodic",
				Name:        "fire_duration_seconds",
				Help:        "Time spent invoking all producers of one report period",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"controller"},
		),

		// Worker Pool Metrics
		TasksExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "workerpool",
				Name:        "tasks_executed_total",
				Help:        "Total number of tasks executed",
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),

		TasksRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "workerpool",
				Name:        "tasks_rejected_total",
				Help:        "Total number of tasks refused because the queue was full or closed",
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),

		TaskExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "workerpool",
				Name:        "task_duration_seconds",
				Help:        "Time spent executing tasks",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),

		WorkerPoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "workerpool",
				Name:        "size",
				Help:        "Current worker pool size",
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),

		WorkerPoolActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "workerpool",
				Name:        "active_workers",
				Help:        "Number of active workers",
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),

		WorkerPoolQueued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "workerpool",
				Name:        "queued_tasks",
				Help:        "Number of queued tasks",
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),
	}
}
