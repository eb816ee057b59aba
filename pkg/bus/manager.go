package bus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	mberrors "github.com/vnykmshr/metricbus/pkg/common/errors"
	"github.com/vnykmshr/metricbus/pkg/common/validation"
	"github.com/vnykmshr/metricbus/pkg/metrics"
)

// ControllerFactory builds the periodic controller that drives the given
// producers. Producers are passed in registration order.
type ControllerFactory func(producers []Producer) (Controller, error)

// ManagerConfig holds everything a Manager is built from.
type ManagerConfig struct {
	// Registrations is the closed set of metric categories. Names must be
	// unique.
	Registrations []Registration

	// Executor runs consumers. Required when any registration has consumers.
	Executor Executor

	// Controller builds the periodic controller. Nil means the manager has
	// no periodic sampling and Start/Stop are no-ops.
	Controller ControllerFactory

	// Relay, if set, is bound to the new manager.
	Relay *Relay

	// Logger receives dispatch errors. Defaults to a no-op logger.
	Logger *zap.Logger

	// Metrics enables Prometheus instrumentation when non-nil.
	Metrics *metrics.Registry
}

// Manager is the registry and dispatcher of metric samples. Its table is
// built once by NewManager and never changes, so lookups take no lock.
type Manager struct {
	entries    map[string]*entry
	names      []string
	producers  []Producer
	controller Controller
	logger     *zap.Logger
	metrics    *metrics.Registry
}

// NewManager validates cfg and builds a manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "bus"))

	m := &Manager{
		entries: make(map[string]*entry, len(cfg.Registrations)),
		names:   make([]string, 0, len(cfg.Registrations)),
		logger:  logger,
		metrics: cfg.Metrics,
	}

	for i, reg := range cfg.Registrations {
		if err := validation.ValidateNotEmpty("bus", "name", reg.Name); err != nil {
			return nil, err
		}
		if _, dup := m.entries[reg.Name]; dup {
			return nil, mberrors.NewValidationError("bus", "name", reg.Name, "registered twice").
				WithHint("metric names must be unique within a manager")
		}
		if len(reg.Consumers) > 0 {
			if reg.Dispatch == nil {
				return nil, mberrors.NewValidationError("bus", "dispatch", i, "cannot be nil when consumers are registered").
					WithHint("use PooledDispatch or DirectDispatch for " + reg.Name)
			}
			if err := validation.ValidateNotNil("bus", "executor", cfg.Executor); err != nil {
				return nil, err
			}
		}

		e := &entry{
			name:      reg.Name,
			dispatch:  reg.Dispatch,
			consumers: append([]Consumer(nil), reg.Consumers...),
			exec:      cfg.Executor,
			logger:    logger.With(zap.String("metric", reg.Name)),
		}
		if cfg.Metrics != nil && cfg.Executor != nil {
			e.exec = newInstrumentedExecutor(cfg.Executor, cfg.Metrics, reg.Name)
		}
		m.entries[reg.Name] = e
		m.names = append(m.names, reg.Name)
		m.producers = append(m.producers, reg.Producers...)
	}

	if cfg.Controller != nil {
		ctrl, err := cfg.Controller(m.Producers())
		if err != nil {
			return nil, err
		}
		m.controller = ctrl
	}

	if cfg.Relay != nil {
		cfg.Relay.Bind(m)
	}
	return m, nil
}

// OnNewMetric routes report to the dispatch strategy of its category.
//
// A report whose name was never registered is a wiring bug; OnNewMetric
// panics with *errors.UnregisteredMetricError rather than dropping it.
func (m *Manager) OnNewMetric(report Report) {
	name := report.Properties().Name()
	e, ok := m.entries[name]
	if !ok {
		panic(&mberrors.UnregisteredMetricError{Name: name, Known: m.Names()})
	}
	if m.metrics != nil {
		m.metrics.SamplesReceived.WithLabelValues(name).Inc()
	}
	if len(e.consumers) == 0 {
		return
	}
	e.dispatch(report, e.consumers, e.exec, e.logger)
}

// Start starts periodic sampling.
func (m *Manager) Start() error {
	if m.controller == nil {
		return nil
	}
	m.logger.Info("starting periodic metric reports", zap.Int("producers", len(m.producers)))
	return m.controller.Start()
}

// Stop stops periodic sampling. Samples already dispatched still reach
// their consumers.
func (m *Manager) Stop() {
	if m.controller == nil {
		return
	}
	m.controller.Stop()
	m.logger.Info("stopped periodic metric reports")
}

// Names returns the registered metric names in registration order.
func (m *Manager) Names() []string {
	return append([]string(nil), m.names...)
}

// Registered reports whether name is part of the table.
func (m *Manager) Registered(name string) bool {
	_, ok := m.entries[name]
	return ok
}

// Producers returns every registered producer in registration order.
func (m *Manager) Producers() []Producer {
	return append([]Producer(nil), m.producers...)
}

// Controller returns the periodic controller, or nil.
func (m *Manager) Controller() Controller {
	return m.controller
}

// instrumentedExecutor counts dispatch outcomes for one metric category.
type instrumentedExecutor struct {
	next       Executor
	dispatched prometheus.Counter
	rejected   prometheus.Counter
	duration   prometheus.Observer
}

func newInstrumentedExecutor(next Executor, reg *metrics.Registry, name string) *instrumentedExecutor {
	return &instrumentedExecutor{
		next:       next,
		dispatched: reg.SamplesDispatched.WithLabelValues(name),
		rejected:   reg.SamplesDropped.WithLabelValues(name, metrics.DropRejected),
		duration:   reg.ConsumerDuration.WithLabelValues(name),
	}
}

func (ie *instrumentedExecutor) Execute(task func()) bool {
	ok := ie.next.Execute(func() {
		start := time.Now()
		task()
		ie.duration.Observe(time.Since(start).Seconds())
	})
	if ok {
		ie.dispatched.Inc()
	} else {
		ie.rejected.Inc()
	}
	return ok
}
