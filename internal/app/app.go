// Package app wires a metricbus instance from configuration: executors,
// report pools, sinks, console views and the periodic controller.
package app

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vnykmshr/metricbus/internal/config"
	"github.com/vnykmshr/metricbus/pkg/bus"
	"github.com/vnykmshr/metricbus/pkg/common/errors"
	"github.com/vnykmshr/metricbus/pkg/console"
	"github.com/vnykmshr/metricbus/pkg/metrics"
	"github.com/vnykmshr/metricbus/pkg/pool"
	"github.com/vnykmshr/metricbus/pkg/ratelimit/bucket"
	"github.com/vnykmshr/metricbus/pkg/reports"
	"github.com/vnykmshr/metricbus/pkg/scheduling/periodic"
	"github.com/vnykmshr/metricbus/pkg/scheduling/workerpool"
	"github.com/vnykmshr/metricbus/pkg/sinks"
)

// Console names of the report views.
const (
	ResourcesView  = "resources"
	ThroughputView = "throughput"
)

// ToggleCommand is the console command switching report views.
const ToggleCommand = "t"

const (
	timerQueueSize  = 16
	warnInterval    = time.Second
	otelPrefix      = "metricbus"
	resourcesPool   = "resource_usage"
	throughputPool  = "throughput"
	defaultShutdown = 5 * time.Second
)

// Options carries the collaborators New does not build from config.
type Options struct {
	Config *config.Config

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Out receives console views and command output. Defaults to os.Stdout.
	Out io.Writer

	// Registerer receives bus instrumentation and the report gauges.
	// Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer

	// Redis overrides the client built from config.redis.addr.
	Redis sinks.Publisher

	// Meter overrides the global OpenTelemetry meter.
	Meter metric.Meter

	// InstanceID tags JSON output. A random id is used when zero.
	InstanceID uuid.UUID
}

// App is one running metric bus.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	instance uuid.UUID

	consumers workerpool.Pool
	timer     workerpool.Pool
	manager   *bus.Manager
	relay     *bus.Relay

	usage      *reports.ResourceUsageProducer
	throughput *reports.ThroughputProducer

	toggle     *console.ExclusiveToggle
	dispatcher *console.Dispatcher

	redisClient *redis.Client
	stopOnce    sync.Once
}

// New validates opts.Config and builds every component. Nothing runs until
// Start.
func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.NewValidationError("app", "config", nil, "must not be nil")
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewOperationError("app", "validate_config", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	instance := opts.InstanceID
	if instance == uuid.Nil {
		instance = uuid.New()
	}

	a := &App{
		cfg:      cfg,
		logger:   logger.With(zap.String("instance", instance.String())),
		instance: instance,
		relay:    &bus.Relay{},
	}

	var bm *metrics.Registry
	if cfg.Prometheus.Address != "" {
		bm = metrics.New(metrics.Config{
			Enabled:   true,
			Registry:  reg,
			Namespace: cfg.Prometheus.Namespace,
			Labels:    prometheus.Labels{"instance": instance.String()},
		})
	}

	var err error
	a.consumers, err = workerpool.NewWithConfig(workerpool.Config{
		Name:        "consumers",
		WorkerCount: cfg.Executor.Workers,
		QueueSize:   cfg.Executor.QueueSize,
		Logger:      a.logger,
		Metrics:     bm,
	})
	if err != nil {
		return nil, err
	}
	// Fires run on a single worker so they never overlap.
	a.timer, err = workerpool.NewWithConfig(workerpool.Config{
		Name:        "timer",
		WorkerCount: 1,
		QueueSize:   timerQueueSize,
		Logger:      a.logger,
		Metrics:     bm,
	})
	if err != nil {
		a.shutdownExecutors(defaultShutdown)
		return nil, err
	}

	regs, err := a.registrations(opts, out, reg, bm)
	if err != nil {
		a.shutdownExecutors(defaultShutdown)
		a.closeRedis()
		return nil, err
	}

	a.manager, err = bus.NewManager(bus.ManagerConfig{
		Registrations: regs,
		Executor:      a.consumers,
		Controller: periodic.Factory(periodic.Config{
			Name:             "reports",
			Period:           cfg.Metrics.Period,
			Schedule:         cfg.Metrics.Schedule,
			Executor:         a.timer,
			RecoverProducers: true,
			Logger:           a.logger,
			Metrics:          bm,
		}),
		Relay:   a.relay,
		Logger:  a.logger,
		Metrics: bm,
	})
	if err != nil {
		a.shutdownExecutors(defaultShutdown)
		a.closeRedis()
		return nil, err
	}
	return a, nil
}

func (a *App) registrations(opts Options, out io.Writer, reg prometheus.Registerer, bm *metrics.Registry) ([]bus.Registration, error) {
	cfg := a.cfg

	shared, err := a.sinks(opts, reg)
	if err != nil {
		return nil, err
	}

	a.usage = reports.NewResourceUsageProducer(a.relay)
	a.throughput = reports.NewThroughputProducer(a.relay)

	usageSlots, err := newSlots[reports.ResourceUsage](cfg.Pool)
	if err != nil {
		return nil, err
	}
	throughputSlots, err := newSlots[reports.Throughput](cfg.Pool)
	if err != nil {
		return nil, err
	}

	usageConsumers := append([]bus.Consumer(nil), shared...)
	throughputConsumers := append([]bus.Consumer(nil), shared...)

	if cfg.Console.Enabled {
		usageView := console.NewPrinter(ResourcesView, out, reports.ResourceUsageLayout)
		throughputView := console.NewPrinter(ThroughputView, out, reports.ThroughputLayout)
		usageConsumers = append(usageConsumers, usageView)
		throughputConsumers = append(throughputConsumers, throughputView)

		a.toggle, err = console.NewExclusiveToggle(ToggleCommand, "toggle live report views", out, usageView, throughputView)
		if err != nil {
			return nil, err
		}
		a.dispatcher, err = console.NewDispatcher(out, a.toggle)
		if err != nil {
			return nil, err
		}
	}

	usageWarn, err := bucket.New(bucket.Every(warnInterval), 1)
	if err != nil {
		return nil, err
	}
	throughputWarn, err := bucket.New(bucket.Every(warnInterval), 1)
	if err != nil {
		return nil, err
	}

	return []bus.Registration{
		{
			Name: reports.ResourceUsageName,
			Dispatch: bus.PooledDispatch[reports.ResourceUsage](usageSlots,
				bus.WithWarnLimiter(usageWarn),
				bus.WithPoolMetrics(bm, resourcesPool),
			),
			Producers: []bus.Producer{a.usage},
			Consumers: usageConsumers,
		},
		{
			Name: reports.ThroughputName,
			Dispatch: bus.PooledDispatch[reports.Throughput](throughputSlots,
				bus.WithWarnLimiter(throughputWarn),
				bus.WithPoolMetrics(bm, throughputPool),
			),
			Producers: []bus.Producer{a.throughput},
			Consumers: throughputConsumers,
		},
	}, nil
}

// sinks builds the consumers every category shares, in the order they run.
func (a *App) sinks(opts Options, reg prometheus.Registerer) ([]bus.Consumer, error) {
	cfg := a.cfg
	var out []bus.Consumer

	level := zapcore.DebugLevel
	if cfg.Metrics.Verbose {
		level = zapcore.InfoLevel
	}
	if cfg.Metrics.EnableLog {
		out = append(out, sinks.NewLogConsumer(a.logger, sinks.TextFormatter{}).WithLevel(level))
	}
	if cfg.Metrics.EnableJSON {
		out = append(out, sinks.NewLogConsumer(a.logger, sinks.NewJSONFormatter(a.instance)).WithLevel(level))
	}

	if cfg.Prometheus.Address != "" {
		c, err := sinks.NewPrometheusConsumer(reg, cfg.Prometheus.Namespace)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	if cfg.OTel.Enabled {
		meter := opts.Meter
		if meter == nil {
			meter = otel.GetMeterProvider().Meter(cfg.OTel.MeterName)
		}
		c, err := sinks.NewOTelConsumer(meter, otelPrefix, a.logger)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	if cfg.Redis.Enabled() || opts.Redis != nil {
		client := opts.Redis
		if client == nil {
			a.redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
			client = a.redisClient
		}
		c, err := sinks.NewRedisConsumer(sinks.RedisConfig{
			Client:    client,
			Channel:   cfg.Redis.Channel,
			Formatter: sinks.NewJSONFormatter(a.instance),
			Logger:    a.logger,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func newSlots[R any](cfg config.PoolConfig) (pool.Source[R], error) {
	if cfg.Bounded {
		return pool.NewBounded[R](cfg.Capacity, nil)
	}
	return pool.NewUnbounded[R](cfg.Capacity, nil), nil
}

// Start arms the periodic controller.
func (a *App) Start() error {
	if err := a.manager.Start(); err != nil {
		return err
	}
	a.logger.Info("metric bus started",
		zap.Strings("metrics", a.manager.Names()),
		zap.Duration("period", a.cfg.Metrics.Period),
		zap.String("schedule", a.cfg.Metrics.Schedule),
	)
	return nil
}

// Stop halts sampling, drains the executors for at most timeout and closes
// the Redis client. It is safe to call more than once.
func (a *App) Stop(timeout time.Duration) {
	a.stopOnce.Do(func() {
		a.manager.Stop()
		a.shutdownExecutors(timeout)
		a.closeRedis()
		a.logger.Info("metric bus stopped")
	})
}

func (a *App) shutdownExecutors(timeout time.Duration) {
	if a.timer != nil {
		<-a.timer.ShutdownWithTimeout(timeout)
	}
	if a.consumers != nil {
		<-a.consumers.ShutdownWithTimeout(timeout)
	}
}

func (a *App) closeRedis() {
	if a.redisClient == nil {
		return
	}
	if err := a.redisClient.Close(); err != nil {
		a.logger.Warn("failed to close redis client", zap.Error(err))
	}
}

// RunConsole reads operator commands from in until ctx is done or in is
// exhausted. It returns immediately when the console is disabled.
func (a *App) RunConsole(ctx context.Context, in io.Reader) error {
	if a.dispatcher == nil {
		return nil
	}
	return a.dispatcher.Run(ctx, in)
}

// Dispatcher is nil when the console is disabled.
func (a *App) Dispatcher() *console.Dispatcher {
	return a.dispatcher
}

func (a *App) Manager() *bus.Manager {
	return a.manager
}

// Throughput returns the producer traffic paths record into.
func (a *App) Throughput() *reports.ThroughputProducer {
	return a.throughput
}

func (a *App) InstanceID() uuid.UUID {
	return a.instance
}
