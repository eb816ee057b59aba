package periodic

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vnykmshr/metricbus/pkg/bus"
	"github.com/vnykmshr/metricbus/pkg/common/errors"
	"github.com/vnykmshr/metricbus/pkg/common/validation"
	"github.com/vnykmshr/metricbus/pkg/metrics"
)

// DefaultRetryInterval is the pause between attempts to hand a task to an
// executor that rejected it.
const DefaultRetryInterval = time.Millisecond

// Config holds configuration options for creating a Controller.
type Config struct {
	// Name labels logs and metrics. Defaults to "periodic".
	Name string

	// Period between fires. Zero together with an empty Schedule disables
	// sampling.
	Period time.Duration

	// Schedule is an optional cron expression, with or without a seconds
	// field, or a descriptor such as "@every 5s". It takes precedence over
	// Period.
	Schedule string

	// Location evaluates Schedule. Defaults to time.Local.
	Location *time.Location

	// Executor runs the arming task and every fire. It must be a serialized
	// context, e.g. a single-worker pool, so fires never overlap.
	Executor bus.Executor

	// RetryInterval is how long to wait before resubmitting a task the
	// executor rejected. Defaults to DefaultRetryInterval.
	RetryInterval time.Duration

	// RecoverProducers recovers and logs a panicking producer instead of
	// letting it crash the executor. Off by default: a faulting producer is
	// a bug to be fixed.
	RecoverProducers bool

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Metrics enables Prometheus instrumentation when non-nil.
	Metrics *metrics.Registry
}

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSchedule reports whether expr is a schedule the controller accepts.
func ValidateSchedule(expr string) error {
	_, err := parseSchedule(expr, nil)
	return err
}

func parseSchedule(expr string, loc *time.Location) (cron.Schedule, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, errors.NewValidationError("periodic", "schedule", expr, err.Error()).
			WithHint("use a cron expression such as \"*/5 * * * * *\" or a descriptor such as \"@every 5s\"")
	}
	if spec, ok := sched.(*cron.SpecSchedule); ok && loc != nil {
		spec.Location = loc
	}
	return sched, nil
}

// everySchedule fires a fixed period after the previous fire. Unlike
// cron.Every it keeps sub-second periods.
type everySchedule struct {
	period time.Duration
}

func (s everySchedule) Next(t time.Time) time.Time {
	return t.Add(s.period)
}

func (cfg Config) disabled() bool {
	return cfg.Period == 0 && cfg.Schedule == ""
}

func (cfg Config) validate() (cron.Schedule, error) {
	if err := validation.ValidateNonNegativeDuration("periodic", "period", cfg.Period); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegativeDuration("periodic", "retry_interval", cfg.RetryInterval); err != nil {
		return nil, err
	}
	if cfg.disabled() {
		return nil, nil
	}
	if err := validation.ValidateNotNil("periodic", "executor", cfg.Executor); err != nil {
		return nil, err
	}
	if cfg.Schedule != "" {
		return parseSchedule(cfg.Schedule, cfg.Location)
	}
	return everySchedule{period: cfg.Period}, nil
}
