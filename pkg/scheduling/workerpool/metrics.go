package workerpool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/metricbus/pkg/metrics"
)

// instruments holds the pool's pre-resolved metric children. A nil
// *instruments records nothing.
type instruments struct {
	executed    prometheus.Counter
	rejectedCnt prometheus.Counter
	duration    prometheus.Observer
	sizeGauge   prometheus.Gauge
	activeGauge prometheus.Gauge
	queuedGauge prometheus.Gauge
}

func newInstruments(reg *metrics.Registry, name string) *instruments {
	if reg == nil {
		return nil
	}
	return &instruments{
		executed:    reg.TasksExecuted.WithLabelValues(name),
		rejectedCnt: reg.TasksRejected.WithLabelValues(name),
		duration:    reg.TaskExecutionDuration.WithLabelValues(name),
		sizeGauge:   reg.WorkerPoolSize.WithLabelValues(name),
		activeGauge: reg.WorkerPoolActive.WithLabelValues(name),
		queuedGauge: reg.WorkerPoolQueued.WithLabelValues(name),
	}
}

func (i *instruments) executedTask(d time.Duration) {
	if i == nil {
		return
	}
	i.executed.Inc()
	i.duration.Observe(d.Seconds())
}

func (i *instruments) rejected() {
	if i == nil {
		return
	}
	i.rejectedCnt.Inc()
}

func (i *instruments) size(n int) {
	if i == nil {
		return
	}
	i.sizeGauge.Set(float64(n))
}

func (i *instruments) active(n int) {
	if i == nil {
		return
	}
	i.activeGauge.Set(float64(n))
}

func (i *instruments) queued(n int) {
	if i == nil {
		return
	}
	i.queuedGauge.Set(float64(n))
}
