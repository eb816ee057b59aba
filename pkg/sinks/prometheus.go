package sinks

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/metricbus/pkg/bus"
	"github.com/vnykmshr/metricbus/pkg/common/errors"
	"github.com/vnykmshr/metricbus/pkg/metrics"
)

// PrometheusConsumer mirrors the samples of every report into a gauge
// labelled by metric and sample name.
type PrometheusConsumer struct {
	gauge *prometheus.GaugeVec
}

// NewPrometheusConsumer registers the report gauge with reg. An empty
// namespace uses metrics.DefaultNamespace.
func NewPrometheusConsumer(reg prometheus.Registerer, namespace string) (*PrometheusConsumer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = metrics.DefaultNamespace
	}
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_value",
			Help:      "Latest value of each sample carried by metric reports",
		},
		[]string{"metric", "sample"},
	)
	if err := reg.Register(gauge); err != nil {
		return nil, errors.NewOperationError("sinks", "register_prometheus", err)
	}
	return &PrometheusConsumer{gauge: gauge}, nil
}

// HandleMetric implements bus.Consumer. Reports that are not Sampled are
// ignored.
func (c *PrometheusConsumer) HandleMetric(report bus.Report) {
	s, ok := report.(Sampled)
	if !ok {
		return
	}
	name := metricName(report)
	for _, sample := range s.Samples() {
		c.gauge.WithLabelValues(name, sample.Name).Set(sample.Value)
	}
}

// Collector exposes the underlying gauge.
func (c *PrometheusConsumer) Collector() prometheus.Collector {
	return c.gauge
}
