package sinks

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/vnykmshr/metricbus/pkg/bus"
	"github.com/vnykmshr/metricbus/pkg/common/validation"
)

// OTelConsumer records the samples of every report into OpenTelemetry
// gauges, one instrument per sample name.
type OTelConsumer struct {
	meter  metric.Meter
	prefix string
	logger *zap.Logger

	mu     sync.RWMutex
	gauges map[string]metric.Float64Gauge
}

// NewOTelConsumer creates a consumer on meter. Instrument names are
// prefix + "." + sample name.
func NewOTelConsumer(meter metric.Meter, prefix string, logger *zap.Logger) (*OTelConsumer, error) {
	if err := validation.ValidateNotNil("sinks", "meter", meter); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OTelConsumer{
		meter:  meter,
		prefix: strings.TrimSuffix(prefix, "."),
		logger: logger.With(zap.String("component", "sink.otel")),
		gauges: make(map[string]metric.Float64Gauge),
	}, nil
}

// HandleMetric implements bus.Consumer. Reports that are not Sampled are
// ignored.
func (c *OTelConsumer) HandleMetric(report bus.Report) {
	s, ok := report.(Sampled)
	if !ok {
		return
	}
	attrs := metric.WithAttributes(attribute.String("metric", metricName(report)))
	ctx := context.Background()

	for _, sample := range s.Samples() {
		gauge, err := c.gauge(sample.Name)
		if err != nil {
			c.logger.Warn("failed to create gauge", zap.String("sample", sample.Name), zap.Error(err))
			continue
		}
		gauge.Record(ctx, sample.Value, attrs)
	}
}

func (c *OTelConsumer) gauge(sample string) (metric.Float64Gauge, error) {
	c.mu.RLock()
	gauge, ok := c.gauges[sample]
	c.mu.RUnlock()
	if ok {
		return gauge, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Double-check after acquiring write lock
	if gauge, ok = c.gauges[sample]; ok {
		return gauge, nil
	}
	name := sample
	if c.prefix != "" {
		name = c.prefix + "." + sample
	}
	gauge, err := c.meter.Float64Gauge(name)
	if err != nil {
		return nil, err
	}
	c.gauges[sample] = gauge
	return gauge, nil
}
