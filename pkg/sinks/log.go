package sinks

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vnykmshr/metricbus/pkg/bus"
)

// LogConsumer writes every report to a logger after formatting it.
type LogConsumer struct {
	logger    *zap.Logger
	formatter Formatter
	level     zapcore.Level
}

// NewLogConsumer creates a consumer logging at info level. A nil logger
// discards everything.
func NewLogConsumer(logger *zap.Logger, formatter Formatter) *LogConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if formatter == nil {
		formatter = TextFormatter{}
	}
	return &LogConsumer{
		logger:    logger.With(zap.String("component", "sink.log")),
		formatter: formatter,
		level:     zapcore.InfoLevel,
	}
}

// WithLevel changes the level reports are logged at.
func (c *LogConsumer) WithLevel(level zapcore.Level) *LogConsumer {
	c.level = level
	return c
}

// HandleMetric implements bus.Consumer.
func (c *LogConsumer) HandleMetric(report bus.Report) {
	ce := c.logger.Check(c.level, "")
	if ce == nil {
		return
	}
	line, err := c.formatter.Format(report)
	if err != nil {
		c.logger.Warn("failed to format report", zap.String("metric", metricName(report)), zap.Error(err))
		return
	}
	ce.Message = line
	ce.Write(zap.String("metric", metricName(report)))
}
