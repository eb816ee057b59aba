package sinks

import "github.com/vnykmshr/metricbus/pkg/bus"

// Sample is one numeric value carried by a report.
type Sample struct {
	Name  string
	Value float64
}

// Sampled is implemented by reports that expose numeric values. The
// Prometheus and OpenTelemetry consumers only export reports that
// implement it; the text formatter prefers it.
type Sampled interface {
	bus.Report
	Samples() []Sample
}

// Formatter renders a report as one line of text.
type Formatter interface {
	Format(report bus.Report) (string, error)
}

// FormatterFunc adapts a function to the Formatter interface.
type FormatterFunc func(report bus.Report) (string, error)

// Format implements Formatter.
func (f FormatterFunc) Format(report bus.Report) (string, error) {
	return f(report)
}

func metricName(report bus.Report) string {
	return report.Properties().Name()
}
