// Package sinks provides bus.Consumer implementations that move metric
// reports out of the process: a zap logger, a Redis channel, a Prometheus
// gauge and OpenTelemetry gauges, plus the text and JSON formatters they
// share.
//
// Consumers run on executor goroutines and may block on I/O. None of them
// retains a report after HandleMetric returns, so all are safe to use with
// pooled dispatch.
package sinks
