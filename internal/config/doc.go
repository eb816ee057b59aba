// Package config loads the daemon configuration from an optional YAML file
// and METRICBUS_ prefixed environment variables, and validates it.
//
// Keys map to sections of Config, for example metrics.period or
// METRICBUS_METRICS_PERIOD.
package config
