package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Config holds configuration for metrics collection.
type Config struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool

	// Registry is the Prometheus registry to use. If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Namespace overrides the default "metricbus" namespace for metrics.
	Namespace string

	// Labels are constant labels added to all metrics, e.g. the bus instance id.
	Labels prometheus.Labels
}

// DefaultConfig returns a default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Registry:  prometheus.DefaultRegisterer,
		Namespace: DefaultNamespace,
		Labels:    nil,
	}
}

// New builds a Registry from cfg. It returns nil when metrics are disabled;
// every component treats a nil *Registry as "do not instrument". Without a
// registerer, namespace or labels it returns the shared Default registry, so
// repeated calls against prometheus.DefaultRegisterer do not register the
// same collectors twice.
func New(cfg Config) *Registry {
	if !cfg.Enabled {
		return nil
	}
	global := cfg.Registry == nil || cfg.Registry == prometheus.DefaultRegisterer
	if global && (cfg.Namespace == "" || cfg.Namespace == DefaultNamespace) && len(cfg.Labels) == 0 {
		return Default()
	}
	return NewRegistryWithConfig(cfg)
}
