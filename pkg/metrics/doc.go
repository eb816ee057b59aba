// Package metrics provides Prometheus instrumentation for metricbus components.
//
// The bus instruments itself: how many samples each metric category
// received, dispatched and dropped, how long consumers took, how often the
// periodic controller fired, and the state of the report pools and worker
// pools that carry samples between goroutines.
//
// # Quick Start
//
//	reg := metrics.New(metrics.Config{
//		Enabled:  true,
//		Registry: prometheus.NewRegistry(),
//		Labels:   prometheus.Labels{"instance": id},
//	})
//
//	mgr, err := bus.NewManager(bus.ManagerConfig{
//		Registrations: regs,
//		Executor:      exec,
//		Metrics:       reg,
//	})
//
// A nil *Registry disables instrumentation everywhere it is accepted, so
// metrics.New returns nil when Config.Enabled is false.
//
// # Available Metrics
//
//   - metricbus_bus_samples_received_total{metric}
//   - metricbus_bus_samples_dispatched_total{metric}
//   - metricbus_bus_samples_dropped_total{metric,reason}
//   - metricbus_bus_consumer_duration_seconds{metric}
//   - metricbus_pool_idle_objects{pool_name}
//   - metricbus_pool_allocated_objects{pool_name}
//   - metricbus_periodic_fires_total{controller}
//   - metricbus_periodic_fire_duration_seconds{controller}
//   - metricbus_workerpool_tasks_executed_total{pool_name}
//   - metricbus_workerpool_tasks_rejected_total{pool_name}
//   - metricbus_workerpool_task_duration_seconds{pool_name}
//   - metricbus_workerpool_size{pool_name}
//   - metricbus_workerpool_active_workers{pool_name}
//   - metricbus_workerpool_queued_tasks{pool_name}
//
// Expose them with promhttp:
//
//	http.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
package metrics
