/*
Package metricbus is an in-process metrics backbone for latency sensitive
processes. Subsystems register typed metric categories, a periodic
controller samples them, and a manager fans every sample out to pluggable
sinks without blocking or allocating on the producing goroutine.

Core (pkg/bus):
  - Manager: closed, name-keyed registry of categories built once
  - PooledDispatch: copies samples into pooled slots before handing them off
  - DirectDispatch: hands immutable reports to consumers as is
  - Relay: lets producers be built before the manager they notify

Scheduling (pkg/scheduling):
  - periodic: fixed period or cron driven sampling controller
  - workerpool: bounded executor whose Execute never blocks

Supporting packages:
  - pool: bounded and unbounded object pools with reference counted handles
  - sinks: log, JSON, Redis, Prometheus and OpenTelemetry consumers
  - reports: resource usage and throughput categories
  - console: operator commands and live report views
  - ratelimit/bucket: token bucket used to throttle drop warnings
  - metrics: Prometheus instrumentation of the bus itself

The metricbusd command wires all of the above from a YAML file and
METRICBUS_ environment variables.
*/
package metricbus
