package reports

import (
	"runtime"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pbnjay/memory"

	"github.com/vnykmshr/metricbus/pkg/bus"
	"github.com/vnykmshr/metricbus/pkg/sinks"
)

// ResourceUsageName is the category resource usage reports are registered under.
const ResourceUsageName = "Resource usage metrics"

// ResourceUsage is a snapshot of the process runtime and host memory.
type ResourceUsage struct {
	Timestamp    time.Time     `json:"timestamp"`
	Goroutines   int           `json:"goroutines"`
	HeapAlloc    uint64        `json:"heap_alloc_bytes"`
	HeapSys      uint64        `json:"heap_sys_bytes"`
	NumGC        uint32        `json:"num_gc"`
	GCPauseTotal time.Duration `json:"gc_pause_total_ns"`
	HostTotal    uint64        `json:"host_total_bytes"`
	HostFree     uint64        `json:"host_free_bytes"`
}

// Properties implements bus.Report.
func (*ResourceUsage) Properties() bus.Properties {
	return bus.Name(ResourceUsageName)
}

// Samples implements sinks.Sampled.
func (r *ResourceUsage) Samples() []sinks.Sample {
	return []sinks.Sample{
		{Name: "goroutines", Value: float64(r.Goroutines)},
		{Name: "heap_alloc_bytes", Value: float64(r.HeapAlloc)},
		{Name: "heap_sys_bytes", Value: float64(r.HeapSys)},
		{Name: "num_gc", Value: float64(r.NumGC)},
		{Name: "gc_pause_total_seconds", Value: r.GCPauseTotal.Seconds()},
		{Name: "host_total_bytes", Value: float64(r.HostTotal)},
		{Name: "host_free_bytes", Value: float64(r.HostFree)},
	}
}

// ResourceUsageProducer snapshots the runtime on every period. Its report
// is reused between periods, so register it with PooledDispatch.
type ResourceUsageProducer struct {
	notifier  bus.Notifier
	now       func() time.Time
	hostTotal func() uint64
	hostFree  func() uint64

	stats   runtime.MemStats
	scratch ResourceUsage
}

// NewResourceUsageProducer creates a producer notifying n.
func NewResourceUsageProducer(n bus.Notifier) *ResourceUsageProducer {
	return &ResourceUsageProducer{
		notifier:  n,
		now:       time.Now,
		hostTotal: memory.TotalMemory,
		hostFree:  memory.FreeMemory,
	}
}

// OnNewReportPeriod implements bus.Producer.
func (p *ResourceUsageProducer) OnNewReportPeriod() {
	runtime.ReadMemStats(&p.stats)
	p.scratch = ResourceUsage{
		Timestamp:    p.now(),
		Goroutines:   runtime.NumGoroutine(),
		HeapAlloc:    p.stats.HeapAlloc,
		HeapSys:      p.stats.HeapSys,
		NumGC:        p.stats.NumGC,
		GCPauseTotal: time.Duration(p.stats.PauseTotalNs),
		HostTotal:    p.hostTotal(),
		HostFree:     p.hostFree(),
	}
	p.notifier.OnNewMetric(&p.scratch)
}

type resourceUsageLayout struct{}

// ResourceUsageLayout renders resource usage reports on the console.
var ResourceUsageLayout = resourceUsageLayout{}

func (resourceUsageLayout) Columns() []string {
	return []string{"goroutines", "heap", "heap sys", "gc", "host free"}
}

func (resourceUsageLayout) Row(report bus.Report) []string {
	r := report.(*ResourceUsage)
	return []string{
		strconv.Itoa(r.Goroutines),
		humanize.IBytes(r.HeapAlloc),
		humanize.IBytes(r.HeapSys),
		strconv.FormatUint(uint64(r.NumGC), 10),
		humanize.IBytes(r.HostFree),
	}
}
