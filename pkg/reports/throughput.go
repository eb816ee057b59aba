package reports

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vnykmshr/metricbus/pkg/bus"
	"github.com/vnykmshr/metricbus/pkg/sinks"
)

// ThroughputName is the category throughput reports are registered under.
const ThroughputName = "Throughput metrics"

// Throughput is the traffic seen since the previous report.
type Throughput struct {
	Timestamp  time.Time     `json:"timestamp"`
	Interval   time.Duration `json:"interval_ns"`
	Packets    uint64        `json:"packets"`
	Bytes      uint64        `json:"bytes"`
	PacketRate float64       `json:"packets_per_second"`
	ByteRate   float64       `json:"bytes_per_second"`
}

// Properties implements bus.Report.
func (*Throughput) Properties() bus.Properties {
	return bus.Name(ThroughputName)
}

// Samples implements sinks.Sampled.
func (r *Throughput) Samples() []sinks.Sample {
	return []sinks.Sample{
		{Name: "packets", Value: float64(r.Packets)},
		{Name: "bytes", Value: float64(r.Bytes)},
		{Name: "packets_per_second", Value: r.PacketRate},
		{Name: "bytes_per_second", Value: r.ByteRate},
	}
}

// ThroughputProducer accumulates traffic counters and reports their delta.
// Record may be called from any goroutine without locking. A report is
// emitted on every period and on every Flush.
type ThroughputProducer struct {
	notifier bus.Notifier
	now      func() time.Time

	packets atomic.Uint64
	bytes   atomic.Uint64

	mu      sync.Mutex
	last    time.Time
	scratch Throughput
}

// NewThroughputProducer creates a producer notifying n. The first interval
// starts now.
func NewThroughputProducer(n bus.Notifier) *ThroughputProducer {
	return newThroughputProducer(n, time.Now)
}

func newThroughputProducer(n bus.Notifier, now func() time.Time) *ThroughputProducer {
	return &ThroughputProducer{
		notifier: n,
		now:      now,
		last:     now(),
	}
}

// Record adds traffic to the current interval.
func (p *ThroughputProducer) Record(packets, bytes uint64) {
	p.packets.Add(packets)
	p.bytes.Add(bytes)
}

// OnNewReportPeriod implements bus.Producer.
func (p *ThroughputProducer) OnNewReportPeriod() {
	p.Flush()
}

// Flush ends the current interval and reports it immediately.
func (p *ThroughputProducer) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	interval := now.Sub(p.last)
	p.last = now

	packets := p.packets.Swap(0)
	bytes := p.bytes.Swap(0)

	p.scratch = Throughput{
		Timestamp: now,
		Interval:  interval,
		Packets:   packets,
		Bytes:     bytes,
	}
	if secs := interval.Seconds(); secs > 0 {
		p.scratch.PacketRate = float64(packets) / secs
		p.scratch.ByteRate = float64(bytes) / secs
	}
	p.notifier.OnNewMetric(&p.scratch)
}

type throughputLayout struct{}

// ThroughputLayout renders throughput reports on the console.
var ThroughputLayout = throughputLayout{}

func (throughputLayout) Columns() []string {
	return []string{"packets", "bytes", "pps", "bps"}
}

func (throughputLayout) Row(report bus.Report) []string {
	r := report.(*Throughput)
	return []string{
		humanize.Comma(int64(r.Packets)),
		humanize.IBytes(r.Bytes),
		strconv.FormatFloat(r.PacketRate, 'f', 1, 64),
		humanize.SI(r.ByteRate*8, "b/s"),
	}
}
