package bus

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const cpuName = "cpu"

type cpuReport struct {
	seq  int
	load float64
}

func (*cpuReport) Properties() Properties {
	return Name(cpuName)
}

type diskReport struct {
	free uint64
}

func (diskReport) Properties() Properties {
	return Name("disk")
}

// recorder is a consumer that keeps a copy of everything it sees.
type recorder struct {
	mu   sync.Mutex
	tag  string
	seen []cpuReport
	log  *[]string
}

func (r *recorder) HandleMetric(report Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, *report.(*cpuReport))
	if r.log != nil {
		*r.log = append(*r.log, r.tag)
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

type fakeController struct {
	producers []Producer
	started   int
	stopped   int
}

func (c *fakeController) Start() error {
	c.started++
	return nil
}

func (c *fakeController) Stop() {
	c.stopped++
}

func observedLogger(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}
