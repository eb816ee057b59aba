package periodic

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vnykmshr/metricbus/internal/testutil"
	"github.com/vnykmshr/metricbus/pkg/bus"
	mberrors "github.com/vnykmshr/metricbus/pkg/common/errors"
	"github.com/vnykmshr/metricbus/pkg/metrics"
	"github.com/vnykmshr/metricbus/pkg/scheduling/workerpool"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) producer(name string) bus.Producer {
	return bus.ProducerFunc(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.calls = append(l.calls, name)
	})
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// startManual starts c and runs the arming task queued on exec.
func startManual(t *testing.T, c *Controller, exec *testutil.ManualExecutor) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- c.Start() }()

	require.Eventually(t, func() bool { return exec.Pending() == 1 }, time.Second, time.Millisecond)
	assert.True(t, c.Next().IsZero(), "timer must not be armed before the arming task ran")
	exec.RunAll()
	require.NoError(t, <-done)
}

func waitForFire(t *testing.T, exec *testutil.ManualExecutor) {
	t.Helper()
	require.Eventually(t, func() bool { return exec.Pending() == 1 }, time.Second, time.Millisecond)
}

func TestNewValidation(t *testing.T) {
	exec := testutil.NewManualExecutor()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative period", Config{Period: -time.Second, Executor: exec}},
		{"nil executor", Config{Period: time.Second}},
		{"nil executor with schedule", Config{Schedule: "@every 1s"}},
		{"bad schedule", Config{Schedule: "not a schedule", Executor: exec}},
		{"negative retry", Config{Period: time.Second, Executor: exec, RetryInterval: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			assert.Nil(t, c)
			assert.True(t, mberrors.IsValidationError(err), "got %v", err)
		})
	}
}

func TestMustNewPanicsOnMissingExecutor(t *testing.T) {
	assert.Panics(t, func() { MustNew(Config{Period: time.Second}) })
	assert.NotPanics(t, func() { MustNew(Config{}) })
}

func TestZeroPeriodDisablesSampling(t *testing.T) {
	log := &callLog{}
	c, err := New(Config{}, log.producer("a"))
	require.NoError(t, err)

	assert.False(t, c.Enabled())
	assert.NoError(t, c.Start())
	assert.False(t, c.Running())
	c.Stop()
	c.Stop()

	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, log.snapshot())
	assert.Zero(t, c.Fires())
}

func TestStopBeforeStart(t *testing.T) {
	c, err := New(Config{Period: time.Second, Executor: testutil.NewManualExecutor()})
	require.NoError(t, err)
	assert.NotPanics(t, c.Stop)
	assert.False(t, c.Running())
}

func TestStartArmsTimer(t *testing.T) {
	exec := testutil.NewManualExecutor()
	c, err := New(Config{Period: time.Hour, Executor: exec})
	require.NoError(t, err)

	before := time.Now()
	startManual(t, c, exec)
	defer c.Stop()

	assert.True(t, c.Running())
	next := c.Next()
	assert.False(t, next.Before(before.Add(time.Hour)))
	assert.True(t, next.Before(time.Now().Add(time.Hour+time.Second)))
}

func TestFireCallsProducersInOrder(t *testing.T) {
	exec := testutil.NewManualExecutor()
	log := &callLog{}
	c, err := New(Config{Period: time.Millisecond, Executor: exec},
		log.producer("a"), log.producer("b"), log.producer("c"))
	require.NoError(t, err)

	startManual(t, c, exec)
	defer c.Stop()

	waitForFire(t, exec)
	exec.RunAll()
	assert.Equal(t, []string{"a", "b", "c"}, log.snapshot())
	assert.Equal(t, uint64(1), c.Fires())

	// The fire rearmed before calling producers.
	waitForFire(t, exec)
	exec.RunAll()
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, log.snapshot())
}

func TestStopDiscardsQueuedFire(t *testing.T) {
	exec := testutil.NewManualExecutor()
	log := &callLog{}
	c, err := New(Config{Period: time.Millisecond, Executor: exec}, log.producer("a"))
	require.NoError(t, err)

	startManual(t, c, exec)
	waitForFire(t, exec)

	c.Stop()
	exec.RunAll()

	assert.Empty(t, log.snapshot())
	assert.Zero(t, c.Fires())
	assert.True(t, c.Next().IsZero())

	time.Sleep(5 * time.Millisecond)
	assert.Zero(t, exec.Pending(), "a stopped controller must not rearm")
}

func TestStopDuringFireLetsPassFinish(t *testing.T) {
	exec := testutil.NewManualExecutor()
	log := &callLog{}
	var c *Controller
	stopper := bus.ProducerFunc(func() { c.Stop() })

	var err error
	c, err = New(Config{Period: time.Millisecond, Executor: exec},
		log.producer("before"), stopper, log.producer("after"))
	require.NoError(t, err)

	startManual(t, c, exec)
	waitForFire(t, exec)
	exec.RunAll()

	assert.Equal(t, []string{"before", "after"}, log.snapshot())
	time.Sleep(5 * time.Millisecond)
	exec.RunAll()
	assert.Equal(t, []string{"before", "after"}, log.snapshot())
}

func TestRestartAfterStop(t *testing.T) {
	exec := testutil.NewManualExecutor()
	log := &callLog{}
	c, err := New(Config{Period: 20 * time.Millisecond, Executor: exec}, log.producer("a"))
	require.NoError(t, err)

	startManual(t, c, exec)
	c.Stop()
	exec.RunAll()

	startManual(t, c, exec)
	defer c.Stop()
	waitForFire(t, exec)
	exec.RunAll()
	assert.Equal(t, []string{"a"}, log.snapshot())
}

func TestStartRetriesRejectedArming(t *testing.T) {
	var rejections atomic.Int32
	inner := testutil.InlineExecutor{}
	exec := bus.ExecutorFunc(func(task func()) bool {
		if rejections.Add(1) <= 3 {
			return false
		}
		return inner.Execute(task)
	})

	c, err := New(Config{Period: time.Hour, Executor: exec, RetryInterval: time.Microsecond})
	require.NoError(t, err)
	require.NoError(t, c.Start())
	defer c.Stop()

	assert.Equal(t, int32(4), rejections.Load())
	assert.False(t, c.Next().IsZero())
}

func TestStartContextGivesUp(t *testing.T) {
	exec := bus.ExecutorFunc(func(func()) bool { return false })
	c, err := New(Config{Period: time.Hour, Executor: exec})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = c.StartContext(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.False(t, c.Running())
}

func TestRecoverProducers(t *testing.T) {
	exec := testutil.NewManualExecutor()
	core, logs := observer.New(zap.ErrorLevel)
	log := &callLog{}
	c, err := New(Config{
		Period:           time.Millisecond,
		Executor:         exec,
		RecoverProducers: true,
		Logger:           zap.New(core),
	}, bus.ProducerFunc(func() { panic("bad producer") }), log.producer("next"))
	require.NoError(t, err)

	startManual(t, c, exec)
	defer c.Stop()
	waitForFire(t, exec)

	assert.NotPanics(t, func() { exec.RunAll() })
	assert.Equal(t, []string{"next"}, log.snapshot())
	assert.Equal(t, 1, logs.FilterMessage("producer panicked").Len())
}

func TestProducerPanicPropagatesByDefault(t *testing.T) {
	exec := testutil.NewManualExecutor()
	c, err := New(Config{Period: time.Millisecond, Executor: exec},
		bus.ProducerFunc(func() { panic("bad producer") }))
	require.NoError(t, err)

	startManual(t, c, exec)
	defer c.Stop()
	waitForFire(t, exec)

	assert.Panics(t, func() { exec.RunAll() })
}

func TestCronSchedule(t *testing.T) {
	exec := testutil.NewManualExecutor()
	c, err := New(Config{Schedule: "0 0 * * *", Location: time.UTC, Executor: exec})
	require.NoError(t, err)
	assert.True(t, c.Enabled())

	startManual(t, c, exec)
	defer c.Stop()

	next := c.Next().In(time.UTC)
	assert.Equal(t, 0, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.True(t, next.After(time.Now()))
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("*/5 * * * * *"))
	assert.NoError(t, ValidateSchedule("@every 250ms"))
	assert.NoError(t, ValidateSchedule("@hourly"))
	assert.Error(t, ValidateSchedule("61 * * * *"))
}

func TestControllerWithWorkerPool(t *testing.T) {
	timerPool, err := workerpool.NewWithConfig(workerpool.Config{Name: "timer", WorkerCount: 1, QueueSize: 4})
	require.NoError(t, err)
	defer func() { <-timerPool.Shutdown() }()

	reg := metrics.NewRegistry(prometheus.NewRegistry())
	var calls atomic.Int32
	c, err := New(Config{
		Name:     "reports",
		Period:   2 * time.Millisecond,
		Executor: timerPool,
		Metrics:  reg,
	}, bus.ProducerFunc(func() { calls.Add(1) }))
	require.NoError(t, err)

	require.NoError(t, c.Start())
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	c.Stop()

	after := calls.Load()
	time.Sleep(10 * time.Millisecond)
	// At most one pass that had already begun may still land.
	assert.LessOrEqual(t, calls.Load(), after+1)
	assert.GreaterOrEqual(t, promtest.ToFloat64(reg.PeriodicFires.WithLabelValues("reports")), 3.0)
}

func TestFactory(t *testing.T) {
	exec := testutil.NewManualExecutor()
	log := &callLog{}

	m, err := bus.NewManager(bus.ManagerConfig{
		Registrations: []bus.Registration{
			{Name: "a", Producers: []bus.Producer{log.producer("a")}},
			{Name: "b", Producers: []bus.Producer{log.producer("b")}},
		},
		Controller: Factory(Config{Period: time.Millisecond, Executor: exec}),
	})
	require.NoError(t, err)

	c, ok := m.Controller().(*Controller)
	require.True(t, ok)
	startManual(t, c, exec)
	defer m.Stop()

	waitForFire(t, exec)
	exec.RunAll()
	assert.Equal(t, []string{"a", "b"}, log.snapshot())

	_, err = Factory(Config{Period: time.Millisecond})(nil)
	assert.True(t, mberrors.IsValidationError(err))
}
