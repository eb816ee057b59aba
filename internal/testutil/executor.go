package testutil

import "sync"

// ManualExecutor queues submitted tasks until the test runs them. It
// satisfies the Execute(func()) bool executor contract and can be told to
// reject work.
type ManualExecutor struct {
	mu       sync.Mutex
	tasks    []func()
	reject   bool
	accepted int
	rejected int
}

// NewManualExecutor creates an executor that accepts every task.
func NewManualExecutor() *ManualExecutor {
	return &ManualExecutor{}
}

// Execute queues task, or returns false when rejecting.
func (e *ManualExecutor) Execute(task func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.reject {
		e.rejected++
		return false
	}
	e.accepted++
	e.tasks = append(e.tasks, task)
	return true
}

// SetReject toggles rejection of new tasks.
func (e *ManualExecutor) SetReject(reject bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reject = reject
}

// Pending returns the number of queued tasks.
func (e *ManualExecutor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

// Accepted returns the number of tasks ever queued.
func (e *ManualExecutor) Accepted() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accepted
}

// Rejected returns the number of tasks refused.
func (e *ManualExecutor) Rejected() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rejected
}

// RunAll runs queued tasks in submission order, including tasks queued by
// the tasks themselves, and returns how many ran.
func (e *ManualExecutor) RunAll() int {
	ran := 0
	for {
		e.mu.Lock()
		if len(e.tasks) == 0 {
			e.mu.Unlock()
			return ran
		}
		task := e.tasks[0]
		e.tasks = e.tasks[1:]
		e.mu.Unlock()

		task()
		ran++
	}
}

// InlineExecutor runs every task on the calling goroutine.
type InlineExecutor struct{}

// Execute runs task immediately.
func (InlineExecutor) Execute(task func()) bool {
	task()
	return true
}
