package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/vnykmshr/metricbus/pkg/common/errors"
)

var errNilTask = fmt.Errorf("workerpool: task cannot be nil")

func (p *workerPool) Execute(task func()) bool {
	if task == nil {
		return false
	}
	return p.Submit(closure(task)) == nil
}

func (p *workerPool) Submit(task Task) error {
	if task == nil {
		return errNilTask
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.reject()
		return errors.ErrClosed
	}

	select {
	case p.queue <- queued{task: task, ctx: p.base}:
		p.accept()
		return nil
	default:
		p.reject()
		return errors.ErrRejected
	}
}

func (p *workerPool) SubmitWithContext(ctx context.Context, task Task) error {
	if task == nil {
		return errNilTask
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// A context that is already done never queues, even if space is free.
	if err := ctx.Err(); err != nil {
		return errors.NewOperationError("workerpool", "submit", err).WithContext(p.name)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.reject()
		return errors.ErrClosed
	}

	select {
	case p.queue <- queued{task: task, ctx: ctx}:
		p.accept()
		return nil
	case <-p.closing:
		p.reject()
		return errors.ErrClosed
	case <-ctx.Done():
		return errors.NewOperationError("workerpool", "submit", ctx.Err()).WithContext(p.name)
	}
}

func (p *workerPool) accept() {
	p.accepted.Add(1)
	p.inst.queued(len(p.queue))
}

func (p *workerPool) reject() {
	p.rejected.Add(1)
	p.inst.rejected()
}

func (p *workerPool) Shutdown() <-chan struct{} {
	p.closeOnce.Do(func() {
		close(p.closing)

		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()

		go func() {
			p.wg.Wait()
			p.cancel()
			p.inst.size(0)
			close(p.done)
		}()
	})
	return p.done
}

func (p *workerPool) ShutdownWithTimeout(timeout time.Duration) <-chan struct{} {
	done := p.Shutdown()

	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			p.logger.Warn("shutdown grace period expired, canceling remaining tasks",
				zap.Int("queued", len(p.queue)),
				zap.Int32("active", p.active.Load()))
			p.cancel()
		}
	}()
	return done
}

func (p *workerPool) Size() int {
	return p.workers
}

func (p *workerPool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		Queued:    len(p.queue),
		Active:    int(p.active.Load()),
		Accepted:  p.accepted.Load(),
		Completed: p.completed.Load(),
		Rejected:  p.rejected.Load(),
		Failed:    p.failed.Load(),
	}
}

// work runs until the queue is closed and drained.
func (p *workerPool) work(id int) {
	defer p.wg.Done()
	for item := range p.queue {
		p.run(id, item)
	}
}

func (p *workerPool) run(id int, item queued) {
	start := time.Now()
	p.inst.active(int(p.active.Add(1)))

	defer func() {
		if r := recover(); r != nil {
			p.failed.Add(1)
			p.logger.Error("task panicked",
				zap.Int("worker", id),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
		p.completed.Add(1)
		p.inst.executedTask(time.Since(start))
		p.inst.active(int(p.active.Add(-1)))
		p.inst.queued(len(p.queue))
	}()

	if err := item.task.Execute(item.ctx); err != nil {
		p.failed.Add(1)
		p.logger.Debug("task failed", zap.Int("worker", id), zap.Error(err))
	}
}
