/*
Package workerpool provides the bounded worker pool that runs metric consumers.

A pool owns a fixed number of worker goroutines and a bounded queue. Work is
never dropped silently: a full queue or a shut-down pool rejects the task and
the caller decides what to do.

Executor usage, as seen by the metric bus:

	pool, err := workerpool.New(4, 256)
	if err != nil {
		return err
	}
	defer func() { <-pool.Shutdown() }()

	if !pool.Execute(func() { sink.HandleMetric(report) }) {
		logger.Error("queue full, sample dropped")
	}

Tasks:

Tasks with a context and an error result implement Task:

	task := workerpool.TaskFunc(func(ctx context.Context) error {
		return client.Publish(ctx, channel, payload).Err()
	})

	// Fails fast when the queue is full.
	err := pool.Submit(task)

	// Waits for queue space.
	err = pool.SubmitWithContext(ctx, task)

Configuration:

	pool, err := workerpool.NewWithConfig(workerpool.Config{
		Name:        "consumers",
		WorkerCount: 8,
		QueueSize:   1024,
		Logger:      logger,
		Metrics:     registry,
	})

Panics inside a task are recovered and logged with a stack trace; the
worker keeps running. Panics and returned errors both count as failed in
Stats.

Shutdown:

Shutdown stops intake and lets the workers drain what is already queued.
ShutdownWithTimeout additionally cancels the context handed to the
remaining tasks once the grace period expires. Both return a channel that
closes after the last worker exited.
*/
package workerpool
