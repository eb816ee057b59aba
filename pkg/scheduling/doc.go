/*
Package scheduling holds the execution side of the metric bus.

  - workerpool: fixed worker pool implementing bus.Executor
  - periodic: controller that calls producers on a period or cron schedule

A controller needs a serialized executor so that fires never overlap, and
consumers need a pool that rejects instead of blocking when it is full:

	timer, _ := workerpool.New(1, 16)
	consumers, _ := workerpool.New(4, 256)

	ctrl, err := periodic.New(periodic.Config{
		Period:   time.Second,
		Executor: timer,
	}, usage, throughput)
	if err != nil {
		return err
	}
	ctrl.Start()
	defer ctrl.Stop()
*/
package scheduling
