// Package periodic provides the controller that triggers metric producers
// on a fixed period or a cron schedule.
//
// The controller owns one timer. Each fire runs on the configured executor,
// rearms the timer first and then calls every producer in order:
//
//	ctrl, err := periodic.New(periodic.Config{
//		Period:   time.Second,
//		Executor: timerPool,
//	}, usage, throughput)
//	if err != nil {
//		return err
//	}
//	if err := ctrl.Start(); err != nil {
//		return err
//	}
//	defer ctrl.Stop()
//
// Start returns only after the timer is armed. Stop is a request checked by
// every fire, so once it returns no new pass over the producers begins; a
// pass already running is allowed to finish.
package periodic
