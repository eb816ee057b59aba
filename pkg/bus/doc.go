// Package bus is the in-process metric bus: a closed registry of named
// metric categories, a dispatch step that hands each sample to its
// consumers on an executor, and the contracts producers, consumers and
// periodic controllers implement.
//
// A category is declared with a Registration:
//
//	consumers, _ := workerpool.New(4, 256)
//	timer, _ := workerpool.New(1, 16) // fires must not overlap
//	slots, _ := pool.NewBounded[reports.ResourceUsage](16, nil)
//	relay := &bus.Relay{}
//	usage := reports.NewResourceUsageProducer(relay)
//
//	mgr, err := bus.NewManager(bus.ManagerConfig{
//		Registrations: []bus.Registration{{
//			Name:      reports.ResourceUsageName,
//			Dispatch:  bus.PooledDispatch[reports.ResourceUsage](slots),
//			Producers: []bus.Producer{usage},
//			Consumers: []bus.Consumer{logSink},
//		}},
//		Executor:   consumers,
//		Controller: periodic.Factory(periodic.Config{Period: time.Second, Executor: timer}),
//		Relay:      relay,
//	})
//
// The table is fixed once NewManager returns. Notifying a name that is not
// in it panics. Notifying a category with no consumers does nothing.
//
// Dispatch never blocks the producer. A pooled category drops the sample
// when its pool is empty; any category drops it when the executor rejects
// the task. Both cases are logged.
package bus
