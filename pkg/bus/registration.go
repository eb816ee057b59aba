package bus

import "go.uber.org/zap"

// DispatchFunc moves report from the producing goroutine onto exec, where
// it must call HandleMetric on every consumer in order. It must not block.
// A rejected submission is logged and the sample dropped; it is never
// retried.
type DispatchFunc func(report Report, consumers []Consumer, exec Executor, logger *zap.Logger)

// Registration declares one metric category.
type Registration struct {
	Name      string
	Dispatch  DispatchFunc
	Producers []Producer
	Consumers []Consumer
}

type entry struct {
	name      string
	dispatch  DispatchFunc
	consumers []Consumer
	exec      Executor
	logger    *zap.Logger
}
