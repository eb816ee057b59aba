package bus

// Properties is the stable identity of a metric category.
type Properties interface {
	// Name must match the name the category was registered under.
	Name() string
}

// Name is a Properties implementation for categories identified only by
// their name.
type Name string

// Name implements Properties.
func (n Name) Name() string {
	return string(n)
}

// Report is one sample of a metric category.
type Report interface {
	Properties() Properties
}

// Producer originates samples for a category. OnNewReportPeriod is called
// by the periodic controller once per period; it must not block and
// usually ends by handing a sample to a Notifier.
type Producer interface {
	OnNewReportPeriod()
}

// Consumer reacts to delivered samples. HandleMetric always runs on the
// executor chosen by the category's dispatch strategy, never on the
// goroutine that produced the sample, so it may format and do I/O.
//
// Pooled reports are only valid until HandleMetric returns.
type Consumer interface {
	HandleMetric(report Report)
}

// Notifier is the single ingress of samples into the bus. It may be called
// from any goroutine.
type Notifier interface {
	OnNewMetric(report Report)
}

// Executor runs units of work on some other goroutine. Execute must not
// block; false means the task was rejected and will never run.
type Executor interface {
	Execute(task func()) bool
}

// Controller triggers producers periodically.
type Controller interface {
	Start() error
	Stop()
}

// ProducerFunc adapts a function to the Producer interface.
type ProducerFunc func()

// OnNewReportPeriod implements Producer.
func (f ProducerFunc) OnNewReportPeriod() {
	f()
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(report Report)

// HandleMetric implements Consumer.
func (f ConsumerFunc) HandleMetric(report Report) {
	f(report)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(report Report)

// OnNewMetric implements Notifier.
func (f NotifierFunc) OnNewMetric(report Report) {
	f(report)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(task func()) bool

// Execute implements Executor.
func (f ExecutorFunc) Execute(task func()) bool {
	return f(task)
}
