package bus

import "sync/atomic"

// Relay is a Notifier that forwards to another Notifier bound later. It
// breaks the construction cycle between producers, which need a notifier,
// and the manager, which needs the producers.
type Relay struct {
	target atomic.Pointer[notifierBox]
}

type notifierBox struct {
	n Notifier
}

// Bind sets the notifier samples are forwarded to.
func (r *Relay) Bind(n Notifier) {
	r.target.Store(&notifierBox{n: n})
}

// Bound reports whether Bind was called.
func (r *Relay) Bound() bool {
	return r.target.Load() != nil
}

// OnNewMetric forwards report. Calling it before Bind is a wiring bug and
// panics.
func (r *Relay) OnNewMetric(report Report) {
	box := r.target.Load()
	if box == nil {
		panic("bus: relay used before Bind")
	}
	box.n.OnNewMetric(report)
}
