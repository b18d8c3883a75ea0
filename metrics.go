package dcsim

import (
	"github.com/uber-go/tally/v4"
)

// Metrics is the set of counters and gauges a simulation reports to.
type Metrics struct {
	EventsProcessed tally.Counter
	EventsDropped   tally.Counter

	VmPlaced   tally.Counter
	VmRejected tally.Counter
	VmFailed   tally.Counter

	CloudletSuccess tally.Counter
	CloudletFailed  tally.Counter

	Clock      tally.Gauge
	QueueDepth tally.Gauge
}

// NewMetrics returns a new instance of dcsim.Metrics.
func NewMetrics(scope tally.Scope) *Metrics {
	successScope := scope.Tagged(map[string]string{"type": "success"})
	failScope := scope.Tagged(map[string]string{"type": "fail"})
	eventScope := scope.SubScope("events")
	vmScope := scope.SubScope("vm")

	return &Metrics{
		EventsProcessed: eventScope.Counter("processed"),
		EventsDropped:   eventScope.Counter("dropped"),

		VmPlaced:   vmScope.Counter("placed"),
		VmRejected: vmScope.Counter("rejected"),
		VmFailed:   vmScope.Counter("failed"),

		CloudletSuccess: successScope.Counter("cloudlet"),
		CloudletFailed:  failScope.Counter("cloudlet"),

		Clock:      scope.Gauge("clock"),
		QueueDepth: eventScope.Gauge("queue_depth"),
	}
}
