package breaker

// MetricSink receives numeric counters and gauges describing a breaker's
// behavior. It is an external collaborator: the engine only publishes
// values to it, translation into a concrete observability backend (e.g.
// Prometheus, see the prometheus subpackage) is the sink's job.
type MetricSink interface {
	// Gauge reports the current value of a level metric, e.g. "state" or
	// "probes_in_flight".
	Gauge(name string, value float64)

	// Counter reports a monotonic delta, e.g. "calls_total",
	// "failures_total", "rejections_total", "transitions_total".
	Counter(name string, delta float64)
}

// Metric names published by the engine.
const (
	MetricState            = "state"
	MetricCallsTotal       = "calls_total"
	MetricFailuresTotal    = "failures_total"
	MetricRejectionsTotal  = "rejections_total"
	MetricTransitionsTotal = "transitions_total"
	MetricProbesInFlight   = "probes_in_flight"
)

// NullSink discards every event. It is the default when no MetricSink is
// configured, mirroring the teacher's pattern of a do-nothing default
// collaborator rather than a nil check scattered at every call site.
type NullSink struct{}

// Gauge implements MetricSink.
func (NullSink) Gauge(string, float64) {}

// Counter implements MetricSink.
func (NullSink) Counter(string, float64) {}
