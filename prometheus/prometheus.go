// Package prometheus adapts a breaker.MetricSink onto Prometheus
// instrumentation. It is the out-of-scope "metric exporter" collaborator
// named in the library's spec: the engine only publishes named gauges and
// counters, this package is what turns them into a registered Prometheus
// vector, following the namespacing and labeling conventions of the
// teacher package this was adapted from.
package prometheus

import (
	"errors"
	"unicode/utf8"

	"github.com/kestrel-oss/breaker"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// MetricsNamespace is the common metric namespace (prefix).
	MetricsNamespace = "circuit_breaker"

	// BreakerNameLabel is the label name for the breaker name.
	BreakerNameLabel = "name"
)

// ErrInvalidBreakerName is returned when the breaker name is not a valid
// UTF-8 string, since Prometheus label values must be valid UTF-8.
var ErrInvalidBreakerName = errors.New("invalid breaker name")

// Sink is a breaker.MetricSink backed by Prometheus gauge/counter vectors.
// Each Sink registers two vector families, circuit_breaker_gauge and
// circuit_breaker_total, labeled with one breaker name and keyed by a
// "metric" label; the series for a given metric name is created on first
// use.
type Sink struct {
	name     string
	gauges   *prom.GaugeVec
	counters *prom.CounterVec
}

// NewSink registers a Sink's metric families with registerer, labeled
// with breakerName. It returns ErrInvalidBreakerName if breakerName is not
// valid UTF-8.
func NewSink(breakerName string, registerer prom.Registerer) (*Sink, error) {
	return NewSinkWithFactory(breakerName, promauto.With(registerer))
}

// NewSinkWithFactory is NewSink taking an explicit promauto.Factory, for
// callers that already have one (e.g. to share const labels across many
// instrumented subsystems).
func NewSinkWithFactory(breakerName string, factory promauto.Factory) (*Sink, error) {
	if !utf8.ValidString(breakerName) {
		return nil, ErrInvalidBreakerName
	}

	gauges := factory.NewGaugeVec(prom.GaugeOpts{
		Namespace:   MetricsNamespace,
		Name:        "gauge",
		Help:        "Circuit breaker gauges (state, probes_in_flight), keyed by metric name.",
		ConstLabels: prom.Labels{BreakerNameLabel: breakerName},
	}, []string{"metric"})

	counters := factory.NewCounterVec(prom.CounterOpts{
		Namespace:   MetricsNamespace,
		Name:        "total",
		Help:        "Circuit breaker counters (calls, failures, rejections, transitions), keyed by metric name.",
		ConstLabels: prom.Labels{BreakerNameLabel: breakerName},
	}, []string{"metric"})

	return &Sink{name: breakerName, gauges: gauges, counters: counters}, nil
}

// Gauge implements breaker.MetricSink.
func (s *Sink) Gauge(name string, value float64) {
	s.gauges.WithLabelValues(name).Set(value)
}

// Counter implements breaker.MetricSink.
func (s *Sink) Counter(name string, delta float64) {
	s.counters.WithLabelValues(name).Add(delta)
}

var _ breaker.MetricSink = (*Sink)(nil)
