package instrument

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "native"

// Counter is the subset of a Prometheus counter used here.
type Counter interface {
	Inc()
}

// Histogram is the subset of a Prometheus histogram used here.
type Histogram interface {
	Observe(float64)
}

// CounterVec selects a Counter by label values.
type CounterVec interface {
	With(labels ...string) Counter
}

// HistogramVec selects a Histogram by label values.
type HistogramVec interface {
	With(labels ...string) Histogram
}

type noopStat struct{}

func (noopStat) Inc()            {}
func (noopStat) Observe(float64) {}

type noopCounterVec struct{}
type noopHistogramVec struct{}

func (noopCounterVec) With(...string) Counter     { return noopStat{} }
func (noopHistogramVec) With(...string) Histogram { return noopStat{} }

type prometheusCounterVec struct {
	vec *prometheus.CounterVec
}

func (p *prometheusCounterVec) With(labelValues ...string) Counter {
	return p.vec.WithLabelValues(labelValues...)
}

type prometheusHistogramVec struct {
	vec *prometheus.HistogramVec
}

func (p *prometheusHistogramVec) With(labelValues ...string) Histogram {
	return p.vec.WithLabelValues(labelValues...)
}

// Metrics holds the per entry point collectors. The zero registerer yields
// noop collectors.
type Metrics struct {
	calls    CounterVec
	errors   CounterVec
	duration HistogramVec
}

// NewMetrics registers the native call collectors with reg. A nil reg
// returns Metrics that record nothing.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{
			calls:    noopCounterVec{},
			errors:   noopCounterVec{},
			duration: noopHistogramVec{},
		}
	}

	labels := []string{"backend", "op"}
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "calls_total",
		Help:      "Native entry point invocations.",
	}, labels)
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "call_errors_total",
		Help:      "Native entry point invocations that returned an error.",
	}, labels)
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "call_duration_seconds",
		Help:      "Native entry point latency.",
		Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 12),
	}, labels)

	reg.MustRegister(calls, errs, duration)

	return &Metrics{
		calls:    &prometheusCounterVec{vec: calls},
		errors:   &prometheusCounterVec{vec: errs},
		duration: &prometheusHistogramVec{vec: duration},
	}
}
