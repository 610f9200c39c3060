package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// A PromReporter exposes run results as Prometheus metrics: a duration
// histogram and a run counter, both labeled by operation and
// algorithm.
type PromReporter struct {
	durations *prometheus.HistogramVec
	runs      *prometheus.CounterVec
}

// NewPromReporter registers the metrics on reg and returns the
// reporter. A nil reg uses the default registerer.
func NewPromReporter(reg prometheus.Registerer) *PromReporter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PromReporter{
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "topocoll",
			Name:      "collective_duration_seconds",
			Help:      "Simulated completion time of collective runs.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 10),
		}, []string{"operation", "algorithm"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "topocoll",
			Name:      "collective_runs_total",
			Help:      "Number of collective runs recorded.",
		}, []string{"operation", "algorithm"}),
	}
}

func (p *PromReporter) Report(r *Result) error {
	p.durations.WithLabelValues(r.Operation, r.Algorithm).Observe(r.Seconds)
	p.runs.WithLabelValues(r.Operation, r.Algorithm).Inc()
	return nil
}
