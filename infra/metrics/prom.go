package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/link-bedside-nurses/dispatch/core/metrics"
)

// PromSink records dispatch engine events in Prometheus metrics.
type PromSink struct {
	matches     *prometheus.CounterVec
	candidates  prometheus.Histogram
	latency     prometheus.Histogram
	transitions *prometheus.CounterVec
}

// NewPromSink registers metrics on the default Prometheus registerer. The
// Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	matches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "match_requests_total",
		Help: "Total number of dispatch match requests",
	}, []string{"outcome"})
	candidates := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "match_candidates_returned",
		Help:    "Number of ranked candidates returned per match",
		Buckets: []float64{0, 1, 2, 5, 10, 20},
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "match_latency_seconds",
		Help:    "Time spent resolving a match request",
		Buckets: prometheus.DefBuckets,
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appointment_transitions_total",
		Help: "Total number of appointment transition attempts",
	}, []string{"action", "succeeded"})

	for _, c := range []prometheus.Collector{matches, candidates, latency, transitions} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return &PromSink{matches: matches, candidates: candidates, latency: latency, transitions: transitions}, nil
}

// RecordMatchResult observes the candidate count and latency of a match.
func (s *PromSink) RecordMatchResult(res coremetrics.MatchResult) error {
	outcome := "empty"
	if res.Returned > 0 {
		outcome = "matched"
	}
	s.matches.WithLabelValues(outcome).Inc()
	s.candidates.Observe(float64(res.Returned))
	s.latency.Observe(res.Latency.Seconds())
	return nil
}

// RecordTransition increments the counter for the transition attempt.
func (s *PromSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	s.transitions.WithLabelValues(ev.Action, strconv.FormatBool(ev.Succeeded)).Inc()
	return nil
}
