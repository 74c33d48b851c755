package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's Prometheus collectors on a private registry
type Metrics struct {
	registry    *prometheus.Registry
	turns       *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	extractions *prometheus.HistogramVec
	sessions    prometheus.GaugeFunc
}

// New registers the collectors. activeSessions is sampled on scrape and may
// be nil.
func New(activeSessions func() float64) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "serviceswarm",
			Name:      "turns_total",
			Help:      "Turns handled, by resulting dialogue state.",
		}, []string{"state"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "serviceswarm",
			Name:      "call_outcomes_total",
			Help:      "Calls that reached a terminal outcome.",
		}, []string{"outcome"}),
		extractions: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "serviceswarm",
			Name:      "extraction_seconds",
			Help:      "Latency of NLU and transcription calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"op", "result"}),
	}
	m.registry.MustRegister(m.turns, m.outcomes, m.extractions)

	if activeSessions != nil {
		m.sessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "serviceswarm",
			Name:      "active_sessions",
			Help:      "Calls with a live dialogue session.",
		}, activeSessions)
		m.registry.MustRegister(m.sessions)
	}
	return m
}

// ObserveExtraction records one upstream call
func (m *Metrics) ObserveExtraction(op string, elapsed time.Duration, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.extractions.WithLabelValues(op, result).Observe(elapsed.Seconds())
}

// TurnHandled counts a turn by the state it left the session in
func (m *Metrics) TurnHandled(state string) {
	m.turns.WithLabelValues(state).Inc()
}

// CallEnded counts a terminal outcome: confirmed, deferred, apology or
// abandoned
func (m *Metrics) CallEnded(outcome string) {
	m.outcomes.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
