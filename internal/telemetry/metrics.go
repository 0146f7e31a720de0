package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records payment session activity.
type Metrics struct {
	transitions *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	steps       *prometheus.HistogramVec
}

// NewMetrics registers the session collectors on reg. A nil reg uses the
// default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "x402pay",
				Name:      "session_transitions_total",
				Help:      "Payment session state transitions",
			},
			[]string{"to_state"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "x402pay",
				Name:      "session_outcomes_total",
				Help:      "Payment sessions that reached a terminal state",
			},
			[]string{"outcome"},
		),
		steps: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "x402pay",
				Name:      "step_duration_seconds",
				Help:      "Duration of each payment session step",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"step"},
		),
	}

	reg.MustRegister(m.transitions, m.outcomes, m.steps)
	return m
}

func (m *Metrics) Transition(to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
}

func (m *Metrics) Outcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStep(step string, d time.Duration) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(step).Observe(d.Seconds())
}
