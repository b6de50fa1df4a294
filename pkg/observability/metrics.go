package observability

import (
	"context"

	"github.com/aretw0/rapport/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records exchange outcomes as prometheus collectors.
type Metrics struct {
	Submissions prometheus.Counter
	Answers     *prometheus.CounterVec
	Failures    *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rapport_submissions_total",
			Help: "Total number of accepted submissions",
		}),
		Answers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rapport_answers_total",
				Help: "Total number of answered exchanges",
			},
			[]string{"fallback"},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rapport_exchange_failures_total",
				Help: "Total number of failed exchanges by failure kind",
			},
			[]string{"kind"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rapport_exchange_duration_seconds",
				Help:    "Duration of exchanges with the answer endpoint",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Submissions, m.Answers, m.Failures, m.Duration)
	}
	return m
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSubmit: func(_ context.Context, _ *domain.ExchangeEvent) {
			m.Submissions.Inc()
		},
		OnAnswer: func(_ context.Context, e *domain.ExchangeEvent) {
			fallback := "false"
			if e.Answer != nil && e.Answer.Fallback {
				fallback = "true"
			}
			m.Answers.WithLabelValues(fallback).Inc()
			m.Duration.WithLabelValues("answer").Observe(e.Duration.Seconds())
		},
		OnFailure: func(_ context.Context, e *domain.ExchangeEvent) {
			m.Failures.WithLabelValues(string(e.Kind)).Inc()
			m.Duration.WithLabelValues("failure").Observe(e.Duration.Seconds())
		},
	}
}
