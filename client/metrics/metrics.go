package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"flowLedger/client/models"
)

const namespace = "flowledger"

// Outcome labels for TaskOutcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeTimeout   = "timeout"
	OutcomeError     = "error"
)

type Metrics struct {
	Registry *prometheus.Registry

	Polls        *prometheus.CounterVec
	TaskOutcomes *prometheus.CounterVec
	WaitDuration *prometheus.HistogramVec
	InFlight     *prometheus.GaugeVec
}

// NewMetrics builds the collectors and registers them on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "polls_total",
				Help:      "Task status reads, by import kind and observed status.",
			},
			[]string{"kind", "status"},
		),
		TaskOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "task_outcomes_total",
				Help:      "Finished waits, by import kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		WaitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_wait_seconds",
				Help:      "Wall-clock time from upload to terminal status.",
				Buckets:   []float64{1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"kind"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tasks_in_flight",
				Help:      "Tasks currently being polled.",
			},
			[]string{"kind"},
		),
	}

	m.Registry.MustRegister(m.Polls, m.TaskOutcomes, m.WaitDuration, m.InFlight)
	return m
}

// The methods below accept a nil receiver so callers can run without metrics.

func (m *Metrics) ObservePoll(kind models.ImportKind, status models.TaskStatus) {
	if m == nil {
		return
	}
	m.Polls.WithLabelValues(string(kind), string(status)).Inc()
}

func (m *Metrics) StartWait(kind models.ImportKind) {
	if m == nil {
		return
	}
	m.InFlight.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) FinishWait(kind models.ImportKind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.InFlight.WithLabelValues(string(kind)).Dec()
	m.TaskOutcomes.WithLabelValues(string(kind), outcome).Inc()
	m.WaitDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}
