package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "venuebook"

// Metrics holds Prometheus metrics for the proposal lifecycle.
type Metrics struct {
	// SweepsTotal counts sweep runs by result (ok, error, skipped).
	SweepsTotal *prometheus.CounterVec

	// SweepDuration is the wall time of a sweep run.
	SweepDuration prometheus.Histogram

	// SlotsExpired is the total number of expired proposals picked up by sweeps.
	SlotsExpired prometheus.Counter

	// NotificationsTotal counts admin notifications by status (sent, failed).
	NotificationsTotal *prometheus.CounterVec

	// ClaimsLost counts proposals another run flagged first.
	ClaimsLost prometheus.Counter

	// ProposalsTotal counts proposal actions (created, validated, cancelled).
	ProposalsTotal *prometheus.CounterVec
}

// New creates metrics and registers them with reg.
// A nil reg falls back to the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SweepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "sweeps_total",
				Help:      "Total number of expiry sweeps by result",
			},
			[]string{"result"},
		),

		SweepDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "sweep_duration_seconds",
				Help:      "Time to run one expiry sweep",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5, 10, 30},
			},
		),

		SlotsExpired: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "slots_expired_total",
				Help:      "Total number of expired proposals found by sweeps",
			},
		),

		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "notifications_total",
				Help:      "Total number of admin notifications by status",
			},
			[]string{"status"},
		),

		ClaimsLost: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "claims_lost_total",
				Help:      "Total number of expired proposals already claimed by another sweep",
			},
		),

		ProposalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "proposals_total",
				Help:      "Total number of proposal actions",
			},
			[]string{"action"},
		),
	}
}

// ObserveSweep records one finished sweep.
func (m *Metrics) ObserveSweep(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.SweepsTotal.WithLabelValues(result).Inc()
	m.SweepDuration.Observe(d.Seconds())
}

// AddExpired adds n expired proposals.
func (m *Metrics) AddExpired(n int) {
	if m == nil {
		return
	}
	m.SlotsExpired.Add(float64(n))
}

// IncNotification increments the notification counter for a status.
func (m *Metrics) IncNotification(status string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(status).Inc()
}

// IncClaimLost increments the lost-claim counter.
func (m *Metrics) IncClaimLost() {
	if m == nil {
		return
	}
	m.ClaimsLost.Inc()
}

// IncProposal increments the proposal counter for an action.
func (m *Metrics) IncProposal(action string) {
	if m == nil {
		return
	}
	m.ProposalsTotal.WithLabelValues(action).Inc()
}
