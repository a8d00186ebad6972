package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "myshow"

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// outcome: success, unavailable, invalid_seat, not_found, in_past, timeout, persistence_error
	ReservationsTotal *prometheus.CounterVec
	CommitAttempts    prometheus.Histogram
	LockWaitDuration  *prometheus.HistogramVec

	// reason: cancellation, compensation, expiry
	SeatsReleasedTotal *prometheus.CounterVec

	SweepsTotal *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		ReservationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reservations_total",
				Help:      "Seat reservation attempts by outcome",
			},
			[]string{"outcome"},
		),
		CommitAttempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "seat_map_commit_attempts",
				Help:      "Compare-and-swap attempts needed per seat map mutation",
				Buckets:   []float64{1, 2, 3, 4, 5, 8},
			},
		),
		LockWaitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "showtime_lock_wait_seconds",
				Help:      "Time spent waiting for the per-showtime exclusivity scope",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"status"},
		),
		SeatsReleasedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "seats_released_total",
				Help:      "Seats returned to the free pool by reason",
			},
			[]string{"reason"},
		),
		SweepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "expiry_sweeps_total",
				Help:      "Hold expiry sweep runs by status",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReservationsTotal,
		m.CommitAttempts,
		m.LockWaitDuration,
		m.SeatsReleasedTotal,
		m.SweepsTotal,
	)

	return m
}

// NewNop returns metrics registered on a throwaway registry, for tests and
// tools that do not expose /metrics.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
