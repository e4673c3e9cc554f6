package monitoring

import (
	"context"
	"time"

	"ticket-gate/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scanOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_scans_total",
			Help: "Total scan attempts by outcome",
		},
		[]string{"outcome"},
	)

	scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ticket_scan_duration_seconds",
			Help:    "Duration of scan validation including the store round trips",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	credentialsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticket_credentials_issued_total",
			Help: "Total ticket secrets generated",
		},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ticket_store_breaker_state",
			Help: "Circuit breaker state per store (0 closed, 1 half-open, 2 open)",
		},
		[]string{"breaker"},
	)
)

// Outcome labels that are not validation reasons.
const (
	OutcomeAccepted = "ACCEPTED"
	OutcomeError    = "ERROR"
)

type Monitor struct {
	breakers []*utils.CircuitBreaker
	interval time.Duration
}

func NewMonitor(breakers ...*utils.CircuitBreaker) *Monitor {
	return &Monitor{
		breakers: breakers,
		interval: 15 * time.Second,
	}
}

// Run samples breaker state until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.collectBreakerMetrics()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) collectBreakerMetrics() {
	for _, cb := range m.breakers {
		breakerState.WithLabelValues(cb.Name()).Set(float64(cb.State()))
	}
}

// Track scan outcomes
func TrackScan(outcome string, duration time.Duration) {
	scanOutcomes.WithLabelValues(outcome).Inc()
	scanDuration.Observe(duration.Seconds())
}

func TrackCredentialIssued() {
	credentialsIssued.Inc()
}
