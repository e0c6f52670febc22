// Package metrics holds the Prometheus collectors exported by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

var (
	// LoadAttempts counts catalog source attempts by source name and outcome (success|failure).
	LoadAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_load_attempts_total",
			Help: "Catalog source attempts by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	// CatalogProducts is the number of products in the current snapshot.
	CatalogProducts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_products",
			Help: "Number of products in the current catalog snapshot",
		},
	)

	// FilterPasses counts filter recomputations by trigger.
	FilterPasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_filter_passes_total",
			Help: "Visible set recomputations by triggering command",
		},
		[]string{"command"},
	)

	// FilterDuration observes how long a filter pass takes.
	FilterDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_filter_duration_seconds",
			Help:    "Duration of a filter and sort pass",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	// BreakerState tracks source circuit breakers (0=closed, 1=half-open, 2=open).
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_source_breaker_state",
			Help: "Current state of the source circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"source"},
	)

	// Refreshes counts scheduled refresh ticks by outcome.
	Refreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_refreshes_total",
			Help: "Scheduled catalog refreshes by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(LoadAttempts, CatalogProducts, FilterPasses, FilterDuration, BreakerState, Refreshes)
}

// BreakerStateValue maps gobreaker states to gauge values.
func BreakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
