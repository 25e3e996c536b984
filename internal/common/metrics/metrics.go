package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AdapterCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealer_adapter_calls_total",
			Help: "Platform adapter calls by outcome (success, error, timeout, cancelled)",
		},
		[]string{"platform", "outcome"},
	)

	AdapterDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dealer_adapter_duration_seconds",
			Help:    "Latency of platform adapter calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"platform"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealer_cache_lookups_total",
			Help: "Offer cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	Searches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealer_searches_total",
			Help: "Searches by category and terminal status",
		},
		[]string{"category", "status"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dealer_search_duration_seconds",
			Help: "Wall clock duration of a search in seconds",
		},
		[]string{"category"},
	)

	SearchesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dealer_searches_active",
			Help: "Number of searches currently in flight",
		},
	)

	DealsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealer_deals_applied_total",
			Help: "Offers adjusted by a deal, by deal id",
		},
		[]string{"deal_id"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealer_errors_total",
			Help: "Errors by category and code",
		},
		[]string{"category", "code"},
	)
)
