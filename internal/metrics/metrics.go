package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecommendationsTotal counts predict requests by outcome: ok, invalid_input, upstream_unavailable, error.
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crop_recommendations_total",
			Help: "Total number of crop recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crop_recommendation_duration_seconds",
			Help:    "End-to-end latency of crop recommendation requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// RegionSubstitutions counts cities that could not be mapped and fell back to the default region.
	RegionSubstitutions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crop_region_substitutions_total",
			Help: "Total number of unknown cities substituted with the default region",
		},
	)

	ProviderDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crop_trend_provider_degraded_total",
			Help: "Total number of trend estimates replaced by the neutral default",
		},
		[]string{"provider"},
	)

	ScoringDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crop_scoring_degraded_total",
			Help: "Total number of candidates that received the default score",
		},
	)

	WeatherFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_provider_fetches_total",
			Help: "Weather provider fetches by provider and status",
		},
		[]string{"provider", "status"},
	)

	ClassifierRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crop_classifier_requests_total",
			Help: "Classifier predictions by backend and status",
		},
		[]string{"backend", "status"},
	)

	MarketBoardRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_board_refreshes_total",
			Help: "Market board refresh runs by status",
		},
		[]string{"status"},
	)
)
