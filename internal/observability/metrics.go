package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tricy_client", Name: "gateway_requests_total", Help: "API gateway requests by method and outcome"},
		[]string{"method", "outcome"},
	)
	SignalsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tricy_client", Name: "signals_published_total", Help: "Cross-screen signals published"},
		[]string{"event"},
	)
	ScreenLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tricy_client", Name: "screen_loads_total", Help: "Screen cache loads by screen and outcome"},
		[]string{"screen", "outcome"},
	)
	LocalConflicts = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "tricy_client", Name: "local_conflicts_total", Help: "Business-rule violations rejected before reaching the API"},
	)
	PushFrames = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "tricy_client", Name: "push_frames_total", Help: "Booking update frames received over the push channel"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tricy_client", Name: "http_requests_total", Help: "Diagnostics endpoint requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tricy_client",
			Name:      "http_request_duration_seconds",
			Help:      "Diagnostics endpoint latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
