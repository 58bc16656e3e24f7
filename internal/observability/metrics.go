package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scrap_bidding"

var (
	AggregationsTotal       = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "dashboard_aggregations_total", Help: "Collector dashboards built"})
	AggregationLatency      = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "dashboard_aggregation_seconds", Help: "Time spent fetching and aggregating a dashboard"})
	AggregationWarnings     = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "dashboard_warnings_total", Help: "Warnings attached to dashboards"})
	SkippedJobs             = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "ranking_skipped_jobs_total", Help: "Jobs left out of ranking"})
	ReconciliationConflicts = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "bid_reconciliation_conflicts_total", Help: "Reconciliations that fell back to server bids"})
	BidsPlaced              = promauto.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "bids_placed_total", Help: "Bids placed through the service"}, []string{"outcome"})
	LocationUpdates         = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "collector_location_updates_total", Help: "Collector location updates accepted"})
	NearbyLookups           = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "nearby_lookups_total", Help: "Nearby collector lookups"})
	JobAlertsSent           = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "job_alerts_sent_total", Help: "Job alerts pushed over websocket"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
