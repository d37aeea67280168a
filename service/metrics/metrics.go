package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "flame"

// App Metrics
var (
	// AppActionsTotal tracks add/update/delete requests by outcome
	AppActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "app_actions_total",
			Help:      "Total app actions by action and status",
		},
		[]string{"action", "status"},
	)

	// AppsCurrent tracks the number of stored apps, refreshed on health checks
	AppsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "apps_current",
			Help:      "Number of stored apps",
		},
	)
)

// HTTP Metrics
var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of HTTP requests currently being processed.",
		},
	)
)

func RecordAppAction(action string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	AppActionsTotal.WithLabelValues(action, status).Inc()
}
