// Package metrics exposes the Prometheus collectors shared by the API server and the
// sync engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "habitflow"

var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	rejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rejected_requests_total",
			Help:      "Requests rejected by the input security filter",
		},
		[]string{"kind"},
	)

	syncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Sync attempts by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	syncActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_actions_total",
			Help:      "Pending actions processed by result",
		},
		[]string{"type", "result"},
	)

	syncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of sync drains in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	pendingActions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_actions",
			Help:      "Actions waiting in the offline queue",
		},
	)
)

// Middleware records the duration and count of every request by route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

func RecordRejected(kind string) {
	rejectedTotal.WithLabelValues(kind).Inc()
}

func RecordSyncRun(trigger, outcome string, elapsed time.Duration) {
	syncRuns.WithLabelValues(trigger, outcome).Inc()
	if elapsed > 0 {
		syncDuration.Observe(elapsed.Seconds())
	}
}

func RecordAction(actionType, result string) {
	syncActions.WithLabelValues(actionType, result).Inc()
}

func SetPending(n int) {
	pendingActions.Set(float64(n))
}
