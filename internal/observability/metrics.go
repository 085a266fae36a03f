package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	snapshotsAppliedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_snapshots_applied_total",
			Help: "Total number of live-query snapshots applied to local view state.",
		},
		[]string{"feed"},
	)
	mutationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_mutation_failures_total",
			Help: "Total number of remote writes that failed and were surfaced to the user.",
		},
		[]string{"op"},
	)
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_backend_http_requests_total",
			Help: "Total number of HTTP requests processed by the dev backend.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_backend_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	activeSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_backend_active_subscriptions",
			Help: "Number of live subscriptions currently held by websocket clients.",
		},
	)
	snapshotsPushedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_backend_snapshots_pushed_total",
			Help: "Total number of snapshots pushed to subscribers.",
		},
		[]string{"collection"},
	)
	documentWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_backend_document_writes_total",
			Help: "Total number of document writes accepted by the dev backend.",
		},
		[]string{"op", "collection"},
	)
	authFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_backend_auth_failures_total",
			Help: "Total number of rejected credential or token checks.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_backend_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		snapshotsAppliedTotal,
		mutationFailuresTotal,
		httpRequestsTotal,
		httpRequestDuration,
		activeSubscriptions,
		snapshotsPushedTotal,
		documentWritesTotal,
		authFailuresTotal,
		amqpPublishErrorsTotal,
	)
}

// HTTPMetricsMiddleware records request counts and latency per route.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncSnapshotApplied(feed string) {
	snapshotsAppliedTotal.WithLabelValues(feed).Inc()
}

func IncMutationFailure(op string) {
	mutationFailuresTotal.WithLabelValues(op).Inc()
}

func IncSubscriptions() {
	activeSubscriptions.Inc()
}

func DecSubscriptions() {
	activeSubscriptions.Dec()
}

func IncSnapshotPushed(collection string) {
	snapshotsPushedTotal.WithLabelValues(collection).Inc()
}

func IncDocumentWrite(op, collection string) {
	documentWritesTotal.WithLabelValues(op, collection).Inc()
}

func IncAuthFailure() {
	authFailuresTotal.Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
