package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	requestsSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pending_requests_submitted_total",
			Help: "Pending requests submitted, by kind",
		},
		[]string{"kind"},
	)

	approvalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approvals_total",
			Help: "Resolved pending requests, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	approvalConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_conflicts_total",
			Help: "Resolutions refused because the request was already processed",
		},
		[]string{"kind"},
	)

	pendingRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pending_requests",
			Help: "Requests waiting for review, by kind",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		apiRequestsTotal,
		apiRequestDuration,
		requestsSubmittedTotal,
		approvalsTotal,
		approvalConflictsTotal,
		pendingRequests,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordAPIRequest(method, path string, status int, seconds float64) {
	apiRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

func RecordSubmission(kind string) {
	requestsSubmittedTotal.WithLabelValues(kind).Inc()
}

func RecordResolution(kind, outcome string) {
	approvalsTotal.WithLabelValues(kind, outcome).Inc()
}

func RecordConflict(kind string) {
	approvalConflictsTotal.WithLabelValues(kind).Inc()
}

func SetPending(kind string, count int64) {
	pendingRequests.WithLabelValues(kind).Set(float64(count))
}
