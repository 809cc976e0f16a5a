package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nightslip"

// Outcome labels shared by the counters below.
const (
	OutcomeOK           = "ok"
	OutcomeAccessDenied = "access_denied"
	OutcomeLocked       = "locked"
	OutcomeNotFound     = "not_found"
	OutcomeInvalid      = "invalid"
	OutcomeError        = "error"
)

var (
	// RequestDuration observes HTTP request latency by method and status.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})

	// QueryDuration observes database call latency by operation.
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "db_query_duration_seconds",
		Help:      "Database call duration in seconds.",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"op"})

	// AttendanceUpdates counts field-update requests by actor class and outcome.
	AttendanceUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attendance_updates_total",
		Help:      "Attendance field updates by actor class and outcome.",
	}, []string{"actor", "outcome"})

	// MirrorRuns counts spreadsheet mirror runs by trigger and status.
	MirrorRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mirror_runs_total",
		Help:      "Spreadsheet mirror runs by trigger and status.",
	}, []string{"trigger", "status"})

	// MirrorDuration observes how long a mirror push took.
	MirrorDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mirror_duration_seconds",
		Help:      "Spreadsheet mirror push duration in seconds.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
	})

	// ReceiptEmails counts lock receipt emails by status.
	ReceiptEmails = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "receipt_emails_total",
		Help:      "Submission receipt emails by status.",
	}, []string{"status"})
)

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
