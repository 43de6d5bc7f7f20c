// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aims_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aims_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	AuthzDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aims_authz_decisions_total",
			Help: "Authorization gate decisions",
		},
		[]string{"gate", "decision"},
	)

	AuditWritesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aims_audit_writes_total",
			Help: "Audit entries persisted",
		},
	)

	AuditWriteFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aims_audit_write_failures_total",
			Help: "Audit entries that could not be persisted",
		},
		[]string{"action"},
	)

	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aims_logins_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)
)

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordAuthzDecision(gate string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	AuthzDecisionsTotal.WithLabelValues(gate, decision).Inc()
}

func RecordAuditWrite() {
	AuditWritesTotal.Inc()
}

func RecordAuditFailure(action string) {
	AuditWriteFailuresTotal.WithLabelValues(action).Inc()
}

func RecordLogin(outcome string) {
	LoginsTotal.WithLabelValues(outcome).Inc()
}
