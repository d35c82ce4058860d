// Package telemetry provides application-level observability: the slog logger
// setup and the Prometheus metrics exported by the backend.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// served by the side-channel HTTP server started by cmd/server:
//
//	GET http://<host>:<BLOKID_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is not served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Authorization decisions, by predicate and outcome
//   - Membership invitations and invitation emails
//   - Account registrations and login attempts
//   - Database connection pool gauge (polled every 30 s)
package telemetry

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/blokid/blokid-backend/internal/safego"
)

// HTTP metrics, labelled by method, route template, and status code. The path
// label holds the Gin route template (e.g. /organizations/:id/invite) to keep
// cardinality bounded.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// AuthzDecisionsTotal counts permission evaluator decisions. predicate is the
// evaluator predicate name (e.g. can_manage_website); result is "allow" or "deny".
// Store failures are not counted here since no decision was reached.
//
// Example PromQL queries:
//   - Denial ratio per predicate:  sum by (predicate) (rate(authz_decisions_total{result="deny"}[5m])) / sum by (predicate) (rate(authz_decisions_total[5m]))
var AuthzDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authz_decisions_total",
		Help: "Total number of authorization decisions, by predicate and result.",
	},
	[]string{"predicate", "result"},
)

// Membership metrics.
//
// MembershipInvitesTotal has labels {resource, outcome}: resource is
// "organization" or "website"; outcome is one of created, forbidden, not_found,
// conflict, invalid_role, error.
//
// InviteEmailsTotal has label {result} ("sent" or "failed") and is incremented by
// the asynchronous invitation notifier.
var (
	MembershipInvitesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_invites_total",
			Help: "Total number of membership invitations, by resource kind and outcome.",
		},
		[]string{"resource", "outcome"},
	)

	InviteEmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invite_emails_total",
			Help: "Total number of invitation notification emails, by delivery result.",
		},
		[]string{"result"},
	)
)

// Account metrics.
//
// RegistrationsTotal is a plain counter of successful registrations.
// LoginAttemptsTotal has label {result}: success, invalid_credentials, inactive.
var (
	RegistrationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "account_registrations_total",
			Help: "Total number of successful account registrations.",
		},
	)

	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Total number of login attempts, by result.",
		},
		[]string{"result"},
	)
)

// DBOpenConnections tracks the number of open connections held by the sql.DB
// pool. It is sampled every 30 seconds by StartDBStatsCollector rather than per
// request.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

const dbStatsInterval = 30 * time.Second

// StartDBStatsCollector launches a goroutine that samples pool statistics every
// 30 seconds until ctx is cancelled or the database becomes unreachable.
func StartDBStatsCollector(ctx context.Context, db *sql.DB) {
	startDBStatsCollector(ctx, db, dbStatsInterval)
}

func startDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	safego.Go("db-stats-collector", func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := db.PingContext(ctx); err != nil {
					slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
					return
				}
				DBOpenConnections.Set(float64(db.Stats().OpenConnections))
			}
		}
	})
}

// Decision returns the result label for an authorization outcome.
func Decision(allowed bool) string {
	if allowed {
		return "allow"
	}
	return "deny"
}
