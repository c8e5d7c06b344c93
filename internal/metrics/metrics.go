// Package metrics holds the Prometheus collectors of the ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for LedgerOperations.
const (
	OutcomeOK                = "ok"
	OutcomeInvalidInput      = "invalid_input"
	OutcomeAccountExists     = "account_exists"
	OutcomeNotFound          = "not_found"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeError             = "error"
)

// LedgerOperations counts engine operations by result.
var LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "points",
	Subsystem: "ledger",
	Name:      "operations_total",
	Help:      "Total ledger operations by operation and outcome.",
}, []string{"operation", "outcome"})

// LedgerOperationDuration tracks engine latency, lock wait included.
var LedgerOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "points",
	Subsystem: "ledger",
	Name:      "operation_duration_seconds",
	Help:      "Ledger operation latency in seconds.",
	Buckets:   prometheus.DefBuckets,
}, []string{"operation"})

// PointsMoved sums committed amounts per action.
var PointsMoved = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "points",
	Subsystem: "ledger",
	Name:      "points_total",
	Help:      "Total points committed, by action.",
}, []string{"action"})

// ReconcileMismatches counts accounts whose balance disagreed with history.
var ReconcileMismatches = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "points",
	Subsystem: "ledger",
	Name:      "reconcile_mismatches_total",
	Help:      "Total reconcile runs that found a balance/history discrepancy.",
})

// EventPublishFailures counts entry events that could not be delivered.
var EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "points",
	Subsystem: "events",
	Name:      "publish_failures_total",
	Help:      "Total committed-entry events that failed to publish.",
})

// HTTPRequests counts served requests.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "points",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Total HTTP requests by method, route and status.",
}, []string{"method", "route", "status"})

// HTTPRequestDuration tracks request latency.
var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "points",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency in seconds.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})
