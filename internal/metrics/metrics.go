// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// SessionOperationsTotal counts Session Store operations.
// Labels:
//   - operation: initialize, login, register, refresh, logout, update_profile, delete_account
//   - role: customer, merchant or none
//   - result: ok, rejected, expired, network, superseded, error
var SessionOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_operations_total",
		Help:      "Session store operations by outcome.",
	},
	[]string{"operation", "role", "result"},
)

// GuardDecisionsTotal counts route guard outcomes.
// Label action: render, loading, redirect.
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Route guard decisions by requirement and action.",
	},
	[]string{"requirement", "action"},
)

// HandoffBindsTotal counts device-session bind attempts (result: ok, error).
var HandoffBindsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handoff_binds_total",
		Help:      "Device hand-off bind attempts by result.",
	},
	[]string{"result"},
)

// ActiveDevices tracks the number of device session stores held in memory.
var ActiveDevices = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_devices",
		Help:      "Device session stores currently held by the registry.",
	},
)

// BackendRequestDuration observes backend REST call latency.
var BackendRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Latency of calls to the backend REST API.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)
