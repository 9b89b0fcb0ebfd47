package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auth outcomes.
const (
	outcomeSuccess   = "success"
	outcomeRejected  = "rejected"
	outcomeThrottled = "throttled"
	outcomeError     = "error"
)

var authOperations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_operations_total",
		Help: "Auth operations by operation and outcome",
	},
	[]string{"operation", "outcome"},
)

var refreshRejections = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_refresh_rejections_total",
		Help: "Refused refresh token presentations by reason",
	},
	[]string{"reason"},
)

func observe(operation, outcome string) {
	authOperations.WithLabelValues(operation, outcome).Inc()
}
