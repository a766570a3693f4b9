package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scheduling metrics. Conflicts and lock timeouts are the two signals worth
// alerting on: a rising conflict rate means operators are fighting over
// tanks, a rising timeout rate means Redis or a stuck holder.
var (
	MetricPlanRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_plan_requests_total",
		Help: "Planning requests by operation and outcome.",
	}, []string{"operation", "outcome"})

	MetricConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_booking_conflicts_total",
		Help: "Planning requests rejected because a tank window was taken.",
	})

	MetricLockTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_lock_timeouts_total",
		Help: "Lock acquisitions that exhausted their retry budget.",
	})
)
