package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "notifications"

var (
	LiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sessions",
			Help:      "Number of live sessions currently registered",
		},
	)

	LiveUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_users",
			Help:      "Number of users with at least one live session",
		},
	)

	Deliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Payloads queued to live sessions by fan-out",
		},
	)

	SendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Fan-out sends that failed and evicted the session",
		},
		[]string{"reason"},
	)

	ChangeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_events_total",
			Help:      "Change feed events by outcome",
		},
		[]string{"outcome"},
	)

	Resubscriptions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changefeed_resubscriptions_total",
			Help:      "Times the change feed subscription was lost and re-established",
		},
	)

	BacklogSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backlog_replay_size",
			Help:      "Unread notifications replayed on connect",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
	)
)

const (
	OutcomeDelivered = "delivered"
	OutcomeDropped   = "dropped"
	OutcomeMalformed = "malformed"
)
