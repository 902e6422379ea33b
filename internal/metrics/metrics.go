package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Realtime registry metrics
var (
	// ActiveConnections tracks the number of live WebSocket connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_active_connections",
			Help: "Number of live WebSocket connections",
		},
	)

	// TopicSubscribers tracks current subscriber count per show
	TopicSubscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "realtime_topic_subscribers",
			Help: "Current subscriber count per show",
		},
		[]string{"show_id"},
	)

	// StaleEvictionsTotal tracks connections evicted by the staleness sweep
	StaleEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_stale_evictions_total",
			Help: "Connections evicted by the staleness sweep",
		},
	)
)

// Broadcast metrics
var (
	// BroadcastsTotal tracks broadcast calls by message type
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_messages_total",
			Help: "Broadcast calls by message type",
		},
		[]string{"type"},
	)

	// DeliveriesTotal tracks per-subscriber delivery attempts by outcome
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_deliveries_total",
			Help: "Per-subscriber delivery attempts by outcome (sent/dropped/failed)",
		},
		[]string{"outcome"},
	)

	// BroadcastDuration tracks per-topic fan-out duration in seconds
	BroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "broadcast_fanout_duration_seconds",
			Help:    "Per-topic fan-out duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)
)

// Scheduler metrics
var (
	// TaskRunsTotal tracks task executions by task and status
	TaskRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_task_runs_total",
			Help: "Task executions by task ID and final status",
		},
		[]string{"task", "status"},
	)

	// TaskDuration tracks task execution duration in seconds
	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_task_duration_seconds",
			Help:    "Task execution duration in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300},
		},
		[]string{"task"},
	)

	// TasksDisabledTotal tracks tasks auto-disabled after repeated failures
	TasksDisabledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_tasks_disabled_total",
			Help: "Tasks auto-disabled after exceeding their failure threshold",
		},
	)

	// SchedulerTickDuration tracks poll-loop tick duration in seconds
	SchedulerTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_tick_duration_seconds",
			Help:    "Scheduler poll-loop tick duration in seconds",
			Buckets: []float64{.0001, .001, .01, .1, 1},
		},
	)
)

// WebSocket endpoint metrics
var (
	// WebSocketUpgradesTotal tracks upgrade attempts by outcome
	WebSocketUpgradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_upgrades_total",
			Help: "WebSocket upgrade attempts by outcome",
		},
		[]string{"outcome"},
	)

	// ConnectionsRejectedTotal tracks connections rejected by the limiters
	ConnectionsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_connections_rejected_total",
			Help: "Connections rejected by the global or per-IP limiter",
		},
		[]string{"limiter"},
	)
)
