package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests handled by the bot API.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_http_requests_total",
			Help: "Total number of HTTP requests handled by the bot service.",
		},
		[]string{"path", "method", "code"},
	)

	// GenerationsTotal counts finished generation tasks by kind and outcome.
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_generations_total",
			Help: "Total number of generation tasks, by kind and status.",
		},
		[]string{"kind", "status"},
	)

	// GenerationDuration observes end-to-end generation latency. Buckets run
	// long: a music clip can occupy the backend for minutes.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_generation_duration_seconds",
			Help:    "End-to-end duration of generation tasks.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"kind"},
	)

	// QueueDepth tracks tasks waiting for the execution slot.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_queue_depth",
			Help: "Number of tasks waiting in the dispatch queue.",
		},
	)

	// TasksRunning tracks tasks currently holding an execution slot.
	TasksRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_tasks_running",
			Help: "Number of tasks currently executing.",
		},
	)
)
