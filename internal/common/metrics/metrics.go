// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_events_created_total",
			Help: "Total number of notification events created",
		},
		[]string{"event_type"},
	)

	EventsDeduplicated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_events_deduplicated_total",
			Help: "Total number of event creations dropped by the dedup key",
		},
		[]string{"event_type"},
	)

	DispatchAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_dispatch_attempts_total",
			Help: "Total number of successful event claims",
		},
	)

	DispatchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_dispatch_outcomes_total",
			Help: "Dispatch outcomes by result (sent, failed, not_claimed)",
		},
		[]string{"outcome"},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "notify_dispatch_duration_seconds",
			Help: "Duration of a single event dispatch in seconds",
		},
	)

	FanOutRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_fanout_rows_total",
			Help: "Total number of user notification rows inserted by fan-out",
		},
	)

	SchedulerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_scheduler_ticks_total",
			Help: "Scheduler ticks by result (scanned, lock_busy, overlapping)",
		},
		[]string{"result"},
	)

	StreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notify_stream_clients",
			Help: "Number of live stream connections",
		},
	)

	StreamDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_stream_dropped_total",
			Help: "Pushes dropped because a client buffer was full",
		},
	)
)
