package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "yasno_zrozumilo"

	SyncSubsystem = "sync"
	BotSubsystem  = "bot"
)

// Метрики циклу синхронізації.
var (
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SyncSubsystem,
			Name:      "fetches_total",
			Help:      "Total number of upstream schedule fetches",
		},
		[]string{"source", "status"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: SyncSubsystem,
			Name:      "fetch_duration_seconds",
			Help:      "Upstream fetch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	ChangesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SyncSubsystem,
			Name:      "changes_detected_total",
			Help:      "Total number of notable schedule changes detected",
		},
		[]string{"source"},
	)
)

// Метрики бота.
var (
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: BotSubsystem,
			Name:      "notifications_total",
			Help:      "Total number of change notifications sent",
		},
		[]string{"source", "status"},
	)

	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: BotSubsystem,
			Name:      "commands_total",
			Help:      "Total number of user commands processed",
		},
		[]string{"command"},
	)

	SubscribersGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: BotSubsystem,
			Name:      "subscribers",
			Help:      "Number of users with notifications enabled",
		},
	)
)

func RecordFetch(source, status string) {
	FetchesTotal.WithLabelValues(source, status).Inc()
}

func RecordNotification(source, status string) {
	NotificationsTotal.WithLabelValues(source, status).Inc()
}

func RecordCommand(command string) {
	CommandsTotal.WithLabelValues(command).Inc()
}
