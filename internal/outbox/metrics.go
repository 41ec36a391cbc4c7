package outbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultDelivered = "delivered"
	resultFailed    = "failed"

	outcomeRequeued    = "requeued"
	outcomeQuarantined = "quarantined"
	outcomeRetry       = "retry_scheduled"
)

var (
	eventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker_bot",
		Subsystem: "outbox",
		Name:      "events_total",
		Help:      "Outbox events handled by the dispatcher, by event type and result.",
	}, []string{"event_type", "result"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tracker_bot",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time from claiming an outbox batch to marking it published.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	schemaLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker_bot",
		Subsystem: "outbox",
		Name:      "schema_lookups_total",
		Help:      "Schema id resolutions, served from the local cache or the registry.",
	}, []string{"source"})

	dlqOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker_bot",
		Subsystem: "dlq",
		Name:      "entries_total",
		Help:      "Dead-letter entries handled by the manager, by event type and outcome.",
	}, []string{"event_type", "outcome"})

	dlqBacklog = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tracker_bot",
		Subsystem: "dlq",
		Name:      "backlog",
		Help:      "Dead-letter entries neither replayed nor quarantined.",
	})
)

func init() {
	prometheus.MustRegister(eventsCounter, batchDuration, schemaLookups, dlqOutcomes, dlqBacklog)
}

func recordEvents(messages []Message, result string) {
	for _, msg := range messages {
		eventsCounter.WithLabelValues(msg.EventType, result).Inc()
	}
}

func recordDLQ(entry dlqEntry, outcome string) {
	dlqOutcomes.WithLabelValues(entry.EventType, outcome).Inc()
}

func refreshBacklog(ctx context.Context, pool *pgxpool.Pool) {
	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL`).Scan(&count); err != nil {
		return
	}
	dlqBacklog.Set(float64(count))
}
