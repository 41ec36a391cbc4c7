package consumer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultHandled      = "handled"
	resultHandlerError = "handler_error"
	resultDecodeError  = "decode_error"
)

var (
	messagesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker_bot",
		Subsystem: "consumer",
		Name:      "messages_total",
		Help:      "Kafka records consumed, by topic and result.",
	}, []string{"topic", "result"})

	handleDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tracker_bot",
		Subsystem: "consumer",
		Name:      "handle_duration_seconds",
		Help:      "Handler latency per topic. For bot_updates this is the full router turn.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"topic"})

	lastRecordGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tracker_bot",
		Subsystem: "consumer",
		Name:      "last_record_timestamp_seconds",
		Help:      "Broker timestamp of the newest committed record per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(messagesCounter, handleDuration, lastRecordGauge)
}

func observe(topic, result string, started time.Time) {
	messagesCounter.WithLabelValues(topic, result).Inc()
	if !started.IsZero() {
		handleDuration.WithLabelValues(topic).Observe(time.Since(started).Seconds())
	}
}
