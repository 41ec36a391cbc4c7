// Package observability holds the tracker's Prometheus metrics and logger setup.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	logPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tracker_bot",
		Subsystem: "persistence",
		Name:      "last_log_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity log mutation committed to the store.",
	})

	trackingCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker_bot",
		Subsystem: "tracking",
		Name:      "events_total",
		Help:      "Tracking events applied, by action and activity type.",
	}, []string{"action", "activity_type"})

	timerMinutes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tracker_bot",
		Subsystem: "tracking",
		Name:      "timer_minutes",
		Help:      "Minutes folded into a log when a running timer is stopped.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 240, 480},
	})

	wizardCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker_bot",
		Subsystem: "wizard",
		Name:      "transitions_total",
		Help:      "Wizard step outcomes, by flow and outcome.",
	}, []string{"flow", "outcome"})

	exportCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tracker_bot",
		Subsystem: "export",
		Name:      "artifacts_total",
		Help:      "Per-day export artifacts produced.",
	})

	inboundCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker_bot",
		Subsystem: "bot",
		Name:      "events_total",
		Help:      "Inbound chat events handled, by kind and result.",
	}, []string{"kind", "result"})
)

func init() {
	prometheus.MustRegister(logPersistGauge, trackingCounter, timerMinutes, wizardCounter, exportCounter, inboundCounter)
}

// RecordLogPersisted updates the persistence watermark gauge.
func RecordLogPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	logPersistGauge.Set(float64(ts.Unix()))
}

// RecordTracking counts one applied tracking action.
func RecordTracking(action, activityType string) {
	trackingCounter.WithLabelValues(action, activityType).Inc()
}

// RecordTimerStopped observes the minutes folded in by a timer stop.
func RecordTimerStopped(minutes int) {
	timerMinutes.Observe(float64(minutes))
}

// RecordWizard counts one wizard step outcome.
func RecordWizard(flow, outcome string) {
	wizardCounter.WithLabelValues(flow, outcome).Inc()
}

// RecordExportArtifacts counts produced export artifacts.
func RecordExportArtifacts(n int) {
	exportCounter.Add(float64(n))
}

// RecordInbound counts one handled inbound chat event.
func RecordInbound(kind, result string) {
	inboundCounter.WithLabelValues(kind, result).Inc()
}
