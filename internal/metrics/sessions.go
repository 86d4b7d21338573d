// Package metrics provides Prometheus metrics for sessions and probing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "castnode",
		Subsystem: "session",
		Name:      "active",
		Help:      "Number of sessions currently starting or running",
	})

	sessionStarts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "castnode",
		Subsystem: "session",
		Name:      "starts_total",
		Help:      "Total session start attempts that spawned a subprocess",
	})

	sessionCrashes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "castnode",
		Subsystem: "session",
		Name:      "crashes_total",
		Help:      "Total encoder crashes by exit code",
	}, []string{"exit_code"})

	stopEscalations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "castnode",
		Subsystem: "session",
		Name:      "stop_escalations_total",
		Help:      "Total stops that timed out and escalated to a forced kill",
	})

	probeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "castnode",
		Subsystem: "probe",
		Name:      "duration_seconds",
		Help:      "Capability probe subprocess duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	probeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "castnode",
		Subsystem: "probe",
		Name:      "failures_total",
		Help:      "Total probe spawn failures",
	}, []string{"kind"})
)

// SetActiveSessions sets the active session gauge.
func SetActiveSessions(n int) {
	sessionsActive.Set(float64(n))
}

// IncSessionStarts records a spawned session.
func IncSessionStarts() {
	sessionStarts.Inc()
}

// IncSessionCrashes records an encoder crash with its exit code.
func IncSessionCrashes(exitCode int) {
	sessionCrashes.WithLabelValues(strconv.Itoa(exitCode)).Inc()
}

// IncStopEscalations records a stop that escalated to a forced kill.
func IncStopEscalations() {
	stopEscalations.Inc()
}

// ObserveProbeDuration records how long a probe subprocess ran.
func ObserveProbeDuration(kind string, d time.Duration) {
	probeDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// IncProbeFailures records a probe spawn failure.
func IncProbeFailures(kind string) {
	probeFailures.WithLabelValues(kind).Inc()
}
