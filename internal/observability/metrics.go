package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rowlog",
		Subsystem: "persistence",
		Name:      "last_workout_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent workout persisted to Postgres.",
	})
	reconcileOutcomeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rowlog",
		Subsystem: "ingest",
		Name:      "reconciliation_outcomes_total",
		Help:      "Ingestion reconciliation decisions, labeled by outcome.",
	}, []string{"outcome"})
	prRecomputeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rowlog",
		Subsystem: "engine",
		Name:      "pr_recompute_duration_seconds",
		Help:      "Time spent recomputing a user's full PR set.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(workoutPersistGauge, reconcileOutcomeCounter, prRecomputeDuration)
}

// RecordWorkoutPersisted updates the persistence watermark gauge.
func RecordWorkoutPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	workoutPersistGauge.Set(float64(ts.Unix()))
}

// RecordReconciliationOutcome counts an ingestion decision.
func RecordReconciliationOutcome(outcome string) {
	reconcileOutcomeCounter.WithLabelValues(outcome).Inc()
}

// ObservePRRecompute records how long a full PR pass took.
func ObservePRRecompute(d time.Duration) {
	prRecomputeDuration.Observe(d.Seconds())
}
