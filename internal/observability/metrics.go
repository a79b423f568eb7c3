// Package observability exposes the prometheus metrics recorded by the workout tracker.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "tracker",
		Name:      "workouts_created_total",
		Help:      "Workouts accepted into the collection, by kind.",
	}, []string{"kind"})
	validationRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "tracker",
		Name:      "validation_rejected_total",
		Help:      "Workout submissions rejected by input validation.",
	})
	workoutsLive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapty",
		Subsystem: "tracker",
		Name:      "workouts",
		Help:      "Number of workouts currently held in memory.",
	})
	lastPersisted = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapty",
		Subsystem: "tracker",
		Name:      "last_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful write to the blob store.",
	})
	recordsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "codec",
		Name:      "records_dropped_total",
		Help:      "Persisted records skipped during reconstruction, by reason.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(workoutsCreated, validationRejected, workoutsLive, lastPersisted, recordsDropped)
}

// RecordWorkoutCreated counts an accepted workout.
func RecordWorkoutCreated(kind string) {
	workoutsCreated.WithLabelValues(kind).Inc()
}

// RecordValidationRejected counts a rejected submission.
func RecordValidationRejected() {
	validationRejected.Inc()
}

// SetWorkoutsLive reports the collection size.
func SetWorkoutsLive(n int) {
	workoutsLive.Set(float64(n))
}

// RecordPersisted updates the persistence watermark.
func RecordPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastPersisted.Set(float64(ts.Unix()))
}

// RecordDropped counts a record the codec could not reconstruct.
func RecordDropped(reason string) {
	recordsDropped.WithLabelValues(reason).Inc()
}
