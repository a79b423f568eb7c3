// Package tracker owns the in-memory workout collection and keeps the blob
// store in step with it.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/claude/mapty/internal/codec"
	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/observability"
	"github.com/claude/mapty/internal/storage"
)

var (
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("inputs have to be positive numbers")
	// ErrNotFound is returned when no workout has the requested ID.
	ErrNotFound = errors.New("workout not found")
)

// ValidationError reports a rejected submission field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Submission is a new workout as entered on the map form. Cadence applies to
// running, Elevation to cycling. A zero At means now.
type Submission struct {
	Kind        models.Kind
	Coords      models.Coordinates
	DistanceKm  float64
	DurationMin float64
	Cadence     float64
	Elevation   float64
	At          time.Time
}

// Tracker is the single entry point for changing the workout collection.
// It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	workouts []models.Workout
	ids      *models.IDAllocator
	codec    *codec.Codec
	store    storage.BlobStore
	log      *slog.Logger
}

// New creates an empty Tracker persisting to store.
func New(store storage.BlobStore, log *slog.Logger) *Tracker {
	ids := models.NewIDAllocator()
	return &Tracker{
		workouts: []models.Workout{},
		ids:      ids,
		codec:    codec.New(ids, log),
		store:    store,
		log:      log,
	}
}

// Create validates a submission, adds the workout and saves the collection.
// A rejected submission leaves the collection unchanged.
func (t *Tracker) Create(ctx context.Context, sub Submission) (models.Workout, error) {
	if err := validate(sub); err != nil {
		observability.RecordValidationRejected()
		return models.Workout{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var (
		w    models.Workout
		err  error
		opts []models.Option
	)
	if !sub.At.IsZero() {
		opts = append(opts, models.At(sub.At))
	}
	switch sub.Kind {
	case models.KindRunning:
		w, err = models.NewRunning(t.ids, sub.Coords, sub.DistanceKm, sub.DurationMin, sub.Cadence, opts...)
	case models.KindCycling:
		w, err = models.NewCycling(t.ids, sub.Coords, sub.DistanceKm, sub.DurationMin, sub.Elevation, opts...)
	}
	if err != nil {
		return models.Workout{}, fmt.Errorf("building workout: %w", err)
	}

	t.workouts = append(t.workouts, w)
	if err := t.saveLocked(ctx); err != nil {
		t.workouts = t.workouts[:len(t.workouts)-1]
		return models.Workout{}, err
	}

	observability.RecordWorkoutCreated(string(w.Kind()))
	observability.SetWorkoutsLive(len(t.workouts))
	t.log.Info("workout created", "id", w.ID(), "type", w.Kind(), "description", w.Description())
	return w, nil
}

type field struct {
	name     string
	value    float64
	positive bool
}

// validate checks every field is finite and that distance, duration and
// cadence are positive. Elevation may be zero or negative.
func validate(sub Submission) error {
	fields := []field{
		{"distance", sub.DistanceKm, true},
		{"duration", sub.DurationMin, true},
	}
	switch sub.Kind {
	case models.KindRunning:
		fields = append(fields, field{"cadence", sub.Cadence, true})
	case models.KindCycling:
		fields = append(fields, field{"elevation", sub.Elevation, false})
	default:
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("%q is not running or cycling", sub.Kind)}
	}

	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &ValidationError{Field: f.name, Reason: "must be a finite number"}
		}
		if f.positive && f.value <= 0 {
			return &ValidationError{Field: f.name, Reason: "must be positive"}
		}
	}
	return nil
}

// All returns a copy of the collection in insertion order.
func (t *Tracker) All() []models.Workout {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.Workout, len(t.workouts))
	copy(out, t.workouts)
	return out
}

// FindByID returns the workout with the given ID.
func (t *Tracker) FindByID(id int64) (models.Workout, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, w := range t.workouts {
		if w.ID() == id {
			return w, nil
		}
	}
	return models.Workout{}, ErrNotFound
}

// Load replaces the collection with the workouts decoded from blob.
func (t *Tracker) Load(blob []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.workouts = t.codec.Unmarshal(blob)
	observability.SetWorkoutsLive(len(t.workouts))
}

// Persist encodes the current collection for the blob store.
func (t *Tracker) Persist() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return codec.Marshal(t.workouts)
}

// Restore loads the collection from the blob store. A missing blob means no
// workouts yet.
func (t *Tracker) Restore(ctx context.Context) error {
	blob, err := t.store.Get(ctx, storage.WorkoutsKey)
	if errors.Is(err, storage.ErrNotFound) {
		t.Load(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading stored workouts: %w", err)
	}
	t.Load([]byte(blob))
	t.log.Info("workouts restored", "count", len(t.All()))
	return nil
}

// Save writes the current collection to the blob store.
func (t *Tracker) Save(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked(ctx)
}

func (t *Tracker) saveLocked(ctx context.Context) error {
	data, err := codec.Marshal(t.workouts)
	if err != nil {
		return err
	}
	if err := t.store.Set(ctx, storage.WorkoutsKey, string(data)); err != nil {
		return fmt.Errorf("saving workouts: %w", err)
	}
	observability.RecordPersisted(time.Now())
	return nil
}

// ClearAll empties the collection and removes the stored blob. It returns the
// number of workouts removed.
func (t *Tracker) ClearAll(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.store.Remove(ctx, storage.WorkoutsKey); err != nil {
		return 0, fmt.Errorf("clearing stored workouts: %w", err)
	}
	n := len(t.workouts)
	t.workouts = []models.Workout{}
	observability.SetWorkoutsLive(0)
	t.log.Info("workouts cleared", "count", n)
	return n, nil
}
