package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidWorkout is returned when distance or duration is not a positive finite number.
var ErrInvalidWorkout = errors.New("invalid workout")

// Kind tags a workout variant.
type Kind string

const (
	KindRunning Kind = "running"
	KindCycling Kind = "cycling"
)

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64
	Lng float64
}

// Running holds the running-only fields.
type Running struct {
	CadenceSpm   float64
	PaceMinPerKm float64
}

// Cycling holds the cycling-only fields.
type Cycling struct {
	ElevationGainM float64
	SpeedKmPerH    float64
}

// Workout is one logged activity. It is either a running or a cycling workout;
// exactly one of Running and Cycling reports ok. All fields are fixed at
// construction and only readable through accessors.
type Workout struct {
	id          int64
	coords      Coordinates
	distanceKm  float64
	durationMin float64
	occurredAt  time.Time
	kind        Kind
	description string

	running *Running
	cycling *Cycling
}

type options struct {
	at    time.Time
	id    int64
	hasID bool
}

// Option customises workout construction.
type Option func(*options)

// At sets the time the workout took place instead of the current time.
func At(t time.Time) Option {
	return func(o *options) { o.at = t }
}

// WithID asks for a previously persisted ID. The allocator keeps it only if it
// is above every ID already issued; otherwise the workout gets a fresh one.
func WithID(id int64) Option {
	return func(o *options) {
		o.id = id
		o.hasID = true
	}
}

// NewRunning builds a running workout and derives its pace.
func NewRunning(ids *IDAllocator, coords Coordinates, distanceKm, durationMin, cadenceSpm float64, opts ...Option) (Workout, error) {
	w, err := newWorkout(ids, KindRunning, coords, distanceKm, durationMin, opts)
	if err != nil {
		return Workout{}, err
	}
	w.running = &Running{
		CadenceSpm:   cadenceSpm,
		PaceMinPerKm: durationMin / distanceKm,
	}
	return w, nil
}

// NewCycling builds a cycling workout and derives its speed.
func NewCycling(ids *IDAllocator, coords Coordinates, distanceKm, durationMin, elevationGainM float64, opts ...Option) (Workout, error) {
	w, err := newWorkout(ids, KindCycling, coords, distanceKm, durationMin, opts)
	if err != nil {
		return Workout{}, err
	}
	w.cycling = &Cycling{
		ElevationGainM: elevationGainM,
		SpeedKmPerH:    distanceKm / (durationMin / 60),
	}
	return w, nil
}

func newWorkout(ids *IDAllocator, kind Kind, coords Coordinates, distanceKm, durationMin float64, opts []Option) (Workout, error) {
	if !positive(distanceKm) {
		return Workout{}, fmt.Errorf("%w: distance %v km", ErrInvalidWorkout, distanceKm)
	}
	if !positive(durationMin) {
		return Workout{}, fmt.Errorf("%w: duration %v min", ErrInvalidWorkout, durationMin)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.at.IsZero() {
		o.at = time.Now()
	}

	var id int64
	if o.hasID {
		id = ids.Claim(o.id)
	} else {
		id = ids.Next()
	}

	return Workout{
		id:          id,
		coords:      coords,
		distanceKm:  distanceKm,
		durationMin: durationMin,
		occurredAt:  o.at,
		kind:        kind,
		description: describe(kind, o.at),
	}, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func (w Workout) ID() int64             { return w.id }
func (w Workout) Coords() Coordinates   { return w.coords }
func (w Workout) DistanceKm() float64   { return w.distanceKm }
func (w Workout) DurationMin() float64  { return w.durationMin }
func (w Workout) OccurredAt() time.Time { return w.occurredAt }
func (w Workout) Kind() Kind            { return w.kind }
func (w Workout) Description() string   { return w.description }

// Running returns the running fields; ok is false for other kinds.
func (w Workout) Running() (Running, bool) {
	if w.running == nil {
		return Running{}, false
	}
	return *w.running, true
}

// Cycling returns the cycling fields; ok is false for other kinds.
func (w Workout) Cycling() (Cycling, bool) {
	if w.cycling == nil {
		return Cycling{}, false
	}
	return *w.cycling, true
}

// Icon is the marker glyph shown next to the workout on the map and in the list.
func (w Workout) Icon() string {
	if w.kind == KindRunning {
		return "🏃‍♂️"
	}
	return "🚴‍♀️"
}

// Label is the marker popup text, e.g. "🏃‍♂️ Running on April 14".
func (w Workout) Label() string {
	return w.Icon() + " " + w.description
}

var months = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// describe renders "<Kind> on <Month> <day>" using the local calendar.
func describe(kind Kind, at time.Time) string {
	local := at.Local()
	name := string(kind)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return fmt.Sprintf("%s on %s %d", name, months[local.Month()-1], local.Day())
}

// view is the shape handed to map and list renderers.
type view struct {
	ID          int64      `json:"id"`
	Coords      [2]float64 `json:"coords"`
	Type        Kind       `json:"type"`
	Description string     `json:"description"`
	Label       string     `json:"label"`
	Distance    float64    `json:"distance"`
	Duration    float64    `json:"duration"`
	Date        time.Time  `json:"date"`
	Pace        *float64   `json:"pace,omitempty"`
	Cadence     *float64   `json:"cadence,omitempty"`
	Speed       *float64   `json:"speed,omitempty"`
	Elevation   *float64   `json:"elevation,omitempty"`
}

// MarshalJSON renders the workout with its derived fields for display.
func (w Workout) MarshalJSON() ([]byte, error) {
	v := view{
		ID:          w.id,
		Coords:      [2]float64{w.coords.Lat, w.coords.Lng},
		Type:        w.kind,
		Description: w.description,
		Label:       w.Label(),
		Distance:    w.distanceKm,
		Duration:    w.durationMin,
		Date:        w.occurredAt.UTC(),
	}
	if r, ok := w.Running(); ok {
		v.Pace = &r.PaceMinPerKm
		v.Cadence = &r.CadenceSpm
	}
	if c, ok := w.Cycling(); ok {
		v.Speed = &c.SpeedKmPerH
		v.Elevation = &c.ElevationGainM
	}
	return json.Marshal(v)
}
