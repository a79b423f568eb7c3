// Package codec flattens workouts into tagged records for blob storage and
// rebuilds genuine workout variants from them.
package codec

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/observability"
)

// Record is the stored form of one workout. Derived fields (description, pace,
// speed) are never stored; they are recomputed on decode.
type Record struct {
	ID        int64       `json:"id,omitempty"`
	Type      models.Kind `json:"type"`
	Coords    []float64   `json:"coords"`
	Distance  *float64    `json:"distance"`
	Duration  *float64    `json:"duration"`
	Cadence   *float64    `json:"cadence,omitempty"`
	Elevation *float64    `json:"elevation,omitempty"`
	Date      string      `json:"date,omitempty"`
}

// Encode converts workouts to records, keeping their order.
func Encode(workouts []models.Workout) []Record {
	records := make([]Record, 0, len(workouts))
	for _, w := range workouts {
		c := w.Coords()
		dist, dur := w.DistanceKm(), w.DurationMin()
		rec := Record{
			ID:       w.ID(),
			Type:     w.Kind(),
			Coords:   []float64{c.Lat, c.Lng},
			Distance: &dist,
			Duration: &dur,
			Date:     w.OccurredAt().UTC().Format(time.RFC3339Nano),
		}
		if r, ok := w.Running(); ok {
			cadence := r.CadenceSpm
			rec.Cadence = &cadence
		}
		if cy, ok := w.Cycling(); ok {
			elevation := cy.ElevationGainM
			rec.Elevation = &elevation
		}
		records = append(records, rec)
	}
	return records
}

// Marshal encodes workouts to the JSON text kept in the blob store.
func Marshal(workouts []models.Workout) ([]byte, error) {
	data, err := json.Marshal(Encode(workouts))
	if err != nil {
		return nil, fmt.Errorf("marshaling workouts: %w", err)
	}
	return data, nil
}

// Codec rebuilds workouts from records. IDs come from the shared allocator.
type Codec struct {
	ids *models.IDAllocator
	log *slog.Logger
}

// New creates a Codec drawing IDs from ids.
func New(ids *models.IDAllocator, log *slog.Logger) *Codec {
	return &Codec{ids: ids, log: log}
}

type builder func(ids *models.IDAllocator, rec Record, coords models.Coordinates, opts []models.Option) (models.Workout, error)

var builders = map[models.Kind]builder{
	models.KindRunning: func(ids *models.IDAllocator, rec Record, coords models.Coordinates, opts []models.Option) (models.Workout, error) {
		if rec.Cadence == nil {
			return models.Workout{}, errMissing("cadence")
		}
		return models.NewRunning(ids, coords, *rec.Distance, *rec.Duration, *rec.Cadence, opts...)
	},
	models.KindCycling: func(ids *models.IDAllocator, rec Record, coords models.Coordinates, opts []models.Option) (models.Workout, error) {
		if rec.Elevation == nil {
			return models.Workout{}, errMissing("elevation")
		}
		return models.NewCycling(ids, coords, *rec.Distance, *rec.Duration, *rec.Elevation, opts...)
	},
}

// Decode rebuilds workouts from records. Records that cannot be rebuilt are
// logged and skipped; the rest are returned in their stored order.
func (c *Codec) Decode(records []Record) []models.Workout {
	workouts := make([]models.Workout, 0, len(records))
	for i, rec := range records {
		w, reason, err := c.decodeOne(rec)
		if err != nil {
			observability.RecordDropped(reason)
			c.log.Warn("dropping stored workout", "index", i, "type", rec.Type, "reason", reason, "error", err)
			continue
		}
		workouts = append(workouts, w)
	}
	return workouts
}

func (c *Codec) decodeOne(rec Record) (models.Workout, string, error) {
	build, ok := builders[rec.Type]
	if !ok {
		return models.Workout{}, "unknown_kind", fmt.Errorf("unknown workout type %q", rec.Type)
	}
	if len(rec.Coords) != 2 {
		return models.Workout{}, "missing_field", errMissing("coords")
	}
	if rec.Distance == nil {
		return models.Workout{}, "missing_field", errMissing("distance")
	}
	if rec.Duration == nil {
		return models.Workout{}, "missing_field", errMissing("duration")
	}

	var opts []models.Option
	if rec.Date != "" {
		at, err := time.Parse(time.RFC3339Nano, rec.Date)
		if err != nil {
			return models.Workout{}, "bad_date", fmt.Errorf("parsing date: %w", err)
		}
		opts = append(opts, models.At(at.Local()))
	}
	if rec.ID > 0 {
		opts = append(opts, models.WithID(rec.ID))
	}

	coords := models.Coordinates{Lat: rec.Coords[0], Lng: rec.Coords[1]}
	w, err := build(c.ids, rec, coords, opts)
	if err != nil {
		return models.Workout{}, "invalid", err
	}
	return w, "", nil
}

// Unmarshal decodes the JSON text from the blob store. Empty or unreadable
// data yields no workouts.
func (c *Codec) Unmarshal(data []byte) []models.Workout {
	if len(data) == 0 {
		return []models.Workout{}
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		c.log.Warn("ignoring unreadable workout data", "error", err)
		return []models.Workout{}
	}

	records := make([]Record, 0, len(raw))
	for i, msg := range raw {
		var rec Record
		if err := json.Unmarshal(msg, &rec); err != nil {
			observability.RecordDropped("unreadable")
			c.log.Warn("dropping stored workout", "index", i, "reason", "unreadable", "error", err)
			continue
		}
		records = append(records, rec)
	}
	return c.Decode(records)
}

func errMissing(field string) error {
	return fmt.Errorf("missing field %q", field)
}
