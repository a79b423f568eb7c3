// Package upload pushes workouts saved by the browser client to a Mapty server.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/claude/mapty/internal/codec"
	"github.com/claude/mapty/internal/models"
	"github.com/klauspost/compress/gzip"
)

// Sender delivers one workout record.
type Sender interface {
	SendWorkout(ctx context.Context, rec codec.Record) error
}

// Stats tracks upload progress.
type Stats struct {
	Records  int
	Dropped  int
	Sent     int
	Rejected int
	Errored  int
}

// Uploader decodes a localStorage export and sends each workout.
type Uploader struct {
	client Sender
	codec  *codec.Codec
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader. client may be nil in dry-run mode.
func New(client Sender, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		codec:  codec.New(models.NewIDAllocator(), log),
		dryRun: dryRun,
		log:    log,
	}
}

// ReadExport reads an export file, gunzipping it when the name ends in .gz.
func ReadExport(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening export: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzip export %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading export %s: %w", path, err)
	}
	return data, nil
}

// Run sends every valid workout in blob. Malformed records are counted and
// skipped; a blob that is not a JSON array is an error.
func (u *Uploader) Run(ctx context.Context, blob []byte) (*Stats, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(blob, &raw); err != nil {
		return &u.stats, fmt.Errorf("export is not a workout list: %w", err)
	}
	u.stats.Records = len(raw)

	records := codec.Encode(u.codec.Unmarshal(blob))
	u.stats.Dropped = u.stats.Records - len(records)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return &u.stats, err
		}
		rec.ID = 0

		if u.dryRun {
			u.log.Info("dry run: would send", "type", rec.Type, "date", rec.Date)
			continue
		}

		err := u.client.SendWorkout(ctx, rec)
		switch {
		case err == nil:
			u.stats.Sent++
		case errors.Is(err, ErrRejected):
			u.stats.Rejected++
			u.log.Warn("workout rejected", "type", rec.Type, "date", rec.Date, "error", err)
		default:
			u.stats.Errored++
			u.log.Error("workout upload failed", "type", rec.Type, "date", rec.Date, "error", err)
		}
	}

	if u.stats.Errored > 0 {
		return &u.stats, fmt.Errorf("%d workouts failed to upload", u.stats.Errored)
	}
	return &u.stats, nil
}
