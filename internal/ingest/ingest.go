// Package ingest accepts batches of device readings and stores exactly the
// ones that are new for the device.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"iot-ingest-backend/internal/apperr"
	"iot-ingest-backend/internal/db"
)

var (
	ErrDeviceLookupFailed = errors.New("device lookup failed")
	ErrIngestFailed       = errors.New("ingest failed")
)

type store interface {
	GetDeviceBySerial(ctx context.Context, serialNumber string) (db.Device, error)
	WithDeviceLock(ctx context.Context, deviceID string, fn func(tx db.ReadingTx) error) error
	LatestReading(ctx context.Context, deviceID string) (*db.Reading, error)
}

// latestCache keeps the newer of the cached and the offered reading.
type latestCache interface {
	Set(ctx context.Context, deviceID string, reading db.Reading)
	Delete(ctx context.Context, deviceID string)
}

type publisher interface {
	PublishReadings(ctx context.Context, device db.Device, readings []db.Reading) error
}

type Config struct {
	Store store
	// Cache and Publisher are optional.
	Cache     latestCache
	Publisher publisher
}

type Reconciler struct {
	store     store
	cache     latestCache
	publisher publisher
}

func New(cfg Config) *Reconciler {
	return &Reconciler{
		store:     cfg.Store,
		cache:     cfg.Cache,
		publisher: cfg.Publisher,
	}
}

func validate(fn string, candidates []Candidate) error {
	for i, c := range candidates {
		switch {
		case math.IsNaN(c.Value) || math.IsInf(c.Value, 0):
			return fmt.Errorf("%s:%w", fn, apperr.New(apperr.ErrInvalidArgument, fmt.Sprintf("record %d: value must be a finite number", i)))
		case c.RecordNumber < 0:
			return fmt.Errorf("%s:%w", fn, apperr.New(apperr.ErrInvalidArgument, fmt.Sprintf("record %d: recordNumber must not be negative", i)))
		case c.Timestamp.IsZero():
			return fmt.Errorf("%s:%w", fn, apperr.New(apperr.ErrInvalidArgument, fmt.Sprintf("record %d: timestamp is required", i)))
		}
	}
	return nil
}

// IngestBatch stores the new readings among candidates for the device with
// the given serial number and returns how many were stored. A batch whose
// readings are all duplicates stores nothing and is not an error.
func (r *Reconciler) IngestBatch(ctx context.Context, serialNumber string, candidates []Candidate) (int, error) {
	inserted, err := r.ingest(ctx, "Ingest:IngestBatch", serialNumber, candidates)
	if err != nil {
		return 0, err
	}
	return len(inserted), nil
}

// IngestOne runs a single reading through the same deduplication as a batch.
// accepted is false when the reading was a duplicate.
func (r *Reconciler) IngestOne(ctx context.Context, serialNumber string, c Candidate) (db.Reading, bool, error) {
	inserted, err := r.ingest(ctx, "Ingest:IngestOne", serialNumber, []Candidate{c})
	if err != nil {
		return db.Reading{}, false, err
	}
	if len(inserted) == 0 {
		return db.Reading{}, false, nil
	}
	return inserted[0], true, nil
}

func (r *Reconciler) ingest(ctx context.Context, fn, serialNumber string, candidates []Candidate) ([]db.Reading, error) {
	if err := validate(fn, candidates); err != nil {
		return nil, err
	}
	device, err := r.store.GetDeviceBySerial(ctx, serialNumber)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrDeviceLookupFailed, err)
	}
	if len(candidates) == 0 {
		return []db.Reading{}, nil
	}

	recordNumbers := make([]int64, 0, len(candidates))
	timestamps := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		recordNumbers = append(recordNumbers, c.RecordNumber)
		timestamps = append(timestamps, Normalize(c.Timestamp))
	}

	var inserted []db.Reading
	err = r.store.WithDeviceLock(ctx, device.DeviceID, func(tx db.ReadingTx) error {
		existing, err := tx.ExistingKeys(ctx, device.DeviceID, recordNumbers, timestamps)
		if err != nil {
			return err
		}
		accepted := Reconcile(device.DeviceID, existing, candidates)
		if len(accepted) == 0 {
			inserted = []db.Reading{}
			return nil
		}
		inserted, err = tx.InsertReadings(ctx, accepted)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrIngestFailed, err)
	}

	slog.InfoContext(ctx, "Readings ingested",
		"device_id", device.DeviceID,
		"serial_number", device.SerialNumber,
		"accepted", len(inserted),
		"skipped", len(candidates)-len(inserted),
	)
	if len(inserted) > 0 {
		r.afterCommit(ctx, device, inserted)
	}
	return inserted, nil
}

// afterCommit runs the side effects of an accepted batch. Neither may fail
// the ingest; the readings are already stored.
func (r *Reconciler) afterCommit(ctx context.Context, device db.Device, inserted []db.Reading) {
	if r.cache != nil {
		r.refreshLatest(ctx, device.DeviceID)
	}
	if r.publisher != nil {
		if err := r.publisher.PublishReadings(ctx, device, inserted); err != nil {
			slog.ErrorContext(ctx, "Error publishing accepted readings", "device_id", device.DeviceID, "error", err)
		}
	}
}

// refreshLatest offers the stored latest reading to the cache. A batch may
// backfill below the current latest, so the store decides, not the batch.
func (r *Reconciler) refreshLatest(ctx context.Context, deviceID string) {
	latest, err := r.store.LatestReading(ctx, deviceID)
	if err != nil {
		slog.ErrorContext(ctx, "Error refreshing latest reading cache", "device_id", deviceID, "error", err)
		r.cache.Delete(ctx, deviceID)
		return
	}
	if latest != nil {
		r.cache.Set(ctx, deviceID, *latest)
	}
}
