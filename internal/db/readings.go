package db

import (
	"context"
	"errors"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgx/v4"
)

const readingColumns = `
	id,
	device_id,
	record_number,
	timestamp,
	value,
	unit,
	created_at`

// WithDeviceLock runs fn in a single transaction that holds a
// transaction-scoped advisory lock on deviceID. Concurrent callers for the same
// device are serialized; callers for different devices proceed in parallel.
// Everything fn inserts commits atomically when fn returns nil.
func (db *DB) WithDeviceLock(ctx context.Context, deviceID string, fn func(tx ReadingTx) error) error {
	const name = "DB:WithDeviceLock"
	return db.inTx(ctx, name, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, deviceID); err != nil {
			return wrap(name, ErrSelectFailed, deviceNotFound, err)
		}
		return fn(&readingTx{tx: tx})
	})
}

type readingTx struct {
	tx pgx.Tx
}

func (r *readingTx) ExistingKeys(ctx context.Context, deviceID string, recordNumbers, timestamps []int64) ([]ReadingKey, error) {
	const fn = "DB:ExistingKeys"
	keys := []ReadingKey{}
	err := pgxscan.Select(ctx, r.tx, &keys, `
		SELECT
			record_number,
			timestamp
		FROM readings
		WHERE device_id = $1
		AND (record_number = ANY($2) OR timestamp = ANY($3))
	`, deviceID, recordNumbers, timestamps)
	if err != nil {
		return nil, wrap(fn, ErrSelectFailed, deviceNotFound, err)
	}
	return keys, nil
}

func (r *readingTx) InsertReadings(ctx context.Context, readings []Reading) ([]Reading, error) {
	const fn = "DB:InsertReadings"
	inserted := make([]Reading, 0, len(readings))
	for _, reading := range readings {
		err := r.tx.QueryRow(ctx, `
			INSERT INTO readings (
				device_id,
				record_number,
				timestamp,
				value,
				unit
			) VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT DO NOTHING
			RETURNING id, created_at
		`, reading.DeviceID, reading.RecordNumber, reading.Timestamp, reading.Value, reading.Unit).
			Scan(&reading.ID, &reading.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, wrap(fn, ErrInsertFailed, deviceNotFound, err)
		}
		inserted = append(inserted, reading)
	}
	return inserted, nil
}

// LatestReading returns nil when the device has no readings.
func (db *DB) LatestReading(ctx context.Context, deviceID string) (*Reading, error) {
	const fn = "DB:LatestReading"
	var readings []Reading
	err := pgxscan.Select(ctx, db.pool, &readings, `
		SELECT `+readingColumns+`
		FROM readings
		WHERE device_id = $1
		ORDER BY record_number DESC, timestamp DESC
		LIMIT 1
	`, deviceID)
	if err != nil {
		return nil, wrap(fn, ErrSelectFailed, deviceNotFound, err)
	}
	if len(readings) == 0 {
		return nil, nil
	}
	return &readings[0], nil
}

func (db *DB) ListReadings(ctx context.Context, deviceID string) ([]Reading, error) {
	const fn = "DB:ListReadings"
	readings := []Reading{}
	err := pgxscan.Select(ctx, db.pool, &readings, `
		SELECT `+readingColumns+`
		FROM readings
		WHERE device_id = $1
		ORDER BY record_number DESC, timestamp DESC
	`, deviceID)
	if err != nil {
		return nil, wrap(fn, ErrSelectFailed, deviceNotFound, err)
	}
	return readings, nil
}
