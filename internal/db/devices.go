package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgx/v4"

	"iot-ingest-backend/internal/apperr"
)

const deviceColumns = `
	device_id,
	serial_number,
	model,
	name,
	active,
	user_id,
	current_value,
	current_unit,
	current_at,
	current_record_number,
	created_at,
	updated_at`

const deviceNotFound = "device not found"

// CreateDevice inserts d unless a device with the same DeviceID exists, in
// which case the stored device is returned with created=false.
func (db *DB) CreateDevice(ctx context.Context, d Device) (Device, bool, error) {
	const fn = "DB:CreateDevice"
	var created Device
	err := pgxscan.Get(ctx, db.pool, &created, `
		INSERT INTO devices (
			device_id,
			serial_number,
			model,
			name,
			user_id
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (device_id) DO NOTHING
		RETURNING `+deviceColumns,
		d.DeviceID, d.SerialNumber, d.Model, d.Name, d.UserID)
	if err == nil {
		return created, true, nil
	}
	if !pgxscan.NotFound(err) && !errors.Is(err, pgx.ErrNoRows) {
		return Device{}, false, wrap(fn, ErrInsertFailed, deviceNotFound, err)
	}

	existing, err := db.GetDevice(ctx, d.DeviceID)
	if err != nil {
		return Device{}, false, fmt.Errorf("%s:%w", fn, err)
	}
	return existing, false, nil
}

func (db *DB) GetDevice(ctx context.Context, deviceID string) (Device, error) {
	const fn = "DB:GetDevice"
	var d Device
	err := pgxscan.Get(ctx, db.pool, &d, `SELECT `+deviceColumns+` FROM devices WHERE device_id = $1`, deviceID)
	if err != nil {
		return Device{}, wrap(fn, ErrSelectFailed, deviceNotFound, err)
	}
	return d, nil
}

func (db *DB) GetDeviceBySerial(ctx context.Context, serialNumber string) (Device, error) {
	const fn = "DB:GetDeviceBySerial"
	var d Device
	err := pgxscan.Get(ctx, db.pool, &d, `SELECT `+deviceColumns+` FROM devices WHERE serial_number = $1`, serialNumber)
	if err != nil {
		return Device{}, wrap(fn, ErrSelectFailed, deviceNotFound, err)
	}
	return d, nil
}

func (db *DB) ListDevices(ctx context.Context, offset, limit int) ([]Device, error) {
	const fn = "DB:ListDevices"
	devices := []Device{}
	err := pgxscan.Select(ctx, db.pool, &devices, `
		SELECT `+deviceColumns+`
		FROM devices
		ORDER BY created_at ASC, device_id ASC
		OFFSET $1
		LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, wrap(fn, ErrSelectFailed, deviceNotFound, err)
	}
	return devices, nil
}

func (db *DB) CountDevices(ctx context.Context) (int, error) {
	const fn = "DB:CountDevices"
	var count int
	if err := db.pool.QueryRow(ctx, `SELECT count(*) FROM devices`).Scan(&count); err != nil {
		return 0, wrap(fn, ErrSelectFailed, deviceNotFound, err)
	}
	return count, nil
}

func (db *DB) ListDevicesByUser(ctx context.Context, userID string) ([]Device, error) {
	const fn = "DB:ListDevicesByUser"
	devices := []Device{}
	err := pgxscan.Select(ctx, db.pool, &devices, `
		SELECT `+deviceColumns+`
		FROM devices
		WHERE user_id = $1
		ORDER BY created_at ASC, device_id ASC
	`, userID)
	if err != nil {
		return nil, wrap(fn, ErrSelectFailed, deviceNotFound, err)
	}
	return devices, nil
}

func (db *DB) updateDevice(ctx context.Context, fn, set, deviceID string, args ...any) (Device, error) {
	var d Device
	err := pgxscan.Get(ctx, db.pool, &d, `
		UPDATE devices
		SET `+set+`, updated_at = now()
		WHERE device_id = $1
		RETURNING `+deviceColumns,
		append([]any{deviceID}, args...)...)
	if err != nil {
		return Device{}, wrap(fn, ErrUpdateFailed, deviceNotFound, err)
	}
	return d, nil
}

func (db *DB) UpdateDeviceName(ctx context.Context, deviceID, name string) (Device, error) {
	return db.updateDevice(ctx, "DB:UpdateDeviceName", "name = $2", deviceID, name)
}

func (db *DB) UpdateDeviceSerial(ctx context.Context, deviceID, serialNumber string) (Device, error) {
	return db.updateDevice(ctx, "DB:UpdateDeviceSerial", "serial_number = $2", deviceID, serialNumber)
}

func (db *DB) UpdateDeviceValue(ctx context.Context, deviceID string, value float64, at time.Time) (Device, error) {
	return db.updateDevice(ctx, "DB:UpdateDeviceValue", "current_value = $2, current_at = $3", deviceID, value, at)
}

func (db *DB) UpdateDeviceUnit(ctx context.Context, deviceID, unit string, at time.Time) (Device, error) {
	return db.updateDevice(ctx, "DB:UpdateDeviceUnit", "current_unit = $2, current_at = $3", deviceID, unit, at)
}

// UpdateLastReading copies r into the device's current value fields unless the
// device already holds a reading with an equal or higher record number.
func (db *DB) UpdateLastReading(ctx context.Context, deviceID string, r Reading) (bool, error) {
	const fn = "DB:UpdateLastReading"
	tag, err := db.pool.Exec(ctx, `
		UPDATE devices
		SET current_value = $2,
			current_unit = $3,
			current_at = $4,
			current_record_number = $5,
			updated_at = now()
		WHERE device_id = $1
		AND (current_record_number IS NULL OR current_record_number < $5)
	`, deviceID, r.Value, r.Unit, time.UnixMilli(r.Timestamp).UTC(), r.RecordNumber)
	if err != nil {
		return false, wrap(fn, ErrUpdateFailed, deviceNotFound, err)
	}
	return tag.RowsAffected() == 1, nil
}

// AssignOwner sets the owner only if the device currently has none.
func (db *DB) AssignOwner(ctx context.Context, deviceID, userID string) (Device, error) {
	const fn = "DB:AssignOwner"
	var d Device
	err := pgxscan.Get(ctx, db.pool, &d, `
		UPDATE devices
		SET user_id = $2, updated_at = now()
		WHERE device_id = $1
		AND user_id IS NULL
		RETURNING `+deviceColumns,
		deviceID, userID)
	if err == nil {
		return d, nil
	}
	if !pgxscan.NotFound(err) && !errors.Is(err, pgx.ErrNoRows) {
		return Device{}, wrap(fn, ErrUpdateFailed, deviceNotFound, err)
	}
	if _, err := db.GetDevice(ctx, deviceID); err != nil {
		return Device{}, fmt.Errorf("%s:%w", fn, err)
	}
	return Device{}, fmt.Errorf("%s:%w", fn, apperr.New(apperr.ErrConflict, "device is already assigned to a user"))
}

func (db *DB) UnassignOwner(ctx context.Context, deviceID string) (Device, error) {
	return db.updateDevice(ctx, "DB:UnassignOwner", "user_id = NULL", deviceID)
}

// DeleteDevice removes the device with the given serial number together with
// all of its readings.
func (db *DB) DeleteDevice(ctx context.Context, serialNumber string) error {
	const fn = "DB:DeleteDevice"
	return db.inTx(ctx, fn, func(tx pgx.Tx) error {
		var deviceID string
		err := tx.QueryRow(ctx, `SELECT device_id FROM devices WHERE serial_number = $1 FOR UPDATE`, serialNumber).Scan(&deviceID)
		if err != nil {
			return wrap(fn, ErrSelectFailed, deviceNotFound, err)
		}
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, deviceID); err != nil {
			return wrap(fn, ErrDeleteFailed, deviceNotFound, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM readings WHERE device_id = $1`, deviceID); err != nil {
			return wrap(fn, ErrDeleteFailed, deviceNotFound, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM devices WHERE device_id = $1`, deviceID); err != nil {
			return wrap(fn, ErrDeleteFailed, deviceNotFound, err)
		}
		return nil
	})
}
