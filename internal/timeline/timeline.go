// Package timeline answers read queries over a device's readings.
package timeline

import (
	"context"
	"errors"
	"fmt"

	"iot-ingest-backend/internal/db"
)

var ErrReadFailed = errors.New("read readings failed")

type store interface {
	GetDeviceBySerial(ctx context.Context, serialNumber string) (db.Device, error)
	LatestReading(ctx context.Context, deviceID string) (*db.Reading, error)
	ListReadings(ctx context.Context, deviceID string) ([]db.Reading, error)
}

type latestCache interface {
	Get(ctx context.Context, deviceID string) (*db.Reading, bool)
	Set(ctx context.Context, deviceID string, reading db.Reading)
}

type Config struct {
	Store store
	Cache latestCache
}

type Timeline struct {
	store store
	cache latestCache
}

func New(cfg Config) *Timeline {
	return &Timeline{store: cfg.Store, cache: cfg.Cache}
}

// Latest returns the reading with the highest record number, ties broken by
// the later timestamp, or nil when the device has no readings.
func (t *Timeline) Latest(ctx context.Context, serialNumber string) (*db.Reading, error) {
	const fn = "Timeline:Latest"
	device, err := t.store.GetDeviceBySerial(ctx, serialNumber)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", fn, err)
	}
	if t.cache != nil {
		if reading, ok := t.cache.Get(ctx, device.DeviceID); ok {
			return reading, nil
		}
	}
	reading, err := t.store.LatestReading(ctx, device.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrReadFailed, err)
	}
	if reading != nil && t.cache != nil {
		t.cache.Set(ctx, device.DeviceID, *reading)
	}
	return reading, nil
}

// Records returns every reading of the device, newest record number first.
func (t *Timeline) Records(ctx context.Context, serialNumber string) ([]db.Reading, error) {
	const fn = "Timeline:Records"
	device, err := t.store.GetDeviceBySerial(ctx, serialNumber)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", fn, err)
	}
	readings, err := t.store.ListReadings(ctx, device.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrReadFailed, err)
	}
	return readings, nil
}
