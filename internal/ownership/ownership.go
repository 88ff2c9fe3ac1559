// Package ownership tracks the single current owner of a device.
package ownership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"iot-ingest-backend/internal/apperr"
	"iot-ingest-backend/internal/db"
)

var ErrOwnershipFailed = errors.New("ownership update failed")

type store interface {
	GetDevice(ctx context.Context, deviceID string) (db.Device, error)
	GetUser(ctx context.Context, id string) (db.User, error)
	AssignOwner(ctx context.Context, deviceID, userID string) (db.Device, error)
	UnassignOwner(ctx context.Context, deviceID string) (db.Device, error)
	ListDevicesByUser(ctx context.Context, userID string) ([]db.Device, error)
}

type Config struct {
	Store store
}

type Ledger struct {
	store store
}

func New(cfg Config) *Ledger {
	return &Ledger{store: cfg.Store}
}

// Assign sets the owner of an unowned device. A device that already has an
// owner must be unassigned first.
func (l *Ledger) Assign(ctx context.Context, deviceID, userID string) (db.Device, error) {
	const fn = "Ownership:Assign"
	if strings.TrimSpace(deviceID) == "" || strings.TrimSpace(userID) == "" {
		return db.Device{}, fmt.Errorf("%s:%w", fn, apperr.New(apperr.ErrInvalidArgument, "deviceId and userId are required"))
	}
	if _, err := l.store.GetDevice(ctx, deviceID); err != nil {
		return db.Device{}, fmt.Errorf("%s:%w", fn, err)
	}
	if _, err := l.store.GetUser(ctx, userID); err != nil {
		return db.Device{}, fmt.Errorf("%s:%w", fn, err)
	}
	d, err := l.store.AssignOwner(ctx, deviceID, userID)
	if err != nil {
		return db.Device{}, fmt.Errorf("%s:%w:%w", fn, ErrOwnershipFailed, err)
	}
	slog.InfoContext(ctx, "Device assigned", "device_id", deviceID, "user_id", userID)
	return d, nil
}

// Unassign clears the owner. Unassigning an unowned device succeeds.
func (l *Ledger) Unassign(ctx context.Context, deviceID string) (db.Device, error) {
	const fn = "Ownership:Unassign"
	d, err := l.store.UnassignOwner(ctx, deviceID)
	if err != nil {
		return db.Device{}, fmt.Errorf("%s:%w:%w", fn, ErrOwnershipFailed, err)
	}
	slog.InfoContext(ctx, "Device unassigned", "device_id", deviceID)
	return d, nil
}

// DevicesForUser lists the user's devices. An unknown user has none.
func (l *Ledger) DevicesForUser(ctx context.Context, userID string) ([]db.Device, error) {
	devices, err := l.store.ListDevicesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Ownership:DevicesForUser:%w", err)
	}
	return devices, nil
}

// OwnerOf returns nil when the device has no owner.
func (l *Ledger) OwnerOf(ctx context.Context, deviceID string) (*db.User, error) {
	const fn = "Ownership:OwnerOf"
	d, err := l.store.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", fn, err)
	}
	if d.UserID == nil {
		return nil, nil
	}
	u, err := l.store.GetUser(ctx, *d.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", fn, err)
	}
	return &u, nil
}
