// Package registry owns device identity records.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"iot-ingest-backend/internal/apperr"
	"iot-ingest-backend/internal/db"
)

const (
	DefaultPage        = 1
	DefaultPageSize    = 10
	DefaultMaxPageSize = 500
)

var (
	ErrRegisterFailed = errors.New("register device failed")
	ErrUpdateFailed   = errors.New("update device failed")
	ErrListFailed     = errors.New("list devices failed")
	ErrDeleteFailed   = errors.New("delete device failed")
)

type store interface {
	CreateDevice(ctx context.Context, d db.Device) (db.Device, bool, error)
	GetDevice(ctx context.Context, deviceID string) (db.Device, error)
	GetDeviceBySerial(ctx context.Context, serialNumber string) (db.Device, error)
	ListDevices(ctx context.Context, offset, limit int) ([]db.Device, error)
	CountDevices(ctx context.Context) (int, error)
	UpdateDeviceName(ctx context.Context, deviceID, name string) (db.Device, error)
	UpdateDeviceSerial(ctx context.Context, deviceID, serialNumber string) (db.Device, error)
	UpdateDeviceValue(ctx context.Context, deviceID string, value float64, at time.Time) (db.Device, error)
	UpdateDeviceUnit(ctx context.Context, deviceID, unit string, at time.Time) (db.Device, error)
	DeleteDevice(ctx context.Context, serialNumber string) error
}

type invalidator interface {
	Delete(ctx context.Context, deviceID string)
}

type Config struct {
	Store       store
	MaxPageSize int
	// Optional. Cleared for a device when it is deleted.
	Cache invalidator
}

type Registry struct {
	store       store
	cache       invalidator
	maxPageSize int
	now         func() time.Time
}

func New(cfg Config) *Registry {
	maxPageSize := cfg.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	return &Registry{
		store:       cfg.Store,
		cache:       cfg.Cache,
		maxPageSize: maxPageSize,
		now:         time.Now,
	}
}

type RegisterInput struct {
	SerialNumber string
	Model        string
	DeviceID     string
	UserID       *string
	Name         string
}

type Page struct {
	Items      []db.Device
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

func invalid(fn, msg string) error {
	return fmt.Errorf("%s:%w", fn, apperr.New(apperr.ErrInvalidArgument, msg))
}

// Register creates the device, or returns the stored one with created=false
// when the device id is already known.
func (r *Registry) Register(ctx context.Context, in RegisterInput) (db.Device, bool, error) {
	const fn = "Registry:Register"
	in.SerialNumber = strings.TrimSpace(in.SerialNumber)
	in.DeviceID = strings.TrimSpace(in.DeviceID)
	switch {
	case in.SerialNumber == "":
		return db.Device{}, false, invalid(fn, "serialNumber is required")
	case in.Model == "":
		return db.Device{}, false, invalid(fn, "model is required")
	case in.DeviceID == "":
		return db.Device{}, false, invalid(fn, "deviceId is required")
	}
	if in.UserID != nil && *in.UserID == "" {
		in.UserID = nil
	}

	d, created, err := r.store.CreateDevice(ctx, db.Device{
		DeviceID:     in.DeviceID,
		SerialNumber: in.SerialNumber,
		Model:        in.Model,
		Name:         in.Name,
		UserID:       in.UserID,
	})
	if err != nil {
		return db.Device{}, false, fmt.Errorf("%s:%w:%w", fn, ErrRegisterFailed, err)
	}
	if created {
		slog.InfoContext(ctx, "Device registered", "device_id", d.DeviceID, "serial_number", d.SerialNumber)
	}
	return d, created, nil
}

func (r *Registry) FindBySerial(ctx context.Context, serialNumber string) (db.Device, error) {
	d, err := r.store.GetDeviceBySerial(ctx, serialNumber)
	if err != nil {
		return db.Device{}, fmt.Errorf("Registry:FindBySerial:%w", err)
	}
	return d, nil
}

func (r *Registry) Get(ctx context.Context, deviceID string) (db.Device, error) {
	d, err := r.store.GetDevice(ctx, deviceID)
	if err != nil {
		return db.Device{}, fmt.Errorf("Registry:Get:%w", err)
	}
	return d, nil
}

func (r *Registry) Rename(ctx context.Context, deviceID, name string) (db.Device, error) {
	const fn = "Registry:Rename"
	if strings.TrimSpace(name) == "" {
		return db.Device{}, invalid(fn, "name is required")
	}
	d, err := r.store.UpdateDeviceName(ctx, deviceID, name)
	if err != nil {
		return db.Device{}, fmt.Errorf("%s:%w:%w", fn, ErrUpdateFailed, err)
	}
	return d, nil
}

func (r *Registry) ChangeSerial(ctx context.Context, deviceID, serialNumber string) (db.Device, error) {
	const fn = "Registry:ChangeSerial"
	serialNumber = strings.TrimSpace(serialNumber)
	if serialNumber == "" {
		return db.Device{}, invalid(fn, "serialNumber is required")
	}
	d, err := r.store.UpdateDeviceSerial(ctx, deviceID, serialNumber)
	if err != nil {
		return db.Device{}, fmt.Errorf("%s:%w:%w", fn, ErrUpdateFailed, err)
	}
	slog.InfoContext(ctx, "Device serial changed", "device_id", deviceID, "serial_number", serialNumber)
	return d, nil
}

// UpdateLastValue overwrites the device's denormalized current value.
func (r *Registry) UpdateLastValue(ctx context.Context, deviceID string, value float64) (db.Device, error) {
	const fn = "Registry:UpdateLastValue"
	d, err := r.store.UpdateDeviceValue(ctx, deviceID, value, r.now().UTC())
	if err != nil {
		return db.Device{}, fmt.Errorf("%s:%w:%w", fn, ErrUpdateFailed, err)
	}
	return d, nil
}

func (r *Registry) UpdateUnit(ctx context.Context, deviceID, unit string) (db.Device, error) {
	const fn = "Registry:UpdateUnit"
	if strings.TrimSpace(unit) == "" {
		return db.Device{}, invalid(fn, "unit is required")
	}
	d, err := r.store.UpdateDeviceUnit(ctx, deviceID, unit, r.now().UTC())
	if err != nil {
		return db.Device{}, fmt.Errorf("%s:%w:%w", fn, ErrUpdateFailed, err)
	}
	return d, nil
}

// ListPage returns one page of devices. Non-positive page or pageSize fall
// back to the defaults and pageSize is capped at the configured maximum.
func (r *Registry) ListPage(ctx context.Context, page, pageSize int) (Page, error) {
	const fn = "Registry:ListPage"
	if page <= 0 {
		page = DefaultPage
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pageSize = min(pageSize, r.maxPageSize)

	total, err := r.store.CountDevices(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("%s:%w:%w", fn, ErrListFailed, err)
	}
	items, err := r.store.ListDevices(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return Page{}, fmt.Errorf("%s:%w:%w", fn, ErrListFailed, err)
	}
	return Page{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// Delete removes the device together with its readings.
func (r *Registry) Delete(ctx context.Context, serialNumber string) error {
	const fn = "Registry:Delete"
	d, err := r.store.GetDeviceBySerial(ctx, serialNumber)
	if err != nil {
		return fmt.Errorf("%s:%w", fn, err)
	}
	if err := r.store.DeleteDevice(ctx, serialNumber); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrDeleteFailed, err)
	}
	if r.cache != nil {
		r.cache.Delete(ctx, d.DeviceID)
	}
	slog.InfoContext(ctx, "Device deleted", "serial_number", serialNumber, "device_id", d.DeviceID)
	return nil
}
