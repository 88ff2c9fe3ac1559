// Package memstore is a process-local implementation of the storage the
// services consume. It backs the server when no database is configured and
// backs the service tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"iot-ingest-backend/internal/apperr"
	"iot-ingest-backend/internal/db"
)

type Store struct {
	mu            sync.RWMutex
	users         map[string]db.User
	devices       map[string]db.Device
	readings      map[string][]db.Reading
	stock         map[string]db.StockDevice
	nextReadingID int64

	locksMu sync.Mutex
	locks   map[string]*deviceLock

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:    make(map[string]db.User),
		devices:  make(map[string]db.Device),
		readings: make(map[string][]db.Reading),
		stock:    make(map[string]db.StockDevice),
		locks:    make(map[string]*deviceLock),
		now:      time.Now,
	}
}

func notFound(fn, msg string) error {
	return fmt.Errorf("%s:%w", fn, apperr.New(apperr.ErrNotFound, msg))
}

func conflict(fn, msg string) error {
	return fmt.Errorf("%s:%w", fn, apperr.New(apperr.ErrConflict, msg))
}

// Devices

func (s *Store) CreateDevice(ctx context.Context, d db.Device) (db.Device, bool, error) {
	const fn = "Memstore:CreateDevice"
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.devices[d.DeviceID]; ok {
		return existing, false, nil
	}
	if s.serialTaken(d.SerialNumber, "") {
		return db.Device{}, false, conflict(fn, "serial number already in use")
	}
	if d.UserID != nil {
		if _, ok := s.users[*d.UserID]; !ok {
			return db.Device{}, false, notFound(fn, "referenced record not found")
		}
	}
	now := s.now()
	d.Active = true
	d.CreatedAt = now
	d.UpdatedAt = now
	s.devices[d.DeviceID] = d
	return d, true, nil
}

func (s *Store) serialTaken(serial, exceptDeviceID string) bool {
	for id, d := range s.devices {
		if d.SerialNumber == serial && id != exceptDeviceID {
			return true
		}
	}
	return false
}

func (s *Store) GetDevice(ctx context.Context, deviceID string) (db.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return db.Device{}, notFound("Memstore:GetDevice", "device not found")
	}
	return d, nil
}

func (s *Store) GetDeviceBySerial(ctx context.Context, serialNumber string) (db.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.devices {
		if d.SerialNumber == serialNumber {
			return d, nil
		}
	}
	return db.Device{}, notFound("Memstore:GetDeviceBySerial", "device not found")
}

func (s *Store) sortedDevices(keep func(db.Device) bool) []db.Device {
	devices := make([]db.Device, 0, len(s.devices))
	for _, d := range s.devices {
		if keep(d) {
			devices = append(devices, d)
		}
	}
	sort.Slice(devices, func(i, j int) bool {
		if !devices[i].CreatedAt.Equal(devices[j].CreatedAt) {
			return devices[i].CreatedAt.Before(devices[j].CreatedAt)
		}
		return devices[i].DeviceID < devices[j].DeviceID
	})
	return devices
}

func (s *Store) ListDevices(ctx context.Context, offset, limit int) ([]db.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.sortedDevices(func(db.Device) bool { return true })
	if offset >= len(all) {
		return []db.Device{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (s *Store) CountDevices(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.devices), nil
}

func (s *Store) ListDevicesByUser(ctx context.Context, userID string) ([]db.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedDevices(func(d db.Device) bool {
		return d.UserID != nil && *d.UserID == userID
	}), nil
}

func (s *Store) updateDevice(fn, deviceID string, apply func(d *db.Device) error) (db.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return db.Device{}, notFound(fn, "device not found")
	}
	if err := apply(&d); err != nil {
		return db.Device{}, err
	}
	d.UpdatedAt = s.now()
	s.devices[deviceID] = d
	return d, nil
}

func (s *Store) UpdateDeviceName(ctx context.Context, deviceID, name string) (db.Device, error) {
	return s.updateDevice("Memstore:UpdateDeviceName", deviceID, func(d *db.Device) error {
		d.Name = name
		return nil
	})
}

func (s *Store) UpdateDeviceSerial(ctx context.Context, deviceID, serialNumber string) (db.Device, error) {
	const fn = "Memstore:UpdateDeviceSerial"
	return s.updateDevice(fn, deviceID, func(d *db.Device) error {
		if s.serialTaken(serialNumber, deviceID) {
			return conflict(fn, "serial number already in use")
		}
		d.SerialNumber = serialNumber
		return nil
	})
}

func (s *Store) UpdateDeviceValue(ctx context.Context, deviceID string, value float64, at time.Time) (db.Device, error) {
	return s.updateDevice("Memstore:UpdateDeviceValue", deviceID, func(d *db.Device) error {
		d.CurrentValue = &value
		d.CurrentAt = &at
		return nil
	})
}

func (s *Store) UpdateDeviceUnit(ctx context.Context, deviceID, unit string, at time.Time) (db.Device, error) {
	return s.updateDevice("Memstore:UpdateDeviceUnit", deviceID, func(d *db.Device) error {
		d.CurrentUnit = &unit
		d.CurrentAt = &at
		return nil
	})
}

func (s *Store) UpdateLastReading(ctx context.Context, deviceID string, r db.Reading) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return false, nil
	}
	if d.CurrentRecordNumber != nil && *d.CurrentRecordNumber >= r.RecordNumber {
		return false, nil
	}
	at := time.UnixMilli(r.Timestamp).UTC()
	value, unit, record := r.Value, r.Unit, r.RecordNumber
	d.CurrentValue, d.CurrentUnit, d.CurrentAt, d.CurrentRecordNumber = &value, &unit, &at, &record
	d.UpdatedAt = s.now()
	s.devices[deviceID] = d
	return true, nil
}

func (s *Store) AssignOwner(ctx context.Context, deviceID, userID string) (db.Device, error) {
	const fn = "Memstore:AssignOwner"
	return s.updateDevice(fn, deviceID, func(d *db.Device) error {
		if d.UserID != nil {
			return conflict(fn, "device is already assigned to a user")
		}
		if _, ok := s.users[userID]; !ok {
			return notFound(fn, "referenced record not found")
		}
		d.UserID = &userID
		return nil
	})
}

func (s *Store) UnassignOwner(ctx context.Context, deviceID string) (db.Device, error) {
	return s.updateDevice("Memstore:UnassignOwner", deviceID, func(d *db.Device) error {
		d.UserID = nil
		return nil
	})
}

func (s *Store) DeleteDevice(ctx context.Context, serialNumber string) error {
	const fn = "Memstore:DeleteDevice"
	d, err := s.GetDeviceBySerial(ctx, serialNumber)
	if err != nil {
		return fmt.Errorf("%s:%w", fn, err)
	}
	unlock := s.lockDevice(d.DeviceID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[d.DeviceID]; !ok {
		return notFound(fn, "device not found")
	}
	delete(s.readings, d.DeviceID)
	delete(s.devices, d.DeviceID)
	return nil
}
