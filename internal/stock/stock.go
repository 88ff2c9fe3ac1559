// Package stock keeps the inventory of manufactured devices that have not
// necessarily been registered yet.
package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"iot-ingest-backend/internal/apperr"
	"iot-ingest-backend/internal/db"
)

var ErrStockFailed = errors.New("stock operation failed")

type store interface {
	CreateStockDevice(ctx context.Context, s db.StockDevice) (db.StockDevice, error)
	ListStockDevices(ctx context.Context) ([]db.StockDevice, error)
	GetStockDevice(ctx context.Context, serialNumber string) (db.StockDevice, error)
	GetStockDeviceByDeviceID(ctx context.Context, deviceID string) (db.StockDevice, error)
	UpdateStockDevice(ctx context.Context, serialNumber string, lotNo, companyName *string) (db.StockDevice, error)
	DeleteStockDevice(ctx context.Context, serialNumber string) error
}

type Config struct {
	Store store
}

type Service struct {
	store store
}

func New(cfg Config) *Service {
	return &Service{store: cfg.Store}
}

func (s *Service) Create(ctx context.Context, in db.StockDevice) (db.StockDevice, error) {
	const fn = "Stock:Create"
	in.SerialNumber = strings.TrimSpace(in.SerialNumber)
	in.DeviceID = strings.TrimSpace(in.DeviceID)
	if in.SerialNumber == "" || in.DeviceID == "" {
		return db.StockDevice{}, fmt.Errorf("%s:%w", fn, apperr.New(apperr.ErrInvalidArgument, "serialNumber and deviceId are required"))
	}
	created, err := s.store.CreateStockDevice(ctx, in)
	if err != nil {
		return db.StockDevice{}, fmt.Errorf("%s:%w:%w", fn, ErrStockFailed, err)
	}
	return created, nil
}

// List returns the inventory, newest first.
func (s *Service) List(ctx context.Context) ([]db.StockDevice, error) {
	items, err := s.store.ListStockDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("Stock:List:%w:%w", ErrStockFailed, err)
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, serialNumber string) (db.StockDevice, error) {
	item, err := s.store.GetStockDevice(ctx, serialNumber)
	if err != nil {
		return db.StockDevice{}, fmt.Errorf("Stock:Get:%w", err)
	}
	return item, nil
}

func (s *Service) GetByDeviceID(ctx context.Context, deviceID string) (db.StockDevice, error) {
	item, err := s.store.GetStockDeviceByDeviceID(ctx, deviceID)
	if err != nil {
		return db.StockDevice{}, fmt.Errorf("Stock:GetByDeviceID:%w", err)
	}
	return item, nil
}

// Update changes the lot number and company name; nil leaves a field as is.
func (s *Service) Update(ctx context.Context, serialNumber string, lotNo, companyName *string) (db.StockDevice, error) {
	item, err := s.store.UpdateStockDevice(ctx, serialNumber, lotNo, companyName)
	if err != nil {
		return db.StockDevice{}, fmt.Errorf("Stock:Update:%w:%w", ErrStockFailed, err)
	}
	return item, nil
}

func (s *Service) Delete(ctx context.Context, serialNumber string) error {
	if err := s.store.DeleteStockDevice(ctx, serialNumber); err != nil {
		return fmt.Errorf("Stock:Delete:%w:%w", ErrStockFailed, err)
	}
	return nil
}
