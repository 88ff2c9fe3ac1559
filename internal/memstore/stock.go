package memstore

import (
	"context"
	"sort"

	"iot-ingest-backend/internal/db"
)

func (s *Store) CreateStockDevice(ctx context.Context, sd db.StockDevice) (db.StockDevice, error) {
	const fn = "Memstore:CreateStockDevice"
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stock[sd.SerialNumber]; ok {
		return db.StockDevice{}, conflict(fn, "stock device already exists")
	}
	for _, existing := range s.stock {
		if existing.DeviceID == sd.DeviceID {
			return db.StockDevice{}, conflict(fn, "stock device id already in use")
		}
	}
	now := s.now()
	sd.CreatedAt, sd.UpdatedAt = now, now
	s.stock[sd.SerialNumber] = sd
	return sd, nil
}

func (s *Store) ListStockDevices(ctx context.Context) ([]db.StockDevice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]db.StockDevice, 0, len(s.stock))
	for _, sd := range s.stock {
		items = append(items, sd)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].SerialNumber < items[j].SerialNumber
	})
	return items, nil
}

func (s *Store) GetStockDevice(ctx context.Context, serialNumber string) (db.StockDevice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sd, ok := s.stock[serialNumber]
	if !ok {
		return db.StockDevice{}, notFound("Memstore:GetStockDevice", "stock device not found")
	}
	return sd, nil
}

func (s *Store) GetStockDeviceByDeviceID(ctx context.Context, deviceID string) (db.StockDevice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sd := range s.stock {
		if sd.DeviceID == deviceID {
			return sd, nil
		}
	}
	return db.StockDevice{}, notFound("Memstore:GetStockDeviceByDeviceID", "stock device not found")
}

func (s *Store) UpdateStockDevice(ctx context.Context, serialNumber string, lotNo, companyName *string) (db.StockDevice, error) {
	const fn = "Memstore:UpdateStockDevice"
	s.mu.Lock()
	defer s.mu.Unlock()
	sd, ok := s.stock[serialNumber]
	if !ok {
		return db.StockDevice{}, notFound(fn, "stock device not found")
	}
	if lotNo != nil {
		sd.LotNo = *lotNo
	}
	if companyName != nil {
		sd.CompanyName = *companyName
	}
	sd.UpdatedAt = s.now()
	s.stock[serialNumber] = sd
	return sd, nil
}

func (s *Store) DeleteStockDevice(ctx context.Context, serialNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stock[serialNumber]; !ok {
		return notFound("Memstore:DeleteStockDevice", "stock device not found")
	}
	delete(s.stock, serialNumber)
	return nil
}
