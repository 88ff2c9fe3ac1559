package db

import (
	"context"

	"github.com/georgysavva/scany/pgxscan"
)

const stockColumns = `
	serial_number,
	lot_no,
	company_name,
	device_id,
	created_at,
	updated_at`

const stockNotFound = "stock device not found"

func (db *DB) CreateStockDevice(ctx context.Context, s StockDevice) (StockDevice, error) {
	const fn = "DB:CreateStockDevice"
	var created StockDevice
	err := pgxscan.Get(ctx, db.pool, &created, `
		INSERT INTO stock_devices (
			serial_number,
			lot_no,
			company_name,
			device_id
		) VALUES ($1, $2, $3, $4)
		RETURNING `+stockColumns,
		s.SerialNumber, s.LotNo, s.CompanyName, s.DeviceID)
	if err != nil {
		return StockDevice{}, wrap(fn, ErrInsertFailed, stockNotFound, err)
	}
	return created, nil
}

func (db *DB) ListStockDevices(ctx context.Context) ([]StockDevice, error) {
	const fn = "DB:ListStockDevices"
	items := []StockDevice{}
	err := pgxscan.Select(ctx, db.pool, &items, `SELECT `+stockColumns+` FROM stock_devices ORDER BY created_at DESC, serial_number ASC`)
	if err != nil {
		return nil, wrap(fn, ErrSelectFailed, stockNotFound, err)
	}
	return items, nil
}

func (db *DB) GetStockDevice(ctx context.Context, serialNumber string) (StockDevice, error) {
	const fn = "DB:GetStockDevice"
	var s StockDevice
	err := pgxscan.Get(ctx, db.pool, &s, `SELECT `+stockColumns+` FROM stock_devices WHERE serial_number = $1`, serialNumber)
	if err != nil {
		return StockDevice{}, wrap(fn, ErrSelectFailed, stockNotFound, err)
	}
	return s, nil
}

func (db *DB) GetStockDeviceByDeviceID(ctx context.Context, deviceID string) (StockDevice, error) {
	const fn = "DB:GetStockDeviceByDeviceID"
	var s StockDevice
	err := pgxscan.Get(ctx, db.pool, &s, `SELECT `+stockColumns+` FROM stock_devices WHERE device_id = $1`, deviceID)
	if err != nil {
		return StockDevice{}, wrap(fn, ErrSelectFailed, stockNotFound, err)
	}
	return s, nil
}

// UpdateStockDevice changes only the fields that are non-nil.
func (db *DB) UpdateStockDevice(ctx context.Context, serialNumber string, lotNo, companyName *string) (StockDevice, error) {
	const fn = "DB:UpdateStockDevice"
	var s StockDevice
	err := pgxscan.Get(ctx, db.pool, &s, `
		UPDATE stock_devices
		SET lot_no = COALESCE($2, lot_no),
			company_name = COALESCE($3, company_name),
			updated_at = now()
		WHERE serial_number = $1
		RETURNING `+stockColumns,
		serialNumber, lotNo, companyName)
	if err != nil {
		return StockDevice{}, wrap(fn, ErrUpdateFailed, stockNotFound, err)
	}
	return s, nil
}

func (db *DB) DeleteStockDevice(ctx context.Context, serialNumber string) error {
	const fn = "DB:DeleteStockDevice"
	var deleted string
	err := db.pool.QueryRow(ctx, `DELETE FROM stock_devices WHERE serial_number = $1 RETURNING serial_number`, serialNumber).Scan(&deleted)
	if err != nil {
		return wrap(fn, ErrDeleteFailed, stockNotFound, err)
	}
	return nil
}
