package db

import (
	"context"
	"time"
)

type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Name         string     `db:"name" json:"name"`
	PasswordHash string     `db:"password_hash" json:"-"`
	DateOfBirth  *time.Time `db:"date_of_birth" json:"dateOfBirth,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

// Device is keyed by DeviceID, which is assigned at registration and never
// changes. SerialNumber is unique but may be changed explicitly.
type Device struct {
	DeviceID     string  `db:"device_id" json:"deviceId"`
	SerialNumber string  `db:"serial_number" json:"serialNumber"`
	Model        string  `db:"model" json:"model"`
	Name         string  `db:"name" json:"name"`
	Active       bool    `db:"active" json:"active"`
	UserID       *string `db:"user_id" json:"userId"`

	// Denormalized latest value. Best-effort; readings are the source of truth.
	CurrentValue        *float64   `db:"current_value" json:"currentValue"`
	CurrentUnit         *string    `db:"current_unit" json:"currentUnit"`
	CurrentAt           *time.Time `db:"current_at" json:"currentAt"`
	CurrentRecordNumber *int64     `db:"current_record_number" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type Reading struct {
	ID           int64     `db:"id" json:"id"`
	DeviceID     string    `db:"device_id" json:"deviceId"`
	RecordNumber int64     `db:"record_number" json:"recordNumber"`
	Timestamp    int64     `db:"timestamp" json:"timestamp"` // unix milliseconds, UTC
	Value        float64   `db:"value" json:"value"`
	Unit         string    `db:"unit" json:"unit"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// ReadingKey is the pair a stored reading can collide on.
type ReadingKey struct {
	RecordNumber int64 `db:"record_number"`
	Timestamp    int64 `db:"timestamp"`
}

type StockDevice struct {
	SerialNumber string    `db:"serial_number" json:"serialNumber"`
	LotNo        string    `db:"lot_no" json:"lotNo"`
	CompanyName  string    `db:"company_name" json:"companyName"`
	DeviceID     string    `db:"device_id" json:"deviceId"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// ReadingTx is the view of the reading set available while a device lock is held.
type ReadingTx interface {
	// ExistingKeys returns the stored keys of deviceID that match any of the
	// given record numbers or timestamps.
	ExistingKeys(ctx context.Context, deviceID string, recordNumbers, timestamps []int64) ([]ReadingKey, error)
	// InsertReadings stores the readings, silently skipping any that collide
	// with a stored key, and returns the rows actually inserted.
	InsertReadings(ctx context.Context, readings []Reading) ([]Reading, error)
}
