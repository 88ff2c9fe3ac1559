package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"iot-ingest-backend/internal/db"
)

// TimestampLayout renders reading timestamps, always in UTC.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Layouts accepted for timestamps that carry no zone; they are read as UTC.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

var (
	errNotNumber    = errors.New("must be a number")
	errNotInteger   = errors.New("must be an integer")
	errNotTimestamp = errors.New("must be an RFC 3339 timestamp or epoch milliseconds")
)

// scalar returns the raw JSON value with string quotes removed, and whether
// the value was null.
func scalar(data []byte) (string, bool, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", true, nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false, err
		}
		return strings.TrimSpace(s), false, nil
	}
	return string(data), false, nil
}

// Number accepts a JSON number or a numeric string.
type Number struct {
	Value float64
	Set   bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	s, null, err := scalar(data)
	if err != nil || null {
		return err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return errNotNumber
	}
	n.Value, n.Set = v, true
	return nil
}

// Integer accepts a JSON number or a numeric string with no fractional part.
type Integer struct {
	Value int64
	Set   bool
}

func (n *Integer) UnmarshalJSON(data []byte) error {
	s, null, err := scalar(data)
	if err != nil || null {
		return err
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		n.Value, n.Set = v, true
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return errNotInteger
	}
	n.Value, n.Set = int64(f), true
	return nil
}

// Timestamp accepts RFC 3339 with or without fractional seconds, zone-less
// ISO 8601 read as UTC, or a JSON number of epoch milliseconds.
type Timestamp struct {
	Time time.Time
	Set  bool
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '"' && !bytes.Equal(data, []byte("null")) {
		ms, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return errNotTimestamp
		}
		t.Time, t.Set = time.UnixMilli(ms).UTC(), true
		return nil
	}
	s, null, err := scalar(data)
	if err != nil || null {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time, t.Set = parsed, true
	return nil
}

func ParseTimestamp(s string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return parsed.UTC(), nil
	}
	for _, layout := range zonelessLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errNotTimestamp
}

type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

type RegisterDeviceRequest struct {
	SerialNumber string  `json:"serialNumber"`
	Model        string  `json:"model"`
	DeviceID     string  `json:"deviceId"`
	UserID       *string `json:"userId"`
	Name         string  `json:"name"`
}

type ReadingInput struct {
	RecordNumber Integer   `json:"recordNumber"`
	Timestamp    Timestamp `json:"timestamp"`
	Value        Number    `json:"value"`
	Unit         any       `json:"unit"`
}

type IngestOneRequest struct {
	SerialNumber string `json:"serialNumber"`
	ReadingInput
}

type IngestBatchRequest struct {
	SerialNumber string         `json:"serialNumber"`
	Records      []ReadingInput `json:"records"`
}

type IngestBatchResponse struct {
	AcceptedCount int `json:"acceptedCount"`
	SkippedCount  int `json:"skippedCount"`
}

type ReadingResponse struct {
	ID           int64     `json:"id"`
	DeviceID     string    `json:"deviceId"`
	RecordNumber int64     `json:"recordNumber"`
	Timestamp    string    `json:"timestamp"`
	Value        float64   `json:"value"`
	Unit         string    `json:"unit"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toReadingResponse(r db.Reading) ReadingResponse {
	return ReadingResponse{
		ID:           r.ID,
		DeviceID:     r.DeviceID,
		RecordNumber: r.RecordNumber,
		Timestamp:    time.UnixMilli(r.Timestamp).UTC().Format(TimestampLayout),
		Value:        r.Value,
		Unit:         r.Unit,
		CreatedAt:    r.CreatedAt,
	}
}

type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalItems   int `json:"totalItems"`
	TotalPages   int `json:"totalPages"`
}

type DevicePage struct {
	Items      []db.Device `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

type UpdateNameRequest struct {
	Name string `json:"name"`
}

type UpdateSerialRequest struct {
	SerialNumber string `json:"serialNumber"`
}

type UpdateValueRequest struct {
	Value Number `json:"value"`
}

type UpdateUnitRequest struct {
	Unit *string `json:"unit"`
}

type AssignRequest struct {
	DeviceID string `json:"deviceId"`
	UserID   string `json:"userId"`
}

type CreateUserRequest struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Password    string    `json:"password"`
	DateOfBirth Timestamp `json:"dateOfBirth"`
}

type UpdateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type SessionResponse struct {
	User         db.User `json:"user"`
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken"`
}

type StockDeviceRequest struct {
	SerialNumber string `json:"serialNumber"`
	LotNo        string `json:"lotNo"`
	CompanyName  string `json:"companyName"`
	DeviceID     string `json:"deviceId"`
}

type UpdateStockDeviceRequest struct {
	LotNo       *string `json:"lotNo"`
	CompanyName *string `json:"companyName"`
}

// unitString renders a unit that may arrive as a string or a number.
func unitString(v any) string {
	switch u := v.(type) {
	case nil:
		return ""
	case string:
		return u
	case float64:
		return strconv.FormatFloat(u, 'f', -1, 64)
	default:
		return fmt.Sprint(u)
	}
}
