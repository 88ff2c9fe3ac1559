package ingest

import (
	"time"

	"iot-ingest-backend/internal/db"
)

// Candidate is an incoming reading before deduplication.
type Candidate struct {
	RecordNumber int64
	Timestamp    time.Time
	Value        float64
	Unit         string
}

// Normalize converts an instant to the stored form: unix milliseconds, UTC.
// Both stored and incoming readings are compared in this form only.
func Normalize(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// Reconcile returns the candidates that collide with neither an existing key
// nor an earlier candidate, on record number or on normalized timestamp.
// Order is preserved and the first of two colliding candidates wins.
func Reconcile(deviceID string, existing []db.ReadingKey, candidates []Candidate) []db.Reading {
	seenRecords := make(map[int64]struct{}, len(existing)+len(candidates))
	seenStamps := make(map[int64]struct{}, len(existing)+len(candidates))
	for _, k := range existing {
		seenRecords[k.RecordNumber] = struct{}{}
		seenStamps[k.Timestamp] = struct{}{}
	}

	accepted := make([]db.Reading, 0, len(candidates))
	for _, c := range candidates {
		ts := Normalize(c.Timestamp)
		if _, dup := seenRecords[c.RecordNumber]; dup {
			continue
		}
		if _, dup := seenStamps[ts]; dup {
			continue
		}
		seenRecords[c.RecordNumber] = struct{}{}
		seenStamps[ts] = struct{}{}
		accepted = append(accepted, db.Reading{
			DeviceID:     deviceID,
			RecordNumber: c.RecordNumber,
			Timestamp:    ts,
			Value:        c.Value,
			Unit:         c.Unit,
		})
	}
	return accepted
}
