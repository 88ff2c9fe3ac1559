package memstore

import (
	"context"
	"sort"
	"sync"

	"iot-ingest-backend/internal/db"
)

// deviceLock is dropped from the table once nobody holds or waits on it.
type deviceLock struct {
	mu   sync.Mutex
	refs int
}

func (s *Store) lockDevice(deviceID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[deviceID]
	if !ok {
		l = &deviceLock{}
		s.locks[deviceID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, deviceID)
		}
		s.locksMu.Unlock()
	}
}

// WithDeviceLock holds a per-device mutex while fn runs. Readings inserted
// through the tx become visible only if fn returns nil.
func (s *Store) WithDeviceLock(ctx context.Context, deviceID string, fn func(tx db.ReadingTx) error) error {
	unlock := s.lockDevice(deviceID)
	defer unlock()

	tx := &readingTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range tx.pending {
		if _, ok := s.devices[r.DeviceID]; !ok {
			return notFound("Memstore:WithDeviceLock", "device not found")
		}
	}
	for _, r := range tx.pending {
		s.readings[r.DeviceID] = append(s.readings[r.DeviceID], r)
	}
	return nil
}

type readingTx struct {
	store   *Store
	pending []db.Reading
}

func (tx *readingTx) ExistingKeys(ctx context.Context, deviceID string, recordNumbers, timestamps []int64) ([]db.ReadingKey, error) {
	records := make(map[int64]struct{}, len(recordNumbers))
	for _, n := range recordNumbers {
		records[n] = struct{}{}
	}
	stamps := make(map[int64]struct{}, len(timestamps))
	for _, ts := range timestamps {
		stamps[ts] = struct{}{}
	}

	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	keys := []db.ReadingKey{}
	tx.each(deviceID, func(r db.Reading) bool {
		_, recordHit := records[r.RecordNumber]
		_, stampHit := stamps[r.Timestamp]
		if recordHit || stampHit {
			keys = append(keys, db.ReadingKey{RecordNumber: r.RecordNumber, Timestamp: r.Timestamp})
		}
		return true
	})
	return keys, nil
}

// each visits committed and staged readings of a device until visit
// returns false. Callers hold store.mu.
func (tx *readingTx) each(deviceID string, visit func(db.Reading) bool) {
	for _, r := range tx.store.readings[deviceID] {
		if !visit(r) {
			return
		}
	}
	for _, r := range tx.pending {
		if r.DeviceID == deviceID && !visit(r) {
			return
		}
	}
}

func (tx *readingTx) collides(r db.Reading) bool {
	hit := false
	tx.each(r.DeviceID, func(existing db.Reading) bool {
		hit = existing.RecordNumber == r.RecordNumber || existing.Timestamp == r.Timestamp
		return !hit
	})
	return hit
}

// InsertReadings stages the readings. Ids are taken from the store sequence
// at staging time, so a discarded tx leaves a gap like a database sequence.
func (tx *readingTx) InsertReadings(ctx context.Context, readings []db.Reading) ([]db.Reading, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	inserted := make([]db.Reading, 0, len(readings))
	for _, r := range readings {
		if _, ok := tx.store.devices[r.DeviceID]; !ok {
			return nil, notFound("Memstore:InsertReadings", "device not found")
		}
		if tx.collides(r) {
			continue
		}
		tx.store.nextReadingID++
		r.ID = tx.store.nextReadingID
		r.CreatedAt = tx.store.now()
		tx.pending = append(tx.pending, r)
		inserted = append(inserted, r)
	}
	return inserted, nil
}

func (s *Store) sortedReadings(deviceID string) []db.Reading {
	readings := append([]db.Reading(nil), s.readings[deviceID]...)
	sort.SliceStable(readings, func(i, j int) bool {
		if readings[i].RecordNumber != readings[j].RecordNumber {
			return readings[i].RecordNumber > readings[j].RecordNumber
		}
		return readings[i].Timestamp > readings[j].Timestamp
	})
	return readings
}

func (s *Store) LatestReading(ctx context.Context, deviceID string) (*db.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	readings := s.sortedReadings(deviceID)
	if len(readings) == 0 {
		return nil, nil
	}
	return &readings[0], nil
}

func (s *Store) ListReadings(ctx context.Context, deviceID string) ([]db.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	readings := s.sortedReadings(deviceID)
	if readings == nil {
		readings = []db.Reading{}
	}
	return readings, nil
}
