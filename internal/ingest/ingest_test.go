package ingest

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"iot-ingest-backend/internal/apperr"
	"iot-ingest-backend/internal/cache"
	"iot-ingest-backend/internal/db"
	"iot-ingest-backend/internal/memstore"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *memstore.Store {
	t.Helper()
	s := memstore.New()
	_, _, err := s.CreateDevice(context.Background(), db.Device{DeviceID: "dev-1", SerialNumber: "SN-1", Model: "AL-1"})
	require.NoError(t, err)
	return s
}

func recordNumbers(readings []db.Reading) []int64 {
	out := make([]int64, 0, len(readings))
	for _, r := range readings {
		out = append(out, r.RecordNumber)
	}
	return out
}

func Test_Reconcile(t *testing.T) {
	existing := []db.ReadingKey{{RecordNumber: 5, Timestamp: Normalize(t0)}}

	cases := []struct {
		name            string
		candidates      []Candidate
		expectedRecords []int64
	}{
		{
			name: "same record number, new timestamp",
			candidates: []Candidate{
				{RecordNumber: 5, Timestamp: t0.Add(time.Second)},
			},
			expectedRecords: []int64{},
		},
		{
			name: "same timestamp, new record number",
			candidates: []Candidate{
				{RecordNumber: 6, Timestamp: t0},
			},
			expectedRecords: []int64{},
		},
		{
			name: "same instant in another zone",
			candidates: []Candidate{
				{RecordNumber: 6, Timestamp: t0.In(time.FixedZone("UTC+2", 2*60*60))},
			},
			expectedRecords: []int64{},
		},
		{
			name: "new on both keys",
			candidates: []Candidate{
				{RecordNumber: 7, Timestamp: t0.Add(2 * time.Second)},
			},
			expectedRecords: []int64{7},
		},
		{
			name: "within batch first wins",
			candidates: []Candidate{
				{RecordNumber: 8, Timestamp: t0.Add(8 * time.Second)},
				{RecordNumber: 8, Timestamp: t0.Add(9 * time.Second)},
				{RecordNumber: 10, Timestamp: t0.Add(8 * time.Second)},
				{RecordNumber: 11, Timestamp: t0.Add(11 * time.Second)},
			},
			expectedRecords: []int64{8, 11},
		},
		{
			name: "rejected candidate does not shadow a later one",
			candidates: []Candidate{
				{RecordNumber: 5, Timestamp: t0.Add(3 * time.Second)},
				{RecordNumber: 12, Timestamp: t0.Add(3 * time.Second)},
			},
			expectedRecords: []int64{12},
		},
		{
			name:            "empty batch",
			candidates:      nil,
			expectedRecords: []int64{},
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			accepted := Reconcile("dev-1", existing, tt.candidates)
			assert.Equal(t, tt.expectedRecords, recordNumbers(accepted))
			for _, r := range accepted {
				assert.Equal(t, "dev-1", r.DeviceID)
			}
		})
	}
}

func Test_IngestBatch(t *testing.T) {
	cases := []struct {
		name          string
		serialNumber  string
		candidates    []Candidate
		expectedCount int
		expectedErr   error
	}{
		{
			name:         "unknown device",
			serialNumber: "SN-404",
			candidates:   []Candidate{{RecordNumber: 1, Timestamp: t0}},
			expectedErr:  apperr.ErrNotFound,
		},
		{
			name:          "empty batch",
			serialNumber:  "SN-1",
			expectedCount: 0,
		},
		{
			name:         "non finite value",
			serialNumber: "SN-1",
			candidates:   []Candidate{{RecordNumber: 1, Timestamp: t0, Value: math.NaN()}},
			expectedErr:  apperr.ErrInvalidArgument,
		},
		{
			name:         "negative record number",
			serialNumber: "SN-1",
			candidates:   []Candidate{{RecordNumber: -1, Timestamp: t0}},
			expectedErr:  apperr.ErrInvalidArgument,
		},
		{
			name:         "missing timestamp",
			serialNumber: "SN-1",
			candidates:   []Candidate{{RecordNumber: 1}},
			expectedErr:  apperr.ErrInvalidArgument,
		},
		{
			name:         "within batch duplicates",
			serialNumber: "SN-1",
			candidates: []Candidate{
				{RecordNumber: 1, Timestamp: t0, Value: 10, Unit: "mg/L"},
				{RecordNumber: 1, Timestamp: t0.Add(time.Minute), Value: 11, Unit: "mg/L"},
				{RecordNumber: 2, Timestamp: t0.Add(time.Minute), Value: 12, Unit: "mg/L"},
			},
			expectedCount: 2,
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			r := New(Config{Store: newStore(t)})
			n, err := r.IngestBatch(context.Background(), tt.serialNumber, tt.candidates)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCount, n)
		})
	}
}

func Test_IngestBatch_Scenario(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	r := New(Config{Store: s})

	batch := []Candidate{{RecordNumber: 1, Timestamp: t0, Value: 10, Unit: "mg/L"}}

	n, err := r.IngestBatch(ctx, "SN-1", batch)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = r.IngestBatch(ctx, "SN-1", batch)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = r.IngestBatch(ctx, "SN-1", []Candidate{{RecordNumber: 2, Timestamp: t0, Value: 11, Unit: "mg/L"}})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	readings, err := s.ListReadings(ctx, "dev-1")
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, t0.UnixMilli(), readings[0].Timestamp)
}

func Test_IngestBatch_DedupByEitherKey(t *testing.T) {
	ctx := context.Background()
	r := New(Config{Store: newStore(t)})

	n, err := r.IngestBatch(ctx, "SN-1", []Candidate{{RecordNumber: 5, Timestamp: t0}})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = r.IngestBatch(ctx, "SN-1", []Candidate{
		{RecordNumber: 5, Timestamp: t0.Add(time.Second)},
		{RecordNumber: 6, Timestamp: t0},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = r.IngestBatch(ctx, "SN-1", []Candidate{{RecordNumber: 7, Timestamp: t0.Add(2 * time.Second)}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func Test_IngestBatch_ConcurrentSameDevice(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	r := New(Config{Store: s})

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := range 10 {
		wg.Go(func() {
			n, err := r.IngestBatch(ctx, "SN-1", []Candidate{
				{RecordNumber: 42, Timestamp: t0.Add(time.Duration(i) * time.Second), Value: 1, Unit: "mg/L"},
			})
			assert.NoError(t, err)
			mu.Lock()
			total += n
			mu.Unlock()
		})
	}
	wg.Wait()

	assert.Equal(t, 1, total)
	readings, err := s.ListReadings(ctx, "dev-1")
	require.NoError(t, err)
	assert.Len(t, readings, 1)
}

func Test_IngestOne(t *testing.T) {
	ctx := context.Background()
	r := New(Config{Store: newStore(t)})

	reading, accepted, err := r.IngestOne(ctx, "SN-1", Candidate{RecordNumber: 1, Timestamp: t0, Value: 3.5, Unit: "mg/L"})
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, int64(1), reading.RecordNumber)
	assert.Equal(t, "dev-1", reading.DeviceID)
	assert.NotZero(t, reading.ID)

	_, accepted, err = r.IngestOne(ctx, "SN-1", Candidate{RecordNumber: 1, Timestamp: t0.Add(time.Hour)})
	require.NoError(t, err)
	assert.False(t, accepted)

	_, _, err = r.IngestOne(ctx, "SN-404", Candidate{RecordNumber: 1, Timestamp: t0})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func Test_IngestBatch_SideEffects(t *testing.T) {
	cases := []struct {
		name           string
		candidates     []Candidate
		setupPublisher func() publisher
	}{
		{
			name:       "publishes accepted readings",
			candidates: []Candidate{{RecordNumber: 1, Timestamp: t0, Value: 10, Unit: "mg/L"}},
			setupPublisher: func() publisher {
				p := NewMockpublisher(t)
				p.EXPECT().PublishReadings(
					mock.Anything,
					mock.MatchedBy(func(d db.Device) bool { return d.DeviceID == "dev-1" }),
					mock.MatchedBy(func(rs []db.Reading) bool { return len(rs) == 1 && rs[0].RecordNumber == 1 }),
				).Return(nil)
				return p
			},
		},
		{
			name:       "publish failure does not fail the ingest",
			candidates: []Candidate{{RecordNumber: 1, Timestamp: t0}},
			setupPublisher: func() publisher {
				p := NewMockpublisher(t)
				p.EXPECT().PublishReadings(mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
				return p
			},
		},
		{
			name:       "nothing accepted publishes nothing",
			candidates: nil,
			setupPublisher: func() publisher {
				return NewMockpublisher(t)
			},
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c := cache.NewMemoryCache()
			c.Set(ctx, "dev-1", db.Reading{RecordNumber: 0})

			r := New(Config{Store: newStore(t), Cache: c, Publisher: tt.setupPublisher()})
			n, err := r.IngestBatch(ctx, "SN-1", tt.candidates)
			require.NoError(t, err)

			cached, ok := c.Get(ctx, "dev-1")
			require.True(t, ok)
			if n == 0 {
				assert.Equal(t, int64(0), cached.RecordNumber)
			} else {
				assert.Equal(t, int64(1), cached.RecordNumber)
			}
		})
	}
}

func Test_IngestBatch_BackfillKeepsCachedLatest(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	r := New(Config{Store: newStore(t), Cache: c})

	_, err := r.IngestBatch(ctx, "SN-1", []Candidate{{RecordNumber: 10, Timestamp: t0}})
	require.NoError(t, err)
	c.Delete(ctx, "dev-1")

	_, err = r.IngestBatch(ctx, "SN-1", []Candidate{{RecordNumber: 3, Timestamp: t0.Add(-time.Hour)}})
	require.NoError(t, err)

	cached, ok := c.Get(ctx, "dev-1")
	require.True(t, ok)
	assert.Equal(t, int64(10), cached.RecordNumber)
}
