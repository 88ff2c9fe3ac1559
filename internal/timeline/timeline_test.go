package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iot-ingest-backend/internal/apperr"
	"iot-ingest-backend/internal/cache"
	"iot-ingest-backend/internal/db"
	"iot-ingest-backend/internal/ingest"
	"iot-ingest-backend/internal/memstore"
)

func seed(t *testing.T, readings ...db.Reading) *memstore.Store {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	_, _, err := s.CreateDevice(ctx, db.Device{DeviceID: "dev-1", SerialNumber: "SN-1", Model: "AL-1"})
	require.NoError(t, err)
	for _, r := range readings {
		r.DeviceID = "dev-1"
		require.NoError(t, s.WithDeviceLock(ctx, "dev-1", func(tx db.ReadingTx) error {
			_, err := tx.InsertReadings(ctx, []db.Reading{r})
			return err
		}))
	}
	return s
}

func Test_Latest(t *testing.T) {
	cases := []struct {
		name           string
		readings       []db.Reading
		serialNumber   string
		expectedRecord *int64
		expectedErr    error
	}{
		{
			name:         "unknown device",
			serialNumber: "SN-404",
			expectedErr:  apperr.ErrNotFound,
		},
		{
			name:         "no readings",
			serialNumber: "SN-1",
		},
		{
			name: "highest record number regardless of insertion order",
			readings: []db.Reading{
				{RecordNumber: 3, Timestamp: 1000},
				{RecordNumber: 1, Timestamp: 3000},
				{RecordNumber: 2, Timestamp: 2000},
			},
			serialNumber:   "SN-1",
			expectedRecord: func() *int64 { n := int64(3); return &n }(),
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			tl := New(Config{Store: seed(t, tt.readings...), Cache: cache.NewMemoryCache()})
			latest, err := tl.Latest(context.Background(), tt.serialNumber)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			if tt.expectedRecord == nil {
				assert.Nil(t, latest)
				return
			}
			require.NotNil(t, latest)
			assert.Equal(t, *tt.expectedRecord, latest.RecordNumber)
		})
	}
}

func Test_Latest_ReadThroughCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	tl := New(Config{Store: seed(t, db.Reading{RecordNumber: 1, Timestamp: 1000}), Cache: c})

	latest, err := tl.Latest(ctx, "SN-1")
	require.NoError(t, err)
	require.NotNil(t, latest)

	cached, ok := c.Get(ctx, "dev-1")
	require.True(t, ok)
	assert.Equal(t, int64(1), cached.RecordNumber)

	c.Set(ctx, "dev-1", db.Reading{RecordNumber: 99})
	latest, err = tl.Latest(ctx, "SN-1")
	require.NoError(t, err)
	assert.Equal(t, int64(99), latest.RecordNumber)
}

// racingStore runs afterLatest once, between a store read of the latest
// reading and the caller's use of it.
type racingStore struct {
	*memstore.Store
	afterLatest func()
}

func (s *racingStore) LatestReading(ctx context.Context, deviceID string) (*db.Reading, error) {
	latest, err := s.Store.LatestReading(ctx, deviceID)
	if hook := s.afterLatest; hook != nil {
		s.afterLatest = nil
		hook()
	}
	return latest, err
}

func Test_Latest_IngestDuringReadThrough(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := cache.NewMemoryCache()
	s := &racingStore{Store: seed(t)}
	ingester := ingest.New(ingest.Config{Store: s.Store, Cache: c})
	tl := New(Config{Store: s, Cache: c})

	_, err := ingester.IngestBatch(ctx, "SN-1", []ingest.Candidate{{RecordNumber: 1, Timestamp: t0}})
	require.NoError(t, err)
	c.Delete(ctx, "dev-1")

	s.afterLatest = func() {
		_, err := ingester.IngestBatch(ctx, "SN-1", []ingest.Candidate{{RecordNumber: 2, Timestamp: t0.Add(time.Minute)}})
		require.NoError(t, err)
	}
	racing, err := tl.Latest(ctx, "SN-1")
	require.NoError(t, err)
	require.NotNil(t, racing)
	assert.Equal(t, int64(1), racing.RecordNumber)

	latest, err := tl.Latest(ctx, "SN-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(2), latest.RecordNumber)
}

func Test_Records(t *testing.T) {
	ctx := context.Background()
	tl := New(Config{Store: seed(t,
		db.Reading{RecordNumber: 1, Timestamp: 1000},
		db.Reading{RecordNumber: 3, Timestamp: 3000},
		db.Reading{RecordNumber: 2, Timestamp: 2000},
	)})

	readings, err := tl.Records(ctx, "SN-1")
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{readings[0].RecordNumber, readings[1].RecordNumber, readings[2].RecordNumber})

	_, err = tl.Records(ctx, "SN-404")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
