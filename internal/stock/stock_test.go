package stock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iot-ingest-backend/internal/apperr"
	"iot-ingest-backend/internal/db"
	"iot-ingest-backend/internal/memstore"
)

func Test_Create(t *testing.T) {
	cases := []struct {
		name        string
		input       db.StockDevice
		expectedErr error
	}{
		{name: "valid", input: db.StockDevice{SerialNumber: "S1", DeviceID: "d1", LotNo: "L1", CompanyName: "Acme"}},
		{name: "missing serial", input: db.StockDevice{DeviceID: "d1"}, expectedErr: apperr.ErrInvalidArgument},
		{name: "missing device id", input: db.StockDevice{SerialNumber: "S1"}, expectedErr: apperr.ErrInvalidArgument},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{Store: memstore.New()})
			created, err := s.Create(context.Background(), tt.input)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input.SerialNumber, created.SerialNumber)
			assert.False(t, created.CreatedAt.IsZero())
		})
	}
}

func Test_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := New(Config{Store: memstore.New()})

	_, err := s.Create(ctx, db.StockDevice{SerialNumber: "S1", DeviceID: "d1", LotNo: "L1"})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = s.Create(ctx, db.StockDevice{SerialNumber: "S2", DeviceID: "d2", LotNo: "L1"})
	require.NoError(t, err)

	_, err = s.Create(ctx, db.StockDevice{SerialNumber: "S1", DeviceID: "d3"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "S2", items[0].SerialNumber)

	item, err := s.GetByDeviceID(ctx, "d2")
	require.NoError(t, err)
	assert.Equal(t, "S2", item.SerialNumber)

	company := "Globex"
	item, err = s.Update(ctx, "S1", nil, &company)
	require.NoError(t, err)
	assert.Equal(t, "L1", item.LotNo)
	assert.Equal(t, "Globex", item.CompanyName)

	require.NoError(t, s.Delete(ctx, "S1"))
	_, err = s.Get(ctx, "S1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "S1"), apperr.ErrNotFound)
}
