package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"iot-ingest-backend/internal/db"
)

func Test_PublishReadings(t *testing.T) {
	device := db.Device{DeviceID: "dev-1", SerialNumber: "SN-1"}
	readings := []db.Reading{
		{DeviceID: "dev-1", RecordNumber: 1, Timestamp: 1704067200000, Value: 10, Unit: "mg/L"},
		{DeviceID: "dev-1", RecordNumber: 2, Timestamp: 1704067260000, Value: 12, Unit: "mg/L"},
	}

	expectedMessages := func() []kafka.Message {
		msgs := make([]kafka.Message, 0, len(readings))
		for _, r := range readings {
			record := StructuredConnectRecord{
				Schema: ReadingSchema,
				Payload: ReadingAccepted{
					DeviceID:     "dev-1",
					SerialNumber: "SN-1",
					RecordNumber: r.RecordNumber,
					Timestamp:    r.Timestamp,
					Value:        r.Value,
					Unit:         r.Unit,
				},
			}
			recordBytes, _ := json.Marshal(record)
			msgs = append(msgs, kafka.Message{Key: []byte("dev-1"), Value: recordBytes})
		}
		return msgs
	}

	cases := []struct {
		name          string
		inputReadings []db.Reading
		setupWriter   func() Writer
	}{
		{
			name:          "publishes every reading keyed by device",
			inputReadings: readings,
			setupWriter: func() Writer {
				w := NewMockWriter(t)
				w.EXPECT().WriteMessages(mock.Anything, expectedMessages()).Return(nil)
				w.EXPECT().Close().Return(nil)
				return w
			},
		},
		{
			name:          "nothing to publish",
			inputReadings: nil,
			setupWriter: func() Writer {
				w := NewMockWriter(t)
				w.EXPECT().Close().Return(nil)
				return w
			},
		},
		{
			name:          "write failure is logged, not returned",
			inputReadings: readings,
			setupWriter: func() Writer {
				w := NewMockWriter(t)
				w.EXPECT().WriteMessages(mock.Anything, mock.Anything).Return(errors.New("broker down"))
				w.EXPECT().Close().Return(nil)
				return w
			},
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			p := NewPublisher(PublisherConfig{Writer: tt.setupWriter()})
			assert.NoError(t, p.PublishReadings(ctx, device, tt.inputReadings))
			p.Close(ctx)
		})
	}
}

func Test_PublishReadings_DoesNotWaitOnWriter(t *testing.T) {
	ctx := context.Background()
	device := db.Device{DeviceID: "dev-1", SerialNumber: "SN-1"}
	reading := []db.Reading{{DeviceID: "dev-1", RecordNumber: 1}}

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	w := NewMockWriter(t)
	w.EXPECT().WriteMessages(mock.Anything, mock.Anything).
		Run(func(ctx context.Context, msgs ...kafka.Message) {
			started <- struct{}{}
			<-release
		}).
		Return(nil).
		Times(2)
	w.EXPECT().Close().Return(nil)

	p := NewPublisher(PublisherConfig{Writer: w, QueueSize: 1})
	require.NoError(t, p.PublishReadings(ctx, device, reading))
	<-started

	// The writer is stuck on the first batch: one more fits in the queue.
	require.NoError(t, p.PublishReadings(ctx, device, reading))
	assert.ErrorIs(t, p.PublishReadings(ctx, device, reading), ErrQueueFull)

	close(release)
	p.Close(ctx)
	assert.ErrorIs(t, p.PublishReadings(ctx, device, reading), ErrPublisherClosed)
}

func Test_Publisher_CloseGivesUpOnContext(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	w := NewMockWriter(t)
	w.EXPECT().WriteMessages(mock.Anything, mock.Anything).
		Run(func(ctx context.Context, msgs ...kafka.Message) {
			close(started)
			<-release
		}).
		Return(nil)
	w.EXPECT().Close().Return(nil)

	p := NewPublisher(PublisherConfig{Writer: w})
	require.NoError(t, p.PublishReadings(context.Background(), db.Device{DeviceID: "dev-1"}, []db.Reading{{RecordNumber: 1}}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	p.Close(ctx)
	assert.Less(t, time.Since(start), time.Second)
}

func Test_NewWriter(t *testing.T) {
	w := NewWriter([]string{"localhost:9092"}, "readings_accepted")
	assert.Equal(t, "readings_accepted", w.Topic)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.Equal(t, WriterBatchTimeout, w.BatchTimeout)
}
