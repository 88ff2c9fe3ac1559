package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"iot-ingest-backend/internal/db"
)

var (
	ErrMarshalRecord   = errors.New("error marshalling record")
	ErrWriteMessage    = errors.New("error writing message")
	ErrQueueFull       = errors.New("publish queue full")
	ErrPublisherClosed = errors.New("publisher closed")
)

const (
	DefaultQueueSize    = 256
	DefaultWriteTimeout = 10 * time.Second
)

type PublisherConfig struct {
	Writer Writer
	// QueueSize bounds the batches waiting for the writer.
	QueueSize    int
	WriteTimeout time.Duration
}

type batch struct {
	deviceID string
	msgs     []kafka.Message
}

// Publisher announces accepted readings, keyed by device id so every event
// of a device lands on the same partition in order. PublishReadings only
// queues; a single goroutine hands batches to the writer in arrival order.
type Publisher struct {
	writer  Writer
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan batch
	done   chan struct{}
}

func NewPublisher(cfg PublisherConfig) *Publisher {
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	p := &Publisher{
		writer:  cfg.Writer,
		timeout: timeout,
		queue:   make(chan batch, size),
		done:    make(chan struct{}),
	}
	go p.drain()
	return p
}

// PublishReadings queues the readings without waiting on the broker. It fails
// only when the queue is full or the publisher is closed.
func (p *Publisher) PublishReadings(ctx context.Context, device db.Device, readings []db.Reading) error {
	const fn = "Publisher:PublishReadings"
	if len(readings) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(readings))
	for _, r := range readings {
		record := StructuredConnectRecord{
			Schema: ReadingSchema,
			Payload: ReadingAccepted{
				DeviceID:     device.DeviceID,
				SerialNumber: device.SerialNumber,
				RecordNumber: r.RecordNumber,
				Timestamp:    r.Timestamp,
				Value:        r.Value,
				Unit:         r.Unit,
			},
		}
		out, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("%s:%w:%w", fn, ErrMarshalRecord, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(device.DeviceID), Value: out})
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("%s:%w", fn, ErrPublisherClosed)
	}
	select {
	case p.queue <- batch{deviceID: device.DeviceID, msgs: msgs}:
		return nil
	default:
		return fmt.Errorf("%s:%w", fn, ErrQueueFull)
	}
}

func (p *Publisher) drain() {
	const fn = "Publisher:drain"
	defer close(p.done)
	for b := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.writer.WriteMessages(ctx, b.msgs...)
		if err != nil {
			slog.ErrorContext(ctx, "Error publishing accepted readings",
				"device_id", b.deviceID,
				"count", len(b.msgs),
				"error", fmt.Errorf("%s:%w:%w", fn, ErrWriteMessage, err),
			)
		} else {
			slog.InfoContext(ctx, "Published accepted readings", "device_id", b.deviceID, "count", len(b.msgs))
		}
		cancel()
	}
}

// Close stops accepting readings, waits for the queue to drain until ctx
// ends, then closes the writer.
func (p *Publisher) Close(ctx context.Context) {
	slog.InfoContext(ctx, "Closing publisher resources...")
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-ctx.Done():
		slog.WarnContext(ctx, "Publisher closed with readings still queued", "queued", len(p.queue))
	}
	p.writer.Close()
}
