// Package lastvalue keeps each device's denormalized current value in step
// with the accepted-readings feed.
package lastvalue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"iot-ingest-backend/internal/db"
	k "iot-ingest-backend/internal/kafka" // alias to avoid name conflict
	"iot-ingest-backend/internal/worker"
)

var (
	ErrReadMessage   = errors.New("error reading message")
	ErrParseMessage  = errors.New("error parsing message")
	ErrUpdateDevice  = errors.New("error updating device")
	ErrCommitMessage = errors.New("error committing message")
)

type deviceStore interface {
	UpdateLastReading(ctx context.Context, deviceID string, r db.Reading) (bool, error)
}

type Config struct {
	Reader k.Reader
	Store  deviceStore
}

type Processor struct {
	worker *worker.Worker
	reader k.Reader
	store  deviceStore

	// pending is the fetched message whose update has not succeeded yet.
	pending *kafka.Message
}

func New(cfg Config) *Processor {
	p := &Processor{
		reader: cfg.Reader,
		store:  cfg.Store,
	}
	p.worker = worker.New(worker.Config{
		Name:      "lastvalue-worker",
		Processor: p,
	})
	return p
}

func (p *Processor) Run(ctx context.Context) {
	p.worker.Run(ctx)
}

func (p *Processor) Close(ctx context.Context) {
	slog.InfoContext(ctx, "Closing lastvalue resources...")
	p.reader.Close()
}

// ProcessMessage applies one accepted reading and commits its offset. Events
// older than the stored current value are skipped, so redelivery and
// reordering are harmless. An event whose update fails stays pending and is
// retried on the next call before anything new is fetched.
func (p *Processor) ProcessMessage(ctx context.Context) error {
	const fn = "LastValue:ProcessMessage"
	m := p.pending
	if m == nil {
		fetched, err := p.reader.FetchMessage(ctx)
		if err != nil {
			return fmt.Errorf("%s:%w:%w", fn, ErrReadMessage, err)
		}
		m = &fetched
	}
	p.pending = m

	if err := p.apply(ctx, *m); err != nil {
		return fmt.Errorf("%s:%w", fn, err)
	}
	if err := p.reader.CommitMessages(ctx, *m); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrCommitMessage, err)
	}
	p.pending = nil
	return nil
}

func (p *Processor) apply(ctx context.Context, m kafka.Message) error {
	var record k.StructuredConnectRecord
	if err := json.Unmarshal(m.Value, &record); err != nil {
		// Poison message, drop it.
		slog.ErrorContext(ctx, "Error parsing JSON, skipping", "error", err, "key", string(m.Key))
		return nil
	}
	payload := record.Payload
	if payload.DeviceID == "" {
		slog.InfoContext(ctx, "Invalid event, skipping", "error", ErrParseMessage, "key", string(m.Key))
		return nil
	}

	applied, err := p.store.UpdateLastReading(ctx, payload.DeviceID, db.Reading{
		DeviceID:     payload.DeviceID,
		RecordNumber: payload.RecordNumber,
		Timestamp:    payload.Timestamp,
		Value:        payload.Value,
		Unit:         payload.Unit,
	})
	if err != nil {
		return fmt.Errorf("%w:%w", ErrUpdateDevice, err)
	}
	if !applied {
		slog.InfoContext(ctx, "Stale event, skipping",
			"device_id", payload.DeviceID,
			"record_number", payload.RecordNumber,
		)
		return nil
	}
	slog.InfoContext(ctx, "Updated current value", "device_id", payload.DeviceID, "record_number", payload.RecordNumber)
	return nil
}
