package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const DefaultBackoff = time.Second

type Config struct {
	Name      string
	Processor Processor
	// Backoff is the pause after a failed message. Zero means DefaultBackoff.
	Backoff time.Duration
}

type Processor interface {
	ProcessMessage(ctx context.Context) error
}

type Worker struct {
	name      string
	processor Processor
	backoff   time.Duration
}

func New(cfg Config) *Worker {
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Worker{
		name:      cfg.Name,
		processor: cfg.Processor,
		backoff:   backoff,
	}
}

// Run processes messages until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	slog.InfoContext(ctx, "Worker started...", "worker", w.name)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Worker stopped...", "worker", w.name)
			return
		default:
		}

		err := w.processor.ProcessMessage(ctx)
		if err == nil {
			continue
		}
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			continue
		}
		slog.ErrorContext(ctx, "Error processing message", "worker", w.name, "error", err)
		select {
		case <-ctx.Done():
		case <-time.After(w.backoff):
		}
	}
}
