package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/viralforge/reelpay/internal/ports"
)

// OutboxWorker relays committed outbox rows to the publisher. Rows are read
// and marked in short transactions of their own so publishing never holds the
// ledger lock.
type OutboxWorker struct {
	logger    *slog.Logger
	store     ports.Store
	publisher ports.EventPublisher
	interval  time.Duration
	batchSize int
}

func NewOutboxWorker(logger *slog.Logger, store ports.Store, publisher ports.EventPublisher, interval time.Duration, batchSize int) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxWorker{
		logger: logger, store: store, publisher: publisher, interval: interval, batchSize: batchSize,
	}
}

func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if _, err := w.ProcessOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "outbox iteration failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessOnce publishes one batch and returns how many rows were delivered.
func (w *OutboxWorker) ProcessOnce(ctx context.Context) (int, error) {
	var records []ports.OutboxRecord
	err := w.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		records, err = tx.Outbox().FetchUnpublished(ctx, w.batchSize)
		return err
	})
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, rec := range records {
		pubErr := w.publisher.Publish(ctx, rec.EventType, rec.Payload, rec.PartitionKey)
		now := time.Now().UTC()
		markErr := w.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
			if pubErr != nil {
				return tx.Outbox().MarkFailed(ctx, rec.OutboxID, pubErr.Error(), now)
			}
			return tx.Outbox().MarkPublished(ctx, rec.OutboxID, now)
		})
		if pubErr != nil {
			w.logger.WarnContext(ctx, "outbox publish failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "publish",
				"outcome", "failure",
				"event_type", rec.EventType,
				"retry_count", rec.RetryCount+1,
				"error", pubErr,
			)
			continue
		}
		if markErr != nil {
			return delivered, markErr
		}
		delivered++
	}
	return delivered, nil
}
