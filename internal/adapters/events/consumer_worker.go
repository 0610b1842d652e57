package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/viralforge/reelpay/internal/application"
	"github.com/viralforge/reelpay/internal/domain"
)

type Message struct {
	Topic   string
	Key     []byte
	Payload []byte
	raw     kafka.Message
}

type Consumer interface {
	Poll(ctx context.Context, max int) ([]Message, error)
	Commit(ctx context.Context, msgs []Message) error
}

type OrderApprovedHandler interface {
	HandleOrderApproved(ctx context.Context, backend application.Actor, raw []byte) error
}

// ConsumerWorker submits attested orders from the commerce backend. It acts
// with the configured backend account, so the BACKEND role check still
// applies to every message.
type ConsumerWorker struct {
	logger   *slog.Logger
	consumer Consumer
	handler  OrderApprovedHandler
	backend  application.Actor
	topic    string
	interval time.Duration

	// pending holds fetched messages not yet handled. The reader's position
	// has already moved past them, so they are retried from here rather
	// than polled again.
	pending []Message
}

func NewConsumerWorker(logger *slog.Logger, consumer Consumer, handler OrderApprovedHandler, backend application.Actor, topic string, interval time.Duration) *ConsumerWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if topic == "" {
		topic = domain.EventOrderApproved
	}
	return &ConsumerWorker{
		logger: logger, consumer: consumer, handler: handler, backend: backend, topic: topic, interval: interval,
	}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.ProcessOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "consumer iteration failed",
				"module", "events.consumer_worker",
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

// ProcessOnce handles one batch. Messages that fail for business reasons are
// logged and committed. An infrastructure failure commits the handled prefix
// and keeps the failed message and everything after it pending; the next call
// retries them before polling again.
func (w *ConsumerWorker) ProcessOnce(ctx context.Context) error {
	if len(w.pending) == 0 {
		msgs, err := w.consumer.Poll(ctx, 50)
		w.pending = msgs
		if err != nil {
			return err
		}
	}
	handled := 0
	for _, msg := range w.pending {
		if err := w.handle(ctx, msg); err != nil {
			if commitErr := w.commit(ctx, handled); commitErr != nil {
				return errors.Join(err, commitErr)
			}
			return err
		}
		handled++
	}
	return w.commit(ctx, handled)
}

func (w *ConsumerWorker) handle(ctx context.Context, msg Message) error {
	if msg.Topic != w.topic {
		return nil
	}
	err := w.handler.HandleOrderApproved(ctx, w.backend, msg.Payload)
	if err == nil {
		return nil
	}
	if !isBusinessError(err) {
		return err
	}
	w.logger.WarnContext(ctx, "approved order rejected",
		"module", "events.consumer_worker",
		"layer", "adapter",
		"operation", "handle_order_approved",
		"outcome", "rejected",
		"partition_key", string(msg.Key),
		"error", err,
	)
	return nil
}

// commit acknowledges the first n pending messages and drops them.
func (w *ConsumerWorker) commit(ctx context.Context, n int) error {
	if n == 0 {
		return nil
	}
	if err := w.consumer.Commit(ctx, w.pending[:n]); err != nil {
		return err
	}
	w.pending = w.pending[n:]
	return nil
}

func isBusinessError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidInput, domain.ErrUnauthorized, domain.ErrUnknownAdvertiser,
		domain.ErrUnknownMarketer, domain.ErrInvalidRate, domain.ErrInsufficientEscrow,
		domain.ErrOrderAlreadyProcessed, domain.ErrEngineNotConfigured, domain.ErrPlatformNotConfigured,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
