package application

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/reelpay/internal/contracts"
	"github.com/viralforge/reelpay/internal/domain"
	"github.com/viralforge/reelpay/internal/ports"
)

// enqueueEvent writes into the transactional outbox, so an aborted operation
// never publishes.
func enqueueEvent(ctx context.Context, tx ports.Tx, cfg Config, eventType, traceID string, data any, partitionKey string, now time.Time) error {
	if !domain.IsCanonicalEmittedEvent(eventType) {
		return domain.ErrInvalidInput
	}
	b, err := json.Marshal(data)
	if err != nil {
		return domain.ErrInvalidInput
	}
	if strings.TrimSpace(traceID) == "" {
		traceID = uuid.NewString()
	}
	env := contracts.EventEnvelope{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		EventClass:       domain.CanonicalEventClass(eventType),
		OccurredAt:       now,
		PartitionKeyPath: domain.CanonicalPartitionKeyPath(eventType),
		PartitionKey:     partitionKey,
		SourceService:    cfg.ServiceName,
		TraceID:          traceID,
		SchemaVersion:    "v1",
		Data:             b,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return domain.ErrInvalidInput
	}
	return tx.Outbox().Enqueue(ctx, ports.OutboxEvent{
		EventID:          uuid.MustParse(env.EventID),
		EventType:        eventType,
		EventClass:       env.EventClass,
		PartitionKey:     partitionKey,
		PartitionKeyPath: env.PartitionKeyPath,
		Payload:          payload,
		OccurredAt:       now,
		SchemaVersion:    env.SchemaVersion,
		TraceID:          traceID,
	})
}

func validateEnvelope(event contracts.EventEnvelope) error {
	if strings.TrimSpace(event.EventID) == "" || strings.TrimSpace(event.EventType) == "" || event.OccurredAt.IsZero() {
		return domain.ErrInvalidInput
	}
	if len(event.Data) == 0 {
		return domain.ErrInvalidInput
	}
	return nil
}
