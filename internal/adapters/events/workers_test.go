package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/viralforge/reelpay/internal/adapters/memory"
	"github.com/viralforge/reelpay/internal/application"
	"github.com/viralforge/reelpay/internal/domain"
	"github.com/viralforge/reelpay/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func enqueue(t *testing.T, store ports.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := store.WithinTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
			return tx.Outbox().Enqueue(ctx, ports.OutboxEvent{EventType: domain.EventOrderSettled, PartitionKey: "order-1", Payload: []byte(`{}`), OccurredAt: time.Now()})
		})
		if err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
}

func TestOutboxWorkerPublishesOnce(t *testing.T) {
	store := memory.NewStore()
	pub := NewMemoryPublisher()
	enqueue(t, store, 3)
	w := NewOutboxWorker(discardLogger(), store, pub, time.Second, 10)

	n, err := w.ProcessOnce(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("expected 3 delivered, got %d (%v)", n, err)
	}
	if n, _ := w.ProcessOnce(context.Background()); n != 0 {
		t.Fatalf("expected nothing left to publish, got %d", n)
	}
	if got := len(pub.Events()); got != 3 {
		t.Fatalf("expected 3 published events, got %d", got)
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, []byte, string) error {
	return errors.New("broker unavailable")
}

func TestOutboxWorkerRecordsFailures(t *testing.T) {
	store := memory.NewStore()
	enqueue(t, store, 1)
	w := NewOutboxWorker(discardLogger(), store, failingPublisher{}, time.Second, 10)
	if n, err := w.ProcessOnce(context.Background()); err != nil || n != 0 {
		t.Fatalf("expected 0 delivered, got %d (%v)", n, err)
	}
	_ = store.WithinTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		rows, _ := tx.Outbox().FetchUnpublished(ctx, 10)
		if len(rows) != 1 || rows[0].RetryCount != 1 || rows[0].LastError == nil {
			t.Fatalf("expected one failed row with retry count 1, got %+v", rows)
		}
		return nil
	})
}

type stubConsumer struct {
	batch     []Message
	committed int
}

func (c *stubConsumer) Poll(context.Context, int) ([]Message, error) {
	out := c.batch
	c.batch = nil
	return out, nil
}

func (c *stubConsumer) Commit(_ context.Context, msgs []Message) error {
	c.committed += len(msgs)
	return nil
}

type stubHandler struct {
	calls []application.Actor
	err   error
}

func (h *stubHandler) HandleOrderApproved(_ context.Context, backend application.Actor, _ []byte) error {
	h.calls = append(h.calls, backend)
	return h.err
}

func TestConsumerWorkerRoutesApprovedOrders(t *testing.T) {
	consumer := &stubConsumer{batch: []Message{
		{Topic: domain.EventOrderApproved, Payload: []byte(`{}`)},
		{Topic: "other.topic", Payload: []byte(`{}`)},
	}}
	handler := &stubHandler{err: domain.ErrInsufficientEscrow}
	backend := application.Actor{Account: "0xbackend"}
	w := NewConsumerWorker(discardLogger(), consumer, handler, backend, "", time.Second)

	if err := w.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if len(handler.calls) != 1 || handler.calls[0].Account != "0xbackend" {
		t.Fatalf("unexpected handler calls: %+v", handler.calls)
	}
	if consumer.committed != 2 {
		t.Fatalf("expected batch committed, got %d", consumer.committed)
	}
}

// streamConsumer behaves like a kafka reader: every Poll moves the position
// forward whether or not the previous batch was committed.
type streamConsumer struct {
	stream    []Message
	pos       int
	batch     int
	committed []string
	pollErr   error
}

func (c *streamConsumer) Poll(_ context.Context, max int) ([]Message, error) {
	n := c.batch
	if n <= 0 || n > max {
		n = max
	}
	end := c.pos + n
	if end > len(c.stream) {
		end = len(c.stream)
	}
	out := c.stream[c.pos:end]
	c.pos = end
	if c.pollErr != nil {
		err := c.pollErr
		c.pollErr = nil
		return out, err
	}
	return out, nil
}

func (c *streamConsumer) Commit(_ context.Context, msgs []Message) error {
	for _, m := range msgs {
		c.committed = append(c.committed, string(m.Key))
	}
	return nil
}

// flakyHandler fails each listed key once with an infrastructure error.
type flakyHandler struct {
	failOnce map[string]bool
	settled  []string
}

func (h *flakyHandler) HandleOrderApproved(_ context.Context, _ application.Actor, raw []byte) error {
	key := string(raw)
	if h.failOnce[key] {
		delete(h.failOnce, key)
		return errors.New("connection reset")
	}
	h.settled = append(h.settled, key)
	return nil
}

func approved(keys ...string) []Message {
	out := make([]Message, 0, len(keys))
	for _, k := range keys {
		out = append(out, Message{Topic: domain.EventOrderApproved, Key: []byte(k), Payload: []byte(k)})
	}
	return out
}

func TestConsumerWorkerRetriesFailedMessageBeforeLaterCommits(t *testing.T) {
	consumer := &streamConsumer{stream: approved("a", "b", "c", "d"), batch: 3}
	handler := &flakyHandler{failOnce: map[string]bool{"b": true}}
	w := NewConsumerWorker(discardLogger(), consumer, handler, application.Actor{Account: "0xbackend"}, "", time.Second)
	ctx := context.Background()

	if err := w.ProcessOnce(ctx); err == nil {
		t.Fatalf("expected infrastructure error to surface")
	}
	if len(consumer.committed) != 1 || consumer.committed[0] != "a" {
		t.Fatalf("only the handled prefix may be committed, got %v", consumer.committed)
	}

	if err := w.ProcessOnce(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if err := w.ProcessOnce(ctx); err != nil {
		t.Fatalf("next batch: %v", err)
	}
	want := []string{"a", "b", "c", "d"}
	if len(handler.settled) != len(want) || len(consumer.committed) != len(want) {
		t.Fatalf("settled %v committed %v", handler.settled, consumer.committed)
	}
	for i, k := range want {
		if handler.settled[i] != k || consumer.committed[i] != k {
			t.Fatalf("out of order: settled %v committed %v", handler.settled, consumer.committed)
		}
	}
}

func TestConsumerWorkerKeepsMessagesFetchedBeforePollError(t *testing.T) {
	consumer := &streamConsumer{stream: approved("a", "b"), pollErr: errors.New("broker timeout")}
	handler := &flakyHandler{failOnce: map[string]bool{}}
	w := NewConsumerWorker(discardLogger(), consumer, handler, application.Actor{Account: "0xbackend"}, "", time.Second)
	ctx := context.Background()

	if err := w.ProcessOnce(ctx); err == nil {
		t.Fatalf("expected poll error")
	}
	if len(consumer.committed) != 0 {
		t.Fatalf("nothing may be committed after a poll error, got %v", consumer.committed)
	}
	if err := w.ProcessOnce(ctx); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if len(handler.settled) != 2 || len(consumer.committed) != 2 {
		t.Fatalf("fetched messages were dropped: settled %v committed %v", handler.settled, consumer.committed)
	}
}
