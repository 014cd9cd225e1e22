package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// fakeOutbox — репозиторий outbox с заранее заданным backlog.
type fakeOutbox struct {
	pending   []domain.OutboxMessage
	sentIDs   []string
	failedIDs []string
}

var _ domain.OutboxRepository = (*fakeOutbox)(nil)

func (f *fakeOutbox) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	return msg, nil
}

func (f *fakeOutbox) PullPending(limit int) ([]domain.OutboxMessage, error) {
	batch := f.pending
	if limit > 0 && limit < len(batch) {
		batch = batch[:limit]
	}
	return append([]domain.OutboxMessage(nil), batch...), nil
}

func (f *fakeOutbox) Stats() (domain.OutboxStats, error) {
	stats := domain.OutboxStats{PendingCount: len(f.pending)}
	if len(f.pending) > 0 {
		stats.OldestPendingAt = time.Now().UTC().Add(-time.Second)
	}
	return stats, nil
}

func (f *fakeOutbox) MarkSent(id string) error {
	f.sentIDs = append(f.sentIDs, id)
	return nil
}

func (f *fakeOutbox) MarkFailed(id string) error {
	f.failedIDs = append(f.failedIDs, id)
	return nil
}

// fakeSink — publisher, отдающий ошибки по сценарию: сперва из очереди
// perAttempt, затем постоянную err.
type fakeSink struct {
	mu         sync.Mutex
	err        error
	perAttempt []error
	callCount  int
	payloads   [][]byte
}

var _ domain.OutboxPublisher = (*fakeSink)(nil)

func (f *fakeSink) Publish(msg domain.OutboxMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.callCount++
	f.payloads = append(f.payloads, msg.Payload)

	if len(f.perAttempt) > 0 {
		err := f.perAttempt[0]
		f.perAttempt = f.perAttempt[1:]
		return err
	}
	return f.err
}

func (f *fakeSink) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}

func (f *fakeSink) lastPayload() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return nil
	}
	return f.payloads[len(f.payloads)-1]
}

func pendingSaleMessage(id, saleID, eventType string) domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            id,
		AggregateType: "sale",
		AggregateID:   saleID,
		EventType:     eventType,
		Payload:       []byte(`{"sale_id":"` + saleID + `"}`),
	}
}

func TestProcessOnceMarksDeliveredMessageSent(t *testing.T) {
	t.Parallel()

	repo := &fakeOutbox{pending: []domain.OutboxMessage{
		pendingSaleMessage("msg-1", "sale-1", "SaleCreated"),
	}}
	sink := &fakeSink{}

	worker := NewWorker(repo, sink, WithRetryBaseDelay(0), WithMaxAttempts(3))
	worker.ProcessOnce(context.Background())

	if sink.calls() != 1 {
		t.Fatalf("publish calls = %d, want 1", sink.calls())
	}
	if len(repo.sentIDs) != 1 || repo.sentIDs[0] != "msg-1" {
		t.Fatalf("sent ids = %v, want [msg-1]", repo.sentIDs)
	}
	if len(repo.failedIDs) != 0 {
		t.Fatalf("failed ids = %v, want none", repo.failedIDs)
	}
}

func TestProcessOnceRecoversAfterTransientErrors(t *testing.T) {
	t.Parallel()

	repo := &fakeOutbox{pending: []domain.OutboxMessage{
		pendingSaleMessage("msg-3", "sale-3", "SaleCreated"),
	}}
	sink := &fakeSink{perAttempt: []error{
		errors.New("broker hiccup"),
		errors.New("broker hiccup"),
		nil,
	}}

	worker := NewWorker(repo, sink, WithRetryBaseDelay(0), WithMaxAttempts(3))
	worker.ProcessOnce(context.Background())

	if sink.calls() != 3 {
		t.Fatalf("publish calls = %d, want 3", sink.calls())
	}
	if len(repo.sentIDs) != 1 {
		t.Fatalf("sent ids = %v, want one entry", repo.sentIDs)
	}
	if len(repo.failedIDs) != 0 {
		t.Fatalf("failed ids = %v, want none", repo.failedIDs)
	}
}

func TestProcessOnceRoutesExhaustedMessageToDLQ(t *testing.T) {
	t.Parallel()

	repo := &fakeOutbox{pending: []domain.OutboxMessage{
		pendingSaleMessage("msg-2", "sale-2", "SaleCancelled"),
	}}
	sink := &fakeSink{err: errors.New("publish failed")}
	dlq := &fakeSink{}

	worker := NewWorker(repo, sink,
		WithDLQPublisher(dlq),
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
	)
	worker.ProcessOnce(context.Background())

	if sink.calls() != 3 {
		t.Fatalf("publish calls = %d, want 3", sink.calls())
	}
	if len(repo.sentIDs) != 0 {
		t.Fatalf("sent ids = %v, want none", repo.sentIDs)
	}
	if len(repo.failedIDs) != 1 || repo.failedIDs[0] != "msg-2" {
		t.Fatalf("failed ids = %v, want [msg-2]", repo.failedIDs)
	}
	if dlq.calls() != 1 {
		t.Fatalf("dlq publish calls = %d, want 1", dlq.calls())
	}
}

func TestDLQPayloadPreservesOriginalEvent(t *testing.T) {
	t.Parallel()

	original := `{"sale_item_id":"item-1","sale_id":"sale-4"}`
	repo := &fakeOutbox{pending: []domain.OutboxMessage{{
		ID:            "msg-4",
		AggregateType: "sale",
		AggregateID:   "sale-4",
		EventType:     "ItemCancelled",
		Payload:       []byte(original),
	}}}
	sink := &fakeSink{err: errors.New("broker down")}
	dlq := &fakeSink{}

	worker := NewWorker(repo, sink,
		WithDLQPublisher(dlq),
		WithRetryBaseDelay(0),
		WithMaxAttempts(1),
	)
	worker.ProcessOnce(context.Background())

	if dlq.calls() != 1 {
		t.Fatalf("dlq publish calls = %d, want 1", dlq.calls())
	}

	var envelope struct {
		OutboxID     string          `json:"outbox_id"`
		EventType    string          `json:"event_type"`
		Payload      json.RawMessage `json:"payload"`
		PublishError string          `json:"publish_error"`
	}
	if err := json.Unmarshal(dlq.lastPayload(), &envelope); err != nil {
		t.Fatalf("unmarshal dlq payload: %v", err)
	}
	if envelope.OutboxID != "msg-4" {
		t.Fatalf("outbox_id = %s, want msg-4", envelope.OutboxID)
	}
	if envelope.EventType != "ItemCancelled" {
		t.Fatalf("event_type = %s, want ItemCancelled", envelope.EventType)
	}
	if string(envelope.Payload) != original {
		t.Fatalf("payload = %s, want original event", envelope.Payload)
	}
	if envelope.PublishError == "" {
		t.Fatal("publish_error is empty, want recorded error")
	}
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	worker := NewWorker(&fakeOutbox{}, &fakeSink{},
		WithPollInterval(5*time.Millisecond),
		WithRetryBaseDelay(0),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}
