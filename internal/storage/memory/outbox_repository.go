package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// outboxEntry хранит сообщение и его служебное состояние.
// seq фиксирует порядок постановки в очередь: createdAt может совпадать
// у сообщений, записанных в один момент.
type outboxEntry struct {
	msg        domain.OutboxMessage
	status     string
	attemptCnt int
	seq        uint64
	createdAt  time.Time
	updatedAt  time.Time
}

// outboxQueue — in-memory реализация transactional outbox.
type outboxQueue struct {
	mu      sync.RWMutex
	entries map[string]*outboxEntry
	nextSeq uint64
}

// NewOutboxRepository создаёт in-memory реализацию outbox.
func NewOutboxRepository() *outboxQueue {
	return &outboxQueue{entries: make(map[string]*outboxEntry)}
}

// Enqueue сохраняет событие в статусе pending. Пустой ID заполняется UUID.
func (q *outboxQueue) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	q.nextSeq++
	q.entries[msg.ID] = &outboxEntry{
		msg:       msg,
		status:    "pending",
		seq:       q.nextSeq,
		createdAt: now,
		updatedAt: now,
	}
	return msg, nil
}

// PullPending возвращает до limit непубликованных сообщений
// в порядке постановки в очередь.
func (q *outboxQueue) PullPending(limit int) ([]domain.OutboxMessage, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	pending := make([]*outboxEntry, 0, len(q.entries))
	for _, entry := range q.entries {
		if entry.status == "pending" {
			pending = append(pending, entry)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].seq < pending[j].seq
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}

	result := make([]domain.OutboxMessage, 0, len(pending))
	for _, entry := range pending {
		result = append(result, entry.msg)
	}
	return result, nil
}

// Stats возвращает размер backlog и время самого старого pending-сообщения.
func (q *outboxQueue) Stats() (domain.OutboxStats, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var stats domain.OutboxStats
	for _, entry := range q.entries {
		if entry.status != "pending" {
			continue
		}
		stats.PendingCount++
		if stats.OldestPendingAt.IsZero() || entry.createdAt.Before(stats.OldestPendingAt) {
			stats.OldestPendingAt = entry.createdAt
		}
	}
	return stats, nil
}

// MarkSent фиксирует успешную публикацию события.
func (q *outboxQueue) MarkSent(id string) error {
	return q.setStatus(id, "sent")
}

// MarkFailed фиксирует неудачную попытку публикации.
func (q *outboxQueue) MarkFailed(id string) error {
	return q.setStatus(id, "failed")
}

func (q *outboxQueue) setStatus(id, status string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[id]
	if !ok {
		return domain.ErrOutboxMessageNotFound
	}
	entry.status = status
	entry.attemptCnt++
	entry.updatedAt = time.Now().UTC()
	return nil
}

// AllPending возвращает все pending-сообщения, удобно в тестах.
func (q *outboxQueue) AllPending() []domain.OutboxMessage {
	q.mu.RLock()
	total := len(q.entries)
	q.mu.RUnlock()

	result, _ := q.PullPending(total)
	return result
}

var _ domain.OutboxRepository = (*outboxQueue)(nil)
