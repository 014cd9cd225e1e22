package domain

import "time"

// OutboxMessage — событие, ожидающее публикации из transactional outbox.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущий backlog непубликованных событий.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// SaleRepository описывает требования к хранилищу продаж.
type SaleRepository interface {
	// Create сохраняет новую продажу вместе с позициями.
	Create(sale Sale) error
	// Get возвращает продажу с позициями или ErrSaleNotFound.
	Get(id string) (Sale, error)
	// Save применяет обновления с учётом optimistic locking.
	Save(sale Sale) error
	// Delete удаляет продажу и её позиции.
	Delete(id string) error
}

// OutboxRepository хранит события до момента их публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxPublisher доставляет события из outbox во внешний транспорт.
// Publish может вызываться повторно для одного события, реализация
// обязана это переживать.
type OutboxPublisher interface {
	Publish(event OutboxMessage) error
}

// TimelineRepository хранит хронологию жизненного цикла продажи.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(saleID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}
