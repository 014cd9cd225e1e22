package kafka

import "time"

// EventType — тип доменного события продажи в топике.
type EventType string

const (
	EventTypeSaleCreated   EventType = "sale.created"
	EventTypeSaleUpdated   EventType = "sale.updated"
	EventTypeSaleCancelled EventType = "sale.cancelled"
	EventTypeSaleDeleted   EventType = "sale.deleted"
	EventTypeItemCancelled EventType = "sale.item.cancelled"
)

// Топики сервиса. В DLQ попадают сообщения, которые не удалось опубликовать.
const (
	TopicSaleEvents      = "sales.sale.events"
	TopicDeadLetterQueue = "sales.dlq"
)

// Заголовки для retry-логики потребителей.
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// SaleEvent описывает событие жизненного цикла продажи.
type SaleEvent struct {
	EventType EventType              `json:"event_type"`
	SaleID    string                 `json:"sale_id"`
	Customer  string                 `json:"customer,omitempty"`
	Branch    string                 `json:"branch,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ItemEvent описывает событие отдельной позиции продажи.
type ItemEvent struct {
	EventType  EventType              `json:"event_type"`
	SaleID     string                 `json:"sale_id"`
	SaleItemID string                 `json:"sale_item_id"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewSaleEvent создает событие продажи с текущим временем.
func NewSaleEvent(eventType EventType, saleID, customer, branch string, metadata map[string]interface{}) *SaleEvent {
	return &SaleEvent{
		EventType: eventType,
		SaleID:    saleID,
		Customer:  customer,
		Branch:    branch,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// NewItemEvent создает событие позиции продажи с текущим временем.
func NewItemEvent(eventType EventType, saleID, saleItemID string, metadata map[string]interface{}) *ItemEvent {
	return &ItemEvent{
		EventType:  eventType,
		SaleID:     saleID,
		SaleItemID: saleItemID,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}
