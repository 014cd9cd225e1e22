package sales

// Имена публикуемых событий. Попадают в outbox как EventType и в timeline
// как тип события.
const (
	EventSaleCreated   = "SaleCreated"
	EventSaleCancelled = "SaleCancelled"
	EventItemCancelled = "ItemCancelled"
)

const aggregateTypeSale = "sale"

// SaleCreatedEvent — payload события создания продажи.
type SaleCreatedEvent struct {
	SaleID string `json:"sale_id"`
}

// SaleCancelledEvent — payload события отмены продажи.
type SaleCancelledEvent struct {
	SaleID string `json:"sale_id"`
}

// ItemCancelledEvent — payload события отмены позиции продажи.
type ItemCancelledEvent struct {
	SaleItemID string `json:"sale_item_id"`
	SaleID     string `json:"sale_id"`
}
