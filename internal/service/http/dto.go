package httpsvc

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// CreateSaleRequest — тело POST /sales.
type CreateSaleRequest struct {
	SaleNumber string              `json:"sale_number"`
	SaleDate   time.Time           `json:"sale_date"`
	Customer   string              `json:"customer"`
	Branch     string              `json:"branch"`
	Items      []CreateItemRequest `json:"items"`
}

// CreateItemRequest — позиция в запросе создания продажи.
type CreateItemRequest struct {
	Product   string          `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// UpdateSaleRequest — тело PUT /sales/:id. Позиции через обновление не меняются.
type UpdateSaleRequest struct {
	SaleNumber string    `json:"sale_number"`
	SaleDate   time.Time `json:"sale_date"`
	Customer   string    `json:"customer"`
	Branch     string    `json:"branch"`
}

// SaleResponse — представление продажи в ответах API.
type SaleResponse struct {
	ID          string          `json:"id"`
	SaleNumber  string          `json:"sale_number"`
	SaleDate    time.Time       `json:"sale_date"`
	Customer    string          `json:"customer"`
	Branch      string          `json:"branch"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Cancelled   bool            `json:"cancelled"`
	Items       []ItemResponse  `json:"items"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ItemResponse — представление позиции продажи.
type ItemResponse struct {
	ID              string          `json:"id"`
	SaleID          string          `json:"sale_id"`
	Product         string          `json:"product"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Discount        decimal.Decimal `json:"discount"`
	TotalItemAmount decimal.Decimal `json:"total_item_amount"`
	Cancelled       bool            `json:"cancelled"`
}

// OperationResponse — ответ мутирующих операций.
type OperationResponse struct {
	SaleID     string `json:"sale_id"`
	SaleItemID string `json:"sale_item_id,omitempty"`
	Message    string `json:"message"`
}

// ErrorResponse — ответ об ошибке; Details заполняется для ошибок валидации.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Details []domain.FieldError `json:"details,omitempty"`
}

func toSaleResponse(sale domain.Sale) SaleResponse {
	items := make([]ItemResponse, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, toItemResponse(item))
	}

	return SaleResponse{
		ID:          sale.ID,
		SaleNumber:  sale.SaleNumber,
		SaleDate:    sale.SaleDate,
		Customer:    sale.Customer,
		Branch:      sale.Branch,
		TotalAmount: sale.TotalAmount,
		Cancelled:   sale.Cancelled,
		Items:       items,
		Version:     sale.Version,
		CreatedAt:   sale.CreatedAt,
		UpdatedAt:   sale.UpdatedAt,
	}
}

func toItemResponse(item domain.SaleItem) ItemResponse {
	return ItemResponse{
		ID:              item.ID,
		SaleID:          item.SaleID,
		Product:         item.Product,
		Quantity:        item.Quantity,
		UnitPrice:       item.UnitPrice,
		Discount:        item.Discount,
		TotalItemAmount: item.TotalItemAmount,
		Cancelled:       item.Cancelled,
	}
}
