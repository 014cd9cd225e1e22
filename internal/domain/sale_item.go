package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleItem представляет одну позицию продажи. Позиция живёт только внутри
// своего агрегата Sale; SaleID хранится как ключ для выборок, а не как
// обратная ссылка с собственным жизненным циклом.
type SaleItem struct {
	ID      string
	SaleID  string
	Product string
	// Quantity ограничено диапазоном [1, 20] правилами валидации.
	Quantity  int
	UnitPrice decimal.Decimal
	// Discount вычисляется политикой скидок при создании и далее не меняется.
	Discount decimal.Decimal
	// TotalItemAmount == Quantity*UnitPrice - Discount.
	TotalItemAmount decimal.Decimal
	Cancelled       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewSaleItem создаёт позицию, сохраняя поля как есть. Скидку и итог
// считает вызывающая сторона (use case создания продажи) до конструирования.
func NewSaleItem(saleID, product string, quantity int, unitPrice, discount, totalItemAmount decimal.Decimal) SaleItem {
	now := time.Now().UTC()
	return SaleItem{
		ID:              uuid.NewString(),
		SaleID:          saleID,
		Product:         product,
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		Discount:        discount,
		TotalItemAmount: totalItemAmount,
		Cancelled:       false,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Cancel отменяет позицию. Повторная отмена возвращает ErrSaleItemAlreadyCancelled.
func (i *SaleItem) Cancel() error {
	if i.Cancelled {
		return ErrSaleItemAlreadyCancelled
	}
	i.Cancelled = true
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Validate проверяет поля позиции.
func (i *SaleItem) Validate() []FieldError {
	return ValidateSaleItem(i)
}
