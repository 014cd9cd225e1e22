package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale агрегирует продажу и её позиции. Все мутации проходят через методы
// агрегата, чтобы сумма продажи всегда совпадала с суммой позиций.
type Sale struct {
	ID         string
	SaleNumber string
	SaleDate   time.Time
	Customer   string
	Branch     string
	// TotalAmount равен сумме TotalItemAmount всех позиций на момент добавления.
	// Отмена позиции сумму НЕ пересчитывает — это зафиксированное поведение.
	TotalAmount decimal.Decimal
	Cancelled   bool
	Items       []SaleItem
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSale создаёт продажу с заголовочными полями и пустым списком позиций.
func NewSale(saleNumber string, saleDate time.Time, customer, branch string) Sale {
	now := time.Now().UTC()
	return Sale{
		ID:          uuid.NewString(),
		SaleNumber:  saleNumber,
		SaleDate:    saleDate,
		Customer:    customer,
		Branch:      branch,
		TotalAmount: decimal.Zero,
		Cancelled:   false,
		Items:       []SaleItem{},
		Version:     0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AddItem добавляет позицию и увеличивает сумму продажи на её итог.
func (s *Sale) AddItem(item SaleItem) {
	s.Items = append(s.Items, item)
	s.TotalAmount = s.TotalAmount.Add(item.TotalItemAmount)
}

// Cancel отменяет продажу. Переход только false→true; повторная отмена
// возвращает ErrSaleAlreadyCancelled. Позиции при этом не отменяются.
func (s *Sale) Cancel() error {
	if s.Cancelled {
		return ErrSaleAlreadyCancelled
	}
	s.Cancelled = true
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateHeader перезаписывает заголовочные поля продажи.
// Состав позиций при обновлении не меняется; после вызова агрегат должен
// пройти ValidateHeader перед сохранением.
func (s *Sale) UpdateHeader(saleNumber string, saleDate time.Time, customer, branch string) {
	s.SaleNumber = saleNumber
	s.SaleDate = saleDate
	s.Customer = customer
	s.Branch = branch
	s.UpdatedAt = time.Now().UTC()
}

// CancelItem отменяет позицию продажи по идентификатору.
// Сумма продажи не пересчитывается и флаг Cancelled продажи не меняется.
func (s *Sale) CancelItem(itemID string) (SaleItem, error) {
	for i := range s.Items {
		if s.Items[i].ID != itemID {
			continue
		}
		if err := s.Items[i].Cancel(); err != nil {
			return SaleItem{}, err
		}
		s.UpdatedAt = time.Now().UTC()
		return s.Items[i], nil
	}
	return SaleItem{}, ErrSaleItemNotFound
}

// Item возвращает позицию по идентификатору.
func (s *Sale) Item(itemID string) (SaleItem, bool) {
	for i := range s.Items {
		if s.Items[i].ID == itemID {
			return s.Items[i], true
		}
	}
	return SaleItem{}, false
}

// Validate выполняет полную проверку агрегата, включая позиции.
func (s *Sale) Validate() []FieldError {
	return ValidateSale(s)
}

// ValidateHeader проверяет только заголовочные поля (используется при обновлении).
func (s *Sale) ValidateHeader() []FieldError {
	return ValidateSaleHeader(s)
}
