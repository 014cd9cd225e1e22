package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Максимальные длины строковых полей продажи.
const (
	maxSaleNumberLen = 50
	maxCustomerLen   = 100
	maxBranchLen     = 100
	maxProductLen    = 100
)

// FieldError описывает одно нарушенное правило: поле и сообщение.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError агрегирует список нарушений в одну ошибку для проброса
// через слои сервиса.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "sale validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError оборачивает список нарушений; для пустого списка возвращает nil.
func NewValidationError(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

// ValidateSale выполняет полную проверку продажи: заголовочные поля,
// наличие хотя бы одной позиции и правила каждой позиции.
func ValidateSale(sale *Sale) []FieldError {
	errs := ValidateSaleHeader(sale)

	if len(sale.Items) == 0 {
		errs = append(errs, FieldError{Field: "Items", Message: "At least one sale item is required."})
	}
	for _, item := range sale.Items {
		errs = append(errs, ValidateSaleItem(&item)...)
	}

	return errs
}

// ValidateSaleHeader проверяет только заголовочные поля продажи.
// Правило "хотя бы одна позиция" здесь не применяется, что позволяет
// обновлять заголовок без загрузки состава позиций.
func ValidateSaleHeader(sale *Sale) []FieldError {
	var errs []FieldError

	if sale.SaleNumber == "" {
		errs = append(errs, FieldError{Field: "SaleNumber", Message: "Sale number is required!"})
	} else if len(sale.SaleNumber) > maxSaleNumberLen {
		errs = append(errs, FieldError{Field: "SaleNumber", Message: "Sale number must not exceed 50 characters."})
	}

	if sale.SaleDate.IsZero() {
		errs = append(errs, FieldError{Field: "SaleDate", Message: "Sale date is required!"})
	}

	if sale.Customer == "" {
		errs = append(errs, FieldError{Field: "Customer", Message: "Customer is required!"})
	} else if len(sale.Customer) > maxCustomerLen {
		errs = append(errs, FieldError{Field: "Customer", Message: "Customer must not exceed 100 characters."})
	}

	if sale.Branch == "" {
		errs = append(errs, FieldError{Field: "Branch", Message: "Branch is required!"})
	} else if len(sale.Branch) > maxBranchLen {
		errs = append(errs, FieldError{Field: "Branch", Message: "Branch must not exceed 100 characters."})
	}

	if sale.TotalAmount.IsNegative() {
		errs = append(errs, FieldError{Field: "TotalAmount", Message: "Total amount must be non-negative"})
	}

	return errs
}

// ValidateSaleItem проверяет правила позиции, включая инвариант
// TotalItemAmount == Quantity*UnitPrice - Discount.
func ValidateSaleItem(item *SaleItem) []FieldError {
	var errs []FieldError

	if item.Product == "" {
		errs = append(errs, FieldError{Field: "Product", Message: "Product is required!"})
	} else if len(item.Product) > maxProductLen {
		errs = append(errs, FieldError{Field: "Product", Message: "Product must not exceed 100 charcters."})
	}

	if item.Quantity < 1 {
		errs = append(errs, FieldError{Field: "Quantity", Message: "Quantity must be 1 or more."})
	} else if item.Quantity > MaxItemQuantity {
		errs = append(errs, FieldError{Field: "Quantity", Message: "Quantity must be between 1 and 20."})
	}

	if item.UnitPrice.IsNegative() {
		errs = append(errs, FieldError{Field: "UnitPrice", Message: "Unit price must be non-negative."})
	}

	if item.Discount.IsNegative() {
		errs = append(errs, FieldError{Field: "Discount", Message: "Discount must be non-negative."})
	}

	if item.TotalItemAmount.IsNegative() {
		errs = append(errs, FieldError{Field: "TotalItemAmount", Message: "Total item amount must be non-negative."})
	}

	expected := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Sub(item.Discount)
	if !item.TotalItemAmount.Equal(expected) {
		errs = append(errs, FieldError{Field: "TotalItemAmount", Message: "Total item amount does not match quantity*unitPrice-discount."})
	}

	return errs
}
