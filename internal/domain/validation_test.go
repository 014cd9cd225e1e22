package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

func hasFieldError(errs []domain.FieldError, field string) bool {
	for _, fe := range errs {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func TestValidateSale_Ok(t *testing.T) {
	sale := makeSale(t)
	if errs := sale.Validate(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestValidateSale_Errors(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(s *domain.Sale)
		field string
	}{
		{
			name:  "empty sale number",
			mut:   func(s *domain.Sale) { s.SaleNumber = "" },
			field: "SaleNumber",
		},
		{
			name:  "sale number too long",
			mut:   func(s *domain.Sale) { s.SaleNumber = strings.Repeat("N", 51) },
			field: "SaleNumber",
		},
		{
			name:  "zero sale date",
			mut:   func(s *domain.Sale) { s.SaleDate = time.Time{} },
			field: "SaleDate",
		},
		{
			name:  "empty customer",
			mut:   func(s *domain.Sale) { s.Customer = "" },
			field: "Customer",
		},
		{
			name:  "customer too long",
			mut:   func(s *domain.Sale) { s.Customer = strings.Repeat("C", 101) },
			field: "Customer",
		},
		{
			name:  "empty branch",
			mut:   func(s *domain.Sale) { s.Branch = "" },
			field: "Branch",
		},
		{
			name:  "branch too long",
			mut:   func(s *domain.Sale) { s.Branch = strings.Repeat("B", 101) },
			field: "Branch",
		},
		{
			name:  "negative total",
			mut:   func(s *domain.Sale) { s.TotalAmount = decimal.RequireFromString("-1") },
			field: "TotalAmount",
		},
		{
			name:  "no items",
			mut:   func(s *domain.Sale) { s.Items = nil },
			field: "Items",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sale := makeSale(t)
			tc.mut(&sale)

			errs := sale.Validate()
			if !hasFieldError(errs, tc.field) {
				t.Fatalf("expected error on field %s, got %v", tc.field, errs)
			}
		})
	}
}

func TestValidateSaleHeader_SkipsItemsRule(t *testing.T) {
	sale := domain.NewSale("SALE-010", time.Now().UTC(), "ACME Corp", "Main Branch")

	// Полная валидация требует позиции, заголовочная — нет.
	if errs := sale.Validate(); !hasFieldError(errs, "Items") {
		t.Fatalf("expected items error from full validation, got %v", errs)
	}
	if errs := sale.ValidateHeader(); len(errs) != 0 {
		t.Fatalf("expected no header errors, got %v", errs)
	}
}

func TestValidateSaleItem_Errors(t *testing.T) {
	makeItem := func() domain.SaleItem {
		price := decimal.RequireFromString("20")
		discount := decimal.RequireFromString("10")
		total := decimal.RequireFromString("90")
		return domain.NewSaleItem("sale-1", "Beer Crate", 5, price, discount, total)
	}

	cases := []struct {
		name  string
		mut   func(i *domain.SaleItem)
		field string
	}{
		{
			name:  "empty product",
			mut:   func(i *domain.SaleItem) { i.Product = "" },
			field: "Product",
		},
		{
			name:  "product too long",
			mut:   func(i *domain.SaleItem) { i.Product = strings.Repeat("P", 101) },
			field: "Product",
		},
		{
			name: "quantity below bound",
			mut: func(i *domain.SaleItem) {
				i.Quantity = 0
				i.TotalItemAmount = i.Discount.Neg()
			},
			field: "Quantity",
		},
		{
			name:  "quantity above bound",
			mut:   func(i *domain.SaleItem) { i.Quantity = 25 },
			field: "Quantity",
		},
		{
			name:  "negative unit price",
			mut:   func(i *domain.SaleItem) { i.UnitPrice = decimal.RequireFromString("-1") },
			field: "UnitPrice",
		},
		{
			name:  "negative discount",
			mut:   func(i *domain.SaleItem) { i.Discount = decimal.RequireFromString("-1") },
			field: "Discount",
		},
		{
			name:  "total mismatch",
			mut:   func(i *domain.SaleItem) { i.TotalItemAmount = decimal.RequireFromString("1") },
			field: "TotalItemAmount",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := makeItem()
			tc.mut(&item)

			errs := item.Validate()
			if !hasFieldError(errs, tc.field) {
				t.Fatalf("expected error on field %s, got %v", tc.field, errs)
			}
		})
	}
}

func TestValidateSaleItem_Ok(t *testing.T) {
	price := decimal.RequireFromString("20")
	discount := decimal.RequireFromString("10")
	total := decimal.RequireFromString("90")
	item := domain.NewSaleItem("sale-1", "Beer Crate", 5, price, discount, total)

	if errs := item.Validate(); len(errs) != 0 {
		t.Fatalf("expected valid item, got %v", errs)
	}
}

// Имена полей и тексты сообщений — внешний API-контракт,
// клиенты матчатся на них дословно.
func TestValidationFieldContract(t *testing.T) {
	sale := makeSale(t)
	sale.SaleNumber = ""
	sale.Items[0].Product = strings.Repeat("P", 101)
	sale.Items[0].Quantity = 21

	errs := sale.Validate()

	want := []domain.FieldError{
		{Field: "SaleNumber", Message: "Sale number is required!"},
		{Field: "Product", Message: "Product must not exceed 100 charcters."},
		{Field: "Quantity", Message: "Quantity must be between 1 and 20."},
	}
	for _, expected := range want {
		found := false
		for _, fe := range errs {
			if fe == expected {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected %+v in validation errors, got %+v", expected, errs)
		}
	}
}

func TestNewValidationError(t *testing.T) {
	if err := domain.NewValidationError(nil); err != nil {
		t.Fatalf("expected nil for empty list, got %v", err)
	}

	err := domain.NewValidationError([]domain.FieldError{{Field: "Customer", Message: "Customer is required!"}})
	if err == nil {
		t.Fatal("expected error for non-empty list")
	}
	if !strings.Contains(err.Error(), "Customer") {
		t.Fatalf("expected field name in message, got %q", err.Error())
	}
}
