package domain

import (
	"github.com/shopspring/decimal"
)

// Пороговые значения количеств для расчёта скидки.
const (
	discountTierSmallMin = 4
	discountTierLargeMin = 10
	// MaxItemQuantity — верхняя граница количества в одной позиции.
	// Выше неё политика скидок не определена, валидация отклоняет позицию раньше.
	MaxItemQuantity = 20
)

var (
	discountRateSmall = decimal.RequireFromString("0.10")
	discountRateLarge = decimal.RequireFromString("0.20")
)

// ComputeDiscount вычисляет скидку позиции по количеству и цене за единицу.
// Правила (первое совпадение выигрывает):
//   - quantity < 4  — скидки нет;
//   - 4..9          — 10% от quantity*unitPrice;
//   - 10..20        — 20% от quantity*unitPrice.
//
// Для quantity > 20 скидка не определена: возвращается ErrQuantityAboveLimit,
// такие позиции должны быть отклонены валидацией до вызова политики.
// Расчёт выполняется в точной десятичной арифметике без двоичных float.
func ComputeDiscount(quantity int, unitPrice decimal.Decimal) (decimal.Decimal, error) {
	if quantity > MaxItemQuantity {
		return decimal.Zero, ErrQuantityAboveLimit
	}
	if quantity < discountTierSmallMin {
		return decimal.Zero, nil
	}

	gross := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	if quantity < discountTierLargeMin {
		return gross.Mul(discountRateSmall), nil
	}
	return gross.Mul(discountRateLarge), nil
}
