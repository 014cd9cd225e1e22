package domain

import "errors"

var (
	// ErrSaleNotFound возвращается, если продажа не найдена в репозитории.
	ErrSaleNotFound = errors.New("sale not found")
	// ErrSaleItemNotFound возвращается, если позиция не найдена в рамках продажи.
	ErrSaleItemNotFound = errors.New("sale item not found")
	// ErrSaleVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrSaleVersionConflict = errors.New("sale version conflict")
	// ErrSaleAlreadyCancelled — попытка повторной отмены продажи.
	ErrSaleAlreadyCancelled = errors.New("sale is already cancelled")
	// ErrSaleItemAlreadyCancelled — попытка повторной отмены позиции.
	ErrSaleItemAlreadyCancelled = errors.New("sale item is already cancelled")
	// ErrQuantityAboveLimit — количество выходит за верхнюю границу политики скидок.
	ErrQuantityAboveLimit = errors.New("quantity is above the discount policy limit")

	// ErrOutboxMessageNotFound возвращается при обновлении несуществующей записи outbox.
	ErrOutboxMessageNotFound = errors.New("outbox message not found")

	// ErrIdempotencyKeyRequired — пустой idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой hash запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyNotFound — запись по ключу отсутствует.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyKeyAlreadyExists — ключ уже занят другим запросом в обработке.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency request hash mismatch")
)
