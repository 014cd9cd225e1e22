package sales

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sales/internal/domain"
	"github.com/vladislavdragonenkov/sales/internal/metrics"
)

// Сообщения ответов use case'ов.
const (
	MessageSaleCreated       = "Sale created successfully."
	MessageSaleUpdated       = "Sale updated successfully."
	MessageSaleCancelled     = "Sale cancelled successfully."
	MessageSaleItemCancelled = "Sale item cancelled successfully."
	MessageSaleDeleted       = "Sale deleted successfully."
)

// Service реализует use case'ы продаж поверх доменного репозитория.
// События пишутся в transactional outbox после успешного сохранения
// агрегата; ошибка записи события не откатывает операцию.
type Service struct {
	repo     domain.SaleRepository
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
	metrics  *metrics.SalesMetrics
	logger   *log.Entry
}

// NewService конструирует сервис с зависимостями. Outbox, timeline и
// metrics опциональны: nil отключает соответствующий side effect.
func NewService(
	repo domain.SaleRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	salesMetrics *metrics.SalesMetrics,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "sales-service")
	}
	return &Service{
		repo:     repo,
		outbox:   outbox,
		timeline: timeline,
		metrics:  salesMetrics,
		logger:   logger,
	}
}

// CreateSaleItemInput описывает позицию в запросе создания продажи.
// Скидка и итог позиции не принимаются снаружи — их считает сервис.
type CreateSaleItemInput struct {
	Product   string
	Quantity  int
	UnitPrice decimal.Decimal
}

// CreateSaleInput описывает запрос создания продажи.
type CreateSaleInput struct {
	SaleNumber string
	SaleDate   time.Time
	Customer   string
	Branch     string
	Items      []CreateSaleItemInput
}

// CreateSaleResult — результат создания продажи.
type CreateSaleResult struct {
	SaleID  string
	Message string
}

// UpdateSaleInput описывает запрос обновления заголовка продажи.
type UpdateSaleInput struct {
	SaleID     string
	SaleNumber string
	SaleDate   time.Time
	Customer   string
	Branch     string
}

// OperationResult — результат операции над продажей.
type OperationResult struct {
	SaleID  string
	Message string
}

// CancelItemResult — результат отмены позиции.
type CancelItemResult struct {
	SaleID     string
	SaleItemID string
	Message    string
}

// CreateSale создаёт продажу: считает скидки по позициям, валидирует
// агрегат целиком и сохраняет его. После сохранения пишет событие
// SaleCreated в outbox и timeline.
func (s *Service) CreateSale(_ context.Context, input CreateSaleInput) (CreateSaleResult, error) {
	sale := domain.NewSale(input.SaleNumber, input.SaleDate, input.Customer, input.Branch)

	for _, item := range input.Items {
		discount, err := domain.ComputeDiscount(item.Quantity, item.UnitPrice)
		if err != nil {
			if !errors.Is(err, domain.ErrQuantityAboveLimit) {
				return CreateSaleResult{}, err
			}
			// Скидка для недопустимого количества не считается; валидация
			// ниже отклонит позицию с полем Quantity.
			discount = decimal.Zero
		}

		total := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Sub(discount)
		sale.AddItem(domain.NewSaleItem(sale.ID, item.Product, item.Quantity, item.UnitPrice, discount, total))
	}

	if errs := sale.Validate(); len(errs) > 0 {
		s.recordValidationFailure()
		return CreateSaleResult{}, domain.NewValidationError(errs)
	}

	if err := s.repo.Create(sale); err != nil {
		s.logger.WithError(err).WithField("sale_id", sale.ID).Error("failed to create sale")
		return CreateSaleResult{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordSaleCreated()
		for _, item := range sale.Items {
			s.metrics.RecordDiscountApplied(discountTier(item.Quantity))
		}
	}

	s.enqueueEvent(sale.ID, EventSaleCreated, SaleCreatedEvent{SaleID: sale.ID})
	s.appendTimeline(sale.ID, EventSaleCreated, "")

	return CreateSaleResult{SaleID: sale.ID, Message: MessageSaleCreated}, nil
}

// GetSale возвращает продажу с позициями.
func (s *Service) GetSale(_ context.Context, saleID string) (domain.Sale, error) {
	return s.repo.Get(saleID)
}

// GetSaleItems возвращает позиции продажи, включая отменённые.
func (s *Service) GetSaleItems(_ context.Context, saleID string) ([]domain.SaleItem, error) {
	sale, err := s.repo.Get(saleID)
	if err != nil {
		return nil, err
	}
	return sale.Items, nil
}

// UpdateSale обновляет заголовочные поля продажи. Состав позиций при
// обновлении не меняется.
func (s *Service) UpdateSale(_ context.Context, input UpdateSaleInput) (OperationResult, error) {
	sale, err := s.repo.Get(input.SaleID)
	if err != nil {
		return OperationResult{}, err
	}

	sale.UpdateHeader(input.SaleNumber, input.SaleDate, input.Customer, input.Branch)

	if errs := sale.ValidateHeader(); len(errs) > 0 {
		s.recordValidationFailure()
		return OperationResult{}, domain.NewValidationError(errs)
	}

	if err := s.repo.Save(sale); err != nil {
		s.logger.WithError(err).WithField("sale_id", sale.ID).Error("failed to update sale")
		return OperationResult{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordSaleUpdated()
	}
	s.appendTimeline(sale.ID, "SaleUpdated", "")

	return OperationResult{SaleID: sale.ID, Message: MessageSaleUpdated}, nil
}

// CancelSale отменяет продажу. Позиции при этом не отменяются, сумма
// не пересчитывается.
func (s *Service) CancelSale(_ context.Context, saleID string) (OperationResult, error) {
	sale, err := s.repo.Get(saleID)
	if err != nil {
		return OperationResult{}, err
	}

	if err := sale.Cancel(); err != nil {
		return OperationResult{}, err
	}

	if err := s.repo.Save(sale); err != nil {
		s.logger.WithError(err).WithField("sale_id", sale.ID).Error("failed to cancel sale")
		return OperationResult{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordSaleCancelled()
	}

	s.enqueueEvent(sale.ID, EventSaleCancelled, SaleCancelledEvent{SaleID: sale.ID})
	s.appendTimeline(sale.ID, EventSaleCancelled, "")

	return OperationResult{SaleID: sale.ID, Message: MessageSaleCancelled}, nil
}

// CancelSaleItem отменяет одну позицию продажи. Позиция ищется только
// внутри указанной продажи.
func (s *Service) CancelSaleItem(_ context.Context, saleID, itemID string) (CancelItemResult, error) {
	sale, err := s.repo.Get(saleID)
	if err != nil {
		return CancelItemResult{}, err
	}

	item, err := sale.CancelItem(itemID)
	if err != nil {
		return CancelItemResult{}, err
	}

	if err := s.repo.Save(sale); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"sale_id":      sale.ID,
			"sale_item_id": itemID,
		}).Error("failed to cancel sale item")
		return CancelItemResult{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordItemCancelled()
	}

	s.enqueueEvent(sale.ID, EventItemCancelled, ItemCancelledEvent{SaleItemID: item.ID, SaleID: sale.ID})
	s.appendTimeline(sale.ID, EventItemCancelled, item.ID)

	return CancelItemResult{SaleID: sale.ID, SaleItemID: item.ID, Message: MessageSaleItemCancelled}, nil
}

// DeleteSale удаляет продажу вместе с позициями.
func (s *Service) DeleteSale(_ context.Context, saleID string) (OperationResult, error) {
	if err := s.repo.Delete(saleID); err != nil {
		return OperationResult{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordSaleDeleted()
	}
	s.appendTimeline(saleID, "SaleDeleted", "")

	return OperationResult{SaleID: saleID, Message: MessageSaleDeleted}, nil
}

// Timeline возвращает историю событий продажи.
func (s *Service) Timeline(_ context.Context, saleID string) ([]domain.TimelineEvent, error) {
	if s.timeline == nil {
		return nil, nil
	}
	return s.timeline.List(saleID)
}

func (s *Service) enqueueEvent(saleID, eventType string, payload interface{}) {
	if s.outbox == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"sale_id": saleID,
			"event":   eventType,
		}).Warn("failed to marshal outbox event")
		return
	}

	_, err = s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: aggregateTypeSale,
		AggregateID:   saleID,
		EventType:     eventType,
		Payload:       data,
	})
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"sale_id": saleID,
			"event":   eventType,
		}).Warn("failed to enqueue outbox event")
		return
	}

	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}

func (s *Service) appendTimeline(saleID, eventType, reason string) {
	if s.timeline == nil {
		return
	}

	event := domain.TimelineEvent{
		SaleID:   saleID,
		Type:     eventType,
		Reason:   reason,
		Occurred: time.Now().UTC(),
	}
	if err := s.timeline.Append(event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"sale_id": saleID,
			"event":   eventType,
		}).Warn("failed to append timeline event")
		return
	}

	if s.metrics != nil {
		s.metrics.RecordTimelineEvent()
	}
}

func (s *Service) recordValidationFailure() {
	if s.metrics != nil {
		s.metrics.RecordValidationFailure()
	}
}

func discountTier(quantity int) string {
	switch {
	case quantity >= 10 && quantity <= domain.MaxItemQuantity:
		return "20%"
	case quantity >= 4:
		return "10%"
	default:
		return "none"
	}
}
