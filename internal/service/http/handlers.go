package httpsvc

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sales/internal/domain"
	"github.com/vladislavdragonenkov/sales/internal/service/sales"
)

// SalesHandler реализует HTTP API поверх сервиса продаж.
type SalesHandler struct {
	service *sales.Service
	logger  *log.Entry
}

// NewSalesHandler создаёт handler с зависимостями.
func NewSalesHandler(service *sales.Service, logger *log.Entry) *SalesHandler {
	if logger == nil {
		logger = log.WithField("component", "http-handler")
	}
	return &SalesHandler{
		service: service,
		logger:  logger,
	}
}

// CreateSale обрабатывает POST /sales.
func (h *SalesHandler) CreateSale(c *gin.Context) {
	var req CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("failed to bind create sale request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request payload"})
		return
	}

	items := make([]sales.CreateSaleItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, sales.CreateSaleItemInput{
			Product:   item.Product,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	result, err := h.service.CreateSale(c.Request.Context(), sales.CreateSaleInput{
		SaleNumber: req.SaleNumber,
		SaleDate:   req.SaleDate,
		Customer:   req.Customer,
		Branch:     req.Branch,
		Items:      items,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, OperationResponse{SaleID: result.SaleID, Message: result.Message})
}

// GetSale обрабатывает GET /sales/:id.
func (h *SalesHandler) GetSale(c *gin.Context) {
	sale, err := h.service.GetSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSaleResponse(sale))
}

// GetSaleItems обрабатывает GET /sales/:id/items.
func (h *SalesHandler) GetSaleItems(c *gin.Context) {
	items, err := h.service.GetSaleItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toItemResponse(item))
	}

	c.JSON(http.StatusOK, gin.H{"items": response})
}

// UpdateSale обрабатывает PUT /sales/:id.
func (h *SalesHandler) UpdateSale(c *gin.Context) {
	var req UpdateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("failed to bind update sale request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request payload"})
		return
	}

	result, err := h.service.UpdateSale(c.Request.Context(), sales.UpdateSaleInput{
		SaleID:     c.Param("id"),
		SaleNumber: req.SaleNumber,
		SaleDate:   req.SaleDate,
		Customer:   req.Customer,
		Branch:     req.Branch,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, OperationResponse{SaleID: result.SaleID, Message: result.Message})
}

// CancelSale обрабатывает PATCH /sales/:id/cancel.
func (h *SalesHandler) CancelSale(c *gin.Context) {
	result, err := h.service.CancelSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, OperationResponse{SaleID: result.SaleID, Message: result.Message})
}

// CancelSaleItem обрабатывает PATCH /sales/:id/items/:itemId/cancel.
func (h *SalesHandler) CancelSaleItem(c *gin.Context) {
	result, err := h.service.CancelSaleItem(c.Request.Context(), c.Param("id"), c.Param("itemId"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, OperationResponse{
		SaleID:     result.SaleID,
		SaleItemID: result.SaleItemID,
		Message:    result.Message,
	})
}

// DeleteSale обрабатывает DELETE /sales/:id.
func (h *SalesHandler) DeleteSale(c *gin.Context) {
	result, err := h.service.DeleteSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, OperationResponse{SaleID: result.SaleID, Message: result.Message})
}

// GetSaleTimeline обрабатывает GET /sales/:id/timeline.
func (h *SalesHandler) GetSaleTimeline(c *gin.Context) {
	saleID := c.Param("id")
	if _, err := h.service.GetSale(c.Request.Context(), saleID); err != nil {
		h.writeError(c, err)
		return
	}

	events, err := h.service.Timeline(c.Request.Context(), saleID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sale_id": saleID, "events": events})
}

// writeError переводит доменные ошибки в HTTP статусы.
func (h *SalesHandler) writeError(c *gin.Context, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: vErr.Errors})
	case errors.Is(err, domain.ErrSaleNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "sale not found"})
	case errors.Is(err, domain.ErrSaleItemNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "sale item not found"})
	case errors.Is(err, domain.ErrSaleAlreadyCancelled):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "sale is already cancelled"})
	case errors.Is(err, domain.ErrSaleItemAlreadyCancelled):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "sale item is already cancelled"})
	case errors.Is(err, domain.ErrSaleVersionConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "sale was modified concurrently"})
	default:
		h.logger.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
