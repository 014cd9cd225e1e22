package httpsvc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sales/internal/domain"
	"github.com/vladislavdragonenkov/sales/internal/metrics"
	"github.com/vladislavdragonenkov/sales/internal/service/sales"
)

// RouterOptions задаёт зависимости HTTP-роутера.
type RouterOptions struct {
	Service         *sales.Service
	IdempotencyRepo domain.IdempotencyRepository
	Metrics         *metrics.SalesMetrics
	Logger          *log.Entry
}

// NewRouter собирает gin-роутер со всеми маршрутами продаж.
func NewRouter(opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "http-router")
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))
	if opts.Metrics != nil {
		engine.Use(metricsMiddleware(opts.Metrics))
	}

	handler := NewSalesHandler(opts.Service, logger)

	salesGroup := engine.Group("/sales")
	{
		salesGroup.POST("", IdempotencyMiddleware(opts.IdempotencyRepo, logger), handler.CreateSale)
		salesGroup.GET("/:id", handler.GetSale)
		salesGroup.PUT("/:id", handler.UpdateSale)
		salesGroup.DELETE("/:id", handler.DeleteSale)
		salesGroup.PATCH("/:id/cancel", handler.CancelSale)
		salesGroup.GET("/:id/items", handler.GetSaleItems)
		salesGroup.PATCH("/:id/items/:itemId/cancel", handler.CancelSaleItem)
		salesGroup.GET("/:id/timeline", handler.GetSaleTimeline)
	}

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	return engine
}

func metricsMiddleware(salesMetrics *metrics.SalesMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		salesMetrics.RecordRequestDuration(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}

func requestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(log.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request completed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("request completed")
		default:
			entry.Debug("request completed")
		}
	}
}
