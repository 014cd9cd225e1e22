package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SalesMetrics содержит метрики операций над продажами.
type SalesMetrics struct {
	// Счётчики операций
	salesCreated   prometheus.Counter
	salesUpdated   prometheus.Counter
	salesCancelled prometheus.Counter
	salesDeleted   prometheus.Counter
	itemsCancelled prometheus.Counter

	// Счётчик отказов валидации
	validationFailures prometheus.Counter

	// Гистограммы времени выполнения
	requestDuration *prometheus.HistogramVec

	// Счётчики событий timeline и outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge для применённых скидок
	discountApplied *prometheus.CounterVec
}

// NewSalesMetrics создаёт новый экземпляр метрик продаж.
func NewSalesMetrics() *SalesMetrics {
	return newSalesMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newSalesMetricsWithRegisterer(registerer prometheus.Registerer) *SalesMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &SalesMetrics{
		salesCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "sales_created_total",
			Help: "Total number of sales created",
		}),
		salesUpdated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "sales_updated_total",
			Help: "Total number of sales updated",
		}),
		salesCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "sales_cancelled_total",
			Help: "Total number of sales cancelled",
		}),
		salesDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "sales_deleted_total",
			Help: "Total number of sales deleted",
		}),
		itemsCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "sales_items_cancelled_total",
			Help: "Total number of sale items cancelled",
		}),
		validationFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "sales_validation_failures_total",
			Help: "Total number of sale requests rejected by validation",
		}),
		requestDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "sales_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "route", "status"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "sales_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "sales_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		discountApplied: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "sales_discount_applied_total",
			Help: "Total number of sale items per discount tier",
		}, []string{"tier"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordSaleCreated увеличивает счётчик созданных продаж.
func (m *SalesMetrics) RecordSaleCreated() {
	m.salesCreated.Inc()
}

// RecordSaleUpdated увеличивает счётчик обновлённых продаж.
func (m *SalesMetrics) RecordSaleUpdated() {
	m.salesUpdated.Inc()
}

// RecordSaleCancelled увеличивает счётчик отменённых продаж.
func (m *SalesMetrics) RecordSaleCancelled() {
	m.salesCancelled.Inc()
}

// RecordSaleDeleted увеличивает счётчик удалённых продаж.
func (m *SalesMetrics) RecordSaleDeleted() {
	m.salesDeleted.Inc()
}

// RecordItemCancelled увеличивает счётчик отменённых позиций.
func (m *SalesMetrics) RecordItemCancelled() {
	m.itemsCancelled.Inc()
}

// RecordValidationFailure увеличивает счётчик отказов валидации.
func (m *SalesMetrics) RecordValidationFailure() {
	m.validationFailures.Inc()
}

// RecordRequestDuration записывает время обработки HTTP-запроса.
func (m *SalesMetrics) RecordRequestDuration(method, route, status string, duration time.Duration) {
	m.requestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *SalesMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *SalesMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// RecordDiscountApplied увеличивает счётчик позиций по уровню скидки.
func (m *SalesMetrics) RecordDiscountApplied(tier string) {
	m.discountApplied.WithLabelValues(tier).Inc()
}
