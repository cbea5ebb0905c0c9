// Package metrics Prometheus-метрики событийного слоя: публикация, обработка, DLQ, каскад, аналитика корзины
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gomarket"

// Исходы обработки сообщения consumer'ом
const (
	OutcomeSuccess = "success"
	OutcomeRetry   = "retry"
	OutcomeDLQ     = "dlq"
	OutcomeFailed  = "failed"
)

// Исходы каскадного удаления одной сущности
const (
	CascadeDeleted      = "deleted"
	CascadeFileMissing  = "file_missing"
	CascadeSkipped      = "skipped"
	CascadeDeleteFailed = "delete_failed"
)

// Metrics набор метрик одного сервиса со своим registry
type Metrics struct {
	registry *prometheus.Registry

	EventsPublished *prometheus.CounterVec
	EventsConsumed  *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec
	BreakerState    *prometheus.GaugeVec

	CascadeDeletions *prometheus.CounterVec
	CartActions      *prometheus.CounterVec
	CartUnits        *prometheus.CounterVec
	ProfileConflicts prometheus.Counter
}

// New создаёт метрики сервиса и регистрирует стандартные go/process коллекторы
func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		registry: registry,
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "events_published_total",
			Help:        "Total number of domain events published",
			ConstLabels: constLabels,
		}, []string{"topic", "kind", "status"}),
		EventsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "events_consumed_total",
			Help:        "Total number of consumed messages by outcome",
			ConstLabels: constLabels,
		}, []string{"topic", "group", "outcome"}),
		HandlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "event_handler_duration_seconds",
			Help:        "Event handler duration in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"topic", "group"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "publisher_circuit_breaker_state",
			Help:        "Publisher circuit breaker state (0=closed, 1=half-open, 2=open)",
			ConstLabels: constLabels,
		}, []string{"name"}),
		CascadeDeletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cascade_deletions_total",
			Help:        "Entities removed by cascade deletion",
			ConstLabels: constLabels,
		}, []string{"entity", "outcome"}),
		CartActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cart_actions_total",
			Help:        "Cart analytics events by action",
			ConstLabels: constLabels,
		}, []string{"action"}),
		CartUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cart_units_total",
			Help:        "Units moved in carts by action",
			ConstLabels: constLabels,
		}, []string{"action"}),
		ProfileConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "profile_version_conflicts_total",
			Help:        "Optimistic locking conflicts on profile documents",
			ConstLabels: constLabels,
		}),
	}

	registry.MustRegister(
		m.EventsPublished,
		m.EventsConsumed,
		m.HandlerDuration,
		m.BreakerState,
		m.CascadeDeletions,
		m.CartActions,
		m.CartUnits,
		m.ProfileConflicts,
	)
	return m
}

// Registry возвращает prometheus registry сервиса
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler HTTP handler для /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHandler записывает длительность обработки
func (m *Metrics) ObserveHandler(topic, group string, started time.Time) {
	m.HandlerDuration.WithLabelValues(topic, group).Observe(time.Since(started).Seconds())
}
