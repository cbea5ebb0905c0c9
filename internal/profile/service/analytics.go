package service

import (
	"context"

	"github.com/shestoi/GoMarket/platform/events"
	"github.com/shestoi/GoMarket/platform/metrics"
)

// CartAnalytics хуки аналитики корзины. Ошибки хуков не влияют на обработку очереди.
type CartAnalytics interface {
	ItemAdded(ctx context.Context, ev events.CartUpdated) error
	ItemRemoved(ctx context.Context, ev events.CartUpdated) error
	QuantityChanged(ctx context.Context, ev events.CartUpdated) error
	Cleared(ctx context.Context, ev events.CartUpdated) error
	// Unknown действие, которого нет в каталоге; учитывается под исходным именем
	Unknown(ctx context.Context, ev events.CartUpdated) error
}

// PrometheusCartAnalytics считает действия и единицы товара в корзинах
type PrometheusCartAnalytics struct {
	m *metrics.Metrics
}

// NewPrometheusCartAnalytics создаёт аналитику поверх метрик сервиса
func NewPrometheusCartAnalytics(m *metrics.Metrics) *PrometheusCartAnalytics {
	return &PrometheusCartAnalytics{m: m}
}

func (a *PrometheusCartAnalytics) ItemAdded(_ context.Context, ev events.CartUpdated) error {
	a.record(ev)
	return nil
}

func (a *PrometheusCartAnalytics) ItemRemoved(_ context.Context, ev events.CartUpdated) error {
	a.record(ev)
	return nil
}

func (a *PrometheusCartAnalytics) QuantityChanged(_ context.Context, ev events.CartUpdated) error {
	a.record(ev)
	return nil
}

func (a *PrometheusCartAnalytics) Cleared(_ context.Context, ev events.CartUpdated) error {
	a.record(ev)
	return nil
}

func (a *PrometheusCartAnalytics) Unknown(_ context.Context, ev events.CartUpdated) error {
	a.record(ev)
	return nil
}

func (a *PrometheusCartAnalytics) record(ev events.CartUpdated) {
	action := string(ev.Action)
	a.m.CartActions.WithLabelValues(action).Inc()
	if ev.Quantity > 0 {
		a.m.CartUnits.WithLabelValues(action).Add(float64(ev.Quantity))
	}
}
