package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/platform/dispatch"
	"github.com/shestoi/GoMarket/platform/events"
	"github.com/shestoi/GoMarket/platform/observability"
)

var (
	routeOrderCreated       = dispatch.Route{Topic: events.TopicOrderCreated, Group: events.GroupProfileUpdate}
	routeCartUpdated        = dispatch.Route{Topic: events.TopicCartUpdated, Group: events.GroupAnalytics}
	routeOrderStatusChanged = dispatch.Route{Topic: events.TopicOrderStatusChanged, Group: events.GroupStatusChange}
)

// EventHandlers обработчики событий заказов и корзины
type EventHandlers struct {
	logger    *zap.Logger
	profiles  *ProfileService
	analytics CartAnalytics
}

// NewEventHandlers создаёт обработчики
func NewEventHandlers(logger *zap.Logger, profiles *ProfileService, analytics CartAnalytics) *EventHandlers {
	return &EventHandlers{
		logger:    logger,
		profiles:  profiles,
		analytics: analytics,
	}
}

// Register привязывает обработчики к маршрутам каталога.
// mws применяются ко всем маршрутам (например, дедупликация по event_id).
func (h *EventHandlers) Register(r *dispatch.Registry, mws ...dispatch.Middleware) error {
	bindings := []struct {
		route   dispatch.Route
		name    string
		handler dispatch.Handler
	}{
		{routeOrderCreated, "profile.HandleOrderCreated", h.HandleOrderCreated},
		{routeCartUpdated, "profile.HandleCartUpdated", h.HandleCartUpdated},
		{routeOrderStatusChanged, "profile.HandleOrderStatusChanged", h.HandleOrderStatusChanged},
	}
	for _, b := range bindings {
		if err := r.Register(b.route.Topic, b.route.Group, b.name, b.handler, mws...); err != nil {
			return err
		}
	}
	return nil
}

// HandleOrderCreated обновляет профиль покупателя и профили продавцов всех позиций.
// Любая ошибка возвращается как ProcessingError: сообщение будет доставлено повторно.
// Повторная доставка применяет инкременты ещё раз, если не включена дедупликация.
// С дедупликацией покупатель и каждая позиция отмечаются отдельно: повтор после
// частичного сбоя дописывает только невыполненные обновления.
func (h *EventHandlers) HandleOrderCreated(ctx context.Context, env events.Envelope) error {
	ev, err := events.As[*events.OrderCreated](env)
	if err != nil {
		return dispatch.NewProcessingError(routeOrderCreated, env, err)
	}

	log := observability.L(ctx, h.logger).With(
		zap.String("event_id", env.EventID),
		zap.String("order_id", ev.OrderID),
		zap.String("buyer_id", ev.BuyerID),
	)
	log.Info("Processing order created", zap.Int("items", len(ev.Items)), zap.String("total", ev.TotalPrice.String()))

	err = dispatch.Step(ctx, "buyer", func() error {
		return h.profiles.RecordNewOrder(ctx, ev.BuyerID, ev.TotalPrice)
	})
	if err != nil {
		log.Error("Failed to update buyer profile", zap.Error(err))
		return dispatch.NewProcessingError(routeOrderCreated, env, err)
	}

	for i, item := range ev.Items {
		err := dispatch.Step(ctx, "item:"+strconv.Itoa(i), func() error {
			return h.profiles.RecordSale(ctx, item.SellerID, int64(item.Quantity), item.Subtotal, item.ProductID)
		})
		if err != nil {
			log.Error("Failed to update seller profile",
				zap.String("seller_id", item.SellerID),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
			return dispatch.NewProcessingError(routeOrderCreated, env, fmt.Errorf("seller %s: %w", item.SellerID, err))
		}
	}

	log.Info("Profiles updated for order")
	return nil
}

// HandleCartUpdated аналитика корзины. Ошибки и паники логируются и никогда не возвращаются.
func (h *EventHandlers) HandleCartUpdated(ctx context.Context, env events.Envelope) (err error) {
	log := observability.L(ctx, h.logger).With(zap.String("event_id", env.EventID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("Cart analytics panicked", zap.Any("panic", r))
		}
		err = nil
	}()

	ev, decodeErr := events.As[*events.CartUpdated](env)
	if decodeErr != nil {
		log.Error("Failed to decode cart event", zap.Error(decodeErr))
		return nil
	}

	log = log.With(
		zap.String("cart_id", ev.CartID),
		zap.String("user_id", ev.UserID),
		zap.String("action", string(ev.Action)),
	)

	var hookErr error
	switch ev.Action {
	case events.CartItemAdded:
		hookErr = h.analytics.ItemAdded(ctx, *ev)
	case events.CartItemRemoved:
		hookErr = h.analytics.ItemRemoved(ctx, *ev)
	case events.CartQuantityChanged:
		hookErr = h.analytics.QuantityChanged(ctx, *ev)
	case events.CartCleared:
		hookErr = h.analytics.Cleared(ctx, *ev)
	default:
		log.Warn("Unknown cart action")
		hookErr = h.analytics.Unknown(ctx, *ev)
	}
	if hookErr != nil {
		log.Error("Cart analytics failed", zap.Error(hookErr))
		return nil
	}

	log.Debug("Cart event recorded", zap.Int("total_items", ev.TotalItems))
	return nil
}

// HandleOrderStatusChanged реакции на смену статуса заказа; ошибки возвращаются как ProcessingError
func (h *EventHandlers) HandleOrderStatusChanged(ctx context.Context, env events.Envelope) error {
	ev, err := events.As[*events.OrderStatusChanged](env)
	if err != nil {
		return dispatch.NewProcessingError(routeOrderStatusChanged, env, err)
	}

	log := observability.L(ctx, h.logger).With(
		zap.String("event_id", env.EventID),
		zap.String("order_id", ev.OrderID),
		zap.String("old_status", string(ev.OldStatus)),
		zap.String("new_status", string(ev.NewStatus)),
	)

	switch ev.NewStatus {
	case events.StatusShipped:
		log.Info("Order shipped, buyer notification queued", zap.String("buyer_email", ev.BuyerEmail))
	case events.StatusDelivered:
		log.Info("Order delivered, review request queued", zap.String("buyer_id", ev.BuyerID))
	case events.StatusCancelled:
		log.Info("Order cancelled", zap.String("reason", ev.Reason))
	default:
		log.Debug("Order status changed")
	}
	return nil
}
