package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/platform/dispatch"
	"github.com/shestoi/GoMarket/platform/events"
	"github.com/shestoi/GoMarket/platform/observability"
)

var routeUserDeleted = dispatch.Route{Topic: events.TopicUserEvents, Group: events.GroupProductService}

// EventHandlers consumer'ы product-service
type EventHandlers struct {
	logger   *zap.Logger
	products *ProductService
}

// NewEventHandlers создаёт обработчики
func NewEventHandlers(logger *zap.Logger, products *ProductService) *EventHandlers {
	return &EventHandlers{logger: logger, products: products}
}

// Register привязывает user-events/product-service-group
func (h *EventHandlers) Register(r *dispatch.Registry, mws ...dispatch.Middleware) error {
	return r.Register(routeUserDeleted.Topic, routeUserDeleted.Group, "product.HandleUserDeleted", h.HandleUserDeleted, mws...)
}

// HandleUserDeleted удаляет все товары пользователя, публикуя ProductDeleted перед каждым удалением.
// Ошибка возвращается: сообщение будет доставлено повторно.
func (h *EventHandlers) HandleUserDeleted(ctx context.Context, env events.Envelope) error {
	ev, err := events.As[*events.UserDeleted](env)
	if err != nil {
		return dispatch.NewProcessingError(routeUserDeleted, env, err)
	}

	log := observability.L(ctx, h.logger).With(
		zap.String("event_id", env.EventID),
		zap.String("user_id", ev.UserID),
	)
	log.Info("Processing user deleted")

	if _, err := h.products.DeleteAllByOwner(ctx, ev.UserID); err != nil {
		log.Error("Failed to delete products of user", zap.Error(err))
		return dispatch.NewProcessingError(routeUserDeleted, env, err)
	}
	return nil
}
