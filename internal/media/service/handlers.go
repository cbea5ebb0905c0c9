package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/platform/dispatch"
	"github.com/shestoi/GoMarket/platform/events"
	"github.com/shestoi/GoMarket/platform/observability"
)

var (
	routeProductEvents = dispatch.Route{Topic: events.TopicProductEvents, Group: events.GroupMediaService}
	routeUserDeleted   = dispatch.Route{Topic: events.TopicUserEvents, Group: events.GroupMediaService}
)

// EventHandlers consumer'ы media-service-group
type EventHandlers struct {
	logger *zap.Logger
	media  *MediaService
}

// NewEventHandlers создаёт обработчики
func NewEventHandlers(logger *zap.Logger, media *MediaService) *EventHandlers {
	return &EventHandlers{logger: logger, media: media}
}

// Register привязывает product-events и user-events к одной группе
func (h *EventHandlers) Register(r *dispatch.Registry, mws ...dispatch.Middleware) error {
	if err := r.Register(routeProductEvents.Topic, routeProductEvents.Group, "media.HandleProductEvent", h.HandleProductEvent, mws...); err != nil {
		return err
	}
	return r.Register(routeUserDeleted.Topic, routeUserDeleted.Group, "media.HandleUserDeleted", h.HandleUserDeleted, mws...)
}

// HandleProductEvent чистит медиа удалённого товара; CREATED и UPDATED игнорируются.
// Сбои отдельных файлов не делают сообщение ошибочным.
func (h *EventHandlers) HandleProductEvent(ctx context.Context, env events.Envelope) error {
	ev, err := events.As[*events.ProductEvent](env)
	if err != nil {
		return dispatch.NewProcessingError(routeProductEvents, env, err)
	}
	if ev.EventType != events.ProductDeleted {
		return nil
	}

	log := observability.L(ctx, h.logger).With(
		zap.String("event_id", env.EventID),
		zap.String("product_id", ev.ProductID),
	)
	log.Info("Received product deleted")

	if _, err := h.media.CleanupProduct(ctx, ev.ProductID); err != nil {
		log.Error("Media lookup failed", zap.Error(err))
		return dispatch.NewProcessingError(routeProductEvents, env, err)
	}
	return nil
}

// HandleUserDeleted чистит все медиа пользователя
func (h *EventHandlers) HandleUserDeleted(ctx context.Context, env events.Envelope) error {
	ev, err := events.As[*events.UserDeleted](env)
	if err != nil {
		return dispatch.NewProcessingError(routeUserDeleted, env, err)
	}

	log := observability.L(ctx, h.logger).With(
		zap.String("event_id", env.EventID),
		zap.String("user_id", ev.UserID),
	)
	log.Info("Received user deleted")

	if _, err := h.media.CleanupOwner(ctx, ev.UserID); err != nil {
		log.Error("Media lookup failed", zap.Error(err))
		return dispatch.NewProcessingError(routeUserDeleted, env, err)
	}
	return nil
}
