package service

import (
	"context"

	"github.com/shestoi/GoMarket/platform/events"
)

// EventPublisher события order-service: order-created, order-status-changed, cart-updated
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, ev events.OrderCreated) error
	PublishOrderStatusChanged(ctx context.Context, ev events.OrderStatusChanged) error
	PublishCartUpdated(ctx context.Context, ev events.CartUpdated) error
}
