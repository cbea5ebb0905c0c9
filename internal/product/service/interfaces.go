package service

import (
	"context"

	"github.com/shestoi/GoMarket/platform/events"
)

// EventPublisher продуктовые события и каскад; реализуется *events.Producer.
// Публикация не транзакционна с записью в репозиторий.
type EventPublisher interface {
	PublishProductCreated(ctx context.Context, productID, sellerID string, details events.ProductDetails) error
	PublishProductUpdated(ctx context.Context, productID, sellerID string, details events.ProductDetails) error
	PublishProductDeleted(ctx context.Context, productID, sellerID string) error
}
