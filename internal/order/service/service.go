package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/internal/order/repository"
	"github.com/shestoi/GoMarket/platform/events"
	"github.com/shestoi/GoMarket/platform/observability"
)

var (
	// ErrInvalidOrder входные данные заказа некорректны
	ErrInvalidOrder = errors.New("invalid order")
	// ErrInvalidTransition переход статуса запрещён
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrForbidden заказ принадлежит другому покупателю
	ErrForbidden = errors.New("order belongs to another buyer")
)

// финальные статусы, из которых переходов нет
var terminalStatuses = map[events.OrderStatus]bool{
	events.StatusCancelled: true,
	events.StatusRefunded:  true,
}

// OrderService оформление заказов и публикация событий для профилей и аналитики
type OrderService struct {
	logger    *zap.Logger
	orders    repository.OrderRepository
	publisher EventPublisher
	now       func() time.Time
	newID     func() string
}

// NewOrderService создаёт сервис
func NewOrderService(logger *zap.Logger, orders repository.OrderRepository, publisher EventPublisher) *OrderService {
	return &OrderService{
		logger:    logger,
		orders:    orders,
		publisher: publisher,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// WithClock подменяет часы (для тестов)
func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	s.now = now
	return s
}

// ItemInput позиция, которую покупатель кладёт в заказ
type ItemInput struct {
	ProductID   string
	SellerID    string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// PlaceOrderInput входные данные оформления
type PlaceOrderInput struct {
	BuyerID         string
	BuyerEmail      string
	ShippingAddress string
	Items           []ItemInput
}

// PlaceOrder сохраняет заказ в статусе PENDING и затем публикует OrderCreated.
// Запись и публикация не атомарны: при ошибке публикации заказ остаётся сохранённым,
// возвращаются и заказ, и ошибка.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (repository.Order, error) {
	if strings.TrimSpace(in.BuyerID) == "" {
		return repository.Order{}, fmt.Errorf("%w: buyer is required", ErrInvalidOrder)
	}
	if len(in.Items) == 0 {
		return repository.Order{}, fmt.Errorf("%w: order must contain at least one item", ErrInvalidOrder)
	}

	snapshots := make([]events.ItemSnapshot, 0, len(in.Items))
	for i, it := range in.Items {
		snap, err := events.NewItemSnapshot(it.ProductID, it.SellerID, it.ProductName, it.Quantity, it.UnitPrice)
		if err != nil {
			return repository.Order{}, fmt.Errorf("%w: items[%d]: %v", ErrInvalidOrder, i, err)
		}
		snapshots = append(snapshots, snap)
	}

	now := s.now().UTC()
	ev, err := events.NewOrderCreated(s.newID(), in.BuyerID, in.BuyerEmail, snapshots, in.ShippingAddress, now)
	if err != nil {
		return repository.Order{}, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	order := repository.Order{
		ID:              ev.OrderID,
		BuyerID:         ev.BuyerID,
		BuyerEmail:      ev.BuyerEmail,
		Status:          string(events.StatusPending),
		Items:           toItems(snapshots),
		TotalPrice:      ev.TotalPrice,
		ShippingAddress: ev.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return repository.Order{}, fmt.Errorf("save order: %w", err)
	}

	log := observability.L(ctx, s.logger).With(zap.String("order_id", order.ID), zap.String("buyer_id", order.BuyerID))
	if err := s.publisher.PublishOrderCreated(ctx, ev); err != nil {
		log.Error("Order saved but order created event not published", zap.Error(err))
		return order, fmt.Errorf("publish order created: %w", err)
	}
	log.Info("Order placed",
		zap.Int("items", len(order.Items)),
		zap.String("total_price", order.TotalPrice.StringFixed(2)),
	)
	return order, nil
}

// ChangeStatus сохраняет новый статус и затем публикует OrderStatusChanged
func (s *OrderService) ChangeStatus(ctx context.Context, orderID string, newStatus events.OrderStatus, reason string) (repository.Order, error) {
	if !newStatus.Valid() {
		return repository.Order{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, newStatus)
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return repository.Order{}, err
	}
	oldStatus := events.OrderStatus(order.Status)
	if oldStatus == newStatus {
		return repository.Order{}, fmt.Errorf("%w: order is already %s", ErrInvalidTransition, newStatus)
	}
	if terminalStatuses[oldStatus] {
		return repository.Order{}, fmt.Errorf("%w: order is %s", ErrInvalidTransition, oldStatus)
	}

	order.Status = string(newStatus)
	order.UpdatedAt = s.now().UTC()
	if err := s.orders.Save(ctx, order); err != nil {
		return repository.Order{}, fmt.Errorf("save order: %w", err)
	}

	log := observability.L(ctx, s.logger).With(
		zap.String("order_id", order.ID),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(newStatus)),
	)
	ev := events.OrderStatusChanged{
		OrderID:    order.ID,
		BuyerID:    order.BuyerID,
		BuyerEmail: order.BuyerEmail,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		Reason:     reason,
	}
	if err := s.publisher.PublishOrderStatusChanged(ctx, ev); err != nil {
		log.Error("Status saved but event not published", zap.Error(err))
		return order, fmt.Errorf("publish order status changed: %w", err)
	}
	log.Info("Order status changed")
	return order, nil
}

// RecordCartActivity отправляет событие корзины в аналитику
func (s *OrderService) RecordCartActivity(ctx context.Context, ev events.CartUpdated) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	if err := s.publisher.PublishCartUpdated(ctx, ev); err != nil {
		return fmt.Errorf("publish cart updated: %w", err)
	}
	observability.L(ctx, s.logger).Debug("Cart activity recorded",
		zap.String("cart_id", ev.CartID),
		zap.String("action", string(ev.Action)),
	)
	return nil
}

// GetOrder заказ по ID; buyerID, если задан, должен совпадать с покупателем
func (s *OrderService) GetOrder(ctx context.Context, id, buyerID string) (repository.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return repository.Order{}, err
	}
	if buyerID != "" && order.BuyerID != buyerID {
		return repository.Order{}, ErrForbidden
	}
	return order, nil
}

// ListByBuyer заказы покупателя
func (s *OrderService) ListByBuyer(ctx context.Context, buyerID string) ([]repository.Order, error) {
	return s.orders.ListByBuyer(ctx, buyerID)
}

func toItems(snapshots []events.ItemSnapshot) []repository.OrderItem {
	out := make([]repository.OrderItem, 0, len(snapshots))
	for _, s := range snapshots {
		out = append(out, repository.OrderItem{
			ProductID:   s.ProductID,
			SellerID:    s.SellerID,
			ProductName: s.ProductName,
			Quantity:    s.Quantity,
			UnitPrice:   s.UnitPrice,
			Subtotal:    s.Subtotal,
		})
	}
	return out
}
