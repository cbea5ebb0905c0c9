package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Order доменная модель заказа; позиции фиксируются на момент оформления
type Order struct {
	ID              string
	BuyerID         string
	BuyerEmail      string
	Status          string
	Items           []OrderItem
	TotalPrice      decimal.Decimal
	ShippingAddress string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem позиция заказа
type OrderItem struct {
	ProductID   string
	SellerID    string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// Clone копия заказа вместе с позициями
func (o Order) Clone() Order {
	o.Items = append([]OrderItem(nil), o.Items...)
	return o
}

// OrderRepository хранилище заказов
type OrderRepository interface {
	// Save создаёт или перезаписывает заказ целиком
	Save(ctx context.Context, order Order) error

	// GetByID возвращает ErrNotFound, если заказа нет
	GetByID(ctx context.Context, id string) (Order, error)

	// ListByBuyer заказы покупателя, новые первыми
	ListByBuyer(ctx context.Context, buyerID string) ([]Order, error)
}

// ErrNotFound заказ не найден
var ErrNotFound = errors.New("order not found")
