package events

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ItemSnapshot позиция заказа, зафиксированная на момент оформления
type ItemSnapshot struct {
	ProductID   string          `json:"product_id"`
	SellerID    string          `json:"seller_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// NewItemSnapshot создаёт позицию и считает subtotal = unitPrice * quantity
func NewItemSnapshot(productID, sellerID, productName string, quantity int, unitPrice decimal.Decimal) (ItemSnapshot, error) {
	item := ItemSnapshot{
		ProductID:   productID,
		SellerID:    sellerID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Subtotal:    unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
	if err := item.Validate(); err != nil {
		return ItemSnapshot{}, err
	}
	return item, nil
}

func (i ItemSnapshot) Validate() error {
	if err := required("product_id", i.ProductID); err != nil {
		return err
	}
	if err := required("seller_id", i.SellerID); err != nil {
		return err
	}
	if i.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Message: "must be positive"}
	}
	if !i.UnitPrice.IsPositive() {
		return &ValidationError{Field: "unit_price", Message: "must be positive"}
	}
	if !i.Subtotal.Equal(i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))) {
		return &ValidationError{Field: "subtotal", Message: "must equal unit_price * quantity"}
	}
	return nil
}

// OrderCreated заказ оформлен
type OrderCreated struct {
	OrderID         string          `json:"order_id"`
	BuyerID         string          `json:"buyer_id"`
	BuyerEmail      string          `json:"buyer_email"`
	Items           []ItemSnapshot  `json:"items"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	ShippingAddress string          `json:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewOrderCreated собирает событие и считает totalPrice как сумму subtotal.
// Срез items копируется.
func NewOrderCreated(orderID, buyerID, buyerEmail string, items []ItemSnapshot, shippingAddress string, createdAt time.Time) (OrderCreated, error) {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	ev := OrderCreated{
		OrderID:         orderID,
		BuyerID:         buyerID,
		BuyerEmail:      buyerEmail,
		Items:           append([]ItemSnapshot(nil), items...),
		TotalPrice:      total,
		ShippingAddress: shippingAddress,
		CreatedAt:       createdAt.UTC(),
	}
	if err := ev.Validate(); err != nil {
		return OrderCreated{}, err
	}
	return ev, nil
}

func (OrderCreated) Kind() Kind { return KindOrderCreated }

func (e OrderCreated) AggregateKey() string { return e.OrderID }

func (e OrderCreated) Validate() error {
	if err := required("order_id", e.OrderID); err != nil {
		return err
	}
	if err := required("buyer_id", e.BuyerID); err != nil {
		return err
	}
	if len(e.Items) == 0 {
		return &ValidationError{Field: "items", Message: "must not be empty"}
	}
	sum := decimal.Zero
	for idx, it := range e.Items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("items[%d]: %w", idx, err)
		}
		sum = sum.Add(it.Subtotal)
	}
	if !e.TotalPrice.Equal(sum) {
		return &ValidationError{Field: "total_price", Message: "must equal sum of subtotals"}
	}
	return nil
}

// OrderStatus статус заказа
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusShipped   OrderStatus = "SHIPPED"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusReturned  OrderStatus = "RETURNED"
	StatusRefunded  OrderStatus = "REFUNDED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered,
		StatusCancelled, StatusReturned, StatusRefunded:
		return true
	}
	return false
}

// OrderStatusChanged статус заказа изменился
type OrderStatusChanged struct {
	OrderID    string      `json:"order_id"`
	BuyerID    string      `json:"buyer_id"`
	BuyerEmail string      `json:"buyer_email"`
	OldStatus  OrderStatus `json:"old_status"`
	NewStatus  OrderStatus `json:"new_status"`
	Reason     string      `json:"reason,omitempty"`
}

func (OrderStatusChanged) Kind() Kind { return KindOrderStatusChanged }

func (e OrderStatusChanged) AggregateKey() string { return e.OrderID }

func (e OrderStatusChanged) Validate() error {
	if err := required("order_id", e.OrderID); err != nil {
		return err
	}
	if err := required("buyer_id", e.BuyerID); err != nil {
		return err
	}
	if e.OldStatus != "" && !e.OldStatus.Valid() {
		return &ValidationError{Field: "old_status", Message: fmt.Sprintf("unknown status %q", e.OldStatus)}
	}
	if !e.NewStatus.Valid() {
		return &ValidationError{Field: "new_status", Message: fmt.Sprintf("unknown status %q", e.NewStatus)}
	}
	return nil
}
