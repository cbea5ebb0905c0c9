package events

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ProductEventType дискриминант продуктового события
type ProductEventType string

const (
	ProductCreated ProductEventType = "CREATED"
	ProductUpdated ProductEventType = "UPDATED"
	ProductDeleted ProductEventType = "DELETED"
)

// ProductDetails карточка товара; есть у CREATED и UPDATED, у DELETED отсутствует
type ProductDetails struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// ProductEvent единый тип для created/updated/deleted
type ProductEvent struct {
	EventType ProductEventType `json:"event_type"`
	ProductID string           `json:"product_id"`
	SellerID  string           `json:"seller_id"`
	Timestamp time.Time        `json:"timestamp"`
	Details   *ProductDetails  `json:"details,omitempty"`
}

// NewProductCreated событие создания товара
func NewProductCreated(productID, sellerID string, details ProductDetails, at time.Time) (ProductEvent, error) {
	return newProductEvent(ProductCreated, productID, sellerID, &details, at)
}

// NewProductUpdated событие изменения товара
func NewProductUpdated(productID, sellerID string, details ProductDetails, at time.Time) (ProductEvent, error) {
	return newProductEvent(ProductUpdated, productID, sellerID, &details, at)
}

// NewProductDeleted событие удаления товара
func NewProductDeleted(productID, sellerID string, at time.Time) (ProductEvent, error) {
	return newProductEvent(ProductDeleted, productID, sellerID, nil, at)
}

func newProductEvent(t ProductEventType, productID, sellerID string, details *ProductDetails, at time.Time) (ProductEvent, error) {
	ev := ProductEvent{
		EventType: t,
		ProductID: productID,
		SellerID:  sellerID,
		Timestamp: at.UTC(),
		Details:   details,
	}
	if err := ev.Validate(); err != nil {
		return ProductEvent{}, err
	}
	return ev, nil
}

func (e ProductEvent) Kind() Kind {
	switch e.EventType {
	case ProductCreated:
		return KindProductCreated
	case ProductUpdated:
		return KindProductUpdated
	case ProductDeleted:
		return KindProductDeleted
	}
	return ""
}

func (e ProductEvent) AggregateKey() string { return e.ProductID }

func (e ProductEvent) Validate() error {
	if e.Kind() == "" {
		return &ValidationError{Field: "event_type", Message: fmt.Sprintf("unknown type %q", e.EventType)}
	}
	if err := required("product_id", e.ProductID); err != nil {
		return err
	}
	if err := required("seller_id", e.SellerID); err != nil {
		return err
	}
	if e.EventType == ProductDeleted {
		if e.Details != nil {
			return &ValidationError{Field: "details", Message: "must be empty for DELETED"}
		}
		return nil
	}
	if e.Details == nil {
		return &ValidationError{Field: "details", Message: "is required for " + string(e.EventType)}
	}
	if err := required("details.name", e.Details.Name); err != nil {
		return err
	}
	if e.Details.Price.IsNegative() {
		return &ValidationError{Field: "details.price", Message: "must not be negative"}
	}
	if e.Details.Quantity < 0 {
		return &ValidationError{Field: "details.quantity", Message: "must not be negative"}
	}
	return nil
}
