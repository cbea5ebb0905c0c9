package events

import "github.com/shopspring/decimal"

// UserDeleted аккаунт пользователя удалён; запускает каскад product -> media
type UserDeleted struct {
	UserID   string `json:"user_id"`
	UserRole string `json:"user_role"`
}

func (UserDeleted) Kind() Kind { return KindUserDeleted }

func (e UserDeleted) AggregateKey() string { return e.UserID }

func (e UserDeleted) Validate() error {
	return required("user_id", e.UserID)
}

// CartAction действие с корзиной
type CartAction string

const (
	CartItemAdded       CartAction = "ITEM_ADDED"
	CartItemRemoved     CartAction = "ITEM_REMOVED"
	CartQuantityChanged CartAction = "QUANTITY_CHANGED"
	CartCleared         CartAction = "CLEARED"
)

// CartUpdated событие корзины, только для аналитики.
// Action не валидируется: неизвестные действия обрабатывает получатель.
type CartUpdated struct {
	CartID     string          `json:"cart_id"`
	UserID     string          `json:"user_id"`
	Action     CartAction      `json:"action"`
	ProductID  string          `json:"product_id,omitempty"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func (CartUpdated) Kind() Kind { return KindCartUpdated }

func (e CartUpdated) AggregateKey() string { return e.CartID }

func (e CartUpdated) Validate() error {
	if err := required("cart_id", e.CartID); err != nil {
		return err
	}
	return required("user_id", e.UserID)
}
