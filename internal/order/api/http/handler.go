package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/internal/order/repository"
	"github.com/shestoi/GoMarket/internal/order/service"
	"github.com/shestoi/GoMarket/platform/authctx"
	"github.com/shestoi/GoMarket/platform/events"
	"github.com/shestoi/GoMarket/platform/httpjson"
	"github.com/shestoi/GoMarket/platform/observability"
)

// RoleAdmin роль, которой разрешено менять статус заказа
const RoleAdmin = "ADMIN"

// Handler HTTP-обработчики Order Service
type Handler struct {
	logger *zap.Logger
	orders *service.OrderService
}

// NewHandler создаёт handler
func NewHandler(logger *zap.Logger, orders *service.OrderService) *Handler {
	return &Handler{logger: logger, orders: orders}
}

// OrderItem позиция в запросе и ответе
type OrderItem struct {
	ProductID   string          `json:"product_id"`
	SellerID    string          `json:"seller_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    string          `json:"subtotal,omitempty"`
}

// OrderRequest тело POST /orders; покупатель берётся из X-User-ID
type OrderRequest struct {
	BuyerEmail      string      `json:"buyer_email"`
	ShippingAddress string      `json:"shipping_address"`
	Items           []OrderItem `json:"items"`
}

// OrderResponse заказ
type OrderResponse struct {
	ID              string      `json:"id"`
	BuyerID         string      `json:"buyer_id"`
	Status          string      `json:"status"`
	Items           []OrderItem `json:"items"`
	TotalPrice      string      `json:"total_price"`
	ShippingAddress string      `json:"shipping_address"`
	CreatedAt       time.Time   `json:"created_at"`
}

// StatusRequest тело PUT /orders/{id}/status
type StatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// CartEventRequest тело POST /carts/{cartID}/events
type CartEventRequest struct {
	Action     string          `json:"action"`
	ProductID  string          `json:"product_id,omitempty"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// PostOrders POST /orders
func (h *Handler) PostOrders(w http.ResponseWriter, r *http.Request) {
	principal, _ := authctx.PrincipalFromContext(r.Context())
	var req OrderRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	items := make([]service.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, service.ItemInput{
			ProductID:   it.ProductID,
			SellerID:    it.SellerID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	order, err := h.orders.PlaceOrder(r.Context(), service.PlaceOrderInput{
		BuyerID:         principal.UserID,
		BuyerEmail:      req.BuyerEmail,
		ShippingAddress: req.ShippingAddress,
		Items:           items,
	})
	if err != nil {
		h.writeError(w, r, "place order", err)
		return
	}
	httpjson.Write(w, r, http.StatusCreated, toResponse(order), h.logger)
}

// GetOrder GET /orders/{id}; виден только покупателю
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	principal, _ := authctx.PrincipalFromContext(r.Context())
	buyer := principal.UserID
	if principal.Role == RoleAdmin {
		buyer = ""
	}
	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "id"), buyer)
	if err != nil {
		h.writeError(w, r, "get order", err)
		return
	}
	httpjson.Write(w, r, http.StatusOK, toResponse(order), h.logger)
}

// ListOrders GET /orders; заказы вызывающего покупателя
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	principal, _ := authctx.PrincipalFromContext(r.Context())
	list, err := h.orders.ListByBuyer(r.Context(), principal.UserID)
	if err != nil {
		h.writeError(w, r, "list orders", err)
		return
	}
	out := make([]OrderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, toResponse(o))
	}
	httpjson.Write(w, r, http.StatusOK, out, h.logger)
}

// ChangeStatus PUT /orders/{id}/status; только ADMIN
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	principal, _ := authctx.PrincipalFromContext(r.Context())
	if principal.Role != RoleAdmin {
		httpjson.Error(w, r, http.StatusForbidden, "admin role required", h.logger)
		return
	}
	var req StatusRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	order, err := h.orders.ChangeStatus(r.Context(), chi.URLParam(r, "id"), events.OrderStatus(req.Status), req.Reason)
	if err != nil {
		h.writeError(w, r, "change status", err)
		return
	}
	httpjson.Write(w, r, http.StatusOK, toResponse(order), h.logger)
}

// PostCartEvent POST /carts/{cartID}/events
func (h *Handler) PostCartEvent(w http.ResponseWriter, r *http.Request) {
	principal, _ := authctx.PrincipalFromContext(r.Context())
	var req CartEventRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	err := h.orders.RecordCartActivity(r.Context(), events.CartUpdated{
		CartID:     chi.URLParam(r, "cartID"),
		UserID:     principal.UserID,
		Action:     events.CartAction(req.Action),
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		Price:      req.Price,
		TotalItems: req.TotalItems,
		TotalPrice: req.TotalPrice,
	})
	if err != nil {
		h.writeError(w, r, "record cart activity", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidOrder):
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
	case errors.Is(err, service.ErrInvalidTransition):
		httpjson.Error(w, r, http.StatusConflict, err.Error(), h.logger)
	case errors.Is(err, repository.ErrNotFound):
		httpjson.Error(w, r, http.StatusNotFound, "order not found", h.logger)
	case errors.Is(err, service.ErrForbidden):
		httpjson.Error(w, r, http.StatusForbidden, err.Error(), h.logger)
	default:
		observability.LoggerFromContext(r.Context(), h.logger).Error("Request failed", zap.String("op", op), zap.Error(err))
		httpjson.Error(w, r, http.StatusInternalServerError, "internal error", h.logger)
	}
}

func toResponse(o repository.Order) OrderResponse {
	items := make([]OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItem{
			ProductID:   it.ProductID,
			SellerID:    it.SellerID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal.StringFixed(2),
		})
	}
	return OrderResponse{
		ID:              o.ID,
		BuyerID:         o.BuyerID,
		Status:          o.Status,
		Items:           items,
		TotalPrice:      o.TotalPrice.StringFixed(2),
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
	}
}
