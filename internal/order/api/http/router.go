package httpapi

import (
	"github.com/go-chi/chi/v5"

	"github.com/shestoi/GoMarket/platform/authctx"
)

// Mount регистрирует маршруты заказов и корзины; все требуют X-User-ID
func Mount(r chi.Router, h *Handler) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(authctx.RequireUser)
		r.Post("/", h.PostOrders)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Put("/{id}/status", h.ChangeStatus)
	})

	r.With(authctx.RequireUser).Post("/carts/{cartID}/events", h.PostCartEvent)
}
