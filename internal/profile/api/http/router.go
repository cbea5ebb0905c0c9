package httpapi

import (
	"github.com/go-chi/chi/v5"

	"github.com/shestoi/GoMarket/platform/authctx"
)

// Mount регистрирует маршруты профилей.
// /top объявлены до /{id}, чтобы "top" не попадал в параметр.
func Mount(r chi.Router, h *Handler) {
	r.Route("/profiles", func(r chi.Router) {
		r.Get("/users/top", h.TopSpenders)
		r.Get("/users/analytics/by-spending", h.UsersBySpending)
		r.Get("/users/analytics/by-orders", h.UsersByOrders)
		r.Get("/users/{id}", h.GetUserProfile)

		r.Get("/sellers/top", h.TopSellers)
		r.Get("/sellers/analytics/by-rating", h.SellersByRating)
		r.Get("/sellers/analytics/verified", h.VerifiedSellers)
		r.Get("/sellers/analytics/by-revenue", h.SellersByRevenue)
		r.Get("/sellers/{id}", h.GetSellerProfile)

		r.Group(func(r chi.Router) {
			r.Use(authctx.RequireUser)
			r.Post("/users/{id}/favorites/{productID}", h.AddFavorite)
			r.Delete("/users/{id}/favorites/{productID}", h.RemoveFavorite)
			r.Put("/sellers/{id}/rating", h.UpdateSellerRating)
			r.Post("/sellers/{id}/verify", h.VerifySeller)
		})
	})
}
