package httpapi

import (
	"github.com/go-chi/chi/v5"

	"github.com/shestoi/GoMarket/platform/authctx"
)

// Mount регистрирует маршруты товаров; изменения только от имени владельца
func Mount(r chi.Router, h *Handler) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(authctx.RequireUser)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})
}
